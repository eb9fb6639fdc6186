package model

// AuthContext is attached to a request once the shared ingest secret has
// been verified. Tenant is resolved from the request and carried alongside
// so handlers never need to re-derive it.
type AuthContext struct {
	Tenant string
}
