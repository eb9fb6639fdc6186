// Package model defines domain entities for the ingestion pipeline.
package model

import (
	"encoding/json"
	"time"
)

// Event is the shape producers submit to the ingest endpoint. Only
// EventName and CapturedAt are required; everything else is carried
// through as opaque properties. Recognized fields are promoted to named
// struct fields; any other submitted field (top-level or nested under
// "properties") is preserved verbatim in Properties rather than dropped,
// per the ingest contract's "further fields are accepted and preserved
// verbatim" guarantee.
type Event struct {
	EventName     string                 `json:"event_name"`
	CapturedAt    time.Time              `json:"captured_at"`
	Site          string                 `json:"site,omitempty"`
	App           string                 `json:"app,omitempty"`
	AppVersion    string                 `json:"app_version,omitempty"`
	FrappeVersion string                 `json:"frappe_version,omitempty"`
	User          string                 `json:"user,omitempty"`
	Properties    map[string]interface{} `json:"properties,omitempty"`
}

// recognizedEventFields are the JSON keys kept out of the Properties
// overflow. All but "received_at" are decoded onto named Event fields; a
// submitted "received_at" is dropped, as the server sets that value at
// ingest. Anything else in the submitted object overflows into Properties.
var recognizedEventFields = map[string]bool{
	"event_name":     true,
	"captured_at":    true,
	"site":           true,
	"app":            true,
	"app_version":    true,
	"frappe_version": true,
	"user":           true,
	"properties":     true,
	"received_at":    true,
}

// UnmarshalJSON decodes the recognized fields normally, then folds every
// remaining top-level key into Properties so unrecognized producer fields
// survive ingest instead of being silently dropped by the closed struct
// shape. An explicit "properties" object is preserved; overflow keys never
// overwrite a key already present there.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	var aux alias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = Event(aux)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var overflow map[string]interface{}
	for key, value := range raw {
		if recognizedEventFields[key] {
			continue
		}
		var decoded interface{}
		if err := json.Unmarshal(value, &decoded); err != nil {
			continue
		}
		if overflow == nil {
			overflow = make(map[string]interface{})
		}
		overflow[key] = decoded
	}

	if len(overflow) == 0 {
		return nil
	}
	if e.Properties == nil {
		e.Properties = overflow
		return nil
	}
	for key, value := range overflow {
		if _, exists := e.Properties[key]; !exists {
			e.Properties[key] = value
		}
	}
	return nil
}

// RequiredFields lists the fields that must be present for an Event to be
// accepted at ingest time.
var RequiredFields = []string{"event_name", "captured_at"}

// HotEventRow is the persisted shape of an accepted event inside the hot
// event store (C4). ID is the originating stream entry id so storage stays
// idempotent across re-delivery.
type HotEventRow struct {
	ID            string    `json:"id"`
	Site          string    `json:"site"`
	Name          string    `json:"name"`
	App           string    `json:"app"`
	AppVersion    string    `json:"app_version"`
	FrappeVersion string    `json:"frappe_version"`
	Timestamp     time.Time `json:"timestamp"`
	Data          string    `json:"data"` // opaque JSON blob of remaining properties
	StoredAt      time.Time `json:"stored_at"`
}

// TableFields are the HotEventRow columns promoted out of the opaque data
// blob; everything else submitted with an event lands in Data.
var TableFields = []string{"id", "site", "name", "app", "app_version", "frappe_version", "timestamp"}
