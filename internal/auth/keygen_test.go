package auth

import "testing"

func TestGenerateSecret(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	if len(secret.Plaintext) != SecretLen*2 {
		t.Errorf("expected %d hex chars, got %d", SecretLen*2, len(secret.Plaintext))
	}
	if secret.Hash == "" {
		t.Error("hash should not be empty")
	}

	match, err := VerifyPassword(secret.Plaintext, secret.Hash)
	if err != nil {
		t.Fatalf("verify password: %v", err)
	}
	if !match {
		t.Error("generated secret should verify against its own hash")
	}
}

func TestGenerateSecret_Uniqueness(t *testing.T) {
	a, _ := GenerateSecret()
	b, _ := GenerateSecret()
	if a.Plaintext == b.Plaintext {
		t.Error("generated secrets should be unique")
	}
}
