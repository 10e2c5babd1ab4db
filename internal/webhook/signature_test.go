package webhook

import (
	"strings"
	"testing"
)

func TestSignAndVerify(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(secret) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(secret))
	}

	body := []byte(`{"event":"action.completed"}`)
	sig := Sign(secret, body)
	if !strings.HasPrefix(sig, "sha256=") {
		t.Fatalf("expected sha256= prefix, got %s", sig)
	}

	if !VerifySignature(secret, body, sig) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	secret := "deadbeef"
	sig := Sign(secret, []byte(`{"a":1}`))

	if VerifySignature(secret, []byte(`{"a":2}`), sig) {
		t.Fatal("expected tampered body to fail verification")
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := []byte(`{"a":1}`)
	sig := Sign("secret-one", body)

	if VerifySignature("secret-two", body, sig) {
		t.Fatal("expected wrong secret to fail verification")
	}
}

func TestGenerateSecret_Unique(t *testing.T) {
	a, _ := GenerateSecret()
	b, _ := GenerateSecret()
	if a == b {
		t.Fatal("expected distinct secrets")
	}
}
