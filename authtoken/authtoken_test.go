package authtoken

import "testing"

func TestClaimsRejectsNonBearer(t *testing.T) {
	_, err := Claims("Basic dXNlcjpwYXNz")
	if err != ErrNotBearer {
		t.Fatalf("expected ErrNotBearer, got %v", err)
	}
}

func TestClaimsExtractsSubject(t *testing.T) {
	// Header.Payload.Signature with payload {"sub":"alice"} base64url, no
	// real signature needed since ParseUnverified skips verification.
	token := "Bearer eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJhbGljZSJ9.sig"
	claims, err := Claims(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Subject(claims); got != "alice" {
		t.Fatalf("subject = %q", got)
	}
}
