package token

import "testing"

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("op-secret-1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if !Verify("op-secret-1", encoded) {
		t.Fatal("expected matching token to verify")
	}
	if Verify("op-secret-2", encoded) {
		t.Fatal("expected mismatched token to fail")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	if Verify("op-secret-1", "$argon2id$v=19$broken") {
		t.Fatal("expected malformed hash to fail")
	}
	if Verify("op-secret-1", "") {
		t.Fatal("expected empty hash to fail")
	}
}
