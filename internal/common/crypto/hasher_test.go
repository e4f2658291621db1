package crypto

import "testing"

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	hasher := NewBcryptHasher()

	password := "correct horse battery staple"

	hash, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if hash == password {
		t.Error("expected hash to differ from the plaintext password")
	}

	if !hasher.Verify(hash, password) {
		t.Error("expected verify to succeed for the original password")
	}
}

func TestBcryptHasher_Verify_WrongPassword(t *testing.T) {
	hasher := NewBcryptHasher()

	hash, err := hasher.Hash("password-one")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if hasher.Verify(hash, "password-two") {
		t.Error("expected verify to fail for a different password")
	}
}

func TestBcryptHasher_Hash_Salted(t *testing.T) {
	hasher := NewBcryptHasher()

	first, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	second, err := hasher.Hash("same-password")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if first == second {
		t.Error("expected two hashes of the same password to differ")
	}
}

func TestBcryptHasher_Verify_MalformedHash(t *testing.T) {
	hasher := NewBcryptHasher()

	if hasher.Verify("not-a-bcrypt-digest", "whatever") {
		t.Error("expected verify to fail for a malformed hash")
	}
}
