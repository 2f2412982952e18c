package crypto

import (
	"strings"
	"testing"
)

func TestHashPassword_SaltedAndVerifiable(t *testing.T) {
	t.Parallel()

	pw := "p@ssw0rd"
	h1, err := HashPassword(pw)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword(pw)
	if err != nil {
		t.Fatalf("HashPassword(2): %v", err)
	}
	if h1 == h2 {
		t.Fatalf("two hashes of the same password are equal, salt missing")
	}
	if !strings.HasPrefix(h1, "$2a$10$") {
		t.Fatalf("unexpected bcrypt prefix: %s", h1)
	}
	if !VerifyPassword(pw, h1) || !VerifyPassword(pw, h2) {
		t.Fatalf("VerifyPassword: expected true for correct password")
	}
	if VerifyPassword("wrong", h1) {
		t.Fatalf("VerifyPassword: expected false for wrong password")
	}
	if VerifyPassword(pw, "not-a-hash") {
		t.Fatalf("VerifyPassword: expected false for malformed hash")
	}
}

func TestOfflineDigest_KnownVector(t *testing.T) {
	t.Parallel()

	// md5("password")
	if got := OfflineDigest("password"); got != "5f4dcc3b5aa765d61d8327deb882cf99" {
		t.Fatalf("digest mismatch: %s", got)
	}
	if !VerifyOffline("password", "5f4dcc3b5aa765d61d8327deb882cf99") {
		t.Fatalf("VerifyOffline: expected true")
	}
	if VerifyOffline("Password", "5f4dcc3b5aa765d61d8327deb882cf99") {
		t.Fatalf("VerifyOffline: expected false for different password")
	}
}

func TestDerive_BothVerifiersMatchSamePassword(t *testing.T) {
	t.Parallel()

	c, err := Derive("correct horse battery staple")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !VerifyPassword("correct horse battery staple", c.Hash) {
		t.Fatalf("hash does not verify")
	}
	if !VerifyOffline("correct horse battery staple", c.OfflineDigest) {
		t.Fatalf("offline digest does not verify")
	}
	if _, err := Derive(""); err == nil {
		t.Fatalf("want error on empty password")
	}
}
