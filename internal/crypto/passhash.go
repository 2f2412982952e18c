// Package crypto implements the two password verifiers kept per user: a slow salted bcrypt hash
// for online login and a fast unsalted digest for on-device login without network access.
package crypto

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor of the online hash.
const BcryptCost = 10

// Credentials holds both verifiers derived from one password.
type Credentials struct {
	Hash          string // bcrypt
	OfflineDigest string // hex MD5
}

// Derive computes both verifiers from a plaintext password. They are always produced together.
func Derive(password string) (Credentials, error) {
	if password == "" {
		return Credentials{}, errors.New("empty password")
	}
	h, err := HashPassword(password)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Hash: h, OfflineDigest: OfflineDigest(password)}, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether password matches the bcrypt hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// OfflineDigest returns the hex MD5 of password.
func OfflineDigest(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyOffline reports whether password matches a stored offline digest.
func VerifyOffline(password, digest string) bool {
	got := OfflineDigest(password)
	return subtle.ConstantTimeCompare([]byte(got), []byte(digest)) == 1
}
