// Package auth provides the password hashing capability used by the
// metadata store to create and authenticate users.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes new passwords and verifies stored hashes.
type Hasher interface {
	// Hash returns a salted, encoded hash of password.
	Hash(password string) (string, error)

	// Verify reports whether password matches hash. When rehash is true the
	// stored hash uses an outdated scheme and should be replaced with Hash.
	Verify(hash, password string) (ok, rehash bool)
}

// Bcrypt hashes with bcrypt. Hashes written by the earlier desktop tool
// (unsalted hex sha256) still verify and are flagged for rehash.
type Bcrypt struct {
	Cost int // bcrypt.DefaultCost when zero
}

var _ Hasher = Bcrypt{}

func (b Bcrypt) cost() int {
	if b.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return b.Cost
}

func (b Bcrypt) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost())
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b Bcrypt) Verify(hash, password string) (ok, rehash bool) {
	if isLegacySHA256(hash) {
		sum := sha256.Sum256([]byte(password))
		ok = subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(hash)) == 1
		return ok, ok
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		return false, false
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true, true
	}
	return true, cost < b.cost()
}

func isLegacySHA256(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
