// Package cryptox holds the password verifier used by the user registry.
// Only a salt and an Argon2id-derived hash are ever stored.
package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/turing/internal/common"
	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of a freshly generated salt in bytes.
const SaltSize = 16

// Verifier is the stored form of a password: salt plus derived hash.
type Verifier struct {
	Salt []byte
	Hash []byte
}

// DeriveKey stretches password with salt using Argon2id.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// NewVerifier salts and hashes password with a random salt.
func NewVerifier(password []byte) Verifier {
	salt := common.GenerateRandByteArray(SaltSize)
	return Verifier{Salt: salt, Hash: DeriveKey(password, salt)}
}

// Check reports whether password matches v in constant time.
func (v Verifier) Check(password []byte) bool {
	if len(v.Hash) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(v.Hash, DeriveKey(password, v.Salt)) == 1
}
