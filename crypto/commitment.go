package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// HashSize is the size of a commitment hash in bytes.
const HashSize = sha256.Size

// SecretSize is the size of a commitment secret in bytes.
const SecretSize = 32

// Hash is a SHA-256 digest. It identifies a committed order before reveal
// and is the only information about the order visible during the commit
// window.
type Hash [HashSize]byte

// NewHashFromBytes creates a Hash from a byte slice.
func NewHashFromBytes(data []byte) (Hash, error) {
	var h Hash
	if len(data) != HashSize {
		return h, errors.New("invalid hash size")
	}
	copy(h[:], data)
	return h, nil
}

// NewHashFromString creates a Hash from a hex-encoded string.
func NewHashFromString(data string) (Hash, error) {
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return Hash{}, err
	}
	return NewHashFromBytes(rawBytes)
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// String returns a hex-encoded string representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Secret is the random value mixed into a commitment hash. Revealing the
// secret together with the order parameters proves authorship of the
// commitment.
type Secret [SecretSize]byte

// NewSecret generates a cryptographically random commitment secret.
func NewSecret() (Secret, error) {
	var s Secret
	if _, err := rand.Read(s[:]); err != nil {
		return s, err
	}
	return s, nil
}

// NewSecretFromBytes creates a Secret from a byte slice.
func NewSecretFromBytes(data []byte) (Secret, error) {
	var s Secret
	if len(data) != SecretSize {
		return s, errors.New("invalid secret size")
	}
	copy(s[:], data)
	return s, nil
}

// Bytes returns the secret as a byte slice.
func (s Secret) Bytes() []byte {
	return s[:]
}

// String returns a hex-encoded string representation of the secret.
func (s Secret) String() string {
	return hex.EncodeToString(s[:])
}

// CommitmentHash computes the hash binding canonically-encoded order
// parameters to a secret: SHA-256(params || secret). The encoding of params
// must be canonical so that the reveal-time recomputation is byte-identical.
func CommitmentHash(params []byte, secret Secret) Hash {
	h := sha256.New()
	h.Write(params)
	h.Write(secret[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}
