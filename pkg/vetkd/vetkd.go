// Package vetkd implements both sides of an identity based key derivation
// protocol over BLS12-381.
//
// The oracle holds a master secret and derives, for every (context, input)
// pair, a BLS signature of input under a key scoped to context. The derived
// key is never returned in clear: it is ElGamal encrypted under a transport
// public key chosen by the requester, who decrypts it, verifies it against the
// derived public key of the context and expands it into symmetric key
// material.
package vetkd

import "errors"

const (
	// TransportPublicKeySize is the size of a compressed G1 point.
	TransportPublicKeySize = 48
	// DerivedPublicKeySize is the size of a compressed G2 point.
	DerivedPublicKeySize = 96
	// EncryptedKeySize is the size of the c1 || c2 || c3 encrypted key blob.
	EncryptedKeySize = 48 + 96 + 48
	// SeedSize ...
	SeedSize = 32
)

var (
	// ErrInvalidSeed ...
	ErrInvalidSeed = errors.New("seed must be 32 bytes long")
	// ErrInvalidTransportKey ...
	ErrInvalidTransportKey = errors.New("invalid transport public key")
	// ErrInvalidEncryptedKey ...
	ErrInvalidEncryptedKey = errors.New("invalid encrypted key")
	// ErrInvalidDerivedPublicKey ...
	ErrInvalidDerivedPublicKey = errors.New("invalid derived public key")
	// ErrDerivedKeyVerification is returned when the decrypted key is not a
	// valid signature of the input under the derived public key.
	ErrDerivedKeyVerification = errors.New("derived key verification failed")
	// ErrEmptyRandomness ...
	ErrEmptyRandomness = errors.New("randomness must not be empty")
	// ErrInvalidCiphertext ...
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)
