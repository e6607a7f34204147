// Package local implements the signing, key derivation and randomness oracles
// in process, out of a single master seed. They are meant for regtest and
// development deployments, where no threshold signing network is available.
package local

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"golang.org/x/crypto/hkdf"
)

const (
	minSeedLen = hdkeychain.RecommendedSeedLen
	maxSeedLen = hdkeychain.MaxSeedBytes
)

var (
	// ErrShortSeed ...
	ErrShortSeed = fmt.Errorf("oracle seed must be at least %d bytes", minSeedLen)
	// ErrLongSeed ...
	ErrLongSeed = fmt.Errorf("oracle seed must be at most %d bytes", maxSeedLen)
	// ErrMissingKeyReference ...
	ErrMissingKeyReference = errors.New("missing key reference")
	// ErrInvalidDigest ...
	ErrInvalidDigest = errors.New("digest must be 32 bytes")
)

func validateSeed(seed []byte) error {
	if len(seed) < minSeedLen {
		return ErrShortSeed
	}
	if len(seed) > maxSeedLen {
		return ErrLongSeed
	}
	return nil
}

// KeyReferenceSeed expands the oracle seed into the 32-byte secret bound to
// label and keyReference.
func KeyReferenceSeed(seed []byte, label, keyReference string) ([]byte, error) {
	info := append([]byte(label+":"), keyReference...)
	secret := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, info), secret); err != nil {
		return nil, err
	}
	return secret, nil
}
