package local

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/thresholdvault/vault-daemon/internal/core/ports"
)

// SigningLabel binds the per key reference master seeds of the signer.
const SigningLabel = "signing"

type signer struct {
	seed []byte
}

// NewSigningOracle returns a ports.SigningOracle holding one BIP32 master key
// per key reference, derived from seed.
func NewSigningOracle(seed []byte) (ports.SigningOracle, error) {
	if err := validateSeed(seed); err != nil {
		return nil, err
	}
	return &signer{append([]byte{}, seed...)}, nil
}

func (s *signer) DeriveSigningPublicKey(
	ctx context.Context, derivationPath [][]byte, keyReference string,
) ([]byte, error) {
	key, err := s.privateKey(ctx, derivationPath, keyReference)
	if err != nil {
		return nil, err
	}
	return key.PubKey().SerializeCompressed(), nil
}

func (s *signer) Sign(
	ctx context.Context, digest []byte, derivationPath [][]byte,
	keyReference string,
) ([]byte, error) {
	if len(digest) != 32 {
		return nil, ErrInvalidDigest
	}
	key, err := s.privateKey(ctx, derivationPath, keyReference)
	if err != nil {
		return nil, err
	}
	sig := ecdsa.SignCompact(key, digest, true)
	// Strip the recovery code.
	return sig[1:], nil
}

func (s *signer) privateKey(
	ctx context.Context, derivationPath [][]byte, keyReference string,
) (*btcec.PrivateKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if keyReference == "" {
		return nil, ErrMissingKeyReference
	}

	masterSeed, err := KeyReferenceSeed(s.seed, SigningLabel, keyReference)
	if err != nil {
		return nil, err
	}
	// Network params only affect the serialization of extended keys, which
	// never leave the oracle.
	key, err := hdkeychain.NewMaster(masterSeed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}
	for _, index := range ChildIndexes(derivationPath) {
		if key, err = key.Derive(index); err != nil {
			return nil, fmt.Errorf("failed to derive child key: %w", err)
		}
	}
	return key.ECPrivKey()
}

// ChildIndexes maps a derivation path to BIP32 child indexes. Every path
// element yields its length followed by its big-endian 4-byte words, the
// last one zero padded, so an 8-byte element maps to 3 indexes.
func ChildIndexes(derivationPath [][]byte) []uint32 {
	indexes := make([]uint32, 0, 3*len(derivationPath))
	for _, element := range derivationPath {
		indexes = append(indexes, uint32(len(element)))
		for i := 0; i < len(element); i += 4 {
			var word [4]byte
			copy(word[:], element[i:])
			indexes = append(indexes, binary.BigEndian.Uint32(word[:]))
		}
	}
	return indexes
}
