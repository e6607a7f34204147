package local

import (
	"context"
	"crypto/rand"

	"github.com/thresholdvault/vault-daemon/internal/core/ports"
	"github.com/thresholdvault/vault-daemon/pkg/vetkd"
)

const keyDerivationLabel = "vetkd-master"

type keyDerivation struct {
	seed []byte
}

// NewKeyDerivationOracle returns a ports.KeyDerivationOracle holding the
// master secret of every key reference in process.
func NewKeyDerivationOracle(seed []byte) (ports.KeyDerivationOracle, error) {
	if err := validateSeed(seed); err != nil {
		return nil, err
	}
	return &keyDerivation{append([]byte{}, seed...)}, nil
}

func (k *keyDerivation) DeriveEncryptedKey(
	ctx context.Context, input, derivationContext []byte,
	keyReference string, transportPublicKey []byte,
) ([]byte, error) {
	key, err := k.derivationKey(ctx, derivationContext, keyReference)
	if err != nil {
		return nil, err
	}
	return key.EncryptedKey(input, transportPublicKey, rand.Reader)
}

func (k *keyDerivation) DerivedPublicKey(
	ctx context.Context, derivationContext []byte, keyReference string,
) ([]byte, error) {
	key, err := k.derivationKey(ctx, derivationContext, keyReference)
	if err != nil {
		return nil, err
	}
	return key.PublicKey()
}

func (k *keyDerivation) derivationKey(
	ctx context.Context, derivationContext []byte, keyReference string,
) (*vetkd.DerivationKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if keyReference == "" {
		return nil, ErrMissingKeyReference
	}

	master, err := KeyReferenceSeed(k.seed, keyDerivationLabel, keyReference)
	if err != nil {
		return nil, err
	}
	return vetkd.NewDerivationKey(master, keyReference, derivationContext)
}
