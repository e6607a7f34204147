package application

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/thresholdvault/vault-daemon/internal/core/domain"
	"github.com/thresholdvault/vault-daemon/internal/core/ports"
	"github.com/thresholdvault/vault-daemon/pkg/vetkd"
)

const (
	shareContextPrefix    = "thresholdvault.guardian-share.v1"
	transportSeedDomain   = "thresholdvault.transport.seed"
	shareEncryptionDomain = "thresholdvault.share"
	rngDomain             = "thresholdvault.guardian.rng"
)

// ShareCustody encrypts guardian shares under a key derived for the single
// (vault, guardian) pair by the key derivation oracle.
type ShareCustody interface {
	EncryptShare(
		ctx context.Context, vaultID domain.VaultID, keyReference string,
		guardian domain.GuardianEntry, plaintext []byte,
	) ([]byte, error)
	DecryptShare(
		ctx context.Context, vaultID domain.VaultID, keyReference string,
		guardian domain.GuardianEntry, ciphertext []byte,
	) ([]byte, error)
}

type shareCustody struct {
	keyDerivation ports.KeyDerivationOracle
	randomness    ports.RandomnessSource
}

func NewShareCustody(
	keyDerivation ports.KeyDerivationOracle, randomness ports.RandomnessSource,
) ShareCustody {
	return &shareCustody{keyDerivation, randomness}
}

func (s *shareCustody) EncryptShare(
	ctx context.Context, vaultID domain.VaultID, keyReference string,
	guardian domain.GuardianEntry, plaintext []byte,
) ([]byte, error) {
	rng, err := s.seededStream(ctx)
	if err != nil {
		return nil, err
	}
	keyMaterial, err := s.deriveKeyMaterial(ctx, vaultID, keyReference, guardian)
	if err != nil {
		return nil, err
	}

	ciphertext, err := keyMaterial.Encrypt(plaintext, shareEncryptionDomain, rng)
	if err != nil {
		return nil, domain.WrapError(
			domain.KindCryptoFailure, fmt.Errorf("encryption failed: %w", err),
		)
	}
	return ciphertext, nil
}

func (s *shareCustody) DecryptShare(
	ctx context.Context, vaultID domain.VaultID, keyReference string,
	guardian domain.GuardianEntry, ciphertext []byte,
) ([]byte, error) {
	keyMaterial, err := s.deriveKeyMaterial(ctx, vaultID, keyReference, guardian)
	if err != nil {
		return nil, err
	}
	plaintext, err := keyMaterial.Decrypt(ciphertext, shareEncryptionDomain)
	if err != nil {
		return nil, domain.WrapError(domain.KindCryptoFailure, err)
	}
	return plaintext, nil
}

func (s *shareCustody) deriveKeyMaterial(
	ctx context.Context, vaultID domain.VaultID, keyReference string,
	guardian domain.GuardianEntry,
) (*vetkd.KeyMaterial, error) {
	input := shareDerivationInput(vaultID, guardian)
	derivationContext := shareDerivationContext(vaultID)

	// The transport key only keeps the derived key off the wire, its secrecy
	// is not what protects the shares.
	transportKey, err := vetkd.NewTransportSecretKey(
		transportSeed(vaultID, guardian),
	)
	if err != nil {
		return nil, domain.WrapError(domain.KindCryptoFailure, err)
	}

	encryptedKey, err := s.keyDerivation.DeriveEncryptedKey(
		ctx, input, derivationContext, keyReference, transportKey.PublicKey(),
	)
	if err != nil {
		return nil, domain.WrapError(
			domain.KindCryptoFailure,
			fmt.Errorf("key derivation rejected: %w", err),
		)
	}
	derivedPublicKey, err := s.keyDerivation.DerivedPublicKey(
		ctx, derivationContext, keyReference,
	)
	if err != nil {
		return nil, domain.WrapError(
			domain.KindCryptoFailure,
			fmt.Errorf("derived public key rejected: %w", err),
		)
	}

	keyMaterial, err := transportKey.DecryptAndVerify(
		encryptedKey, derivedPublicKey, input,
	)
	if err != nil {
		return nil, domain.WrapError(domain.KindCryptoFailure, err)
	}
	return keyMaterial, nil
}

func (s *shareCustody) seededStream(ctx context.Context) (*vetkd.SeededStream, error) {
	raw, err := s.randomness.RawRandom(ctx)
	if err != nil {
		return nil, domain.WrapError(
			domain.KindCryptoFailure,
			fmt.Errorf("randomness source rejected: %w", err),
		)
	}
	if len(raw) <= 0 {
		return nil, domain.ErrRandomnessUnavailable
	}

	seed, err := vetkd.ExpandSeed(rngDomain, raw)
	if err != nil {
		return nil, domain.WrapError(domain.KindCryptoFailure, err)
	}
	stream, err := vetkd.NewSeededStream(seed)
	if err != nil {
		return nil, domain.WrapError(domain.KindCryptoFailure, err)
	}
	return stream, nil
}

func shareDerivationInput(vaultID domain.VaultID, guardian domain.GuardianEntry) []byte {
	h := sha256.New()
	h.Write(vaultID.Bytes())
	h.Write(guardian.EmailHash)
	h.Write(guardian.BoundIdentity.Bytes())
	return h.Sum(nil)
}

func shareDerivationContext(vaultID domain.VaultID) []byte {
	return append([]byte(shareContextPrefix), vaultID.Bytes()...)
}

func transportSeed(vaultID domain.VaultID, guardian domain.GuardianEntry) []byte {
	h := sha256.New()
	h.Write([]byte(transportSeedDomain))
	h.Write(guardian.EmailHash)
	h.Write(vaultID.Bytes())
	h.Write(guardian.BoundIdentity.Bytes())
	return h.Sum(nil)
}
