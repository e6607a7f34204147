package vetkd

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/ecc/bls12381"
	"github.com/cloudflare/circl/sign/bls"
)

// DerivationKey is the oracle side secret scoped to one context.
type DerivationKey struct {
	sk *bls.PrivateKey[bls.G2]
}

// NewDerivationKey derives the secret of a context from the master secret of
// the oracle. The master secret must be at least 32 bytes long.
func NewDerivationKey(
	masterSecret []byte, keyReference string, context []byte,
) (*DerivationKey, error) {
	sk, err := bls.KeyGen[bls.G2](masterSecret, []byte(keyReference), context)
	if err != nil {
		return nil, err
	}
	return &DerivationKey{sk}, nil
}

// PublicKey returns the compressed derived public key of the context.
func (k *DerivationKey) PublicKey() ([]byte, error) {
	return k.sk.PublicKey().MarshalBinary()
}

// EncryptedKey derives the key for input and encrypts it under the given
// transport public key.
func (k *DerivationKey) EncryptedKey(
	input, transportPublicKey []byte, rng io.Reader,
) ([]byte, error) {
	tpk := new(bls12381.G1)
	if err := tpk.SetBytes(transportPublicKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransportKey, err)
	}
	if tpk.IsIdentity() {
		return nil, ErrInvalidTransportKey
	}

	derived := new(bls12381.G1)
	if err := derived.SetBytes(bls.Sign(k.sk, input)); err != nil {
		return nil, err
	}

	r := new(bls12381.Scalar)
	if err := r.Random(rng); err != nil {
		return nil, err
	}

	c1, c2, c3 := new(bls12381.G1), new(bls12381.G2), new(bls12381.G1)
	c1.ScalarMult(r, bls12381.G1Generator())
	c2.ScalarMult(r, bls12381.G2Generator())
	c3.ScalarMult(r, tpk)
	c3.Add(c3, derived)

	out := make([]byte, 0, EncryptedKeySize)
	out = append(out, c1.BytesCompressed()...)
	out = append(out, c2.BytesCompressed()...)
	out = append(out, c3.BytesCompressed()...)
	return out, nil
}
