package vetkd

import (
	"fmt"

	"github.com/cloudflare/circl/ecc/bls12381"
	"github.com/cloudflare/circl/sign/bls"
)

// TransportSecretKey is the ephemeral key pair a requester uses to receive a
// derived key from the oracle.
type TransportSecretKey struct {
	sk *bls12381.Scalar
	pk *bls12381.G1
}

// NewTransportSecretKey deterministically derives a transport key pair from
// a 32-byte seed.
func NewTransportSecretKey(seed []byte) (*TransportSecretKey, error) {
	if len(seed) != SeedSize {
		return nil, ErrInvalidSeed
	}

	sk := new(bls12381.Scalar)
	sk.SetBytes(seed)
	if sk.IsZero() == 1 {
		return nil, ErrInvalidSeed
	}
	pk := new(bls12381.G1)
	pk.ScalarMult(sk, bls12381.G1Generator())

	return &TransportSecretKey{sk, pk}, nil
}

// PublicKey returns the compressed transport public key.
func (t *TransportSecretKey) PublicKey() []byte {
	return t.pk.BytesCompressed()
}

// DecryptAndVerify decrypts the encrypted key returned by the oracle and
// makes sure it is the key derived for input under derivedPublicKey.
func (t *TransportSecretKey) DecryptAndVerify(
	encryptedKey, derivedPublicKey, input []byte,
) (*KeyMaterial, error) {
	c1, c2, c3, err := parseEncryptedKey(encryptedKey)
	if err != nil {
		return nil, err
	}

	// c1 and c2 must commit to the same ephemeral scalar.
	if !bls12381.Pair(c1, bls12381.G2Generator()).IsEqual(
		bls12381.Pair(bls12381.G1Generator(), c2),
	) {
		return nil, ErrInvalidEncryptedKey
	}

	mask := new(bls12381.G1)
	mask.ScalarMult(t.sk, c1)
	mask.Neg()
	key := new(bls12381.G1)
	key.Add(c3, mask)

	dpk := new(bls.PublicKey[bls.G2])
	if err := dpk.UnmarshalBinary(derivedPublicKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDerivedPublicKey, err)
	}
	sig := key.BytesCompressed()
	if !bls.Verify(dpk, input, sig) {
		return nil, ErrDerivedKeyVerification
	}

	return &KeyMaterial{secret: sig}, nil
}

func parseEncryptedKey(
	encryptedKey []byte,
) (*bls12381.G1, *bls12381.G2, *bls12381.G1, error) {
	if len(encryptedKey) != EncryptedKeySize {
		return nil, nil, nil, fmt.Errorf(
			"%w: expected %d bytes, got %d",
			ErrInvalidEncryptedKey, EncryptedKeySize, len(encryptedKey),
		)
	}

	c1, c2, c3 := new(bls12381.G1), new(bls12381.G2), new(bls12381.G1)
	if err := c1.SetBytes(encryptedKey[:48]); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidEncryptedKey, err)
	}
	if err := c2.SetBytes(encryptedKey[48:144]); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidEncryptedKey, err)
	}
	if err := c3.SetBytes(encryptedKey[144:]); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrInvalidEncryptedKey, err)
	}
	return c1, c2, c3, nil
}
