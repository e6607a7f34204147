package ports

import "context"

// SigningOracle holds the threshold signing key material of the vaults.
type SigningOracle interface {
	// DeriveSigningPublicKey returns the SEC encoded public key for the given
	// derivation path under keyReference.
	DeriveSigningPublicKey(
		ctx context.Context, derivationPath [][]byte, keyReference string,
	) ([]byte, error)
	// Sign returns the 64-byte compact (r || s) signature of a 32-byte digest.
	Sign(
		ctx context.Context, digest []byte, derivationPath [][]byte,
		keyReference string,
	) ([]byte, error)
}

// KeyDerivationOracle is the remote party of the identity based key
// derivation protocol used to protect the guardian shares.
type KeyDerivationOracle interface {
	// DeriveEncryptedKey returns the key derived for (context, input)
	// encrypted under transportPublicKey.
	DeriveEncryptedKey(
		ctx context.Context, input, derivationContext []byte,
		keyReference string, transportPublicKey []byte,
	) ([]byte, error)
	// DerivedPublicKey returns the public key used to verify the keys
	// derived under context.
	DerivedPublicKey(
		ctx context.Context, derivationContext []byte, keyReference string,
	) ([]byte, error)
}

// RandomnessSource returns fresh random bytes, possibly fewer than 32.
type RandomnessSource interface {
	RawRandom(ctx context.Context) ([]byte, error)
}
