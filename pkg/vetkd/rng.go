package vetkd

import (
	"crypto/sha256"

	"golang.org/x/crypto/chacha20"
)

// ExpandSeed turns raw randomness into a 32-byte seed. Inputs shorter than
// that are hashed together with the domain tag.
func ExpandSeed(domain string, raw []byte) ([]byte, error) {
	if len(raw) <= 0 {
		return nil, ErrEmptyRandomness
	}
	if len(raw) >= SeedSize {
		return append([]byte{}, raw[:SeedSize]...), nil
	}

	h := sha256.New()
	h.Write([]byte(domain))
	h.Write(raw)
	return h.Sum(nil), nil
}

// SeededStream is a deterministic io.Reader producing the ChaCha20 keystream
// of a 32-byte seed.
type SeededStream struct {
	cipher *chacha20.Cipher
}

// NewSeededStream ...
func NewSeededStream(seed []byte) (*SeededStream, error) {
	if len(seed) != SeedSize {
		return nil, ErrInvalidSeed
	}
	nonce := make([]byte, chacha20.NonceSize)
	c, err := chacha20.NewUnauthenticatedCipher(seed, nonce)
	if err != nil {
		return nil, err
	}
	return &SeededStream{c}, nil
}

func (s *SeededStream) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	s.cipher.XORKeyStream(p, p)
	return len(p), nil
}
