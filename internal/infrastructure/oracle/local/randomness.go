package local

import (
	"context"
	"crypto/rand"

	"github.com/thresholdvault/vault-daemon/internal/core/ports"
)

const randomnessSize = 32

type randomness struct{}

// NewRandomnessSource returns a ports.RandomnessSource backed by the OS CSPRNG.
func NewRandomnessSource() ports.RandomnessSource {
	return randomness{}
}

func (randomness) RawRandom(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, randomnessSize)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
