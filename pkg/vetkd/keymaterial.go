package vetkd

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const keyMaterialLabel = "vetkd-aead-chacha20poly1305-"

// KeyMaterial is the verified derived key, usable to encrypt and decrypt
// messages under a domain separator.
type KeyMaterial struct {
	secret []byte
}

func (m *KeyMaterial) aeadKey(domain string) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, m.secret, nil, []byte(keyMaterialLabel+domain))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encrypt seals plaintext under the key expanded for domain. The nonce is
// read from rng and prepended to the returned ciphertext.
func (m *KeyMaterial) Encrypt(
	plaintext []byte, domain string, rng io.Reader,
) ([]byte, error) {
	key, err := m.aeadKey(domain)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rng, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, []byte(domain)), nil
}

// Decrypt opens a ciphertext produced by Encrypt for the same domain.
func (m *KeyMaterial) Decrypt(ciphertext []byte, domain string) ([]byte, error) {
	key, err := m.aeadKey(domain)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, []byte(domain))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return plaintext, nil
}
