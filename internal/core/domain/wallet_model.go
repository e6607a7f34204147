package domain

import "encoding/binary"

// VaultID identifies a vault across the wallet and guardian services.
type VaultID uint64

// Bytes returns the big-endian encoding of the id.
func (id VaultID) Bytes() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// VaultWallet is the deposit wallet of a vault. It is created on the first
// address request and never modified afterwards.
type VaultWallet struct {
	VaultID        VaultID
	KeyReference   string
	DerivationPath [][]byte
	Address        string
	ScriptPubKey   []byte
	PublicKey      []byte
	Network        string
}

// WalletDerivationPath returns the derivation path of the signing key of the
// given vault.
func WalletDerivationPath(id VaultID) [][]byte {
	return [][]byte{id.Bytes()}
}

// IsZero returns whether the wallet lacks both address and public key.
func (w VaultWallet) IsZero() bool {
	return w.Address == "" && len(w.PublicKey) == 0
}

// Copy returns a deep copy of the wallet.
func (w VaultWallet) Copy() VaultWallet {
	path := make([][]byte, 0, len(w.DerivationPath))
	for _, p := range w.DerivationPath {
		path = append(path, append([]byte{}, p...))
	}
	w.DerivationPath = path
	w.ScriptPubKey = append([]byte{}, w.ScriptPubKey...)
	w.PublicKey = append([]byte{}, w.PublicKey...)
	return w
}

// AddressInfo is the public projection of a vault wallet.
type AddressInfo struct {
	Address      string `json:"address"`
	KeyReference string `json:"keyId"`
}

// Info ...
func (w VaultWallet) Info() AddressInfo {
	return AddressInfo{Address: w.Address, KeyReference: w.KeyReference}
}
