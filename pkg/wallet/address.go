package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// P2WPKH is a single-key segwit v0 payment.
type P2WPKH struct {
	Address      string
	ScriptPubKey []byte
	// PublicKey is the compressed serialization of the key.
	PublicKey []byte
}

// NewP2WPKH parses a SEC encoded public key and returns its P2WPKH
// address and output script for the given network.
func NewP2WPKH(pubkey []byte, net *chaincfg.Params) (*P2WPKH, error) {
	if net == nil {
		return nil, ErrNullNetwork
	}
	key, err := btcec.ParsePubKey(pubkey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	compressed := key.SerializeCompressed()

	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(compressed), net,
	)
	if err != nil {
		return nil, err
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, err
	}

	return &P2WPKH{
		Address:      addr.EncodeAddress(),
		ScriptPubKey: script,
		PublicKey:    compressed,
	}, nil
}

// AddressToScript parses addr, makes sure it belongs to net and returns its
// output script.
func AddressToScript(addr string, net *chaincfg.Params) ([]byte, error) {
	if net == nil {
		return nil, ErrNullNetwork
	}
	decoded, err := btcutil.DecodeAddress(addr, net)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrInvalidAddress, addr, err)
	}
	if !decoded.IsForNet(net) {
		return nil, fmt.Errorf("%w %s: %s", ErrAddressNetworkMismatch, addr, net.Name)
	}
	return txscript.PayToAddrScript(decoded)
}

// pubKeyHashScriptCode returns the P2PKH script committed to by the BIP143
// digest of a P2WPKH input.
func pubKeyHashScriptCode(pubkey []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(btcutil.Hash160(pubkey)).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}
