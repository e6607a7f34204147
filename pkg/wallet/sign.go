package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// SignFunc returns the 64-byte compact signature of a 32-byte digest.
type SignFunc func(inIndex int, digest []byte) ([]byte, error)

// SignP2WPKHInputsOpts is the struct given to SignP2WPKHInputs
type SignP2WPKHInputsOpts struct {
	Tx *wire.MsgTx
	// PrevValues are the amounts of the spent outputs, by input index.
	PrevValues []uint64
	// PrevScript is the P2WPKH script locking all the spent outputs.
	PrevScript []byte
	PublicKey  []byte
	Sign       SignFunc
}

func (o SignP2WPKHInputsOpts) validate() error {
	if o.Tx == nil || len(o.Tx.TxIn) <= 0 {
		return ErrNullInputs
	}
	if len(o.Tx.TxIn) != len(o.PrevValues) {
		return ErrPrevValuesLengthMismatch
	}
	if _, err := btcec.ParsePubKey(o.PublicKey); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if o.Sign == nil {
		return ErrNullSigner
	}
	return nil
}

// SignP2WPKHInputs signs the inputs of the transaction one after the other
// and sets their witness to [der_signature || SIGHASH_ALL, pubkey]. The first
// failure stops the process.
func SignP2WPKHInputs(opts SignP2WPKHInputsOpts) error {
	if err := opts.validate(); err != nil {
		return err
	}
	tx := opts.Tx

	prevOutFetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range tx.TxIn {
		prevOutFetcher.AddPrevOut(
			in.PreviousOutPoint,
			wire.NewTxOut(int64(opts.PrevValues[i]), opts.PrevScript),
		)
	}
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)

	scriptCode, err := pubKeyHashScriptCode(opts.PublicKey)
	if err != nil {
		return err
	}

	for i := range tx.TxIn {
		digest, err := txscript.CalcWitnessSigHash(
			scriptCode, sigHashes, txscript.SigHashAll, tx, i,
			int64(opts.PrevValues[i]),
		)
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}

		compact, err := opts.Sign(i, digest)
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		der, err := CompactToDER(compact)
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}

		sig := append(der, byte(txscript.SigHashAll))
		tx.TxIn[i].Witness = wire.TxWitness{
			sig, append([]byte{}, opts.PublicKey...),
		}
	}
	return nil
}

// CompactToDER converts a 64-byte r || s signature into its canonical DER
// encoding with low S.
func CompactToDER(sig []byte) ([]byte, error) {
	if len(sig) != 64 {
		return nil, ErrInvalidSignature
	}

	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow || r.IsZero() {
		return nil, ErrInvalidSignature
	}
	if overflow := s.SetByteSlice(sig[32:]); overflow || s.IsZero() {
		return nil, ErrInvalidSignature
	}
	return ecdsa.NewSignature(&r, &s).Serialize(), nil
}
