package wallet

import (
	"bytes"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const txVersion = 2

// Input is a previous output spent by the transaction.
type Input struct {
	Txid  string
	Index uint32
	Value uint64
}

// Output ...
type Output struct {
	Script []byte
	Amount uint64
}

// NewOutPoint parses the hex txid of an outpoint.
func NewOutPoint(txid string, index uint32) (*wire.OutPoint, error) {
	hash, err := chainhash.NewHashFromStr(txid)
	if err != nil || len(txid) != chainhash.MaxHashStringSize {
		return nil, fmt.Errorf("%w %s:%d", ErrInvalidOutpoint, txid, index)
	}
	return wire.NewOutPoint(hash, index), nil
}

// NewUnsignedTx builds a version 2 transaction with zero lock time spending
// every input, in order, with an empty signature script and final sequence.
func NewUnsignedTx(ins []Input, outs []Output) (*wire.MsgTx, error) {
	if len(ins) <= 0 {
		return nil, ErrNullInputs
	}
	if len(outs) <= 0 {
		return nil, ErrNullOutputs
	}

	tx := wire.NewMsgTx(txVersion)
	tx.LockTime = 0
	for _, in := range ins {
		outpoint, err := NewOutPoint(in.Txid, in.Index)
		if err != nil {
			return nil, err
		}
		txIn := wire.NewTxIn(outpoint, nil, nil)
		txIn.Sequence = wire.MaxTxInSequenceNum
		tx.AddTxIn(txIn)
	}
	for _, out := range outs {
		if out.Amount > math.MaxInt64 {
			return nil, ErrInvalidAmount
		}
		tx.AddTxOut(wire.NewTxOut(int64(out.Amount), out.Script))
	}
	return tx, nil
}

// SerializeTx returns the witness serialization of tx.
func SerializeTx(tx *wire.MsgTx) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, tx.SerializeSize()))
	if err := tx.Serialize(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TxID returns the hex encoded hash of tx.
func TxID(tx *wire.MsgTx) string {
	return tx.TxHash().String()
}
