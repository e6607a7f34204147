package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

var (
	// ErrNullNetwork ...
	ErrNullNetwork = errors.New("network params are null")
	// ErrNullInputs ...
	ErrNullInputs = errors.New("transaction must have at least one input")
	// ErrNullOutputs ...
	ErrNullOutputs = errors.New("transaction must have at least one output")
	// ErrNullSigner ...
	ErrNullSigner = errors.New("signer must not be null")

	// ErrInvalidPublicKey ...
	ErrInvalidPublicKey = errors.New("invalid public key")
	// ErrInvalidAddress ...
	ErrInvalidAddress = errors.New("invalid address")
	// ErrAddressNetworkMismatch ...
	ErrAddressNetworkMismatch = errors.New("address does not belong to network")
	// ErrInvalidOutpoint ...
	ErrInvalidOutpoint = errors.New("invalid outpoint")
	// ErrInvalidAmount ...
	ErrInvalidAmount = errors.New("amount exceeds max allowed value")
	// ErrInvalidSignature ...
	ErrInvalidSignature = errors.New("invalid compact signature")
	// ErrPrevValuesLengthMismatch ...
	ErrPrevValuesLengthMismatch = errors.New(
		"length of tx inputs and previous output values must match",
	)
	// ErrUnknownNetwork ...
	ErrUnknownNetwork = errors.New("unknown network")
)

// Network names accepted by NetworkFromString.
const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
	NetworkRegtest = "regtest"
	NetworkSignet  = "signet"
)

// NetworkFromString returns the chain params for the given network name.
func NetworkFromString(name string) (*chaincfg.Params, error) {
	switch name {
	case NetworkMainnet:
		return &chaincfg.MainNetParams, nil
	case NetworkTestnet:
		return &chaincfg.TestNet3Params, nil
	case NetworkRegtest:
		return &chaincfg.RegressionNetParams, nil
	case NetworkSignet:
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, name)
	}
}
