package domain

const (
	// BasisPoints is the sum every heir weight list must add up to.
	BasisPoints = 10000
	// DustThreshold is the minimum value in satoshis of a payout output.
	DustThreshold = 546
	// MinConfirmations of the utxos spent by an inheritance.
	MinConfirmations = 1
	// FallbackFeeMilliSatPerVByte is used when the network reports no fee
	// percentiles (15 sat/vB).
	FallbackFeeMilliSatPerVByte = 15000

	MinGuardians  = 3
	MaxGuardians  = 5
	MinThreshold  = 2
	MaxShareBytes = 4096

	// vbytes approximation for single-key segwit spends.
	txOverheadVBytes = 10
	txInputVBytes    = 68
	txOutputVBytes   = 31
)
