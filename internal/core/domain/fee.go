package domain

import "math/bits"

// FeeRateFromPercentiles turns the fee percentiles reported by the network,
// in millisatoshi per vbyte, into a whole sat/vB rate: the median percentile
// rounded up and floored at 1. An empty list yields the fallback rate.
func FeeRateFromPercentiles(percentiles []uint64) uint64 {
	if len(percentiles) == 0 {
		return FallbackFeeMilliSatPerVByte / 1000
	}
	msat := percentiles[len(percentiles)/2]
	rate := msat / 1000
	if msat%1000 != 0 {
		rate++
	}
	if rate < 1 {
		rate = 1
	}
	return rate
}

// EstimateTxVBytes approximates the virtual size of a transaction spending
// numIns single-key segwit inputs to numOuts outputs.
func EstimateTxVBytes(numIns, numOuts int) uint64 {
	return txOverheadVBytes +
		uint64(numIns)*txInputVBytes +
		uint64(numOuts)*txOutputVBytes
}

// EstimateFee returns rate * vbytes in satoshis, or
// ErrFeeEstimationUnavailable if the product overflows.
func EstimateFee(rate uint64, numIns, numOuts int) (uint64, error) {
	hi, fee := bits.Mul64(rate, EstimateTxVBytes(numIns, numOuts))
	if hi != 0 {
		return 0, ErrFeeEstimationUnavailable
	}
	return fee, nil
}
