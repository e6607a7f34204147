package domain

import "math/bits"

// HeirRecord is a beneficiary of an inheritance and its share expressed in
// basis points.
type HeirRecord struct {
	Address   string `json:"address"`
	WeightBps uint64 `json:"weightBps"`
}

// ValidateHeirs makes sure the list is not empty and that weights add up to
// exactly BasisPoints.
func ValidateHeirs(heirs []HeirRecord) error {
	if len(heirs) == 0 {
		return ErrInvalidHeirs
	}
	var total uint64
	for _, h := range heirs {
		sum, carry := bits.Add64(total, h.WeightBps, 0)
		if carry != 0 {
			return ErrInvalidHeirs
		}
		total = sum
	}
	if total != BasisPoints {
		return ErrInvalidHeirs
	}
	return nil
}

// AllocatePayouts splits total among heirs proportionally to their weights.
// Every heir but the last gets floor(total*weight/10000), the last one gets
// the remainder so that amounts always add up to total. If any amount falls
// below DustThreshold the whole allocation is rejected.
func AllocatePayouts(total uint64, heirs []HeirRecord) ([]uint64, error) {
	if err := ValidateHeirs(heirs); err != nil {
		return nil, err
	}

	amounts := make([]uint64, 0, len(heirs))
	var assigned uint64
	for i, heir := range heirs {
		var amount uint64
		if i == len(heirs)-1 {
			if assigned > total {
				return nil, ErrPayoutOverflow
			}
			amount = total - assigned
		} else {
			hi, lo := bits.Mul64(total, heir.WeightBps)
			// hi < BasisPoints holds since weight <= BasisPoints.
			amount, _ = bits.Div64(hi, lo, BasisPoints)
		}
		if amount < DustThreshold {
			return nil, ErrInvalidHeirs
		}

		sum, carry := bits.Add64(assigned, amount, 0)
		if carry != 0 {
			return nil, ErrPayoutOverflow
		}
		assigned = sum
		amounts = append(amounts, amount)
	}
	return amounts, nil
}
