package diff

import (
	"math/big"

	"deltagraph/value"
)

// decimalsEqual compares two Decimal values within eps, converting each
// to a big.Float at full precision rather than through float64 so that
// a decimal with a large 96-bit magnitude doesn't lose precision before
// the tolerance check.
func decimalsEqual(a, b value.Decimal, eps float64) bool {
	af := decimalToFloat(a)
	bf := decimalToFloat(b)
	diff := new(big.Float).Sub(af, bf)
	diff.Abs(diff)
	tolerance := big.NewFloat(eps)
	return diff.Cmp(tolerance) <= 0
}

func decimalToFloat(d value.Decimal) *big.Float {
	f := new(big.Float).SetInt(d.Magnitude)
	if d.Scale > 0 {
		divisor := new(big.Float).SetInt(pow10(d.Scale))
		f.Quo(f, divisor)
	}
	if d.Negative {
		f.Neg(f)
	}
	return f
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
