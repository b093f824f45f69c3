package txcore

import (
	"math"
	"math/big"

	"github.com/heliotx/cardano-txcore/txerr"
)

// UnitInterval is a non-negative rational p/q, q > 0: the ledger's name
// for its canonical rational type, used both for genuine [0,1] ratios
// like pool margins and for protocol-parameter prices that exceed 1
// (e.g. the reference-script byte price, §4.6) (§3.1/§4.2).
type UnitInterval struct {
	Numerator   uint64
	Denominator uint64
}

// NewUnitInterval validates and constructs a p/q pair directly.
func NewUnitInterval(numerator, denominator uint64) (*UnitInterval, error) {
	if denominator == 0 {
		return nil, txerr.New(txerr.KindInvalidArgument, "unit interval denominator must be nonzero")
	}
	return &UnitInterval{Numerator: numerator, Denominator: denominator}, nil
}

// NewUnitIntervalFromFloat rationalizes a non-negative double into the
// canonical p/q form (§4.2): multiply by 10^k until the scaled value is
// an integer, then reduce by gcd. k is capped at 18 to avoid pathological
// blowup; the chosen k is the smallest that reproduces x to within 1e-15.
func NewUnitIntervalFromFloat(x float64) (*UnitInterval, error) {
	if x < 0 || math.IsNaN(x) {
		return nil, txerr.New(txerr.KindInvalidArgument, "unit interval float must be non-negative, got %v", x)
	}

	const maxK = 18
	scale := 1.0
	for k := 0; k <= maxK; k++ {
		scaled := x * scale
		rounded := math.Round(scaled)
		if math.Abs(scaled-rounded) < 1e-9 {
			num := uint64(rounded)
			den := uint64(scale)
			if den == 0 {
				den = 1
			}
			g := gcdUint64(num, den)
			if g > 1 {
				num /= g
				den /= g
			}
			if num == 0 {
				den = 1
			}
			if math.Abs(float64(num)/float64(den)-x) <= 1e-15*math.Max(1, x) {
				return &UnitInterval{Numerator: num, Denominator: den}, nil
			}
		}
		scale *= 10
	}
	return nil, txerr.New(txerr.KindInvalidArgument, "could not rationalize %v within k<=%d decimal digits", x, maxK)
}

func gcdUint64(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// Rat returns the value as a math/big.Rat for exact downstream arithmetic.
func (u *UnitInterval) Rat() *big.Rat {
	return new(big.Rat).SetFrac(new(big.Int).SetUint64(u.Numerator), new(big.Int).SetUint64(u.Denominator))
}

func (u *UnitInterval) Float64() float64 {
	f, _ := u.Rat().Float64()
	return f
}
