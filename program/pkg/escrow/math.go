package escrow

import (
	"fmt"
	"math/big"
	"math/bits"
)

// BpsDenominator is 100% expressed in basis points.
const BpsDenominator = 10_000

func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrMathOverflow, a, b)
	}
	return sum, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: %d - %d", ErrMathOverflow, a, b)
	}
	return diff, nil
}

// mulDiv returns floor(a*b/d) with a 128-bit intermediate product.
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, fmt.Errorf("%w: division by zero", ErrMathOverflow)
	}
	hi, lo := bits.Mul64(a, b)
	// bits.Div64 panics when the quotient does not fit in 64 bits.
	if hi >= d {
		return 0, fmt.Errorf("%w: %d * %d / %d", ErrMathOverflow, a, b, d)
	}
	quo, _ := bits.Div64(hi, lo, d)
	return quo, nil
}

// uint128 accumulates a sum of uint64 values without overflowing.
type uint128 struct {
	hi, lo uint64
}

func (u uint128) add64(v uint64) (uint128, error) {
	lo, carry := bits.Add64(u.lo, v, 0)
	hi, carry := bits.Add64(u.hi, 0, carry)
	if carry != 0 {
		return u, fmt.Errorf("%w: 128-bit sum", ErrMathOverflow)
	}
	return uint128{hi: hi, lo: lo}, nil
}

func (u uint128) isZero() bool {
	return u.hi == 0 && u.lo == 0
}

func (u uint128) bigInt() *big.Int {
	n := new(big.Int).SetUint64(u.hi)
	n.Lsh(n, 64)
	return n.Or(n, new(big.Int).SetUint64(u.lo))
}

// mulDivWide returns floor(a*b/d) for a 128-bit divisor.
func mulDivWide(a, b uint64, d uint128) (uint64, error) {
	if d.hi == 0 {
		return mulDiv(a, b, d.lo)
	}
	q := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	q.Quo(q, d.bigInt())
	if !q.IsUint64() {
		return 0, fmt.Errorf("%w: %d * %d / 128-bit divisor", ErrMathOverflow, a, b)
	}
	return q.Uint64(), nil
}

// bpsOf returns floor(amount * bps / 10000).
func bpsOf(amount uint64, bps uint16) (uint64, error) {
	return mulDiv(amount, uint64(bps), BpsDenominator)
}
