// internal/uniswap/price.go
package uniswap

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// priceSigDigits is how many significant digits survive the one
// division-for-display step. Everything before it is exact integer math.
const priceSigDigits = 24

var twoPow192 = new(big.Int).Lsh(big.NewInt(1), 192)

// PriceFromSqrtX96 converts a pool's packed sqrt price into the
// token0-per-token1 exchange rate, adjusted for token decimals.
//
// The pool encodes sqrt(token1/token0) in Q64.96 fixed point, so
// token1-per-token0 = sqrtPriceX96² · 10^decimals0 / 2^192 / 10^decimals1.
// The squaring and decimal scaling stay in big.Int; only the final
// reciprocal division rounds, keeping priceSigDigits significant digits.
func PriceFromSqrtX96(sqrtPriceX96 *big.Int, decimals0, decimals1 int) decimal.Decimal {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return decimal.Zero
	}

	num := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	num.Mul(num, pow10(decimals0))
	den := new(big.Int).Mul(twoPow192, pow10(decimals1))

	// Reciprocal den/num, shifted so the quotient keeps its leading digits
	// even for prices far below 1.
	shift := priceSigDigits + len(num.String()) - len(den.String())
	if shift < 0 {
		shift = 0
	}
	q := new(big.Int).Mul(den, pow10(shift))
	q.Quo(q, num)

	return decimal.NewFromBigInt(q, -int32(shift))
}

// ScaleInteger converts a raw signed token delta into its human-scaled
// absolute quantity: |raw| / 10^decimals, with no floating rounding.
func ScaleInteger(raw *big.Int, decimals int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	abs := new(big.Int).Abs(raw)
	return decimal.NewFromBigInt(abs, -int32(decimals))
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
