package uniswap

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBig(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad big.Int literal %q", s)
	return v
}

func TestPriceFromSqrtX96_USDCWETHPool(t *testing.T) {
	// sqrt encoding of 3000 USDC (6 decimals) per WETH (18 decimals)
	sqrt := mustBig(t, "1446501726624926496477173928747177")

	price := PriceFromSqrtX96(sqrt, 6, 18)

	f, _ := price.Float64()
	assert.InEpsilon(t, 3000.0, f, 1e-9, "price mismatch for USDC/WETH pool")
}

func TestPriceFromSqrtX96_ExtremeSqrtKeepsPrecision(t *testing.T) {
	// Near the maximum representable sqrt price the reciprocal rate is
	// vanishingly small; the result must keep its leading digits rather
	// than collapse to zero.
	sqrt := mustBig(t, "1461446703485210103287273052203988822378723970342")

	price := PriceFromSqrtX96(sqrt, 6, 18)

	require.True(t, price.Sign() > 0, "extreme price collapsed to zero")
	f, _ := price.Float64()
	assert.InEpsilon(t, 2.9389568075855848e-27, f, 1e-9)
}

func TestPriceFromSqrtX96_ZeroAndNil(t *testing.T) {
	assert.True(t, PriceFromSqrtX96(big.NewInt(0), 6, 18).IsZero())
	assert.True(t, PriceFromSqrtX96(nil, 6, 18).IsZero())
}

func TestScaleInteger(t *testing.T) {
	tests := []struct {
		name     string
		raw      *big.Int
		decimals int
		want     string
	}{
		{"positive six decimals", big.NewInt(1234567), 6, "1.234567"},
		{"negative becomes absolute", big.NewInt(-500000), 6, "0.5"},
		{"zero", big.NewInt(0), 18, "0"},
		{"one wei", big.NewInt(1), 18, "0.000000000000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleInteger(tt.raw, tt.decimals)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestScaleInteger_Nil(t *testing.T) {
	assert.True(t, ScaleInteger(nil, 18).IsZero())
}
