package classify

import (
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
)

const displayDecimals = 2

// toRat scales a raw token amount down by decimals.
func toRat(value *big.Int, decimals uint8) *big.Rat {
	if value == nil {
		return new(big.Rat)
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(value, denom)
}

// FormatAmount renders a raw token amount with two decimals, trailing zeros
// trimmed and thousands separators, e.g. 1,234.5 or 150.
func FormatAmount(value *big.Int, decimals uint8) string {
	rat := toRat(value, decimals)
	text := rat.FloatString(displayDecimals)

	sign := ""
	if strings.HasPrefix(text, "-") {
		sign = "-"
		text = text[1:]
	}
	whole, frac, _ := strings.Cut(text, ".")
	wholeInt, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return sign + text
	}
	whole = humanize.BigComma(wholeInt)
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		if whole == "0" {
			sign = ""
		}
		return sign + whole
	}
	return sign + whole + "." + frac
}

// DisplayValue returns the amount in whole token units as a float.
func DisplayValue(value *big.Int, decimals uint8) float64 {
	f, _ := toRat(value, decimals).Float64()
	return f
}

// ShortAddress abbreviates an address as 0x1234...abcd.
func ShortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
