package invoice

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount bounds any single coerced quantity or price. Larger magnitudes,
// and values whose exponent falls outside ±maxScale, are treated like any
// other malformed input.
var MaxAmount = decimal.New(1, 12)

const maxScale = 12

// Coerce turns loosely typed numeric input into a decimal. Anything that is
// missing, does not parse as a finite number, or is out of range becomes zero.
func Coerce(v any) decimal.Decimal {
	d := coerce(v)
	if !InRange(d) {
		return decimal.Zero
	}
	return d
}

// InRange reports whether d is small enough to compute with. The exponent is
// checked first: comparing a value like 1e1000000000 would expand it.
func InRange(d decimal.Decimal) bool {
	if exp := d.Exponent(); exp > maxScale || exp < -maxScale {
		return false
	}
	return d.Abs().LessThanOrEqual(MaxAmount)
}

func coerce(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(x)
	case json.Number:
		return parse(string(x))
	case string:
		return parse(x)
	default:
		return decimal.Zero
	}
}

func parse(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
