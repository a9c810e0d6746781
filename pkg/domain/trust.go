package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TrustValue is a bounded trust score carried as a fixed-point number with
// four fractional digits. Arithmetic stays in integer space so two
// independent builders serialize identical bytes; floating point never
// reaches the canonical encoding.
type TrustValue int64

// trustScale is the fixed-point denominator (1.0 == 10000 units).
const trustScale = 10000

// TrustFromFloat converts a float to the nearest fixed-point trust value.
// Used at the configuration boundary only.
func TrustFromFloat(f float64) TrustValue {
	if f >= 0 {
		return TrustValue(f*trustScale + 0.5)
	}
	return TrustValue(f*trustScale - 0.5)
}

// ParseTrustValue parses a fixed-point decimal string such as "0.1500" or
// "-0.0200". At most four fractional digits are accepted.
func ParseTrustValue(s string) (TrustValue, error) {
	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(s, "-")
	whole, frac, ok := strings.Cut(body, ".")
	if whole == "" {
		return 0, fmt.Errorf("invalid trust value %q", s)
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid trust value %q: %w", s, err)
	}
	v := w * trustScale
	if ok {
		if frac == "" || len(frac) > 4 {
			return 0, fmt.Errorf("invalid trust value %q: expected at most 4 fractional digits", s)
		}
		f, err := strconv.ParseInt(frac+strings.Repeat("0", 4-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid trust value %q: %w", s, err)
		}
		v += f
	}
	if neg {
		v = -v
	}
	return TrustValue(v), nil
}

// String renders the value as a decimal string with exactly four fractional
// digits. This is the canonical serialization used in Merkle leaves.
func (t TrustValue) String() string {
	v := int64(t)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%04d", sign, v/trustScale, v%trustScale)
}

// Float returns the approximate floating-point value, for statistics only.
func (t TrustValue) Float() float64 {
	return float64(t) / trustScale
}

// Abs returns the magnitude of the value.
func (t TrustValue) Abs() TrustValue {
	if t < 0 {
		return -t
	}
	return t
}

// Clamp bounds the value into [floor, cap].
func (t TrustValue) Clamp(floor, cap TrustValue) TrustValue {
	if t < floor {
		return floor
	}
	if t > cap {
		return cap
	}
	return t
}

// MarshalJSON encodes the trust value as its canonical decimal string,
// never as a JSON number.
func (t TrustValue) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

// UnmarshalJSON decodes the canonical decimal string form.
func (t *TrustValue) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("trust value must be a decimal string: %w", err)
	}
	v, err := ParseTrustValue(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
