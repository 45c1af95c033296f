package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AmountScale is the number of Amount units in one whole unit.
const AmountScale = 100_000_000

const amountDecimals = 8

// ErrInvalidAmount is returned when a decimal string cannot be parsed.
var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a fixed-point decimal with 8 fractional digits.
// Exchange prices arrive as decimal strings; keeping them as integers makes
// them exact map keys and avoids float rounding when comparing levels.
type Amount int64

// ParseAmount converts a decimal string (e.g., "0.00250000", "42", "-1.5")
// to an Amount. Digits beyond the eighth decimal place are rejected.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	frac = strings.TrimRight(frac, "0")
	if len(frac) > amountDecimals {
		return 0, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, amountDecimals)
	}

	var f int64
	if frac != "" {
		v, err := strconv.ParseUint(frac+strings.Repeat("0", amountDecimals-len(frac)), 10, 63)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		f = int64(v)
	}

	var w int64
	if whole != "" {
		v, err := strconv.ParseUint(whole, 10, 63)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		// w*AmountScale + f must fit in an int64.
		if v > uint64((math.MaxInt64-f)/AmountScale) {
			return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
		}
		w = int64(v)
	}

	a := Amount(w*AmountScale + f)
	if neg {
		a = -a
	}
	return a, nil
}

// MustParseAmount is ParseAmount for constants in tests and tables.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a == 0 }

// Float64 returns the amount as a float, for display only.
func (a Amount) Float64() float64 {
	return float64(a) / AmountScale
}

// String formats the amount with trailing zeros trimmed ("0.0025", "42").
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / AmountScale
	frac := v % AmountScale
	if frac == 0 {
		return sign + strconv.FormatInt(whole, 10)
	}
	fs := fmt.Sprintf("%08d", frac)
	return sign + strconv.FormatInt(whole, 10) + "." + strings.TrimRight(fs, "0")
}

// MarshalText implements encoding.TextMarshaler so amounts render as strings in JSON.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(b []byte) error {
	v, err := ParseAmount(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
