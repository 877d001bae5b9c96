package feature

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Vector is one observation: a fixed-length sequence of feature values.
type Vector []float64

func (v Vector) Dim() int {
	return len(v)
}

func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Frame is a vector tagged with the stream it came from.
type Frame struct {
	Source string
	Seq    uint64
	Stamp  time.Time
	Vector Vector
}

// ParseVector decodes textual values. Example: []string{"1", "-2.5", "3.1e-2"}.
func ParseVector(values []string) (Vector, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no values")
	}
	vect := make(Vector, len(values))
	for i, s := range values {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("failed to convert value #%d [%s]: %w", i, s, err)
		}
		f, _ := d.Float64()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("value #%d [%s] is out of float64 range", i, s)
		}
		vect[i] = f
	}
	return vect, nil
}

// ParseLine decodes a whitespace separated line of values.
func ParseLine(line string) (Vector, error) {
	return ParseVector(strings.Fields(line))
}

// FormatVector renders values with a fixed number of decimals.
func FormatVector(v Vector, precision int32) []string {
	out := make([]string, len(v))
	for i, x := range v {
		out[i] = decimal.NewFromFloat(x).StringFixed(precision)
	}
	return out
}
