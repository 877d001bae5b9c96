package accumulator

import (
	"github.com/rudmsa/frameacc/internal/feature"
)

type Variant string

const (
	VariantGaussianDiag Variant = "gaussian_diag"
)

// Accumulator keeps the sufficient statistics of a stream of feature vectors.
//
// Implementations are not safe for concurrent use. A failing call leaves the
// accumulator unchanged.
type Accumulator interface {
	Accumulate(feature.Vector) error
	// Deaccumulate removes a vector previously passed to Accumulate. Membership
	// is not verified.
	Deaccumulate(feature.Vector) error
	// Merge adds the totals of other, which must summarize a disjoint set of
	// observations. Double counted vectors are not detected.
	Merge(other Accumulator) error
	Count() int
	// Dimension is 0 until fixed by the constructor or the first vector.
	Dimension() int
	MeanVect() (feature.Vector, error)
	Variant() Variant
	Snapshot() State
	Clone() Accumulator
	Reset()
}

// Diagonal is an accumulator that also derives per-dimension spread.
type Diagonal interface {
	Accumulator
	CovVect() (feature.Vector, error)
	StdVect() (feature.Vector, error)
}

type Option func(*options)

type options struct {
	compensated bool
}

// WithCompensatedSum keeps the running sums with Neumaier compensation.
func WithCompensatedSum() Option {
	return func(o *options) {
		o.compensated = true
	}
}

func ParseVariant(name string) (Variant, error) {
	switch v := Variant(name); v {
	case VariantGaussianDiag:
		return v, nil
	}
	return "", newError(ErrUnknownVariant, "%q", name)
}

// New builds an accumulator of the given variant. A zero dim lets the first
// accumulated vector fix the dimension.
func New(variant Variant, dim int, opts ...Option) (Accumulator, error) {
	if dim < 0 {
		return nil, newError(ErrDimensionMismatch, "negative dimension %d", dim)
	}
	switch variant {
	case VariantGaussianDiag:
		return NewGaussianDiag(dim, opts...), nil
	}
	return nil, newError(ErrUnknownVariant, "%q", variant)
}

// FromState rebuilds an accumulator from a snapshot.
func FromState(st State, opts ...Option) (Accumulator, error) {
	acc, err := New(st.Variant, 0, opts...)
	if err != nil {
		return nil, err
	}
	if err := restore(acc, st); err != nil {
		return nil, err
	}
	return acc, nil
}
