package accumulator

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// State is the running totals of an accumulator, detached from it so it can
// be handed to another component and merged there.
type State struct {
	Variant   Variant   `msgpack:"variant"`
	Dimension int       `msgpack:"dim"`
	Count     int       `msgpack:"count"`
	Sum       []float64 `msgpack:"sum"`
	SumSquare []float64 `msgpack:"sum_sq,omitempty"`
}

func (st State) validate() error {
	if st.Count < 0 {
		return newError(ErrInvalidState, "negative count %d", st.Count)
	}
	if st.Dimension < 0 {
		return newError(ErrInvalidState, "negative dimension %d", st.Dimension)
	}
	if st.Dimension == 0 {
		if st.Count != 0 {
			return newError(ErrInvalidState, "%d vectors without dimension", st.Count)
		}
		return nil
	}
	if len(st.Sum) != st.Dimension {
		return newError(ErrInvalidState, "sum has %d values, want %d", len(st.Sum), st.Dimension)
	}
	return nil
}

func (g *GaussianDiag) Snapshot() State {
	return State{
		Variant:   VariantGaussianDiag,
		Dimension: g.dim,
		Count:     g.count,
		Sum:       g.SumVect(),
		SumSquare: g.SumSquareVect(),
	}
}

func (g *GaussianDiag) restore(st State) error {
	if err := st.validate(); err != nil {
		return err
	}
	if st.Variant != VariantGaussianDiag {
		return newError(ErrVariantMismatch, "cannot restore %s into %s", st.Variant, g.Variant())
	}
	if st.Dimension != 0 && len(st.SumSquare) != st.Dimension {
		return newError(ErrInvalidState, "sum of squares has %d values, want %d", len(st.SumSquare), st.Dimension)
	}
	if g.fixedDim && st.Dimension != 0 && st.Dimension != g.dim {
		return newError(ErrDimensionMismatch, "state of dimension %d into %d", st.Dimension, g.dim)
	}

	g.Reset()
	if st.Dimension == 0 {
		return nil
	}
	if g.lockDim(st.Dimension) {
		g.allocate(st.Dimension)
	}
	g.count = st.Count
	g.sum.set(st.Sum)
	g.sumSq.set(st.SumSquare)
	return nil
}

// MergeState merges a snapshot taken from another accumulator.
func (g *GaussianDiag) MergeState(st State) error {
	other := NewGaussianDiag(0)
	if err := other.restore(st); err != nil {
		return err
	}
	return g.Merge(other)
}

func restore(acc Accumulator, st State) error {
	if acc == nil {
		return newError(ErrUnknownVariant, "nil accumulator")
	}
	switch a := acc.(type) {
	case *GaussianDiag:
		return a.restore(st)
	}
	return newError(ErrUnknownVariant, "%q", acc.Variant())
}

// MarshalState encodes the totals of acc with msgpack.
func MarshalState(acc Accumulator) ([]byte, error) {
	data, err := msgpack.Marshal(acc.Snapshot())
	if err != nil {
		return nil, errors.Wrap(err, "encode accumulator state")
	}
	return data, nil
}

func UnmarshalState(data []byte) (State, error) {
	var st State
	if err := msgpack.Unmarshal(data, &st); err != nil {
		return State{}, errors.Wrap(err, "decode accumulator state")
	}
	if err := st.validate(); err != nil {
		return State{}, err
	}
	return st, nil
}

// Restore replaces the totals of acc with st.
func Restore(acc Accumulator, st State) error {
	return restore(acc, st)
}
