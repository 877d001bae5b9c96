package accumulator

import (
	"github.com/rudmsa/frameacc/internal/feature"
)

// frameAcc holds what every variant shares: the count and per-dimension sums.
type frameAcc struct {
	count    int
	dim      int
	fixedDim bool
	opts     options
	sum      sumVect
}

func newFrameAcc(dim int, opts []Option) frameAcc {
	a := frameAcc{}
	for _, opt := range opts {
		opt(&a.opts)
	}
	if dim > 0 {
		a.dim = dim
		a.fixedDim = true
		a.sum = newSumVect(dim, a.opts.compensated)
	}
	return a
}

func (a *frameAcc) Count() int {
	return a.count
}

func (a *frameAcc) Dimension() int {
	return a.dim
}

func (a *frameAcc) SumVect() feature.Vector {
	if a.dim == 0 {
		return nil
	}
	return a.sum.values()
}

func (a *frameAcc) MeanVect() (feature.Vector, error) {
	if a.count == 0 {
		return nil, newError(ErrEmptyAccumulator, "mean of 0 vectors")
	}
	n := float64(a.count)
	mean := make(feature.Vector, a.dim)
	for i := range mean {
		mean[i] = a.sum.at(i) / n
	}
	return mean, nil
}

func (a *frameAcc) checkVector(v feature.Vector) error {
	if len(v) == 0 {
		return newError(ErrDimensionMismatch, "empty feature vector")
	}
	if a.dim != 0 && len(v) != a.dim {
		return newError(ErrDimensionMismatch, "got %d values, want %d", len(v), a.dim)
	}
	return nil
}

func (a *frameAcc) checkRemove(v feature.Vector) error {
	if a.count == 0 {
		return newError(ErrCountUnderflow, "deaccumulate on empty accumulator")
	}
	return a.checkVector(v)
}

// checkMerge reports whether merging totals of dimension dim is allowed.
func (a *frameAcc) checkMerge(dim int) error {
	if dim == 0 || a.dim == 0 {
		return nil
	}
	if dim != a.dim {
		return newError(ErrDimensionMismatch, "merge of dimension %d into %d", dim, a.dim)
	}
	return nil
}

func (a *frameAcc) lockDim(dim int) bool {
	if a.dim != 0 || dim == 0 {
		return false
	}
	a.dim = dim
	a.sum = newSumVect(dim, a.opts.compensated)
	return true
}

func (a *frameAcc) add(v feature.Vector) {
	a.count++
	for i, x := range v {
		a.sum.add(i, x)
	}
}

func (a *frameAcc) remove(v feature.Vector) {
	a.count--
	if a.count == 0 {
		a.sum.zero()
		return
	}
	for i, x := range v {
		a.sum.add(i, -x)
	}
}

func (a *frameAcc) merge(o *frameAcc) {
	a.count += o.count
	if o.dim != 0 {
		a.sum.addVect(&o.sum)
	}
}

func (a *frameAcc) reset() {
	a.count = 0
	if !a.fixedDim {
		a.dim = 0
		a.sum = sumVect{}
		return
	}
	a.sum.zero()
}

func (a *frameAcc) clone() frameAcc {
	c := *a
	c.sum = a.sum.clone()
	return c
}
