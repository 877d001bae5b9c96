package accumulator

import (
	"math"

	"github.com/rudmsa/frameacc/internal/feature"
)

type cacheState uint8

const (
	stale cacheState = iota
	fresh
)

// GaussianDiag accumulates count, sum and sum of squares per dimension and
// derives mean, diagonal covariance and standard deviation from them.
//
// The covariance uses the single pass formula sumSq/n - mean². It loses
// precision when the mean is large relative to the spread; WithCompensatedSum
// reduces the summation error but not the cancellation of the formula itself.
type GaussianDiag struct {
	frameAcc
	sumSq sumVect

	cov      feature.Vector
	std      feature.Vector
	covState cacheState
	stdState cacheState
}

// NewGaussianDiag returns an empty accumulator. A dim <= 0 lets the first
// accumulated vector fix the dimension.
func NewGaussianDiag(dim int, opts ...Option) *GaussianDiag {
	if dim < 0 {
		dim = 0
	}
	g := &GaussianDiag{frameAcc: newFrameAcc(dim, opts)}
	if dim > 0 {
		g.allocate(dim)
	}
	return g
}

func (g *GaussianDiag) allocate(dim int) {
	g.sumSq = newSumVect(dim, g.opts.compensated)
	g.cov = make(feature.Vector, dim)
	g.std = make(feature.Vector, dim)
}

func (g *GaussianDiag) Variant() Variant {
	return VariantGaussianDiag
}

func (g *GaussianDiag) Accumulate(v feature.Vector) error {
	if err := g.checkVector(v); err != nil {
		return err
	}
	if g.lockDim(len(v)) {
		g.allocate(len(v))
	}
	g.add(v)
	for i, x := range v {
		g.sumSq.add(i, x*x)
	}
	g.invalidate()
	return nil
}

func (g *GaussianDiag) Deaccumulate(v feature.Vector) error {
	if err := g.checkRemove(v); err != nil {
		return err
	}
	g.remove(v)
	if g.count == 0 {
		g.sumSq.zero()
	} else {
		for i, x := range v {
			g.sumSq.add(i, -x*x)
		}
	}
	g.invalidate()
	return nil
}

func (g *GaussianDiag) Merge(other Accumulator) error {
	if other == nil {
		return newError(ErrVariantMismatch, "nil accumulator")
	}
	o, ok := other.(*GaussianDiag)
	if ok && o == nil {
		return newError(ErrVariantMismatch, "nil accumulator")
	}
	if !ok {
		return newError(ErrVariantMismatch, "cannot merge %s into %s", other.Variant(), g.Variant())
	}
	if err := g.checkMerge(o.dim); err != nil {
		return err
	}
	if o.count == 0 {
		return nil
	}
	if g.lockDim(o.dim) {
		g.allocate(o.dim)
	}
	g.merge(&o.frameAcc)
	g.sumSq.addVect(&o.sumSq)
	g.invalidate()
	return nil
}

// SumSquareVect returns a copy of the per-dimension sums of squares.
func (g *GaussianDiag) SumSquareVect() feature.Vector {
	if g.dim == 0 {
		return nil
	}
	return g.sumSq.values()
}

// CovVect returns the population variance of each dimension. Values that
// come out slightly negative through cancellation are clamped to zero.
func (g *GaussianDiag) CovVect() (feature.Vector, error) {
	if g.count == 0 {
		return nil, newError(ErrEmptyAccumulator, "covariance of 0 vectors")
	}
	g.computeCov()
	return g.cov.Clone(), nil
}

// StdVect returns sqrt of CovVect.
func (g *GaussianDiag) StdVect() (feature.Vector, error) {
	if g.count == 0 {
		return nil, newError(ErrEmptyAccumulator, "standard deviation of 0 vectors")
	}
	g.computeStd()
	return g.std.Clone(), nil
}

func (g *GaussianDiag) computeCov() {
	if g.covState == fresh {
		return
	}
	n := float64(g.count)
	for i := range g.cov {
		mean := g.sum.at(i) / n
		c := g.sumSq.at(i)/n - mean*mean
		if c < 0 {
			c = 0
		}
		g.cov[i] = c
	}
	g.covState = fresh
}

func (g *GaussianDiag) computeStd() {
	if g.stdState == fresh {
		return
	}
	g.computeCov()
	for i, c := range g.cov {
		g.std[i] = math.Sqrt(c)
	}
	g.stdState = fresh
}

func (g *GaussianDiag) invalidate() {
	g.covState = stale
	g.stdState = stale
}

func (g *GaussianDiag) Reset() {
	g.reset()
	if g.dim == 0 {
		g.sumSq = sumVect{}
		g.cov = nil
		g.std = nil
	} else {
		g.sumSq.zero()
	}
	g.invalidate()
}

func (g *GaussianDiag) Clone() Accumulator {
	return &GaussianDiag{
		frameAcc: g.frameAcc.clone(),
		sumSq:    g.sumSq.clone(),
		cov:      g.cov.Clone(),
		std:      g.std.Clone(),
		covState: g.covState,
		stdState: g.stdState,
	}
}
