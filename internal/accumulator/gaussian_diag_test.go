package accumulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudmsa/frameacc/internal/feature"
)

const tolerance = 1e-9

func accumulateAll(t *testing.T, acc Accumulator, vects ...feature.Vector) {
	t.Helper()
	for _, v := range vects {
		require.NoError(t, acc.Accumulate(v))
	}
}

func randomStream(rng *rand.Rand, n, dim int) []feature.Vector {
	out := make([]feature.Vector, n)
	for i := range out {
		v := make(feature.Vector, dim)
		for d := range v {
			v[d] = rng.NormFloat64()*float64(d+1) + float64(10*d)
		}
		out[i] = v
	}
	return out
}

func column(vects []feature.Vector, d int) stats.Float64Data {
	col := make(stats.Float64Data, len(vects))
	for i, v := range vects {
		col[i] = v[d]
	}
	return col
}

func TestGaussianDiagScenario(t *testing.T) {
	acc := NewGaussianDiag(2)
	accumulateAll(t, acc, feature.Vector{2, 4}, feature.Vector{4, 8}, feature.Vector{6, 12})

	assert.Equal(t, 3, acc.Count())
	assert.Equal(t, 2, acc.Dimension())

	mean, err := acc.MeanVect()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4, 8}, mean, tolerance)

	cov, err := acc.CovVect()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{8.0 / 3, 32.0 / 3}, cov, tolerance)

	std, err := acc.StdVect()
	require.NoError(t, err)
	assert.InDelta(t, 1.633, std[0], 1e-3)
	assert.InDelta(t, 3.266, std[1], 1e-3)
}

func TestGaussianDiagMergeScenario(t *testing.T) {
	a := NewGaussianDiag(2)
	accumulateAll(t, a, feature.Vector{1, 1}, feature.Vector{3, 3})
	b := NewGaussianDiag(2)
	accumulateAll(t, b, feature.Vector{5, 5})

	require.NoError(t, a.Merge(b))
	assert.Equal(t, 3, a.Count())

	direct := NewGaussianDiag(2)
	accumulateAll(t, direct, feature.Vector{1, 1}, feature.Vector{3, 3}, feature.Vector{5, 5})

	mean, err := a.MeanVect()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, 3}, mean, tolerance)

	wantCov, _ := direct.CovVect()
	cov, err := a.CovVect()
	require.NoError(t, err)
	assert.InDeltaSlice(t, wantCov, cov, tolerance)

	// b is untouched
	assert.Equal(t, 1, b.Count())
}

func TestGaussianDiagMatchesTwoPass(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vects := randomStream(rng, 500, 4)

	acc := NewGaussianDiag(0)
	accumulateAll(t, acc, vects...)

	mean, err := acc.MeanVect()
	require.NoError(t, err)
	cov, err := acc.CovVect()
	require.NoError(t, err)
	std, err := acc.StdVect()
	require.NoError(t, err)

	for d := 0; d < 4; d++ {
		col := column(vects, d)
		wantMean, err := stats.Mean(col)
		require.NoError(t, err)
		wantVar, err := stats.PopulationVariance(col)
		require.NoError(t, err)

		assert.InDelta(t, wantMean, mean[d], 1e-9, "mean[%d]", d)
		assert.InDelta(t, wantVar, cov[d], 1e-6, "cov[%d]", d)
		assert.GreaterOrEqual(t, cov[d], 0.0)
		assert.Equal(t, math.Sqrt(cov[d]), std[d])
	}
}

func TestAccumulateThenDeaccumulateAllInAnyOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	vects := randomStream(rng, 200, 3)

	acc := NewGaussianDiag(3)
	accumulateAll(t, acc, vects...)

	for _, i := range rng.Perm(len(vects)) {
		require.NoError(t, acc.Deaccumulate(vects[i]))
	}
	assert.Equal(t, 0, acc.Count())
	assert.Equal(t, feature.Vector{0, 0, 0}, acc.SumVect())
	assert.Equal(t, feature.Vector{0, 0, 0}, acc.SumSquareVect())

	_, err := acc.MeanVect()
	assert.ErrorIs(t, err, ErrEmptyAccumulator)
}

func TestDeaccumulateInvertsAccumulate(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	vects := randomStream(rng, 50, 2)

	acc := NewGaussianDiag(2)
	accumulateAll(t, acc, vects...)
	before := acc.Snapshot()

	extra := feature.Vector{123.5, -7.25}
	require.NoError(t, acc.Accumulate(extra))
	require.NoError(t, acc.Deaccumulate(extra))

	after := acc.Snapshot()
	assert.Equal(t, before.Count, after.Count)
	assert.InDeltaSlice(t, before.Sum, after.Sum, 1e-9)
	assert.InDeltaSlice(t, before.SumSquare, after.SumSquare, 1e-7)
}

func TestSlidingWindowMean(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	vects := randomStream(rng, 100, 2)

	acc := NewGaussianDiag(2)
	accumulateAll(t, acc, vects...)
	for _, v := range vects[:60] {
		require.NoError(t, acc.Deaccumulate(v))
	}

	mean, err := acc.MeanVect()
	require.NoError(t, err)
	cov, err := acc.CovVect()
	require.NoError(t, err)
	for d := 0; d < 2; d++ {
		wantMean, _ := stats.Mean(column(vects[60:], d))
		wantVar, _ := stats.PopulationVariance(column(vects[60:], d))
		assert.InDelta(t, wantMean, mean[d], 1e-9)
		assert.InDelta(t, wantVar, cov[d], 1e-6)
	}
}

func TestMergeOfHalvesEqualsWhole(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	vects := randomStream(rng, 301, 5)

	whole := NewGaussianDiag(5)
	accumulateAll(t, whole, vects...)

	left, right := NewGaussianDiag(5), NewGaussianDiag(0)
	accumulateAll(t, left, vects[:120]...)
	accumulateAll(t, right, vects[120:]...)
	require.NoError(t, left.Merge(right))

	assert.Equal(t, whole.Count(), left.Count())
	wantMean, _ := whole.MeanVect()
	gotMean, _ := left.MeanVect()
	assert.InDeltaSlice(t, wantMean, gotMean, 1e-9)
	wantCov, _ := whole.CovVect()
	gotCov, _ := left.CovVect()
	assert.InDeltaSlice(t, wantCov, gotCov, 1e-6)
}

func TestMergeNilAccumulator(t *testing.T) {
	g := NewGaussianDiag(2)
	accumulateAll(t, g, feature.Vector{1, 2})

	var typedNil *GaussianDiag
	for _, other := range []Accumulator{nil, typedNil} {
		assert.NotPanics(t, func() {
			assert.ErrorIs(t, g.Merge(other), ErrVariantMismatch)
		})
	}
	assert.Equal(t, 1, g.Count())
	assert.Equal(t, feature.Vector{1, 2}, g.SumVect())
}

func TestMergeIntoUnsizedAdoptsDimension(t *testing.T) {
	src := NewGaussianDiag(3)
	accumulateAll(t, src, feature.Vector{1, 2, 3})

	dst := NewGaussianDiag(0)
	require.NoError(t, dst.Merge(NewGaussianDiag(0)))
	assert.Equal(t, 0, dst.Dimension())

	require.NoError(t, dst.Merge(src))
	assert.Equal(t, 3, dst.Dimension())
	assert.Equal(t, 1, dst.Count())

	assert.ErrorIs(t, dst.Accumulate(feature.Vector{1, 2}), ErrDimensionMismatch)
}

func TestEmptyReadsFail(t *testing.T) {
	acc := NewGaussianDiag(2)

	_, err := acc.MeanVect()
	assert.ErrorIs(t, err, ErrEmptyAccumulator)
	_, err = acc.CovVect()
	assert.ErrorIs(t, err, ErrEmptyAccumulator)
	_, err = acc.StdVect()
	assert.ErrorIs(t, err, ErrEmptyAccumulator)
}

func TestDeaccumulateEmptyUnderflows(t *testing.T) {
	acc := NewGaussianDiag(2)
	before := acc.Snapshot()

	err := acc.Deaccumulate(feature.Vector{1, 2})
	assert.ErrorIs(t, err, ErrCountUnderflow)
	assert.Equal(t, before, acc.Snapshot())
}

func TestDimensionMismatchLeavesStateUnchanged(t *testing.T) {
	acc := NewGaussianDiag(0)
	accumulateAll(t, acc, feature.Vector{1, 2})
	before := acc.Snapshot()

	assert.ErrorIs(t, acc.Accumulate(feature.Vector{1, 2, 3}), ErrDimensionMismatch)
	assert.ErrorIs(t, acc.Accumulate(nil), ErrDimensionMismatch)
	assert.ErrorIs(t, acc.Deaccumulate(feature.Vector{1}), ErrDimensionMismatch)

	other := NewGaussianDiag(3)
	accumulateAll(t, other, feature.Vector{1, 1, 1})
	assert.ErrorIs(t, acc.Merge(other), ErrDimensionMismatch)

	assert.Equal(t, before, acc.Snapshot())
}

func TestErrorCarriesKindAndStack(t *testing.T) {
	acc := NewGaussianDiag(2)
	err := acc.Accumulate(feature.Vector{1})
	require.Error(t, err)

	var accErr *Error
	require.True(t, errors.As(err, &accErr))
	assert.Equal(t, ErrDimensionMismatch, accErr.Kind)
	assert.Equal(t, "dimension mismatch: got 1 values, want 2", err.Error())
	assert.Contains(t, fmt.Sprintf("%+v", err), "TestErrorCarriesKindAndStack")
}

func TestCovarianceCacheInvalidation(t *testing.T) {
	acc := NewGaussianDiag(1)
	accumulateAll(t, acc, feature.Vector{1}, feature.Vector{3})

	cov, err := acc.CovVect()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cov[0], tolerance)

	// returned slices are copies
	cov[0] = 99
	again, _ := acc.CovVect()
	assert.InDelta(t, 1.0, again[0], tolerance)

	accumulateAll(t, acc, feature.Vector{5})
	cov, _ = acc.CovVect()
	assert.InDelta(t, 8.0/3, cov[0], tolerance)
	std, _ := acc.StdVect()
	assert.Equal(t, math.Sqrt(cov[0]), std[0])

	require.NoError(t, acc.Deaccumulate(feature.Vector{5}))
	std, _ = acc.StdVect()
	assert.InDelta(t, 1.0, std[0], tolerance)
}

func TestConstantStreamClampsToZero(t *testing.T) {
	acc := NewGaussianDiag(1)
	for i := 0; i < 1000; i++ {
		require.NoError(t, acc.Accumulate(feature.Vector{0.1}))
	}
	cov, err := acc.CovVect()
	require.NoError(t, err)
	std, err := acc.StdVect()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, cov[0], 0.0)
	assert.False(t, math.IsNaN(std[0]))
	assert.InDelta(t, 0.0, std[0], 1e-6)
}

func TestCompensatedSum(t *testing.T) {
	plain := NewGaussianDiag(1)
	compensated := NewGaussianDiag(1, WithCompensatedSum())
	for _, x := range []float64{1e16, 1, -1e16} {
		require.NoError(t, plain.Accumulate(feature.Vector{x}))
		require.NoError(t, compensated.Accumulate(feature.Vector{x}))
	}
	assert.Equal(t, 0.0, plain.SumVect()[0])
	assert.Equal(t, 1.0, compensated.SumVect()[0])
}

func TestCompensatedAgreesOnBenignStream(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	vects := randomStream(rng, 100, 3)

	plain := NewGaussianDiag(3)
	compensated := NewGaussianDiag(3, WithCompensatedSum())
	accumulateAll(t, plain, vects...)
	accumulateAll(t, compensated, vects...)

	want, _ := plain.CovVect()
	got, _ := compensated.CovVect()
	assert.InDeltaSlice(t, want, got, 1e-6)
}

func TestResetAndClone(t *testing.T) {
	fixed := NewGaussianDiag(2)
	accumulateAll(t, fixed, feature.Vector{1, 2}, feature.Vector{3, 4})

	clone := fixed.Clone()
	fixed.Reset()
	assert.Equal(t, 0, fixed.Count())
	assert.Equal(t, 2, fixed.Dimension())
	assert.Equal(t, 2, clone.Count())

	mean, err := clone.MeanVect()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 3}, mean, tolerance)

	lazy := NewGaussianDiag(0)
	accumulateAll(t, lazy, feature.Vector{1, 2, 3})
	lazy.Reset()
	assert.Equal(t, 0, lazy.Dimension())
	accumulateAll(t, lazy, feature.Vector{1})
	assert.Equal(t, 1, lazy.Dimension())
}
