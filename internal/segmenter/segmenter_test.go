package segmenter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rudmsa/frameacc/internal/accumulator"
	"github.com/rudmsa/frameacc/internal/feature"
	"github.com/rudmsa/frameacc/internal/metrics"
	"github.com/rudmsa/frameacc/internal/xlist"
)

func frames(source string, vects ...feature.Vector) []feature.Frame {
	out := make([]feature.Frame, len(vects))
	for i, v := range vects {
		out[i] = feature.Frame{Source: source, Seq: uint64(i), Vector: v}
	}
	return out
}

func runSegmenter(t *testing.T, cfg Config, m *metrics.Pipeline, input ...feature.Frame) []Report {
	t.Helper()
	in := make(chan feature.Frame, len(input))
	for _, f := range input {
		in <- f
	}
	close(in)

	log, _ := test.NewNullLogger()
	seg, err := NewSegmenter(cfg, in, log, m)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- seg.Run(context.Background()) }()

	var reports []Report
	for r := range seg.GetReportOutput() {
		reports = append(reports, r)
	}
	require.NoError(t, <-errCh)
	return reports
}

func TestSegmenterSegmentsWindowsAndClusters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPipeline(reg)

	input := frames("mic", feature.Vector{1, 1}, feature.Vector{3, 3}, feature.Vector{5, 5}, feature.Vector{7, 7}, feature.Vector{9, 9})
	bad := feature.Frame{Source: "mic", Seq: 99, Vector: feature.Vector{1, 2, 3}}
	input = append(input[:3], append([]feature.Frame{bad}, input[3:]...)...)

	reports := runSegmenter(t, Config{
		Variant:       accumulator.VariantGaussianDiag,
		SegmentFrames: 2,
		WindowFrames:  3,
	}, m, input...)

	kinds := make([]Kind, len(reports))
	for i, r := range reports {
		kinds[i] = r.Kind
		assert.Equal(t, "mic", r.Source)
	}
	require.Equal(t, []Kind{KindSegment, KindWindow, KindSegment, KindWindow, KindSegment, KindCluster}, kinds)

	assert.InDeltaSlice(t, []float64{2, 2}, reports[0].Mean, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 1}, reports[0].Cov, 1e-12)
	assert.Equal(t, uint64(0), reports[0].Begin)
	assert.Equal(t, uint64(2), reports[0].End)

	assert.Equal(t, 3, reports[3].Count)
	assert.InDeltaSlice(t, []float64{5, 5}, reports[3].Mean, 1e-12)
	assert.Equal(t, uint64(1), reports[3].Begin)
	assert.Equal(t, uint64(4), reports[3].End)

	assert.Equal(t, 1, reports[4].Count)
	assert.InDeltaSlice(t, []float64{9, 9}, reports[4].Mean, 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0}, reports[4].Std, 1e-12)

	cluster := reports[5]
	assert.Equal(t, 5, cluster.Count)
	assert.InDeltaSlice(t, []float64{5, 5}, cluster.Mean, 1e-12)
	assert.InDeltaSlice(t, []float64{8, 8}, cluster.Cov, 1e-9)
	assert.Equal(t, uint64(0), cluster.Begin)
	assert.Equal(t, uint64(5), cluster.End)
	assert.Equal(t, 5, cluster.State.Count)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.FramesAccepted.WithLabelValues("mic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesRejected.WithLabelValues("mic", "dimension_mismatch")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SegmentsClosed.WithLabelValues("mic")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.WindowFrames.WithLabelValues("mic")))
}

func TestSegmenterKeepsSourcesApart(t *testing.T) {
	input := append(frames("b", feature.Vector{10}, feature.Vector{20}), frames("a", feature.Vector{1})...)
	reports := runSegmenter(t, Config{Variant: accumulator.VariantGaussianDiag, SegmentFrames: 10}, nil, input...)

	require.Len(t, reports, 4)
	assert.Equal(t, KindSegment, reports[0].Kind)
	assert.Equal(t, "a", reports[0].Source)
	assert.Equal(t, KindCluster, reports[1].Kind)
	assert.Equal(t, "a", reports[1].Source)
	assert.Equal(t, "b", reports[3].Source)
	assert.InDeltaSlice(t, []float64{15}, reports[3].Mean, 1e-12)
}

func TestSegmenterFixedDimension(t *testing.T) {
	input := frames("mic", feature.Vector{1}, feature.Vector{1, 2}, feature.Vector{3, 4})
	reports := runSegmenter(t, Config{Variant: accumulator.VariantGaussianDiag, Dimension: 2, SegmentFrames: 5}, nil, input...)

	require.Len(t, reports, 2)
	assert.Equal(t, 2, reports[1].Count)
}

func TestSegmenterNoFrames(t *testing.T) {
	reports := runSegmenter(t, Config{Variant: accumulator.VariantGaussianDiag, SegmentFrames: 5, WindowFrames: 2}, nil)
	assert.Empty(t, reports)
}

func TestSegmenterPeriodicWindowReports(t *testing.T) {
	in := make(chan feature.Frame)
	log, _ := test.NewNullLogger()
	seg, err := NewSegmenter(Config{
		Variant:        accumulator.VariantGaussianDiag,
		SegmentFrames:  100,
		WindowFrames:   10,
		ReportInterval: 20 * time.Millisecond,
	}, in, log, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go seg.Run(ctx)

	in <- feature.Frame{Source: "mic", Vector: feature.Vector{4}}

	select {
	case r := <-seg.GetReportOutput():
		assert.Equal(t, KindWindow, r.Kind)
		assert.Equal(t, 1, r.Count)
	case <-time.After(2 * time.Second):
		t.Fatal("no periodic report")
	}
	cancel()
	for range seg.GetReportOutput() {
	}
}

func TestNewSegmenterValidates(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := NewSegmenter(Config{Variant: accumulator.VariantGaussianDiag}, nil, log, nil)
	assert.Error(t, err)
	_, err = NewSegmenter(Config{Variant: accumulator.VariantGaussianDiag, SegmentFrames: 1, WindowFrames: -1}, nil, log, nil)
	assert.Error(t, err)
	_, err = NewSegmenter(Config{Variant: "full_cov", SegmentFrames: 1}, nil, log, nil)
	assert.ErrorIs(t, err, accumulator.ErrUnknownVariant)
}

func TestSinkWritesReportsAndStates(t *testing.T) {
	dir := t.TempDir()
	input := frames("mic", feature.Vector{2, 4}, feature.Vector{4, 8}, feature.Vector{6, 12})

	in := make(chan feature.Frame, len(input))
	for _, f := range input {
		in <- f
	}
	close(in)

	log, _ := test.NewNullLogger()
	seg, err := NewSegmenter(Config{Variant: accumulator.VariantGaussianDiag, SegmentFrames: 3}, in, log, nil)
	require.NoError(t, err)
	sink := NewSink(SinkConfig{
		Precision:  3,
		ReportPath: filepath.Join(dir, "reports.lst"),
		StatePath:  filepath.Join(dir, "states.msgpack"),
	}, seg.GetReportOutput(), log)

	var seen int
	sink.OnReport = func(Report) { seen++ }

	go seg.Run(context.Background())
	require.NoError(t, sink.Run(context.Background()))
	assert.Equal(t, 2, seen)

	list, err := xlist.LoadFile(filepath.Join(dir, "reports.lst"))
	require.NoError(t, err)
	assert.Equal(t, 8, list.LineCount())
	header := list.FindLine("cluster", 1)
	require.NotNil(t, header)
	count, err := header.Element(6)
	require.NoError(t, err)
	assert.Equal(t, "3", count)

	cov := list.FindLine("cov", 0)
	require.NotNil(t, cov)
	assert.Equal(t, "cov 2.667 10.667", cov.String())

	states, err := ReadStates(filepath.Join(dir, "states.msgpack"))
	require.NoError(t, err)
	require.Contains(t, states, "mic")
	acc, err := accumulator.FromState(states["mic"])
	require.NoError(t, err)
	mean, err := acc.MeanVect()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4, 8}, mean, 1e-12)
}

func TestWindowEviction(t *testing.T) {
	w := newWindow(2, accumulator.NewGaussianDiag(1))
	require.NoError(t, w.push(0, feature.Vector{1}))
	require.NoError(t, w.push(1, feature.Vector{2}))
	require.NoError(t, w.push(2, feature.Vector{6}))

	assert.Equal(t, 2, w.len())
	begin, end := w.bounds()
	assert.Equal(t, uint64(1), begin)
	assert.Equal(t, uint64(3), end)
	mean, err := w.acc.MeanVect()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4}, mean, 1e-12)

	assert.ErrorIs(t, w.push(3, feature.Vector{1, 2}), accumulator.ErrDimensionMismatch)
	assert.Equal(t, 2, w.len())

	disabled := newWindow(0, accumulator.NewGaussianDiag(1))
	require.NoError(t, disabled.push(0, feature.Vector{1}))
	assert.Equal(t, 0, disabled.len())
}
