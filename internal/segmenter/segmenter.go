package segmenter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rudmsa/frameacc/internal/accumulator"
	"github.com/rudmsa/frameacc/internal/feature"
	"github.com/rudmsa/frameacc/internal/metrics"
	"github.com/rudmsa/frameacc/internal/segment"
)

const (
	OutputDefaultBuffer = 100
)

type Config struct {
	Variant   accumulator.Variant
	Dimension int
	Options   []accumulator.Option
	// SegmentFrames is the number of frames after which a segment is closed.
	SegmentFrames int
	// WindowFrames is the sliding window length; 0 disables the window.
	WindowFrames int
	// ReportInterval, when positive, emits window reports periodically.
	ReportInterval time.Duration
}

// Segmenter cuts each source's frames into fixed-length segments and keeps a
// sliding window over its most recent frames. Every accumulator it owns is
// touched only from Run.
type Segmenter struct {
	cfg      Config
	input    <-chan feature.Frame
	out      chan Report
	log      logrus.FieldLogger
	metrics  *metrics.Pipeline
	registry *segment.Registry
	sources  map[string]*sourceState
}

type sourceState struct {
	name    string
	dim     int
	cluster *segment.Cluster
	current *segment.Segment
	window  *window
}

func NewSegmenter(cfg Config, input <-chan feature.Frame, log logrus.FieldLogger, m *metrics.Pipeline) (*Segmenter, error) {
	if cfg.SegmentFrames <= 0 {
		return nil, fmt.Errorf("segment length must be positive, got %d", cfg.SegmentFrames)
	}
	if cfg.WindowFrames < 0 {
		return nil, fmt.Errorf("window length must not be negative, got %d", cfg.WindowFrames)
	}
	if _, err := accumulator.New(cfg.Variant, cfg.Dimension, cfg.Options...); err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.NewPipeline(nil)
	}
	return &Segmenter{
		cfg:      cfg,
		input:    input,
		out:      make(chan Report, OutputDefaultBuffer),
		log:      log.WithField("component", "segmenter"),
		metrics:  m,
		registry: segment.NewRegistry(),
		sources:  make(map[string]*sourceState),
	}, nil
}

// GetReportOutput must be drained until it is closed.
func (seg *Segmenter) GetReportOutput() <-chan Report {
	return seg.out
}

func (seg *Segmenter) Run(ctx context.Context) error {
	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	seg.mainLoop(ctx)
	seg.flush()
	close(seg.out)

	return nil
}

func (seg *Segmenter) mainLoop(ctx context.Context) {
	var ticker *time.Ticker
	var tick <-chan time.Time
	if seg.cfg.ReportInterval > 0 {
		ticker = time.NewTicker(nextTick(seg.cfg.ReportInterval))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-tick:
			ticker.Reset(nextTick(seg.cfg.ReportInterval))
			for _, st := range seg.sortedSources() {
				seg.reportWindow(st)
			}

		case frame, ok := <-seg.input:
			if !ok {
				seg.log.Debug("input closed")
				return
			}
			seg.handleFrame(frame)
		}
	}
}

func (seg *Segmenter) handleFrame(frame feature.Frame) {
	st := seg.source(frame.Source)
	log := seg.log.WithField("source", frame.Source)

	if err := st.current.Add(frame.Seq, frame.Vector); err != nil {
		seg.metrics.FramesRejected.WithLabelValues(frame.Source, rejectReason(err)).Inc()
		log.WithError(err).WithField("seq", frame.Seq).Warn("rejecting frame")
		return
	}
	if st.dim == 0 {
		st.dim = len(frame.Vector)
	}
	seg.metrics.FramesAccepted.WithLabelValues(frame.Source).Inc()

	if st.window == nil && seg.cfg.WindowFrames > 0 {
		st.window = newWindow(seg.cfg.WindowFrames, seg.newAcc(st.dim))
	}
	if st.window != nil {
		if err := st.window.push(frame.Seq, frame.Vector); err != nil {
			log.WithError(err).Error("sliding window out of step with segment")
		}
		seg.metrics.WindowFrames.WithLabelValues(frame.Source).Set(float64(st.window.len()))
	}

	if st.current.Accumulator().Count() >= seg.cfg.SegmentFrames {
		seg.closeSegment(st)
		seg.reportWindow(st)
		st.current = segment.NewSegment(st.name, frame.Seq+1, seg.newAcc(st.dim))
	}
}

func (seg *Segmenter) closeSegment(st *sourceState) {
	cur := st.current
	report, err := BuildReport(KindSegment, st.name, cur.ID(), cur.Begin(), cur.End(), cur.Accumulator())
	if err != nil {
		if !isEmpty(err) {
			seg.log.WithError(err).WithField("source", st.name).Error("failed to build segment report")
		}
		return
	}
	if err := st.cluster.Add(cur); err != nil {
		seg.log.WithError(err).WithField("source", st.name).Error("failed to attach segment")
	}
	seg.metrics.SegmentsClosed.WithLabelValues(st.name).Inc()
	seg.out <- report
}

func (seg *Segmenter) reportWindow(st *sourceState) {
	if st.window == nil {
		return
	}
	begin, end := st.window.bounds()
	report, err := BuildReport(KindWindow, st.name, st.cluster.ID(), begin, end, st.window.acc)
	if err != nil {
		if !isEmpty(err) {
			seg.log.WithError(err).WithField("source", st.name).Error("failed to build window report")
		}
		return
	}
	seg.out <- report
}

// flush closes partial segments and reports every source cluster.
func (seg *Segmenter) flush() {
	for _, st := range seg.sortedSources() {
		seg.closeSegment(st)

		stats, err := st.cluster.Stats()
		if err != nil {
			seg.log.WithError(err).WithField("source", st.name).Error("failed to merge cluster")
			continue
		}
		segs := st.cluster.Segments()
		var begin, end uint64
		if len(segs) > 0 {
			begin, end = segs[0].Begin(), segs[len(segs)-1].End()
		}
		report, err := BuildReport(KindCluster, st.name, st.cluster.ID(), begin, end, stats)
		if err != nil {
			if !isEmpty(err) {
				seg.log.WithError(err).WithField("source", st.name).Error("failed to build cluster report")
			}
			continue
		}
		seg.out <- report
	}
}

func (seg *Segmenter) source(name string) *sourceState {
	if st, ok := seg.sources[name]; ok {
		return st
	}
	st := &sourceState{
		name: name,
		dim:  seg.cfg.Dimension,
	}
	st.cluster = segment.NewCluster(seg.registry, name, func() accumulator.Accumulator { return seg.newAcc(0) })
	st.current = segment.NewSegment(name, 0, seg.newAcc(st.dim))
	seg.sources[name] = st
	return st
}

func (seg *Segmenter) sortedSources() []*sourceState {
	out := make([]*sourceState, 0, len(seg.sources))
	for _, st := range seg.sources {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// newAcc cannot fail: the variant was checked by NewSegmenter.
func (seg *Segmenter) newAcc(dim int) accumulator.Accumulator {
	acc, _ := accumulator.New(seg.cfg.Variant, dim, seg.cfg.Options...)
	return acc
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, accumulator.ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, accumulator.ErrCountUnderflow):
		return "count_underflow"
	}
	return "other"
}

func nextTick(interval time.Duration) time.Duration {
	now := time.Now()
	expected := now.Round(interval).Add(interval)
	return expected.Sub(now)
}
