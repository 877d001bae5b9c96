package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "frameacc"

// Pipeline holds the collectors updated by the segmenter.
type Pipeline struct {
	FramesAccepted *prometheus.CounterVec
	FramesRejected *prometheus.CounterVec
	SegmentsClosed *prometheus.CounterVec
	WindowFrames   *prometheus.GaugeVec
}

// NewPipeline creates the collectors and registers them on reg when it is
// not nil.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		FramesAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "segmenter",
			Name:      "frames_accepted_total",
			Help:      "Feature frames folded into segment statistics",
		}, []string{"source"}),
		FramesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "segmenter",
			Name:      "frames_rejected_total",
			Help:      "Feature frames refused by the accumulator",
		}, []string{"source", "reason"}),
		SegmentsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "segmenter",
			Name:      "segments_closed_total",
			Help:      "Segments closed and reported",
		}, []string{"source"}),
		WindowFrames: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "segmenter",
			Name:      "window_frames",
			Help:      "Frames currently held by the sliding window",
		}, []string{"source"}),
	}
	if reg != nil {
		reg.MustRegister(p.FramesAccepted, p.FramesRejected, p.SegmentsClosed, p.WindowFrames)
	}
	return p
}

// Server exposes a registry over HTTP until its context is done.
type Server struct {
	addr     string
	gatherer prometheus.Gatherer
	log      logrus.FieldLogger
}

func NewServer(addr string, gatherer prometheus.Gatherer, log logrus.FieldLogger) *Server {
	return &Server{
		addr:     addr,
		gatherer: gatherer,
		log:      log.WithField("component", "metrics"),
	}
}

func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.addr).Info("serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelFn := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFn()
	return srv.Shutdown(shutdownCtx)
}
