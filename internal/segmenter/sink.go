package segmenter

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rudmsa/frameacc/internal/accumulator"
	"github.com/rudmsa/frameacc/internal/feature"
	"github.com/rudmsa/frameacc/internal/xlist"
)

type SinkConfig struct {
	Precision  int32
	ReportPath string
	StatePath  string
}

// Sink collects reports into an XList and keeps the final state of every
// source cluster. It drains its input until closed, regardless of ctx, so
// the segmenter can flush on shutdown.
type Sink struct {
	cfg      SinkConfig
	input    <-chan Report
	log      logrus.FieldLogger
	list     *xlist.XList
	states   map[string]accumulator.State
	OnReport func(Report)
}

func NewSink(cfg SinkConfig, input <-chan Report, log logrus.FieldLogger) *Sink {
	return &Sink{
		cfg:    cfg,
		input:  input,
		log:    log.WithField("component", "sink"),
		list:   xlist.New(),
		states: make(map[string]accumulator.State),
	}
}

func (s *Sink) Run(_ context.Context) error {
	for r := range s.input {
		s.log.WithFields(logrus.Fields{
			"kind":   r.Kind,
			"source": r.Source,
			"count":  r.Count,
			"mean":   strings.Join(feature.FormatVector(r.Mean, s.cfg.Precision), " "),
		}).Debug("report")

		r.AppendTo(s.list, s.cfg.Precision)
		if r.Kind == KindCluster {
			s.states[r.Source] = r.State
		}
		if s.OnReport != nil {
			s.OnReport(r)
		}
	}
	return s.save()
}

func (s *Sink) List() *xlist.XList {
	return s.list
}

func (s *Sink) States() map[string]accumulator.State {
	return s.states
}

func (s *Sink) save() error {
	if s.cfg.ReportPath != "" {
		if err := s.list.SaveFile(s.cfg.ReportPath); err != nil {
			return err
		}
		s.log.WithField("path", s.cfg.ReportPath).Info("reports saved")
	}
	if s.cfg.StatePath != "" {
		if err := WriteStates(s.cfg.StatePath, s.states); err != nil {
			return err
		}
		s.log.WithField("path", s.cfg.StatePath).Info("cluster states saved")
	}
	return nil
}

// WriteStates stores per-source accumulator states with msgpack.
func WriteStates(path string, states map[string]accumulator.State) error {
	data, err := msgpack.Marshal(states)
	if err != nil {
		return fmt.Errorf("encode states: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write states [%s]: %w", path, err)
	}
	return nil
}

func ReadStates(path string) (map[string]accumulator.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read states [%s]: %w", path, err)
	}
	var states map[string]accumulator.State
	if err := msgpack.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("decode states [%s]: %w", path, err)
	}
	return states, nil
}
