package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rudmsa/frameacc/internal/accumulator"
	"github.com/rudmsa/frameacc/internal/aggregator"
	"github.com/rudmsa/frameacc/internal/config"
	"github.com/rudmsa/frameacc/internal/core"
	"github.com/rudmsa/frameacc/internal/featurestream"
	"github.com/rudmsa/frameacc/internal/metrics"
	"github.com/rudmsa/frameacc/internal/segmenter"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the segmentation pipeline described by the configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := applyRunFlags(cmd, &cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		log, err := newLogger(cfg.Log.Level)
		if err != nil {
			return err
		}
		return runPipeline(cmd, cfg, log)
	},
}

func init() {
	runCmd.Flags().Int("segment-frames", 0, "frames per segment, overrides segment.frames")
	runCmd.Flags().Int("window", -1, "sliding window length, overrides segment.window")
	runCmd.Flags().String("report", "", "report list path, overrides report.path")
	runCmd.Flags().String("state", "", "cluster state path, overrides report.state_path")
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if n, err := flags.GetInt("segment-frames"); err != nil {
		return err
	} else if n > 0 {
		cfg.Segment.Frames = n
	}
	if n, err := flags.GetInt("window"); err != nil {
		return err
	} else if n >= 0 {
		cfg.Segment.Window = n
	}
	if p, err := flags.GetString("report"); err != nil {
		return err
	} else if p != "" {
		cfg.Report.Path = p
	}
	if p, err := flags.GetString("state"); err != nil {
		return err
	} else if p != "" {
		cfg.Report.StatePath = p
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return nil
}

func buildStreamer(src config.Source) featurestream.FeatureStreamSubscriber {
	if src.Kind == config.SourceFile {
		return featurestream.NewFileStream(src.Path, src.Interval)
	}
	return featurestream.NewSyntheticStream(src.Mean, src.StdDev, src.Interval, src.Frames, src.Seed)
}

func runPipeline(cmd *cobra.Command, cfg config.Config, log *logrus.Logger) error {
	ctx, cancelFn := context.WithCancel(cmd.Context())
	defer cancelFn()

	aggr := aggregator.NewAggregator(log)
	for _, src := range cfg.Sources {
		if err := aggr.RegisterFeatureStreamer(src.Name, buildStreamer(src)); err != nil {
			return err
		}
	}

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
	}
	m := metrics.NewPipeline(reg)

	variant, err := accumulator.ParseVariant(cfg.Variant)
	if err != nil {
		return err
	}
	var opts []accumulator.Option
	if cfg.Compensated {
		opts = append(opts, accumulator.WithCompensatedSum())
	}

	seg, err := segmenter.NewSegmenter(segmenter.Config{
		Variant:        variant,
		Dimension:      cfg.Dimension,
		Options:        opts,
		SegmentFrames:  cfg.Segment.Frames,
		WindowFrames:   cfg.Segment.Window,
		ReportInterval: cfg.Segment.Interval,
	}, aggr.GetAggregatedOutput(), log, m)
	if err != nil {
		return err
	}

	sink := segmenter.NewSink(segmenter.SinkConfig{
		Precision:  cfg.Report.Precision,
		ReportPath: cfg.Report.Path,
		StatePath:  cfg.Report.StatePath,
	}, seg.GetReportOutput(), log)

	out := cmd.OutOrStdout()
	sink.OnReport = func(r segmenter.Report) {
		if r.Kind != segmenter.KindCluster {
			return
		}
		acc, err := accumulator.FromState(r.State)
		if err != nil {
			log.WithError(err).Error("cannot rebuild cluster statistics")
			return
		}
		if err := printStats(out, r.Source, acc, cfg.Report.Precision); err != nil {
			log.WithError(err).WithField("source", r.Source).Warn("no statistics")
		}
	}

	if reg != nil {
		srv := metrics.NewServer(cfg.Metrics.Listen, reg, log)
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	appl := core.NewApplication(log)
	appl.Register("aggregator", aggr)
	appl.Register("segmenter", seg)
	appl.Register("sink", sink)

	return appl.Run(ctx)
}
