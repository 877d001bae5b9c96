package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/rudmsa/frameacc/internal/accumulator"
)

const (
	SourceSynthetic = "synthetic"
	SourceFile      = "file"
)

type Config struct {
	Dimension   int           `yaml:"dimension"`
	Variant     string        `yaml:"variant"`
	Compensated bool          `yaml:"compensated"`
	Segment     SegmentConfig `yaml:"segment"`
	Report      ReportConfig  `yaml:"report"`
	Log         LogConfig     `yaml:"log"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Sources     []Source      `yaml:"sources"`
}

type SegmentConfig struct {
	Frames   int           `yaml:"frames"`
	Window   int           `yaml:"window"`
	Interval time.Duration `yaml:"interval"`
}

type ReportConfig struct {
	Path      string `yaml:"path"`
	StatePath string `yaml:"state_path"`
	Precision int32  `yaml:"precision"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type Source struct {
	Name     string        `yaml:"name"`
	Kind     string        `yaml:"kind"`
	Path     string        `yaml:"path"`
	Mean     []float64     `yaml:"mean"`
	StdDev   []float64     `yaml:"stddev"`
	Interval time.Duration `yaml:"interval"`
	Seed     int64         `yaml:"seed"`
	Frames   int           `yaml:"frames"`
}

func Default() Config {
	return Config{
		Variant: string(accumulator.VariantGaussianDiag),
		Segment: SegmentConfig{
			Frames: 100,
			Window: 300,
		},
		Report: ReportConfig{
			Precision: 3,
		},
		Log: LogConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Listen: ":9464",
		},
	}
}

// Load reads a YAML file on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config [%s]: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config [%s]: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs error
	if c.Dimension < 0 {
		errs = multierr.Append(errs, fmt.Errorf("dimension must not be negative, got %d", c.Dimension))
	}
	if _, err := accumulator.ParseVariant(c.Variant); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.Segment.Frames <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("segment.frames must be positive, got %d", c.Segment.Frames))
	}
	if c.Segment.Window < 0 {
		errs = multierr.Append(errs, fmt.Errorf("segment.window must not be negative, got %d", c.Segment.Window))
	}
	if c.Report.Precision < 0 {
		errs = multierr.Append(errs, fmt.Errorf("report.precision must not be negative, got %d", c.Report.Precision))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = multierr.Append(errs, errors.New("metrics.listen is required when metrics are enabled"))
	}
	if len(c.Sources) == 0 {
		errs = multierr.Append(errs, errors.New("at least one source is required"))
	}

	names := map[string]bool{}
	for i, src := range c.Sources {
		if src.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("sources[%d]: name is required", i))
		} else if strings.IndexFunc(src.Name, unicode.IsSpace) >= 0 {
			errs = multierr.Append(errs, fmt.Errorf("sources[%d]: name %q must not contain whitespace", i, src.Name))
		} else if names[src.Name] {
			errs = multierr.Append(errs, fmt.Errorf("sources[%d]: duplicate name %q", i, src.Name))
		}
		names[src.Name] = true

		switch src.Kind {
		case SourceFile:
			if src.Path == "" {
				errs = multierr.Append(errs, fmt.Errorf("sources[%d]: path is required for file sources", i))
			}
		case SourceSynthetic:
			if len(src.Mean) == 0 {
				errs = multierr.Append(errs, fmt.Errorf("sources[%d]: mean is required for synthetic sources", i))
			}
			if len(src.StdDev) != 0 && len(src.StdDev) != len(src.Mean) {
				errs = multierr.Append(errs, fmt.Errorf("sources[%d]: stddev has %d values, mean has %d", i, len(src.StdDev), len(src.Mean)))
			}
			if c.Dimension > 0 && len(src.Mean) != c.Dimension {
				errs = multierr.Append(errs, fmt.Errorf("sources[%d]: mean has %d values, dimension is %d", i, len(src.Mean), c.Dimension))
			}
		default:
			errs = multierr.Append(errs, fmt.Errorf("sources[%d]: unknown kind %q", i, src.Kind))
		}
	}
	return errs
}
