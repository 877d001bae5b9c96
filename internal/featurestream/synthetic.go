package featurestream

import (
	"context"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StreamDefaultBuffer = 100
)

// Generates Gaussian FeatureRecords around mean with the given per-dimension
// deviation, one every interval. frames <= 0 means unbounded.
type syntheticStream struct {
	mean, stddev []float64
	interval     time.Duration
	frames       int
	rng          *rand.Rand
}

func NewSyntheticStream(mean, stddev []float64, interval time.Duration, frames int, seed int64) FeatureStreamSubscriber {
	return &syntheticStream{
		mean:     mean,
		stddev:   stddev,
		interval: interval,
		frames:   frames,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (ss *syntheticStream) SubscribeFeatureStream(ctx context.Context) (chan FeatureRecord, chan error) {
	recCh := make(chan FeatureRecord, StreamDefaultBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(recCh)

		var tick <-chan time.Time
		if ss.interval > 0 {
			ticker := time.NewTicker(ss.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for seq := uint64(0); ss.frames <= 0 || seq < uint64(ss.frames); seq++ {
			if tick != nil {
				select {
				case <-ctx.Done():
					return
				case <-tick:
				}
			}

			select {
			case <-ctx.Done():
				return
			case recCh <- ss.generateRecord(seq):
			}
		}
	}()
	return recCh, errCh
}

func (ss *syntheticStream) generateRecord(seq uint64) FeatureRecord {
	values := make([]string, len(ss.mean))
	for i, m := range ss.mean {
		sd := 1.0
		if i < len(ss.stddev) {
			sd = ss.stddev[i]
		}
		values[i] = decimal.NewFromFloat(m + sd*ss.rng.NormFloat64()).String()
	}
	return FeatureRecord{
		Seq:    seq,
		Time:   time.Now(),
		Values: values,
	}
}
