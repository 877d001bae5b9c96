package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/rudmsa/frameacc/internal/feature"
	"github.com/rudmsa/frameacc/internal/featurestream"
)

const (
	OutputDefaultBuffer = 100
)

var (
	ErrAlreadyStarted  = errors.New("cannot be done when already started")
	ErrDuplicateSource = errors.New("source already registered")
)

// FrameAggregator fans in several feature streams into one channel of
// decoded frames. The output is closed once every stream has ended.
type FrameAggregator struct {
	log logrus.FieldLogger

	providers []*featureProvider
	muProvs   sync.Mutex

	output chan feature.Frame

	isStarted bool
}

func NewAggregator(log logrus.FieldLogger) *FrameAggregator {
	return &FrameAggregator{
		log:    log.WithField("component", "aggregator"),
		output: make(chan feature.Frame, OutputDefaultBuffer),
	}
}

func (aggr *FrameAggregator) GetAggregatedOutput() <-chan feature.Frame {
	return aggr.output
}

func (aggr *FrameAggregator) RegisterFeatureStreamer(source string, streamer featurestream.FeatureStreamSubscriber) error {
	aggr.muProvs.Lock()
	defer aggr.muProvs.Unlock()

	if aggr.isStarted {
		return ErrAlreadyStarted
	}
	for _, prov := range aggr.providers {
		if prov.source == source {
			return fmt.Errorf("%w: %s", ErrDuplicateSource, source)
		}
	}

	aggr.providers = append(aggr.providers, &featureProvider{
		source:   source,
		streamer: streamer,
	})
	return nil
}

func (aggr *FrameAggregator) Run(ctx context.Context) error {
	aggr.muProvs.Lock()
	if aggr.isStarted {
		aggr.muProvs.Unlock()
		return ErrAlreadyStarted
	}
	aggr.isStarted = true
	providers := aggr.providers
	aggr.muProvs.Unlock()

	defer close(aggr.output)

	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	wg := sync.WaitGroup{}
	for _, prov := range providers {
		if err := aggr.startProvider(ctx, &wg, prov); err != nil {
			cancelFn()
			wg.Wait()
			return fmt.Errorf("failed to start provider [%s]: %w", prov.source, err)
		}
	}

	wg.Wait()
	return nil
}

func (aggr *FrameAggregator) startProvider(ctx context.Context, wg *sync.WaitGroup, prov *featureProvider) error {
	dataCh, errCh := prov.streamer.SubscribeFeatureStream(ctx)
	if dataCh == nil || errCh == nil {
		return fmt.Errorf("streamer [%s] returned nil channels", prov.source)
	}
	log := aggr.log.WithField("source", prov.source)

	wg.Add(1)
	go func() {
		defer wg.Done()

		for dataCh != nil {
			select {
			case <-ctx.Done():
				return

			case data, ok := <-dataCh:
				if !ok {
					dataCh = nil
					break
				}
				frame, err := RecordToFrame(prov.source, data)
				if err != nil {
					log.WithError(err).Warn("dropping undecodable record")
					break
				}

				select {
				case aggr.output <- frame:
				case <-ctx.Done():
					return
				}

			case err, ok := <-errCh:
				if !ok {
					errCh = nil
					break
				}
				log.WithError(err).Error("feature stream reported an error")
			}
		}
		if errCh != nil {
			for err := range errCh {
				log.WithError(err).Error("feature stream reported an error")
			}
		}
		log.Debug("feature stream ended")
	}()
	return nil
}
