package aggregator

import (
	"github.com/rudmsa/frameacc/internal/featurestream"
)

type featureProvider struct {
	source   string
	streamer featurestream.FeatureStreamSubscriber
}
