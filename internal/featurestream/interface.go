package featurestream

import (
	"context"
	"time"
)

// FeatureRecord is one frame as produced by an extraction stage.
type FeatureRecord struct {
	Seq    uint64
	Time   time.Time
	Values []string // decimal values. example: []string{"0", "-12.2", "13.2345122"}
}

// FeatureStreamSubscriber starts a stream of records. Both channels are
// closed when the stream ends or ctx is done.
type FeatureStreamSubscriber interface {
	SubscribeFeatureStream(ctx context.Context) (chan FeatureRecord, chan error)
}
