package aggregator

import (
	"fmt"

	"github.com/rudmsa/frameacc/internal/feature"
	"github.com/rudmsa/frameacc/internal/featurestream"
)

func RecordToFrame(source string, rec featurestream.FeatureRecord) (feature.Frame, error) {
	vect, err := feature.ParseVector(rec.Values)
	if err != nil {
		return feature.Frame{}, fmt.Errorf("failed to convert record #%d: %w", rec.Seq, err)
	}
	return feature.Frame{
		Source: source,
		Seq:    rec.Seq,
		Stamp:  rec.Time,
		Vector: vect,
	}, nil
}
