package segmenter

import (
	"errors"
	"strconv"
	"time"

	"github.com/rudmsa/frameacc/internal/accumulator"
	"github.com/rudmsa/frameacc/internal/feature"
	"github.com/rudmsa/frameacc/internal/xlist"
)

type Kind string

const (
	KindSegment Kind = "segment"
	KindWindow  Kind = "window"
	KindCluster Kind = "cluster"
)

// Report is a snapshot of the statistics of a segment, a sliding window or
// a whole source cluster.
type Report struct {
	Kind   Kind
	Source string
	ID     string
	Begin  uint64
	End    uint64
	Count  int
	Mean   feature.Vector
	Cov    feature.Vector
	Std    feature.Vector
	State  accumulator.State
	Stamp  int64
}

// BuildReport derives the report of acc. It fails with
// accumulator.ErrEmptyAccumulator when acc holds no frames.
func BuildReport(kind Kind, source, id string, begin, end uint64, acc accumulator.Accumulator) (Report, error) {
	mean, err := acc.MeanVect()
	if err != nil {
		return Report{}, err
	}
	r := Report{
		Kind:   kind,
		Source: source,
		ID:     id,
		Begin:  begin,
		End:    end,
		Count:  acc.Count(),
		Mean:   mean,
		State:  acc.Snapshot(),
		Stamp:  time.Now().Unix(),
	}
	if diag, ok := acc.(accumulator.Diagonal); ok {
		if r.Cov, err = diag.CovVect(); err != nil {
			return Report{}, err
		}
		if r.Std, err = diag.StdVect(); err != nil {
			return Report{}, err
		}
	}
	return r, nil
}

func isEmpty(err error) bool {
	return errors.Is(err, accumulator.ErrEmptyAccumulator)
}

// AppendTo writes the report as a header line followed by one line per
// derived vector.
func (r Report) AppendTo(x *xlist.XList, precision int32) {
	x.AddLine("report", string(r.Kind), r.Source, r.ID,
		strconv.FormatUint(r.Begin, 10), strconv.FormatUint(r.End, 10), strconv.Itoa(r.Count))
	x.AddLine("mean").Add(feature.FormatVector(r.Mean, precision)...)
	if r.Cov != nil {
		x.AddLine("cov").Add(feature.FormatVector(r.Cov, precision)...)
	}
	if r.Std != nil {
		x.AddLine("std").Add(feature.FormatVector(r.Std, precision)...)
	}
}
