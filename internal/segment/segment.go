// Package segment models a timeline cut into labelled segments and clusters
// of segments. Each node summarizes its frames with an accumulator, so a
// cluster's statistics are the merge of its members'.
package segment

import (
	"github.com/google/uuid"

	"github.com/rudmsa/frameacc/internal/accumulator"
	"github.com/rudmsa/frameacc/internal/feature"
	"github.com/rudmsa/frameacc/internal/xlist"
)

// Node is a segment or a cluster.
type Node interface {
	ID() string
	// Stats returns a copy of the statistics summarizing the node.
	Stats() (accumulator.Accumulator, error)
}

// Segment is a contiguous run of frames [Begin, End) of one source.
type Segment struct {
	id        string
	labelCode uint64
	label     string
	source    string
	begin     uint64
	end       uint64
	list      *xlist.XList
	acc       accumulator.Accumulator
}

func NewSegment(source string, begin uint64, acc accumulator.Accumulator) *Segment {
	return &Segment{
		id:     uuid.NewString(),
		source: source,
		begin:  begin,
		end:    begin,
		list:   xlist.New(),
		acc:    acc,
	}
}

func (s *Segment) ID() string            { return s.id }
func (s *Segment) LabelCode() uint64     { return s.labelCode }
func (s *Segment) Label() string         { return s.label }
func (s *Segment) SourceName() string    { return s.source }
func (s *Segment) Begin() uint64         { return s.begin }
func (s *Segment) End() uint64           { return s.end }
func (s *Segment) Length() uint64        { return s.end - s.begin }
func (s *Segment) List() *xlist.XList    { return s.list }
func (s *Segment) SetLabel(label string) { s.label = label }

func (s *Segment) SetLabelCode(code uint64) {
	s.labelCode = code
}

func (s *Segment) SetSourceName(name string) {
	s.source = name
}

// Add folds the frame at position seq into the segment statistics and
// extends the segment to cover it.
func (s *Segment) Add(seq uint64, v feature.Vector) error {
	if err := s.acc.Accumulate(v); err != nil {
		return err
	}
	if s.acc.Count() == 1 {
		s.begin = seq
	}
	if seq+1 > s.end {
		s.end = seq + 1
	}
	return nil
}

// Accumulator gives direct access to the running statistics.
func (s *Segment) Accumulator() accumulator.Accumulator {
	return s.acc
}

func (s *Segment) Stats() (accumulator.Accumulator, error) {
	return s.acc.Clone(), nil
}
