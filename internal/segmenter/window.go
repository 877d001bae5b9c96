package segmenter

import (
	"github.com/rudmsa/frameacc/internal/accumulator"
	"github.com/rudmsa/frameacc/internal/feature"
)

// window keeps statistics over the last len(ring) frames. Old frames leave
// the accumulator through Deaccumulate, so the ring is the only place raw
// vectors are held.
type window struct {
	acc  accumulator.Accumulator
	ring []feature.Vector
	seqs []uint64
	head int
	size int
}

func newWindow(capacity int, acc accumulator.Accumulator) *window {
	return &window{
		acc:  acc,
		ring: make([]feature.Vector, capacity),
		seqs: make([]uint64, capacity),
	}
}

func (w *window) push(seq uint64, v feature.Vector) error {
	if len(w.ring) == 0 {
		return nil
	}
	if err := w.acc.Accumulate(v); err != nil {
		return err
	}
	if w.size == len(w.ring) {
		if err := w.acc.Deaccumulate(w.ring[w.head]); err != nil {
			return err
		}
		w.size--
		w.head = (w.head + 1) % len(w.ring)
	}
	tail := (w.head + w.size) % len(w.ring)
	w.ring[tail] = v.Clone()
	w.seqs[tail] = seq
	w.size++
	return nil
}

func (w *window) len() int {
	return w.size
}

// bounds returns the first and one past the last frame position covered.
func (w *window) bounds() (uint64, uint64) {
	if w.size == 0 {
		return 0, 0
	}
	last := (w.head + w.size - 1) % len(w.ring)
	return w.seqs[w.head], w.seqs[last] + 1
}
