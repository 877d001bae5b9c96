package accumulator

import "math"

// sumVect is a vector of running sums. When comp is non-nil every component
// carries a Neumaier compensation term.
type sumVect struct {
	val  []float64
	comp []float64
}

func newSumVect(dim int, compensated bool) sumVect {
	s := sumVect{val: make([]float64, dim)}
	if compensated {
		s.comp = make([]float64, dim)
	}
	return s
}

func (s *sumVect) compensated() bool {
	return s.comp != nil
}

func (s *sumVect) add(i int, x float64) {
	if s.comp == nil {
		s.val[i] += x
		return
	}
	sum := s.val[i]
	t := sum + x
	if math.Abs(sum) >= math.Abs(x) {
		s.comp[i] += (sum - t) + x
	} else {
		s.comp[i] += (x - t) + sum
	}
	s.val[i] = t
}

func (s *sumVect) addVect(o *sumVect) {
	for i := range s.val {
		s.add(i, o.at(i))
	}
}

func (s *sumVect) at(i int) float64 {
	if s.comp == nil {
		return s.val[i]
	}
	return s.val[i] + s.comp[i]
}

func (s *sumVect) values() []float64 {
	out := make([]float64, len(s.val))
	for i := range out {
		out[i] = s.at(i)
	}
	return out
}

func (s *sumVect) set(v []float64) {
	copy(s.val, v)
	for i := range s.comp {
		s.comp[i] = 0
	}
}

func (s *sumVect) zero() {
	for i := range s.val {
		s.val[i] = 0
	}
	for i := range s.comp {
		s.comp[i] = 0
	}
}

func (s *sumVect) clone() sumVect {
	c := sumVect{val: append([]float64(nil), s.val...)}
	if s.comp != nil {
		c.comp = append([]float64(nil), s.comp...)
	}
	return c
}
