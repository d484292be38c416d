package metrics

import (
	"math"

	"github.com/san-kum/magbrake/internal/dynamo"
)

// Stability scores how much of a run stayed finite with |x| and |y| under
// limit. It also remembers when the run first left that range.
type Stability struct {
	limit    float64
	inRange  int
	total    int
	escaped  bool
	escapeAt float64
}

func NewStability(limit float64) *Stability {
	return &Stability{limit: limit}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(x dynamo.State, t float64) {
	s.total++
	if x.IsValid() && s.bounded(x) {
		s.inRange++
		return
	}
	if !s.escaped {
		s.escaped, s.escapeAt = true, t
	}
}

func (s *Stability) bounded(x dynamo.State) bool {
	for _, v := range x {
		if math.Abs(v) > s.limit {
			return false
		}
	}
	return true
}

// Value is 1 for a run that never left the range.
func (s *Stability) Value() float64 {
	if s.total == 0 {
		return 1
	}
	return float64(s.inRange) / float64(s.total)
}

// Escape reports the time of the first out-of-range sample.
func (s *Stability) Escape() (float64, bool) {
	return s.escapeAt, s.escaped
}

func (s *Stability) Reset() {
	*s = Stability{limit: s.limit}
}
