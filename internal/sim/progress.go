package sim

import (
	"log/slog"

	"github.com/san-kum/magbrake/internal/dynamo"
)

// ProgressLogger logs integration progress at every 10% of the grid.
type ProgressLogger struct {
	logger *slog.Logger
	total  int
	seen   int
	next   int
}

func NewProgressLogger(logger *slog.Logger, total int) *ProgressLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressLogger{logger: logger, total: total, next: 10}
}

func (p *ProgressLogger) OnStep(x dynamo.State, t float64) {
	p.seen++
	if p.total <= 0 {
		return
	}
	pct := p.seen * 100 / p.total
	if pct < p.next {
		return
	}
	p.logger.Info("integrating", "progress", pct, "t", t, "x", x[0], "y", x[1])
	for p.next <= pct {
		p.next += 10
	}
}

// Percent reports how much of the grid has been recorded.
func (p *ProgressLogger) Percent() float64 {
	if p.total <= 0 {
		return 0
	}
	return float64(p.seen) / float64(p.total)
}
