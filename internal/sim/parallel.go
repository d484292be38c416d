package sim

import (
	"context"
	"runtime"
	"sync"

	"github.com/san-kum/magbrake/internal/dynamo"
)

// Job is one independent run of an Ensemble.
type Job struct {
	System dynamo.System
	X0     dynamo.State
	Config dynamo.Config
}

// Ensemble runs independent jobs concurrently. Each job gets its own
// integrator since steppers keep per-call scratch space.
type Ensemble struct {
	newIntegrator func() dynamo.Integrator
	workers       int
	metrics       func() []dynamo.Metric
}

func NewEnsemble(newIntegrator func() dynamo.Integrator, workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Ensemble{newIntegrator: newIntegrator, workers: workers}
}

// WithMetrics installs a factory for the metrics attached to every job.
func (e *Ensemble) WithMetrics(fn func() []dynamo.Metric) *Ensemble {
	e.metrics = fn
	return e
}

// Run returns one trajectory per job, in job order. The first error wins.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]*dynamo.Trajectory, error) {
	results := make([]*dynamo.Trajectory, len(jobs))
	errs := make([]error, len(jobs))
	sem := make(chan struct{}, e.workers)

	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			job := jobs[idx]
			s := New(job.System, e.newIntegrator())
			if e.metrics != nil {
				for _, m := range e.metrics() {
					s.AddMetric(m)
				}
			}

			results[idx], errs[idx] = s.Run(ctx, job.X0, job.Config)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}
