// Package analysis inspects magnetic brake trajectories.
//
//   - [FreeFall]: closed-form motion with braking switched off
//   - [ConvergenceStudy] and [ObservedOrder]: empirical order of accuracy
//   - [Summarize]: extremes and final values of a run
//   - [Sweep]: final state as one physical constant is varied
//   - [NewPhasePortrait]: velocity against height
//
// A convergence study on the default constants should report an order
// close to 4:
//
//	samples, _ := analysis.ConvergenceStudy(ctx, cfg, []float64{1.0 / 32, 1.0 / 64}, ref)
//	order := analysis.ObservedOrder(samples)
package analysis
