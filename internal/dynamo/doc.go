// Package dynamo provides the shared primitives for integrating ordinary
// differential equations:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: single-step numerical integrator
//   - [Config]: time grid and step settings for one run
//   - [Trajectory]: the recorded position, velocity and acceleration series
//
// # Example
//
//	sys := physics.NewMagneticBrake()
//	s := sim.New(sys, integrators.NewRK4())
//	tr, _ := s.Run(ctx, sys.InitialState(10, 0), dynamo.DefaultConfig())
package dynamo
