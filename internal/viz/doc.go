// Package viz renders magnetic brake runs in the terminal.
//
//   - [Plot]: height, velocity and acceleration panels drawn with asciigraph
//   - [Replay]: a Bubble Tea model that plays a run back sample by sample
//
// # Replay keys
//
//	Space - Pause/Resume
//	←/→   - Step one sample (pauses)
//	Home  - Back to the first sample
//	Q     - Quit
package viz
