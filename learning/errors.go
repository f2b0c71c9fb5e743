package learning

import (
	"fmt"
)

// Phase identifies the stage of a training run an error was raised in.
type Phase string

const (
	// Setup covers validation and initialisation of the environment.
	Setup Phase = "setup"
	// Pretrain is the phase where only the adversary is trained.
	Pretrain Phase = "pretrain"
	// Train is the phase where adversary and classifier are trained in turn.
	Train Phase = "train"
)

// SamplingError is returned when a balanced batch cannot be drawn: one class carries no weight at all, or the
// resampling did not reach the tolerance within its iteration or growth bound.
type SamplingError struct {
	Reason     string
	Iterations int
	DrawsA     int
	DrawsB     int
	SowA       float64
	SowB       float64
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("sampling error: %s (iterations=%d, draws=%d/%d, sow=%g/%g)",
		e.Reason, e.Iterations, e.DrawsA, e.DrawsB, e.SowA, e.SowB)
}

// ConfigurationError is returned for invalid parameters, detected before any training starts.
type ConfigurationError struct {
	Parameter string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Parameter, e.Reason)
}

// RunError records where in a training run an operation failed. Err is the unmodified error of the failing
// operation, reachable through errors.Cause and errors.As.
type RunError struct {
	Phase Phase
	// Batch is the zero-based batch index, or -1 outside the batch loops.
	Batch int
	Op    string
	Err   error
}

func (e *RunError) Error() string {
	if e.Batch < 0 {
		return fmt.Sprintf("%s: %s: %v", e.Phase, e.Op, e.Err)
	}
	return fmt.Sprintf("%s batch %d: %s: %v", e.Phase, e.Batch, e.Op, e.Err)
}

// Cause returns the error of the failing operation.
func (e *RunError) Cause() error {
	return e.Err
}

func (e *RunError) Unwrap() error {
	return e.Err
}
