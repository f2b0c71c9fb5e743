package adversarial

import (
	"github.com/hscells/adversarial/learning"
)

// ResultType is the type of result being returned through a pipeline channel.
type ResultType uint8

const (
	// Statistics carries the training statistics of the run.
	Statistics ResultType = iota
	// Performance carries the performance dictionary of the trained classifier.
	Performance
	// Error indicates an error was raised.
	Error
	// Done indicates the pipeline has completed.
	Done
)

// PipelineResult is the output of a training pipeline.
type PipelineResult struct {
	Statistics  *learning.Statistics
	Performance map[string]float64
	// Formatted holds the output of each configured formatter, in order.
	Formatted []string
	Error     error
	Type      ResultType
}
