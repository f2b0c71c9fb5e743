package learning

import (
	"fmt"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"math"
	"math/rand"
	"time"
)

// Sampler draws a batch from the parallel arrays of two classes. The returned sources hold the rows of class A
// followed by the rows of class B, and the returned weights are in the same order.
type Sampler interface {
	Sample(sourcesA []*mat.Dense, weightsA []float64, sourcesB []*mat.Dense, weightsB []float64) ([]*mat.Dense, []float64, error)
}

// WeightBalancedSampler samples both classes uniformly with replacement and then keeps drawing from whichever class
// carries less weight until the sums of weights of the two classes agree within a tolerance. The size of a batch is
// therefore not fixed: it is at least the requested batch size and grows with the imbalance of the weights.
type WeightBalancedSampler struct {
	batchSize     int
	tolerance     float64
	maxIterations int
	maxGrowth     int
	rng           *rand.Rand
	logger        *zap.SugaredLogger
}

// WeightTolerance sets the accepted relative difference |sowA - sowB| / sowA.
func WeightTolerance(tolerance float64) func(*WeightBalancedSampler) {
	return func(s *WeightBalancedSampler) {
		s.tolerance = tolerance
	}
}

// MaxIterations bounds the number of resampling rounds.
func MaxIterations(n int) func(*WeightBalancedSampler) {
	return func(s *WeightBalancedSampler) {
		s.maxIterations = n
	}
}

// MaxGrowth bounds the size of a batch to n times the requested batch size.
func MaxGrowth(n int) func(*WeightBalancedSampler) {
	return func(s *WeightBalancedSampler) {
		s.maxGrowth = n
	}
}

// RandomSource sets the random number generator indices are drawn with.
func RandomSource(rng *rand.Rand) func(*WeightBalancedSampler) {
	return func(s *WeightBalancedSampler) {
		s.rng = rng
	}
}

// SamplerLogger sets the logger the achieved batch sizes are reported to.
func SamplerLogger(logger *zap.SugaredLogger) func(*WeightBalancedSampler) {
	return func(s *WeightBalancedSampler) {
		s.logger = logger
	}
}

// NewWeightBalancedSampler creates a sampler requesting batchSize events per batch, half from each class.
func NewWeightBalancedSampler(batchSize int, options ...func(*WeightBalancedSampler)) (WeightBalancedSampler, error) {
	s := WeightBalancedSampler{
		batchSize:     batchSize,
		tolerance:     0.1,
		maxIterations: 1000,
		maxGrowth:     100,
	}
	for _, option := range options {
		option(&s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}

	switch {
	case s.batchSize <= 0:
		return WeightBalancedSampler{}, &ConfigurationError{Parameter: "batch_size", Reason: fmt.Sprintf("must be positive, got %d", s.batchSize)}
	case s.tolerance <= 0 || s.tolerance >= 1 || math.IsNaN(s.tolerance):
		return WeightBalancedSampler{}, &ConfigurationError{Parameter: "weight_tolerance", Reason: fmt.Sprintf("must lie in (0, 1), got %v", s.tolerance)}
	case s.maxIterations <= 0:
		return WeightBalancedSampler{}, &ConfigurationError{Parameter: "max_iterations", Reason: fmt.Sprintf("must be positive, got %d", s.maxIterations)}
	case s.maxGrowth <= 0:
		return WeightBalancedSampler{}, &ConfigurationError{Parameter: "max_growth", Reason: fmt.Sprintf("must be positive, got %d", s.maxGrowth)}
	}
	return s, nil
}

// Balanced reports whether two sums of weights agree within tolerance, relative to sowA.
func Balanced(sowA, sowB, tolerance float64) bool {
	return math.Abs(sowA-sowB)/sowA <= tolerance
}

// SampleIndices draws the indices of a balanced batch from two classes with the given per-event weights.
func (s WeightBalancedSampler) SampleIndices(weightsA, weightsB []float64) (indsA, indsB []int, err error) {
	if len(weightsA) == 0 || len(weightsB) == 0 {
		return nil, nil, &ConfigurationError{Parameter: "weights", Reason: "cannot sample from an empty class"}
	}
	for c, weights := range [][]float64{weightsA, weightsB} {
		for i, w := range weights {
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, nil, &ConfigurationError{Parameter: "weights", Reason: fmt.Sprintf("event %d of class %c has invalid weight %v", i, 'A'+c, w)}
			}
		}
	}

	// A class without any weight can never be balanced against the other one.
	totalA, totalB := floats.Sum(weightsA), floats.Sum(weightsB)
	if totalA == 0 || totalB == 0 {
		return nil, nil, &SamplingError{Reason: "a class has zero total weight", SowA: totalA, SowB: totalB}
	}

	request := s.batchSize / 2
	if request < 1 {
		request = 1
	}
	indsA = s.draw(len(weightsA), request, nil)
	indsB = s.draw(len(weightsB), request, nil)

	limit := s.maxGrowth * s.batchSize
	if limit < 2*request {
		limit = 2 * request
	}

	for iteration := 0; ; iteration++ {
		sowA, sowB := sumOf(weightsA, indsA), sumOf(weightsB, indsB)
		if Balanced(sowA, sowB, s.tolerance) {
			s.logger.Debugw("balanced batch", "sow_sig", sowA, "sow_bkg", sowB, "iterations", iteration)
			return indsA, indsB, nil
		}
		if iteration >= s.maxIterations {
			return nil, nil, &SamplingError{
				Reason:     fmt.Sprintf("no balance within %d iterations", s.maxIterations),
				Iterations: iteration, DrawsA: len(indsA), DrawsB: len(indsB), SowA: sowA, SowB: sowB,
			}
		}

		// Find the class that carries less weight and guess how many more events it needs.
		under, n, low := &indsA, len(weightsA), sowA
		if sowB < sowA {
			under, n, low = &indsB, len(weightsB), sowB
		}
		// The estimate stays a float until it is known to fit; tiny weights make it overflow an int.
		estimate := float64(len(*under))
		if low > 0 {
			estimate = math.Floor(math.Abs(sowA-sowB) / low * float64(len(*under)))
		}
		if estimate < 1 {
			estimate = 1
		}

		if estimate > float64(limit-len(indsA)-len(indsB)) {
			return nil, nil, &SamplingError{
				Reason:     fmt.Sprintf("batch would exceed %d events", limit),
				Iterations: iteration, DrawsA: len(indsA), DrawsB: len(indsB), SowA: sowA, SowB: sowB,
			}
		}
		extra := int(estimate)
		s.logger.Debugw("requesting more samples", "requested", extra)
		*under = s.draw(n, extra, *under)
	}
}

// Sample draws a balanced batch and gathers the rows of every source. sourcesA and sourcesB must be parallel lists:
// the i-th source of each class holds the same quantity with the same number of columns.
func (s WeightBalancedSampler) Sample(sourcesA []*mat.Dense, weightsA []float64, sourcesB []*mat.Dense, weightsB []float64) ([]*mat.Dense, []float64, error) {
	if err := checkSources(sourcesA, weightsA, sourcesB, weightsB); err != nil {
		return nil, nil, err
	}

	indsA, indsB, err := s.SampleIndices(weightsA, weightsB)
	if err != nil {
		return nil, nil, err
	}

	sampled := make([]*mat.Dense, len(sourcesA))
	for i := range sourcesA {
		sampled[i] = gather(sourcesA[i], indsA, sourcesB[i], indsB)
	}
	weights := make([]float64, 0, len(indsA)+len(indsB))
	for _, i := range indsA {
		weights = append(weights, weightsA[i])
	}
	for _, i := range indsB {
		weights = append(weights, weightsB[i])
	}

	s.logger.Debugw("sampled batch", "size", len(weights), "sig", len(indsA), "bkg", len(indsB))
	return sampled, weights, nil
}

// draw appends n indices drawn uniformly with replacement from [0, size) to dst.
func (s WeightBalancedSampler) draw(size, n int, dst []int) []int {
	for i := 0; i < n; i++ {
		dst = append(dst, s.rng.Intn(size))
	}
	return dst
}

func sumOf(weights []float64, inds []int) float64 {
	var sow float64
	for _, i := range inds {
		sow += weights[i]
	}
	return sow
}

// gather stacks the rows indsA of a on top of the rows indsB of b.
func gather(a *mat.Dense, indsA []int, b *mat.Dense, indsB []int) *mat.Dense {
	_, c := a.Dims()
	out := mat.NewDense(len(indsA)+len(indsB), c, nil)
	for j, i := range indsA {
		out.SetRow(j, a.RawRowView(i))
	}
	for j, i := range indsB {
		out.SetRow(len(indsA)+j, b.RawRowView(i))
	}
	return out
}

func checkSources(sourcesA []*mat.Dense, weightsA []float64, sourcesB []*mat.Dense, weightsB []float64) error {
	if len(sourcesA) != len(sourcesB) {
		return &ConfigurationError{Parameter: "sources", Reason: fmt.Sprintf("class A has %d sources, class B has %d", len(sourcesA), len(sourcesB))}
	}
	for i := range sourcesA {
		if sourcesA[i] == nil || sourcesB[i] == nil {
			return &ConfigurationError{Parameter: "sources", Reason: fmt.Sprintf("source %d is missing", i)}
		}
		ra, ca := sourcesA[i].Dims()
		rb, cb := sourcesB[i].Dims()
		switch {
		case ra != len(weightsA):
			return &ConfigurationError{Parameter: "sources", Reason: fmt.Sprintf("source %d of class A has %d rows but %d weights", i, ra, len(weightsA))}
		case rb != len(weightsB):
			return &ConfigurationError{Parameter: "sources", Reason: fmt.Sprintf("source %d of class B has %d rows but %d weights", i, rb, len(weightsB))}
		case ca != cb:
			return &ConfigurationError{Parameter: "sources", Reason: fmt.Sprintf("source %d has %d columns in class A but %d in class B", i, ca, cb)}
		}
	}
	return nil
}
