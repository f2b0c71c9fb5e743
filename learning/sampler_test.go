package learning_test

import (
	"github.com/hscells/adversarial/learning"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"math/rand"
	"testing"
)

func newSampler(t *testing.T, batchSize int, options ...func(*learning.WeightBalancedSampler)) learning.WeightBalancedSampler {
	options = append([]func(*learning.WeightBalancedSampler){learning.RandomSource(rand.New(rand.NewSource(1)))}, options...)
	s, err := learning.NewWeightBalancedSampler(batchSize, options...)
	require.NoError(t, err)
	return s
}

func uniform(n int, w float64) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = w
	}
	return weights
}

// column returns an n×1 matrix whose row i holds offset+i.
func column(n int, offset float64) *mat.Dense {
	m := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		m.Set(i, 0, offset+float64(i))
	}
	return m
}

func labels(n int, label float64) *mat.Dense {
	return mat.NewDense(n, 1, uniform(n, label))
}

func TestSampleIndicesBalances(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	weightsA := make([]float64, 300)
	for i := range weightsA {
		weightsA[i] = rng.Float64() * 2
	}
	weightsB := make([]float64, 500)
	for i := range weightsB {
		weightsB[i] = rng.ExpFloat64() * 10
	}

	s := newSampler(t, 32)
	for i := 0; i < 50; i++ {
		indsA, indsB, err := s.SampleIndices(weightsA, weightsB)
		require.NoError(t, err)
		assert.True(t, len(indsA) >= 16)
		assert.True(t, len(indsB) >= 16)

		var sowA, sowB float64
		for _, j := range indsA {
			sowA += weightsA[j]
		}
		for _, j := range indsB {
			sowB += weightsB[j]
		}
		assert.True(t, learning.Balanced(sowA, sowB, 0.1), "sow_sig=%v sow_bkg=%v", sowA, sowB)
	}
}

func TestSampleIndicesGrowsLighterClass(t *testing.T) {
	s := newSampler(t, 20)
	indsA, indsB, err := s.SampleIndices(uniform(100, 1), uniform(100, 3))
	require.NoError(t, err)
	assert.Len(t, indsB, 10)
	assert.True(t, len(indsA) >= 27, "got %d signal draws", len(indsA))
}

func TestSampleKeepsEventsCoherent(t *testing.T) {
	weightsA := make([]float64, 50)
	for i := range weightsA {
		weightsA[i] = float64(i + 1)
	}
	weightsB := uniform(80, 0.5)

	s := newSampler(t, 16)
	sampled, weights, err := s.Sample(
		[]*mat.Dense{column(50, 0), labels(50, 1)}, weightsA,
		[]*mat.Dense{column(80, 1000), labels(80, 0)}, weightsB)
	require.NoError(t, err)
	require.Len(t, sampled, 2)

	n := len(weights)
	for _, m := range sampled {
		r, _ := m.Dims()
		assert.Equal(t, n, r)
	}

	// Class A rows come first, then class B rows, and each weight belongs to its row.
	seenB := false
	for i := 0; i < n; i++ {
		id, label := sampled[0].At(i, 0), sampled[1].At(i, 0)
		if label == 0 {
			seenB = true
			assert.True(t, id >= 1000)
			assert.Equal(t, 0.5, weights[i])
			continue
		}
		assert.False(t, seenB, "signal row %d after background rows", i)
		assert.Equal(t, weightsA[int(id)], weights[i])
	}
	assert.True(t, seenB)
}

func TestSampleZeroWeightClass(t *testing.T) {
	s := newSampler(t, 4)
	_, _, err := s.Sample(
		[]*mat.Dense{column(4, 0)}, []float64{0, 0, 0, 0},
		[]*mat.Dense{column(4, 10)}, []float64{1, 1, 1, 1})
	require.Error(t, err)

	var samplingError *learning.SamplingError
	require.True(t, errors.As(err, &samplingError))
	assert.Equal(t, 0.0, samplingError.SowA)
	assert.Equal(t, 4.0, samplingError.SowB)
}

func TestSampleGrowthBound(t *testing.T) {
	s := newSampler(t, 4, learning.MaxGrowth(2))
	_, _, err := s.SampleIndices(uniform(10, 1e-6), uniform(10, 1))

	var samplingError *learning.SamplingError
	require.True(t, errors.As(err, &samplingError), "expected a sampling error, got %v", err)
	assert.True(t, samplingError.DrawsA+samplingError.DrawsB <= 8)
}

func TestSampleGrowthBoundWithTinyWeights(t *testing.T) {
	s := newSampler(t, 4, learning.MaxIterations(5))
	_, _, err := s.SampleIndices(uniform(10, 1e-300), uniform(10, 1))

	var samplingError *learning.SamplingError
	require.True(t, errors.As(err, &samplingError), "expected a sampling error, got %v", err)
	assert.Contains(t, samplingError.Reason, "exceed")
	assert.Equal(t, 0, samplingError.Iterations)
	assert.Equal(t, 2, samplingError.DrawsA)
	assert.Equal(t, 2, samplingError.DrawsB)
}

func TestSampleIterationBound(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	weightsA := make([]float64, 100)
	for i := range weightsA {
		weightsA[i] = 0.5 + rng.Float64()
	}

	s := newSampler(t, 20, learning.MaxIterations(1), learning.WeightTolerance(1e-12), learning.MaxGrowth(1000))
	_, _, err := s.SampleIndices(weightsA, uniform(100, 1))

	var samplingError *learning.SamplingError
	require.True(t, errors.As(err, &samplingError), "expected a sampling error, got %v", err)
	assert.Equal(t, 1, samplingError.Iterations)
}

func TestSamplerConfiguration(t *testing.T) {
	cases := []struct {
		name      string
		batchSize int
		options   []func(*learning.WeightBalancedSampler)
	}{
		{"zero batch", 0, nil},
		{"negative batch", -4, nil},
		{"zero tolerance", 4, []func(*learning.WeightBalancedSampler){learning.WeightTolerance(0)}},
		{"tolerance of one", 4, []func(*learning.WeightBalancedSampler){learning.WeightTolerance(1)}},
		{"no iterations", 4, []func(*learning.WeightBalancedSampler){learning.MaxIterations(0)}},
		{"no growth", 4, []func(*learning.WeightBalancedSampler){learning.MaxGrowth(0)}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := learning.NewWeightBalancedSampler(c.batchSize, c.options...)
			var configurationError *learning.ConfigurationError
			assert.True(t, errors.As(err, &configurationError), "got %v", err)
		})
	}
}

func TestSampleRejectsMismatchedSources(t *testing.T) {
	s := newSampler(t, 4)

	_, _, err := s.Sample([]*mat.Dense{column(4, 0)}, uniform(3, 1), []*mat.Dense{column(4, 0)}, uniform(4, 1))
	var configurationError *learning.ConfigurationError
	assert.True(t, errors.As(err, &configurationError))

	_, _, err = s.Sample([]*mat.Dense{column(4, 0)}, uniform(4, 1), nil, uniform(4, 1))
	assert.True(t, errors.As(err, &configurationError))

	_, _, err = s.SampleIndices(nil, uniform(4, 1))
	assert.True(t, errors.As(err, &configurationError))

	_, _, err = s.SampleIndices([]float64{1, -1}, uniform(4, 1))
	assert.True(t, errors.As(err, &configurationError))
}

func TestSampleIsReproducible(t *testing.T) {
	weightsA, weightsB := uniform(40, 1), uniform(60, 2)
	a1, b1, err := newSampler(t, 8).SampleIndices(weightsA, weightsB)
	require.NoError(t, err)
	a2, b2, err := newSampler(t, 8).SampleIndices(weightsA, weightsB)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
}
