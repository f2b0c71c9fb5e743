package eval_test

import (
	"github.com/hscells/adversarial/dataset"
	"github.com/hscells/adversarial/eval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"testing"
)

// identity scores every event with its first feature.
type identity struct{}

func (identity) Predict(data mat.Matrix) (*mat.Dense, error) {
	r, _ := data.Dims()
	out := mat.NewDense(r, 2, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, 1-data.At(i, 0))
		out.Set(i, 1, data.At(i, 0))
	}
	return out, nil
}

func (identity) Parameters() map[string]float64 {
	return map[string]float64{"lambda": 3}
}

func sample(name string, n int, lo, hi float64) dataset.Sample {
	features := mat.NewDense(n, 1, nil)
	nuisances := mat.NewDense(n, 1, nil)
	weights := make([]float64, n)
	labels := make([]float64, n)
	for i := 0; i < n; i++ {
		features.Set(i, 0, lo+(hi-lo)*float64(i)/float64(n))
		nuisances.Set(i, 0, float64(i%10))
		weights[i] = 1
	}
	return dataset.Sample{
		Name: name,
		Partition: dataset.Partition{
			Features:  features,
			Nuisances: nuisances,
			Weights:   weights,
			Labels:    labels,
		},
	}
}

func TestPerformanceMetrics(t *testing.T) {
	samples := dataset.Samples{
		Signal:     []dataset.Sample{sample("Hbb", 200, 0.6, 1)},
		Background: []dataset.Sample{sample("ttbar", 200, 0, 0.4), sample("Zjets", 100, 0.1, 0.5)},
	}

	perf, err := eval.PerformanceMetrics(identity{}, samples)
	require.NoError(t, err)

	assert.InDelta(t, 1, perf[eval.AUROCKey], 1e-12)
	assert.Equal(t, 3.0, perf["lambda"])
	for _, key := range []string{
		"KS_50_Hbb", "KS_50_ttbar", "KS_50_Zjets", "KS_50_avg", "KS_50_bkg",
		"KS_25_Hbb", "KS_25_ttbar", "KS_25_Zjets", "KS_25_avg", "KS_25_bkg",
	} {
		v, ok := perf[key]
		require.True(t, ok, "missing %s", key)
		assert.True(t, v >= 0 && v <= 1, "%s=%v", key, v)
	}
	// No background event passes a cut placed inside the signal region.
	assert.Equal(t, 1.0, perf["KS_50_bkg"])
	assert.InDelta(t, (perf["KS_50_Hbb"]+perf["KS_50_ttbar"]+perf["KS_50_Zjets"])/3, perf["KS_50_avg"], 1e-12)
	assert.Len(t, perf, 1+1+2*5)
}

func TestPerformanceMetricsNeedsBothClasses(t *testing.T) {
	_, err := eval.PerformanceMetrics(identity{}, dataset.Samples{Signal: []dataset.Sample{sample("Hbb", 10, 0, 1)}})
	assert.Error(t, err)
}
