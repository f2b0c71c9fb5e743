package output_test

import (
	"github.com/hscells/adversarial/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestCsvStatisticsFormatter(t *testing.T) {
	s, err := output.CsvStatisticsFormatter([]string{"batch", "total_loss"}, [][]float64{{0, 1, 2}, {0.5, 0.25, 0.125}})
	require.NoError(t, err)
	assert.Equal(t, "batch,total_loss\n0,0.5\n1,0.25\n2,0.125\n", s)

	_, err = output.CsvStatisticsFormatter([]string{"batch", "total_loss"}, [][]float64{{0, 1, 2}, {0.5}})
	assert.Error(t, err)
}

func TestJsonStatisticsFormatter(t *testing.T) {
	s, err := output.JsonStatisticsFormatter([]string{"b", "a"}, [][]float64{{1}, {2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": [2], "b": [1]}`, s)
}

func TestCsvPerformanceFormatter(t *testing.T) {
	s, err := output.CsvPerformanceFormatter(map[string]map[string]float64{
		"run2": {"AUROC": 0.75, "lambda": 10},
		"run1": {"AUROC": 0.5, "KS_50_bkg": 0.1},
	})
	require.NoError(t, err)
	assert.Equal(t, "Run,AUROC,KS_50_bkg,lambda\nrun1,0.5,0.1,\nrun2,0.75,,10\n", s)
}

func TestByName(t *testing.T) {
	f, err := output.ByName("json")
	require.NoError(t, err)
	s, err := f.Performance(map[string]map[string]float64{"run": {"AUROC": 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"run": {"AUROC": 1}}`, s)

	_, err = output.ByName("xml")
	assert.Error(t, err)
}
