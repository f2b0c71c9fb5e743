package config_test

import (
	"bytes"
	"github.com/hscells/adversarial/config"
	"github.com/magiconair/properties"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, config.Default().Validate())
}

func TestFromProperties(t *testing.T) {
	p := properties.MustLoadString(`
TrainingConfig.pretrain_batches = 5
TrainingConfig.training_batches = 10.0
TrainingConfig.batch_size = 20
TrainingConfig.training_branches = mBB, dRBB
TrainingConfig.bkg_samples = ttbar,Zjets
TrainingConfig.bkg_sampling_lengths = 0.5,1
TrainingConfig.test_slice = 0.5,1.0
TrainingConfig.sample_reweighting.ttbar = 2.5

AdversarialEnvironment.lambda = 30
AdversarialEnvironment.adversary_steps = 3
`)
	c, err := config.FromProperties(config.Default(), p)
	require.NoError(t, err)

	assert.Equal(t, 5, c.PretrainBatches)
	assert.Equal(t, 10, c.TrainingBatches)
	assert.Equal(t, 20, c.BatchSize)
	assert.Equal(t, []string{"mBB", "dRBB"}, c.TrainingBranches)
	assert.Equal(t, []string{"ttbar", "Zjets"}, c.BkgSamples)
	assert.Equal(t, []float64{0.5, 1}, c.BkgSamplingLengths)
	assert.Equal(t, config.Slice{Lo: 0.5, Hi: 1}, c.TestSlice)
	assert.Equal(t, 2.5, c.Reweighting("ttbar"))
	assert.Equal(t, 1.0, c.Reweighting("Zjets"))
	assert.Equal(t, 30.0, c.Environment.Lambda)
	assert.Equal(t, 3, c.Environment.AdversarySteps)

	// Unset values keep their defaults and the base is left untouched.
	assert.Equal(t, config.Default().PrintoutInterval, c.PrintoutInterval)
	assert.Equal(t, 1.0, config.Default().Reweighting("ttbar"))
}

func TestFromPropertiesRejectsBadValues(t *testing.T) {
	for _, s := range []string{
		"TrainingConfig.batch_size = many",
		"TrainingConfig.batch_size = 2.5",
		"TrainingConfig.batch_size = 0",
		"TrainingConfig.weight_tolerance = 1.5",
		"TrainingConfig.training_slice = 0.5",
		"TrainingConfig.training_slice = 0.6,0.2",
		"TrainingConfig.bkg_sampling_lengths = 1,1",
		"TrainingConfig.sample_reweighting.ttbar = -1",
		"AdversarialEnvironment.lambda = x",
	} {
		_, err := config.FromProperties(config.Default(), properties.MustLoadString(s))
		assert.Error(t, err, s)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	c := config.Default()
	c.BatchSize = 64
	c.Seed = 99
	c.SampleReweighting["ttbar"] = 0.25
	c.Environment.Lambda = 7.5

	var b bytes.Buffer
	require.NoError(t, config.Encode(&b, c))

	p, err := properties.Load(b.Bytes(), properties.UTF8)
	require.NoError(t, err)
	read, err := config.FromProperties(config.Default(), p)
	require.NoError(t, err)
	assert.Equal(t, c, read)
}

func TestWriteAndFromFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	c := config.Default()
	c.TrainingBatches = 3
	require.NoError(t, config.Write(dir, c))
	assert.FileExists(t, filepath.Join(dir, config.MetaFile))

	read, err := config.FromFile(dir)
	require.NoError(t, err)
	assert.Equal(t, c, read)

	_, err = config.FromFile(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
