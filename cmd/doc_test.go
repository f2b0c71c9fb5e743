package cmd_test

import (
	"github.com/hscells/adversarial/cmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParseFloats(t *testing.T) {
	fs, err := cmd.ParseFloats("0, 10,50,")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 50}, fs)

	_, err = cmd.ParseFloats("1,x")
	assert.Error(t, err)
	_, err = cmd.ParseFloats(" , ")
	assert.Error(t, err)
}
