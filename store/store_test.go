package store_test

import (
	"github.com/hscells/adversarial/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestDirectory(t *testing.T) {
	dir, err := ioutil.TempDir("", "store")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s := store.NewDirectory(filepath.Join(dir, "nested"))
	assert.False(t, s.Has("perfdict.json"))
	_, err = s.Read("perfdict.json")
	assert.Equal(t, store.ErrNotFound, errors.Cause(err))

	require.NoError(t, s.Write("perfdict.json", []byte("first")))
	require.NoError(t, s.Write("perfdict.json", []byte("second")))
	b, err := s.Read("perfdict.json")
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))

	// Keys are plain files directly inside the directory.
	b, err = ioutil.ReadFile(filepath.Join(dir, "nested", "perfdict.json"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))

	assert.Error(t, s.Write("", nil))
	assert.Error(t, s.Write("a/b", nil))
}

func TestJSON(t *testing.T) {
	dir, err := ioutil.TempDir("", "store")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s := store.NewDirectory(dir)
	v := map[string]float64{"b": 2, "a": 1, "AUROC": 0.5}
	require.NoError(t, store.WriteJSON(s, "v.json", v))
	first, err := s.Read("v.json")
	require.NoError(t, err)
	require.NoError(t, store.WriteJSON(s, "v.json", v))
	second, err := s.Read("v.json")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var read map[string]float64
	require.NoError(t, store.ReadJSON(s, "v.json", &read))
	assert.Equal(t, v, read)
}
