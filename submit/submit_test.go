package submit_test

import (
	"context"
	"github.com/hscells/adversarial/config"
	"github.com/hscells/adversarial/submit"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeRunner fails the first failures calls and then answers with out.
type fakeRunner struct {
	failures int
	out      string
	calls    [][]string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if len(r.calls) <= r.failures {
		return nil, errors.New("scheduler unavailable")
	}
	return []byte(r.out), nil
}

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "submit")
	require.NoError(t, err)
	return dir
}

func TestCondorSubmitRetries(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	runner := &fakeRunner{failures: 2}
	s := submit.NewCondorSubmitter(submit.CondorRunner(runner), submit.CondorBackoff(time.Millisecond))
	script := filepath.Join(dir, "run.sh")
	require.NoError(t, s.Submit(context.Background(), script))

	require.Len(t, runner.calls, 3)
	submitFile := filepath.Join(dir, "run.submit")
	assert.Equal(t, []string{"condor_submit", submitFile}, runner.calls[2])

	b, err := ioutil.ReadFile(submitFile)
	require.NoError(t, err)
	lines := strings.Split(string(b), "\n")
	assert.Equal(t, "executable = "+script, lines[0])
	assert.Contains(t, lines, "universe = vanilla")
	assert.Contains(t, lines, "output = "+filepath.Join(dir, "output.$(Process)"))
	assert.Contains(t, lines, "request_memory = 10000")
	assert.Equal(t, "queue 1", lines[len(lines)-1])
}

func TestCondorSubmitStopsWithContext(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s := submit.NewCondorSubmitter(submit.CondorRunner(&fakeRunner{failures: 1 << 30}), submit.CondorBackoff(time.Millisecond))
	err := s.Submit(ctx, filepath.Join(dir, "run.sh"))
	require.Error(t, err)
	assert.Equal(t, context.DeadlineExceeded, errors.Cause(err))
}

func TestActiveJobIDs(t *testing.T) {
	runner := &fakeRunner{failures: 1, out: "ClusterId = 17\nJobStatus = 2\nClusterId=18\n\nClusterId = 17\n"}
	s := submit.NewCondorSubmitter(submit.CondorRunner(runner), submit.CondorBackoff(time.Millisecond))
	ids, err := s.ActiveJobIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"17": {}, "18": {}}, ids)
	assert.Equal(t, []string{"condor_q", "-alluser", "-long", "-af", "JOB_IDS"}, runner.calls[1])
}

// recorder remembers the scripts it was asked to submit.
type recorder struct {
	scripts []string
	active  []map[string]struct{}
}

func (r *recorder) Submit(ctx context.Context, scriptPath string) error {
	r.scripts = append(r.scripts, scriptPath)
	return nil
}

func (r *recorder) ActiveJobIDs(ctx context.Context) (map[string]struct{}, error) {
	if len(r.active) == 0 {
		return map[string]struct{}{}, nil
	}
	a := r.active[0]
	r.active = r.active[1:]
	return a, nil
}

func TestCampaign(t *testing.T) {
	root := tempDir(t)
	defer os.RemoveAll(root)

	r := &recorder{active: []map[string]struct{}{{"1": {}, "2": {}}, {"1": {}}}}
	c := submit.Campaign{
		Root:      root,
		Command:   "/usr/bin/train_adversary",
		DataDir:   "/data",
		MaxActive: 2,
		Poll:      time.Millisecond,
		Submitter: r,
	}
	dirs, err := c.Run(context.Background(), submit.LambdaScan(config.Default(), []float64{0, 10, 50}))
	require.NoError(t, err)
	require.Len(t, dirs, 3)
	require.Len(t, r.scripts, 3)

	for i, lambda := range []float64{0, 10, 50} {
		conf, err := config.FromFile(dirs[i])
		require.NoError(t, err)
		assert.Equal(t, lambda, conf.Environment.Lambda)

		script, err := ioutil.ReadFile(r.scripts[i])
		require.NoError(t, err)
		assert.Contains(t, string(script), "/usr/bin/train_adversary --data /data --config "+dirs[i])
	}
	assert.NotEqual(t, dirs[0], dirs[1])
}

func TestLocalSubmitter(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	runner := &fakeRunner{out: "done\n"}
	s := submit.NewLocalSubmitter(nil)
	s.Runner = runner
	script := filepath.Join(dir, "run.sh")
	require.NoError(t, s.Submit(context.Background(), script))

	b, err := ioutil.ReadFile(filepath.Join(dir, "output.0"))
	require.NoError(t, err)
	assert.Equal(t, "done\n", string(b))

	ids, err := s.ActiveJobIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	outputs, err := submit.Outputs([]string{dir, filepath.Join(dir, "missing")}, "output.0")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{filepath.Base(dir): []byte("done\n")}, outputs)
}
