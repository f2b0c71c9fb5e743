package submit

import (
	"context"
	"github.com/google/uuid"
	"github.com/hscells/adversarial/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"io/ioutil"
	"os"
	"path/filepath"
	"text/template"
	"time"
)

// ScriptName is the name of the job script written into every run directory.
const ScriptName = "run.sh"

var jobScript = template.Must(template.New("job").Parse(`#!/bin/bash
{{.Command}} --data {{.DataDir}} --config {{.RunDir}} --output {{.RunDir}}
`))

// Campaign launches one training run per configuration. Every run gets its own directory below Root, named by a
// random UUID, holding the meta.conf of the run and the job script that trains it.
type Campaign struct {
	// Root is the directory the run directories are created in.
	Root string
	// Command is the training executable called by each job.
	Command string
	// DataDir is passed to the training executable.
	DataDir string
	// MaxActive bounds the number of jobs queued at once; zero means no bound.
	MaxActive int
	// Poll is the pause between two checks of the active jobs while waiting for a free slot.
	Poll time.Duration

	Submitter Submitter
	Logger    *zap.SugaredLogger
}

// LambdaScan returns one copy of base per value of the adversarial strength lambda.
func LambdaScan(base config.TrainingConfig, lambdas []float64) []config.TrainingConfig {
	confs := make([]config.TrainingConfig, len(lambdas))
	for i, lambda := range lambdas {
		confs[i] = base
		confs[i].Environment.Lambda = lambda
	}
	return confs
}

// Prepare creates the run directory of conf and returns the path of its job script.
func (c Campaign) Prepare(conf config.TrainingConfig) (string, error) {
	if err := conf.Validate(); err != nil {
		return "", err
	}
	dir := filepath.Join(c.Root, uuid.New().String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	if err := config.Write(dir, conf); err != nil {
		return "", errors.Wrapf(err, "could not write configuration to %s", dir)
	}

	script := filepath.Join(dir, ScriptName)
	f, err := os.OpenFile(script, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return "", err
	}
	defer f.Close()
	err = jobScript.Execute(f, struct {
		Command, DataDir, RunDir string
	}{c.Command, c.DataDir, dir})
	if err != nil {
		return "", err
	}
	return script, nil
}

// Run prepares and submits every configuration in turn and returns the run directories.
func (c Campaign) Run(ctx context.Context, confs []config.TrainingConfig) ([]string, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	var dirs []string
	for i, conf := range confs {
		if err := c.waitForSlot(ctx, logger); err != nil {
			return dirs, err
		}
		script, err := c.Prepare(conf)
		if err != nil {
			return dirs, errors.Wrapf(err, "run %d", i)
		}
		if err := c.Submitter.Submit(ctx, script); err != nil {
			return dirs, errors.Wrapf(err, "run %d", i)
		}
		dirs = append(dirs, filepath.Dir(script))
		logger.Infow("launched run", "run", i, "dir", filepath.Dir(script), "lambda", conf.Environment.Lambda)
	}
	return dirs, nil
}

func (c Campaign) waitForSlot(ctx context.Context, logger *zap.SugaredLogger) error {
	if c.MaxActive <= 0 {
		return nil
	}
	poll := c.Poll
	if poll <= 0 {
		poll = DefaultBackoff
	}
	for {
		active, err := c.Submitter.ActiveJobIDs(ctx)
		if err != nil {
			return err
		}
		if len(active) < c.MaxActive {
			return nil
		}
		logger.Debugw("waiting for a free slot", "active", len(active))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

// Outputs returns the contents of file in every run directory, keyed by directory name, skipping runs that have not
// produced it.
func Outputs(dirs []string, file string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, dir := range dirs {
		b, err := ioutil.ReadFile(filepath.Join(dir, file))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[filepath.Base(dir)] = b
	}
	return out, nil
}
