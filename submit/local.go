package submit

import (
	"context"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"io/ioutil"
	"path/filepath"
)

// LocalSubmitter runs job scripts on the local machine, one at a time. A script has finished when Submit returns,
// so there are never any active jobs.
type LocalSubmitter struct {
	Runner Runner
	Logger *zap.SugaredLogger
}

// NewLocalSubmitter creates a submitter executing scripts with os/exec. A nil logger discards all messages.
func NewLocalSubmitter(logger *zap.SugaredLogger) LocalSubmitter {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return LocalSubmitter{Runner: ExecRunner{}, Logger: logger}
}

// Submit runs the script and stores its standard output as output.0 next to it.
func (s LocalSubmitter) Submit(ctx context.Context, scriptPath string) error {
	s.Logger.Infof("running %s", scriptPath)
	out, err := s.Runner.Run(ctx, scriptPath)
	if werr := ioutil.WriteFile(filepath.Join(filepath.Dir(scriptPath), "output.0"), out, 0644); werr != nil && err == nil {
		err = werr
	}
	return errors.Wrapf(err, "job %s failed", scriptPath)
}

// ActiveJobIDs always returns an empty set.
func (LocalSubmitter) ActiveJobIDs(context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}
