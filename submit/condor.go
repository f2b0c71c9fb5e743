package submit

import (
	"bytes"
	"context"
	"fmt"
	"go.uber.org/zap"
	"io/ioutil"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var clusterID = regexp.MustCompile(`^ClusterId\s*=\s*(.+)`)

// CondorSubmitter submits job scripts to HTCondor with condor_submit and lists jobs with condor_q.
type CondorSubmitter struct {
	runner        Runner
	backoff       time.Duration
	requestCPUs   int
	requestMemory int
	logger        *zap.SugaredLogger
}

// CondorRunner sets the runner the condor commands are executed with.
func CondorRunner(runner Runner) func(*CondorSubmitter) {
	return func(s *CondorSubmitter) {
		s.runner = runner
	}
}

// CondorBackoff sets the pause between attempts of a failed condor command.
func CondorBackoff(backoff time.Duration) func(*CondorSubmitter) {
	return func(s *CondorSubmitter) {
		s.backoff = backoff
	}
}

// CondorResources sets the cpus and memory (in MB) requested for each job.
func CondorResources(cpus, memory int) func(*CondorSubmitter) {
	return func(s *CondorSubmitter) {
		s.requestCPUs = cpus
		s.requestMemory = memory
	}
}

// CondorLogger sets the logger submissions and retries are reported to.
func CondorLogger(logger *zap.SugaredLogger) func(*CondorSubmitter) {
	return func(s *CondorSubmitter) {
		s.logger = logger
	}
}

// NewCondorSubmitter creates a submitter requesting one cpu and 10000 MB per job.
func NewCondorSubmitter(options ...func(*CondorSubmitter)) CondorSubmitter {
	s := CondorSubmitter{
		runner:        ExecRunner{},
		backoff:       DefaultBackoff,
		requestCPUs:   1,
		requestMemory: 10000,
		logger:        zap.NewNop().Sugar(),
	}
	for _, option := range options {
		option(&s)
	}
	return s
}

// SubmitFile returns the submit description of a job script. The output, error and log files of the job are placed
// next to the script.
func (s CondorSubmitter) SubmitFile(scriptPath string) string {
	dir := filepath.Dir(scriptPath)
	var b bytes.Buffer
	fmt.Fprintf(&b, "executable = %s\n", scriptPath)
	fmt.Fprintln(&b, "universe = vanilla")
	fmt.Fprintf(&b, "output = %s\n", filepath.Join(dir, "output.$(Process)"))
	fmt.Fprintf(&b, "error = %s\n", filepath.Join(dir, "error.$(Process)"))
	fmt.Fprintf(&b, "log = %s\n", filepath.Join(dir, "log.$(Process)"))
	fmt.Fprintln(&b, "notification = never")
	fmt.Fprintf(&b, "request_cpus = %d\n", s.requestCPUs)
	fmt.Fprintf(&b, "request_memory = %d\n", s.requestMemory)
	fmt.Fprint(&b, "queue 1")
	return b.String()
}

// Submit writes <script>.submit and hands it to condor_submit, retrying until it is accepted or ctx is done.
func (s CondorSubmitter) Submit(ctx context.Context, scriptPath string) error {
	submitPath := strings.TrimSuffix(scriptPath, filepath.Ext(scriptPath)) + ".submit"
	if err := ioutil.WriteFile(submitPath, []byte(s.SubmitFile(scriptPath)), 0644); err != nil {
		return err
	}
	err := retry(ctx, s.backoff, s.logger, "submitter", func() error {
		_, err := s.runner.Run(ctx, "condor_submit", submitPath)
		return err
	})
	if err != nil {
		return err
	}
	s.logger.Infof("submitted %s", submitPath)
	return nil
}

// ActiveJobIDs returns the cluster ids of all jobs in the queue, retrying condor_q until it succeeds or ctx is done.
func (s CondorSubmitter) ActiveJobIDs(ctx context.Context) (map[string]struct{}, error) {
	var out []byte
	err := retry(ctx, s.backoff, s.logger, "job lister", func() error {
		var err error
		out, err = s.runner.Run(ctx, "condor_q", "-alluser", "-long", "-af", "JOB_IDS")
		return err
	})
	if err != nil {
		return nil, err
	}
	return ParseClusterIDs(string(out)), nil
}

// ParseClusterIDs extracts the values of the "ClusterId = <id>" lines of condor_q output.
func ParseClusterIDs(s string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, line := range strings.Split(s, "\n") {
		if m := clusterID.FindStringSubmatch(line); m != nil {
			ids[strings.TrimSpace(m[1])] = struct{}{}
		}
	}
	return ids
}
