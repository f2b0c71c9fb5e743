// Package cmd contains the command-line utilities of the adversarial training pipeline: training a single model,
// launching campaigns of training runs on a cluster, and dumping recorded statistics. It also contains code the
// utilities share.
package cmd

import (
	"fmt"
	"github.com/go-errors/errors"
	"go.uber.org/zap"
	"os"
	"strconv"
	"strings"
)

// Fatal logs err together with the stack it was raised from and exits.
func Fatal(logger *zap.SugaredLogger, err error) {
	logger.Error(errors.Wrap(err, 1).ErrorStack())
	_ = logger.Sync()
	os.Exit(1)
}

// ParseFloats parses a comma separated list of numbers such as "0,10,50".
func ParseFloats(s string) ([]float64, error) {
	var fs []float64
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); len(item) == 0 {
			continue
		}
		f, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", item)
		}
		fs = append(fs, f)
	}
	if len(fs) == 0 {
		return nil, fmt.Errorf("no numbers in %q", s)
	}
	return fs, nil
}
