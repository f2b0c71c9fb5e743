package main

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/alexflint/go-arg"
	"github.com/dustin/go-humanize"
	"github.com/hscells/adversarial"
	"github.com/hscells/adversarial/cmd"
	"github.com/hscells/adversarial/config"
	"github.com/hscells/adversarial/logging"
	"github.com/hscells/adversarial/output"
	"github.com/hscells/adversarial/submit"
	"os"
	"os/signal"
	"time"
)

var (
	name    = "submit_campaign"
	version = "18.Oct.2026"
)

type args struct {
	Root      string        `arg:"required" help:"directory the run directories are created in"`
	Data      string        `arg:"required" help:"directory holding the sample CSV files"`
	Config    string        `help:"directory holding the base meta.conf (defaults are used when omitted)"`
	Command   string        `help:"training executable run by each job"`
	Lambdas   string        `help:"comma separated values of lambda to scan"`
	Local     bool          `help:"run the jobs one after another on this machine instead of on condor"`
	MaxActive int           `help:"maximum number of queued jobs, zero for no limit"`
	Backoff   time.Duration `help:"pause between attempts of failed condor commands"`
	Wait      bool          `help:"wait for all jobs to leave the queue and print the collected performance"`
	Debug     bool          `help:"log debug messages"`
}

func (args) Version() string {
	return version
}

func (args) Description() string {
	return fmt.Sprintf(`%s
launches one training run per value of lambda
# %s`, name, version)
}

func main() {
	var args args
	args.Command = "train_adversary"
	args.Lambdas = "0,1,5,10,20,50"
	args.Backoff = submit.DefaultBackoff
	arg.MustParse(&args)

	logger := logging.New(args.Debug)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		logger.Warn("interrupted, stopping")
		cancel()
	}()

	base := config.Default()
	if len(args.Config) > 0 {
		var err error
		base, err = config.FromFile(args.Config)
		if err != nil {
			cmd.Fatal(logger, err)
		}
	}
	lambdas, err := cmd.ParseFloats(args.Lambdas)
	if err != nil {
		cmd.Fatal(logger, err)
	}

	var s submit.Submitter
	if args.Local {
		s = submit.NewLocalSubmitter(logger)
	} else {
		s = submit.NewCondorSubmitter(submit.CondorBackoff(args.Backoff), submit.CondorLogger(logger))
	}
	campaign := submit.Campaign{
		Root:      args.Root,
		Command:   args.Command,
		DataDir:   args.Data,
		MaxActive: args.MaxActive,
		Poll:      args.Backoff,
		Submitter: s,
		Logger:    logger,
	}

	dirs, err := campaign.Run(ctx, submit.LambdaScan(base, lambdas))
	if err != nil {
		cmd.Fatal(logger, err)
	}
	logger.Infof("launched %s runs", humanize.Comma(int64(len(dirs))))
	if !args.Wait {
		return
	}

	for {
		active, err := s.ActiveJobIDs(ctx)
		if err != nil {
			cmd.Fatal(logger, err)
		}
		if len(active) == 0 {
			break
		}
		logger.Infof("%d jobs still active", len(active))
		select {
		case <-ctx.Done():
			cmd.Fatal(logger, ctx.Err())
		case <-time.After(30 * time.Second):
		}
	}

	outputs, err := submit.Outputs(dirs, adversarial.PerformanceFile)
	if err != nil {
		cmd.Fatal(logger, err)
	}
	results := make(map[string]map[string]float64, len(outputs))
	for run, b := range outputs {
		var perf map[string]float64
		if err := json.Unmarshal(b, &perf); err != nil {
			cmd.Fatal(logger, err)
		}
		results[run] = perf
	}
	logger.Infof("collected %d of %d performance dictionaries", len(results), len(dirs))
	table, err := output.CsvPerformanceFormatter(results)
	if err != nil {
		cmd.Fatal(logger, err)
	}
	fmt.Print(table)
}
