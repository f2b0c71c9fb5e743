package main

import (
	"fmt"
	"github.com/alexflint/go-arg"
	"github.com/hscells/adversarial"
	"github.com/hscells/adversarial/cmd"
	"github.com/hscells/adversarial/config"
	"github.com/hscells/adversarial/dataset"
	"github.com/hscells/adversarial/eval"
	"github.com/hscells/adversarial/logging"
	"github.com/hscells/adversarial/model"
	"github.com/hscells/adversarial/output"
	"os"
)

var (
	name    = "train_adversary"
	version = "18.Oct.2026"
)

type args struct {
	Data     string `arg:"required" help:"directory holding one <sample>.csv file per sample"`
	Config   string `help:"directory holding meta.conf (defaults are used when omitted)"`
	Output   string `arg:"required" help:"directory the statistics and performance dictionary are written to"`
	Format   string `help:"format the statistics are printed in (json/csv)"`
	NoEval   bool   `arg:"--no-eval" help:"skip the evaluation on the test slice"`
	Progress bool   `help:"show progress bars"`
	Debug    bool   `help:"log debug messages"`
}

func (args) Version() string {
	return version
}

func (args) Description() string {
	return fmt.Sprintf(`%s
trains a classifier against an adversary penalising its dependence on the nuisance variables
# %s`, name, version)
}

func main() {
	var args args
	args.Format = "json"
	arg.MustParse(&args)

	logger := logging.New(args.Debug)
	defer logger.Sync()

	conf := config.Default()
	if len(args.Config) > 0 {
		var err error
		conf, err = config.FromFile(args.Config)
		if err != nil {
			cmd.Fatal(logger, err)
		}
	}

	formatters, err := output.ByName(args.Format)
	if err != nil {
		cmd.Fatal(logger, err)
	}
	src, err := dataset.NewCSVSource(args.Data)
	if err != nil {
		cmd.Fatal(logger, err)
	}
	env, err := model.NewAdversarialEnvironment(conf.Environment, model.EnvironmentLogger(logger))
	if err != nil {
		cmd.Fatal(logger, err)
	}

	components := []func() interface{}{
		adversarial.OutputDirectory(args.Output),
		adversarial.Logger(logger),
		adversarial.StatisticsOutput(formatters.Statistics),
		adversarial.PerformanceOutput(formatters.Performance),
	}
	if !args.NoEval {
		components = append(components, adversarial.Evaluation(eval.NewEvaluator()))
	}
	if args.Progress {
		components = append(components, adversarial.Progress(os.Stderr))
	}
	p := adversarial.NewPipeline(conf, src, env, components...)

	c := make(chan adversarial.PipelineResult)
	go p.Execute(c)
	for result := range c {
		switch result.Type {
		case adversarial.Error:
			cmd.Fatal(logger, result.Error)
		case adversarial.Statistics, adversarial.Performance:
			for _, s := range result.Formatted {
				fmt.Println(s)
			}
		case adversarial.Done:
			logger.Infof("run complete, results in %s", args.Output)
		}
	}
}
