package main

import (
	"fmt"
	"github.com/alexflint/go-arg"
	"github.com/hscells/adversarial/learning"
	"github.com/hscells/adversarial/output"
)

type args struct {
	Path   string `arg:"required,positional" help:"path to a persisted training_evolution.json"`
	Format string `help:"output format (json/csv)"`
}

func (args) Version() string {
	return "stats_dump 18.Oct.2026"
}

func (args) Description() string {
	return `prints the statistics recorded during a training run`
}

func main() {
	var args args
	args.Format = "csv"
	arg.MustParse(&args)

	statistics, err := learning.ReadStatistics(args.Path)
	if err != nil {
		panic(err)
	}
	formatters, err := output.ByName(args.Format)
	if err != nil {
		panic(err)
	}

	names := statistics.Names()
	data := make([][]float64, len(names))
	for i, name := range names {
		data[i] = statistics.Series(name)
	}
	s, err := formatters.Statistics(names, data)
	if err != nil {
		panic(err)
	}
	fmt.Print(s)
}
