// Package model contains a reference adversarial environment: a logistic classifier trained jointly with a linear
// adversary that tries to recover the nuisance variables of background events from the classifier output.
package model

import (
	"fmt"
	"github.com/hscells/adversarial/config"
	"github.com/hscells/adversarial/learning"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"math"
)

// ErrNotInitialised is returned when the environment is used before Init.
var ErrNotInitialised = errors.New("environment has not been initialised")

const epsilon = 1e-7

// AdversarialEnvironment implements learning.Environment.
//
// The classifier computes p = sigmoid(w·x + b) on standardised features. The adversary predicts every standardised
// nuisance column k of background events as a[k]·p + c[k]. The classifier minimises its weighted cross entropy minus
// Lambda times the weighted squared error of the adversary, the adversary minimises its squared error.
type AdversarialEnvironment struct {
	conf   config.EnvironmentConfig
	logger *zap.SugaredLogger

	featureMean, featureStd   []float64
	nuisanceMean, nuisanceStd []float64

	w        *mat.VecDense
	velocity *mat.VecDense
	b        float64
	a, c     []float64

	initialised bool
}

// EnvironmentLogger sets the logger loss information is written to.
func EnvironmentLogger(logger *zap.SugaredLogger) func(*AdversarialEnvironment) {
	return func(e *AdversarialEnvironment) {
		e.logger = logger
	}
}

// NewAdversarialEnvironment creates an environment with the given hyper-parameters.
func NewAdversarialEnvironment(conf config.EnvironmentConfig, options ...func(*AdversarialEnvironment)) (*AdversarialEnvironment, error) {
	switch {
	case conf.Lambda < 0:
		return nil, fmt.Errorf("lambda must not be negative, got %v", conf.Lambda)
	case conf.ClassifierRate <= 0:
		return nil, fmt.Errorf("classifier rate must be positive, got %v", conf.ClassifierRate)
	case conf.AdversaryRate <= 0:
		return nil, fmt.Errorf("adversary rate must be positive, got %v", conf.AdversaryRate)
	case conf.AdversarySteps <= 0:
		return nil, fmt.Errorf("adversary steps must be positive, got %v", conf.AdversarySteps)
	case conf.ClassifierMomentum < 0 || conf.ClassifierMomentum >= 1:
		return nil, fmt.Errorf("classifier momentum must lie in [0, 1), got %v", conf.ClassifierMomentum)
	}
	e := &AdversarialEnvironment{
		conf:   conf,
		logger: zap.NewNop().Sugar(),
	}
	for _, option := range options {
		option(e)
	}
	return e, nil
}

// Init sets up the standardisation of features and nuisances from the full training dataset and resets all
// parameters.
func (e *AdversarialEnvironment) Init(data, nuisances mat.Matrix) error {
	r, f := data.Dims()
	rn, k := nuisances.Dims()
	if r == 0 || f == 0 || k == 0 {
		return errors.New("cannot initialise from an empty dataset")
	}
	if r != rn {
		return fmt.Errorf("data has %d rows but nuisances have %d", r, rn)
	}

	e.featureMean, e.featureStd = columnMoments(data)
	e.nuisanceMean, e.nuisanceStd = columnMoments(nuisances)

	e.w = mat.NewVecDense(f, nil)
	e.velocity = mat.NewVecDense(f, nil)
	e.b = 0
	e.a = make([]float64, k)
	e.c = make([]float64, k)
	e.initialised = true
	return nil
}

// TrainAdversary performs AdversarySteps gradient steps on the adversary.
func (e *AdversarialEnvironment) TrainAdversary(batch learning.Batch) error {
	s, err := e.forward(batch)
	if err != nil {
		return err
	}
	for step := 0; step < e.conf.AdversarySteps; step++ {
		ga, gc := e.adversaryGradients(s)
		floats.AddScaled(e.a, -e.conf.AdversaryRate, ga)
		floats.AddScaled(e.c, -e.conf.AdversaryRate, gc)
	}
	return nil
}

// TrainStep performs one gradient step of the classifier on its cross entropy minus Lambda times the adversary loss.
func (e *AdversarialEnvironment) TrainStep(batch learning.Batch) error {
	s, err := e.forward(batch)
	if err != nil {
		return err
	}

	n, f := s.x.Dims()
	gw := make([]float64, f)
	var gb float64

	// Gradient of the weighted cross entropy.
	for i := 0; i < n; i++ {
		d := s.weights[i] * (s.p[i] - s.y[i]) / s.sow
		floats.AddScaled(gw, d, s.x.RawRowView(i))
		gb += d
	}

	// Gradient of the adversary loss with respect to the classifier, through p.
	if s.sowBkg > 0 && e.conf.Lambda > 0 {
		for i := 0; i < n; i++ {
			if !s.bkg[i] {
				continue
			}
			var dp float64
			for k := range e.a {
				dp += 2 * s.residual(i, k, e) * e.a[k]
			}
			d := -e.conf.Lambda * s.weights[i] * dp * s.p[i] * (1 - s.p[i]) / s.sowBkg
			floats.AddScaled(gw, d, s.x.RawRowView(i))
			gb += d
		}
	}

	// v <- momentum·v - rate·g; w <- w + v
	e.velocity.ScaleVec(e.conf.ClassifierMomentum, e.velocity)
	e.velocity.AddScaledVec(e.velocity, -e.conf.ClassifierRate, mat.NewVecDense(f, gw))
	e.w.AddVec(e.w, e.velocity)
	e.b -= e.conf.ClassifierRate * gb
	return nil
}

// DumpLossInformation logs the current losses on the batch.
func (e *AdversarialEnvironment) DumpLossInformation(batch learning.Batch) error {
	stats, err := e.ModelStatistics(batch)
	if err != nil {
		return err
	}
	e.logger.Infow("loss information",
		"classifier_loss", stats["classifier_loss"],
		"adversary_loss", stats["adversary_loss"],
		"total_loss", stats["total_loss"])
	return nil
}

// ModelStatistics returns the classifier, adversary and total losses on the batch together with Lambda.
func (e *AdversarialEnvironment) ModelStatistics(batch learning.Batch) (map[string]float64, error) {
	s, err := e.forward(batch)
	if err != nil {
		return nil, err
	}
	lc := s.classifierLoss()
	la := s.adversaryLoss(e)
	return map[string]float64{
		"classifier_loss": lc,
		"adversary_loss":  la,
		"total_loss":      lc - e.conf.Lambda*la,
		"lambda":          e.conf.Lambda,
	}, nil
}

// Predict returns a row (1-p, p) for each event.
func (e *AdversarialEnvironment) Predict(data mat.Matrix) (*mat.Dense, error) {
	x, err := e.standardise(data)
	if err != nil {
		return nil, err
	}
	p := e.classify(x)
	n := len(p)
	out := mat.NewDense(n, 2, nil)
	for i, v := range p {
		out.Set(i, 0, 1-v)
		out.Set(i, 1, v)
	}
	return out, nil
}

// Parameters returns the hyper-parameters of the environment.
func (e *AdversarialEnvironment) Parameters() map[string]float64 {
	return map[string]float64{
		"lambda":              e.conf.Lambda,
		"classifier_rate":     e.conf.ClassifierRate,
		"adversary_rate":      e.conf.AdversaryRate,
		"adversary_steps":     float64(e.conf.AdversarySteps),
		"classifier_momentum": e.conf.ClassifierMomentum,
	}
}

// state holds the quantities of one forward pass over a batch.
type state struct {
	x       *mat.Dense
	n       *mat.Dense
	p       []float64
	y       []float64
	bkg     []bool
	weights []float64
	sow     float64
	sowBkg  float64
}

func (s state) residual(i, k int, e *AdversarialEnvironment) float64 {
	return e.a[k]*s.p[i] + e.c[k] - s.n.At(i, k)
}

func (s state) classifierLoss() float64 {
	var l float64
	for i, p := range s.p {
		p = math.Min(math.Max(p, epsilon), 1-epsilon)
		l -= s.weights[i] * (s.y[i]*math.Log(p) + (1-s.y[i])*math.Log(1-p))
	}
	return l / s.sow
}

func (s state) adversaryLoss(e *AdversarialEnvironment) float64 {
	if s.sowBkg == 0 {
		return 0
	}
	var l float64
	for i := range s.p {
		if !s.bkg[i] {
			continue
		}
		for k := range e.a {
			r := s.residual(i, k, e)
			l += s.weights[i] * r * r
		}
	}
	return l / s.sowBkg
}

func (e *AdversarialEnvironment) adversaryGradients(s state) (ga, gc []float64) {
	ga = make([]float64, len(e.a))
	gc = make([]float64, len(e.c))
	if s.sowBkg == 0 {
		return ga, gc
	}
	for i := range s.p {
		if !s.bkg[i] {
			continue
		}
		for k := range e.a {
			d := 2 * s.weights[i] * s.residual(i, k, e) / s.sowBkg
			ga[k] += d * s.p[i]
			gc[k] += d
		}
	}
	return ga, gc
}

func (e *AdversarialEnvironment) forward(batch learning.Batch) (state, error) {
	if !e.initialised {
		return state{}, ErrNotInitialised
	}
	m := batch.Len()
	if m == 0 {
		return state{}, errors.New("empty batch")
	}
	if batch.Features == nil || batch.Nuisances == nil || batch.Labels == nil {
		return state{}, errors.New("batch is missing features, nuisances or labels")
	}
	if r, _ := batch.Labels.Dims(); r != m {
		return state{}, fmt.Errorf("batch has %d labels but %d weights", r, m)
	}
	x, err := e.standardise(batch.Features)
	if err != nil {
		return state{}, err
	}
	n, err := e.standardiseNuisances(batch.Nuisances)
	if err != nil {
		return state{}, err
	}
	if r, _ := x.Dims(); r != m {
		return state{}, fmt.Errorf("batch has %d feature rows but %d weights", r, m)
	}
	if r, _ := n.Dims(); r != m {
		return state{}, fmt.Errorf("batch has %d nuisance rows but %d weights", r, m)
	}

	s := state{
		x:       x,
		n:       n,
		p:       e.classify(x),
		y:       make([]float64, m),
		bkg:     make([]bool, m),
		weights: batch.Weights,
		sow:     floats.Sum(batch.Weights),
	}
	for i := 0; i < m; i++ {
		s.y[i] = batch.Labels.At(i, 0)
		if s.y[i] == 0 {
			s.bkg[i] = true
			s.sowBkg += batch.Weights[i]
		}
	}
	if s.sow <= 0 {
		return state{}, errors.New("batch has no weight")
	}
	return s, nil
}

func (e *AdversarialEnvironment) classify(x *mat.Dense) []float64 {
	r, _ := x.Dims()
	z := mat.NewVecDense(r, nil)
	z.MulVec(x, e.w)
	p := make([]float64, r)
	for i := range p {
		p[i] = sigmoid(z.AtVec(i) + e.b)
	}
	return p
}

func (e *AdversarialEnvironment) standardise(data mat.Matrix) (*mat.Dense, error) {
	if !e.initialised {
		return nil, ErrNotInitialised
	}
	return scale(data, e.featureMean, e.featureStd, "feature")
}

func (e *AdversarialEnvironment) standardiseNuisances(data mat.Matrix) (*mat.Dense, error) {
	return scale(data, e.nuisanceMean, e.nuisanceStd, "nuisance")
}

func scale(data mat.Matrix, mean, std []float64, what string) (*mat.Dense, error) {
	r, c := data.Dims()
	if c != len(mean) {
		return nil, fmt.Errorf("expected %d %s columns, got %d", len(mean), what, c)
	}
	if r == 0 {
		return nil, fmt.Errorf("no %s rows", what)
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - mean[j]) / std[j]
	}, data)
	return out, nil
}

func columnMoments(m mat.Matrix) (mean, std []float64) {
	r, c := m.Dims()
	mean = make([]float64, c)
	std = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		mean[j], std[j] = stat.MeanStdDev(col, nil)
		if std[j] == 0 || math.IsNaN(std[j]) {
			std[j] = 1
		}
	}
	return mean, std
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
