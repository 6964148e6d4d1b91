// Copyright 2024 bptf Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bptf implements Bayesian probabilistic tensor factorization: a
// collapsed Gibbs sampler over the CP factors of a partially observed 3-way
// tensor, with Gaussian-Wishart priors on the entity factors and a
// first-order random-walk prior on the temporal factor.
package bptf

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/transdim-io/bptf/base/log"
	"github.com/transdim-io/bptf/base/progress"
	"github.com/transdim-io/bptf/model"
	"github.com/transdim-io/bptf/tensor"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Score reports held-out imputation accuracy.
type Score struct {
	MAPE float64
	RMSE float64
}

// FitConfig carries runtime options for a fit, as opposed to the model
// hyper-parameters held in model.Params.
type FitConfig struct {
	Jobs    int // workers for row-parallel sampling
	Verbose int // burn-in diagnostic interval in sweeps
	// optional initial factors; drawn from the model RNG when nil
	InitU, InitV, InitX *mat.Dense
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs:    1,
		Verbose: 200,
	}
}

func (config *FitConfig) SetJobs(jobs int) *FitConfig {
	config.Jobs = jobs
	return config
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetInit(u, v, x *mat.Dense) *FitConfig {
	config.InitU, config.InitV, config.InitX = u, v, x
	return config
}

func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

// BPTF factorizes a 3-way tensor into three rank-R factor matrices by Gibbs
// sampling from their Bayesian posterior and recovers missing entries from
// the posterior-mean reconstruction.
//
// Hyper-parameters:
//
//	NFactors    - The CP rank shared by all three factors. Default is 30.
//	BurnIn      - Discarded warm-up sweeps. Default is 1000.
//	NSamples    - Sweeps accumulated into the posterior mean. Default is 200.
//	Beta0       - Pseudo-count of the Normal-Wishart prior. Default is 1.
//	InitMean    - The mean of initial random factors. Default is 0.
//	InitStdDev  - The standard deviation of initial random factors. Default is 0.1.
type BPTF struct {
	model.BaseModel
	// Chain state, mutated in place every sweep
	U, V, X *mat.Dense
	Tau     float64
	// Posterior means after Fit
	Mean                *tensor.Tensor
	UMean, VMean, XMean *mat.Dense
	// Hyper parameters
	nFactors   int
	burnIn     int
	nSamples   int
	beta0      float64
	initMean   float64
	initStdDev float64
}

// NewBPTF creates a BPTF model.
func NewBPTF(params model.Params) *BPTF {
	b := new(BPTF)
	b.SetParams(params)
	return b
}

// SetParams sets hyper-parameters of the BPTF model.
func (b *BPTF) SetParams(params model.Params) {
	b.BaseModel.SetParams(params)
	b.nFactors = b.Params.GetInt(model.NFactors, 30)
	b.burnIn = b.Params.GetInt(model.BurnIn, 1000)
	b.nSamples = b.Params.GetInt(model.NSamples, 200)
	b.beta0 = b.Params.GetFloat64(model.Beta0, 1)
	b.initMean = b.Params.GetFloat64(model.InitMean, 0)
	b.initStdDev = b.Params.GetFloat64(model.InitStdDev, 0.1)
}

func (b *BPTF) GetParamsGrid(withSize bool) model.ParamsGrid {
	return model.ParamsGrid{
		model.NFactors:   lo.If(withSize, []interface{}{10, 20, 30, 50}).Else([]interface{}{30}),
		model.Beta0:      []interface{}{1.0},
		model.InitStdDev: []interface{}{0.01, 0.1, 0.5},
	}
}

// Predict returns the posterior-mean estimate of entry (i,j,t).
func (b *BPTF) Predict(i, j, t int) float64 {
	return b.Mean.At(i, j, t)
}

// Reconstruction returns the posterior-mean dense tensor.
func (b *BPTF) Reconstruction() *tensor.Tensor {
	return b.Mean
}

func (b *BPTF) Clear() {
	b.U, b.V, b.X = nil, nil, nil
	b.Mean = nil
	b.UMean, b.VMean, b.XMean = nil, nil, nil
}

func (b *BPTF) Invalid() bool {
	return b == nil || b.Mean == nil
}

// validate rejects malformed inputs before the first sweep.
func (b *BPTF) validate(trainSet, testSet *tensor.Tensor, config *FitConfig) error {
	if trainSet == nil {
		return errors.NotValidf("nil train tensor")
	}
	if testSet != nil && !trainSet.SameShape(testSet) {
		return errors.NotValidf("train tensor %dx%dx%d but test tensor %dx%dx%d",
			trainSet.N1, trainSet.N2, trainSet.N3, testSet.N1, testSet.N2, testSet.N3)
	}
	if b.nFactors < 1 {
		return errors.NotValidf("rank %d", b.nFactors)
	}
	if b.burnIn < 0 || b.nSamples < 1 {
		return errors.NotValidf("%d burn-in and %d sampling sweeps", b.burnIn, b.nSamples)
	}
	if trainSet.N3 < 2 {
		return errors.NotValidf("temporal mode with %d steps: the random-walk prior needs at least 2", trainSet.N3)
	}
	for _, init := range []struct {
		m    *mat.Dense
		rows int
		name string
	}{
		{config.InitU, trainSet.N1, "InitU"},
		{config.InitV, trainSet.N2, "InitV"},
		{config.InitX, trainSet.N3, "InitX"},
	} {
		if init.m == nil {
			continue
		}
		rows, cols := init.m.Dims()
		if rows != init.rows || cols != b.nFactors {
			return errors.NotValidf("%s with shape %dx%d, want %dx%d", init.name, rows, cols, init.rows, b.nFactors)
		}
	}
	return nil
}

// Init sets the chain's initial factor matrices, copying explicit ones from
// the config and drawing the rest from the model's generator.
func (b *BPTF) Init(trainSet *tensor.Tensor, config *FitConfig) {
	pick := func(init *mat.Dense, rows int) *mat.Dense {
		if init != nil {
			out := mat.NewDense(rows, b.nFactors, nil)
			out.Copy(init)
			return out
		}
		return b.GetRandomGenerator().NormalMatrix(rows, b.nFactors, b.initMean, b.initStdDev)
	}
	b.U = pick(config.InitU, trainSet.N1)
	b.V = pick(config.InitV, trainSet.N2)
	b.X = pick(config.InitX, trainSet.N3)
	b.Tau = 1
}

// Fit runs the Gibbs chain: BurnIn discarded sweeps followed by NSamples
// sweeps accumulated into the posterior mean. trainSet is the partially
// observed tensor (missing entries NaN, or zero in the no-NaN convention);
// testSet is the fully observed reference used only to score held-out
// entries and may be nil. Each sweep resamples U, V, X and the noise
// precision in this fixed order, conditioning every factor on the freshly
// updated previous ones. The context is checked between sweeps only, so a
// cancelled fit never exposes a partially updated sweep.
func (b *BPTF) Fit(ctx context.Context, trainSet, testSet *tensor.Tensor, config *FitConfig) (Score, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	config = config.LoadDefaultIfNil()
	if err := b.validate(trainSet, testSet, config); err != nil {
		return Score{}, errors.Trace(err)
	}
	log.Logger().Info("fit bptf",
		zap.Int("n1", trainSet.N1), zap.Int("n2", trainSet.N2), zap.Int("n3", trainSet.N3),
		zap.Any("params", b.GetParams()),
		zap.Any("config", config))
	// Convert the NaN convention into zero-filled data plus a mask. The mask
	// is derived once and held constant for the run.
	mask := tensor.Mask(trainSet)
	obs := tensor.ZeroFill(trainSet)
	nObserved := tensor.CountObserved(mask)
	if nObserved == 0 {
		return Score{}, errors.NotValidf("tensor with no observed entries")
	}
	var heldOut []tensor.Position
	if testSet != nil {
		heldOut = tensor.HeldOut(testSet, trainSet)
	}
	if len(heldOut) == 0 {
		log.Logger().Warn("empty held-out set: MAPE and RMSE will be NaN")
	}
	actual := make([]float64, len(heldOut))
	for i, p := range heldOut {
		actual[i] = testSet.At(p.I, p.J, p.T)
	}
	// The unfoldings of the mask and the zero-filled data never change; only
	// their noise weighting does.
	var maskUnfold, obsUnfold [3]*mat.Dense
	for mode := 0; mode < 3; mode++ {
		maskUnfold[mode] = tensor.Unfold(mask, mode)
		obsUnfold[mode] = tensor.Unfold(obs, mode)
	}
	b.Init(trainSet, config)
	// Accumulators: interim held-out predictions (burn-in diagnostics) and
	// the posterior mean (sampling phase only).
	diag := make([]float64, len(heldOut))
	meanAcc := tensor.New(trainSet.N1, trainSet.N2, trainSet.N3)
	uAcc := mat.NewDense(trainSet.N1, b.nFactors, nil)
	vAcc := mat.NewDense(trainSet.N2, b.nFactors, nil)
	xAcc := mat.NewDense(trainSet.N3, b.nFactors, nil)
	totalSweeps := b.burnIn + b.nSamples
	_, span := progress.Start(ctx, "BPTF.Fit", totalSweeps)
	fitStart := time.Now()
	for sweep := 1; sweep <= totalSweeps; sweep++ {
		select {
		case <-ctx.Done():
			span.Fail(ctx.Err())
			return Score{}, errors.Trace(ctx.Err())
		default:
		}
		if err := sampleEntityFactor(b.U, b.X, b.V, maskUnfold[0], obsUnfold[0], b.Tau, b.beta0, config.Jobs, b.GetRandomGenerator()); err != nil {
			span.Fail(err)
			return Score{}, errors.Trace(err)
		}
		if err := sampleEntityFactor(b.V, b.X, b.U, maskUnfold[1], obsUnfold[1], b.Tau, b.beta0, config.Jobs, b.GetRandomGenerator()); err != nil {
			span.Fail(err)
			return Score{}, errors.Trace(err)
		}
		if err := sampleTemporalFactor(b.X, b.U, b.V, maskUnfold[2], obsUnfold[2], b.Tau, b.beta0, b.GetRandomGenerator()); err != nil {
			span.Fail(err)
			return Score{}, errors.Trace(err)
		}
		hat := tensor.FromFactors(b.U, b.V, b.X)
		for i, p := range heldOut {
			diag[i] += hat.At(p.I, p.J, p.T)
		}
		b.Tau = sampleNoisePrecision(obs, hat, mask, b.GetRandomGenerator())
		if sweep > b.burnIn {
			meanAcc.AddTensor(hat)
			uAcc.Add(uAcc, b.U)
			vAcc.Add(vAcc, b.V)
			xAcc.Add(xAcc, b.X)
		}
		if sweep <= b.burnIn && sweep%config.Verbose == 0 {
			interim := make([]float64, len(diag))
			for i := range diag {
				interim[i] = diag[i] / float64(config.Verbose)
				diag[i] = 0
			}
			log.Logger().Info(fmt.Sprintf("fit bptf %v/%v", sweep, totalSweeps),
				zap.Float64("MAPE", MAPE(actual, interim)),
				zap.Float64("RMSE", RMSE(actual, interim)),
				zap.Float64("tau", b.Tau))
		}
		span.Add(1)
	}
	span.End()
	// posterior point estimates
	meanAcc.Scale(1 / float64(b.nSamples))
	b.Mean = meanAcc
	uAcc.Scale(1/float64(b.nSamples), uAcc)
	vAcc.Scale(1/float64(b.nSamples), vAcc)
	xAcc.Scale(1/float64(b.nSamples), xAcc)
	b.UMean, b.VMean, b.XMean = uAcc, vAcc, xAcc
	predicted := make([]float64, len(heldOut))
	for i, p := range heldOut {
		predicted[i] = b.Mean.At(p.I, p.J, p.T)
	}
	score := Score{MAPE: MAPE(actual, predicted), RMSE: RMSE(actual, predicted)}
	log.Logger().Info("fit bptf complete",
		zap.Duration("fit_time", time.Since(fitStart)),
		zap.Int("held_out", len(heldOut)),
		zap.Float64("MAPE", score.MAPE),
		zap.Float64("RMSE", score.RMSE))
	return score, nil
}

// IsMissing reports whether a final prediction had no observation, which is
// exactly when Predict adds information over the input.
func (b *BPTF) IsMissing(trainSet *tensor.Tensor, i, j, t int) bool {
	v := trainSet.At(i, j, t)
	return math.IsNaN(v) || v == 0
}
