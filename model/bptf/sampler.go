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

package bptf

import (
	"github.com/juju/errors"
	"github.com/transdim-io/bptf/base"
	"github.com/transdim-io/bptf/base/parallel"
	"github.com/transdim-io/bptf/tensor"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// noiseEps is the shape/rate offset of the diffuse Gamma prior on the
// observation-noise precision.
const noiseEps = 1e-6

// designContributions contracts the Khatri-Rao design built from factors a
// and b with the noise-weighted mask and observation unfoldings of one mode.
// Row i of prec holds the flattened r x r precision contribution of entity i;
// row i of lin holds its r-length linear contribution.
func designContributions(a, b, maskUnfold, obsUnfold *mat.Dense, tau float64) (prec, lin *mat.Dense, err error) {
	design, err := tensor.KhatriRao(a, b)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	selfDesign := tensor.SelfKhatriRao(design)
	var tauMask, tauObs mat.Dense
	tauMask.Scale(tau, maskUnfold)
	tauObs.Scale(tau, obsUnfold)
	prec = &mat.Dense{}
	prec.Mul(&tauMask, selfDesign)
	lin = &mat.Dense{}
	lin.Mul(&tauObs, design)
	return prec, lin, nil
}

// sampleEntityFactor resamples every row of f from its Gaussian conditional
// posterior under the CP model, with the exchangeable Normal-Wishart prior
// redrawn from f's current rows. Rows are conditionally independent given
// the hyperparameters and the opposing factors, so they are distributed over
// the worker pool; the standard normal block is drawn up front from the
// chain's single generator, which keeps results identical for any worker
// count.
func sampleEntityFactor(f, krLeft, krRight, maskUnfold, obsUnfold *mat.Dense, tau, beta0 float64, jobs int, rng base.RandomGenerator) error {
	n, r := f.Dims()
	hyper, err := sampleNormalWishart(f, beta0, rng)
	if err != nil {
		return errors.Trace(err)
	}
	prec, lin, err := designContributions(krLeft, krRight, maskUnfold, obsUnfold, tau)
	if err != nil {
		return errors.Trace(err)
	}
	lambdaMu := hyper.lambdaMu()
	noise := rng.NormalMatrix(n, r, 0, 1)
	return errors.Trace(parallel.Parallel(n, jobs, func(_, i int) error {
		lambdaRow := mat.NewSymDense(r, nil)
		for s := 0; s < r; s++ {
			for q := s; q < r; q++ {
				lambdaRow.SetSym(s, q, prec.At(i, s*r+q)+hyper.lambda.At(s, q))
			}
		}
		rhs := mat.NewVecDense(r, nil)
		for s := 0; s < r; s++ {
			rhs.SetVec(s, lin.At(i, s)+lambdaMu.AtVec(s))
		}
		var chol mat.Cholesky
		if !chol.Factorize(lambdaRow) {
			return errors.New("bptf: row posterior precision is not positive definite")
		}
		mean := mat.NewVecDense(r, nil)
		if err := chol.SolveVecTo(mean, rhs); err != nil {
			return errors.Trace(err)
		}
		z := mat.NewVecDense(r, noise.RawRowView(i))
		row, err := mvnPrecisionChol(mean, &chol, z)
		if err != nil {
			return errors.Trace(err)
		}
		f.SetRow(i, row.RawVector().Data)
		return nil
	}))
}

// sampleTemporalFactor resamples the temporal factor x under its random-walk
// prior. Time steps are coupled through their chain neighbors and are
// processed strictly left to right: each update reads the already-resampled
// left neighbor and the not-yet-resampled right neighbor. This sequential
// policy is deliberate and must not be parallelized; a block sampler with
// full neighbor conditionals would mix differently.
func sampleTemporalFactor(x, u, v, maskUnfold, obsUnfold *mat.Dense, tau, beta0 float64, rng base.RandomGenerator) error {
	n, r := x.Dims()
	hyper, err := sampleChainWishart(x, beta0, rng)
	if err != nil {
		return errors.Trace(err)
	}
	prec, lin, err := designContributions(v, u, maskUnfold, obsUnfold, tau)
	if err != nil {
		return errors.Trace(err)
	}
	twoLambda := mat.NewSymDense(r, nil)
	twoLambda.ScaleSym(2, hyper.lambda)
	for t := 0; t < n; t++ {
		lambdaT := mat.NewSymDense(r, nil)
		prior := hyper.lambda
		if t < n-1 {
			prior = twoLambda
		}
		for s := 0; s < r; s++ {
			for q := s; q < r; q++ {
				lambdaT.SetSym(s, q, prec.At(t, s*r+q)+prior.At(s, q))
			}
		}
		var mean *mat.VecDense
		var chol mat.Cholesky
		if !chol.Factorize(lambdaT) {
			return errors.New("bptf: temporal posterior precision is not positive definite")
		}
		if t == 0 {
			// chain edge shortcut: average the right neighbor and the prior
			// mean, skipping the data-term solve
			mean = mat.NewVecDense(r, nil)
			for s := 0; s < r; s++ {
				mean.SetVec(s, (x.At(1, s)+hyper.mu.AtVec(s))/2)
			}
		} else {
			rhs := mat.NewVecDense(r, nil)
			neighbor := mat.NewVecDense(r, nil)
			for s := 0; s < r; s++ {
				nb := x.At(t-1, s)
				if t < n-1 {
					nb += x.At(t+1, s)
				}
				neighbor.SetVec(s, nb)
			}
			rhs.MulVec(hyper.lambda, neighbor)
			for s := 0; s < r; s++ {
				rhs.SetVec(s, rhs.AtVec(s)+lin.At(t, s))
			}
			mean = mat.NewVecDense(r, nil)
			if err := chol.SolveVecTo(mean, rhs); err != nil {
				return errors.Trace(err)
			}
		}
		z := mat.NewVecDense(r, rng.NormalVector(r, 0, 1))
		row, err := mvnPrecisionChol(mean, &chol, z)
		if err != nil {
			return errors.Trace(err)
		}
		x.SetRow(t, row.RawVector().Data)
	}
	return nil
}

// sampleNoisePrecision draws the shared observation-noise precision from its
// Gamma conditional posterior given squared residuals at observed entries.
func sampleNoisePrecision(obs, hat, mask *tensor.Tensor, rng base.RandomGenerator) float64 {
	count := 0
	sumSq := 0.0
	for i, m := range mask.Data {
		if m != 0 {
			d := obs.Data[i] - hat.Data[i]
			sumSq += d * d
			count++
		}
	}
	gamma := distuv.Gamma{
		Alpha: noiseEps + 0.5*float64(count),
		Beta:  noiseEps + 0.5*sumSq,
		Src:   rng.Source(),
	}
	return gamma.Rand()
}
