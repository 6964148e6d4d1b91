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
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmat"
)

// gaussWishart holds one sweep's (mean, precision) draw from a Normal-Wishart
// posterior. It parameterizes the row-wise prior of a factor matrix for
// exactly one sweep and must be redrawn on the next.
type gaussWishart struct {
	mu     *mat.VecDense
	lambda *mat.SymDense
}

// lambdaMu returns lambda * mu, the constant term of each row's posterior
// linear system.
func (gw *gaussWishart) lambdaMu() *mat.VecDense {
	out := mat.NewVecDense(gw.mu.Len(), nil)
	out.MulVec(gw.lambda, gw.mu)
	return out
}

// sampleNormalWishart draws (mu, Lambda) from the Normal-Wishart conjugate
// posterior of an exchangeable factor matrix f (rows are entities):
//
//	W^{-1} = I + S + (n/(n+beta0)) * beta0 * outer(fbar, fbar)
//	Lambda ~ Wishart(df = n+r, scale = W)
//	mu     ~ N((n/(n+beta0)) * fbar, ((n+beta0) * Lambda)^{-1})
//
// where fbar is the row mean and S the scatter matrix of f.
func sampleNormalWishart(f *mat.Dense, beta0 float64, rng base.RandomGenerator) (*gaussWishart, error) {
	n, r := f.Dims()
	fn := float64(n)
	shrink := fn / (fn + beta0)
	// row mean
	fbar := make([]float64, r)
	for i := 0; i < n; i++ {
		for s := 0; s < r; s++ {
			fbar[s] += f.At(i, s)
		}
	}
	for s := 0; s < r; s++ {
		fbar[s] /= fn
	}
	// scatter S = (f - fbar)^T (f - fbar)
	centered := mat.NewDense(n, r, nil)
	for i := 0; i < n; i++ {
		for s := 0; s < r; s++ {
			centered.Set(i, s, f.At(i, s)-fbar[s])
		}
	}
	var scatter mat.Dense
	scatter.Mul(centered.T(), centered)
	// posterior inverse scale
	winv := mat.NewSymDense(r, nil)
	for s := 0; s < r; s++ {
		for q := s; q < r; q++ {
			v := scatter.At(s, q) + shrink*beta0*fbar[s]*fbar[q]
			if s == q {
				v++
			}
			winv.SetSym(s, q, v)
		}
	}
	mean := mat.NewVecDense(r, nil)
	for s := 0; s < r; s++ {
		mean.SetVec(s, shrink*fbar[s])
	}
	return samplePosterior(winv, mean, fn+float64(r), fn+beta0, rng)
}

// sampleChainWishart draws (mu, Lambda) for the temporal factor under the
// Gaussian random-walk prior. The scale matrix is built from first
// differences of x and its initial row rather than from centered rows:
//
//	W^{-1} = I + dx^T dx + beta0 * outer(x[0], x[0]) / (beta0+1)
//	Lambda ~ Wishart(df = n+r, scale = W)
//	mu     ~ N(x[0]/(beta0+1), ((beta0+1) * Lambda)^{-1})
func sampleChainWishart(x *mat.Dense, beta0 float64, rng base.RandomGenerator) (*gaussWishart, error) {
	n, r := x.Dims()
	// first differences
	dx := mat.NewDense(n-1, r, nil)
	for t := 1; t < n; t++ {
		for s := 0; s < r; s++ {
			dx.Set(t-1, s, x.At(t, s)-x.At(t-1, s))
		}
	}
	var scatter mat.Dense
	scatter.Mul(dx.T(), dx)
	winv := mat.NewSymDense(r, nil)
	for s := 0; s < r; s++ {
		for q := s; q < r; q++ {
			v := scatter.At(s, q) + beta0*x.At(0, s)*x.At(0, q)/(beta0+1)
			if s == q {
				v++
			}
			winv.SetSym(s, q, v)
		}
	}
	mean := mat.NewVecDense(r, nil)
	for s := 0; s < r; s++ {
		mean.SetVec(s, x.At(0, s)/(beta0+1))
	}
	return samplePosterior(winv, mean, float64(n+r), beta0+1, rng)
}

// samplePosterior inverts the posterior inverse-scale matrix through its
// Cholesky factorization, draws the precision from the Wishart distribution
// and the mean from the matching normal conditional.
func samplePosterior(winv *mat.SymDense, mean *mat.VecDense, df, meanPrecScale float64, rng base.RandomGenerator) (*gaussWishart, error) {
	r := mean.Len()
	var chol mat.Cholesky
	if !chol.Factorize(winv) {
		return nil, errors.New("bptf: posterior scale matrix is not positive definite")
	}
	w := mat.NewSymDense(r, nil)
	if err := chol.InverseTo(w); err != nil {
		return nil, errors.Trace(err)
	}
	wishart, ok := distmat.NewWishart(w, df, rng.Source())
	if !ok {
		return nil, errors.New("bptf: wishart scale matrix is not positive definite")
	}
	lambda := mat.NewSymDense(r, nil)
	wishart.RandSymTo(lambda)
	scaled := mat.NewSymDense(r, nil)
	scaled.ScaleSym(meanPrecScale, lambda)
	mu, err := MVNPrecision(mean, scaled, rng)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &gaussWishart{mu: mu, lambda: lambda}, nil
}
