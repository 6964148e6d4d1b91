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
)

// MVNPrecision draws one sample from N(mu, Lambda^{-1}) where lambda is the
// precision matrix, not the covariance. A failed Cholesky factorization is a
// fatal precondition violation: the caller fed a non-positive-definite
// precision, usually a symptom of degenerate rank or NaNs in the input.
func MVNPrecision(mu *mat.VecDense, lambda *mat.SymDense, rng base.RandomGenerator) (*mat.VecDense, error) {
	var chol mat.Cholesky
	if !chol.Factorize(lambda) {
		return nil, errors.New("mvn: precision matrix is not positive definite")
	}
	z := mat.NewVecDense(mu.Len(), rng.NormalVector(mu.Len(), 0, 1))
	return mvnPrecisionChol(mu, &chol, z)
}

// mvnPrecisionChol finishes a precision-form draw given the Cholesky factor
// of the precision and a standard normal vector z: with Lambda = U^T U, the
// solution y of U y = z has covariance Lambda^{-1}, so the sample is y + mu.
func mvnPrecisionChol(mu *mat.VecDense, chol *mat.Cholesky, z *mat.VecDense) (*mat.VecDense, error) {
	var u mat.TriDense
	chol.UTo(&u)
	y := mat.NewVecDense(mu.Len(), nil)
	if err := y.SolveVec(&u, z); err != nil {
		return nil, errors.Trace(err)
	}
	y.AddVec(y, mu)
	return y, nil
}
