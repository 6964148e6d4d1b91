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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/transdim-io/bptf/base"
	"github.com/transdim-io/bptf/tensor"
	"gonum.org/v1/gonum/mat"
)

func TestSampleNoisePrecision(t *testing.T) {
	rng := base.NewRandomGenerator(3)
	obs := tensor.Synthetic(rng, 10, 10, 10, 2, 0)
	mask := tensor.Mask(obs)
	hat := obs.Clone()
	// every residual is exactly 0.1, so sumSq = 0.01 * 1000 and the posterior
	// mean shape/rate ~ 500/5 = 100 is tightly concentrated
	for i := range hat.Data {
		hat.Data[i] += 0.1
	}
	acc := 0.0
	const draws = 100
	for i := 0; i < draws; i++ {
		acc += sampleNoisePrecision(obs, hat, mask, rng)
	}
	mean := acc / draws
	assert.InDelta(t, 100, mean, 10)
}

func TestSampleEntityFactorJobsInvariant(t *testing.T) {
	// The noise block is drawn before the worker pool splits rows, so the
	// resampled factor must not depend on the worker count.
	build := func(jobs int) *mat.Dense {
		rng := base.NewRandomGenerator(5)
		u := rng.NormalMatrix(6, 2, 0, 0.1)
		v := rng.NormalMatrix(5, 2, 0, 0.1)
		x := rng.NormalMatrix(4, 2, 0, 0.1)
		obs := tensor.FromFactors(u, v, x)
		mask := tensor.Mask(obs)
		maskUnfold := tensor.Unfold(mask, 0)
		obsUnfold := tensor.Unfold(tensor.ZeroFill(obs), 0)
		err := sampleEntityFactor(u, x, v, maskUnfold, obsUnfold, 1, 1, jobs, rng)
		assert.NoError(t, err)
		return u
	}
	serial := build(1)
	pooled := build(4)
	assert.True(t, mat.EqualApprox(serial, pooled, 1e-12))
}

func TestSampleTemporalFactorTracksData(t *testing.T) {
	// With a huge noise precision the conditional posterior of each interior
	// time step is pinned to the data, so resampling from a perturbed start
	// must move the factor toward the generating one.
	rng := base.NewRandomGenerator(8)
	u := rng.NormalMatrix(12, 2, 0, 1)
	v := rng.NormalMatrix(12, 2, 0, 1)
	xTrue := rng.NormalMatrix(10, 2, 0, 1)
	obs := tensor.FromFactors(u, v, xTrue)
	mask := tensor.Mask(obs)
	maskUnfold := tensor.Unfold(mask, 2)
	obsUnfold := tensor.Unfold(tensor.ZeroFill(obs), 2)
	x := mat.NewDense(10, 2, nil)
	x.Copy(xTrue)
	for t2 := 0; t2 < 10; t2++ {
		for s := 0; s < 2; s++ {
			x.Set(t2, s, x.At(t2, s)+0.5)
		}
	}
	// row 0 uses the chain-edge shortcut without a data term, so only the
	// data-informed rows are compared
	before := rowDistance(x, xTrue, 1)
	err := sampleTemporalFactor(x, u, v, maskUnfold, obsUnfold, 1e6, 1, rng)
	assert.NoError(t, err)
	assert.Less(t, rowDistance(x, xTrue, 1), before)
}

func rowDistance(a, b *mat.Dense, from int) float64 {
	n, r := a.Dims()
	sum := 0.0
	for i := from; i < n; i++ {
		for s := 0; s < r; s++ {
			d := a.At(i, s) - b.At(i, s)
			sum += d * d
		}
	}
	return sum
}
