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

package tensor

import (
	"math"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/transdim-io/bptf/base"
)

// Synthetic generates a rank-r ground-truth tensor from random normal
// factors, optionally perturbed by Gaussian noise. Entries that land exactly
// on zero are nudged so the whole tensor qualifies as observed reference.
func Synthetic(rng base.RandomGenerator, n1, n2, n3, rank int, noiseStd float64) *Tensor {
	u := rng.NormalMatrix(n1, rank, 0, 1)
	v := rng.NormalMatrix(n2, rank, 0, 1)
	x := rng.NormalMatrix(n3, rank, 0, 1)
	t := FromFactors(u, v, x)
	for i := range t.Data {
		if noiseStd > 0 {
			t.Data[i] += rng.NormFloat64() * noiseStd
		}
		if t.Data[i] == 0 {
			t.Data[i] = math.SmallestNonzeroFloat64
		}
	}
	return t
}

// MaskRandom hides a fraction of entries uniformly at random, returning a
// copy with hidden entries marked NaN. Distinct positions are drawn with a
// set so the requested count is exact.
func MaskRandom(rng base.RandomGenerator, t *Tensor, rate float64) *Tensor {
	out := t.Clone()
	total := len(out.Data)
	target := int(rate * float64(total))
	hidden := mapset.NewSet[int]()
	for hidden.Cardinality() < target {
		hidden.Add(rng.IntN(total))
	}
	hidden.Each(func(i int) bool {
		out.Data[i] = math.NaN()
		return false
	})
	return out
}

// MaskSlabs hides whole mode-3 fibers for a random fraction of (i,j) pairs,
// the non-random missingness pattern of sensor blackouts: once a pair drops
// out, every time step for it is lost.
func MaskSlabs(rng base.RandomGenerator, t *Tensor, rate float64) *Tensor {
	out := t.Clone()
	total := t.N1 * t.N2
	target := int(rate * float64(total))
	hidden := mapset.NewSet[int]()
	for hidden.Cardinality() < target {
		hidden.Add(rng.IntN(total))
	}
	hidden.Each(func(p int) bool {
		i, j := p/t.N2, p%t.N2
		for k := 0; k < t.N3; k++ {
			out.Set(i, j, k, math.NaN())
		}
		return false
	})
	return out
}
