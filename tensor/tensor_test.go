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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/transdim-io/bptf/base"
	"gonum.org/v1/gonum/mat"
)

func TestUnfoldFoldRoundTrip(t *testing.T) {
	rng := base.NewRandomGenerator(0)
	ten := NewFromData(2, 3, 4, rng.NormalVector(24, 0, 1))
	for mode := 0; mode < 3; mode++ {
		m := Unfold(ten, mode)
		back := Fold(m, mode, 2, 3, 4)
		assert.Equal(t, ten.Data, back.Data, "mode %d", mode)
	}
}

func TestUnfoldShapes(t *testing.T) {
	ten := New(2, 3, 4)
	r, c := Unfold(ten, 0).Dims()
	assert.Equal(t, []int{2, 12}, []int{r, c})
	r, c = Unfold(ten, 1).Dims()
	assert.Equal(t, []int{3, 8}, []int{r, c})
	r, c = Unfold(ten, 2).Dims()
	assert.Equal(t, []int{4, 6}, []int{r, c})
}

func TestKhatriRao(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{
		1, 2,
		3, 4,
	})
	b := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		2, 2,
	})
	kr, err := KhatriRao(a, b)
	assert.NoError(t, err)
	r, c := kr.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 2, c)
	// column s is the Kronecker product of the s-th columns of a and b
	expected := mat.NewDense(6, 2, []float64{
		1, 0,
		0, 2,
		2, 4,
		3, 0,
		0, 4,
		6, 8,
	})
	assert.True(t, mat.EqualApprox(expected, kr, 1e-12))
	// mismatched columns
	_, err = KhatriRao(a, mat.NewDense(2, 3, nil))
	assert.Error(t, err)
}

func TestSelfKhatriRao(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{
		1, 2,
		3, 4,
	})
	out := SelfKhatriRao(m)
	r, c := out.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 4, c)
	assert.Equal(t, []float64{1, 2, 2, 4}, out.RawRowView(0))
	assert.Equal(t, []float64{9, 12, 12, 16}, out.RawRowView(1))
}

// The mode-0 unfolding of a CP reconstruction must equal U times the
// transposed Khatri-Rao product of X and V. This ties the column ordering of
// Unfold to the row ordering of KhatriRao, which the factor samplers rely on.
func TestUnfoldKhatriRaoConsistency(t *testing.T) {
	rng := base.NewRandomGenerator(1)
	u := rng.NormalMatrix(3, 2, 0, 1)
	v := rng.NormalMatrix(4, 2, 0, 1)
	x := rng.NormalMatrix(5, 2, 0, 1)
	ten := FromFactors(u, v, x)

	kr0, err := KhatriRao(x, v)
	assert.NoError(t, err)
	var expected mat.Dense
	expected.Mul(u, kr0.T())
	assert.True(t, mat.EqualApprox(&expected, Unfold(ten, 0), 1e-12))

	kr1, err := KhatriRao(x, u)
	assert.NoError(t, err)
	expected.Reset()
	expected.Mul(v, kr1.T())
	assert.True(t, mat.EqualApprox(&expected, Unfold(ten, 1), 1e-12))

	kr2, err := KhatriRao(v, u)
	assert.NoError(t, err)
	expected.Reset()
	expected.Mul(x, kr2.T())
	assert.True(t, mat.EqualApprox(&expected, Unfold(ten, 2), 1e-12))
}

func TestFromFactors(t *testing.T) {
	u := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	v := mat.NewDense(2, 2, []float64{1, 1, 2, 1})
	x := mat.NewDense(2, 2, []float64{1, 2, 1, 3})
	ten := FromFactors(u, v, x)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				sum := 0.0
				for s := 0; s < 2; s++ {
					sum += u.At(i, s) * v.At(j, s) * x.At(k, s)
				}
				assert.InDelta(t, sum, ten.At(i, j, k), 1e-12)
			}
		}
	}
}

func TestTensorAccumulate(t *testing.T) {
	a := NewFromData(1, 1, 2, []float64{1, 2})
	b := NewFromData(1, 1, 2, []float64{3, 4})
	a.AddTensor(b)
	a.Scale(0.5)
	assert.Equal(t, []float64{2, 3}, a.Data)
}
