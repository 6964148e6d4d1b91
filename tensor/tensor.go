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

// Package tensor provides dense 3-way tensors and the matricization
// primitives used by tensor factorization models.
package tensor

import (
	"math"

	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

// Tensor is a dense 3-way tensor with entries stored in row-major order:
// entry (i,j,t) lives at data[(i*N2+j)*N3+t]. Missing entries, when a tensor
// represents partial observations, are marked NaN or zero depending on the
// input convention.
type Tensor struct {
	N1, N2, N3 int
	Data       []float64
}

// New creates a zero tensor with the given dimensions.
func New(n1, n2, n3 int) *Tensor {
	return &Tensor{N1: n1, N2: n2, N3: n3, Data: make([]float64, n1*n2*n3)}
}

// NewFromData wraps an existing backing slice. The slice length must equal
// n1*n2*n3.
func NewFromData(n1, n2, n3 int, data []float64) *Tensor {
	if len(data) != n1*n2*n3 {
		panic("tensor: dimension mismatch")
	}
	return &Tensor{N1: n1, N2: n2, N3: n3, Data: data}
}

// At returns the entry at (i,j,t).
func (t *Tensor) At(i, j, k int) float64 {
	return t.Data[(i*t.N2+j)*t.N3+k]
}

// Set writes the entry at (i,j,t).
func (t *Tensor) Set(i, j, k int, v float64) {
	t.Data[(i*t.N2+j)*t.N3+k] = v
}

// Dims returns the three dimensions.
func (t *Tensor) Dims() (int, int, int) {
	return t.N1, t.N2, t.N3
}

// SameShape reports whether two tensors have identical dimensions.
func (t *Tensor) SameShape(other *Tensor) bool {
	return t.N1 == other.N1 && t.N2 == other.N2 && t.N3 == other.N3
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.Data))
	copy(data, t.Data)
	return &Tensor{N1: t.N1, N2: t.N2, N3: t.N3, Data: data}
}

// AddTensor accumulates other into t entry-wise.
func (t *Tensor) AddTensor(other *Tensor) {
	for i := range t.Data {
		t.Data[i] += other.Data[i]
	}
}

// Scale multiplies every entry by alpha.
func (t *Tensor) Scale(alpha float64) {
	for i := range t.Data {
		t.Data[i] *= alpha
	}
}

// Unfold returns the mode-n matricization of the tensor. Columns follow the
// column-major layout of the remaining modes, so that mode-0 column indices
// read t*N2+j, mode-1 columns read t*N1+i and mode-2 columns read j*N1+i.
// This ordering matches the row layout of KhatriRao on the opposing factors.
func Unfold(t *Tensor, mode int) *mat.Dense {
	switch mode {
	case 0:
		m := mat.NewDense(t.N1, t.N2*t.N3, nil)
		for i := 0; i < t.N1; i++ {
			for j := 0; j < t.N2; j++ {
				for k := 0; k < t.N3; k++ {
					m.Set(i, k*t.N2+j, t.At(i, j, k))
				}
			}
		}
		return m
	case 1:
		m := mat.NewDense(t.N2, t.N1*t.N3, nil)
		for i := 0; i < t.N1; i++ {
			for j := 0; j < t.N2; j++ {
				for k := 0; k < t.N3; k++ {
					m.Set(j, k*t.N1+i, t.At(i, j, k))
				}
			}
		}
		return m
	case 2:
		m := mat.NewDense(t.N3, t.N1*t.N2, nil)
		for i := 0; i < t.N1; i++ {
			for j := 0; j < t.N2; j++ {
				for k := 0; k < t.N3; k++ {
					m.Set(k, j*t.N1+i, t.At(i, j, k))
				}
			}
		}
		return m
	default:
		panic("tensor: mode out of range")
	}
}

// Fold is the inverse of Unfold for the given mode and dimensions.
func Fold(m *mat.Dense, mode, n1, n2, n3 int) *Tensor {
	t := New(n1, n2, n3)
	switch mode {
	case 0:
		for i := 0; i < n1; i++ {
			for j := 0; j < n2; j++ {
				for k := 0; k < n3; k++ {
					t.Set(i, j, k, m.At(i, k*n2+j))
				}
			}
		}
	case 1:
		for i := 0; i < n1; i++ {
			for j := 0; j < n2; j++ {
				for k := 0; k < n3; k++ {
					t.Set(i, j, k, m.At(j, k*n1+i))
				}
			}
		}
	case 2:
		for i := 0; i < n1; i++ {
			for j := 0; j < n2; j++ {
				for k := 0; k < n3; k++ {
					t.Set(i, j, k, m.At(k, j*n1+i))
				}
			}
		}
	default:
		panic("tensor: mode out of range")
	}
	return t
}

// KhatriRao computes the column-wise Kronecker product of a (ra x c) and
// b (rb x c), producing a (ra*rb x c) matrix whose k-th column is the
// Kronecker product of the k-th columns of a and b.
func KhatriRao(a, b *mat.Dense) (*mat.Dense, error) {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ca != cb {
		return nil, errors.NotValidf("khatri-rao operands with %d and %d columns", ca, cb)
	}
	out := mat.NewDense(ra*rb, ca, nil)
	for i := 0; i < ra; i++ {
		for j := 0; j < rb; j++ {
			row := i*rb + j
			for k := 0; k < ca; k++ {
				out.Set(row, k, a.At(i, k)*b.At(j, k))
			}
		}
	}
	return out, nil
}

// SelfKhatriRao maps every row w of m (n x r) to its flattened outer product
// w⊗w, producing an n x r*r matrix. Multiplying an unfolded mask by the
// result accumulates the per-row normal-equation precision contributions in
// a single matrix product.
func SelfKhatriRao(m *mat.Dense) *mat.Dense {
	n, r := m.Dims()
	out := mat.NewDense(n, r*r, nil)
	for i := 0; i < n; i++ {
		for s := 0; s < r; s++ {
			for q := 0; q < r; q++ {
				out.Set(i, s*r+q, m.At(i, s)*m.At(i, q))
			}
		}
	}
	return out
}

// FromFactors reconstructs the dense tensor of the CP model
// t[i,j,k] = sum_s u[i,s]*v[j,s]*x[k,s].
func FromFactors(u, v, x *mat.Dense) *Tensor {
	n1, r := u.Dims()
	n2, _ := v.Dims()
	n3, _ := x.Dims()
	t := New(n1, n2, n3)
	for i := 0; i < n1; i++ {
		for j := 0; j < n2; j++ {
			for k := 0; k < n3; k++ {
				sum := 0.0
				for s := 0; s < r; s++ {
					sum += u.At(i, s) * v.At(j, s) * x.At(k, s)
				}
				t.Set(i, j, k, sum)
			}
		}
	}
	return t
}

// HasNaN reports whether any entry is NaN.
func (t *Tensor) HasNaN() bool {
	for _, v := range t.Data {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
