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

import "math"

// Position is a tensor coordinate.
type Position struct {
	I, J, T int
}

// Observed reports whether a raw entry counts as observed. Both input
// conventions are covered: NaN marks missing values, and an exact zero is
// treated as the missing sentinel in the no-NaN convention.
func Observed(v float64) bool {
	return !math.IsNaN(v) && v != 0
}

// Mask derives the binary observation mask from a partially observed tensor:
// 1 at observed entries, 0 at missing ones. The mask is computed once before
// fitting and held constant for the run.
func Mask(sparse *Tensor) *Tensor {
	mask := New(sparse.N1, sparse.N2, sparse.N3)
	for i, v := range sparse.Data {
		if Observed(v) {
			mask.Data[i] = 1
		}
	}
	return mask
}

// ZeroFill converts the NaN missing-value convention into a zero-filled
// tensor. Factor samplers operate on zero-filled data weighted by the mask,
// so NaNs must never reach them.
func ZeroFill(sparse *Tensor) *Tensor {
	out := sparse.Clone()
	for i, v := range out.Data {
		if math.IsNaN(v) {
			out.Data[i] = 0
		}
	}
	return out
}

// HeldOut lists the positions where the reference tensor holds ground truth
// that was hidden from the fitting procedure: the reference entry is nonzero
// and the sparse entry is missing under either convention.
func HeldOut(dense, sparse *Tensor) []Position {
	var positions []Position
	for i := 0; i < dense.N1; i++ {
		for j := 0; j < dense.N2; j++ {
			for k := 0; k < dense.N3; k++ {
				if dense.At(i, j, k) != 0 && !Observed(sparse.At(i, j, k)) {
					positions = append(positions, Position{I: i, J: j, T: k})
				}
			}
		}
	}
	return positions
}

// CountObserved returns the number of observed entries in a mask.
func CountObserved(mask *Tensor) int {
	count := 0
	for _, v := range mask.Data {
		if v != 0 {
			count++
		}
	}
	return count
}
