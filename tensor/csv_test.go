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
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadCSV(t *testing.T) {
	in := "0,0,0,1.5\n1,2,3,-2\n"
	ten, err := ReadCSV(strings.NewReader(in), 2, 3, 4)
	assert.NoError(t, err)
	assert.Equal(t, 1.5, ten.At(0, 0, 0))
	assert.Equal(t, -2.0, ten.At(1, 2, 3))
	// everything absent from the file is missing
	assert.True(t, math.IsNaN(ten.At(0, 1, 0)))
	assert.Equal(t, 2, CountObserved(Mask(ten)))
}

func TestReadCSVOutOfBounds(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("5,0,0,1\n"), 2, 2, 2)
	assert.Error(t, err)
}

func TestReadCSVBadRecord(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("0,0,0\n"), 2, 2, 2)
	assert.Error(t, err)
	_, err = ReadCSV(strings.NewReader("0,0,x,1\n"), 2, 2, 2)
	assert.Error(t, err)
}

func TestCSVRoundTrip(t *testing.T) {
	ten := New(2, 2, 2)
	for i := range ten.Data {
		ten.Data[i] = math.NaN()
	}
	ten.Set(0, 0, 0, 1)
	ten.Set(1, 1, 1, 0.25)
	ten.Set(0, 1, 1, -3)

	var buf bytes.Buffer
	assert.NoError(t, WriteCSV(&buf, ten))
	back, err := ReadCSV(&buf, 2, 2, 2)
	assert.NoError(t, err)
	for i := range ten.Data {
		if math.IsNaN(ten.Data[i]) {
			assert.True(t, math.IsNaN(back.Data[i]))
		} else {
			assert.Equal(t, ten.Data[i], back.Data[i])
		}
	}
}
