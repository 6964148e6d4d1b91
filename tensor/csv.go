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
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/juju/errors"
)

// ReadCSV loads a tensor from i,j,t,value records. Coordinates are
// zero-based. Positions absent from the file are marked NaN (missing).
func ReadCSV(r io.Reader, n1, n2, n3 int) (*Tensor, error) {
	t := New(n1, n2, n3)
	for i := range t.Data {
		t.Data[i] = math.NaN()
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 4
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Trace(err)
		}
		i, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, errors.Trace(err)
		}
		j, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, errors.Trace(err)
		}
		k, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, errors.Trace(err)
		}
		v, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if i < 0 || i >= n1 || j < 0 || j >= n2 || k < 0 || k >= n3 {
			return nil, errors.NotValidf("coordinate (%d,%d,%d) for %dx%dx%d tensor", i, j, k, n1, n2, n3)
		}
		t.Set(i, j, k, v)
	}
	return t, nil
}

// WriteCSV writes every non-NaN entry as an i,j,t,value record.
func WriteCSV(w io.Writer, t *Tensor) error {
	writer := csv.NewWriter(w)
	for i := 0; i < t.N1; i++ {
		for j := 0; j < t.N2; j++ {
			for k := 0; k < t.N3; k++ {
				v := t.At(i, j, k)
				if math.IsNaN(v) {
					continue
				}
				record := []string{
					strconv.Itoa(i),
					strconv.Itoa(j),
					strconv.Itoa(k),
					strconv.FormatFloat(v, 'g', -1, 64),
				}
				if err := writer.Write(record); err != nil {
					return errors.Trace(err)
				}
			}
		}
	}
	writer.Flush()
	return errors.Trace(writer.Error())
}
