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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaultConfig(t *testing.T) {
	conf := GetDefaultConfig()
	assert.Equal(t, []int{30, 30, 60}, conf.Data.Dims)
	assert.Equal(t, 0.2, conf.Data.MissingRate)
	assert.Equal(t, "random", conf.Data.Pattern)
	assert.Equal(t, 30, conf.Model.Rank)
	assert.Equal(t, 1000, conf.Model.BurnIn)
	assert.Equal(t, 200, conf.Model.Samples)
	assert.Equal(t, 1.0, conf.Model.Beta0)
	assert.NoError(t, conf.Validate())
}

func TestLoadConfig(t *testing.T) {
	data := `
[data]
dims = [10, 12, 24]
missing_rate = 0.4
pattern = "slabs"

[model]
rank = 5
burn_in = 100
samples = 50
jobs = 4
`
	path := filepath.Join(t.TempDir(), "config.toml")
	assert.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	conf, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, []int{10, 12, 24}, conf.Data.Dims)
	assert.Equal(t, 0.4, conf.Data.MissingRate)
	assert.Equal(t, "slabs", conf.Data.Pattern)
	assert.Equal(t, 5, conf.Model.Rank)
	assert.Equal(t, 100, conf.Model.BurnIn)
	assert.Equal(t, 50, conf.Model.Samples)
	assert.Equal(t, 4, conf.Model.Jobs)
	// untouched keys keep their defaults
	assert.Equal(t, 1.0, conf.Model.Beta0)
	assert.Equal(t, 200, conf.Model.Verbose)
}

func TestLoadConfigInvalid(t *testing.T) {
	data := `
[data]
pattern = "checkerboard"
`
	path := filepath.Join(t.TempDir(), "config.toml")
	assert.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
