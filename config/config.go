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

// Package config holds the experiment configuration of the bptf command.
package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration for an imputation experiment.
type Config struct {
	Data  DataConfig  `mapstructure:"data"`
	Model ModelConfig `mapstructure:"model"`
}

// DataConfig describes where the tensor comes from. When Input is empty a
// synthetic low-rank tensor is generated and corrupted with the configured
// missingness pattern.
type DataConfig struct {
	Input       string  `mapstructure:"input"`
	Output      string  `mapstructure:"output"`
	Dims        []int   `mapstructure:"dims" validate:"len=3,dive,gt=0"`
	MissingRate float64 `mapstructure:"missing_rate" validate:"gte=0,lt=1"`
	Pattern     string  `mapstructure:"pattern" validate:"oneof=random slabs"`
	NoiseStd    float64 `mapstructure:"noise_std" validate:"gte=0"`
	TrueRank    int     `mapstructure:"true_rank" validate:"gt=0"`
}

// ModelConfig carries the sampler hyper-parameters.
type ModelConfig struct {
	Rank    int     `mapstructure:"rank" validate:"gt=0"`
	BurnIn  int     `mapstructure:"burn_in" validate:"gte=0"`
	Samples int     `mapstructure:"samples" validate:"gt=0"`
	Beta0   float64 `mapstructure:"beta0" validate:"gt=0"`
	Seed    int64   `mapstructure:"seed"`
	Jobs    int     `mapstructure:"jobs" validate:"gt=0"`
	Verbose int     `mapstructure:"verbose" validate:"gt=0"`
}

func setDefault() {
	// [data]
	viper.SetDefault("data.dims", []int{30, 30, 60})
	viper.SetDefault("data.missing_rate", 0.2)
	viper.SetDefault("data.pattern", "random")
	viper.SetDefault("data.noise_std", 0.1)
	viper.SetDefault("data.true_rank", 5)
	// [model]
	viper.SetDefault("model.rank", 30)
	viper.SetDefault("model.burn_in", 1000)
	viper.SetDefault("model.samples", 200)
	viper.SetDefault("model.beta0", 1.0)
	viper.SetDefault("model.seed", 0)
	viper.SetDefault("model.jobs", 1)
	viper.SetDefault("model.verbose", 200)
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	setDefault()
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		panic(err)
	}
	return &conf
}

// LoadConfig loads and validates the configuration from a TOML file.
// Environment variables prefixed with BPTF_ override file values.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("bptf")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks the configuration against its struct tags.
func (config *Config) Validate() error {
	return errors.Trace(validator.New().Struct(config))
}
