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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/transdim-io/bptf/base"
	"github.com/transdim-io/bptf/base/log"
	"github.com/transdim-io/bptf/config"
	"github.com/transdim-io/bptf/model"
	"github.com/transdim-io/bptf/model/bptf"
	"github.com/transdim-io/bptf/tensor"
	"go.uber.org/zap"
)

var bptfCommand = &cobra.Command{
	Use:   "bptf",
	Short: "Impute missing entries of a 3-way tensor by Bayesian probabilistic tensor factorization.",
	Run: func(cmd *cobra.Command, args []string) {
		// setup logger
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		log.SetLogger(cmd.PersistentFlags(), debug)

		// load config
		var conf *config.Config
		var err error
		if cmd.PersistentFlags().Changed("config") {
			configPath, _ := cmd.PersistentFlags().GetString("config")
			log.Logger().Info("load config", zap.String("config", configPath))
			conf, err = config.LoadConfig(configPath)
			if err != nil {
				log.Logger().Fatal("failed to load config", zap.Error(err))
			}
		} else {
			conf = config.GetDefaultConfig()
		}
		if err = run(conf); err != nil {
			log.Logger().Fatal("failed to run experiment", zap.Error(err))
		}
	},
}

func init() {
	bptfCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	bptfCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	log.AddFlags(bptfCommand.PersistentFlags())
}

// loadTensors returns the (reference, observed) pair of the experiment. With
// an input file, the observed tensor is read from CSV and there is no
// reference to score against. Otherwise a synthetic ground truth is
// generated and corrupted by the configured missingness pattern.
func loadTensors(conf *config.Config) (dense, sparse *tensor.Tensor, err error) {
	dims := conf.Data.Dims
	if conf.Data.Input != "" {
		file, err := os.Open(conf.Data.Input)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		defer file.Close()
		stat, err := file.Stat()
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		pbReader := progressbar.NewReader(file, progressbar.DefaultBytes(
			stat.Size(),
			"Loading tensor",
		))
		sparse, err = tensor.ReadCSV(&pbReader, dims[0], dims[1], dims[2])
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		return nil, sparse, nil
	}
	rng := base.NewRandomGenerator(conf.Model.Seed)
	dense = tensor.Synthetic(rng, dims[0], dims[1], dims[2], conf.Data.TrueRank, conf.Data.NoiseStd)
	switch conf.Data.Pattern {
	case "slabs":
		sparse = tensor.MaskSlabs(rng, dense, conf.Data.MissingRate)
	default:
		sparse = tensor.MaskRandom(rng, dense, conf.Data.MissingRate)
	}
	return dense, sparse, nil
}

func run(conf *config.Config) error {
	dense, sparse, err := loadTensors(conf)
	if err != nil {
		return errors.Trace(err)
	}
	m := bptf.NewBPTF(model.Params{
		model.NFactors:    conf.Model.Rank,
		model.BurnIn:      conf.Model.BurnIn,
		model.NSamples:    conf.Model.Samples,
		model.Beta0:       conf.Model.Beta0,
		model.RandomState: conf.Model.Seed,
	})
	fitConfig := bptf.NewFitConfig().
		SetJobs(conf.Model.Jobs).
		SetVerbose(conf.Model.Verbose)
	score, err := m.Fit(context.Background(), sparse, dense, fitConfig)
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Printf("MAPE = %v, RMSE = %v\n", score.MAPE, score.RMSE)
	if conf.Data.Output != "" {
		file, err := os.Create(conf.Data.Output)
		if err != nil {
			return errors.Trace(err)
		}
		defer file.Close()
		if err := tensor.WriteCSV(file, m.Reconstruction()); err != nil {
			return errors.Trace(err)
		}
		log.Logger().Info("saved imputed tensor", zap.String("output", conf.Data.Output))
	}
	return nil
}

func main() {
	if err := bptfCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}
