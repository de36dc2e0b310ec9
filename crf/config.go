package crf

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// TrainerConfig holds training hyperparameters for the online learners.
type TrainerConfig struct {
	MaxIterations       int     `mapstructure:"maxiter"`
	L1Prior             float64 `mapstructure:"l1prior"`            // L1 regularization strength
	InitialLearningRate float64 `mapstructure:"init_learning_rate"` // decays with epoch/N
	Eta                 float64 `mapstructure:"eta"`                // relative objective change to stop at
	Seed                uint64  `mapstructure:"seed"`               // sequence shuffle seed
}

// DefaultTrainerConfig returns the built-in defaults.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		MaxIterations:       100,
		L1Prior:             1,
		InitialLearningRate: 0.5,
		Eta:                 1e-5,
		Seed:                1,
	}
}

// ParseOptions builds a TrainerConfig from a flat option set. Recognized keys
// are maxiter, l1prior, init_learning_rate, eta and seed; other keys are
// ignored and absent keys keep their defaults.
func ParseOptions(opts map[string]string) (TrainerConfig, error) {
	config := DefaultTrainerConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return config, err
	}
	if err := dec.Decode(opts); err != nil {
		return DefaultTrainerConfig(), fmt.Errorf("parse trainer options: %w", err)
	}
	return config, nil
}
