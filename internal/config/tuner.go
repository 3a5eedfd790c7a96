package config

import "fmt"

// TunerConfig configures the adaptive weight tuner.
type TunerConfig struct {
	Enabled            bool    `yaml:"enabled"`
	Interval           string  `yaml:"interval"`
	MinSamples         int     `yaml:"min_samples"`
	TargetSatisfaction float64 `yaml:"target_satisfaction"`
	TargetSuccessRate  float64 `yaml:"target_success_rate"`
	Step               int     `yaml:"step"`
	MinWeight          int     `yaml:"min_weight"`
	MaxWeight          int     `yaml:"max_weight"`
}

// DefaultTunerConfig returns the tuner defaults.
func DefaultTunerConfig() TunerConfig {
	return TunerConfig{
		Enabled:            true,
		Interval:           "5m",
		MinSamples:         5,
		TargetSatisfaction: 0.6,
		TargetSuccessRate:  0.7,
		Step:               5,
		MinWeight:          10,
		MaxWeight:          95,
	}
}

// Validate checks the weight bounds and targets.
func (t TunerConfig) Validate() error {
	if t.MinWeight < 0 || t.MaxWeight > 100 || t.MinWeight >= t.MaxWeight {
		return fmt.Errorf("tuner weight bounds must satisfy 0 <= min < max <= 100, got [%d,%d]", t.MinWeight, t.MaxWeight)
	}
	if t.Step <= 0 {
		return fmt.Errorf("tuner.step must be positive, got %d", t.Step)
	}
	if t.MinSamples <= 0 {
		return fmt.Errorf("tuner.min_samples must be positive, got %d", t.MinSamples)
	}
	if t.TargetSatisfaction < 0 || t.TargetSatisfaction > 1 || t.TargetSuccessRate < 0 || t.TargetSuccessRate > 1 {
		return fmt.Errorf("tuner targets must be within [0,1]")
	}
	return nil
}
