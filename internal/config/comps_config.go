package config

import "time"

type CompsConfig interface {
	GetCompsAttemptTimeout() time.Duration
	GetCompsMaxAttempts() int
	GetCompsBackoffStep() time.Duration
}

type Comps struct {
	AttemptTimeout time.Duration `yaml:"attempt_timeout" env:"COMPS_ATTEMPT_TIMEOUT" env-default:"15s"`
	MaxAttempts    int           `yaml:"max_attempts" env:"COMPS_MAX_ATTEMPTS" env-default:"3"`
	BackoffStep    time.Duration `yaml:"backoff_step" env:"COMPS_BACKOFF_STEP" env-default:"2s"`
}

var _ CompsConfig = Comps{}

func (c Comps) GetCompsAttemptTimeout() time.Duration {
	return c.AttemptTimeout
}

func (c Comps) GetCompsMaxAttempts() int {
	return c.MaxAttempts
}

func (c Comps) GetCompsBackoffStep() time.Duration {
	return c.BackoffStep
}
