package annealing

import (
	"errors"

	"go.uber.org/multierr"
)

// Config is the cooling schedule of a search.
type Config struct {
	// StartTemperature is the temperature of the first step.
	StartTemperature float64 `mapstructure:"start" yaml:"start"`

	// EndTemperature stops the search once the temperature drops to or below
	// it.
	EndTemperature float64 `mapstructure:"end" yaml:"end"`

	// CoolingRate multiplies the temperature after every step.
	CoolingRate float64 `mapstructure:"rate" yaml:"rate"`

	// IterationsPerTemperature is the number of moves tried per step.
	IterationsPerTemperature int `mapstructure:"iterations" yaml:"iterations"`

	// MaxConsecutiveRejections rolls the search back to the best state and
	// ends the step.
	MaxConsecutiveRejections int `mapstructure:"rejections" yaml:"rejections"`

	// MaxAcceptsPerTemperature ends the step early.
	MaxAcceptsPerTemperature int `mapstructure:"accepts" yaml:"accepts"`
}

// DefaultConfig returns a schedule from 1000 down to 0.1 with a cooling rate
// of 0.9, 400 moves per temperature, a rollback after 200 rejections in a row
// and at most 100 accepted moves per temperature.
func DefaultConfig() Config {
	return Config{
		StartTemperature:         1000,
		EndTemperature:           0.1,
		CoolingRate:              0.9,
		IterationsPerTemperature: 400,
		MaxConsecutiveRejections: 200,
		MaxAcceptsPerTemperature: 100,
	}
}

// Validate reports every parameter that would prevent the search from
// terminating.
func (c Config) Validate() error {
	var err error

	if c.StartTemperature <= 0 {
		err = multierr.Append(err, errors.New("start temperature must be positive"))
	}

	if c.EndTemperature <= 0 {
		err = multierr.Append(err, errors.New("end temperature must be positive"))
	}

	if c.CoolingRate <= 0 || c.CoolingRate >= 1 {
		err = multierr.Append(err, errors.New("cooling rate must be in (0, 1)"))
	}

	if c.IterationsPerTemperature <= 0 {
		err = multierr.Append(err, errors.New("iterations per temperature must be positive"))
	}

	if c.MaxConsecutiveRejections <= 0 {
		err = multierr.Append(err, errors.New("consecutive rejections must be positive"))
	}

	if c.MaxAcceptsPerTemperature <= 0 {
		err = multierr.Append(err, errors.New("accepts per temperature must be positive"))
	}

	return err
}

// NumTemperatures returns how many temperature steps the schedule has.
func (c Config) NumTemperatures() int {
	n := 0
	for t := c.StartTemperature; t > c.EndTemperature; t *= c.CoolingRate {
		n++
	}

	return n
}
