// Package config gathers the parameters of a run from flags, environment
// variables and an optional configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/sarchlab/meshplace/annealing"
	"github.com/sarchlab/meshplace/cost"
	"github.com/sarchlab/meshplace/logging"
	"github.com/sarchlab/meshplace/noc/linkload"
)

// EnvPrefix is the prefix of every environment variable read.
const EnvPrefix = "MESHPLACE"

// Keys shared by flags, environment variables and configuration files.
const (
	KeyAlpha       = "alpha"
	KeyBeta        = "beta"
	KeyGamma       = "gamma"
	KeyTheta       = "theta"
	KeyStart       = "start"
	KeyEnd         = "end"
	KeyRate        = "rate"
	KeyIterations  = "iterations"
	KeyRejections  = "rejections"
	KeyAccepts     = "accepts"
	KeySeed        = "seed"
	KeyRuns        = "runs"
	KeyMetric      = "metric"
	KeyVerbose     = "verbose"
	KeyQuiet       = "quiet"
	KeyNext        = "next"
	KeyRecord      = "record"
	KeyMonitor     = "monitor"
	KeyMonitorPort = "monitor-port"
	KeyBrowser     = "browser"
	KeyLogLevel    = "log-level"
	KeyLogFormat   = "log-format"
)

// Config is everything a run needs besides the instance.
type Config struct {
	Weights  cost.Weights
	Schedule annealing.Config
	Metric   linkload.Metric

	Seed uint64
	Runs int

	Verbose bool
	Quiet   bool

	// NextInstance is the file that receives the final placement in the
	// instance format.
	NextInstance string

	// Record is the SQLite file that receives the search trajectory.
	Record string

	Monitor     bool
	MonitorPort int
	OpenBrowser bool

	Log logging.Config
}

// AddFlags registers every parameter as a flag. The short names follow the
// classic getopt interface of the tool.
func AddFlags(flags *pflag.FlagSet) {
	w := cost.DefaultWeights()
	s := annealing.DefaultConfig()

	flags.Float64P(KeyAlpha, "a", w.Alpha, "weight of compaction")
	flags.Float64P(KeyBeta, "b", w.Beta, "weight of slack")
	flags.Float64P(KeyGamma, "g", w.Gamma, "weight of proximity")
	flags.Float64P(KeyTheta, "d", w.Theta, "weight of utilization")
	flags.Float64P(KeyStart, "s", s.StartTemperature, "initial temperature")
	flags.Float64P(KeyEnd, "e", s.EndTemperature, "final threshold temperature")
	flags.Float64P(KeyRate, "r", s.CoolingRate, "temperature reduction rate")
	flags.IntP(KeyIterations, "i", s.IterationsPerTemperature,
		"iterations per temperature")
	flags.IntP(KeyRejections, "c", s.MaxConsecutiveRejections,
		"consecutive rejections that roll back to the best state")
	flags.IntP(KeyAccepts, "p", s.MaxAcceptsPerTemperature,
		"accepted moves that end a temperature")
	flags.StringP(KeySeed, "n", "", "random seed, derived from the clock if empty")
	flags.Int(KeyRuns, 1, "number of independent searches run in parallel")
	flags.String(KeyMetric, linkload.SquaredLoad.String(),
		"utilization metric, squared or overload")
	flags.BoolP(KeyVerbose, "v", false, "print every temperature")
	flags.BoolP(KeyQuiet, "q", false, "print a single result line")
	flags.StringP(KeyNext, "o", "",
		"write the final placement as an instance for the next run")
	flags.String(KeyRecord, "", "record the search trajectory into a SQLite file")
	flags.Bool(KeyMonitor, false, "serve a live monitor over HTTP")
	flags.Int(KeyMonitorPort, 0, "port of the monitor, random if 0")
	flags.Bool(KeyBrowser, false, "open the monitor in a browser")
	flags.String(KeyLogLevel, "info", "log level, trace, debug, info or error")
	flags.String(KeyLogFormat, "console", "log format, console or json")
}

// Load merges the sources of parameters. From the lowest precedence to the
// highest, they are the defaults, the configuration file, the .env file and
// MESHPLACE_* environment variables, and the flags set on the command line.
func Load(flags *pflag.FlagSet, configFile string) (Config, error) {
	v := viper.New()

	if err := v.BindPFlags(flags); err != nil {
		return Config{}, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading %s: %w", configFile, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("reading .env: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	c := Config{
		Weights: cost.Weights{
			Alpha: v.GetFloat64(KeyAlpha),
			Beta:  v.GetFloat64(KeyBeta),
			Gamma: v.GetFloat64(KeyGamma),
			Theta: v.GetFloat64(KeyTheta),
		},
		Schedule: annealing.Config{
			StartTemperature:         v.GetFloat64(KeyStart),
			EndTemperature:           v.GetFloat64(KeyEnd),
			CoolingRate:              v.GetFloat64(KeyRate),
			IterationsPerTemperature: v.GetInt(KeyIterations),
			MaxConsecutiveRejections: v.GetInt(KeyRejections),
			MaxAcceptsPerTemperature: v.GetInt(KeyAccepts),
		},
		Runs:         v.GetInt(KeyRuns),
		Verbose:      v.GetBool(KeyVerbose),
		Quiet:        v.GetBool(KeyQuiet),
		NextInstance: v.GetString(KeyNext),
		Record:       v.GetString(KeyRecord),
		Monitor:      v.GetBool(KeyMonitor),
		MonitorPort:  v.GetInt(KeyMonitorPort),
		OpenBrowser:  v.GetBool(KeyBrowser),
		Log: logging.Config{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
	}

	metric, err := linkload.ParseMetric(v.GetString(KeyMetric))
	if err != nil {
		return c, err
	}

	c.Metric = metric

	seed := strings.TrimSpace(v.GetString(KeySeed))
	if seed == "" {
		c.Seed = uint64(time.Now().UnixNano())
	} else {
		c.Seed, err = strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return c, fmt.Errorf("invalid seed %q: %w", seed, err)
		}
	}

	return c, c.Validate()
}

// Validate reports every parameter that cannot be used.
func (c Config) Validate() error {
	var err error

	if c.Weights.Alpha < 0 || c.Weights.Alpha > 1 {
		err = multierr.Append(err, fmt.Errorf("alpha %g is not in [0, 1]", c.Weights.Alpha))
	}

	err = multierr.Append(err, c.Schedule.Validate())

	if c.Runs <= 0 {
		err = multierr.Append(err, fmt.Errorf("runs must be positive, got %d", c.Runs))
	}

	if c.Verbose && c.Quiet {
		err = multierr.Append(err, errors.New("verbose and quiet cannot be used together"))
	}

	if c.MonitorPort < 0 || c.MonitorPort > 65535 {
		err = multierr.Append(err, fmt.Errorf("invalid monitor port %d", c.MonitorPort))
	}

	if c.OpenBrowser && !c.Monitor {
		err = multierr.Append(err, errors.New("the browser needs the monitor"))
	}

	if _, levelErr := logging.ParseLevel(c.Log.Level); levelErr != nil {
		err = multierr.Append(err, levelErr)
	}

	return err
}
