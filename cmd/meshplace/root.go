package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/sarchlab/meshplace/config"
	"github.com/sarchlab/meshplace/instance"
	"github.com/sarchlab/meshplace/logging"
	"github.com/sarchlab/meshplace/placement"
	"github.com/sarchlab/meshplace/report"
)

// Exit codes of the command.
const (
	exitOK         = 0
	exitFailure    = 1
	exitUnreadable = 2
	exitIllegal    = 3
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}

	return exitFailure
}

const keyConfigFile = "config"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "meshplace",
		Short: "Place cores on a mesh network-on-chip with simulated annealing.",
		Long: `meshplace reads a communication graph and an initial placement ` +
			`of its cores on a 2-D mesh, and searches for a placement that ` +
			`keeps communicating cores close while meeting latency ` +
			`requirements and balancing link loads.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	config.AddFlags(flags)
	flags.String(keyConfigFile, "", "YAML file with default parameters")

	root.AddCommand(newRunCmd(), newCheckCmd())

	return root
}

// session is what every subcommand sets up before working on an instance.
type session struct {
	cfg    config.Config
	out    io.Writer
	log    logr.Logger
	inst   *instance.Instance
	state  *placement.State
	closer []func() error
}

// openSession loads the parameters and the instance, and builds the initial
// state. Output goes to the file named by the second argument, if any.
func openSession(cmd *cobra.Command, args []string) (*session, error) {
	s := &session{out: cmd.OutOrStdout()}

	configFile, _ := cmd.Flags().GetString(keyConfigFile)

	cfg, err := config.Load(cmd.Flags(), configFile)
	if err != nil {
		return s, err
	}

	s.cfg = cfg

	if len(args) > 1 {
		f, err := os.Create(args[1])
		if err != nil {
			return s, err
		}

		s.out = f
		s.closer = append(s.closer, f.Close)
	}

	cfg.Log.Output = cmd.ErrOrStderr()

	logger, sync, err := logging.New(cfg.Log)
	if err != nil {
		return s, err
	}

	s.log = logger
	s.closer = append(s.closer, sync)

	s.inst, err = instance.Load(args[0])
	if err != nil {
		fmt.Fprintln(s.out, "# File open error exit")
		return s, &exitError{code: exitUnreadable, err: err}
	}

	s.state, err = placement.MakeBuilder().
		WithWeights(cfg.Weights).
		WithUtilizationMetric(cfg.Metric).
		WithRandomSource(rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))).
		WithLogger(logger.WithName("placement")).
		Build(s.inst)
	if errors.Is(err, placement.ErrIllegalInitialState) {
		fmt.Fprintln(s.out, "# Illegal initial state")
		report.PrintViolations(s.out, placement.Violations(err))

		return s, &exitError{code: exitIllegal, err: err}
	}

	return s, err
}

// Close releases the output file and flushes the logger. Errors are ignored
// as there is nothing left to report them to.
func (s *session) Close() {
	for i := len(s.closer) - 1; i >= 0; i-- {
		_ = s.closer[i]()
	}
}
