package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/meshplace/annealing"
	"github.com/sarchlab/meshplace/instance"
	"github.com/sarchlab/meshplace/metrics"
	"github.com/sarchlab/meshplace/monitoring"
	"github.com/sarchlab/meshplace/recording"
	"github.com/sarchlab/meshplace/report"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <input_file> [output_file]",
		Short: "Search for a better placement.",
		Long: `Search for a better placement of the instance in input_file. ` +
			`The report goes to output_file if given, otherwise to stdout.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, args)
			defer s.Close()

			if err != nil {
				return err
			}

			return s.search(cmd.Context())
		},
	}
}

func (s *session) search(ctx context.Context) error {
	cfg := s.cfg

	if !cfg.Quiet {
		fmt.Fprintf(s.out, "# Random number seed %d\n", cfg.Seed)
		fmt.Fprintln(s.out, "# Initial State")
		report.PrintState(s.out, s.state)
		fmt.Fprintln(s.out, "#")
	}

	b := annealing.MakeBuilder().
		WithConfig(cfg.Schedule).
		WithLogger(s.log.WithName("annealing"))

	if cfg.Verbose {
		report.InitTable(s.out)
		b = b.WithHook(report.NewTablePrinter(s.out))
	}

	var trajectory *recording.TrajectoryRecorder
	if cfg.Record != "" {
		recorder, err := recording.Create(cfg.Record)
		if err != nil {
			return err
		}

		s.closer = append(s.closer, recorder.Close)

		trajectory = recording.NewTrajectoryRecorder(recorder, true)
		b = b.WithHook(trajectory)
	}

	var monitor *monitoring.Monitor
	if cfg.Monitor {
		var err error

		var collector *metrics.Collector

		monitor, collector, err = s.startMonitor()
		if err != nil {
			return err
		}

		b = b.WithHook(monitor).WithHook(collector)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	start := time.Now()
	results, best, err := annealing.RunParallel(ctx, b, s.state, cfg.Runs, cfg.Seed)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	s.log.Info("search finished",
		"runs", cfg.Runs, "best_run", best, "elapsed", time.Since(start).String())

	for _, res := range results {
		if trajectory != nil && res.State != nil {
			trajectory.RecordResult(res)
		}

		if monitor != nil {
			monitor.CompleteRun(res.Run)
		}
	}

	res := results[best]
	if res.State == nil {
		return err
	}

	if cfg.Quiet {
		report.PrintQuiet(s.out, cfg.Seed, cfg.Weights, cfg.Schedule, res.Best)
	} else {
		fmt.Fprintln(s.out)
		report.PrintState(s.out, res.State)
	}

	if cfg.NextInstance != "" {
		if saveErr := instance.Save(cfg.NextInstance, s.inst, res.Positions); saveErr != nil {
			return saveErr
		}
	}

	return err
}

func (s *session) startMonitor() (
	*monitoring.Monitor,
	*metrics.Collector,
	error,
) {
	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return nil, nil, err
	}

	monitor := monitoring.NewMonitor().
		WithPortNumber(s.cfg.MonitorPort).
		WithSchedule(s.cfg.Schedule).
		WithMetricsHandler(collector.Handler())

	if _, err := monitor.StartServer(); err != nil {
		return nil, nil, err
	}

	s.closer = append(s.closer, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		return monitor.Stop(ctx)
	})

	if s.cfg.OpenBrowser {
		if err := monitor.OpenInBrowser(); err != nil {
			s.log.Error(err, "cannot open the monitor in a browser")
		}
	}

	return monitor, collector, nil
}
