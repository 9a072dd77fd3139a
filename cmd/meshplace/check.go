package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/meshplace/report"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <input_file> [output_file]",
		Short: "Check that the placement of an instance is legal and print its cost.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, args)
			defer s.Close()

			if err != nil {
				return err
			}

			report.PrintState(s.out, s.state)

			if !s.state.LinksWithinCapacity() {
				fmt.Fprintln(s.out, "# A link carries more than its bandwidth")
			}

			return nil
		},
	}
}
