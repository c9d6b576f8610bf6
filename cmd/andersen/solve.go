package main

import (
	"fmt"
	"os"

	"github.com/BarrensZeppelin/andersen"
	"github.com/BarrensZeppelin/andersen/internal/constraintfile"
	"github.com/spf13/cobra"
)

func newSolveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "solve FILE",
		Short: "Solve the constraints in a YAML constraint file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			constraints, err := constraintfile.Read(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			global := andersen.NewGlobal(opts.config)
			for _, c := range constraints {
				global.Add(c)
			}

			pts, err := global.PointsToContext(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), pts)
			return nil
		},
	}
}
