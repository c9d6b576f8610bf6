package main

import (
	"fmt"
	"os"

	"github.com/BarrensZeppelin/andersen"
	"github.com/BarrensZeppelin/andersen/extract"
	"github.com/BarrensZeppelin/andersen/internal/constraintfile"
	"github.com/BarrensZeppelin/andersen/internal/slices"
	"github.com/BarrensZeppelin/andersen/pkgutil"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
)

func newAnalyzeCmd(opts *options) *cobra.Command {
	var (
		dir          string
		tests        bool
		allFunctions bool
		dump         bool
		output       string
	)

	cmd := &cobra.Command{
		Use:   "analyze PATTERN...",
		Short: "Extract constraints from Go packages and solve them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs, err := pkgutil.LoadPackagesWithConfig(&packages.Config{
				Mode:  pkgutil.LoadMode,
				Tests: tests,
				Dir:   dir,
			}, args...)
			if err != nil {
				return err
			}

			log.Infof("Loaded %d packages", len(pkgs))

			prog, mains := pkgutil.BuildSSA(pkgs, ssa.InstantiateGenerics)
			log.Infof("Built packages, %d main packages", len(mains))
			log.Debugf("Main packages: %v", slices.Map(mains, func(p *ssa.Package) string {
				return p.Pkg.Path()
			}))

			global := andersen.NewGlobal(opts.config)
			ex := extract.New(prog, global, extract.Options{
				AllFunctions: allFunctions,
				Logger:       opts.config.Logger,
			})
			ex.Run(mains)

			if output != "" {
				if err := writeConstraints(output, global.Constraints()); err != nil {
					return err
				}
			}

			pts, err := global.PointsToContext(cmd.Context())
			if err != nil {
				return err
			}

			log.WithFields(log.Fields{
				"functions":   len(ex.Reachable()),
				"constraints": global.Len(),
				"variables":   len(pts),
			}).Info("Analysis done")

			if dump {
				fmt.Fprint(cmd.OutOrStdout(), pts)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dir, "dir", "", "alternative directory to run the go build tool in")
	flags.BoolVar(&tests, "tests", false, "include test packages")
	flags.BoolVar(&allFunctions, "all", false, "analyse every function, not only those reachable from main")
	flags.BoolVar(&dump, "print", false, "print the points-to sets")
	flags.StringVar(&output, "write-constraints", "", "write the extracted constraints to `file` for use with solve")
	return cmd
}

func writeConstraints(path string, constraints []andersen.Constraint) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := constraintfile.Write(f, constraints); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	log.Infof("Wrote %d constraints to %s", len(constraints), path)
	return nil
}
