package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/BarrensZeppelin/andersen"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	configFile string
	logLevel   string
	cpuprofile string

	config andersen.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	var profile *os.File

	root := &cobra.Command{
		Use:           "andersen",
		Short:         "Inclusion-based points-to analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			log.SetFormatter(&log.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: "15:04:05",
			})

			opts.config = andersen.DefaultConfig()
			if opts.configFile != "" {
				if opts.config, err = andersen.LoadConfig(opts.configFile); err != nil {
					return err
				}
			}
			opts.config.Logger = log.StandardLogger()

			if opts.cpuprofile != "" {
				if profile, err = os.Create(opts.cpuprofile); err != nil {
					return fmt.Errorf("could not create CPU profile: %w", err)
				}
				if err := pprof.StartCPUProfile(profile); err != nil {
					return fmt.Errorf("could not start CPU profile: %w", err)
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if profile == nil {
				return nil
			}
			pprof.StopCPUProfile()
			return profile.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "path to solver configuration `file` (YAML)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "logging level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.cpuprofile, "cpuprofile", "", "write cpu profile to `file`")

	root.AddCommand(newSolveCmd(opts), newAnalyzeCmd(opts))
	return root
}

func main() {
	// Interrupting stops the solver between worklist iterations.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
