// Command matprop estimates material properties from chemical formulas and
// manages the models behind the estimates.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/matprop/config"
	"github.com/YuminosukeSato/matprop/pkg/log"
	"github.com/YuminosukeSato/matprop/service"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type app struct {
	cfgFile  string
	logLevel string
	stdout   io.Writer
	stderr   io.Writer

	svc *service.Service
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "matprop",
		Short:         "Material property estimation from chemical formulas",
		Long:          `matprop predicts piezoelectric d33 and the transition temperature Tc of
ceramic compositions, trains candidate models from a CSV dataset and promotes
them to production.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "elements" {
				return nil
			}
			return a.setup(cmd.Context())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		a.predictCmd(),
		a.trainCmd(),
		a.promoteCmd(),
		a.elementsCmd(),
		a.datasetCmd(),
		a.statusCmd(),
		a.versionCmd(),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if err := log.SetupLoggerTo(a.stderr, level); err != nil {
		return err
	}
	store, err := cfg.Storage.Open(ctx)
	if err != nil {
		return err
	}
	a.svc = service.New(cfg, store)
	return nil
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
