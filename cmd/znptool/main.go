// Command znptool backs up the firmware of a Z-Stack radio through its serial
// bootloader and restores NVRAM backups into a running radio.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moffa90/go-znp/internal/config"
	"github.com/moffa90/go-znp/internal/logging"
	"github.com/moffa90/go-znp/internal/telemetry"
	"github.com/moffa90/go-znp/link"
)

// Version is set at build time.
var Version = "dev"

// openFunc opens a link to the radio at path.
type openFunc func(ctx context.Context, path string, opts ...link.Option) (*link.Link, error)

// app is the state shared by all commands.
type app struct {
	open   openFunc
	stdout io.Writer
	stderr io.Writer

	v           *viper.Viper
	configPath  string
	cfg         *config.Config
	logger      *slog.Logger
	instruments *telemetry.Instruments
	shutdown    telemetry.Shutdown
}

func newRootCmd(a *app) *cobra.Command {
	a.v = config.New()

	cmd := &cobra.Command{
		Use:           "znptool",
		Short:         "Maintenance tool for Z-Stack ZNP radios",
		Long:          `Reads firmware out of a Z-Stack radio through its serial bootloader and restores NVRAM backups.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.CountP(config.KeyVerbose, "v", "increases verbosity")
	flags.Int(config.KeyBaud, 115200, "serial baud rate")
	_ = a.v.BindPFlag(config.KeyVerbose, flags.Lookup(config.KeyVerbose))
	_ = a.v.BindPFlag(config.KeyBaud, flags.Lookup(config.KeyBaud))

	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	cmd.AddCommand(
		newFlashReadCmd(a),
		newFlashBackupCmd(a),
		newNvramWriteCmd(a),
	)
	return cmd
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(a.stderr, cfg.Verbose)

	shutdown, err := telemetry.Init(ctx, telemetry.Options{
		Enabled:     cfg.OtelEnabled,
		ServiceName: "znptool",
		Version:     Version,
		Writer:      a.stderr,
		Endpoint:    cfg.OtelEndpoint,
	})
	if err != nil {
		return err
	}
	a.shutdown = shutdown

	a.instruments, err = telemetry.NewInstruments(telemetry.Meter())
	return err
}

func (a *app) teardown() {
	if a.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Debug("telemetry shutdown failed", "error", err)
	}
	a.shutdown = nil
}

// linkOptions returns the options shared by every session.
func (a *app) linkOptions() []link.Option {
	return []link.Option{
		link.WithLogger(a.logger),
		link.WithBaudRate(a.cfg.Baud),
		link.WithOpenTimeout(a.cfg.OpenTimeout),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{open: link.Open, stdout: os.Stdout, stderr: os.Stderr}

	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		a.teardown()
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		stop()
		os.Exit(1)
	}
}
