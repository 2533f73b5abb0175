package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/moffa90/go-znp/backup"
	"github.com/moffa90/go-znp/internal/telemetry"
	"github.com/moffa90/go-znp/link"
	"github.com/moffa90/go-znp/nvram"
)

func newNvramWriteCmd(a *app) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "nvram-write <serial>",
		Short: "Restore a radio's NVRAM from a previous backup",
		Long: `Writes every item of an NVRAM backup into a running radio, then soft resets
it so the new values take effect. Items that cannot be written are reported
and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.writeNvram(cmd.Context(), args[0], input)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input backup file (JSON or YAML)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func (a *app) writeNvram(ctx context.Context, port, input string) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "nvram-write")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("znp.port", port), attribute.String("znp.input", input))

	// Parse before touching the radio.
	nv, err := backup.LoadNVRAM(input)
	if err != nil {
		return err
	}

	opts := append(a.linkOptions(),
		link.WithSkipBootloader(a.cfg.SkipBootloaderDelay),
		link.WithTestPort(),
		link.WithConnectTimeout(a.cfg.ConnectTimeout),
	)
	l, err := a.open(ctx, port, opts...)
	if err != nil {
		return err
	}
	defer l.Close()

	r := nvram.New(l,
		nvram.WithLogger(a.logger),
		nvram.WithWriteTimeout(a.cfg.WriteTimeout),
		nvram.WithResetTimeout(a.cfg.ResetTimeout),
		nvram.WithStateCallback(func(s nvram.State) {
			a.logger.Debug("restore state", "state", s.String())
		}),
	)

	report, err := r.Restore(ctx, nv)
	if report != nil {
		a.recordOutcomes(ctx, report)
	}
	if err != nil {
		return err
	}

	failed := report.Failed()
	summary := fmt.Sprintf("Restored %d of %d NVRAM items", report.Applied(), len(report.Outcomes))
	if len(failed) == 0 {
		fmt.Fprintln(a.stderr, color.GreenString("%s", summary))
		return nil
	}

	fmt.Fprintln(a.stderr, color.YellowString("%s", summary))
	for _, o := range failed {
		fmt.Fprintf(a.stderr, "  %s\n", color.YellowString("%v", o.Err))
	}
	return nil
}

func (a *app) recordOutcomes(ctx context.Context, report *nvram.Report) {
	for _, o := range report.Outcomes {
		outcome := "applied"
		if !o.Applied() {
			outcome = "failed"
		}
		a.instruments.NvramItems.Add(ctx, 1, metric.WithAttributes(
			attribute.String("namespace", string(o.Namespace)),
			attribute.String("outcome", outcome),
		))
	}
}
