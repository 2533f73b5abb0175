package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/term"

	"github.com/moffa90/go-znp/backup"
	"github.com/moffa90/go-znp/bootloader"
	"github.com/moffa90/go-znp/internal/config"
	"github.com/moffa90/go-znp/internal/telemetry"
)

const unplugMessage = "Unplug your adapter to leave bootloader mode!"

func newFlashReadCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "flash-read <serial>",
		Short: "Read a fixed size firmware image through the serial bootloader",
		Long: `Reads exactly --image-size bytes of flash through the serial bootloader.
Every read must succeed. The adapter must have just been plugged in so that
the bootloader is still waiting for a handshake.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.readFlash(cmd.Context(), "flash-read", args[0], output, bootloader.FixedSize(a.cfg.ImageSize))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output .bin file")
	cmd.Flags().Int(config.KeyImageSize, 0, "image size in bytes (default flash size minus the bootloader)")
	_ = cmd.MarkFlagRequired("output")
	_ = a.v.BindPFlag(config.KeyImageSize, cmd.Flags().Lookup(config.KeyImageSize))

	return cmd
}

func newFlashBackupCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "flash-backup <serial>",
		Short: "Back up the firmware image through the serial bootloader",
		Long: `Reads flash through the serial bootloader until it reports the end of the
image. The adapter must have just been plugged in so that the bootloader is
still waiting for a handshake.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.readFlash(cmd.Context(), "flash-backup", args[0], output, bootloader.UntilEndOfData())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output .bin file")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (a *app) readFlash(ctx context.Context, name, port, output string, policy bootloader.Policy) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, name)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("znp.port", port), attribute.String("znp.policy", policy.String()))

	// Nothing may be written before the handshake.
	l, err := a.open(ctx, port, a.linkOptions()...)
	if err != nil {
		return err
	}
	defer l.Close()

	progress := a.progressPrinter()
	r := bootloader.New(l,
		bootloader.WithLogger(a.logger),
		bootloader.WithHandshakeTimeout(a.cfg.HandshakeTimeout),
		bootloader.WithReadTimeout(a.cfg.ReadTimeout),
		bootloader.WithProgressCallback(progress),
	)

	info, err := r.Handshake(ctx)
	if err != nil {
		return err
	}

	img, err := r.ReadFirmware(ctx, info, policy)
	if err != nil {
		return err
	}

	a.instruments.FlashBytes.Add(ctx, int64(len(img.Data)))
	a.instruments.FlashChunks.Add(ctx, int64(img.Chunks))
	span.SetAttributes(
		attribute.Int("znp.buffer_size", img.BufferSize),
		attribute.Int("znp.chunks", img.Chunks),
		attribute.Int("znp.bytes", len(img.Data)),
	)

	if err := backup.WriteFirmware(output, img.Data); err != nil {
		return err
	}

	a.logger.Info("wrote firmware image", "path", output, "bytes", len(img.Data))
	fmt.Fprintln(a.stderr, color.YellowString(unplugMessage))
	return nil
}

// progressPrinter redraws a single progress line on a terminal and logs at
// debug level otherwise.
func (a *app) progressPrinter() bootloader.ProgressCallback {
	if !isTerminal(a.stderr) {
		return func(p bootloader.Progress) {
			if p.Phase == bootloader.PhaseReading {
				a.logger.Debug("progress",
					"percent", fmt.Sprintf("%0.2f", p.Percentage),
					"bytes", p.BytesRead,
				)
			}
		}
	}

	return func(p bootloader.Progress) {
		switch p.Phase {
		case bootloader.PhaseReading:
			if p.TotalChunks > 0 {
				fmt.Fprintf(a.stderr, "\rProgress: %6.2f%%", p.Percentage)
			} else {
				fmt.Fprintf(a.stderr, "\rRead %d bytes", p.BytesRead)
			}
		case bootloader.PhaseComplete:
			fmt.Fprintf(a.stderr, "\r%s\n", color.GreenString("Read %d bytes in %s", p.BytesRead, p.ElapsedTime.Round(1e6)))
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
