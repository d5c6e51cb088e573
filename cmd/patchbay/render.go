package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-patchbay/internal/studio"
	"github.com/cwbudde/algo-patchbay/internal/tracing"
	"github.com/cwbudde/algo-patchbay/internal/wav"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		output  string
		seconds float64
	)

	cmd := &cobra.Command{
		Use:   "render <snapshot>",
		Short: "Render a saved patch to a WAV file",
		Long: `Render a saved patch offline, as fast as possible, to a 16-bit mono WAV file.

Example:
  patchbay render patch.json -o out.wav -d 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if seconds <= 0 {
				return fmt.Errorf("duration must be positive, got %v", seconds)
			}

			return a.render(cmd.Context(), args[0], output, seconds)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "out.wav", "output WAV file")
	cmd.Flags().Float64VarP(&seconds, "duration", "d", 2, "length in seconds")

	return cmd
}

func (a *app) render(ctx context.Context, in, out string, seconds float64) error {
	tp, err := tracing.New(a.cfg.Tracing.Enabled, a.cfg.Tracing.Exporter, os.Stderr)
	if err != nil {
		return err
	}

	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

	doc, err := readSnapshot(in)
	if err != nil {
		return err
	}

	opts := a.studioOptions()
	opts.Tracer = tp.Tracer()

	st := studio.New(opts)
	defer func() { _ = st.Close() }()

	err = st.Load(doc)
	if err != nil {
		return err
	}

	rate := st.Context().SampleRate()
	samples := make([]float64, int(seconds*rate))
	start := time.Now()

	err = st.Render(samples)
	if err != nil {
		return fmt.Errorf("rendering: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}

	w := bufio.NewWriter(f)

	err = wav.Write(w, samples, int(rate))
	if err == nil {
		err = w.Flush()
	}

	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	a.logger.Info("rendered",
		slog.String("output", out),
		slog.Int("frames", len(samples)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return nil
}
