package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cwbudde/algo-patchbay/internal/config"
	"github.com/cwbudde/algo-patchbay/internal/logging"
	"github.com/cwbudde/algo-patchbay/internal/studio"
	"github.com/cwbudde/algo-patchbay/snapshot"
)

// app is the state shared by all subcommands once configuration is loaded.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:          "patchbay",
		Short:        "Audio patch runtime for the visual node editor",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "init-config" {
				return nil
			}

			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: ./patchbay.yaml or ~/.config/patchbay/patchbay.yaml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "log format: text or json")
	root.PersistentFlags().Float64("sample-rate", 0, "render sample rate in Hz")
	root.PersistentFlags().Int("block-size", 0, "render block size in frames")

	a.bind(root, "log.level", "log-level")
	a.bind(root, "log.format", "log-format")
	a.bind(root, "audio.sample_rate", "sample-rate")
	a.bind(root, "audio.block_size", "block-size")

	root.AddCommand(
		newValidateCmd(a),
		newRenderCmd(a),
		newServeCmd(a),
		newWidgetsCmd(a),
		newInitConfigCmd(),
	)

	return root
}

// bind ties a persistent flag to a config key. Unset flags do not shadow the
// config file.
func (a *app) bind(root *cobra.Command, key, flag string) {
	_ = a.v.BindPFlag(key, root.PersistentFlags().Lookup(flag))
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())

	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("config loaded", slog.String("path", used))
	}

	return nil
}

// studioOptions returns the studio settings the loaded config selects.
func (a *app) studioOptions() studio.Options {
	return studio.Options{
		SampleRate: a.cfg.Audio.SampleRate,
		BlockSize:  a.cfg.Audio.BlockSize,
		Logger:     a.logger,
	}
}

func readSnapshot(path string) (*snapshot.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	doc, err := snapshot.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}
