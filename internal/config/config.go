// Package config loads the patchbay configuration from a file, the
// environment and command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. PATCHBAY_AUDIO_SAMPLE_RATE.
const EnvPrefix = "PATCHBAY"

// Config holds all configuration options.
type Config struct {
	Audio    AudioConfig    `mapstructure:"audio"    yaml:"audio"`
	Log      LogConfig      `mapstructure:"log"      yaml:"log"`
	Server   ServerConfig   `mapstructure:"server"   yaml:"server"`
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
	Tracing  TracingConfig  `mapstructure:"tracing"  yaml:"tracing"`
}

// AudioConfig configures the render context.
type AudioConfig struct {
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	BlockSize  int     `mapstructure:"block_size"  yaml:"block_size"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text or json
}

// ServerConfig configures the editor bridge.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// SnapshotConfig names a patch to load on start.
type SnapshotConfig struct {
	Path     string        `mapstructure:"path"     yaml:"path"`
	Watch    bool          `mapstructure:"watch"    yaml:"watch"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"  yaml:"enabled"`
	Exporter string `mapstructure:"exporter" yaml:"exporter"` // none or stdout
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Audio:    AudioConfig{SampleRate: 48000, BlockSize: 128},
		Log:      LogConfig{Level: "info", Format: "text"},
		Server:   ServerConfig{Addr: ":8090"},
		Snapshot: SnapshotConfig{Debounce: 250 * time.Millisecond},
		Tracing:  TracingConfig{Exporter: "none"},
	}
}

// SetDefaults registers the defaults with v.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.block_size", d.Audio.BlockSize)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("snapshot.path", d.Snapshot.Path)
	v.SetDefault("snapshot.watch", d.Snapshot.Watch)
	v.SetDefault("snapshot.debounce", d.Snapshot.Debounce)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
}

// Load reads the configuration into v and decodes it. With an empty path the
// lookup order is ./patchbay.yaml, then ~/.config/patchbay/config.yaml; a
// missing file leaves the defaults in place. Flags bound to v beforehand take
// precedence over both.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("patchbay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "patchbay"))
		}
	}

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config

	err = v.Unmarshal(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects settings the runtime cannot work with.
func (c Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %v", c.Audio.SampleRate)
	}

	if c.Audio.BlockSize <= 0 {
		return fmt.Errorf("audio.block_size must be positive, got %d", c.Audio.BlockSize)
	}

	switch c.Tracing.Exporter {
	case "", "none", "stdout":
	default:
		return fmt.Errorf("tracing.exporter must be none or stdout, got %q", c.Tracing.Exporter)
	}

	return nil
}

// WriteDefault writes the default configuration to path, creating parent
// directories. An existing file is replaced atomically.
func WriteDefault(path string) error {
	var buf bytes.Buffer

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	err := encoder.Encode(Defaults())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	_ = encoder.Close()

	dir := filepath.Dir(path)

	err = os.MkdirAll(dir, 0o750)
	if err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".patchbay.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := temp.Name()

	_, err = temp.Write(buf.Bytes())
	if err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)

		return fmt.Errorf("writing temp file: %w", err)
	}

	err = temp.Close()
	if err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	err = os.Rename(tempPath, path)
	if err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
