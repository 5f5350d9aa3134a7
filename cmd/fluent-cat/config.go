package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/quarks-tech/fluentforward-go/pkg/delivery"
	"github.com/quarks-tech/fluentforward-go/pkg/eventtime"
	"github.com/quarks-tech/fluentforward-go/pkg/fluent"
	"github.com/quarks-tech/fluentforward-go/pkg/wire"
)

const (
	defaultAddress   = "127.0.0.1:24224"
	defaultWorkers   = 1
	defaultBatchSize = 100
)

// Config is the fluent-cat configuration. A YAML file given with --config
// supplies values; flags set on the command line override them.
type Config struct {
	Address     string        `yaml:"address"`
	Tag         string        `yaml:"tag"`
	Mode        string        `yaml:"mode"`
	Time        string        `yaml:"time"`
	MaxAttempts uint32        `yaml:"max_attempts"`
	Multiplier  float64       `yaml:"multiplier"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Buffer      string        `yaml:"buffer"`
	Workers     int           `yaml:"workers"`
	Batch       int           `yaml:"batch"`
	Compress    bool          `yaml:"compress"`
	LogLevel    string        `yaml:"log_level"`
}

func defaultConfig() Config {
	retry := delivery.DefaultRetryConfig()

	return Config{
		Address:     defaultAddress,
		Mode:        wire.BinarySingle.String(),
		Time:        eventtime.ModeStructured.String(),
		MaxAttempts: retry.MaxAttempts,
		Multiplier:  retry.BackoffMultiplier,
		BaseDelay:   retry.BaseDelay,
		Workers:     defaultWorkers,
		Batch:       defaultBatchSize,
		LogLevel:    logrus.InfoLevel.String(),
	}
}

func newFlagSet(cfg *Config, configPath *string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("fluent-cat", pflag.ContinueOnError)

	fs.StringVar(configPath, "config", "", "YAML config file")
	fs.StringVar(&cfg.Address, "address", cfg.Address, "collector host:port")
	fs.StringVar(&cfg.Tag, "tag", cfg.Tag, "tag attached to every record")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "wire mode: text, msgpack or forward")
	fs.StringVar(&cfg.Time, "time", cfg.Time, "time representation: structured or integer")
	fs.Uint32Var(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "delivery attempts per post")
	fs.Float64Var(&cfg.Multiplier, "multiplier", cfg.Multiplier, "backoff multiplier")
	fs.DurationVar(&cfg.BaseDelay, "base-delay", cfg.BaseDelay, "delay before the first retry")
	fs.DurationVar(&cfg.MaxDelay, "max-delay", cfg.MaxDelay, "upper bound on a single retry delay, 0 for none")
	fs.StringVar(&cfg.Buffer, "buffer", cfg.Buffer, "file receiving records that could not be delivered")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent posting workers")
	fs.IntVar(&cfg.Batch, "batch", cfg.Batch, "entries per forward batch")
	fs.BoolVar(&cfg.Compress, "compress", cfg.Compress, "gzip forward batches")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	return fs
}

// parseArgs resolves the configuration from defaults, the optional config
// file and args, in increasing order of precedence.
func parseArgs(args []string) (Config, error) {
	var configPath string

	flags := defaultConfig()
	fs := newFlagSet(&flags, &configPath)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg := flags

	if configPath != "" {
		cfg = defaultConfig()
		if err := loadConfigFile(configPath, &cfg); err != nil {
			return Config{}, err
		}

		fs.Visit(func(f *pflag.Flag) {
			overrideFlag(&cfg, &flags, f.Name)
		})
	}

	return cfg, cfg.validate()
}

func loadConfigFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	if err = yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}

	return nil
}

func overrideFlag(dst, src *Config, name string) {
	switch name {
	case "address":
		dst.Address = src.Address
	case "tag":
		dst.Tag = src.Tag
	case "mode":
		dst.Mode = src.Mode
	case "time":
		dst.Time = src.Time
	case "max-attempts":
		dst.MaxAttempts = src.MaxAttempts
	case "multiplier":
		dst.Multiplier = src.Multiplier
	case "base-delay":
		dst.BaseDelay = src.BaseDelay
	case "max-delay":
		dst.MaxDelay = src.MaxDelay
	case "buffer":
		dst.Buffer = src.Buffer
	case "workers":
		dst.Workers = src.Workers
	case "batch":
		dst.Batch = src.Batch
	case "compress":
		dst.Compress = src.Compress
	case "log-level":
		dst.LogLevel = src.LogLevel
	}
}

func (c Config) validate() error {
	if c.Tag == "" {
		return errors.New("tag is required")
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}

	if c.Batch < 1 {
		return fmt.Errorf("batch must be positive, got %d", c.Batch)
	}

	if _, err := wire.ParseMode(c.Mode); err != nil {
		return err
	}

	if _, err := eventtime.ParseMode(c.Time); err != nil {
		return err
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	retry := c.retryConfig()

	return retry.Validate()
}

func (c Config) retryConfig() delivery.RetryConfig {
	return delivery.RetryConfig{
		MaxAttempts:       c.MaxAttempts,
		BackoffMultiplier: c.Multiplier,
		BaseDelay:         c.BaseDelay,
		MaxDelay:          c.MaxDelay,
		BufferPath:        c.Buffer,
	}
}

// wireMode is only meaningful after validate.
func (c Config) wireMode() wire.Mode {
	m, _ := wire.ParseMode(c.Mode)
	return m
}

func (c Config) clientOptions(logger logrus.FieldLogger) []fluent.Option {
	timeMode, _ := eventtime.ParseMode(c.Time)
	mode := c.wireMode()

	opts := []fluent.Option{
		fluent.WithTimeMode(timeMode),
		fluent.WithLogger(logger),
	}

	if !mode.Batch() {
		opts = append(opts, fluent.WithMode(mode))
	}

	if c.Compress || mode == wire.BinaryBatchCompressed {
		opts = append(opts, fluent.WithCompression())
	}

	return opts
}
