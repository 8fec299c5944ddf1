// Package config loads and validates the plugin core's configuration from a
// YAML file, layered over compiled-in defaults.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Krishna-Sivakumar/morpho-gh/pkg/errors"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/logging"
	"github.com/Krishna-Sivakumar/morpho-gh/pkg/morpho"
)

// Config is the root configuration.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Algorithm AlgorithmConfig `yaml:"algorithm"`
	Loop      LoopConfig      `yaml:"loop"`
	Store     StoreConfig     `yaml:"store"`
}

// LoggingConfig controls the logger's severity and optional file sink.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=DEBUG INFO WARN ERROR FATAL"`
	File  string `yaml:"file"`
	Color bool   `yaml:"color"`
}

// AlgorithmConfig carries the generation tunables.
type AlgorithmConfig struct {
	MutationProbability float64 `yaml:"mutation_probability" validate:"gte=0,lte=1"`
	SpreadFactor        float64 `yaml:"spread_factor" validate:"gte=0"`
}

// Duration wraps time.Duration so YAML configs can use "2s" style values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LoopConfig controls the iteration controller.
type LoopConfig struct {
	PollInterval Duration `yaml:"poll_interval" validate:"gte=0"`
}

// StoreConfig controls the SQLite store.
type StoreConfig struct {
	BusyTimeout Duration `yaml:"busy_timeout" validate:"gte=0"`
}

// GetDefaultConfig returns the compiled-in defaults.
func GetDefaultConfig() *Config {
	params := morpho.DefaultAlgorithmParams()
	return &Config{
		Logging: LoggingConfig{
			Level: "INFO",
			Color: true,
		},
		Algorithm: AlgorithmConfig{
			MutationProbability: params.MutationProbability,
			SpreadFactor:        params.SpreadFactor,
		},
		Loop: LoopConfig{
			PollInterval: Duration(time.Second),
		},
		Store: StoreConfig{
			BusyTimeout: Duration(5 * time.Second),
		},
	}
}

// Load reads a YAML config file over the defaults and validates the result.
// A missing path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := GetDefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to read config file")
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to parse config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration's field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, errors.ValidationFailed, "invalid configuration")
	}
	return nil
}

// AlgorithmParams converts the configured tunables to the engine's form.
func (c *Config) AlgorithmParams() morpho.AlgorithmParams {
	return morpho.AlgorithmParams{
		MutationProbability: c.Algorithm.MutationProbability,
		SpreadFactor:        c.Algorithm.SpreadFactor,
	}
}

// BuildLogger constructs a logger from the logging section.
func (c *Config) BuildLogger() (*logging.Logger, error) {
	severity := logging.ParseSeverity(c.Logging.Level)

	outputs := []logging.Output{logging.NewConsoleOutput(false, logging.WithColor(c.Logging.Color))}
	if c.Logging.File != "" {
		fileOut, err := logging.NewFileOutput(c.Logging.File)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, fileOut)
	}

	return logging.NewLogger(logging.Config{
		Severity: severity,
		Outputs:  outputs,
	}), nil
}
