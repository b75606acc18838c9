// Package config loads the YAML configuration of a detection run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-anomaly/pkg/baselines"
	"github.com/dd0wney/cluso-anomaly/pkg/bipartite"
	"github.com/dd0wney/cluso-anomaly/pkg/linkpred"
	"github.com/dd0wney/cluso-anomaly/pkg/logging"
	"github.com/dd0wney/cluso-anomaly/pkg/metafeatures"
	"github.com/dd0wney/cluso-anomaly/pkg/sampling"
	"github.com/dd0wney/cluso-anomaly/pkg/validation"
)

// LogLevelEnv overrides the configured log level when set.
const LogLevelEnv = "LOG_LEVEL"

// Config is the full run configuration.
type Config struct {
	Partites     bipartite.Labels    `yaml:"partites"`
	Sampling     SamplingConfig      `yaml:"sampling"`
	Features     FeaturesConfig      `yaml:"features"`
	Classifier   ClassifierConfig    `yaml:"classifier"`
	MetaFeatures metafeatures.Config `yaml:"meta_features"`
	Baselines    BaselinesConfig     `yaml:"baselines"`
	Checkpoint   CheckpointConfig    `yaml:"checkpoint"`
	Metrics      MetricsConfig       `yaml:"metrics"`
	LogLevel     string              `yaml:"log_level" validate:"oneof=DEBUG INFO WARN WARNING ERROR"`
}

// SamplingConfig configures edge sampling.
type SamplingConfig struct {
	// Seed seeds sampling and the validation split; 0 seeds from the clock.
	Seed int64 `yaml:"seed"`
	// MaxEdges caps positive edges per graph; 0 takes all.
	MaxEdges      int `yaml:"max_edges" validate:"gte=0"`
	AttemptFactor int `yaml:"attempt_factor" validate:"gte=1"`
	// MaxAttempts overrides the derived attempt budget when positive.
	MaxAttempts int `yaml:"max_attempts" validate:"gte=0"`
}

// FeaturesConfig configures feature extraction.
type FeaturesConfig struct {
	Workers int `yaml:"workers" validate:"gte=1"`
}

// ClassifierConfig configures the logistic regression reference model.
type ClassifierConfig struct {
	L2             float64 `yaml:"l2" validate:"gte=0"`
	MaxIterations  int     `yaml:"max_iterations" validate:"gte=1"`
	ValidationSize float64 `yaml:"validation_size" validate:"gte=0,lt=1"`
}

// BaselinesConfig configures the unsupervised measures.
type BaselinesConfig struct {
	Measures []string `yaml:"measures" validate:"min=1"`
	Workers  int      `yaml:"workers" validate:"gte=1"`
}

// CheckpointConfig selects where feature tables are persisted. Bucket wins
// over Dir when both are set.
type CheckpointConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Dir      string   `yaml:"dir"`
	Compress bool     `yaml:"compress"`
	S3       S3Config `yaml:"s3"`
}

// S3Config locates an S3 checkpoint.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	// Addr is the listen address of /metrics; empty disables it.
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Partites: bipartite.DefaultLabels,
		Sampling: SamplingConfig{
			AttemptFactor: sampling.DefaultAttemptFactor,
		},
		Features: FeaturesConfig{Workers: runtime.NumCPU()},
		Classifier: ClassifierConfig{
			L2:             1.0,
			MaxIterations:  200,
			ValidationSize: linkpred.DefaultValidationSize,
		},
		MetaFeatures: metafeatures.DefaultConfig(),
		Baselines: BaselinesConfig{
			Measures: append([]string(nil), baselines.Names...),
			Workers:  runtime.NumCPU(),
		},
		Checkpoint: CheckpointConfig{Dir: "checkpoints"},
		LogLevel:   logging.InfoLevel.String(),
	}
}

// Load reads path over the defaults, applies the environment override and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses YAML over the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if level := os.Getenv(LogLevelEnv); level != "" {
		c.LogLevel = strings.ToUpper(level)
	}
}

// Validate checks struct constraints and the cross-field rules.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}

	cv := validation.NewConfigValidator("Config")
	cv.Custom("Partites", c.Partites.Validate).
		Probability("MetaFeatures.Threshold", c.MetaFeatures.Threshold)
	for _, m := range c.Baselines.Measures {
		cv.OneOf("Baselines.Measures", m, baselines.Names)
	}
	cv.When(c.Checkpoint.Enabled && c.Checkpoint.S3.Bucket == "", func(cv *validation.ConfigValidator) {
		cv.Required("Checkpoint.Dir", c.Checkpoint.Dir)
	})
	return cv.Validate()
}

// Level returns the parsed log level.
func (c *Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}
