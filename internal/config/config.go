package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the no-show engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Training TrainingConfig `yaml:"training"`
	History  HistoryConfig  `yaml:"history"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DatasetConfig selects the record source. An empty path keeps the
// embedded appointment dataset.
type DatasetConfig struct {
	Path string `yaml:"path"`
}

// TrainingConfig groups hyper-parameters for both models. Seed 0 keeps
// the default unseeded shuffling; any other value makes sampling
// deterministic across runs.
type TrainingConfig struct {
	Numeric ModelConfig `yaml:"numeric"`
	Text    ModelConfig `yaml:"text"`
	Seed    int64       `yaml:"seed"`
}

// ModelConfig holds one model's training parameters.
type ModelConfig struct {
	Iterations     int     `yaml:"iterations"`
	ErrorThreshold float64 `yaml:"errorThreshold"`
	LearningRate   float64 `yaml:"learningRate"`
	LogEvery       int     `yaml:"logEvery"`
	HiddenSize     int     `yaml:"hiddenSize"`
}

// HistoryConfig bounds the in-memory training-run history.
type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("NOSHOW_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Training: TrainingConfig{
			Numeric: ModelConfig{
				Iterations:     2000,
				ErrorThreshold: 0.005,
				LearningRate:   0.3,
				LogEvery:       200,
				HiddenSize:     6,
			},
			Text: ModelConfig{
				Iterations:     300,
				ErrorThreshold: 0.01,
				LearningRate:   0.1,
				LogEvery:       30,
			},
		},
		History: HistoryConfig{Limit: 50},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NOSHOW_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("NOSHOW_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("NOSHOW_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NOSHOW_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("NOSHOW_DATASET_PATH"); v != "" {
		cfg.Dataset.Path = v
	}
	if v := os.Getenv("NOSHOW_TRAINING_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Training.Seed = seed
		}
	}
	if v := os.Getenv("NOSHOW_NUMERIC_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Training.Numeric.Iterations = n
		}
	}
	if v := os.Getenv("NOSHOW_TEXT_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Training.Text.Iterations = n
		}
	}
	if v := os.Getenv("NOSHOW_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.History.Limit = n
		}
	}
	if v := os.Getenv("NOSHOW_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
}
