// Package config holds all datasage configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all datasage configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Code-generation oracle
	LLM LLMConfig `yaml:"llm"`

	// Candidate execution
	Execution ExecutionConfig `yaml:"execution"`

	// Result classification
	Classifier ClassifierConfig `yaml:"classifier"`

	// Session store
	Sessions SessionConfig `yaml:"sessions"`

	// Task queue
	Tasks TaskConfig `yaml:"tasks"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the code-generation oracle client.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"` // short name from the model registry
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// ExecutionConfig configures the sandbox and retry loop.
type ExecutionConfig struct {
	MaxAttempts int    `yaml:"max_attempts"` // hard attempt ceiling per request
	Timeout     string `yaml:"timeout"`      // per-candidate execution bound
}

// ClassifierConfig holds the text-to-list reclassification thresholds.
// These are tuning knobs, not invariants.
type ClassifierConfig struct {
	MaxListLines   int `yaml:"max_list_lines"`    // more lines than this may become a list
	MaxListLineLen int `yaml:"max_list_line_len"` // every line must be shorter than this
}

// SessionConfig configures the session store.
type SessionConfig struct {
	TTL           string `yaml:"ttl"`            // sliding expiration window
	SweepInterval string `yaml:"sweep_interval"` // janitor sweep cadence
}

// TaskConfig configures the task queue.
type TaskConfig struct {
	Workers       int    `yaml:"workers"`        // concurrent orchestrations
	Retention     string `yaml:"retention"`      // how long terminal tasks stay pollable
	SweepInterval string `yaml:"sweep_interval"` // GC sweep cadence
}

// LoggingConfig configures service logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Dir        string          `yaml:"dir"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "datasage",
		Version: "1.0.0",

		LLM: LLMConfig{
			Model:   "claude-sonnet-4.5",
			BaseURL: "https://openrouter.ai/api/v1",
			Timeout: "120s",
		},

		Execution: ExecutionConfig{
			MaxAttempts: 3,
			Timeout:     "60s",
		},

		Classifier: ClassifierConfig{
			MaxListLines:   3,
			MaxListLineLen: 150,
		},

		Sessions: SessionConfig{
			TTL:           "1h",
			SweepInterval: "1m",
		},

		Tasks: TaskConfig{
			Workers:       4,
			Retention:     "15m",
			SweepInterval: "1m",
		},

		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(".datasage", "logs"),
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("DATASAGE_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("DATASAGE_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("DATASAGE_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if os.Getenv("DATASAGE_DEBUG") == "1" {
		c.Logging.DebugMode = true
	}
}

// GetLLMTimeout returns the oracle call timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetExecutionTimeout returns the per-candidate execution bound.
func (c *Config) GetExecutionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetSessionTTL returns the session sliding-expiry window.
func (c *Config) GetSessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Sessions.TTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// GetSessionSweepInterval returns the session janitor cadence.
func (c *Config) GetSessionSweepInterval() time.Duration {
	d, err := time.ParseDuration(c.Sessions.SweepInterval)
	if err != nil {
		return time.Minute
	}
	return d
}

// GetTaskRetention returns how long terminal tasks remain pollable.
func (c *Config) GetTaskRetention() time.Duration {
	d, err := time.ParseDuration(c.Tasks.Retention)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// GetTaskSweepInterval returns the task GC cadence.
func (c *Config) GetTaskSweepInterval() time.Duration {
	d, err := time.ParseDuration(c.Tasks.SweepInterval)
	if err != nil {
		return time.Minute
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("oracle API key not configured (set OPENROUTER_API_KEY or DATASAGE_API_KEY)")
	}
	if c.Execution.MaxAttempts < 1 {
		return fmt.Errorf("execution.max_attempts must be at least 1, got %d", c.Execution.MaxAttempts)
	}
	if c.Tasks.Workers < 1 {
		return fmt.Errorf("tasks.workers must be at least 1, got %d", c.Tasks.Workers)
	}
	if c.Classifier.MaxListLineLen < 1 {
		return fmt.Errorf("classifier.max_list_line_len must be positive")
	}
	return nil
}
