package config

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration to support string unmarshaling (e.g., "2s", "500ms")
// from YAML, JSON and TOML documents.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config maps labels to process definitions. Order records the labels in the
// order they should be started.
type Config struct {
	Processes map[string]Process
	Order     []string
}

// Labels returns the configured labels in start order.
func (c *Config) Labels() []string {
	return append([]string(nil), c.Order...)
}

// Lookup returns the process definition for label.
func (c *Config) Lookup(label string) (Process, bool) {
	p, ok := c.Processes[label]
	return p, ok
}

type Process struct {
	Description string            `yaml:"description" toml:"description"`
	Cwd         string            `yaml:"cwd" toml:"cwd"`
	Command     string            `yaml:"command" toml:"command"`
	StopCommand string            `yaml:"stop_command" toml:"stop_command"`
	AutoRestart bool              `yaml:"auto_restart" toml:"auto_restart"`
	Env         map[string]string `yaml:"env" toml:"env"`
	PTY         bool              `yaml:"pty" toml:"pty"`
	Retry       RetryConfig       `yaml:"retry" toml:"retry"`
}

// RetryConfig paces automatic restarts. The zero value restarts immediately
// and without limit.
type RetryConfig struct {
	MaxAttempts       int      `yaml:"max_attempts" toml:"max_attempts"`
	InitialBackoff    Duration `yaml:"initial_backoff" toml:"initial_backoff"`
	MaxBackoff        Duration `yaml:"max_backoff" toml:"max_backoff"`
	BackoffMultiplier float64  `yaml:"backoff_multiplier" toml:"backoff_multiplier"`
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       0,
		InitialBackoff:    0,
		MaxBackoff:        Duration(60 * time.Second),
		BackoffMultiplier: 2.0,
	}
}
