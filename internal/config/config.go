package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns the default config file location: config.json in
// the working directory.
func DefaultConfigPath() string {
	return "config.json"
}

// Load reads and parses a config file. The format is chosen by extension:
// .toml is TOML, anything else is YAML (which includes JSON). It applies
// defaults and expands environment variables and ~ in paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data, formatOf(path))
}

// Format identifies a config document syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes a config document. Unknown fields are rejected.
func Parse(data []byte, format Format) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch format {
	case FormatTOML:
		cfg, err = parseTOML(data)
	default:
		cfg, err = parseYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(cfg)
	expandPaths(cfg)

	return cfg, nil
}

func parseYAML(data []byte) (*Config, error) {
	procs := make(map[string]Process)

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&procs); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	// A second pass over the node tree recovers document order, which a map
	// does not keep.
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	var order []string
	if len(root.Content) > 0 {
		doc := root.Content[0]
		if doc.Kind != yaml.MappingNode {
			return nil, errors.New("top level must map labels to processes")
		}
		for i := 0; i+1 < len(doc.Content); i += 2 {
			order = append(order, doc.Content[i].Value)
		}
	}

	return &Config{Processes: procs, Order: order}, nil
}

func parseTOML(data []byte) (*Config, error) {
	procs := make(map[string]Process)

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&procs); err != nil {
		return nil, err
	}

	order := make([]string, 0, len(procs))
	for label := range procs {
		order = append(order, label)
	}
	sort.Strings(order)

	return &Config{Processes: procs, Order: order}, nil
}

// Validate checks every process definition. It returns all validation
// errors, not just the first, as a *ValidationError.
func Validate(cfg *Config) error {
	var errs []*ConfigError
	add := func(label, field, msg string) {
		errs = append(errs, &ConfigError{Label: label, Field: field, Message: msg})
	}

	for _, label := range cfg.Order {
		proc := cfg.Processes[label]

		if label == "" {
			add(label, "", "label must not be empty")
		} else if strings.IndexFunc(label, unicode.IsSpace) >= 0 {
			add(label, "", "label must not contain whitespace")
		}

		if strings.TrimSpace(proc.Command) == "" {
			add(label, "command", "is required")
		}
		if proc.StopCommand == "" {
			add(label, "stop_command", "is required")
		}

		retry := proc.Retry
		if retry.MaxAttempts < 0 {
			add(label, "retry.max_attempts", "must be >= 0")
		}
		if retry.InitialBackoff.Duration() < 0 {
			add(label, "retry.initial_backoff", "must not be negative")
		}
		if retry.InitialBackoff.Duration() > 0 {
			if retry.MaxBackoff.Duration() <= 0 {
				add(label, "retry.max_backoff", "must be positive")
			} else if retry.InitialBackoff.Duration() > retry.MaxBackoff.Duration() {
				add(label, "retry.initial_backoff", fmt.Sprintf("(%s) must be <= max_backoff (%s)",
					retry.InitialBackoff.Duration(), retry.MaxBackoff.Duration()))
			}
			if retry.BackoffMultiplier < 1 {
				add(label, "retry.backoff_multiplier", "must be >= 1")
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// GenerateExample returns an example config document for the given path's format.
func GenerateExample(path string) string {
	if formatOf(path) == FormatTOML {
		return exampleTOML
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return exampleYAML
	}
	return exampleJSON
}

const exampleJSON = `{
    "web": {
        "cwd": ".",
        "command": "python3 -m http.server 8080",
        "stop_command": "quit",
        "auto_restart": true
    },
    "worker": {
        "cwd": ".",
        "command": "./worker.sh",
        "stop_command": "stop",
        "auto_restart": false
    }
}
`

const exampleYAML = `# dualexe configuration: one entry per label.
web:
  cwd: .
  command: python3 -m http.server 8080
  stop_command: quit
  auto_restart: true
  retry:
    initial_backoff: 1s
    max_backoff: 30s

worker:
  cwd: ~/src/worker
  command: ./worker.sh
  stop_command: stop
  auto_restart: false
  pty: true
  env:
    LOG_LEVEL: debug
`

const exampleTOML = `# dualexe configuration: one table per label.
[web]
cwd = "."
command = "python3 -m http.server 8080"
stop_command = "quit"
auto_restart = true

[worker]
cwd = "~/src/worker"
command = "./worker.sh"
stop_command = "stop"
auto_restart = false
pty = true
`

func applyDefaults(cfg *Config) {
	if cfg.Processes == nil {
		cfg.Processes = make(map[string]Process)
	}

	defaults := DefaultRetryConfig()
	for name, proc := range cfg.Processes {
		if proc.Retry.MaxBackoff == 0 {
			proc.Retry.MaxBackoff = defaults.MaxBackoff
		}
		if proc.Retry.BackoffMultiplier == 0 {
			proc.Retry.BackoffMultiplier = defaults.BackoffMultiplier
		}
		cfg.Processes[name] = proc
	}
}

func expandPaths(cfg *Config) {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}

	for name, proc := range cfg.Processes {
		proc.Cwd = os.ExpandEnv(expandTilde(proc.Cwd, home))

		for k, v := range proc.Env {
			proc.Env[k] = os.ExpandEnv(expandTilde(v, home))
		}
		cfg.Processes[name] = proc
	}
}

func expandTilde(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
