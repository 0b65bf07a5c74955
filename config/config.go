// Package config provides YAML configuration parsing for the pathstore CLI.
//
// This package enables running pathstore as a standalone binary serving a
// state tree over HTTP, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	port: 8080
//	cancel_status: cancelled
//
//	watch:
//	  - user.*
//	  - session.token
//
//	state:
//	  user:
//	    name: ${PATHSTORE_USER:-Alice}
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

const (
	// defaultPort is used when the config does not set one.
	defaultPort = 8080

	// maxPort is the highest valid TCP port.
	maxPort = 65535
)

// pathPattern matches a subscription path: ASCII identifier segments joined
// by dots, optionally ending in a single-level wildcard. The bare "*" scopes
// the wildcard to the tree root.
var pathPattern = regexp.MustCompile(`^(\*|[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*(\.\*)?)$`)

// envPattern matches ${VAR} and ${VAR:-default} substitution markers.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// Config is the root configuration structure for the pathstore CLI.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Port is the HTTP bridge port. Defaults to 8080.
	Port int `yaml:"port"`

	// CancelStatus, when set, is the explicit terminal status written by
	// Cancel. Empty leaves cancelled paths at their prior visible status.
	CancelStatus string `yaml:"cancel_status"`

	// Watch lists the subscription paths streamed by the SSE endpoint.
	// Each entry is an exact path or a single-level wildcard ("p.*", "*").
	Watch []string `yaml:"watch"`

	// State is the initial tree the store is seeded with. String leaves
	// support environment variable substitution: ${VAR} or ${VAR:-default}.
	State map[string]any `yaml:"state"`
}

// Load reads and parses a configuration file.
//
// The file must be valid YAML matching the [Config] structure. Validation
// and environment variable substitution are applied; an invalid config
// returns an error describing the first problem found.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration bytes.
//
// Defaults are applied (port 8080), environment variables in state string
// leaves are substituted, and the result is validated.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	cfg.State, _ = expandEnv(cfg.State).(map[string]any)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for errors.
//
// It verifies the port range and the syntax of every watch path. Wildcards
// are only valid as a trailing ".*" segment (or the bare "*"); they are
// rejected anywhere else.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > maxPort {
		return fmt.Errorf("port %d out of range 1-%d", c.Port, maxPort)
	}

	for _, p := range c.Watch {
		if p == "" {
			return errors.New("watch path cannot be empty")
		}
		if !pathPattern.MatchString(p) {
			return fmt.Errorf("invalid watch path %q", p)
		}
	}

	return nil
}

// expandEnv walks a JSON-like value and substitutes environment variables
// in every string leaf. Unset variables without a default expand to the
// empty string, matching shell semantics.
func expandEnv(value any) any {
	switch v := value.(type) {
	case string:
		return envPattern.ReplaceAllStringFunc(v, func(match string) string {
			groups := envPattern.FindStringSubmatch(match)
			if val, ok := os.LookupEnv(groups[1]); ok {
				return val
			}
			return groups[3] // default, or "" when none given
		})
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = expandEnv(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = expandEnv(child)
		}
		return out
	default:
		return value
	}
}
