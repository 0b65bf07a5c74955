package config

import "github.com/jpalmerr/pathstore"

// BuildOptions converts a validated [Config] into store construction
// options for [pathstore.New].
//
// Only the store-facing parts of the config are translated: the initial
// state tree and the cancel status. Serving concerns (port, watch list)
// are consumed by the CLI directly.
func BuildOptions(cfg *Config) []pathstore.Option {
	var opts []pathstore.Option
	if cfg.State != nil {
		opts = append(opts, pathstore.WithInitialState(cfg.State))
	}
	if cfg.CancelStatus != "" {
		opts = append(opts, pathstore.WithCancelStatus(cfg.CancelStatus))
	}
	return opts
}
