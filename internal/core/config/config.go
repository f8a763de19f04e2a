// Package config provides configuration management for autoannotate: the
// application settings loaded through viper and the rule-set documents the
// engine consumes.
package config

import (
	"time"

	"github.com/solatis/autoannotate/internal/types"
)

// RulesConfig locates the rule set. File and Inline are mutually exclusive;
// with neither set the engine runs with zero rules.
type RulesConfig struct {
	File          string
	Inline        string
	EnableLogging bool
}

// UnitConfig describes the compilation unit when the tree document does not.
type UnitConfig struct {
	Module  string
	Variant string
}

// ServerConfig holds configuration for the gRPC annotator service.
type ServerConfig struct {
	Host            string
	Port            int
	MaxConnections  int
	RequestTimeout  time.Duration
	MaxDeclarations int
}

// DatabaseConfig holds the run audit store location. An empty URL disables
// run recording.
type DatabaseConfig struct {
	URL string
}

// AppConfig is the complete application configuration.
type AppConfig struct {
	Rules    RulesConfig
	Unit     UnitConfig
	Server   ServerConfig
	Database DatabaseConfig
}

// DefaultAppConfig returns configuration with default values.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            50051,
			MaxConnections:  1000,
			RequestTimeout:  30 * time.Second,
			MaxDeclarations: types.MaxDeclarations,
		},
	}
}

// LoadRules reads the configured rule set. The returned options have
// EnableLogging set when either the configuration or the document asks
// for it.
func (c *AppConfig) LoadRules() (*Options, error) {
	var (
		opts *Options
		err  error
	)
	switch {
	case c.Rules.File != "":
		opts, err = LoadOptionsFile(c.Rules.File)
	case c.Rules.Inline != "":
		opts, err = DecodeOptions([]byte(c.Rules.Inline))
	default:
		opts = &Options{}
	}
	if err != nil {
		return nil, err
	}
	opts.EnableLogging = opts.EnableLogging || c.Rules.EnableLogging
	return opts, nil
}
