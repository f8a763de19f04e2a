package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/solatis/autoannotate/internal/types"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultAppConfig
	v.SetDefault("rules.file", "")
	v.SetDefault("rules.inline", "")
	v.SetDefault("rules.enable_logging", false)
	v.SetDefault("unit.module", "")
	v.SetDefault("unit.variant", "")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 50051)
	v.SetDefault("server.max_connections", 1000)
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.max_declarations", types.MaxDeclarations)
	v.SetDefault("database.url", "")

	// Bind environment variables with AA_ prefix
	v.SetEnvPrefix("AA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Credentials stay in the environment
	if err := validateNoSecretsInConfig(configPath); err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		Rules: RulesConfig{
			File:          v.GetString("rules.file"),
			Inline:        v.GetString("rules.inline"),
			EnableLogging: v.GetBool("rules.enable_logging"),
		},
		Unit: UnitConfig{
			Module:  v.GetString("unit.module"),
			Variant: v.GetString("unit.variant"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			MaxConnections:  v.GetInt("server.max_connections"),
			RequestTimeout:  v.GetDuration("server.request_timeout"),
			MaxDeclarations: v.GetInt("server.max_declarations"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range, positive limits and the rule source.
func validateConfig(cfg *AppConfig) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxDeclarations <= 0 || cfg.Server.MaxDeclarations > types.MaxDeclarations {
		return fmt.Errorf("max_declarations must be between 1 and %d, got %d", types.MaxDeclarations, cfg.Server.MaxDeclarations)
	}
	if cfg.Rules.File != "" && cfg.Rules.Inline != "" {
		return fmt.Errorf("rules.file and rules.inline are mutually exclusive")
	}
	return nil
}

// validateNoSecretsInConfig rejects a database URL carrying a password in
// the config file itself. Such URLs must come from AA_DATABASE_URL.
func validateNoSecretsInConfig(configPath string) error {
	if configPath == "" {
		return nil
	}
	// File-only view: environment overrides must not mask the file value
	fv := viper.New()
	fv.SetConfigFile(configPath)
	if err := fv.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if !fv.IsSet("database.url") {
		return nil
	}
	u, err := url.Parse(fv.GetString("database.url"))
	if err != nil {
		return fmt.Errorf("database.url: %w", err)
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return fmt.Errorf("database credentials not allowed in config files (use AA_DATABASE_URL environment variable)")
	}
	return nil
}
