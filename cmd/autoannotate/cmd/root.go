package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/solatis/autoannotate/internal/core/config"
	"github.com/solatis/autoannotate/internal/core/db"
	"github.com/solatis/autoannotate/internal/logging"
	"github.com/solatis/autoannotate/internal/rules"
)

// Version of the autoannotate binary.
const Version = "0.1.0"

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "autoannotate",
		Short: "Rule-based annotation injection for declaration trees",
		Long: `autoannotate applies a declarative rule set to the declarations of a
compilation unit and attaches annotations to every declaration a rule selects.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.SetupWriter(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat); err != nil {
				return err
			}
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&opts.dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "json", "log format (json, text)")

	rootCmd.AddCommand(
		newApplyCmd(opts),
		newValidateCmd(opts),
		newServeCmd(opts),
		newMigrateCmd(opts),
		newRunsCmd(opts),
	)
	return rootCmd
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig reads the configuration and applies the --db-url override.
func (o *globalOptions) loadConfig() (*config.AppConfig, error) {
	cfg, err := config.LoadConfig(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.dbURL != "" {
		cfg.Database.URL = o.dbURL
	}
	return cfg, nil
}

// loadRuleSet loads and compiles the configured rule set. A rules file given
// on the command line replaces the configured source.
func loadRuleSet(cfg *config.AppConfig, rulesFile string) (*config.Options, *rules.RuleSet, error) {
	if rulesFile != "" {
		cfg.Rules.File = rulesFile
		cfg.Rules.Inline = ""
	}
	opts, err := cfg.LoadRules()
	if err != nil {
		return nil, rules.EmptyRuleSet(), err
	}
	rs, err := opts.RuleSet()
	return opts, rs, err
}

// openRunStore opens the run store when a database is configured. The
// returned close function is never nil.
func openRunStore(cfg *config.AppConfig) (*db.RunStore, func(), error) {
	if cfg.Database.URL == "" {
		return nil, func() {}, nil
	}
	database, err := db.Open(cfg.Database.URL)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open database: %w", err)
	}
	statuses, err := db.MigrateStatus(database)
	if err != nil {
		database.Close()
		return nil, func() {}, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			database.Close()
			return nil, func() {}, fmt.Errorf("migration %s not applied - run 'autoannotate migrate' first", s.ID)
		}
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, func() {}, fmt.Errorf("failed to load queries: %w", err)
	}
	return db.NewRunStore(queries), func() { database.Close() }, nil
}
