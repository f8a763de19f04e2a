package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/autoannotate/internal/core/api"
	"github.com/solatis/autoannotate/internal/core/server"
	"github.com/solatis/autoannotate/internal/logging"
)

func newServeCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC annotator service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, global)
		},
	}
	cmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	cmd.Flags().Int("port", 50051, "gRPC server port")
	return cmd
}

func runServe(cmd *cobra.Command, global *globalOptions) error {
	logger := logging.GetLogger("serve")

	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	ruleOpts, rs, err := loadRuleSet(cfg, "")
	if err != nil {
		logger.Error().Err(err).Msg("Rule set rejected, serving without rules")
	}
	for _, w := range rs.Warnings() {
		logger.Warn().Int("rule", w.Rule).Msg(w.Message)
	}

	store, closeStore, err := openRunStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	annotatorOpts := []api.AnnotatorOption{
		api.WithLogger(logging.GetLogger("engine")),
		api.WithVerboseDiagnostics(ruleOpts != nil && ruleOpts.EnableLogging),
		api.WithMaxDeclarations(cfg.Server.MaxDeclarations),
	}
	if store != nil {
		annotatorOpts = append(annotatorOpts, api.WithRunRecorder(store))
	}
	annotator := api.NewAnnotator(rs, annotatorOpts...)

	service, err := api.NewAnnotatorService(annotator, cfg.Server.RequestTimeout)
	if err != nil {
		return err
	}
	grpcServer, err := server.NewGRPCServer(&cfg.Server, service)
	if err != nil {
		return err
	}

	logger.Info().
		Str("version", Version).
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Int("rules", rs.Len()).
		Str("etag", annotator.ETag()).
		Bool("recording", store != nil).
		Msg("Starting annotator service")

	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(cmd.Context())
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		logger.Info().Msg("Shutting down gracefully")
		return grpcServer.Shutdown(context.Background())
	}
}
