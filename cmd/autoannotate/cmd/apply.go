package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/autoannotate/internal/core/api"
	"github.com/solatis/autoannotate/internal/logging"
	"github.com/solatis/autoannotate/internal/tree"
)

type applyOptions struct {
	rulesFile string
	treeFile  string
	output    string
	format    string
	module    string
	variant   string
	verbose   bool
}

func newApplyCmd(global *globalOptions) *cobra.Command {
	opts := &applyOptions{}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Annotate a declaration tree document",
		Long: `Apply loads the rule set and a declaration tree document, attaches the
annotations the rules select and writes the annotated document. Runs are
recorded when a database is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, global, opts)
		},
	}
	cmd.Flags().StringVar(&opts.rulesFile, "rules", "", "rule set file (overrides rules.file and rules.inline)")
	cmd.Flags().StringVar(&opts.treeFile, "tree", "-", "declaration tree document (- for stdin)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "output file (- for stdout)")
	cmd.Flags().StringVar(&opts.format, "format", "", "document format (json, yaml); inferred from --tree when empty")
	cmd.Flags().StringVar(&opts.module, "module", "", "module name (overrides unit.module and the document)")
	cmd.Flags().StringVar(&opts.variant, "variant", "", "source set (overrides unit.variant and the document)")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "log every applied and skipped rule")
	return cmd
}

func runApply(cmd *cobra.Command, global *globalOptions, opts *applyOptions) error {
	logger := logging.GetLogger("apply")
	ctx := cmd.Context()

	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}

	ruleOpts, rs, err := loadRuleSet(cfg, opts.rulesFile)
	if err != nil {
		// The pass still runs, with zero rules
		logger.Error().Err(err).Msg("Rule set rejected, continuing without rules")
	}
	for _, w := range rs.Warnings() {
		logger.Warn().Int("rule", w.Rule).Msg(w.Message)
	}

	format, err := documentFormat(opts.format, opts.treeFile)
	if err != nil {
		return err
	}
	doc, err := readDocument(cmd.InOrStdin(), opts.treeFile, format)
	if err != nil {
		return err
	}
	applyUnitOverrides(doc, cfg.Unit.Module, cfg.Unit.Variant)
	applyUnitOverrides(doc, opts.module, opts.variant)

	if ruleOpts != nil && rs.Len() > 0 && doc.Variant != "" && !ruleOpts.ApplicableTo(doc.Variant) {
		logger.Info().Str("variant", doc.Variant).Msg("No rule targets this source set")
		return writeDocument(cmd.OutOrStdout(), opts.output, doc, format)
	}

	store, closeStore, err := openRunStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	verbose := opts.verbose || (ruleOpts != nil && ruleOpts.EnableLogging)
	annotatorOpts := []api.AnnotatorOption{
		api.WithLogger(logging.GetLogger("engine")),
		api.WithVerboseDiagnostics(verbose),
		api.WithMaxDeclarations(cfg.Server.MaxDeclarations),
	}
	if store != nil {
		annotatorOpts = append(annotatorOpts, api.WithRunRecorder(store))
	}

	done := logging.LogOperationStart(logger, "apply")
	res, err := api.NewAnnotator(rs, annotatorOpts...).Annotate(ctx, doc)
	done()
	if err != nil {
		return err
	}

	logger.Info().
		Str("run_id", string(res.RunID)).
		Int("visited", res.Stats.Visited).
		Int("applied", res.Stats.Applied).
		Int("skipped", res.Stats.Skipped).
		Int("failures", res.Stats.Failures).
		Msg("Apply completed")

	return writeDocument(cmd.OutOrStdout(), opts.output, res.Document, format)
}

func applyUnitOverrides(doc *tree.Document, module, variant string) {
	if module != "" {
		doc.Module = module
	}
	if variant != "" {
		doc.Variant = variant
	}
}

func documentFormat(flag, path string) (tree.Format, error) {
	if flag != "" {
		return tree.ParseFormat(flag)
	}
	if path == "" || path == "-" {
		return tree.FormatJSON, nil
	}
	return tree.FormatFromPath(path), nil
}

func readDocument(stdin io.Reader, path string, format tree.Format) (*tree.Document, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		return tree.Decode(data, format)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return tree.Decode(data, format)
}

func writeDocument(stdout io.Writer, path string, doc *tree.Document, format tree.Format) error {
	if path == "" || path == "-" {
		return tree.Encode(stdout, doc, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := tree.Encode(f, doc, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
