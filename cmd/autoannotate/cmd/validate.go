package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/solatis/autoannotate/internal/core/api"
	"github.com/solatis/autoannotate/internal/rules"
	"github.com/solatis/autoannotate/internal/tree"
)

func newValidateCmd(global *globalOptions) *cobra.Command {
	var rulesFile, treeFile string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compile a rule set and report its errors and warnings",
		Long: `Validate compiles the rule set and prints every load-time warning. With
--tree, the supertypes named by inheritance conditions are also resolved
against the declarations and externals of the document. Exits non-zero on any error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			_, rs, err := loadRuleSet(cfg, rulesFile)
			if err != nil {
				for _, e := range multierr.Errors(err) {
					fmt.Fprintf(out, "ERROR %v\n", e)
				}
				return fmt.Errorf("rule set invalid: %d error(s)", len(multierr.Errors(err)))
			}

			if treeFile != "" {
				doc, err := tree.Load(treeFile)
				if err != nil {
					return err
				}
				unit, err := tree.New(doc)
				if err != nil {
					return err
				}
				if err := rules.CheckSymbols(rs, unit); err != nil {
					for _, e := range multierr.Errors(err) {
						fmt.Fprintf(out, "ERROR %v\n", e)
					}
					return fmt.Errorf("rule set references unresolved symbols: %d error(s)", len(multierr.Errors(err)))
				}
			}

			for _, w := range rs.Warnings() {
				fmt.Fprintln(out, w.String())
			}
			fmt.Fprintf(out, "OK %d rule(s), %d warning(s), etag %s\n", rs.Len(), len(rs.Warnings()), api.RuleSetETag(rs))
			return nil
		},
	}
	cmd.Flags().StringVar(&rulesFile, "rules", "", "rule set file (overrides rules.file and rules.inline)")
	cmd.Flags().StringVar(&treeFile, "tree", "", "declaration tree document to check symbols against")
	return cmd
}
