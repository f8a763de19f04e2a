// internal/rules/synthesize.go
package rules

import (
	"fmt"
	"strings"

	"github.com/solatis/autoannotate/internal/diag"
	"github.com/solatis/autoannotate/internal/types"
)

// placeholders is the fixed substitution table for parameter templates.
var placeholders = map[string]func(*types.Declaration) string{
	"className":     func(d *types.Declaration) string { return d.Name },
	"name":          func(d *types.Declaration) string { return d.Name },
	"qualifiedName": func(d *types.Declaration) string { return d.FQName() },
	"packageName":   func(d *types.Declaration) string { return d.Package },
	"kind":          func(d *types.Declaration) string { return d.Kind.String() },
}

// RenderTemplate substitutes {placeholder} occurrences in tmpl with values
// taken from decl. Unknown placeholders and unbalanced braces are kept as is.
func RenderTemplate(tmpl string, decl *types.Declaration) string {
	if !strings.Contains(tmpl, "{") {
		return tmpl
	}

	var b strings.Builder
	b.Grow(len(tmpl))
	for {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			break
		}
		end += open

		b.WriteString(tmpl[:open])
		key := tmpl[open+1 : end]
		if fn, ok := placeholders[key]; ok {
			b.WriteString(fn(decl))
		} else {
			b.WriteString(tmpl[open : end+1])
		}
		tmpl = tmpl[end+1:]
	}
	b.WriteString(tmpl)
	return b.String()
}

// Synthesize builds the annotations rule adds to decl. Annotations already
// attached to decl are skipped silently; annotations whose class cannot be
// resolved, or resolves to something that is not an annotation class, are
// skipped with a WARNING diagnostic.
func Synthesize(rule *CompiledRule, decl *types.Declaration, resolver Resolver) ([]types.Annotation, []diag.Diagnostic) {
	var (
		out   []types.Annotation
		diags []diag.Diagnostic
	)
	seen := make(map[string]struct{}, len(rule.Annotations))

	for _, spec := range rule.Annotations {
		if _, dup := seen[spec.FQName]; dup {
			continue
		}
		seen[spec.FQName] = struct{}{}

		if decl.HasAnnotation(spec.FQName) {
			continue
		}

		sym, ok := resolver.Symbol(spec.FQName)
		if !ok {
			diags = append(diags, resolutionWarning(rule, decl,
				fmt.Sprintf("annotation class @%s not found", spec.ShortName())))
			continue
		}
		if sym.Class == nil || sym.Class.Kind != types.ClassKindAnnotation {
			diags = append(diags, resolutionWarning(rule, decl,
				fmt.Sprintf("%s is not an annotation class", spec.FQName)))
			continue
		}

		ann := types.Annotation{FQName: spec.FQName}
		if len(spec.Parameters) > 0 {
			ann.Arguments = make(map[string]string, len(spec.Parameters))
			for k, v := range spec.Parameters {
				ann.Arguments[k] = RenderTemplate(v, decl)
			}
		}
		out = append(out, ann)
	}
	return out, diags
}

func resolutionWarning(rule *CompiledRule, decl *types.Declaration, msg string) diag.Diagnostic {
	return diag.Diagnostic{
		Severity:    diag.SeverityWarning,
		Kind:        diag.KindResolution,
		Declaration: decl.FQName(),
		Rule:        rule.Index,
		Message:     msg,
	}
}
