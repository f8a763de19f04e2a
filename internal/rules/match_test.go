// internal/rules/match_test.go
package rules

import (
	"testing"

	"github.com/solatis/autoannotate/internal/types"
)

func compileRules(t *testing.T, rules ...types.Rule) *RuleSet {
	t.Helper()
	rs, err := NewRuleSet(rules)
	if err != nil {
		t.Fatalf("NewRuleSet() error = %v", err)
	}
	return rs
}

func TestFindApplicableRules_Filters(t *testing.T) {
	base := classRule("com.project", "com.project.A")

	onlyApp := base
	onlyApp.ModuleTarget = []types.ModuleTarget{{ModuleName: "app", Inclusion: true}}

	notApp := base
	notApp.ModuleTarget = []types.ModuleTarget{{ModuleName: "app", Inclusion: false}}

	jvmOnly := base
	jvmOnly.SourceSets = []string{"jvmMain"}

	functions := base
	functions.ClassTargets = nil
	functions.FunctionTargets = []types.FunctionTarget{types.FunctionPlain}

	rs := compileRules(t, base, onlyApp, notApp, jvmOnly, functions)
	decl := class("Hello")
	tags := Classify(decl)

	tests := []struct {
		name string
		pkg  string
		unit types.Unit
		want []int
	}{
		{"app on jvm", "com.project", types.Unit{Module: "app", Variant: "jvmMain"}, []int{0, 1, 3}},
		{"lib on js", "com.project", types.Unit{Module: "lib", Variant: "jsMain"}, []int{0, 2}},
		{"other package", "com.other", types.Unit{Module: "app", Variant: "jvmMain"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindApplicableRules(rs, decl, tags, tt.pkg, tt.unit)
			if len(got) != len(tt.want) {
				t.Fatalf("FindApplicableRules() returned %d rules, want %v", len(got), tt.want)
			}
			for i, r := range got {
				if r.Index != tt.want[i] {
					t.Errorf("rule %d index = %d, want %d", i, r.Index, tt.want[i])
				}
			}
		})
	}
}

func TestCompiledRule_Applies_PackageTargetsAreOred(t *testing.T) {
	rule := classRule("com.project", "com.project.A")
	rule.PackageTarget = []types.PackageTarget{
		{Pattern: "com.project", MatchType: types.MatchExact},
		{Pattern: "org.lib.*", MatchType: types.MatchWildcard},
	}
	compiled, err := Compile(&rule)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	tags := Classify(class("Hello"))

	for _, pkg := range []string{"com.project", "org.lib.core"} {
		if !compiled.Applies(tags, pkg, types.Unit{}) {
			t.Errorf("Applies(%q) = false, want true", pkg)
		}
	}
	if compiled.Applies(tags, "net.other", types.Unit{}) {
		t.Error("Applies(net.other) = true, want false")
	}
}

func TestCompiledRule_Applies_EmptyPackageTargetsNeverMatch(t *testing.T) {
	rule := classRule("com.project", "com.project.A")
	rule.PackageTarget = nil
	compiled, err := Compile(&rule)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if compiled.Applies(Classify(class("Hello")), "com.project", types.Unit{}) {
		t.Error("rule without package targets matched")
	}
}

func TestCompiledRule_Applies_EmptyCategoryNeverMatches(t *testing.T) {
	rule := classRule("com.project", "com.project.A")
	compiled, err := Compile(&rule)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if compiled.Applies(Classify(function("f", "")), "com.project", types.Unit{}) {
		t.Error("class-only rule matched a function")
	}
}

func TestCompiledRule_Applies_ExclusionWinsOverInclusion(t *testing.T) {
	rule := classRule("com.project", "com.project.A")
	rule.ModuleTarget = []types.ModuleTarget{
		{ModuleName: "app", Inclusion: true},
		{ModuleName: "app", Inclusion: false},
	}
	compiled, err := Compile(&rule)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if compiled.Applies(Classify(class("Hello")), "com.project", types.Unit{Module: "app"}) {
		t.Error("excluded module matched")
	}
}
