// internal/rules/engine_test.go
package rules

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/autoannotate/internal/diag"
	"github.com/solatis/autoannotate/internal/types"
)

func newEngine(t *testing.T, opts []Option, rules ...types.Rule) *Engine {
	t.Helper()
	return NewEngine(compileRules(t, rules...), opts...)
}

func TestEngine_EndToEnd(t *testing.T) {
	hello := class("Hello")
	world := class("World")
	project := file("com.project", hello)
	other := file("com.other", world)
	host := newTestHost(project, other).withAnnotations("com.project.MyDto")

	engine := newEngine(t, nil, classRule("com.project", "com.project.MyDto"))
	stats := engine.Apply(host, types.Unit{}, project, other)

	if got := annotationNames(hello); !reflect.DeepEqual(got, []string{"com.project.MyDto"}) {
		t.Errorf("Hello annotations = %v, want [com.project.MyDto]", got)
	}
	if len(world.Annotations) != 0 {
		t.Errorf("World annotations = %v, want none", annotationNames(world))
	}
	if stats.Applied != 1 {
		t.Errorf("stats.Applied = %d, want 1", stats.Applied)
	}
	if stats.Visited != 4 {
		t.Errorf("stats.Visited = %d, want 4", stats.Visited)
	}
}

func TestEngine_EmptyRuleSetIsNoop(t *testing.T) {
	hello := class("Hello")
	root := file("com.project", hello)
	host := newTestHost(root)

	stats := NewEngine(nil).Apply(host, types.Unit{}, root)
	if stats != (Stats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
	if len(host.attached) != 0 {
		t.Errorf("attached = %v, want none", host.attached)
	}
}

func TestEngine_RecursionGating(t *testing.T) {
	tests := []struct {
		name      string
		normally  bool
		recursive bool
		wantInner bool
	}{
		{"not nested", false, false, false},
		{"recursive", false, true, true},
		{"normally", true, false, true},
		{"normally and recursive", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := class("Inner")
			outer := class("Outer", inner)
			root := file("com.project", outer)
			host := newTestHost(root).withAnnotations("com.project.Mark")

			rule := classRule("com.project", "com.project.Mark")
			rule.AnnotateNestedClassesNormallyInPackage = tt.normally
			rule.AnnotateNestedClassesRecursively = tt.recursive
			newEngine(t, nil, rule).Apply(host, types.Unit{}, root)

			if countAnnotation(outer, "com.project.Mark") != 1 {
				t.Errorf("Outer annotations = %v, want Mark once", annotationNames(outer))
			}
			if got := countAnnotation(inner, "com.project.Mark") == 1; got != tt.wantInner {
				t.Errorf("Inner annotated = %v, want %v", got, tt.wantInner)
			}
			if countAnnotation(inner, "com.project.Mark") > 1 {
				t.Errorf("Inner annotations = %v, duplicate Mark", annotationNames(inner))
			}
		})
	}
}

func TestEngine_NestedClassTargetWithoutRecursion(t *testing.T) {
	nested := class("Nested")
	outer := class("Outer", nested)
	root := file("com.project", outer)
	host := newTestHost(root).withAnnotations("com.project.NestedClassAnnotation")

	rule := classRule("com.project", "com.project.NestedClassAnnotation")
	rule.ClassTargets = []types.ClassTarget{types.ClassNested}
	newEngine(t, nil, rule).Apply(host, types.Unit{}, root)

	if countAnnotation(nested, "com.project.NestedClassAnnotation") != 1 {
		t.Errorf("Nested annotations = %v, want NestedClassAnnotation", annotationNames(nested))
	}
	if len(outer.Annotations) != 0 {
		t.Errorf("Outer annotations = %v, want none", annotationNames(outer))
	}
}

func TestEngine_FieldReferenceGating(t *testing.T) {
	for _, field := range []bool{false, true} {
		t.Run(fmt.Sprintf("field=%v", field), func(t *testing.T) {
			target := class("Target")
			holder := class("Holder", property("target", "com.other.Target?"))
			project := file("com.project", holder)
			other := file("com.other", target)
			host := newTestHost(project, other).withAnnotations("com.project.Mark")

			rule := classRule("com.project", "com.project.Mark")
			rule.AnnotateFieldClassesRecursively = field
			newEngine(t, nil, rule).Apply(host, types.Unit{}, project, other)

			if countAnnotation(holder, "com.project.Mark") != 1 {
				t.Errorf("Holder annotations = %v, want Mark", annotationNames(holder))
			}
			if got := countAnnotation(target, "com.project.Mark") == 1; got != field {
				t.Errorf("Target annotated = %v, want %v", got, field)
			}
		})
	}
}

func TestEngine_NestedAndFieldReferenced(t *testing.T) {
	tests := []struct {
		name      string
		normally  bool
		recursive bool
		field     bool
		wantInner bool
	}{
		{"everything on", true, true, true, true},
		{"everything off", false, false, false, false},
		{"field only, nested gate closed", false, false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := class("Inner")
			outer := class("Outer", inner, property("field", "com.project.Outer.Inner"))
			root := file("com.project", outer)
			host := newTestHost(root).withAnnotations("com.project.TestAnnotation")

			rule := classRule("com.project", "com.project.TestAnnotation")
			rule.AnnotateNestedClassesNormallyInPackage = tt.normally
			rule.AnnotateNestedClassesRecursively = tt.recursive
			rule.AnnotateFieldClassesRecursively = tt.field
			newEngine(t, nil, rule).Apply(host, types.Unit{}, root)

			want := 0
			if tt.wantInner {
				want = 1
			}
			if got := countAnnotation(inner, "com.project.TestAnnotation"); got != want {
				t.Errorf("Inner TestAnnotation count = %d, want %d", got, want)
			}
		})
	}
}

func TestEngine_FieldReferenceCycle(t *testing.T) {
	a := class("A", property("b", "com.project.B"))
	b := class("B", property("a", "com.project.A"), property("self", "com.project.B"))
	root := file("com.project", a, b)
	host := newTestHost(root).withAnnotations("com.project.Mark")

	rule := classRule("com.project", "com.project.Mark")
	rule.AnnotateFieldClassesRecursively = true
	newEngine(t, nil, rule).Apply(host, types.Unit{}, root)

	if countAnnotation(a, "com.project.Mark") != 1 || countAnnotation(b, "com.project.Mark") != 1 {
		t.Errorf("annotations A=%v B=%v, want Mark once each", annotationNames(a), annotationNames(b))
	}
}

func TestEngine_DeduplicatesExistingAnnotation(t *testing.T) {
	inner := class("Inner")
	inner.Annotations = []types.Annotation{{FQName: "com.project.Existing"}}
	outer := class("Outer", inner)
	root := file("com.project", outer)
	host := newTestHost(root).withAnnotations("com.project.Existing")

	rule := classRule("com.project", "com.project.Existing")
	rule.AnnotateNestedClassesRecursively = true
	newEngine(t, nil, rule).Apply(host, types.Unit{}, root)

	if got := countAnnotation(inner, "com.project.Existing"); got != 1 {
		t.Errorf("Inner Existing count = %d, want 1", got)
	}
	if got := countAnnotation(outer, "com.project.Existing"); got != 1 {
		t.Errorf("Outer Existing count = %d, want 1", got)
	}
}

func TestEngine_OverlappingRules(t *testing.T) {
	hello := class("Hello")
	root := file("com.project", hello)
	host := newTestHost(root).withAnnotations("com.project.A", "com.project.B")

	first := classRule("com.project", "com.project.A")
	second := classRule("com.project", "com.project.A", "com.project.B")
	newEngine(t, nil, first, second).Apply(host, types.Unit{}, root)

	want := []string{"com.project.A", "com.project.B"}
	if got := annotationNames(hello); !reflect.DeepEqual(got, want) {
		t.Errorf("annotations = %v, want %v", got, want)
	}
}

func TestEngine_MemberRules(t *testing.T) {
	getter := function("getName", "kotlin.String")
	counter := function("count", "kotlin.Int")
	field := property("name", "kotlin.String")
	local := &types.Declaration{Kind: types.DeclVariable, Name: "tmp", Property: &types.PropertyInfo{Type: "kotlin.Int"}}
	counter.Members = []*types.Declaration{local}
	alias := &types.Declaration{Kind: types.DeclTypeAlias, Name: "Id", TypeAlias: &types.TypeAliasInfo{Target: "kotlin.Long"}}
	root := file("com.project", class("User", getter, counter, field), alias)
	host := newTestHost(root).withAnnotations("com.project.Getter", "com.project.Field", "com.project.Local", "com.project.Alias", "com.project.File")

	fn := types.DefaultRule()
	fn.AnnotationsToAdd = []types.AnnotationSpec{{FQName: "com.project.Getter"}}
	fn.FunctionTargets = []types.FunctionTarget{types.FunctionPlain}
	fn.PackageTarget = []types.PackageTarget{{Pattern: "com.*", MatchType: types.MatchWildcard}}
	fn.Conditions = []types.Condition{{NamePattern: strPtr("get.*")}}

	pr := fn
	pr.AnnotationsToAdd = []types.AnnotationSpec{{FQName: "com.project.Field"}}
	pr.FunctionTargets = nil
	pr.PropertyTargets = []types.PropertyTarget{types.PropertyPlain}
	pr.Conditions = []types.Condition{{TypeCondition: &types.TypeCondition{TypeNames: []string{"String"}}}}

	loc := pr
	loc.AnnotationsToAdd = []types.AnnotationSpec{{FQName: "com.project.Local"}}
	loc.PropertyTargets = []types.PropertyTarget{types.PropertyLocalVariable}
	loc.Conditions = nil

	ta := loc
	ta.AnnotationsToAdd = []types.AnnotationSpec{{FQName: "com.project.Alias"}}
	ta.PropertyTargets = nil
	ta.TypeAliasTargets = []types.TypeAliasTarget{types.TypeAliasPlain}

	fl := ta
	fl.AnnotationsToAdd = []types.AnnotationSpec{{FQName: "com.project.File"}}
	fl.TypeAliasTargets = nil
	fl.FileTargets = []types.FileTarget{types.FilePlain}

	newEngine(t, nil, fn, pr, loc, ta, fl).Apply(host, types.Unit{}, root)

	checks := []struct {
		decl *types.Declaration
		want []string
	}{
		{getter, []string{"com.project.Getter"}},
		{counter, []string{}},
		{field, []string{"com.project.Field"}},
		{local, []string{"com.project.Local"}},
		{alias, []string{"com.project.Alias"}},
		{root, []string{"com.project.File"}},
	}
	for _, c := range checks {
		if got := annotationNames(c.decl); !reflect.DeepEqual(got, c.want) {
			t.Errorf("%s annotations = %v, want %v", c.decl.Name, got, c.want)
		}
	}
}

func TestEngine_UnresolvedAnnotationWarns(t *testing.T) {
	hello := class("Hello")
	root := file("com.project", hello)
	host := newTestHost(root).withAnnotations("com.project.Known")
	collector := &diag.Collector{}

	engine := newEngine(t, []Option{WithReporter(collector)}, classRule("com.project", "com.project.Unknown", "com.project.Known"))
	engine.Apply(host, types.Unit{}, root)

	if got := annotationNames(hello); !reflect.DeepEqual(got, []string{"com.project.Known"}) {
		t.Errorf("annotations = %v, want [com.project.Known]", got)
	}
	warnings := collector.Filter(diag.KindResolution)
	if len(warnings) != 1 || warnings[0].Message != "annotation class @Unknown not found" {
		t.Errorf("resolution warnings = %v", warnings)
	}
}

func TestEngine_FailuresBecomeWarnings(t *testing.T) {
	t.Run("attach error", func(t *testing.T) {
		a, b := class("A"), class("B")
		root := file("com.project", a, b)
		host := newTestHost(root).withAnnotations("com.project.Mark")
		host.attachErr = errors.New("read-only tree")
		collector := &diag.Collector{}

		stats := newEngine(t, []Option{WithReporter(collector)}, classRule("com.project", "com.project.Mark")).
			Apply(host, types.Unit{}, root)

		if stats.Failures != 2 {
			t.Errorf("stats.Failures = %d, want 2", stats.Failures)
		}
		if n := len(collector.Filter(diag.KindFailure)); n != 2 {
			t.Errorf("failure diagnostics = %d, want 2", n)
		}
	})

	t.Run("attach panic", func(t *testing.T) {
		a, b := class("A"), class("B")
		root := file("com.project", a, b)
		host := newTestHost(root).withAnnotations("com.project.Mark")
		host.attachPanic = true
		collector := &diag.Collector{}

		stats := newEngine(t, []Option{WithReporter(collector)}, classRule("com.project", "com.project.Mark")).
			Apply(host, types.Unit{}, root)

		if stats.Failures != 2 {
			t.Errorf("stats.Failures = %d, want 2", stats.Failures)
		}
		for _, d := range collector.Filter(diag.KindFailure) {
			if d.Severity != diag.SeverityWarning || !strings.Contains(d.Message, "attach exploded") {
				t.Errorf("diagnostic = %v", d)
			}
		}
	})

	t.Run("evaluation error", func(t *testing.T) {
		var chain []*types.Declaration
		for i := 0; i <= types.MaxTraversalDepth+2; i++ {
			chain = append(chain, classWith(fmt.Sprintf("C%d", i),
				types.ClassInfo{Modality: types.ModalityOpen, Superclass: fmt.Sprintf("com.project.C%d", i+1)}))
		}
		root := file("com.project", chain[0])
		host := newTestHost(root, file("com.project", chain[1:]...)).withAnnotations("com.project.Mark")
		collector := &diag.Collector{}

		rule := classRule("com.project", "com.project.Mark")
		rule.Conditions = []types.Condition{{Inheritance: &types.InheritanceCondition{Superclass: "com.project.Nowhere"}}}
		newEngine(t, []Option{WithReporter(collector)}, rule).Apply(host, types.Unit{}, root)

		if len(chain[0].Annotations) != 0 {
			t.Errorf("annotations = %v, want none", annotationNames(chain[0]))
		}
		if n := len(collector.Filter(diag.KindEvaluation)); n != 1 {
			t.Errorf("evaluation diagnostics = %d, want 1", n)
		}
	})

	t.Run("uncompilable name pattern", func(t *testing.T) {
		a, b := class("A"), class("B")
		root := file("com.project", a, b)
		host := newTestHost(root).withAnnotations("com.project.Mark", "com.project.Other")
		collector := &diag.Collector{}

		good := classRule("com.project", "com.project.Mark")
		bad := classRule("com.project", "com.project.Other")
		bad.Conditions = []types.Condition{{NamePattern: strPtr("([unclosed")}}
		stats := newEngine(t, []Option{WithReporter(collector)}, good, bad).Apply(host, types.Unit{}, root)

		for _, d := range []*types.Declaration{a, b} {
			if got := annotationNames(d); !reflect.DeepEqual(got, []string{"com.project.Mark"}) {
				t.Errorf("%s annotations = %v, want [com.project.Mark]", d.Name, got)
			}
		}
		if stats.Applied != 2 {
			t.Errorf("stats.Applied = %d, want 2", stats.Applied)
		}
		if stats.Failures != 2 {
			t.Errorf("stats.Failures = %d, want 2", stats.Failures)
		}
		evals := collector.Filter(diag.KindEvaluation)
		if len(evals) != 2 {
			t.Fatalf("evaluation diagnostics = %d, want 2", len(evals))
		}
		for _, d := range evals {
			if d.Severity != diag.SeverityWarning || d.Rule != 1 || !strings.Contains(d.Message, "namePattern") {
				t.Errorf("diagnostic = %v, want rule 1 namePattern warning", d)
			}
		}
	})

	t.Run("resolver panic", func(t *testing.T) {
		broken := classWith("Broken", types.ClassInfo{Superclass: "com.lib.Broken"})
		plain := class("Plain")
		root := file("com.project", broken, plain)
		host := newTestHost(root).withAnnotations("com.project.Mark", "com.project.Entity")
		host.symbolPanic = "com.lib.Broken"
		collector := &diag.Collector{}

		inherits := classRule("com.project", "com.project.Entity")
		inherits.Conditions = []types.Condition{{Inheritance: &types.InheritanceCondition{Superclass: "com.lib.Base"}}}
		stats := newEngine(t, []Option{WithReporter(collector)}, inherits, classRule("com.project", "com.project.Mark")).
			Apply(host, types.Unit{}, root)

		for _, d := range []*types.Declaration{broken, plain} {
			if got := annotationNames(d); !reflect.DeepEqual(got, []string{"com.project.Mark"}) {
				t.Errorf("%s annotations = %v, want [com.project.Mark]", d.Name, got)
			}
		}
		if stats.Failures != 1 {
			t.Errorf("stats.Failures = %d, want 1", stats.Failures)
		}
		failures := collector.Filter(diag.KindFailure)
		if len(failures) != 1 {
			t.Fatalf("failure diagnostics = %d, want 1", len(failures))
		}
		if d := failures[0]; d.Severity != diag.SeverityWarning || d.Rule != 0 || !strings.Contains(d.Message, "symbol table corrupted") {
			t.Errorf("diagnostic = %v, want rule 0 resolver failure", d)
		}
	})
}

func TestEngine_VerboseReportsInfo(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		t.Run(fmt.Sprintf("verbose=%v", verbose), func(t *testing.T) {
			inner := class("Inner")
			root := file("com.project", class("Outer", inner))
			host := newTestHost(root).withAnnotations("com.project.Mark")
			collector := &diag.Collector{}

			rule := classRule("com.project", "com.project.Mark")
			rule.AnnotateNestedClassesNormallyInPackage = false
			newEngine(t, []Option{WithReporter(collector), WithVerbose(verbose)}, rule).Apply(host, types.Unit{}, root)

			applied := collector.Filter(diag.KindApplied)
			skipped := collector.Filter(diag.KindSkipped)
			if verbose {
				if len(applied) != 1 || applied[0].Declaration != "com.project.Outer" {
					t.Errorf("applied diagnostics = %v", applied)
				}
				if len(skipped) == 0 {
					t.Error("no skipped diagnostics for the nested class")
				}
			} else if len(applied)+len(skipped) != 0 {
				t.Errorf("INFO diagnostics reported without verbose: %v", collector.Diagnostics())
			}
			if len(collector.Warnings()) != 0 {
				t.Errorf("warnings = %v, want none", collector.Warnings())
			}
		})
	}
}

func TestEngine_TraversalDepthBounded(t *testing.T) {
	leaf := class("Leaf")
	cur := leaf
	for i := 0; i < types.MaxTraversalDepth+5; i++ {
		cur = class(fmt.Sprintf("L%d", i), cur)
	}
	root := file("com.project", cur)
	host := newTestHost(root).withAnnotations("com.project.Mark")
	collector := &diag.Collector{}

	newEngine(t, []Option{WithReporter(collector)}, classRule("com.project", "com.project.Mark")).
		Apply(host, types.Unit{}, root)

	if len(leaf.Annotations) != 0 {
		t.Error("declaration below the depth limit was annotated")
	}
	if len(collector.Filter(diag.KindTraversal)) == 0 {
		t.Error("no traversal warning")
	}
	if len(cur.Annotations) != 1 {
		t.Errorf("top-level class annotations = %v, want Mark", annotationNames(cur))
	}
}

func TestPass_ApplyTwiceAttachesNothingNew(t *testing.T) {
	hello := class("Hello", class("Inner"))
	root := file("com.project", hello)
	host := newTestHost(root).withAnnotations("com.project.Mark")

	rule := classRule("com.project", "com.project.Mark")
	rule.AnnotateNestedClassesRecursively = true
	pass := newEngine(t, nil, rule).NewPass(host, types.Unit{})

	first := pass.Apply(root)
	second := pass.Apply(root)
	if first.Applied != 2 {
		t.Errorf("first.Applied = %d, want 2", first.Applied)
	}
	if second.Applied != 0 {
		t.Errorf("second.Applied = %d, want 0", second.Applied)
	}
	if pass.Stats().Applied != 2 {
		t.Errorf("pass.Stats().Applied = %d, want 2", pass.Stats().Applied)
	}
}

// genTree builds a small random tree from a seed: nested classes, field
// references between classes and a mix of existing annotations.
func genTree(seed int64) *types.Declaration {
	r := seed
	next := func(n int64) int64 {
		r = (r*6364136223846793005 + 1442695040888963407) & 0x7fffffffffffffff
		return (r >> 33) % n
	}

	var names []string
	var build func(depth int, prefix string) *types.Declaration
	build = func(depth int, prefix string) *types.Declaration {
		name := fmt.Sprintf("C%d", len(names))
		fq := prefix + "." + name
		names = append(names, fq)
		c := classWith(name, types.ClassInfo{Modality: types.Modality(next(4) + 1), Data: next(2) == 0})
		if next(3) == 0 {
			c.Annotations = append(c.Annotations, types.Annotation{FQName: "com.project.A"})
		}
		if depth < 3 {
			for i := int64(0); i < next(3); i++ {
				c.Members = append(c.Members, build(depth+1, fq))
			}
		}
		if len(names) > 1 && next(2) == 0 {
			c.Members = append(c.Members, property("ref", names[next(int64(len(names)))]))
		}
		return c
	}

	root := file("com.project")
	for i := int64(0); i < 1+next(3); i++ {
		root.Members = append(root.Members, build(0, "com.project"))
	}
	return root
}

func snapshot(root *types.Declaration) map[string][]string {
	out := make(map[string][]string)
	types.Walk(root, func(d *types.Declaration) bool {
		out[d.FQName()] = annotationNames(d)
		return true
	})
	return out
}

func propertyRules() []types.Rule {
	a := classRule("com.project", "com.project.A", "com.project.B")
	a.ClassTargets = []types.ClassTarget{types.ClassRegular, types.ClassData, types.ClassOpen}
	a.AnnotateNestedClassesRecursively = true
	a.AnnotateFieldClassesRecursively = true

	b := classRule("com.project", "com.project.C")
	b.Conditions = []types.Condition{{ExistingAnnotations: []string{"com.project.A"}}}
	b.AnnotateFieldClassesRecursively = true
	return []types.Rule{a, b}
}

func TestEngine_Properties(t *testing.T) {
	rs, err := NewRuleSet(propertyRules())
	if err != nil {
		t.Fatalf("NewRuleSet() error = %v", err)
	}
	engine := NewEngine(rs)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("applying twice equals applying once", prop.ForAll(
		func(seed int64) bool {
			root := genTree(seed)
			host := newTestHost(root).withAnnotations("com.project.A", "com.project.B", "com.project.C")

			engine.Apply(host, types.Unit{}, root)
			once := snapshot(root)
			engine.Apply(host, types.Unit{}, root)
			return reflect.DeepEqual(once, snapshot(root))
		},
		gen.Int64Range(0, 1<<40),
	))

	properties.Property("no declaration carries an FQN twice", prop.ForAll(
		func(seed int64) bool {
			root := genTree(seed)
			host := newTestHost(root).withAnnotations("com.project.A", "com.project.B", "com.project.C")
			engine.Apply(host, types.Unit{}, root)

			ok := true
			types.Walk(root, func(d *types.Declaration) bool {
				seen := make(map[string]bool)
				for _, a := range d.Annotations {
					if seen[a.FQName] {
						ok = false
					}
					seen[a.FQName] = true
				}
				return ok
			})
			return ok
		},
		gen.Int64Range(0, 1<<40),
	))

	properties.Property("identical trees get identical annotations", prop.ForAll(
		func(seed int64) bool {
			left, right := genTree(seed), genTree(seed)
			engine.Apply(newTestHost(left).withAnnotations("com.project.A", "com.project.B", "com.project.C"), types.Unit{}, left)
			engine.Apply(newTestHost(right).withAnnotations("com.project.A", "com.project.B", "com.project.C"), types.Unit{}, right)
			return reflect.DeepEqual(snapshot(left), snapshot(right))
		},
		gen.Int64Range(0, 1<<40),
	))

	properties.TestingRun(t)
}
