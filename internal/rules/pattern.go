// internal/rules/pattern.go
package rules

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/solatis/autoannotate/internal/types"
)

/*
 * Package pattern matching.
 *
 * EXACT compares the whole package name. WILDCARD strips one trailing '*'
 * and compares prefixes ("com.project.*" matches "com.project.api" but not
 * "com.project"). REGEX is fully anchored: the expression must match the
 * whole candidate.
 *
 * Regexes are compiled while the rule set is compiled, never on the match
 * path. A regexCache shares compiled programs between rules that repeat a
 * pattern; regexp.Regexp is safe for concurrent use, so one compiled rule set
 * can serve parallel passes.
 */

// regexCache compiles each anchored expression once.
type regexCache struct {
	mu sync.Mutex
	m  map[string]*regexp.Regexp
}

func newRegexCache() *regexCache {
	return &regexCache{m: make(map[string]*regexp.Regexp)}
}

// compile returns the anchored program for expr.
func (c *regexCache) compile(expr string) (*regexp.Regexp, error) {
	anchored := anchor(expr)

	c.mu.Lock()
	defer c.mu.Unlock()

	if re, ok := c.m[anchored]; ok {
		return re, nil
	}
	re, err := regexp.Compile(anchored)
	if err != nil {
		return nil, err
	}
	c.m[anchored] = re
	return re, nil
}

func (c *regexCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// anchor wraps expr so that it must match the entire input.
func anchor(expr string) string {
	return `^(?:` + expr + `)$`
}

// PackageMatcher is a compiled PackageTarget.
type PackageMatcher struct {
	MatchType types.MatchType
	Value     string         // exact value, or wildcard prefix with '*' stripped
	Regex     *regexp.Regexp // nil unless MatchType is REGEX
}

// Match reports whether candidate satisfies the matcher.
// A REGEX matcher without a compiled regex fails closed.
func (m *PackageMatcher) Match(candidate string) bool {
	switch m.MatchType {
	case types.MatchExact:
		return candidate == m.Value
	case types.MatchWildcard:
		return strings.HasPrefix(candidate, m.Value)
	case types.MatchRegex:
		if m.Regex == nil {
			return false
		}
		return m.Regex.MatchString(candidate)
	default:
		return false
	}
}

// compilePackageTarget validates pt and builds its matcher. The returned
// warning is non-empty for targets that compile but look unintended.
func compilePackageTarget(pt types.PackageTarget, cache *regexCache) (*PackageMatcher, string, error) {
	switch pt.MatchType {
	case types.MatchExact:
		return &PackageMatcher{MatchType: types.MatchExact, Value: pt.Pattern}, "", nil

	case types.MatchWildcard:
		warning := ""
		if !strings.HasSuffix(pt.Pattern, "*") {
			warning = fmt.Sprintf("wildcard pattern %q has no trailing '*', matching as a prefix", pt.Pattern)
		}
		return &PackageMatcher{
			MatchType: types.MatchWildcard,
			Value:     strings.TrimSuffix(pt.Pattern, "*"),
		}, warning, nil

	case types.MatchRegex:
		if pt.Regex == nil || *pt.Regex == "" {
			return nil, "", types.ErrMissingRegex
		}
		re, err := cache.compile(*pt.Regex)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", types.ErrInvalidRegex, err)
		}
		return &PackageMatcher{MatchType: types.MatchRegex, Value: *pt.Regex, Regex: re}, "", nil

	default:
		return nil, "", fmt.Errorf("%w: match type %d", types.ErrUnknownEnumValue, pt.MatchType)
	}
}

// MatchPackage matches a single uncompiled PackageTarget against candidate.
// Invalid targets (REGEX without regex, malformed regex) never match.
// Hot paths use the matchers of a compiled rule instead.
func MatchPackage(pt types.PackageTarget, candidate string) bool {
	m, _, err := compilePackageTarget(pt, newRegexCache())
	if err != nil {
		return false
	}
	return m.Match(candidate)
}
