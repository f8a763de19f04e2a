package config

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/solatis/autoannotate/internal/rules"
	"github.com/solatis/autoannotate/internal/types"
)

/*
 * Rule-set documents.
 *
 * Accepted forms, tried in this order:
 *   1. empty input: zero rules
 *   2. JSON, either the options envelope {"annotations": [...],
 *      "enableLogging": bool} or a bare array of rules
 *   3. base64 (standard or URL alphabet, padded or not) wrapping form 2,
 *      the transport encoding used when the document travels as a single
 *      command-line option
 *   4. YAML with the same two shapes
 *
 * Every decoding failure is a ConfigError wrapping ErrMalformedRuleSet.
 */

// Options is the decoded rule-set document.
type Options struct {
	Annotations   []types.Rule `json:"annotations" yaml:"annotations"`
	EnableLogging bool         `json:"enableLogging,omitempty" yaml:"enableLogging,omitempty"`
}

// RuleSet compiles the rules of the document.
func (o *Options) RuleSet() (*rules.RuleSet, error) {
	return rules.NewRuleSet(o.Annotations)
}

// ApplicableTo reports whether any rule can apply in the given source set:
// rules without sourceSets apply everywhere. Build tooling uses it to skip
// variants no rule targets.
func (o *Options) ApplicableTo(sourceSet string) bool {
	for _, r := range o.Annotations {
		if len(r.SourceSets) == 0 {
			return true
		}
		for _, ss := range r.SourceSets {
			if ss == sourceSet {
				return true
			}
		}
	}
	return false
}

// Encode returns the JSON envelope form of o, optionally base64-wrapped.
func (o *Options) Encode(wrap bool) ([]byte, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode rule set: %w", err)
	}
	if !wrap {
		return data, nil
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(data)))
	base64.StdEncoding.Encode(out, data)
	return out, nil
}

// DecodeOptions decodes a rule-set document in any accepted form.
func DecodeOptions(raw []byte) (*Options, error) {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 {
		return &Options{}, nil
	}

	if looksLikeJSON(data) {
		return decodeJSONOptions(data)
	}
	if decoded, ok := unwrapBase64(data); ok {
		return decodeJSONOptions(decoded)
	}
	return decodeYAMLOptions(data)
}

// LoadOptionsFile reads and decodes the rule-set document at path.
func LoadOptionsFile(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.ConfigError{Rule: -1, Field: path, Err: err}
	}
	return DecodeOptions(data)
}

func looksLikeJSON(data []byte) bool {
	return data[0] == '{' || data[0] == '['
}

// unwrapBase64 returns the decoded payload when data is base64 around JSON.
func unwrapBase64(data []byte) ([]byte, bool) {
	encodings := []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	}
	for _, enc := range encodings {
		decoded, err := enc.DecodeString(string(data))
		if err != nil {
			continue
		}
		decoded = bytes.TrimSpace(decoded)
		if len(decoded) > 0 && looksLikeJSON(decoded) {
			return decoded, true
		}
	}
	return nil, false
}

func malformed(format string, err error) error {
	return &types.ConfigError{Rule: -1, Err: fmt.Errorf("%w: %s: %v", types.ErrMalformedRuleSet, format, err)}
}

func decodeJSONOptions(data []byte) (*Options, error) {
	if data[0] == '[' {
		var rs []types.Rule
		if err := json.Unmarshal(data, &rs); err != nil {
			return nil, malformed("json", err)
		}
		return &Options{Annotations: rs}, nil
	}
	var opts Options
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, malformed("json", err)
	}
	return &opts, nil
}

func decodeYAMLOptions(data []byte) (*Options, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, malformed("yaml", err)
	}
	if len(node.Content) == 0 {
		return &Options{}, nil
	}

	doc := node.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		var rs []types.Rule
		if err := doc.Decode(&rs); err != nil {
			return nil, malformed("yaml", err)
		}
		return &Options{Annotations: rs}, nil
	case yaml.MappingNode:
		var opts Options
		if err := doc.Decode(&opts); err != nil {
			return nil, malformed("yaml", err)
		}
		return &opts, nil
	default:
		return nil, malformed("yaml", fmt.Errorf("document is neither a rule list nor an options mapping"))
	}
}
