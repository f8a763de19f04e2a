// Package tree is the reference host for the annotation engine: a
// declaration tree read from a JSON or YAML document, with the symbol lookups
// and the attach operation the engine needs.
package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/solatis/autoannotate/internal/types"
)

// Format selects the document encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// ParseFormat accepts "json", "yaml" and "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatJSON, fmt.Errorf("unknown document format %q", s)
	}
}

// FormatFromPath infers the format from a file extension; anything that is
// not .yaml or .yml is JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// External is a class visible to the unit but declared outside it:
// annotation classes and library supertypes.
type External struct {
	FQName     string          `json:"fqName" yaml:"fqName"`
	Kind       types.ClassKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Superclass string          `json:"superclass,omitempty" yaml:"superclass,omitempty"`
	Interfaces []string        `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
}

// Document is the serialized form of one compilation unit.
type Document struct {
	Module    string               `json:"module,omitempty" yaml:"module,omitempty"`
	Variant   string               `json:"variant,omitempty" yaml:"variant,omitempty"`
	Files     []*types.Declaration `json:"files" yaml:"files"`
	Externals []External           `json:"externals,omitempty" yaml:"externals,omitempty"`
}

// Decode parses a document.
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s document: %w", format, err)
	}
	return &doc, nil
}

// Load reads and decodes the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Decode(data, FormatFromPath(path))
}

// Encode writes doc to w.
func Encode(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml document: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json document: %w", err)
		}
		return nil
	}
}
