// Package rules loads per-document-type validation rules from a YAML file,
// falling back to compiled-in defaults when no file is configured.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lendstack/docpack/internal/core/domain"
)

type RuleSet struct {
	Default domain.ValidationRule                         `yaml:"default"`
	Types   map[domain.DocumentType]domain.ValidationRule `yaml:"types"`
}

const defaultMaxFileSize = 50 << 20

func Defaults() RuleSet {
	base := domain.ValidationRule{
		AcceptedTypes:     []string{"pdf", "doc", "docx", "xls", "xlsx"},
		AcceptedMimeTypes: []string{},
		MaxFileSize:       defaultMaxFileSize,
	}
	return RuleSet{
		Default: base,
		Types: map[domain.DocumentType]domain.ValidationRule{
			domain.DocTypeGuidelines: base,
			domain.DocTypeMatrix: {
				AcceptedTypes: []string{"pdf", "xls", "xlsx", "csv"},
				MaxFileSize:   defaultMaxFileSize,
			},
		},
	}
}

// Load reads the rule file at path. An empty path yields defaults; a missing
// or unparseable file is an error so a misconfigured deployment fails loudly
// at startup instead of accepting the wrong files.
func Load(path string) (RuleSet, error) {
	if path == "" {
		return Defaults(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rules file: %w", err)
	}

	set := Defaults()
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return RuleSet{}, fmt.Errorf("parse rules file: %w", err)
	}
	if set.Default.MaxFileSize <= 0 {
		set.Default.MaxFileSize = defaultMaxFileSize
	}
	return set, nil
}

// ForType returns the rule for a document type, or the default rule when no
// type-specific entry exists.
func (s RuleSet) ForType(docType domain.DocumentType) domain.ValidationRule {
	if rule, ok := s.Types[docType]; ok {
		return rule
	}
	return s.Default
}
