package patterns

import (
	"context"
	"fmt"
	"io"

	"github.com/entrhq/envwarn/pkg/environment"
	"gopkg.in/yaml.v3"
)

// document is the YAML form of a pattern set. Field order follows the
// classification priority.
type document struct {
	Production  []string `yaml:"production"`
	Staging     []string `yaml:"staging"`
	Development []string `yaml:"development"`
	Test        []string `yaml:"test"`
}

// Export writes the current pattern set as YAML.
func (s *Store) Export(w io.Writer) error {
	set := s.Load()
	doc := document{
		Production:  nonNil(set[environment.Production]),
		Staging:     nonNil(set[environment.Staging]),
		Development: nonNil(set[environment.Development]),
		Test:        nonNil(set[environment.Test]),
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode patterns: %w", err)
	}
	return encoder.Close()
}

// Import reads a YAML pattern set and saves it, replacing the current one.
// Unknown keys are rejected so a typo cannot silently drop an environment.
func (s *Store) Import(ctx context.Context, r io.Reader) error {
	set, err := DecodeYAML(r)
	if err != nil {
		return err
	}
	return s.Save(ctx, set)
}

// DecodeYAML parses a YAML pattern set document.
func DecodeYAML(r io.Reader) (environment.PatternSet, error) {
	var doc document
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode patterns: %w", err)
	}

	return environment.PatternSet{
		environment.Production:  nonNil(doc.Production),
		environment.Staging:     nonNil(doc.Staging),
		environment.Development: nonNil(doc.Development),
		environment.Test:        nonNil(doc.Test),
	}, nil
}

func nonNil(patterns []string) []string {
	if patterns == nil {
		return []string{}
	}
	return patterns
}
