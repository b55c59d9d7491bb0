package intent

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a Policy from a YAML file. Lists absent from the file
// keep their defaults, so a policy file only needs to name the vocabularies
// it overrides. A missing file (or empty path) returns the defaults.
func LoadFromFile(path string) (Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return p, fmt.Errorf("read intent policy %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse intent policy %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("validate intent policy %s: %w", path, err)
	}
	return p, nil
}

// Validate checks that a Policy is usable by the planner.
func (p *Policy) Validate() error {
	for _, v := range []struct {
		name string
		list []string
	}{
		{"file", p.File},
		{"research", p.Research},
		{"analysis", p.Analysis},
		{"messaging", p.Messaging},
		{"scheduling", p.Scheduling},
	} {
		if len(v.list) == 0 {
			return fmt.Errorf("intent: %s vocabulary is empty", v.name)
		}
	}
	if p.MinContentTokens < 1 {
		return fmt.Errorf("intent: min_content_tokens must be >= 1, got %d", p.MinContentTokens)
	}
	return nil
}
