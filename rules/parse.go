package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// Parse parses rule configuration from YAML or JSON content and validates
// it.
func Parse(content []byte) (*Config, error) {
	c := &Config{}
	if isJSON(content) {
		if err := json.Unmarshal(content, c); err != nil {
			return nil, fmt.Errorf("parse rules: %w", err)
		}
	} else {
		if err := yaml.UnmarshalStrict(content, c); err != nil {
			return nil, fmt.Errorf("parse rules: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// ParseFile reads and parses a rule file.
func ParseFile(name string) (*Config, error) {
	content, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}

	return Parse(content)
}

func isJSON(content []byte) bool {
	return strings.HasPrefix(strings.TrimSpace(string(content)), "{")
}
