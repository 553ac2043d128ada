package anonymize

import (
	"fmt"
	"os"
	"strconv"

	"sigs.k8s.io/yaml"

	"dicomsort/internal/services"
)

// LoadRulesFile reads a YAML or JSON mapping of field name to value template.
// Scalar values are converted to text; nested values are rejected.
func LoadRulesFile(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "anonymize", "read rules file", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes a YAML or JSON rule document.
func ParseRules(data []byte) (Rules, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "anonymize", "parse rules", "rules must be a mapping of field to value", err)
	}
	rules := make(Rules, len(raw))
	for name, value := range raw {
		text, err := scalarText(value)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "anonymize", "parse rules", "rule "+name, err)
		}
		rules[name] = text
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

func scalarText(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", fmt.Errorf("value must be a scalar, got %T", value)
	}
}
