package config

import (
	"fmt"
	"strings"

	"dicomsort/internal/anonymize"
	"dicomsort/internal/services"
	"dicomsort/internal/template"
)

// Validate ensures the configuration is usable. Failures wrap
// services.ErrConfiguration.
func (c *Config) Validate() error {
	for _, check := range []func() error{c.validateSort, c.validateAnonymize, c.validateLogging} {
		if err := check(); err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "validate", "invalid configuration", err)
		}
	}
	return nil
}

func (c *Config) validateSort() error {
	if c.Sort.Workers < 1 || c.Sort.Workers > maxWorkers {
		return fmt.Errorf("sort.workers must be between 1 and %d", maxWorkers)
	}
	if c.Sort.RecursionLimit < 1 {
		return fmt.Errorf("sort.recursion_limit must be positive")
	}
	if strings.TrimSpace(c.Sort.CollisionSuffix) == "" || strings.ContainsAny(c.Sort.CollisionSuffix, `/\`) {
		return fmt.Errorf("sort.collision_suffix must be a non-empty name fragment")
	}
	if !c.Sort.Mirror && len(c.Sort.DirectoryTemplates) == 0 {
		return fmt.Errorf("sort.directory_templates must be set unless sort.mirror is true")
	}
	for i, tmpl := range c.Sort.DirectoryTemplates {
		if err := template.Validate(tmpl); err != nil {
			return fmt.Errorf("sort.directory_templates[%d]: %w", i, err)
		}
	}
	if err := template.Validate(c.Sort.FilenameTemplate); err != nil {
		return fmt.Errorf("sort.filename_template: %w", err)
	}
	return nil
}

func (c *Config) validateAnonymize() error {
	if err := anonymize.Rules(c.Anonymize.Rules).Validate(); err != nil {
		return fmt.Errorf("anonymize.rules: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
