package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSort()
	if err := c.normalizeAnonymize(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		if value, ok := os.LookupEnv("DICOMSORT_OUTPUT_DIR"); ok {
			c.Paths.OutputDir = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSort() {
	if strings.TrimSpace(c.Sort.FilenameTemplate) == "" {
		c.Sort.FilenameTemplate = defaultFilenameTemplate
	}
	if c.Sort.Workers == 0 {
		c.Sort.Workers = defaultWorkers
	}
	if c.Sort.RecursionLimit == 0 {
		c.Sort.RecursionLimit = defaultRecursionLimit
	}
	if c.Sort.CollisionSuffix == "" {
		c.Sort.CollisionSuffix = defaultCollisionSuffix
	}
	ignore := c.Sort.Ignore[:0]
	for _, pattern := range c.Sort.Ignore {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			ignore = append(ignore, trimmed)
		}
	}
	c.Sort.Ignore = ignore
}

func (c *Config) normalizeAnonymize() error {
	if c.Anonymize.Rules == nil {
		c.Anonymize.Rules = map[string]string{}
	}
	if strings.TrimSpace(c.Anonymize.RulesFile) == "" {
		c.Anonymize.RulesFile = ""
		return nil
	}
	var err error
	if c.Anonymize.RulesFile, err = expandPath(strings.TrimSpace(c.Anonymize.RulesFile)); err != nil {
		return fmt.Errorf("anonymize.rules_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
