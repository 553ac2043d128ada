package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"dicomsort/internal/anonymize"
	"dicomsort/internal/services"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Sort contains the default job settings used by the sort command.
type Sort struct {
	DirectoryTemplates []string `toml:"directory_templates"`
	// Mirror reproduces the source tree instead of rendering directory templates.
	Mirror           bool     `toml:"mirror"`
	FilenameTemplate string   `toml:"filename_template"`
	KeepOriginal     bool     `toml:"keep_original"`
	KeepFilename     bool     `toml:"keep_filename"`
	SeriesFirst      bool     `toml:"series_first"`
	Workers          int      `toml:"workers"`
	RecursionLimit   int      `toml:"recursion_limit"`
	CollisionSuffix  string   `toml:"collision_suffix"`
	Ignore           []string `toml:"ignore"`
}

// Anonymize contains field replacement rules applied to every sorted record.
type Anonymize struct {
	Enabled   bool              `toml:"enabled"`
	RulesFile string            `toml:"rules_file"`
	Rules     map[string]string `toml:"rules"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for dicomsort.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Sort      Sort      `toml:"sort"`
	Anonymize Anonymize `toml:"anonymize"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "parse", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dicomsort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. The output
// directory is created lazily by the sorter.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JournalPath returns the sqlite journal location inside the state directory.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// LockPath returns the file locked for the duration of a sort run.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "sort.lock")
}

// DirectoryTemplates returns the configured directory templates, or nil when
// mirror mode is selected.
func (c *Config) DirectoryTemplates() []string {
	if c.Sort.Mirror {
		return nil
	}
	return append([]string{}, c.Sort.DirectoryTemplates...)
}

// AnonymizeRules merges the rules file with the inline rules table. Inline
// rules win on conflicts. Disabled anonymization yields nil.
func (c *Config) AnonymizeRules() (anonymize.Rules, error) {
	if !c.Anonymize.Enabled {
		return nil, nil
	}
	rules := anonymize.Rules{}
	if c.Anonymize.RulesFile != "" {
		fromFile, err := anonymize.LoadRulesFile(c.Anonymize.RulesFile)
		if err != nil {
			return nil, err
		}
		for name, value := range fromFile {
			rules[name] = value
		}
	}
	for name, value := range c.Anonymize.Rules {
		rules[name] = value
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
