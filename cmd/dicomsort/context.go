package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"dicomsort/internal/config"
	"dicomsort/internal/logging"
)

type commandContext struct {
	configFlag *string
	verbose    *bool
	quiet      *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string, verbose, quiet *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
		quiet:      quiet,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// newLogger builds the command logger. withRunLog also writes a per-run log
// file into the configured log directory and returns its name.
func (c *commandContext) newLogger(withRunLog bool) (*slog.Logger, string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	effective := *cfg
	if c.verbose != nil && *c.verbose {
		effective.Logging.Level = "debug"
	}
	runLog := ""
	if withRunLog {
		runLog = logging.RunLogName(time.Now())
	}
	logger, err := logging.NewFromConfig(&effective, runLog)
	if err != nil {
		return nil, "", err
	}
	if c.quiet != nil && *c.quiet {
		logger = logging.WithMinLevel(logger, slog.LevelWarn)
	}
	return logger, runLog, nil
}

func (c *commandContext) isQuiet() bool {
	return c.quiet != nil && *c.quiet
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
