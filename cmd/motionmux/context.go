package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"motionmux/internal/config"
	"motionmux/internal/history"
	"motionmux/internal/ledger"
	"motionmux/internal/logging"
	"motionmux/internal/services"
)

type commandContext struct {
	configFlag *string
	ledgerFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, ledgerFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		ledgerFlag: ledgerFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "cli", "load config", "", err)
			return
		}
		if c.ledgerFlag != nil && strings.TrimSpace(*c.ledgerFlag) != "" {
			path, err := config.ExpandPath(strings.TrimSpace(*c.ledgerFlag))
			if err != nil {
				c.configErr = services.Wrap(services.ErrConfiguration, "cli", "resolve --ledger", "", err)
				return
			}
			cfg.Paths.LedgerPath = path
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger once the final configuration is
// known; callers apply flag overrides first.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openLedger() (*ledger.Ledger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(cfg.Paths.LedgerPath, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrLedger, "cli", "open ledger", cfg.Paths.LedgerPath, err)
	}
	return l, nil
}

// openHistory returns nil without error when the journal is disabled.
func (c *commandContext) openHistory() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Paths.HistoryPath == "" {
		return nil, nil
	}
	store, err := history.Open(cfg.Paths.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("open history journal: %w", err)
	}
	return store, nil
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
