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
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	c.normalizeMuxer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LedgerPath) == "" {
		c.Paths.LedgerPath = defaultLedgerPath
	}
	if c.Paths.LedgerPath, err = expandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.HistoryPath, err = expandPath(strings.TrimSpace(c.Paths.HistoryPath)); err != nil {
		return fmt.Errorf("paths.history_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockPath) == "" {
		c.Paths.LockPath = defaultLockPath
	}
	if c.Paths.LockPath, err = expandPath(c.Paths.LockPath); err != nil {
		return fmt.Errorf("paths.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeOutput() error {
	var err error
	if c.Output.Directory, err = expandPath(strings.TrimSpace(c.Output.Directory)); err != nil {
		return fmt.Errorf("output.directory: %w", err)
	}
	return nil
}

func (c *Config) normalizeMuxer() {
	c.Muxer.Binary = strings.TrimSpace(c.Muxer.Binary)
	if c.Muxer.Binary == "" {
		if value, ok := os.LookupEnv(muxerBinaryEnv); ok {
			c.Muxer.Binary = strings.TrimSpace(value)
		}
	}
	if c.Muxer.Binary == "" {
		c.Muxer.Binary = defaultMuxerBinary
	}
	if len(c.Muxer.Args) == 0 {
		c.Muxer.Args = DefaultMuxerArgs()
	}
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
}
