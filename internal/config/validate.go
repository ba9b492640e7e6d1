package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConflictingOptions reports two settings that cannot be combined.
var ErrConflictingOptions = errors.New("conflicting options")

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateMuxer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.Workers <= 0 {
		return errors.New("scan.workers must be positive")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.Overwrite && strings.TrimSpace(c.Output.Directory) != "" {
		return fmt.Errorf("%w: output.directory cannot be combined with output.overwrite", ErrConflictingOptions)
	}
	return nil
}

func (c *Config) validateMuxer() error {
	if strings.TrimSpace(c.Muxer.Binary) == "" {
		return errors.New("muxer.binary must be set")
	}
	if c.Muxer.TimeoutSeconds <= 0 {
		return errors.New("muxer.timeout_seconds must be positive")
	}
	joined := strings.Join(c.Muxer.Args, " ")
	for _, placeholder := range []string{placeholderImage, placeholderVideo, placeholderOutput} {
		if !strings.Contains(joined, placeholder) {
			return fmt.Errorf("muxer.args must reference %s", placeholder)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}
