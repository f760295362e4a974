package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateYtDlp(); err != nil {
		return err
	}
	if err := c.validatePOTServer(); err != nil {
		return err
	}
	if err := c.validateExtras(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTMDB() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/extrad/config.toml"
		}
		return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'extrad config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateYtDlp() error {
	switch c.YtDlp.Container {
	case "mkv", "mp4", "webm":
	default:
		return fmt.Errorf("ytdlp.container must be one of mkv, mp4, webm (got %q)", c.YtDlp.Container)
	}
	if c.YtDlp.MaxSleepInterval < c.YtDlp.SleepInterval {
		return errors.New("ytdlp.max_sleep_interval must be >= ytdlp.sleep_interval")
	}
	return nil
}

func (c *Config) validatePOTServer() error {
	if !c.POTServer.Enabled {
		return nil
	}
	if url := c.POTServer.ExternalURL; url != "" {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return fmt.Errorf("pot_server.external_url must be an http(s) URL (got %q)", url)
		}
		return nil
	}
	if c.POTServer.Port <= 0 || c.POTServer.Port > 65535 {
		return fmt.Errorf("pot_server.port must be a valid TCP port (got %d)", c.POTServer.Port)
	}
	return nil
}

func (c *Config) validateExtras() error {
	if c.Extras.MaxPerCategory < 0 {
		return errors.New("extras.max_per_category must not be negative")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	values := map[string]int{
		"workflow.queue_poll_interval":       c.Workflow.QueuePollInterval,
		"workflow.error_cooldown":            c.Workflow.ErrorCooldown,
		"workflow.processed_retention_hours": c.Workflow.ProcessedRetentionHours,
	}
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	return nil
}
