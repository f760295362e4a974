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
	if err := c.normalizeTMDB(); err != nil {
		return err
	}
	if err := c.normalizeYtDlp(); err != nil {
		return err
	}
	if err := c.normalizePOTServer(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTMDB() error {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimSpace(c.TMDB.BaseURL)
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	languages := make([]string, 0, len(c.TMDB.Languages))
	for _, lang := range c.TMDB.Languages {
		if trimmed := strings.TrimSpace(lang); trimmed != "" {
			languages = append(languages, trimmed)
		}
	}
	if len(languages) == 0 {
		languages = []string{defaultTMDBLanguage}
	}
	c.TMDB.Languages = languages
	return nil
}

func (c *Config) normalizeYtDlp() error {
	c.YtDlp.Binary = strings.TrimSpace(c.YtDlp.Binary)
	if c.YtDlp.Binary == "" {
		c.YtDlp.Binary = defaultYtDlpBinary
	}
	c.YtDlp.Format = strings.TrimSpace(c.YtDlp.Format)
	if c.YtDlp.Format == "" {
		c.YtDlp.Format = defaultYtDlpFormat
	}
	c.YtDlp.Container = strings.ToLower(strings.TrimSpace(c.YtDlp.Container))
	if c.YtDlp.Container == "" {
		c.YtDlp.Container = defaultYtDlpContainer
	}
	c.YtDlp.LimitRate = strings.TrimSpace(c.YtDlp.LimitRate)
	if c.YtDlp.CookiesPath != "" {
		expanded, err := expandPath(c.YtDlp.CookiesPath)
		if err != nil {
			return fmt.Errorf("ytdlp.cookies_path: %w", err)
		}
		c.YtDlp.CookiesPath = expanded
	}
	if c.YtDlp.SleepInterval <= 0 {
		c.YtDlp.SleepInterval = defaultYtDlpSleepInterval
	}
	if c.YtDlp.MaxSleepInterval < c.YtDlp.SleepInterval {
		c.YtDlp.MaxSleepInterval = c.YtDlp.SleepInterval
	}
	return nil
}

func (c *Config) normalizePOTServer() error {
	c.POTServer.ExternalURL = strings.TrimRight(strings.TrimSpace(c.POTServer.ExternalURL), "/")
	if c.POTServer.Port <= 0 {
		c.POTServer.Port = defaultPOTServerPort
	}
	c.POTServer.ScriptPath = strings.TrimSpace(c.POTServer.ScriptPath)
	if c.POTServer.ScriptPath == "" {
		c.POTServer.ScriptPath = defaultPOTServerScriptPath
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.InterVideoDelay < 0 {
		c.Workflow.InterVideoDelay = defaultInterVideoDelay
	}
	if c.Workflow.InterItemDelay < 0 {
		c.Workflow.InterItemDelay = defaultInterItemDelay
	}
	if c.Workflow.ErrorCooldown <= 0 {
		c.Workflow.ErrorCooldown = defaultErrorCooldown
	}
	if c.Workflow.ProcessedRetentionHours <= 0 {
		c.Workflow.ProcessedRetentionHours = defaultProcessedRetentionHours
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
