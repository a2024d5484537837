package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEvidence(); err != nil {
		return err
	}
	if err := c.normalizeLayout(); err != nil {
		return err
	}
	if err := c.normalizeRender(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ReviewDir, err = expandPath(c.Paths.ReviewDir); err != nil {
		return fmt.Errorf("paths.review_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEvidence() error {
	c.Evidence.CatalogPath = strings.TrimSpace(c.Evidence.CatalogPath)
	if c.Evidence.CatalogPath == "" {
		c.Evidence.CatalogPath = defaultCatalogPath
	}
	c.Evidence.DefaultConfidence = strings.ToLower(strings.TrimSpace(c.Evidence.DefaultConfidence))
	if c.Evidence.DefaultConfidence == "" {
		c.Evidence.DefaultConfidence = defaultConfidence
	}
	return nil
}

func (c *Config) normalizeLayout() error {
	c.Layout.PreferencesPath = strings.TrimSpace(c.Layout.PreferencesPath)
	if c.Layout.PreferencesPath == "" {
		return nil
	}
	var err error
	if c.Layout.PreferencesPath, err = expandPath(c.Layout.PreferencesPath); err != nil {
		return fmt.Errorf("layout.preferences_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() error {
	c.Render.TokensPath = strings.TrimSpace(c.Render.TokensPath)
	if c.Render.TokensPath == "" {
		c.Render.TokensPath = defaultTokensPath
	}
	c.Render.ArtifactDir = strings.TrimSpace(c.Render.ArtifactDir)
	if c.Render.ArtifactDir == "" {
		c.Render.ArtifactDir = defaultArtifactDir
	}
	var err error
	if c.Render.ArtifactDir, err = expandPath(c.Render.ArtifactDir); err != nil {
		return fmt.Errorf("render.artifact_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultWorkflowPollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultWorkflowRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultWorkflowHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultWorkflowHeartbeatTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyRequestTimeout <= 0 {
		c.Notifications.NtfyRequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
