package config

const (
	defaultWorkspaceDir              = "~/.local/share/deckhand/workspace"
	defaultOutputDir                 = "~/decks"
	defaultLogDir                    = "~/.local/share/deckhand/logs"
	defaultReviewDir                 = "~/.local/share/deckhand/review"
	defaultCatalogPath               = "sources.md"
	defaultConfidence                = "medium"
	defaultTokensPath                = "tokens.yaml"
	defaultArtifactDir               = "~/.local/share/deckhand/artifacts"
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultLogRetentionDays          = 60
	defaultWorkflowPollInterval      = 5
	defaultWorkflowRetryInterval     = 10
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
	defaultNtfyRequestTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			OutputDir:    defaultOutputDir,
			LogDir:       defaultLogDir,
			ReviewDir:    defaultReviewDir,
		},
		Evidence: Evidence{
			CatalogPath:       defaultCatalogPath,
			DefaultConfidence: defaultConfidence,
		},
		Render: Render{
			TokensPath:  defaultTokensPath,
			ArtifactDir: defaultArtifactDir,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultWorkflowPollInterval,
			ErrorRetryInterval: defaultWorkflowRetryInterval,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Notifications: Notifications{
			NtfyRequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
