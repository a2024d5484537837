package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"deckhand/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWorkspace := filepath.Join(tempHome, ".local", "share", "deckhand", "workspace")
	if cfg.Paths.WorkspaceDir != wantWorkspace {
		t.Fatalf("unexpected workspace dir: got %q want %q", cfg.Paths.WorkspaceDir, wantWorkspace)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "decks") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Evidence.CatalogPath != "sources.md" {
		t.Fatalf("unexpected catalog path: %q", cfg.Evidence.CatalogPath)
	}
	if cfg.Evidence.DefaultConfidence != "medium" {
		t.Fatalf("unexpected default confidence: %q", cfg.Evidence.DefaultConfidence)
	}
	if cfg.Gate.Strict {
		t.Fatal("expected strict gate disabled by default")
	}
	if cfg.Workflow.HeartbeatInterval != config.Default().Workflow.HeartbeatInterval {
		t.Fatalf("unexpected heartbeat interval: %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.HeartbeatTimeout != config.Default().Workflow.HeartbeatTimeout {
		t.Fatalf("unexpected heartbeat timeout: %d", cfg.Workflow.HeartbeatTimeout)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.WorkspaceDir, cfg.Paths.LogDir, cfg.Paths.ReviewDir, cfg.Render.ArtifactDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "deckhand.toml")

	type payload struct {
		Evidence struct {
			CatalogPath       string `toml:"catalog_path"`
			DefaultConfidence string `toml:"default_confidence"`
		} `toml:"evidence"`
		Gate struct {
			Strict bool `toml:"strict"`
		} `toml:"gate"`
		Workflow struct {
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Evidence.CatalogPath = "research/sources.md"
	custom.Evidence.DefaultConfidence = "HIGH"
	custom.Gate.Strict = true
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Evidence.CatalogPath != "research/sources.md" {
		t.Fatalf("expected catalog path from file, got %q", cfg.Evidence.CatalogPath)
	}
	if cfg.Evidence.DefaultConfidence != "high" {
		t.Fatalf("expected confidence normalized to high, got %q", cfg.Evidence.DefaultConfidence)
	}
	if !cfg.Gate.Strict {
		t.Fatal("expected strict gate from file")
	}
	if cfg.Workflow.HeartbeatInterval != 20 {
		t.Fatalf("expected heartbeat interval 20, got %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("expected heartbeat timeout 200, got %d", cfg.Workflow.HeartbeatTimeout)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}

	if runtime.GOOS != "windows" {
		if !strings.Contains(cfg.Paths.WorkspaceDir, "deckhand") {
			t.Fatalf("expected workspace dir to contain deckhand, got %q", cfg.Paths.WorkspaceDir)
		}
	}
}

func TestLoadNormalizesNotifications(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[notifications]\nntfy_topic = \"  https://ntfy.sh/deckhand  \"\nntfy_request_timeout = -5\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/deckhand" {
		t.Fatalf("topic not trimmed: %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Notifications.NtfyRequestTimeout != 10 {
		t.Fatalf("timeout not defaulted: %d", cfg.Notifications.NtfyRequestTimeout)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.HeartbeatInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for heartbeat interval")
	}

	cfg = config.Default()
	cfg.Workflow.HeartbeatTimeout = cfg.Workflow.HeartbeatInterval
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when timeout <= interval")
	}

	cfg = config.Default()
	cfg.Evidence.DefaultConfidence = "certain"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown confidence")
	}

	cfg = config.Default()
	cfg.Paths.WorkspaceDir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty workspace dir")
	}
}
