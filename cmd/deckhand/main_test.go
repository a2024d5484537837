package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"deckhand/internal/config"
	"deckhand/internal/deck"
	"deckhand/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = []string{"--config", configPath}
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestNormalizeCommandFoldsLegacyBullets(t *testing.T) {
	env := setupCLITestEnv(t)

	d := &deck.Deck{Slides: []*deck.Slide{
		{
			Layout:  "exec_summary",
			Title:   "Summary",
			Bullets: []deck.Item{{Text: "First"}, {Text: "Second"}, {Text: "Third"}},
		},
	}}
	deckPath := filepath.Join(env.baseDir, "deck.yaml")
	testsupport.WriteDeck(t, deckPath, d)

	out, _, err := runCLI(t, []string{"normalize", deckPath}, env.configPath)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	requireContains(t, out, "normalized 1 slides")

	reloaded, err := deck.Load(deckPath)
	if err != nil {
		t.Fatalf("reload deck: %v", err)
	}
	if len(reloaded.Slides[0].Blocks) == 0 {
		t.Fatal("expected legacy bullets folded into blocks")
	}
	if len(reloaded.Slides[0].Bullets) != 0 {
		t.Fatal("expected legacy bullets cleared")
	}
}

func TestValidateCommandReportsForbiddenWord(t *testing.T) {
	env := setupCLITestEnv(t)

	d := testsupport.SampleDeck()
	d.GlobalConstraints = &deck.GlobalConstraints{ForbiddenWords: []string{"churn"}}
	deckPath := filepath.Join(env.baseDir, "deck.yaml")
	testsupport.WriteDeck(t, deckPath, d)
	testsupport.WriteCatalog(t, filepath.Join(env.baseDir, "sources.md"), "market", "client")

	out, _, err := runCLI(t, []string{"validate", deckPath}, env.configPath)
	if err == nil {
		t.Fatal("expected validation gate to fail")
	}
	requireContains(t, err.Error(), "validation gate failed")
	requireContains(t, out, "FAIL")
}

func TestValidateCommandJSONPasses(t *testing.T) {
	env := setupCLITestEnv(t)

	deckPath := filepath.Join(env.baseDir, "deck.yaml")
	testsupport.WriteDeck(t, deckPath, testsupport.SampleDeck())
	testsupport.WriteCatalog(t, filepath.Join(env.baseDir, "sources.md"), "market", "client")

	out, _, err := runCLI(t, []string{"validate", deckPath, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("validate --json: %v", err)
	}
	requireContains(t, out, `"passed": true`)
}

func TestQueueAddListHealth(t *testing.T) {
	env := setupCLITestEnv(t)

	deckPath := filepath.Join(env.baseDir, "deck.yaml")
	testsupport.WriteDeck(t, deckPath, testsupport.SampleDeck())

	out, _, err := runCLI(t, []string{"queue", "add", deckPath}, env.configPath)
	if err != nil {
		t.Fatalf("queue add: %v", err)
	}
	requireContains(t, out, "queued item 1")

	// A second add while the first is still pending is a no-op.
	out, _, err = runCLI(t, []string{"queue", "add", deckPath}, env.configPath)
	if err != nil {
		t.Fatalf("queue add repeat: %v", err)
	}
	requireContains(t, out, "already queued")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "pending")

	out, _, err = runCLI(t, []string{"queue", "health", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, `"Pending": 1`)
}

func TestRunOnceDrainsQueue(t *testing.T) {
	env := setupCLITestEnv(t)

	deckDir := filepath.Join(env.baseDir, "decks")
	deckPath := filepath.Join(deckDir, "growth.yaml")
	testsupport.WriteDeck(t, deckPath, testsupport.SampleDeck())
	testsupport.WriteCatalog(t, filepath.Join(deckDir, "sources.md"), "market", "client")

	if _, _, err := runCLI(t, []string{"queue", "add", deckPath}, env.configPath); err != nil {
		t.Fatalf("queue add: %v", err)
	}

	out, _, err := runCLI(t, []string{"run", "--once"}, env.configPath)
	if err != nil {
		t.Fatalf("run --once: %v", err)
	}
	requireContains(t, out, "processed")

	// No rendered artifact exists, so the deck parks for review after the
	// validation gate passes.
	out, _, err = runCLI(t, []string{"queue", "list", "--status", "review"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "review")
}

func TestQueueRetryReturnsItemToPending(t *testing.T) {
	env := setupCLITestEnv(t)

	deckDir := filepath.Join(env.baseDir, "decks")
	deckPath := filepath.Join(deckDir, "growth.yaml")
	testsupport.WriteDeck(t, deckPath, testsupport.SampleDeck())
	testsupport.WriteCatalog(t, filepath.Join(deckDir, "sources.md"), "market", "client")

	if _, _, err := runCLI(t, []string{"queue", "add", deckPath}, env.configPath); err != nil {
		t.Fatalf("queue add: %v", err)
	}
	if _, _, err := runCLI(t, []string{"run", "--once"}, env.configPath); err != nil {
		t.Fatalf("run --once: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "returned to pending")
}

func TestCatalogCommandListsAnchors(t *testing.T) {
	env := setupCLITestEnv(t)

	catalogPath := filepath.Join(env.baseDir, "sources.md")
	testsupport.WriteCatalog(t, catalogPath, "market-sizing", "client-interviews")

	out, _, err := runCLI(t, []string{"catalog", catalogPath}, env.configPath)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	requireContains(t, out, "market-sizing")
	requireContains(t, out, "client-interviews")
}

func TestConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}
