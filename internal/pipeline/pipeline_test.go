package pipeline_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"deckhand/internal/artifact"
	"deckhand/internal/config"
	"deckhand/internal/deck"
	"deckhand/internal/deckstore"
	"deckhand/internal/logging"
	"deckhand/internal/pipeline"
	"deckhand/internal/testsupport"
)

const (
	canvasWidthEMU  = 12192000
	canvasHeightEMU = 6858000
)

func writeSampleInputs(t *testing.T, cfg *config.Config) string {
	t.Helper()
	deckPath := filepath.Join(testsupport.BaseDir(cfg), "decks", "growth.yaml")
	testsupport.WriteDeck(t, deckPath, testsupport.SampleDeck())
	testsupport.WriteCatalog(t, filepath.Join(filepath.Dir(deckPath), "sources.md"), "market", "client")
	return deckPath
}

func renderedBox(name, text string, sizePt float64, topEMU int64, bullets bool) *artifact.TextBox {
	level := -1
	if bullets {
		level = 0
	}
	var paras []artifact.Paragraph
	for _, line := range strings.Split(text, "\n") {
		paras = append(paras, artifact.Paragraph{Text: line, Level: level, FontSizePt: sizePt})
	}
	return &artifact.TextBox{
		Name:       name,
		LeftEMU:    500000,
		TopEMU:     topEMU,
		WidthEMU:   11000000,
		HeightEMU:  1800000,
		FontName:   "Noto Sans KR",
		FontSizePt: sizePt,
		Paragraphs: paras,
	}
}

// writeArtifact renders the sample deck's extraction artifact the way the
// external renderer would.
func writeArtifact(t *testing.T, cfg *config.Config, deckPath string) string {
	t.Helper()
	d := testsupport.SampleDeck()

	a := &artifact.Artifact{
		Source:         deckPath,
		SlideWidthEMU:  canvasWidthEMU,
		SlideHeightEMU: canvasHeightEMU,
		Slides: []*artifact.Slide{
			{Index: 0, Boxes: []*artifact.TextBox{
				renderedBox("Title 1", d.Slides[0].Title, 24, 300000, false),
			}},
			{Index: 1, Boxes: []*artifact.TextBox{
				renderedBox("Title 1", d.Slides[1].Title, 24, 300000, false),
				renderedBox("Content 1", strings.Join([]string{
					"Segment A grows 12% annually with stable margins.",
					"Segment B churn doubled after the March repricing.",
					"Distribution partners ask for one onboarding path.",
				}, "\n"), 12, 2000000, true),
			}},
		},
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	base := strings.TrimSuffix(filepath.Base(deckPath), filepath.Ext(deckPath))
	path := filepath.Join(cfg.Render.ArtifactDir, base+".extract.json")
	if err := os.MkdirAll(cfg.Render.ArtifactDir, 0o755); err != nil {
		t.Fatalf("mkdir artifact dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestRunOnceParksForReviewWithoutArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	deckPath := writeSampleInputs(t, cfg)

	item := testsupport.NewItem(t, store, deckPath, "Growth Review")
	mgr := pipeline.NewManager(cfg, store, logging.NewNop())

	processed, err := mgr.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if processed == 0 {
		t.Fatal("expected items to be processed")
	}

	fetched, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != deckstore.StatusReview {
		t.Fatalf("expected review without rendered artifact, got %q", fetched.Status)
	}
	if !strings.Contains(fetched.ReviewReason, "artifact") {
		t.Fatalf("unexpected review reason: %q", fetched.ReviewReason)
	}

	// The validation report from the earlier gate stays on the item.
	r, err := fetched.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if r == nil || r.Errors() != 0 {
		t.Fatalf("expected passing validation report, got %#v", r)
	}
}

func TestRunOnceCompletesWithArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	deckPath := writeSampleInputs(t, cfg)
	artifactPath := writeArtifact(t, cfg, deckPath)

	item := testsupport.NewItem(t, store, deckPath, "Growth Review")
	mgr := pipeline.NewManager(cfg, store, logging.NewNop())

	if _, err := mgr.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	fetched, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != deckstore.StatusCompleted {
		t.Fatalf("expected completed, got %q (error %q, review %q)", fetched.Status, fetched.ErrorMessage, fetched.ReviewReason)
	}
	if fetched.ArtifactPath != artifactPath {
		t.Fatalf("expected artifact path recorded, got %q", fetched.ArtifactPath)
	}

	r, err := fetched.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if r == nil || r.Errors() != 0 {
		t.Fatalf("expected passing qa report, got %#v", r)
	}

	d, err := fetched.Deck()
	if err != nil {
		t.Fatalf("Deck: %v", err)
	}
	if d == nil || len(d.Slides) != 2 {
		t.Fatalf("deck not carried through pipeline: %#v", d)
	}

	published := filepath.Join(cfg.Paths.OutputDir, "growth.yaml")
	out, err := deck.Load(published)
	if err != nil {
		t.Fatalf("finished deck not published to output dir: %v", err)
	}
	if len(out.Slides) != 2 {
		t.Fatalf("published deck has %d slides, expected 2", len(out.Slides))
	}
}

func TestValidationGateParksForReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	d := testsupport.SampleDeck()
	d.GlobalConstraints = &deck.GlobalConstraints{ForbiddenWords: []string{"churn"}}
	deckPath := filepath.Join(testsupport.BaseDir(cfg), "decks", "growth.yaml")
	testsupport.WriteDeck(t, deckPath, d)
	testsupport.WriteCatalog(t, filepath.Join(filepath.Dir(deckPath), "sources.md"), "market", "client")

	item := testsupport.NewItem(t, store, deckPath, "Growth Review")
	mgr := pipeline.NewManager(cfg, store, logging.NewNop())

	if _, err := mgr.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	fetched, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != deckstore.StatusReview {
		t.Fatalf("expected review for forbidden word, got %q", fetched.Status)
	}
	if !strings.Contains(fetched.ReviewReason, "validation gate failed") {
		t.Fatalf("unexpected review reason: %q", fetched.ReviewReason)
	}

	r, err := fetched.Report()
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if r == nil || r.Errors() == 0 {
		t.Fatalf("expected failing report persisted, got %#v", r)
	}

	// The source deck and the in-flight document land in the review directory.
	if _, err := os.Stat(filepath.Join(cfg.Paths.ReviewDir, "growth.yaml")); err != nil {
		t.Fatalf("source deck not stashed for review: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.ReviewDir, "growth.pipeline.yaml")); err != nil {
		t.Fatalf("in-flight document not stashed for review: %v", err)
	}
}

func TestMissingCatalogParksForReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	deckPath := filepath.Join(testsupport.BaseDir(cfg), "decks", "growth.yaml")
	testsupport.WriteDeck(t, deckPath, testsupport.SampleDeck())

	item := testsupport.NewItem(t, store, deckPath, "Growth Review")
	mgr := pipeline.NewManager(cfg, store, logging.NewNop())

	if _, err := mgr.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	fetched, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != deckstore.StatusReview {
		t.Fatalf("expected review for missing catalog, got %q", fetched.Status)
	}
	if !strings.Contains(fetched.ReviewReason, "catalog") {
		t.Fatalf("unexpected review reason: %q", fetched.ReviewReason)
	}
}

func TestReviewParkingPublishesNotification(t *testing.T) {
	var mu sync.Mutex
	var titles []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	store := testsupport.MustOpenStore(t, cfg)
	deckPath := writeSampleInputs(t, cfg)

	testsupport.NewItem(t, store, deckPath, "Growth Review")
	mgr := pipeline.NewManager(cfg, store, logging.NewNop())

	if _, err := mgr.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(titles) != 1 || titles[0] != "Deckhand - Review Required" {
		t.Fatalf("expected a single review notification, got %v", titles)
	}
}

func TestStartProcessesInBackground(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	deckPath := writeSampleInputs(t, cfg)
	writeArtifact(t, cfg, deckPath)

	item := testsupport.NewItem(t, store, deckPath, "Growth Review")
	mgr := pipeline.NewManager(cfg, store, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer mgr.Stop()

	deadline := time.Now().Add(15 * time.Second)
	for {
		fetched, err := store.GetByID(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if fetched.Status == deckstore.StatusCompleted {
			break
		}
		if fetched.Status == deckstore.StatusFailed || fetched.Status == deckstore.StatusReview {
			t.Fatalf("pipeline did not complete: %q (%q)", fetched.Status, fetched.ErrorMessage)
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for completion, status %q", fetched.Status)
		}
		time.Sleep(50 * time.Millisecond)
	}

	status := mgr.Status(ctx)
	if !status.Running {
		t.Fatal("expected manager to report running")
	}
	if status.Store.Completed != 1 {
		t.Fatalf("unexpected store health: %#v", status.Store)
	}
}

func TestStatusReportsStageHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := pipeline.NewManager(cfg, store, logging.NewNop())

	status := mgr.Status(context.Background())
	if status.Running {
		t.Fatal("manager should not report running before Start")
	}
	for _, name := range []string{"normalize", "densify", "enrich", "sync", "validate", "qa"} {
		health, ok := status.StageHealth[name]
		if !ok {
			t.Fatalf("missing stage health for %s", name)
		}
		if !health.Ready {
			t.Fatalf("stage %s unexpectedly unhealthy: %s", name, health.Detail)
		}
	}
}
