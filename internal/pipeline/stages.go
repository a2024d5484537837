package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"deckhand/internal/artifact"
	"deckhand/internal/config"
	"deckhand/internal/deck"
	"deckhand/internal/deckstore"
	"deckhand/internal/densify"
	"deckhand/internal/evidence"
	"deckhand/internal/layoutsync"
	"deckhand/internal/logging"
	"deckhand/internal/normalize"
	"deckhand/internal/policy"
	"deckhand/internal/qa"
	"deckhand/internal/report"
	"deckhand/internal/services"
	"deckhand/internal/stage"
	"deckhand/internal/validate"
)

// NormalizeStage folds legacy slide fields into canonical blocks.
type NormalizeStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewNormalizeStage constructs the normalization stage handler.
func NewNormalizeStage(cfg *config.Config, logger *slog.Logger) *NormalizeStage {
	return &NormalizeStage{cfg: cfg, logger: logging.StageLogger(logger, cfg, "normalize")}
}

func (n *NormalizeStage) Prepare(ctx context.Context, item *deckstore.Item) error {
	item.SetProgress("normalize", "Normalizing deck content", 0)
	return nil
}

func (n *NormalizeStage) Execute(ctx context.Context, item *deckstore.Item) error {
	logger := logging.WithContext(ctx, n.logger)

	d, err := loadItemDeck(item)
	if err != nil {
		return err
	}

	stats := normalize.Apply(d)
	if err := item.SetDeck(d); err != nil {
		return services.Wrap(services.ErrTransient, "normalize", "store deck", "failed to encode normalized deck", err)
	}
	item.Title = strings.TrimSpace(d.Title)
	item.SetProgress("normalize", fmt.Sprintf("Normalized %d slides", stats.Slides), 100)

	logger.Info("deck normalized",
		logging.Int("slides", stats.Slides),
		logging.Int("slides_promoted", stats.SlidesPromoted),
		logging.Int("blocks_promoted", stats.BlocksPromoted),
		logging.Int("layouts_normalized", stats.LayoutsNormalized),
	)
	return nil
}

func (n *NormalizeStage) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("normalize")
}

// DensifyStage fills sparse slides up to their bounds using layout templates.
type DensifyStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewDensifyStage constructs the densification stage handler.
func NewDensifyStage(cfg *config.Config, logger *slog.Logger) *DensifyStage {
	return &DensifyStage{cfg: cfg, logger: logging.StageLogger(logger, cfg, "densify")}
}

func (s *DensifyStage) Prepare(ctx context.Context, item *deckstore.Item) error {
	item.SetProgress("densify", "Densifying sparse slides", 0)
	return nil
}

func (s *DensifyStage) Execute(ctx context.Context, item *deckstore.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	d, err := stage.ItemDeck(item)
	if err != nil {
		return err
	}
	cat := loadCatalogLenient(s.cfg, item)

	stats := densify.Apply(d, cat)
	if err := item.SetDeck(d); err != nil {
		return services.Wrap(services.ErrTransient, "densify", "store deck", "failed to encode densified deck", err)
	}
	item.SetProgress("densify", fmt.Sprintf("Touched %d of %d slides", stats.SlidesTouched, stats.SlidesTotal), 100)

	logger.Info("deck densified",
		logging.Int("slides_touched", stats.SlidesTouched),
		logging.Int("blocks_materialized", stats.BlocksMaterialized),
		logging.Int("required_blocks_filled", stats.RequiredBlocksFilled),
		logging.Int("layout_remapped", stats.LayoutRemapped),
	)
	return nil
}

func (s *DensifyStage) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("densify")
}

// EnrichStage resolves source anchors and confidence onto deck items.
type EnrichStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewEnrichStage constructs the evidence enrichment stage handler.
func NewEnrichStage(cfg *config.Config, logger *slog.Logger) *EnrichStage {
	return &EnrichStage{cfg: cfg, logger: logging.StageLogger(logger, cfg, "enrich")}
}

func (s *EnrichStage) Prepare(ctx context.Context, item *deckstore.Item) error {
	item.SetProgress("enrich", "Resolving evidence anchors", 0)
	return nil
}

func (s *EnrichStage) Execute(ctx context.Context, item *deckstore.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	d, err := stage.ItemDeck(item)
	if err != nil {
		return err
	}

	catalogPath := resolveCatalogPath(s.cfg, item)
	cat, err := evidence.LoadCatalog(catalogPath)
	if err != nil {
		return services.Wrap(
			services.ErrNotFound, "enrich", "load catalog",
			fmt.Sprintf("source catalog %s is unavailable; set evidence.catalog_path or place it next to the deck", catalogPath),
			err)
	}
	item.CatalogPath = catalogPath

	opts := evidence.Options{
		Confidence: s.cfg.Evidence.DefaultConfidence,
		Overwrite:  s.cfg.Evidence.Overwrite,
	}
	stats := evidence.EnrichDeck(d, cat, opts)
	if err := item.SetDeck(d); err != nil {
		return services.Wrap(services.ErrTransient, "enrich", "store deck", "failed to encode enriched deck", err)
	}
	item.SetProgress("enrich", fmt.Sprintf("Updated %d of %d items", stats.ItemsUpdated, stats.ItemsTotal), 100)

	logger.Info("deck enriched",
		logging.String("catalog", catalogPath),
		logging.Int("items_updated", stats.ItemsUpdated),
		logging.Int("refs_normalized", stats.RefsNormalized),
		logging.Int("slides_without_anchor", stats.SlidesWithoutAnchor),
	)
	return nil
}

func (s *EnrichStage) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("enrich")
}

// SyncStage applies the author-maintained layout preferences document.
type SyncStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewSyncStage constructs the layout synchronization stage handler.
func NewSyncStage(cfg *config.Config, logger *slog.Logger) *SyncStage {
	return &SyncStage{cfg: cfg, logger: logging.StageLogger(logger, cfg, "sync")}
}

func (s *SyncStage) Prepare(ctx context.Context, item *deckstore.Item) error {
	item.SetProgress("sync", "Applying layout preferences", 0)
	return nil
}

func (s *SyncStage) Execute(ctx context.Context, item *deckstore.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	d, err := stage.ItemDeck(item)
	if err != nil {
		return err
	}

	var prefs *layoutsync.Preferences
	path := strings.TrimSpace(s.cfg.Layout.PreferencesPath)
	if path != "" {
		prefs, err = layoutsync.Load(path)
		if err != nil {
			return services.Wrap(
				services.ErrConfiguration, "sync", "load preferences",
				fmt.Sprintf("layout preferences %s could not be read", path),
				err)
		}
	}

	res := layoutsync.Apply(d, prefs)
	if err := item.SetDeck(d); err != nil {
		return services.Wrap(services.ErrTransient, "sync", "store deck", "failed to encode synchronized deck", err)
	}
	item.SetProgress("sync", fmt.Sprintf("Applied %d layout changes", len(res.Changes)), 100)

	for _, warning := range res.Warnings {
		logger.Warn("layout preference skipped", logging.String("reason", warning))
	}
	logger.Info("layouts synchronized",
		logging.Int("changes", len(res.Changes)),
		logging.Int("warnings", len(res.Warnings)),
	)
	return nil
}

func (s *SyncStage) HealthCheck(ctx context.Context) stage.Health {
	if path := strings.TrimSpace(s.cfg.Layout.PreferencesPath); path != "" {
		if _, err := os.Stat(path); err != nil {
			return stage.Unhealthy("sync", fmt.Sprintf("layout preferences %s unavailable", path))
		}
	}
	return stage.Healthy("sync")
}

// ValidateStage runs the pre-render gate over the deck document.
type ValidateStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewValidateStage constructs the validation gate handler.
func NewValidateStage(cfg *config.Config, logger *slog.Logger) *ValidateStage {
	return &ValidateStage{cfg: cfg, logger: logging.StageLogger(logger, cfg, "validate")}
}

func (s *ValidateStage) Prepare(ctx context.Context, item *deckstore.Item) error {
	item.SetProgress("validate", "Validating deck against constraints", 0)
	return nil
}

func (s *ValidateStage) Execute(ctx context.Context, item *deckstore.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	d, err := stage.ItemDeck(item)
	if err != nil {
		return err
	}
	cat := loadCatalogLenient(s.cfg, item)

	r := validate.Deck(d, cat)
	r.Sort()
	if err := item.SetReport(r); err != nil {
		return services.Wrap(services.ErrTransient, "validate", "store report", "failed to encode validation report", err)
	}

	logger.Info("deck validated",
		logging.Int("errors", r.Errors()),
		logging.Int("warnings", r.Warnings()),
		logging.Int("infos", r.Infos()),
	)

	if gateFailed(r, s.cfg.Gate.Strict) {
		return services.Wrap(
			services.ErrValidation, "validate", "gate",
			gateMessage("validation", r, s.cfg.Gate.Strict),
			nil)
	}
	item.SetProgress("validate", "Validation passed", 100)
	return nil
}

func (s *ValidateStage) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("validate")
}

// QAStage inspects the rendered extraction artifact against the deck.
type QAStage struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewQAStage constructs the post-render QA gate handler.
func NewQAStage(cfg *config.Config, logger *slog.Logger) *QAStage {
	return &QAStage{cfg: cfg, logger: logging.StageLogger(logger, cfg, "qa")}
}

func (s *QAStage) Prepare(ctx context.Context, item *deckstore.Item) error {
	item.SetProgress("qa", "Checking rendered artifact", 0)
	return nil
}

func (s *QAStage) Execute(ctx context.Context, item *deckstore.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	d, err := stage.ItemDeck(item)
	if err != nil {
		return err
	}

	artifactPath := ResolveArtifactPath(s.cfg, item)
	a, err := artifact.Load(artifactPath)
	if err != nil {
		return services.Wrap(
			services.ErrNotFound, "qa", "load artifact",
			fmt.Sprintf("rendered artifact %s is unavailable; render the deck and retry", artifactPath),
			err)
	}
	item.ArtifactPath = artifactPath

	tokens, err := loadTokens(s.cfg)
	if err != nil {
		return services.Wrap(
			services.ErrConfiguration, "qa", "load tokens",
			fmt.Sprintf("design tokens %s could not be read", s.cfg.Render.TokensPath),
			err)
	}

	r := qa.New(tokens).Check(a, d)
	r.Sort()
	if err := item.SetReport(r); err != nil {
		return services.Wrap(services.ErrTransient, "qa", "store report", "failed to encode qa report", err)
	}

	logger.Info("artifact checked",
		logging.String("artifact", artifactPath),
		logging.Int("errors", r.Errors()),
		logging.Int("warnings", r.Warnings()),
		logging.Int("infos", r.Infos()),
	)

	if gateFailed(r, s.cfg.Gate.Strict) {
		return services.Wrap(
			services.ErrValidation, "qa", "gate",
			gateMessage("qa", r, s.cfg.Gate.Strict),
			nil)
	}
	item.SetProgress("qa", "QA passed", 100)
	return nil
}

func (s *QAStage) HealthCheck(ctx context.Context) stage.Health {
	if dir := strings.TrimSpace(s.cfg.Render.ArtifactDir); dir != "" {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return stage.Unhealthy("qa", fmt.Sprintf("artifact directory %s unavailable", dir))
		}
	}
	return stage.Healthy("qa")
}

// loadItemDeck decodes the stored deck or, on first contact, reads it from
// the item's deck path.
func loadItemDeck(item *deckstore.Item) (*deck.Deck, error) {
	if strings.TrimSpace(item.DeckYAML) != "" {
		return stage.ItemDeck(item)
	}
	d, err := deck.Load(item.DeckPath)
	if err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "normalize", "load deck",
			fmt.Sprintf("deck %s could not be read", item.DeckPath),
			err)
	}
	return d, nil
}

// resolveCatalogPath prefers the item's recorded catalog, then the configured
// path, then a sources.md next to the deck file.
func resolveCatalogPath(cfg *config.Config, item *deckstore.Item) string {
	if path := strings.TrimSpace(item.CatalogPath); path != "" {
		return path
	}
	configured := strings.TrimSpace(cfg.Evidence.CatalogPath)
	if configured != "" && filepath.IsAbs(configured) {
		return configured
	}
	name := configured
	if name == "" {
		name = "sources.md"
	}
	return filepath.Join(filepath.Dir(item.DeckPath), name)
}

// loadCatalogLenient returns nil when no catalog can be read. Callers that
// can work without anchor membership use this form.
func loadCatalogLenient(cfg *config.Config, item *deckstore.Item) *evidence.Catalog {
	cat, err := evidence.LoadCatalog(resolveCatalogPath(cfg, item))
	if err != nil {
		return nil
	}
	return cat
}

// ResolveArtifactPath locates the renderer's extraction artifact for an item.
func ResolveArtifactPath(cfg *config.Config, item *deckstore.Item) string {
	if path := strings.TrimSpace(item.ArtifactPath); path != "" {
		return path
	}
	base := filepath.Base(item.DeckPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(cfg.Render.ArtifactDir, stem+".extract.json")
}

func loadTokens(cfg *config.Config) (policy.Tokens, error) {
	path := strings.TrimSpace(cfg.Render.TokensPath)
	if path == "" {
		return policy.DefaultTokens(), nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return policy.DefaultTokens(), nil
		}
		return policy.Tokens{}, err
	}
	return policy.LoadTokens(path)
}

func gateFailed(r *report.Report, strict bool) bool {
	if strict {
		return !r.PassedStrict()
	}
	return !r.Passed()
}

func gateMessage(gate string, r *report.Report, strict bool) string {
	if strict {
		return fmt.Sprintf("%s gate failed: %d errors, %d warnings", gate, r.Errors(), r.Warnings())
	}
	return fmt.Sprintf("%s gate failed: %d errors", gate, r.Errors())
}
