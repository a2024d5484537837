package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"deckhand/internal/config"
	"deckhand/internal/deckstore"
	"deckhand/internal/fileutil"
	"deckhand/internal/logging"
	"deckhand/internal/notifications"
	"deckhand/internal/services"
	"deckhand/internal/stage"
)

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      deckstore.Status
	processingStatus deckstore.Status
	doneStatus       deckstore.Status
}

// StageSet bundles the concrete handlers the manager orchestrates. Nil
// entries fall back to the default implementations.
type StageSet struct {
	Normalize stage.Handler
	Densify   stage.Handler
	Enrich    stage.Handler
	Sync      stage.Handler
	Validate  stage.Handler
	QA        stage.Handler
}

// Manager coordinates store items through the registered stages.
type Manager struct {
	cfg          *config.Config
	store        *deckstore.Store
	logger       *slog.Logger
	notifier     notifications.Service
	stages       []pipelineStage
	pollInterval time.Duration
	hbInterval   time.Duration
	hbTimeout    time.Duration

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastItem *deckstore.Item
}

// NewManager constructs a pipeline manager with the default stage handlers.
func NewManager(cfg *config.Config, store *deckstore.Store, logger *slog.Logger) *Manager {
	return NewManagerWithStages(cfg, store, logger, StageSet{})
}

// NewManagerWithStages constructs a manager with injected handlers (used in
// tests).
func NewManagerWithStages(cfg *config.Config, store *deckstore.Store, logger *slog.Logger, set StageSet) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if set.Normalize == nil {
		set.Normalize = NewNormalizeStage(cfg, logger)
	}
	if set.Densify == nil {
		set.Densify = NewDensifyStage(cfg, logger)
	}
	if set.Enrich == nil {
		set.Enrich = NewEnrichStage(cfg, logger)
	}
	if set.Sync == nil {
		set.Sync = NewSyncStage(cfg, logger)
	}
	if set.Validate == nil {
		set.Validate = NewValidateStage(cfg, logger)
	}
	if set.QA == nil {
		set.QA = NewQAStage(cfg, logger)
	}

	return &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		notifier: notifications.NewService(cfg),
		stages: []pipelineStage{
			{"normalize", set.Normalize, deckstore.StatusPending, deckstore.StatusNormalizing, deckstore.StatusNormalized},
			{"densify", set.Densify, deckstore.StatusNormalized, deckstore.StatusDensifying, deckstore.StatusDensified},
			{"enrich", set.Enrich, deckstore.StatusDensified, deckstore.StatusEnriching, deckstore.StatusEnriched},
			{"sync", set.Sync, deckstore.StatusEnriched, deckstore.StatusSyncing, deckstore.StatusSynced},
			{"validate", set.Validate, deckstore.StatusSynced, deckstore.StatusValidating, deckstore.StatusValidated},
			{"qa", set.QA, deckstore.StatusValidated, deckstore.StatusChecking, deckstore.StatusCompleted},
		},
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		hbInterval:   time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second,
		hbTimeout:    time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second,
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("pipeline already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if m.hbTimeout > 0 {
			if recovered, err := m.store.ResetStuck(ctx, m.hbTimeout); err != nil {
				m.logger.Warn("stale item recovery failed", logging.Error(err))
			} else if recovered > 0 {
				m.logger.Info("recovered stale items", logging.Int("count", recovered))
			}
		}

		processed, err := m.RunOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.setLastError(err)
			m.logger.Error("failed to fetch next item", logging.Error(err))
			if !m.sleep(ctx, time.Duration(m.cfg.Workflow.ErrorRetryInterval)*time.Second) {
				return
			}
			continue
		}
		if processed == 0 {
			if !m.sleep(ctx, m.pollInterval) {
				return
			}
		}
	}
}

// RunOnce drains the store: it claims and processes items until no stage has
// work left, then returns the number of items advanced. Stage failures are
// recorded on the item and do not abort the sweep.
func (m *Manager) RunOnce(ctx context.Context) (int, error) {
	processed := 0
	for {
		advanced := false
		for _, stg := range m.stages {
			item, err := m.store.NextForStatus(ctx, stg.startStatus, stg.processingStatus)
			if err != nil {
				return processed, err
			}
			if item == nil {
				continue
			}
			advanced = true
			processed++
			if err := m.processItem(ctx, stg, item); err != nil && errors.Is(err, context.Canceled) {
				return processed, err
			}
		}
		if !advanced {
			return processed, nil
		}
	}
}

func (m *Manager) processItem(ctx context.Context, stg pipelineStage, item *deckstore.Item) error {
	requestID := uuid.NewString()
	stageCtx := services.WithRequestID(services.WithStage(services.WithItemID(ctx, item.ID), stg.name), requestID)
	logger := logging.WithContext(stageCtx, m.logger)

	now := time.Now().UTC()
	item.LastHeartbeat = &now
	item.ErrorMessage = ""
	stageStart := time.Now()
	logger.Info("stage started",
		logging.String("deck", strings.TrimSpace(item.DeckPath)),
	)

	if err := stg.handler.Prepare(stageCtx, item); err != nil {
		m.handleStageFailure(stageCtx, logger, stg.name, item, err)
		return err
	}
	if err := m.store.Update(stageCtx, item); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		logger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(stageCtx, stg.handler, item)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			logger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(stageCtx, logger, stg.name, item, execErr)
		return execErr
	}

	if item.Status == stg.processingStatus || item.Status == "" {
		item.Status = stg.doneStatus
	}
	item.LastHeartbeat = nil
	if err := m.store.Update(stageCtx, item); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		logger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	logger.Info("stage completed",
		logging.String("next_status", string(item.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	if item.Status == deckstore.StatusCompleted {
		if published, err := m.publishOutput(item); err != nil {
			logger.Warn("failed to publish finished deck", logging.Error(err))
		} else if published != "" {
			logger.Info("finished deck published", logging.String("path", published))
		}
		if err := m.notifier.NotifyDeckCompleted(stageCtx, itemTitle(item)); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
	m.setLastItem(item)
	return nil
}

func itemTitle(item *deckstore.Item) string {
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	return strings.TrimSpace(item.DeckPath)
}

// stashForReview copies the untouched source deck into the review directory
// and writes the in-flight document next to it so a reviewer sees both.
func (m *Manager) stashForReview(item *deckstore.Item) (string, error) {
	reviewDir := strings.TrimSpace(m.cfg.Paths.ReviewDir)
	if reviewDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(reviewDir, 0o755); err != nil {
		return "", err
	}

	base := filepath.Base(item.DeckPath)
	stashed := filepath.Join(reviewDir, base)
	if err := fileutil.CopyFileVerified(item.DeckPath, stashed); err != nil {
		return "", err
	}

	if doc := strings.TrimSpace(item.DeckYAML); doc != "" {
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		working := filepath.Join(reviewDir, stem+".pipeline.yaml")
		if err := fileutil.WriteFileAtomic(working, []byte(item.DeckYAML), 0o644); err != nil {
			return "", err
		}
	}
	return stashed, nil
}

// publishOutput writes the finished deck document to the output directory.
func (m *Manager) publishOutput(item *deckstore.Item) (string, error) {
	outputDir := strings.TrimSpace(m.cfg.Paths.OutputDir)
	if outputDir == "" || strings.TrimSpace(item.DeckYAML) == "" {
		return "", nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	target := filepath.Join(outputDir, filepath.Base(item.DeckPath))
	if err := fileutil.WriteFileAtomic(target, []byte(item.DeckYAML), 0o644); err != nil {
		return "", err
	}
	return target, nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, item *deckstore.Item) error {
	if m.hbInterval <= 0 {
		return handler.Execute(ctx, item)
	}
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go func() {
		defer hbWG.Done()
		ticker := time.NewTicker(m.hbInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				if err := m.store.Heartbeat(hbCtx, item.ID); err != nil && !errors.Is(err, context.Canceled) {
					m.logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}()

	execErr := handler.Execute(ctx, item)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) handleStageFailure(ctx context.Context, logger *slog.Logger, stageName string, item *deckstore.Item, stageErr error) {
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed without error detail", stageName)
	}

	switch services.FailureStatus(stageErr) {
	case deckstore.StatusReview:
		item.SetReview(message)
		logger.Warn("deck parked for review",
			logging.String("reason", message),
		)
		if stashed, err := m.stashForReview(item); err != nil {
			logger.Warn("failed to stash deck for review", logging.Error(err))
		} else if stashed != "" {
			logger.Info("deck copied to review directory", logging.String("path", stashed))
		}
		if err := m.notifier.NotifyReviewRequired(ctx, itemTitle(item), message); err != nil {
			logger.Warn("review notification failed", logging.Error(err))
		}
	default:
		item.SetFailed(message)
		logger.Error("stage failed", logging.Error(stageErr))
		if err := m.notifier.NotifyDeckFailed(ctx, itemTitle(item), message); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutdown before stage failure could be persisted")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastError(stageErr)
	m.setLastItem(item)
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// StatusSummary represents lightweight pipeline diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastItem    *deckstore.Item
	Store       deckstore.HealthSummary
	StageHealth map[string]stage.Health
}

// Status returns the latest pipeline information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastItem := m.lastItem
	m.mu.RUnlock()

	summary := StatusSummary{Running: running}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastItem != nil {
		cp := *lastItem
		summary.LastItem = &cp
	}

	if health, err := m.store.Health(ctx); err != nil {
		m.logger.Warn("failed to read store health", logging.Error(err))
	} else {
		summary.Store = health
	}

	summary.StageHealth = make(map[string]stage.Health, len(m.stages))
	for _, stg := range m.stages {
		summary.StageHealth[stg.name] = stg.handler.HealthCheck(ctx)
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *deckstore.Item) {
	m.mu.Lock()
	if item != nil {
		cp := *item
		m.lastItem = &cp
	} else {
		m.lastItem = nil
	}
	m.mu.Unlock()
}
