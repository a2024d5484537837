package deckstore

import (
	"encoding/json"
	"strings"
	"time"

	"deckhand/internal/deck"
	"deckhand/internal/report"
)

// Status represents the lifecycle of a pipeline item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusNormalizing Status = "normalizing"
	StatusNormalized  Status = "normalized"
	StatusDensifying  Status = "densifying"
	StatusDensified   Status = "densified"
	StatusEnriching   Status = "enriching"
	StatusEnriched    Status = "enriched"
	StatusSyncing     Status = "syncing"
	StatusSynced      Status = "synced"
	StatusValidating  Status = "validating"
	StatusValidated   Status = "validated"
	StatusChecking    Status = "checking"
	StatusCompleted   Status = "completed"
	StatusReview      Status = "review"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusNormalizing,
	StatusNormalized,
	StatusDensifying,
	StatusDensified,
	StatusEnriching,
	StatusEnriched,
	StatusSyncing,
	StatusSynced,
	StatusValidating,
	StatusValidated,
	StatusChecking,
	StatusCompleted,
	StatusReview,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusNormalizing: {},
	StatusDensifying:  {},
	StatusEnriching:   {},
	StatusSyncing:     {},
	StatusValidating:  {},
	StatusChecking:    {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions map each in-flight status back to the resting
// status a stuck item should resume from.
var stageRollbackTransitions = []statusTransition{
	{from: StatusNormalizing, to: StatusPending},
	{from: StatusDensifying, to: StatusNormalized},
	{from: StatusEnriching, to: StatusDensified},
	{from: StatusSyncing, to: StatusEnriched},
	{from: StatusValidating, to: StatusSynced},
	{from: StatusChecking, to: StatusValidated},
}

// HealthSummary describes aggregated counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Review     int
	Failed     int
	Completed  int
}

// Item represents a pipeline item persisted in SQLite.
type Item struct {
	ID              int64
	DeckPath        string
	Title           string
	Status          Status
	DeckYAML        string
	ReportJSON      string
	CatalogPath     string
	ArtifactPath    string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	NeedsReview     bool
	ReviewReason    string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (i Item) IsProcessing() bool {
	return IsProcessingStatus(i.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// Deck decodes the persisted deck document. Returns nil when the item
// carries none.
func (i *Item) Deck() (*deck.Deck, error) {
	if strings.TrimSpace(i.DeckYAML) == "" {
		return nil, nil
	}
	return deck.Parse([]byte(i.DeckYAML))
}

// SetDeck encodes and stores the deck document on the item.
func (i *Item) SetDeck(d *deck.Deck) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	i.DeckYAML = string(data)
	return nil
}

// SetReport stores the gate report on the item.
func (i *Item) SetReport(r *report.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	i.ReportJSON = string(data)
	return nil
}

// Report decodes the persisted gate report. Returns nil when the item
// carries none.
func (i *Item) Report() (*report.Report, error) {
	if strings.TrimSpace(i.ReportJSON) == "" {
		return nil, nil
	}
	var r report.Report
	if err := json.Unmarshal([]byte(i.ReportJSON), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SetProgress updates all three progress fields together.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "failed"
}

// SetReview parks the item for manual review with a reason.
func (i *Item) SetReview(reason string) {
	i.Status = StatusReview
	i.NeedsReview = true
	i.ReviewReason = reason
	i.LastHeartbeat = nil
}
