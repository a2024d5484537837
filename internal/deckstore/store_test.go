package deckstore_test

import (
	"context"
	"testing"
	"time"

	"deckhand/internal/deckstore"
	"deckhand/internal/report"
	"deckhand/internal/testsupport"
)

func TestOpenCreatesSchemaAndInsertsItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewItem(ctx, "/decks/growth.yaml", "Growth Review")
	if err != nil {
		t.Fatalf("NewItem failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != deckstore.StatusPending {
		t.Fatalf("unexpected initial status: %q", item.Status)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != "Growth Review" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}

	found, err := store.FindByDeckPath(ctx, "/decks/growth.yaml")
	if err != nil {
		t.Fatalf("FindByDeckPath failed: %v", err)
	}
	if found == nil || found.ID != item.ID {
		t.Fatalf("expected to find inserted item, got %#v", found)
	}
}

func TestUpdateRoundTripsDeckAndReport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewItem(t, store, "/decks/growth.yaml", "Growth Review")

	if err := item.SetDeck(testsupport.SampleDeck()); err != nil {
		t.Fatalf("SetDeck: %v", err)
	}
	r := report.New("/decks/growth.yaml", 2)
	r.Addf(report.SeverityWarning, "slides[1]", "density", "bullet count 9 exceeds the maximum 8")
	if err := item.SetReport(r); err != nil {
		t.Fatalf("SetReport: %v", err)
	}
	item.Status = deckstore.StatusValidated
	item.SetProgress("validate", "validated with warnings", 100)

	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != deckstore.StatusValidated {
		t.Fatalf("unexpected status: %q", fetched.Status)
	}

	d, err := fetched.Deck()
	if err != nil {
		t.Fatalf("Deck decode: %v", err)
	}
	if d == nil || len(d.Slides) != 2 {
		t.Fatalf("deck did not round-trip: %#v", d)
	}

	decoded, err := fetched.Report()
	if err != nil {
		t.Fatalf("Report decode: %v", err)
	}
	if decoded == nil || decoded.Warnings() != 1 {
		t.Fatalf("report did not round-trip: %#v", decoded)
	}
}

func TestNextForStatusClaimsOldestOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewItem(t, store, "/decks/a.yaml", "A")
	testsupport.NewItem(t, store, "/decks/b.yaml", "B")

	claimed, err := store.NextForStatus(ctx, deckstore.StatusPending, deckstore.StatusNormalizing)
	if err != nil {
		t.Fatalf("NextForStatus failed: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("expected oldest item claimed, got %#v", claimed)
	}
	if claimed.Status != deckstore.StatusNormalizing {
		t.Fatalf("claim did not transition status: %q", claimed.Status)
	}

	second, err := store.NextForStatus(ctx, deckstore.StatusPending, deckstore.StatusNormalizing)
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if second == nil || second.ID == first.ID {
		t.Fatalf("expected the other item, got %#v", second)
	}

	none, err := store.NextForStatus(ctx, deckstore.StatusPending, deckstore.StatusNormalizing)
	if err != nil {
		t.Fatalf("empty claim failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no pending items, got %#v", none)
	}
}

func TestResetStuckRollsBackStaleStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewItem(t, store, "/decks/a.yaml", "A")
	stale := time.Now().UTC().Add(-time.Hour)
	item.Status = deckstore.StatusDensifying
	item.LastHeartbeat = &stale
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	recovered, err := store.ResetStuck(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("ResetStuck failed: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("expected one recovered item, got %d", recovered)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != deckstore.StatusNormalized {
		t.Fatalf("expected rollback to normalized, got %q", fetched.Status)
	}
	if fetched.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared")
	}
}

func TestResetStuckKeepsFreshItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewItem(t, store, "/decks/a.yaml", "A")
	item.Status = deckstore.StatusValidating
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.Heartbeat(ctx, item.ID); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}

	recovered, err := store.ResetStuck(ctx, time.Hour)
	if err != nil {
		t.Fatalf("ResetStuck failed: %v", err)
	}
	if recovered != 0 {
		t.Fatalf("expected no recovered items, got %d", recovered)
	}
}

func TestHealthAggregatesCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewItem(t, store, "/decks/a.yaml", "A")
	b := testsupport.NewItem(t, store, "/decks/b.yaml", "B")
	c := testsupport.NewItem(t, store, "/decks/c.yaml", "C")

	b.Status = deckstore.StatusCompleted
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	c.SetReview("validation gate failed")
	if err := store.Update(ctx, c); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if summary.Total != 3 || summary.Pending != 1 || summary.Completed != 1 || summary.Review != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}

func TestClearCompletedOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewItem(t, store, "/decks/a.yaml", "A")
	done := testsupport.NewItem(t, store, "/decks/b.yaml", "B")
	done.Status = deckstore.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	removed, err := store.Clear(ctx, true)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one removed item, got %d", removed)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].Status != deckstore.StatusPending {
		t.Fatalf("unexpected remaining items: %#v", items)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := deckstore.ParseStatus(" Validated "); !ok || status != deckstore.StatusValidated {
		t.Fatalf("ParseStatus = %q, %v", status, ok)
	}
	if _, ok := deckstore.ParseStatus("shipped"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
