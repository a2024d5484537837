package testsupport

import (
	"context"
	"testing"

	"deckhand/internal/config"
	"deckhand/internal/deckstore"
)

// MustOpenStore opens a deckstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *deckstore.Store {
	t.Helper()

	store, err := deckstore.Open(cfg)
	if err != nil {
		t.Fatalf("deckstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem creates a new pending item for tests using the provided store.
func NewItem(t testing.TB, store *deckstore.Store, deckPath, title string) *deckstore.Item {
	t.Helper()

	item, err := store.NewItem(context.Background(), deckPath, title)
	if err != nil {
		t.Fatalf("store.NewItem: %v", err)
	}
	return item
}
