package stage

import (
	"errors"
	"testing"

	"deckhand/internal/deckstore"
	"deckhand/internal/services"
	"deckhand/internal/testsupport"
)

func TestItemDeckValid(t *testing.T) {
	item := &deckstore.Item{}
	if err := item.SetDeck(testsupport.SampleDeck()); err != nil {
		t.Fatalf("SetDeck: %v", err)
	}
	d, err := ItemDeck(item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d == nil || len(d.Slides) == 0 {
		t.Fatalf("unexpected deck: %#v", d)
	}
}

func TestItemDeckMissing(t *testing.T) {
	_, err := ItemDeck(&deckstore.Item{})
	if err == nil {
		t.Fatal("expected error for missing deck")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}

func TestItemDeckMalformed(t *testing.T) {
	item := &deckstore.Item{DeckYAML: "slides: [\n"}
	_, err := ItemDeck(item)
	if err == nil {
		t.Fatal("expected error for malformed deck")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}
