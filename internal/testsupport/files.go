package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"deckhand/internal/deck"
)

// WriteDeck marshals a deck document to the target path.
func WriteDeck(t testing.TB, path string, d *deck.Deck) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := d.Save(path); err != nil {
		t.Fatalf("save deck %s: %v", path, err)
	}
}

// WriteCatalog writes a markdown source catalog with one heading per name.
func WriteCatalog(t testing.TB, path string, headings ...string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	content := "# Sources\n\n"
	for _, h := range headings {
		content += "## " + h + "\n\nPlaceholder notes.\n\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog %s: %v", path, err)
	}
}

// SampleDeck returns a small deck document that passes validation.
func SampleDeck() *deck.Deck {
	return &deck.Deck{
		Title: "Quarterly Growth Review",
		Slides: []*deck.Slide{
			{Layout: "cover", Title: "Quarterly Growth Review"},
			{
				Layout:           "exec_summary",
				Title:            "Three moves decide the quarter",
				GoverningMessage: "Concentrate spend on the two segments that already clear payback.",
				Blocks: []*deck.Block{
					{
						Type: deck.BlockBullets,
						Slot: "main_bullets",
						Items: []deck.Item{
							{Text: "Segment A grows 12% annually with stable margins.", Evidence: &deck.Evidence{SourceAnchor: "sources.md#market", Confidence: "high"}},
							{Text: "Segment B churn doubled after the March repricing.", Evidence: &deck.Evidence{SourceAnchor: "sources.md#client", Confidence: "medium"}},
							{Text: "Distribution partners ask for one onboarding path.", Evidence: &deck.Evidence{SourceAnchor: "sources.md#market", Confidence: "medium"}},
						},
					},
				},
			},
		},
	}
}
