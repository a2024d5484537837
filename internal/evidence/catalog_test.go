package evidence

import "testing"

const sampleSources = `# Sources

## Market
Industry sizing and growth data.

## Client
Internal interviews and system inventory.

## Competitors
Benchmarks against the top three peers.

## Tech Trends
Analyst reports on platform adoption.
`

func TestParseCatalog(t *testing.T) {
	cat := ParseCatalog([]byte(sampleSources))
	want := []string{
		"sources.md#sources",
		"sources.md#market",
		"sources.md#client",
		"sources.md#competitors",
		"sources.md#tech-trends",
	}
	got := cat.Anchors()
	if len(got) != len(want) {
		t.Fatalf("anchors: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("anchor %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if !cat.Contains("sources.md#tech-trends") {
		t.Fatal("Contains failed on parsed anchor")
	}
	if cat.Contains("sources.md#missing") {
		t.Fatal("Contains accepted an absent anchor")
	}
	if cat.First() != "sources.md#sources" {
		t.Fatalf("First: %q", cat.First())
	}
}

func TestParseCatalogIgnoresNonHeadings(t *testing.T) {
	cat := ParseCatalog([]byte("plain text\n#nospace\n## Valid Heading\n"))
	if cat.Len() != 1 || cat.First() != "sources.md#valid-heading" {
		t.Fatalf("anchors: %v", cat.Anchors())
	}
}

func TestNewCatalogDeduplicates(t *testing.T) {
	cat := NewCatalog([]string{"sources.md#market", " sources.md#market ", "", "sources.md#client"})
	if cat.Len() != 2 {
		t.Fatalf("anchors: %v", cat.Anchors())
	}
}

func TestEmptyCatalog(t *testing.T) {
	var cat *Catalog
	if cat.Contains("sources.md#market") || cat.Len() != 0 || cat.First() != "" {
		t.Fatal("nil catalog must behave as empty")
	}
}
