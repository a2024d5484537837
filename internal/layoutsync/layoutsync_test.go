package layoutsync

import (
	"strings"
	"testing"

	"deckhand/internal/deck"
)

func slideTitles(titles ...string) []*deck.Slide {
	slides := make([]*deck.Slide, len(titles))
	for i, title := range titles {
		slides[i] = &deck.Slide{Layout: "content", Title: title}
	}
	return slides
}

func TestSequenceOverridesLayouts(t *testing.T) {
	d := &deck.Deck{Slides: slideTitles("Cover", "Summary", "Roadmap")}
	prefs := &Preferences{LayoutSequence: []string{"cover", "exec_summary", "timeline"}}

	res := Apply(d, prefs)
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings: %v", res.Warnings)
	}
	if d.Slides[0].Layout != "cover" || d.Slides[1].Layout != "exec_summary" || d.Slides[2].Layout != "timeline" {
		t.Fatalf("layouts: %s %s %s", d.Slides[0].Layout, d.Slides[1].Layout, d.Slides[2].Layout)
	}
	if len(res.Changes) != 3 {
		t.Fatalf("changes: %v", res.Changes)
	}
}

func TestSequenceLengthMismatchAppliesPrefix(t *testing.T) {
	d := &deck.Deck{Slides: slideTitles("A", "B", "C")}
	prefs := &Preferences{LayoutSequence: []string{"cover", "exec_summary"}}

	res := Apply(d, prefs)
	if len(res.Warnings) != 1 {
		t.Fatalf("expected mismatch warning, got %v", res.Warnings)
	}
	if d.Slides[0].Layout != "cover" || d.Slides[1].Layout != "exec_summary" {
		t.Fatal("prefix not applied")
	}
	if d.Slides[2].Layout != "content" {
		t.Fatalf("slide beyond the prefix must keep its layout: %q", d.Slides[2].Layout)
	}
}

func TestUnknownSequenceLayoutWarnsAndSkips(t *testing.T) {
	d := &deck.Deck{Slides: slideTitles("A")}
	prefs := &Preferences{LayoutSequence: []string{"freeform"}}

	res := Apply(d, prefs)
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "freeform") {
		t.Fatalf("warnings: %v", res.Warnings)
	}
	if d.Slides[0].Layout != "content" {
		t.Fatalf("layout must be unchanged: %q", d.Slides[0].Layout)
	}
}

func TestKeywordRulesSkipSequenceLockedSlides(t *testing.T) {
	d := &deck.Deck{Slides: slideTitles("Delivery roadmap", "Execution roadmap")}
	prefs := &Preferences{
		LayoutSequence: []string{"cover"},
		TitleKeywordOverrides: []KeywordRule{
			{Keyword: "roadmap", Layout: "timeline"},
		},
	}

	Apply(d, prefs)
	if d.Slides[0].Layout != "cover" {
		t.Fatalf("sequence-locked slide must ignore keyword rules: %q", d.Slides[0].Layout)
	}
	if d.Slides[1].Layout != "timeline" {
		t.Fatalf("keyword rule not applied: %q", d.Slides[1].Layout)
	}
}

func TestFirstMatchingKeywordRuleWins(t *testing.T) {
	d := &deck.Deck{Slides: slideTitles("Roadmap and benchmark")}
	prefs := &Preferences{
		TitleKeywordOverrides: []KeywordRule{
			{Keywords: []string{"roadmap"}, Layout: "timeline", LayoutIntent: map[string]any{"emphasis": "balanced"}},
			{Keyword: "benchmark", Layout: "comparison"},
		},
	}

	Apply(d, prefs)
	s := d.Slides[0]
	if s.Layout != "timeline" {
		t.Fatalf("first rule must win: %q", s.Layout)
	}
	if s.LayoutIntent["emphasis"] != "balanced" {
		t.Fatalf("rule intent not merged: %v", s.LayoutIntent)
	}
}

func TestSlideOverridesAlwaysWin(t *testing.T) {
	d := &deck.Deck{Slides: slideTitles("Roadmap")}
	prefs := &Preferences{
		TitleKeywordOverrides: []KeywordRule{{Keyword: "roadmap", Layout: "timeline"}},
		SlideOverrides: map[string]SlideOverride{
			"1": {Layout: "quote", LayoutIntent: map[string]any{"tone": "bold"}},
		},
	}

	res := Apply(d, prefs)
	if d.Slides[0].Layout != "quote" {
		t.Fatalf("slide override must win: %q", d.Slides[0].Layout)
	}
	if d.Slides[0].LayoutIntent["tone"] != "bold" {
		t.Fatalf("override intent not merged: %v", d.Slides[0].LayoutIntent)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("warnings: %v", res.Warnings)
	}
}

func TestSlideOverrideRangeAndKeyValidation(t *testing.T) {
	d := &deck.Deck{Slides: slideTitles("Only")}
	prefs := &Preferences{SlideOverrides: map[string]SlideOverride{
		"0":   {Layout: "quote"},
		"5":   {Layout: "quote"},
		"two": {Layout: "quote"},
	}}

	res := Apply(d, prefs)
	if len(res.Warnings) != 3 {
		t.Fatalf("warnings: %v", res.Warnings)
	}
	if d.Slides[0].Layout != "content" {
		t.Fatal("invalid overrides must not mutate slides")
	}
}

func TestIntentTiersMerge(t *testing.T) {
	d := &deck.Deck{Slides: []*deck.Slide{
		{Layout: "timeline", Title: "Roadmap", LayoutIntent: map[string]any{"existing": "kept"}},
		{Layout: "exec_summary", Title: "Summary"},
	}}
	prefs := &Preferences{
		LayoutIntents: map[string]map[string]any{
			"timeline": {"density": "compact"},
		},
	}
	prefs.Global.DefaultLayoutIntent = map[string]any{"tone": "consulting"}

	Apply(d, prefs)
	first := d.Slides[0].LayoutIntent
	if first["existing"] != "kept" || first["tone"] != "consulting" || first["density"] != "compact" {
		t.Fatalf("intent merge: %v", first)
	}
	second := d.Slides[1].LayoutIntent
	if second["tone"] != "consulting" {
		t.Fatalf("default intent missing: %v", second)
	}
	if _, ok := second["density"]; ok {
		t.Fatalf("layout intent leaked across layouts: %v", second)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	d := &deck.Deck{Slides: slideTitles("Roadmap", "Summary")}
	prefs := &Preferences{
		LayoutSequence:        []string{"cover", "exec_summary"},
		TitleKeywordOverrides: []KeywordRule{{Keyword: "roadmap", Layout: "timeline"}},
		LayoutIntents:         map[string]map[string]any{"cover": {"hero": true}},
	}

	Apply(d, prefs)
	res := Apply(d, prefs)
	if len(res.Changes) != 0 {
		t.Fatalf("second application must report no changes: %v", res.Changes)
	}
}
