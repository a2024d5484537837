// Package layoutsync applies an author-maintained layout preferences document
// to a deck. Preferences come in four tiers: a full layout sequence, title
// keyword rules, per-slide overrides, and layout intent defaults. Slide
// overrides always win; slides locked by the sequence skip keyword rules.
package layoutsync

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"deckhand/internal/deck"
	"deckhand/internal/policy"
	"deckhand/internal/textutil"
)

// Preferences is the layout preferences document.
type Preferences struct {
	Global struct {
		DefaultLayoutIntent map[string]any `yaml:"default_layout_intent"`
	} `yaml:"global"`
	LayoutSequence        []string                  `yaml:"layout_sequence"`
	TitleKeywordOverrides []KeywordRule             `yaml:"title_keyword_overrides"`
	SlideOverrides        map[string]SlideOverride  `yaml:"slide_overrides"`
	LayoutIntents         map[string]map[string]any `yaml:"layout_intents"`
}

// KeywordRule forces a layout or intent patch onto slides whose title
// contains one of the keywords. The first matching rule wins per slide.
type KeywordRule struct {
	Keyword      string         `yaml:"keyword"`
	Keywords     []string       `yaml:"keywords"`
	Layout       string         `yaml:"layout"`
	LayoutIntent map[string]any `yaml:"layout_intent"`
}

func (r *KeywordRule) keywords() []string {
	if r.Keyword != "" {
		return []string{textutil.Fold(strings.TrimSpace(r.Keyword))}
	}
	out := make([]string, 0, len(r.Keywords))
	for _, k := range r.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, textutil.Fold(k))
		}
	}
	return out
}

// SlideOverride pins one slide (1-based key) to a layout or intent patch.
type SlideOverride struct {
	Layout       string         `yaml:"layout"`
	LayoutIntent map[string]any `yaml:"layout_intent"`
}

// Load reads a preferences document from a YAML file.
func Load(path string) (*Preferences, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout preferences: %w", err)
	}
	var p Preferences
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode layout preferences: %w", err)
	}
	return &p, nil
}

// Result reports what Apply did. Changes describe applied mutations, warnings
// describe preference entries that were skipped.
type Result struct {
	Changes  []string `json:"changes,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Apply mutates the deck according to the preferences.
func Apply(d *deck.Deck, prefs *Preferences) Result {
	var res Result
	if prefs == nil {
		return res
	}
	slides := d.Slides

	// Tier 1: layout sequence. A length mismatch degrades to the shared
	// prefix rather than failing the whole document.
	locked := make(map[int]struct{})
	if len(prefs.LayoutSequence) > 0 {
		if len(prefs.LayoutSequence) != len(slides) {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"layout_sequence has %d entries for %d slides; applying the shared prefix",
				len(prefs.LayoutSequence), len(slides)))
		}
		count := len(prefs.LayoutSequence)
		if len(slides) < count {
			count = len(slides)
		}
		for i := 0; i < count; i++ {
			desired := strings.TrimSpace(prefs.LayoutSequence[i])
			if !policy.KnownLayout(desired) {
				res.Warnings = append(res.Warnings, fmt.Sprintf("layout_sequence[%d]: unknown layout %q", i, desired))
				continue
			}
			if slides[i].Layout != desired {
				res.Changes = append(res.Changes, fmt.Sprintf("slide %d: layout %s -> %s", i+1, slides[i].Layout, desired))
				slides[i].Layout = desired
			}
			locked[i] = struct{}{}
		}
	}

	// Tier 2: title keyword rules, skipping sequence-locked slides.
	for i, s := range slides {
		if _, ok := locked[i]; ok {
			continue
		}
		title := textutil.Fold(textutil.Collapse(s.Title))
		if title == "" {
			continue
		}
		for ruleIdx := range prefs.TitleKeywordOverrides {
			rule := &prefs.TitleKeywordOverrides[ruleIdx]
			keywords := rule.keywords()
			if len(keywords) == 0 {
				res.Warnings = append(res.Warnings, fmt.Sprintf("title_keyword_overrides[%d]: no keywords", ruleIdx+1))
				continue
			}
			if !matchesAny(title, keywords) {
				continue
			}
			if layout := strings.TrimSpace(rule.Layout); layout != "" {
				if !policy.KnownLayout(layout) {
					res.Warnings = append(res.Warnings, fmt.Sprintf("title_keyword_overrides[%d]: unknown layout %q", ruleIdx+1, layout))
				} else if s.Layout != layout {
					res.Changes = append(res.Changes, fmt.Sprintf("slide %d: keyword rule layout %s -> %s", i+1, s.Layout, layout))
					s.Layout = layout
				}
			}
			if mergeIntent(s, rule.LayoutIntent) {
				res.Changes = append(res.Changes, fmt.Sprintf("slide %d: keyword rule layout_intent updated", i+1))
			}
			break // first matching rule wins
		}
	}

	// Tier 3: per-slide overrides, in key order for deterministic output.
	for _, key := range sortedKeys(prefs.SlideOverrides) {
		override := prefs.SlideOverrides[key]
		idx, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("slide_overrides[%s]: index is not a number", key))
			continue
		}
		idx-- // 1-based in the document
		if idx < 0 || idx >= len(slides) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("slide_overrides[%s]: out of range (1..%d)", key, len(slides)))
			continue
		}
		if layout := strings.TrimSpace(override.Layout); layout != "" {
			if !policy.KnownLayout(layout) {
				res.Warnings = append(res.Warnings, fmt.Sprintf("slide_overrides[%s]: unknown layout %q", key, layout))
			} else if slides[idx].Layout != layout {
				res.Changes = append(res.Changes, fmt.Sprintf("slide %d: layout %s -> %s", idx+1, slides[idx].Layout, layout))
				slides[idx].Layout = layout
			}
		}
		if mergeIntent(slides[idx], override.LayoutIntent) {
			res.Changes = append(res.Changes, fmt.Sprintf("slide %d: layout_intent updated", idx+1))
		}
	}

	// Tier 4: default intent, then per-layout intents.
	if len(prefs.Global.DefaultLayoutIntent) > 0 {
		for i, s := range slides {
			if mergeIntent(s, prefs.Global.DefaultLayoutIntent) {
				res.Changes = append(res.Changes, fmt.Sprintf("slide %d: default layout_intent merged", i+1))
			}
		}
	}
	if len(prefs.LayoutIntents) > 0 {
		for i, s := range slides {
			patch := prefs.LayoutIntents[strings.TrimSpace(s.Layout)]
			if mergeIntent(s, patch) {
				res.Changes = append(res.Changes, fmt.Sprintf("slide %d: layout intent merged (%s)", i+1, s.Layout))
			}
		}
	}

	return res
}

// mergeIntent shallow-merges the patch into the slide's layout intent and
// reports whether anything changed.
func mergeIntent(s *deck.Slide, patch map[string]any) bool {
	if len(patch) == 0 {
		return false
	}
	if s.LayoutIntent == nil {
		s.LayoutIntent = make(map[string]any, len(patch))
	}
	changed := false
	for k, v := range patch {
		if cur, ok := s.LayoutIntent[k]; !ok || !looseEqual(cur, v) {
			s.LayoutIntent[k] = v
			changed = true
		}
	}
	return changed
}

// looseEqual compares intent values by their YAML rendering, since intent
// payloads are free-form scalars and small maps.
func looseEqual(a, b any) bool {
	ab, errA := yaml.Marshal(a)
	bb, errB := yaml.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

func matchesAny(title string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(title, k) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]SlideOverride) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
