package evidence

import (
	"strings"

	"deckhand/internal/deck"
	"deckhand/internal/policy"
	"deckhand/internal/textutil"
)

// Options control the enrichment pass.
type Options struct {
	// Confidence is written where none is set. Empty means "medium".
	Confidence string
	// Overwrite replaces existing anchors and confidence values instead of
	// only filling gaps.
	Overwrite bool
}

func (o Options) confidence() string {
	if strings.TrimSpace(o.Confidence) == "" {
		return policy.ConfidenceMedium
	}
	return o.Confidence
}

// Stats summarizes one enrichment run.
type Stats struct {
	Slides              int `json:"slides"`
	ItemsTotal          int `json:"items_total"`
	ItemsUpdated        int `json:"items_updated"`
	RefsNormalized      int `json:"refs_normalized"`
	SlidesWithoutAnchor int `json:"slides_without_anchor"`
}

// Role anchors the resolver falls back to when a slide names no source.
const (
	anchorMarket      = AnchorPrefix + "market"
	anchorClient      = AnchorPrefix + "client"
	anchorCompetitors = AnchorPrefix + "competitors"
	anchorTechTrends  = AnchorPrefix + "tech-trends"
	anchorPolicy      = AnchorPrefix + "policy"
)

// roleKeywords maps title/governing-message keywords onto role anchors. Order
// matters: the first role whose keyword hits and whose anchor exists wins.
var roleKeywords = []struct {
	keywords []string
	anchor   string
}{
	{[]string{"competitor", "benchmark", "peer", "rival", "gap"}, anchorCompetitors},
	{[]string{"market", "industry", "demand", "segment", "growth"}, anchorMarket},
	{[]string{"regulat", "policy", "compliance"}, anchorPolicy},
	{[]string{"technology", "tech", "ai", "cloud", "trend"}, anchorTechTrends},
	{[]string{"as-is", "current", "pain", "internal", "client", "operation"}, anchorClient},
	{[]string{"value", "roi", "impact", "benefit"}, anchorMarket},
}

// preferredAnchors is the fallback order when no keyword hits.
var preferredAnchors = []string{anchorMarket, anchorClient, anchorCompetitors, anchorTechTrends}

// DefaultAnchor infers the anchor used for a slide's unevidenced content.
// Pick order: a valid metadata source ref, then a valid anchor already used
// by one of the slide's items, then a role keyword match on the title and
// governing message, then the preferred role order, then the first catalog
// anchor. Returns "" only when the catalog is empty.
func DefaultAnchor(s *deck.Slide, cat *Catalog) string {
	if cat.Len() == 0 {
		return ""
	}
	if anchor := cat.firstValid(s.SourceRefs()); anchor != "" {
		return anchor
	}
	if anchor := cat.firstValid(usedAnchors(s)); anchor != "" {
		return anchor
	}

	headline := textutil.Fold(s.Title + " " + s.GoverningMessage)
	for _, role := range roleKeywords {
		if !cat.Contains(role.anchor) {
			continue
		}
		for _, kw := range role.keywords {
			if strings.Contains(headline, kw) {
				return role.anchor
			}
		}
	}
	if anchor := cat.firstValid(preferredAnchors); anchor != "" {
		return anchor
	}
	return cat.First()
}

// usedAnchors collects the anchors the slide's items already carry, canonical
// blocks first, then legacy shapes.
func usedAnchors(s *deck.Slide) []string {
	var anchors []string
	add := func(ev *deck.Evidence) {
		if ev != nil && ev.SourceAnchor != "" {
			anchors = append(anchors, ev.SourceAnchor)
		}
	}
	for _, b := range s.Blocks {
		if b == nil {
			continue
		}
		add(b.Evidence)
		for i := range b.Items {
			add(b.Items[i].Evidence)
		}
	}
	for i := range s.Bullets {
		add(s.Bullets[i].Evidence)
	}
	return anchors
}

// EnrichDeck fills missing evidence across the whole deck and normalizes
// slide source refs against the catalog. The deck is mutated in place.
func EnrichDeck(d *deck.Deck, cat *Catalog, opts Options) Stats {
	stats := Stats{Slides: len(d.Slides)}
	for _, s := range d.Slides {
		if s == nil {
			continue
		}
		enrichSlide(s, cat, opts, &stats)
	}
	return stats
}

func enrichSlide(s *deck.Slide, cat *Catalog, opts Options, stats *Stats) {
	anchor := DefaultAnchor(s, cat)
	if anchor == "" {
		stats.SlidesWithoutAnchor++
	}
	if normalizeSourceRefs(s, cat, anchor) {
		stats.RefsNormalized++
	}
	if anchor == "" {
		return
	}

	e := &enricher{cat: cat, anchor: anchor, confidence: opts.confidence(), overwrite: opts.Overwrite, stats: stats}

	for _, b := range s.Blocks {
		e.block(b)
	}

	// Legacy shapes may still be present before normalization runs.
	e.items(s.Bullets)
	for i := range s.Columns {
		col := &s.Columns[i]
		e.items(col.Bullets)
		if col.Visual != nil {
			e.payload(&col.Visual.Evidence)
		}
		for j := range col.ContentBlocks {
			e.contentBlock(&col.ContentBlocks[j])
		}
	}
	for i := range s.ContentBlocks {
		e.contentBlock(&s.ContentBlocks[i])
	}
	for i := range s.Visuals {
		e.payload(&s.Visuals[i].Evidence)
	}
}

// normalizeSourceRefs keeps only catalog anchors, appends the default anchor
// when missing, and caps the list. Reports whether the list changed.
func normalizeSourceRefs(s *deck.Slide, cat *Catalog, anchor string) bool {
	before := s.SourceRefs()
	refs := make([]string, 0, len(before)+1)
	for _, r := range before {
		if cat.Contains(r) {
			refs = append(refs, strings.TrimSpace(r))
		}
	}
	if anchor != "" && !containsString(refs, anchor) {
		refs = append(refs, anchor)
	}
	if len(refs) == 0 && cat.Len() > 0 {
		refs = append(refs, cat.First())
	}
	if len(refs) > policy.MaxSourceRefsPerSlide {
		refs = refs[:policy.MaxSourceRefsPerSlide]
	}
	if equalStrings(before, refs) {
		return false
	}
	s.EnsureMetadata().SourceRefs = refs
	return true
}

type enricher struct {
	cat        *Catalog
	anchor     string
	confidence string
	overwrite  bool
	stats      *Stats
}

func (e *enricher) block(b *deck.Block) {
	if b == nil {
		return
	}
	e.payload(&b.Evidence)
	e.items(b.Items)
	for i := range b.Cards {
		e.payload(&b.Cards[i].Evidence)
	}
	if b.Chart != nil {
		e.payload(&b.Chart.Evidence)
	}
	if b.Image != nil {
		e.payload(&b.Image.Evidence)
	}
	if b.Table != nil {
		e.payload(&b.Table.Evidence)
	}
	if b.Quote != nil {
		e.payload(&b.Quote.Evidence)
	}
}

func (e *enricher) contentBlock(cb *deck.ContentBlock) {
	if cb == nil {
		return
	}
	e.payload(&cb.Evidence)
	e.items(cb.Bullets)
}

// items fills evidence on every non-empty item.
func (e *enricher) items(items []deck.Item) {
	for i := range items {
		item := &items[i]
		if strings.TrimSpace(item.Text) == "" {
			continue
		}
		e.stats.ItemsTotal++
		if item.Evidence == nil {
			item.Evidence = &deck.Evidence{SourceAnchor: e.anchor, Confidence: e.confidence}
			e.stats.ItemsUpdated++
			continue
		}
		changed := false
		if e.overwrite || item.Evidence.SourceAnchor == "" {
			item.Evidence.SourceAnchor = e.anchor
			changed = true
		}
		if e.overwrite || item.Evidence.Confidence == "" {
			item.Evidence.Confidence = e.confidence
			changed = true
		}
		if changed {
			e.stats.ItemsUpdated++
		}
	}
}

// payload coerces an existing evidence record on a visual payload: anchors
// outside the catalog are replaced, missing confidence is filled. Absent
// records are left absent; visual payloads are not forced to carry evidence.
func (e *enricher) payload(ev **deck.Evidence) {
	if ev == nil || *ev == nil {
		return
	}
	rec := *ev
	if e.overwrite || !e.cat.Contains(rec.SourceAnchor) {
		rec.SourceAnchor = e.coerce(rec.SourceAnchor)
	}
	if e.overwrite || rec.Confidence == "" {
		rec.Confidence = e.confidence
	}
}

func (e *enricher) coerce(anchor string) string {
	if e.cat.Contains(anchor) {
		return anchor
	}
	if e.cat.Contains(e.anchor) {
		return e.anchor
	}
	return e.cat.First()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
