// Package normalize promotes legacy slide content shapes into the canonical
// block model. Slides that already carry blocks are cleaned in place; slides
// carrying the legacy bullets, content_blocks, or columns shapes are promoted
// in that order. After Apply the legacy fields are cleared, so every
// downstream stage reads blocks only.
package normalize

import (
	"strings"

	"deckhand/internal/deck"
	"deckhand/internal/policy"
	"deckhand/internal/textutil"
)

// Stats summarize one normalization pass.
type Stats struct {
	Slides            int `json:"slides"`
	SlidesPromoted    int `json:"slides_promoted"`
	BlocksPromoted    int `json:"blocks_promoted"`
	LayoutsNormalized int `json:"layouts_normalized"`
}

// Apply normalizes every slide in place and clears the legacy fields.
func Apply(d *deck.Deck) Stats {
	stats := Stats{Slides: len(d.Slides)}
	for _, s := range d.Slides {
		if s == nil {
			continue
		}
		if normalized := policy.NormalizeLayout(s.Layout); normalized != s.Layout {
			s.Layout = normalized
			stats.LayoutsNormalized++
		}
		hadLegacy := len(s.Blocks) == 0 && (len(s.Bullets) > 0 || len(s.ContentBlocks) > 0 || len(s.Columns) > 0 || len(s.Visuals) > 0)
		blocks := SlideBlocks(s)
		if hadLegacy && len(blocks) > 0 {
			stats.SlidesPromoted++
			stats.BlocksPromoted += len(blocks)
		}
		s.Blocks = blocks
		s.Bullets = nil
		s.Columns = nil
		s.ContentBlocks = nil
		s.Visuals = nil
	}
	return stats
}

// SlideBlocks computes the canonical block list for a slide without mutating
// it. Blocks win over every legacy shape; otherwise bullets, content_blocks,
// and columns are promoted in that order.
func SlideBlocks(s *deck.Slide) []*deck.Block {
	if blocks := cleanBlocks(s.Blocks); len(blocks) > 0 {
		return blocks
	}

	var out []*deck.Block

	if items := cleanItems(s.Bullets); len(items) > 0 {
		out = append(out, &deck.Block{Type: deck.BlockBullets, Slot: policy.SlotMainBullets, Items: items})
	}

	for i := range s.ContentBlocks {
		if b := promoteContentBlock(&s.ContentBlocks[i]); b != nil {
			out = append(out, b)
		}
	}

	for idx := range s.Columns {
		if b := promoteColumn(&s.Columns[idx], idx); b != nil {
			out = append(out, b)
		}
	}

	for i := range s.Visuals {
		if b := promoteVisual(&s.Visuals[i]); b != nil {
			out = deck.UpsertBlock(out, b)
		}
	}

	return out
}

// cleanBlocks lowercases types and collapses item text, dropping blank items.
// Block order and unknown types are preserved; the validator reports them.
func cleanBlocks(blocks []*deck.Block) []*deck.Block {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]*deck.Block, 0, len(blocks))
	for _, b := range blocks {
		if b == nil {
			continue
		}
		clone := *b
		clone.Type = deck.NormalizeBlockType(string(b.Type))
		clone.Slot = strings.TrimSpace(b.Slot)
		if clone.IsBulletLike() {
			clone.Items = cleanItems(b.Items)
		}
		out = append(out, &clone)
	}
	return out
}

// cleanItems collapses item whitespace and drops empty items.
func cleanItems(items []deck.Item) []deck.Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]deck.Item, 0, len(items))
	for _, it := range items {
		text := textutil.Collapse(it.Text)
		if text == "" {
			continue
		}
		it.Text = text
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// promoteContentBlock maps one legacy content_block entry onto a canonical
// block. Unmapped legacy types are dropped; canonical input is the place to
// express them.
func promoteContentBlock(cb *deck.ContentBlock) *deck.Block {
	slot := func(fallback string) string {
		if s := strings.TrimSpace(cb.Slot); s != "" {
			return s
		}
		if s := strings.TrimSpace(cb.Position); s != "" {
			return s
		}
		return fallback
	}

	switch deck.NormalizeBlockType(cb.Type) {
	case deck.BlockBullets:
		items := cleanItems(cb.Bullets)
		if len(items) == 0 {
			return nil
		}
		return &deck.Block{Type: deck.BlockBullets, Slot: slot(policy.SlotMainBullets), Items: items, Evidence: cb.Evidence}
	case deck.BlockChart:
		return &deck.Block{Type: deck.BlockChart, Slot: slot(policy.SlotChartBox), Chart: orEmptyChart(cb.Chart), Evidence: cb.Evidence}
	case deck.BlockImage:
		return &deck.Block{Type: deck.BlockImage, Slot: slot(policy.SlotImageBox), Image: orEmptyImage(cb.Image), Evidence: cb.Evidence}
	case deck.BlockTable:
		if cb.Table == nil {
			return nil
		}
		return &deck.Block{Type: deck.BlockTable, Slot: slot(policy.SlotNarrativeBox), Table: cb.Table, Evidence: cb.Evidence}
	case deck.BlockQuote:
		if cb.Quote == nil {
			return nil
		}
		return &deck.Block{Type: deck.BlockQuote, Slot: slot(policy.SlotNarrativeBox), Quote: cb.Quote, Evidence: cb.Evidence}
	case "kpi":
		card := deck.Card{}
		if cb.KPI != nil {
			card = *cb.KPI
		}
		return &deck.Block{Type: deck.BlockKPICards, Slot: slot(policy.SlotKPICards), Cards: []deck.Card{card}, Evidence: cb.Evidence}
	case deck.BlockText:
		return &deck.Block{Type: deck.BlockText, Slot: slot(policy.SlotNarrativeBox), Text: cb.Text, Evidence: cb.Evidence}
	case "callout":
		var items []deck.Item
		if cb.Callout != nil {
			if text := textutil.Collapse(cb.Callout.Text); text != "" {
				items = []deck.Item{{Text: text}}
			}
		}
		return &deck.Block{Type: deck.BlockActionList, Slot: slot(policy.SlotInsightBox), Items: items, Evidence: cb.Evidence}
	}
	return nil
}

// promoteColumn folds a legacy column into one bullets block. The column
// heading leads the items in bold so the rendered column keeps its header.
func promoteColumn(col *deck.Column, idx int) *deck.Block {
	var items []deck.Item
	if heading := textutil.Collapse(col.Heading); heading != "" {
		items = append(items, deck.Item{Text: heading, Emphasis: policy.EmphasisBold})
	}
	items = append(items, cleanItems(col.Bullets)...)
	for i := range col.ContentBlocks {
		cb := &col.ContentBlocks[i]
		if deck.NormalizeBlockType(cb.Type) == deck.BlockBullets {
			items = append(items, cleanItems(cb.Bullets)...)
		}
	}
	if len(items) == 0 {
		return nil
	}
	return &deck.Block{Type: deck.BlockBullets, Slot: policy.ColumnSlot(idx), Items: items}
}

// promoteVisual maps a legacy visual onto a chart or image block.
func promoteVisual(v *deck.Visual) *deck.Block {
	vType := textutil.Fold(strings.TrimSpace(v.Type))
	switch {
	case strings.Contains(vType, "chart") || vType == "scatter" || vType == "stacked_bar":
		return &deck.Block{
			Type:  deck.BlockChart,
			Slot:  policy.SlotChartBox,
			Chart: &deck.Chart{Type: v.Type, Title: v.Title, Caption: v.Caption, Evidence: v.Evidence},
		}
	case vType == "image" || vType == "photo" || vType == "illustration":
		return &deck.Block{
			Type:  deck.BlockImage,
			Slot:  policy.SlotImageBox,
			Image: &deck.Image{Path: v.Path, Caption: v.Caption, Evidence: v.Evidence},
		}
	}
	return nil
}

func orEmptyChart(c *deck.Chart) *deck.Chart {
	if c == nil {
		return &deck.Chart{}
	}
	return c
}

func orEmptyImage(img *deck.Image) *deck.Image {
	if img == nil {
		return &deck.Image{}
	}
	return img
}

// BulletTexts returns every bullet text on the slide, canonical blocks
// included, in presentation order. Action list items are included when
// includeActions is set.
func BulletTexts(s *deck.Slide, includeActions bool) []string {
	var texts []string
	for _, b := range SlideBlocks(s) {
		if b.Type == deck.BlockBullets || (includeActions && b.Type == deck.BlockActionList) {
			for _, it := range b.Items {
				if it.Text != "" {
					texts = append(texts, it.Text)
				}
			}
		}
	}
	return texts
}
