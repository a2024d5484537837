package normalize

import (
	"testing"

	"deckhand/internal/deck"
)

func TestApplyPromotesLegacyBullets(t *testing.T) {
	d := &deck.Deck{Slides: []*deck.Slide{{
		Layout: "exec_summary",
		Bullets: []deck.Item{
			{Text: "  Revenue grew   14%  "},
			{Text: "   "},
			{Text: "Churn fell", Icon: "check"},
		},
	}}}

	stats := Apply(d)
	if stats.SlidesPromoted != 1 || stats.BlocksPromoted != 1 {
		t.Fatalf("stats: %+v", stats)
	}

	s := d.Slides[0]
	if len(s.Blocks) != 1 {
		t.Fatalf("blocks: %+v", s.Blocks)
	}
	b := s.Blocks[0]
	if b.Type != deck.BlockBullets || b.Slot != "main_bullets" {
		t.Fatalf("block shape: %+v", b)
	}
	if len(b.Items) != 2 {
		t.Fatalf("blank items must be dropped: %+v", b.Items)
	}
	if b.Items[0].Text != "Revenue grew 14%" {
		t.Fatalf("whitespace not collapsed: %q", b.Items[0].Text)
	}
	if b.Items[1].Icon != "check" {
		t.Fatal("item attributes lost during promotion")
	}
	if s.Bullets != nil || s.Columns != nil || s.ContentBlocks != nil || s.Visuals != nil {
		t.Fatal("legacy fields must be cleared")
	}
}

func TestBlocksWinOverLegacyShapes(t *testing.T) {
	s := &deck.Slide{
		Layout: "exec_summary",
		Blocks: []*deck.Block{{
			Type:  " Bullets ",
			Slot:  "main_bullets",
			Items: []deck.Item{{Text: "canonical"}},
		}},
		Bullets: []deck.Item{{Text: "legacy"}},
	}

	blocks := SlideBlocks(s)
	if len(blocks) != 1 {
		t.Fatalf("blocks: %+v", blocks)
	}
	if blocks[0].Type != deck.BlockBullets {
		t.Fatalf("block type must be normalized: %q", blocks[0].Type)
	}
	if blocks[0].Items[0].Text != "canonical" {
		t.Fatal("canonical blocks must win over legacy bullets")
	}
}

func TestContentBlockMapping(t *testing.T) {
	s := &deck.Slide{
		Layout: "chart_insight",
		ContentBlocks: []deck.ContentBlock{
			{Type: "chart", Chart: &deck.Chart{Type: "bar"}},
			{Type: "bullets", Position: "insight_box", Bullets: []deck.Item{{Text: "insight"}}},
			{Type: "kpi", KPI: &deck.Card{Label: "ARR", Value: "$4M"}},
			{Type: "callout", Callout: &deck.Callout{Text: "Act now"}},
			{Type: "text", Text: "narrative"},
			{Type: "sidebar"},
		},
	}

	blocks := SlideBlocks(s)
	if len(blocks) != 5 {
		t.Fatalf("expected 5 blocks (unknown type dropped), got %d", len(blocks))
	}
	if blocks[0].Type != deck.BlockChart || blocks[0].Slot != "chart_box" {
		t.Fatalf("chart mapping: %+v", blocks[0])
	}
	if blocks[1].Slot != "insight_box" {
		t.Fatalf("position must be used when slot is empty: %+v", blocks[1])
	}
	if blocks[2].Type != deck.BlockKPICards || len(blocks[2].Cards) != 1 || blocks[2].Cards[0].Label != "ARR" {
		t.Fatalf("kpi mapping: %+v", blocks[2])
	}
	if blocks[3].Type != deck.BlockActionList || blocks[3].Items[0].Text != "Act now" {
		t.Fatalf("callout mapping: %+v", blocks[3])
	}
	if blocks[4].Type != deck.BlockText || blocks[4].Text != "narrative" {
		t.Fatalf("text mapping: %+v", blocks[4])
	}
}

func TestColumnPromotion(t *testing.T) {
	s := &deck.Slide{
		Layout: "two_column",
		Columns: []deck.Column{
			{Heading: "Today", Bullets: []deck.Item{{Text: "manual process"}}},
			{Heading: "Target", ContentBlocks: []deck.ContentBlock{
				{Type: "bullets", Bullets: []deck.Item{{Text: "automated"}}},
			}},
			{Bullets: []deck.Item{{Text: "third"}}},
		},
	}

	blocks := SlideBlocks(s)
	if len(blocks) != 3 {
		t.Fatalf("blocks: %+v", blocks)
	}
	if blocks[0].Slot != "left_column" || blocks[1].Slot != "right_column" || blocks[2].Slot != "column_3" {
		t.Fatalf("column slots: %q %q %q", blocks[0].Slot, blocks[1].Slot, blocks[2].Slot)
	}
	left := blocks[0]
	if len(left.Items) != 2 || left.Items[0].Text != "Today" || left.Items[0].Emphasis != "bold" {
		t.Fatalf("heading must lead in bold: %+v", left.Items)
	}
	if blocks[1].Items[1].Text != "automated" {
		t.Fatalf("nested column bullets lost: %+v", blocks[1].Items)
	}
}

func TestVisualPromotion(t *testing.T) {
	s := &deck.Slide{
		Layout: "chart_insight",
		Visuals: []deck.Visual{
			{Type: "bar_chart", Title: "Revenue"},
			{Type: "photo", Path: "img/site.png"},
		},
	}

	blocks := SlideBlocks(s)
	if len(blocks) != 2 {
		t.Fatalf("blocks: %+v", blocks)
	}
	if blocks[0].Type != deck.BlockChart || blocks[0].Chart.Title != "Revenue" {
		t.Fatalf("chart visual: %+v", blocks[0])
	}
	if blocks[1].Type != deck.BlockImage || blocks[1].Image.Path != "img/site.png" {
		t.Fatalf("image visual: %+v", blocks[1])
	}
}

func TestApplyNormalizesLayoutAlias(t *testing.T) {
	d := &deck.Deck{Slides: []*deck.Slide{{Layout: "Chart_Focus"}}}
	stats := Apply(d)
	if d.Slides[0].Layout != "chart_insight" {
		t.Fatalf("layout: %q", d.Slides[0].Layout)
	}
	if stats.LayoutsNormalized != 1 {
		t.Fatalf("stats: %+v", stats)
	}
}

func TestApplyIdempotent(t *testing.T) {
	d := &deck.Deck{Slides: []*deck.Slide{{
		Layout:  "two_column",
		Bullets: []deck.Item{{Text: "a"}, {Text: "b"}},
		Columns: []deck.Column{{Heading: "Left", Bullets: []deck.Item{{Text: "c"}}}},
	}}}

	Apply(d)
	first, err := d.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	Apply(d)
	second, err := d.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Fatal("second application must be a no-op")
	}
}

func TestBulletTexts(t *testing.T) {
	s := &deck.Slide{
		Layout: "exec_summary",
		Blocks: []*deck.Block{
			{Type: deck.BlockBullets, Items: []deck.Item{{Text: "one"}, {Text: "two"}}},
			{Type: deck.BlockActionList, Items: []deck.Item{{Text: "act"}}},
		},
	}
	if got := BulletTexts(s, false); len(got) != 2 {
		t.Fatalf("without actions: %v", got)
	}
	if got := BulletTexts(s, true); len(got) != 3 || got[2] != "act" {
		t.Fatalf("with actions: %v", got)
	}
}
