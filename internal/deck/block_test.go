package deck

import "testing"

func TestUpsertBlockReplaces(t *testing.T) {
	blocks := []*Block{
		{Type: BlockBullets, Slot: "main_bullets", Items: []Item{{Text: "old"}}},
		{Type: BlockActionList, Slot: "action_box", Items: []Item{{Text: "do it"}}},
	}

	blocks = UpsertBlock(blocks, &Block{Type: BlockBullets, Slot: "main_bullets", Items: []Item{{Text: "new"}}})
	if len(blocks) != 2 {
		t.Fatalf("same (type, slot) must replace, got %d blocks", len(blocks))
	}
	if blocks[0].Items[0].Text != "new" {
		t.Fatalf("replacement not applied: %+v", blocks[0])
	}

	blocks = UpsertBlock(blocks, &Block{Type: BlockBullets, Slot: "insight_box", Items: []Item{{Text: "extra"}}})
	if len(blocks) != 3 {
		t.Fatalf("different slot must append, got %d blocks", len(blocks))
	}

	// Slot matching is case and whitespace insensitive.
	blocks = UpsertBlock(blocks, &Block{Type: BlockBullets, Slot: " Main_Bullets ", Items: []Item{{Text: "newer"}}})
	if len(blocks) != 3 {
		t.Fatalf("slot comparison must fold case, got %d blocks", len(blocks))
	}
}

func TestFindBlock(t *testing.T) {
	blocks := []*Block{
		{Type: BlockBullets, Slot: "left_column"},
		{Type: BlockBullets, Slot: "right_column"},
		{Type: BlockChart, Slot: "chart_box", Chart: &Chart{Type: "bar"}},
	}
	if b := FindBlock(blocks, BlockBullets, "right_column"); b == nil || b.Slot != "right_column" {
		t.Fatalf("slot-qualified lookup failed: %+v", b)
	}
	if b := FindBlock(blocks, BlockChart, ""); b == nil || b.Chart == nil {
		t.Fatal("type-only lookup failed")
	}
	if FindBlock(blocks, BlockTable, "") != nil {
		t.Fatal("absent type must return nil")
	}
}

func TestPayloadError(t *testing.T) {
	valid := []*Block{
		{Type: BlockBullets, Items: []Item{{Text: "a"}}},
		{Type: BlockActionList},
		{Type: BlockChart, Chart: &Chart{Type: "bar"}},
		{Type: BlockKPICards, Cards: []Card{{Label: "ARR", Value: "$4M"}}},
		{Type: BlockMatrix2x2, Matrix: &Matrix2x2{XAxis: "price", YAxis: "quality"}},
		{Type: BlockTimelineSteps, Timeline: []TimelineStep{{Phase: "P1"}}},
		{Type: BlockText, Text: "narrative"},
	}
	for _, b := range valid {
		if msg := b.PayloadError(); msg != "" {
			t.Errorf("%s: unexpected payload error %q", b.Type, msg)
		}
	}

	invalid := []*Block{
		{Type: "sidebar"},
		{Type: BlockChart},
		{Type: BlockBullets, Chart: &Chart{Type: "bar"}},
		{Type: BlockText, Text: "   "},
		{Type: BlockKPICards},
	}
	for _, b := range invalid {
		if b.PayloadError() == "" {
			t.Errorf("%s: expected payload error", b.Type)
		}
	}
}

func TestNormalizeBlockType(t *testing.T) {
	if NormalizeBlockType(" Bullets ") != BlockBullets {
		t.Fatal("normalization must fold case and trim")
	}
	if KnownBlockType("sidebar") {
		t.Fatal("unknown type accepted")
	}
	if !KnownBlockType(BlockMatrix2x2) {
		t.Fatal("matrix_2x2 must be known")
	}
}
