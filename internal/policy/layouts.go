package policy

import (
	"strconv"
	"strings"

	"deckhand/internal/deck"
)

// Layout names form a fixed, closed enumeration. Aliases map legacy spellings
// onto it; anything else is invalid.
const (
	LayoutCover          = "cover"
	LayoutExecSummary    = "exec_summary"
	LayoutSectionDivider = "section_divider"
	LayoutContent        = "content"
	LayoutTwoColumn      = "two_column"
	LayoutThreeColumn    = "three_column"
	LayoutComparison     = "comparison"
	LayoutTimeline       = "timeline"
	LayoutProcessFlow    = "process_flow"
	LayoutChartInsight   = "chart_insight"
	LayoutImageFocus     = "image_focus"
	LayoutCompetitor2x2  = "competitor_2x2"
	LayoutStrategyCards  = "strategy_cards"
	LayoutKPICards       = "kpi_cards"
	LayoutQuote          = "quote"
	LayoutAppendix       = "appendix"
	LayoutThankYou       = "thank_you"
)

var layoutAliases = map[string]string{
	"chart_focus":      LayoutChartInsight,
	"strategy_options": LayoutStrategyCards,
}

var validLayouts = map[string]struct{}{
	LayoutCover:          {},
	LayoutExecSummary:    {},
	LayoutSectionDivider: {},
	LayoutContent:        {},
	LayoutTwoColumn:      {},
	LayoutThreeColumn:    {},
	LayoutComparison:     {},
	LayoutTimeline:       {},
	LayoutProcessFlow:    {},
	LayoutChartInsight:   {},
	LayoutImageFocus:     {},
	LayoutCompetitor2x2:  {},
	LayoutStrategyCards:  {},
	LayoutKPICards:       {},
	LayoutQuote:          {},
	LayoutAppendix:       {},
	LayoutThankYou:       {},
}

// noBulletLayouts must carry zero bullet content; densify strips them and the
// validator treats any leftover bullet as a violation.
var noBulletLayouts = map[string]struct{}{
	LayoutCover:          {},
	LayoutSectionDivider: {},
	LayoutThankYou:       {},
	LayoutQuote:          {},
}

var columnLayouts = map[string]struct{}{
	LayoutTwoColumn:   {},
	LayoutThreeColumn: {},
	LayoutComparison:  {},
}

// visualLayouts are chart/image centric: bullets optional, reduced maximum.
var visualLayouts = map[string]struct{}{
	LayoutChartInsight: {},
	LayoutImageFocus:   {},
}

// practicalRemap folds the long tail of the enumeration onto the practical
// working set the densifier knows how to fill.
var practicalRemap = map[string]string{
	LayoutImageFocus:  LayoutChartInsight,
	LayoutComparison:  LayoutCompetitor2x2,
	LayoutThreeColumn: LayoutStrategyCards,
	LayoutProcessFlow: LayoutTimeline,
	LayoutContent:     LayoutTwoColumn,
}

// NormalizeLayout lowercases, trims, and resolves aliases. The result is not
// guaranteed to be valid; pair with KnownLayout.
func NormalizeLayout(layout string) string {
	key := strings.ToLower(strings.TrimSpace(layout))
	if mapped, ok := layoutAliases[key]; ok {
		return mapped
	}
	return key
}

// KnownLayout reports whether the normalized layout is in the enumeration.
func KnownLayout(layout string) bool {
	_, ok := validLayouts[NormalizeLayout(layout)]
	return ok
}

// IsNoBulletLayout reports whether the layout forbids bullet content.
func IsNoBulletLayout(layout string) bool {
	_, ok := noBulletLayouts[NormalizeLayout(layout)]
	return ok
}

// IsColumnLayout reports whether the layout is column-structured; such slides
// are checked per column rather than against the slide-wide bullet bound.
func IsColumnLayout(layout string) bool {
	_, ok := columnLayouts[NormalizeLayout(layout)]
	return ok
}

// IsVisualLayout reports whether the layout is chart or image centric.
func IsVisualLayout(layout string) bool {
	_, ok := visualLayouts[NormalizeLayout(layout)]
	return ok
}

// PracticalLayout maps the layout onto the practical set the densifier fills;
// layouts already in that set are returned unchanged.
func PracticalLayout(layout string) string {
	normalized := NormalizeLayout(layout)
	if mapped, ok := practicalRemap[normalized]; ok {
		return mapped
	}
	return normalized
}

// BlockRequirement names one block the layout must carry.
type BlockRequirement struct {
	Type deck.BlockType
	Slot string
}

// requiredBlocks lists the blocks each practical layout must carry after
// densification.
var requiredBlocks = map[string][]BlockRequirement{
	LayoutExecSummary: {
		{Type: deck.BlockBullets, Slot: SlotMainBullets},
		{Type: deck.BlockActionList, Slot: SlotActionBox},
	},
	LayoutTwoColumn: {
		{Type: deck.BlockBullets, Slot: SlotLeftColumn},
		{Type: deck.BlockBullets, Slot: SlotRightColumn},
		{Type: deck.BlockActionList, Slot: SlotActionBox},
	},
	LayoutChartInsight: {
		{Type: deck.BlockChart, Slot: SlotChartBox},
		{Type: deck.BlockBullets, Slot: SlotInsightBox},
		{Type: deck.BlockActionList, Slot: SlotActionBox},
	},
	LayoutCompetitor2x2: {
		{Type: deck.BlockMatrix2x2, Slot: SlotMatrixBox},
		{Type: deck.BlockBullets, Slot: SlotInsightBox},
		{Type: deck.BlockActionList, Slot: SlotActionBox},
	},
	LayoutStrategyCards: {
		{Type: deck.BlockKPICards, Slot: SlotKPICards},
		{Type: deck.BlockActionList, Slot: SlotActionBox},
	},
	LayoutTimeline: {
		{Type: deck.BlockTimelineSteps, Slot: SlotTimelineBox},
		{Type: deck.BlockActionList, Slot: SlotActionBox},
	},
	LayoutKPICards: {
		{Type: deck.BlockKPICards, Slot: SlotKPICards},
		{Type: deck.BlockActionList, Slot: SlotAssumptionsBox},
	},
}

// RequiredBlocks returns the block requirements for the practical layout, or
// nil when the layout has no fixed requirement (cover, appendix, ...).
func RequiredBlocks(layout string) []BlockRequirement {
	return requiredBlocks[PracticalLayout(layout)]
}

// AllowedBlocks returns the (type, slot) pairs a practical layout may carry,
// or nil when the layout is unconstrained. Densify prunes everything else so
// the renderer never sees stray slots.
func AllowedBlocks(layout string) map[BlockRequirement]struct{} {
	reqs, ok := requiredBlocks[PracticalLayout(layout)]
	if !ok {
		return nil
	}
	allowed := make(map[BlockRequirement]struct{}, len(reqs))
	for _, r := range reqs {
		allowed[r] = struct{}{}
	}
	return allowed
}

// Named slots of the practical layouts.
const (
	SlotMainBullets    = "main_bullets"
	SlotLeftColumn     = "left_column"
	SlotRightColumn    = "right_column"
	SlotActionBox      = "action_box"
	SlotInsightBox     = "insight_box"
	SlotChartBox       = "chart_box"
	SlotImageBox       = "image_box"
	SlotMatrixBox      = "matrix_box"
	SlotKPICards       = "kpi_cards"
	SlotTimelineBox    = "timeline_box"
	SlotAssumptionsBox = "assumptions_box"
	SlotNarrativeBox   = "narrative_box"
)

// ColumnSlot names the bullets slot for a 0-based column index.
func ColumnSlot(idx int) string {
	switch idx {
	case 0:
		return SlotLeftColumn
	case 1:
		return SlotRightColumn
	default:
		return "column_" + strconv.Itoa(idx+1)
	}
}
