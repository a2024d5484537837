package policy

import "regexp"

// Bullet policy. Lengths are in runes; counts are per block or slide.
const (
	BulletMaxChars         = 180 // hard per-item limit
	BulletRecommendedChars = 130
	BulletMinCount         = 3 // content slides
	BulletMaxCount         = 9 // default, overridable via constraints
	VisualBulletMaxCount   = 8 // chart/image centric layouts
	ColumnBulletMaxCount   = 8 // per column on column layouts
)

// Line estimation. CharsPerLine is an empirically chosen wrap heuristic for
// the house body font; do not tighten it without re-measuring rendered decks.
const (
	BulletCharsPerLine = 38
	BulletMaxLines     = 4
)

// Densify targets.
const (
	AutoBulletMaxChars     = 180
	AutoBulletSoftMaxChars = 110
	AutoBulletMinChars     = 18
	AutoActionMinChars     = 14
	AutoGoverningMinChars  = 28
	AutoGoverningMaxChars  = 45
	DensifyMinGlobalMaxBullets = 8
	DensifyMinMaxSlides        = 30
	DensifyDefaultMaxSlides    = 35
)

// Title / governing message limits.
const (
	TitleMaxChars     = 100
	GoverningMaxChars = 200
)

// Content density per slide, measured on total rendered characters.
const (
	DensityMaxChars      = 1200
	DensityMinChars      = 50
	DensityMinParagraphs = 3
)

// Slide metadata limits.
const (
	MaxSourceRefsPerSlide = 6
)

// Evidence policy.
const (
	// EvidenceAnchorPattern is the anchor grammar: sources.md#<slug>.
	EvidenceAnchorPattern = `^sources\.md#[\w-]+$`

	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// AnchorRegexp is the compiled anchor grammar.
var AnchorRegexp = regexp.MustCompile(EvidenceAnchorPattern)

// ConfidenceLevels enumerates the valid evidence confidence values.
var ConfidenceLevels = []string{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}

// Icons enumerates the bullet icon vocabulary; the densifier cycles through
// IconCycle when synthesizing items.
var (
	Icons     = []string{"insight", "check", "arrow", "risk", "target", "data"}
	IconCycle = []string{"insight", "check", "arrow", "risk"}
)

// KnownIcon reports whether the icon is in the vocabulary.
func KnownIcon(icon string) bool {
	for _, known := range Icons {
		if icon == known {
			return true
		}
	}
	return false
}

// Emphasis values for items.
const (
	EmphasisNormal    = "normal"
	EmphasisBold      = "bold"
	EmphasisHighlight = "highlight"
)

// TargetMaxBullets is the per-layout slide constraint the densifier writes.
var TargetMaxBullets = map[string]int{
	LayoutExecSummary:   7,
	LayoutTwoColumn:     10,
	LayoutChartInsight:  8,
	LayoutCompetitor2x2: 8,
	LayoutStrategyCards: 7,
	LayoutTimeline:      8,
	LayoutKPICards:      8,
}

// TargetMaxBulletsFor returns the densify target for a practical layout,
// falling back to 8 for layouts outside the table.
func TargetMaxBulletsFor(layout string) int {
	if target, ok := TargetMaxBullets[PracticalLayout(layout)]; ok {
		return target
	}
	return 8
}
