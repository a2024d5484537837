package densify

import (
	"fmt"

	"deckhand/internal/deck"
	"deckhand/internal/policy"
	"deckhand/internal/textutil"
)

// governingSeeds are the per-layout fallback governing messages. They must
// parse as a single sentence and fit the governing length window without
// trimming.
var governingSeeds = map[string]string{
	policy.LayoutCover:         "One plan to grow profitably from day one.",
	policy.LayoutExecSummary:   "Priorities, impact, and owners in one view.",
	policy.LayoutTwoColumn:     "Compare today and target on one baseline.",
	policy.LayoutChartInsight:  "Read the trend as demand, cost, and policy.",
	policy.LayoutCompetitor2x2: "Match market attractiveness with execution.",
	policy.LayoutStrategyCards: "Weigh options by impact, effort, and risk.",
	policy.LayoutTimeline:      "Stage goals and decision gates by quarter.",
	policy.LayoutKPICards:      "Manage KPIs with assumptions and checks.",
}

const governingSeedDefault = "Ground decisions in evidence and execution."

// governingPadClause extends a governing message that is too short. Appending
// it once always clears the minimum, so a second pass leaves it alone.
const governingPadClause = " Set owners and metrics."

// bulletPadClause extends a bullet that is too short.
const bulletPadClause = " Define the execution basis as well."

// actionPadClause extends an action item that is too short.
const actionPadClause = " Start this quarter."

func governingSeed(layout, title string) string {
	seed, ok := governingSeeds[layout]
	if !ok {
		seed = governingSeedDefault
	}
	_ = title // seeds are title-independent so they stay inside the length window
	return seed
}

// bulletTemplates synthesizes deterministic filler bullets from the slide's
// title and governing message. startIdx offsets the cycle so consecutive
// fills never repeat a template.
func bulletTemplates(title, governing string) []string {
	if title == "" {
		title = "the core agenda"
	}
	direction := governing
	if direction == "" {
		direction = "the headline direction"
	}
	return []string{
		fmt.Sprintf("%s must tie near-term wins to the multi-year competitive agenda under one KPI frame.", title),
		fmt.Sprintf("Review demand, cost, and policy signals monthly to reprioritize %s quickly.", title),
		fmt.Sprintf("Every %s initiative needs an owner, a proof metric, and an investment condition.", title),
		fmt.Sprintf("Connecting %q to delivery requires one baseline across business and finance data.", textutil.Truncate(direction, 40)),
		fmt.Sprintf("Reframe differentiation by value-chain step to widen the %s execution scope.", title),
		fmt.Sprintf("Risks compound, so pair %s tasks with early-warning thresholds and planned responses.", title),
	}
}

// actionTemplates synthesizes deterministic filler action items.
func actionTemplates(title string) []string {
	if title == "" {
		title = "the core agenda"
	}
	return []string{
		fmt.Sprintf("Lock the %s KPI baseline and start monthly reviews.", title),
		"Assign an owner, deadline, and proof metric to every priority.",
		"Run quarterly investment gates and correct variances fast.",
		"Define early-warning thresholds and rehearse the responses.",
		"Put key decisions on a fixed leadership meeting track.",
	}
}

// placeholderChart is synthesized for chart layouts with no chart payload.
func placeholderChart(title string, ev *deck.Evidence) *deck.Chart {
	if title == "" {
		title = "Key metric"
	}
	return &deck.Chart{
		Type:     "bar_chart",
		Title:    textutil.Collapse(title + " trend"),
		Caption:  "placeholder until sourced data lands",
		Evidence: ev,
	}
}

// defaultMatrix is synthesized for competitor layouts with no matrix payload.
func defaultMatrix() *deck.Matrix2x2 {
	return &deck.Matrix2x2{
		XAxis:     "Market attractiveness",
		YAxis:     "Execution capability",
		Quadrants: []string{"Defend", "Harvest", "Build", "Invest"},
		Points: []deck.MatrixPoint{
			{Label: "Client", X: 62, Y: 58, Color: "#008FD3"},
			{Label: "Peer A", X: 74, Y: 72, Color: "#0A5E9C"},
			{Label: "Peer B", X: 48, Y: 64, Color: "#3C8DBC"},
			{Label: "Peer C", X: 38, Y: 44, Color: "#6EAAD2"},
		},
	}
}

// defaultStrategyCards fills a strategy slide up to three options.
func defaultStrategyCards() []deck.Card {
	return []deck.Card{
		{Label: "Option A: Defend margin", Value: "Stabilize near-term margin", Comparison: "Optimize cost, price, and mix together"},
		{Label: "Option B: Scale growth", Value: "Upgrade mid-term capacity", Comparison: "Shift the customer and product portfolio"},
		{Label: "Option C: Reshape portfolio", Value: "Reorder investment priorities", Comparison: "Balance risk against return"},
	}
}

// defaultTimeline fills a timeline slide with the standard four phases.
func defaultTimeline() []deck.TimelineStep {
	return []deck.TimelineStep{
		{Phase: "Phase 1", Title: "First 100 days", Description: "Fix priorities, stand up the PMO, align the KPI baseline"},
		{Phase: "Phase 2", Title: "Months 3-6", Description: "Run pilots, integrate operating data, verify early wins"},
		{Phase: "Phase 3", Title: "Months 6-12", Description: "Standardize core processes, embed governance"},
		{Phase: "Phase 4", Title: "Month 12+", Description: "Scale company-wide, mature the investment and review cadence"},
	}
}

// defaultKPICards fills a KPI slide up to four cards.
func defaultKPICards() []deck.Card {
	return []deck.Card{
		{Label: "Revenue Uplift", Value: "+6~10%", Comparison: "3Y cumulative"},
		{Label: "EBITDA Margin", Value: "+1.5~2.5%p", Comparison: "Year 3"},
		{Label: "Inventory Turn", Value: "+12~18%", Comparison: "Year 2"},
		{Label: "Payback", Value: "24~30M", Comparison: "scenario range"},
	}
}
