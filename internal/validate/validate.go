// Package validate runs the authoring-time gate: structural checks against
// the canonical block model first, then the business-rule policy under the
// two-tier constraint resolution. Forbidden words are errors; layout and
// density findings are warnings; catalog membership findings are info.
package validate

import (
	"fmt"
	"strings"

	"deckhand/internal/deck"
	"deckhand/internal/evidence"
	"deckhand/internal/normalize"
	"deckhand/internal/policy"
	"deckhand/internal/report"
	"deckhand/internal/textutil"
)

// Deck validates the whole deck. The catalog may be nil; anchor-catalog
// membership checks are skipped then, never escalated.
func Deck(d *deck.Deck, cat *evidence.Catalog) *report.Report {
	r := report.New("", len(d.Slides))
	gc := d.GlobalConstraints

	if gc != nil && gc.MaxSlides > 0 && len(d.Slides) > gc.MaxSlides {
		r.Addf(report.SeverityWarning, "slides", "structure",
			"deck has %d slides, global_constraints.max_slides is %d", len(d.Slides), gc.MaxSlides)
	}

	for i, ref := range d.SourcesRef {
		checkAnchor(r, fmt.Sprintf("sources_ref[%d]", i), ref, cat)
	}

	checkRequiredSections(r, d)

	for i, s := range d.Slides {
		path := fmt.Sprintf("slides[%d]", i)
		if s == nil {
			r.Addf(report.SeverityError, path, "schema", "slide is null")
			continue
		}
		sv := &slideValidator{r: r, cat: cat, gc: gc, path: path, slide: s}
		if sv.checkShape() {
			// Structural defects make downstream counts meaningless for
			// this slide; evidence grammar is still checked.
			sv.checkEvidence()
			continue
		}
		sv.checkBusinessRules()
		sv.checkEvidence()
	}

	r.Sort()
	return r
}

// checkRequiredSections verifies each required section exists either as a
// slide layout or as a metadata.section value.
func checkRequiredSections(r *report.Report, d *deck.Deck) {
	if d.GlobalConstraints == nil || len(d.GlobalConstraints.RequiredSections) == 0 {
		return
	}
	present := make(map[string]struct{})
	for _, s := range d.Slides {
		if s == nil {
			continue
		}
		present[policy.NormalizeLayout(s.Layout)] = struct{}{}
		if s.Metadata != nil && s.Metadata.Section != "" {
			present[textutil.Fold(strings.TrimSpace(s.Metadata.Section))] = struct{}{}
		}
	}
	for i, section := range d.GlobalConstraints.RequiredSections {
		key := textutil.Fold(strings.TrimSpace(section))
		if key == "" {
			continue
		}
		if _, ok := present[key]; !ok {
			r.Addf(report.SeverityWarning, fmt.Sprintf("global_constraints.required_sections[%d]", i), "structure",
				"required section %q not found as a layout or metadata.section", section)
		}
	}
}

type slideValidator struct {
	r     *report.Report
	cat   *evidence.Catalog
	gc    *deck.GlobalConstraints
	path  string
	slide *deck.Slide
}

// checkShape runs the structural checks and reports whether the slide failed
// them. Failures short-circuit business rules for this slide only.
func (v *slideValidator) checkShape() bool {
	failed := false

	layout := policy.NormalizeLayout(v.slide.Layout)
	if layout == "" {
		v.r.Addf(report.SeverityError, v.path+".layout", "schema", "layout is required")
		failed = true
	} else if !policy.KnownLayout(layout) {
		v.r.Addf(report.SeverityError, v.path+".layout", "schema", "unknown layout %q", v.slide.Layout)
		failed = true
	}

	for j, b := range v.slide.Blocks {
		blockPath := fmt.Sprintf("%s.blocks[%d]", v.path, j)
		if msg := b.PayloadError(); msg != "" {
			v.r.Addf(report.SeverityError, blockPath, "schema", "%s", msg)
			failed = true
			continue
		}
		for k, it := range b.Items {
			if textutil.Collapse(it.Text) == "" {
				v.r.Addf(report.SeverityError, fmt.Sprintf("%s.items[%d]", blockPath, k), "schema", "item text is empty")
				failed = true
			}
			if it.Icon != "" && !policy.KnownIcon(it.Icon) {
				v.r.Addf(report.SeverityWarning, fmt.Sprintf("%s.items[%d].icon", blockPath, k), "schema",
					"icon %q is outside the icon vocabulary", it.Icon)
			}
		}
	}

	return failed
}

func (v *slideValidator) checkBusinessRules() {
	s := v.slide
	layout := policy.NormalizeLayout(s.Layout)
	bounds := policy.ResolveBounds(layout, v.gc, s.SlideConstraints)
	blocks := normalize.SlideBlocks(s)

	if n := len([]rune(textutil.Collapse(s.Title))); n > policy.TitleMaxChars {
		v.r.Addf(report.SeverityWarning, v.path+".title", "density",
			"title is %d chars, maximum is %d", n, policy.TitleMaxChars)
	}
	if n := len([]rune(textutil.Collapse(s.GoverningMessage))); n > policy.GoverningMaxChars {
		v.r.Addf(report.SeverityWarning, v.path+".governing_message", "density",
			"governing message is %d chars, maximum is %d", n, policy.GoverningMaxChars)
	}

	v.checkBulletCounts(layout, bounds, blocks)
	v.checkItemLengths(layout, bounds, blocks)
	v.checkRequiredVisuals(layout, blocks)
	v.checkForbiddenWords(bounds.ForbiddenWords, blocks)
}

// checkBulletCounts enforces the per-layout-class count bounds. Column
// layouts are checked per column against the computed column limit rather
// than the slide-wide bound.
func (v *slideValidator) checkBulletCounts(layout string, bounds policy.Bounds, blocks []*deck.Block) {
	if policy.IsColumnLayout(layout) {
		v.checkColumnCounts(bounds, blocks)
		return
	}

	count := len(normalize.BulletTexts(v.slide, false))
	switch {
	case bounds.MaxBullets == 0:
		if count > 0 {
			v.r.Addf(report.SeverityWarning, v.path, "density",
				"%s layout must carry no bullets, found %d", layout, count)
		}
	case count > bounds.MaxBullets:
		v.r.Addf(report.SeverityWarning, v.path, "density",
			"bullet count %d exceeds the maximum %d", count, bounds.MaxBullets)
	case count < bounds.MinBullets && !hasNonBulletContent(blocks):
		v.r.Addf(report.SeverityWarning, v.path, "density",
			"bullet count %d is below the minimum %d", count, bounds.MinBullets)
	}
}

func (v *slideValidator) checkColumnCounts(bounds policy.Bounds, blocks []*deck.Block) {
	limit := policy.ColumnBulletLimit(bounds.MaxBullets)
	sawColumn := false
	for j, b := range blocks {
		if b.Type != deck.BlockBullets || !isColumnSlot(b.Slot) {
			continue
		}
		sawColumn = true
		if limit > 0 && len(b.Items) > limit {
			v.r.Addf(report.SeverityWarning, fmt.Sprintf("%s.blocks[%d]", v.path, j), "density",
				"column %q has %d bullets, per-column limit is %d", b.Slot, len(b.Items), limit)
		}
		if len(b.Items) == 0 {
			v.r.Addf(report.SeverityWarning, fmt.Sprintf("%s.blocks[%d]", v.path, j), "density",
				"column %q carries no bullets or substitute content", b.Slot)
		}
	}
	if !sawColumn {
		v.r.Addf(report.SeverityWarning, v.path, "structure",
			"column layout carries no column blocks")
	}
}

// checkItemLengths enforces the per-item character and estimated-line bounds.
func (v *slideValidator) checkItemLengths(layout string, bounds policy.Bounds, blocks []*deck.Block) {
	if policy.IsNoBulletLayout(layout) {
		return
	}
	for j, b := range blocks {
		if !b.IsBulletLike() {
			continue
		}
		for k, it := range b.Items {
			itemPath := fmt.Sprintf("%s.blocks[%d].items[%d]", v.path, j, k)
			n := len([]rune(it.Text))
			if bounds.MaxCharsPerBullet > 0 && n > bounds.MaxCharsPerBullet {
				v.r.Addf(report.SeverityWarning, itemPath, "density",
					"item is %d chars, maximum is %d", n, bounds.MaxCharsPerBullet)
			}
			if lines := textutil.EstimateLines(it.Text, policy.BulletCharsPerLine); lines > policy.BulletMaxLines {
				v.r.Addf(report.SeverityWarning, itemPath, "density",
					"item likely wraps to %d lines, maximum is %d", lines, policy.BulletMaxLines)
			}
		}
	}
}

// checkRequiredVisuals warns when a visual-centric layout is missing its
// visual payload.
func (v *slideValidator) checkRequiredVisuals(layout string, blocks []*deck.Block) {
	switch policy.PracticalLayout(layout) {
	case policy.LayoutChartInsight:
		if deck.FindBlock(blocks, deck.BlockChart, "") == nil && deck.FindBlock(blocks, deck.BlockImage, "") == nil {
			v.r.Addf(report.SeverityWarning, v.path, "structure",
				"%s layout needs a chart or image block", layout)
		}
	case policy.LayoutCompetitor2x2:
		if deck.FindBlock(blocks, deck.BlockMatrix2x2, "") == nil {
			v.r.Addf(report.SeverityWarning, v.path, "structure",
				"%s layout needs a matrix_2x2 block", layout)
		}
	}
}

// checkForbiddenWords scans the slide-wide text concatenation. A hit is
// always an error.
func (v *slideValidator) checkForbiddenWords(words []string, blocks []*deck.Block) {
	if len(words) == 0 {
		return
	}
	text := slideText(v.slide, blocks)
	for _, word := range words {
		if textutil.FoldContains(text, word) {
			v.r.Addf(report.SeverityError, v.path, "forbidden-word", "forbidden word %q found", word)
		}
	}
}

// checkEvidence validates anchor grammar (warning) and catalog membership
// (info) across every evidence record the slide carries.
func (v *slideValidator) checkEvidence() {
	s := v.slide

	if s.Metadata != nil {
		for i, ref := range s.Metadata.SourceRefs {
			checkAnchor(v.r, fmt.Sprintf("%s.metadata.source_refs[%d]", v.path, i), ref, v.cat)
		}
	}

	for j, b := range s.Blocks {
		blockPath := fmt.Sprintf("%s.blocks[%d]", v.path, j)
		v.evidenceAt(blockPath+".evidence", b.Evidence)
		for k := range b.Items {
			v.evidenceAt(fmt.Sprintf("%s.items[%d].evidence", blockPath, k), b.Items[k].Evidence)
		}
		for k := range b.Cards {
			v.evidenceAt(fmt.Sprintf("%s.cards[%d].evidence", blockPath, k), b.Cards[k].Evidence)
		}
		if b.Chart != nil {
			v.evidenceAt(blockPath+".chart.evidence", b.Chart.Evidence)
		}
		if b.Image != nil {
			v.evidenceAt(blockPath+".image.evidence", b.Image.Evidence)
		}
		if b.Table != nil {
			v.evidenceAt(blockPath+".table.evidence", b.Table.Evidence)
		}
		if b.Quote != nil {
			v.evidenceAt(blockPath+".quote.evidence", b.Quote.Evidence)
		}
	}

	// Legacy shapes are validated too so pre-normalization decks get the
	// same traceability findings.
	for i := range s.Bullets {
		v.evidenceAt(fmt.Sprintf("%s.bullets[%d].evidence", v.path, i), s.Bullets[i].Evidence)
	}
	for ci := range s.Columns {
		col := &s.Columns[ci]
		for i := range col.Bullets {
			v.evidenceAt(fmt.Sprintf("%s.columns[%d].bullets[%d].evidence", v.path, ci, i), col.Bullets[i].Evidence)
		}
		if col.Visual != nil {
			v.evidenceAt(fmt.Sprintf("%s.columns[%d].visual.evidence", v.path, ci), col.Visual.Evidence)
		}
	}
	for i := range s.Visuals {
		v.evidenceAt(fmt.Sprintf("%s.visuals[%d].evidence", v.path, i), s.Visuals[i].Evidence)
	}
	for i := range s.Footnotes {
		v.evidenceAt(fmt.Sprintf("%s.footnotes[%d].evidence", v.path, i), s.Footnotes[i].Evidence)
	}
}

func (v *slideValidator) evidenceAt(path string, ev *deck.Evidence) {
	if ev == nil {
		return
	}
	if ev.SourceAnchor != "" {
		checkAnchor(v.r, path+".source_anchor", ev.SourceAnchor, v.cat)
	}
	if ev.Confidence != "" && !validConfidence(ev.Confidence) {
		v.r.Addf(report.SeverityWarning, path+".confidence", "evidence",
			"confidence %q is not one of high/medium/low", ev.Confidence)
	}
}

// checkAnchor reports a malformed anchor as a warning and a well-formed
// anchor missing from the catalog as info.
func checkAnchor(r *report.Report, path, anchor string, cat *evidence.Catalog) {
	if !policy.AnchorRegexp.MatchString(anchor) {
		r.Addf(report.SeverityWarning, path, "evidence",
			"malformed anchor %q, expected sources.md#anchor-name", anchor)
		return
	}
	if cat.Len() > 0 && !cat.Contains(anchor) {
		r.Addf(report.SeverityInfo, path, "evidence",
			"anchor %q not found in the source catalog", anchor)
	}
}

func validConfidence(c string) bool {
	for _, known := range policy.ConfidenceLevels {
		if c == known {
			return true
		}
	}
	return false
}

// isColumnSlot reports whether the slot names a column placement.
func isColumnSlot(slot string) bool {
	slot = strings.ToLower(strings.TrimSpace(slot))
	return slot == policy.SlotLeftColumn || slot == policy.SlotRightColumn || strings.HasPrefix(slot, "column_")
}

// hasNonBulletContent reports whether the slide carries content that relaxes
// the bullet minimum (charts, tables, cards, and the like).
func hasNonBulletContent(blocks []*deck.Block) bool {
	for _, b := range blocks {
		if b != nil && !b.IsBulletLike() {
			return true
		}
	}
	return false
}

// slideText concatenates every text fragment on the slide for forbidden-word
// scanning.
func slideText(s *deck.Slide, blocks []*deck.Block) string {
	var parts []string
	add := func(fragments ...string) {
		for _, f := range fragments {
			if f != "" {
				parts = append(parts, f)
			}
		}
	}
	add(s.Title, s.Subtitle, s.GoverningMessage, s.Notes)
	for _, b := range blocks {
		for _, it := range b.Items {
			add(it.Text)
		}
		for _, c := range b.Cards {
			add(c.Label, c.Value, c.Comparison)
		}
		if b.Quote != nil {
			add(b.Quote.Text, b.Quote.Author)
		}
		if b.Chart != nil {
			add(b.Chart.Title, b.Chart.Caption)
		}
		for _, step := range b.Timeline {
			add(step.Phase, step.Title, step.Description)
		}
		add(b.Text)
	}
	for i := range s.Footnotes {
		add(s.Footnotes[i].Text)
	}
	return strings.Join(parts, " ")
}
