// Package qa re-validates a rendered deck. It applies the authoring-time
// business rules to the extracted artifact, preferring the source deck's
// structured content when available, and adds render-specific checks with no
// authoring-time equivalent: estimated text overflow, shape bounds against
// the slide canvas, and font compliance against the design tokens.
//
// The overflow and box-role heuristics are estimates calibrated on the house
// template, not guarantees. Their constants live in the policy package.
package qa

import (
	"fmt"
	"math"
	"strings"

	"deckhand/internal/artifact"
	"deckhand/internal/deck"
	"deckhand/internal/normalize"
	"deckhand/internal/policy"
	"deckhand/internal/report"
	"deckhand/internal/textutil"
)

// boxRole classifies a rendered text box.
type boxRole string

const (
	roleTitle     boxRole = "title"
	roleGoverning boxRole = "governing"
	roleBody      boxRole = "body"
	roleFootnote  boxRole = "footnote"
)

// titleSimilarityFloor is the cosine similarity below which a rendered title
// is reported as diverging from the authored one.
const titleSimilarityFloor = 0.5

// Checker inspects rendered artifacts against the design-token policy.
type Checker struct {
	tokens       policy.Tokens
	allowedFonts map[string]struct{}
}

// New builds a checker for the given design tokens.
func New(tokens policy.Tokens) *Checker {
	allowed := make(map[string]struct{}, len(tokens.AllowedFonts))
	for _, f := range tokens.AllowedFonts {
		if key := textutil.NormalizeFontName(f); key != "" {
			allowed[key] = struct{}{}
		}
	}
	return &Checker{tokens: tokens, allowedFonts: allowed}
}

// Check inspects the artifact. The deck may be nil; bullet and forbidden-word
// rules then run on the extracted text under the default policy bounds.
func (c *Checker) Check(a *artifact.Artifact, d *deck.Deck) *report.Report {
	r := report.New(a.Source, len(a.Slides))

	var gc *deck.GlobalConstraints
	if d != nil {
		gc = d.GlobalConstraints
	}
	if gc != nil && gc.MaxSlides > 0 && len(a.Slides) > gc.MaxSlides {
		r.Addf(report.SeverityWarning, "slides", "structure",
			"rendered deck has %d slides, max_slides is %d", len(a.Slides), gc.MaxSlides)
	}
	if d != nil && len(a.Slides) != len(d.Slides) {
		r.Addf(report.SeverityWarning, "slides", "structure",
			"rendered deck has %d slides, source has %d", len(a.Slides), len(d.Slides))
	}

	for i, as := range a.Slides {
		var ds *deck.Slide
		if d != nil && i < len(d.Slides) {
			ds = d.Slides[i]
		}
		c.checkSlide(r, fmt.Sprintf("slides[%d]", i), a, as, ds, gc)
	}

	r.Sort()
	return r
}

func (c *Checker) checkSlide(r *report.Report, path string, a *artifact.Artifact, as *artifact.Slide, ds *deck.Slide, gc *deck.GlobalConstraints) {
	c.checkBullets(r, path, a, as, ds, gc)
	c.checkOverflow(r, path, as)
	c.checkCanvasBounds(r, path, a, as)
	c.checkFonts(r, path, as)
	c.checkDensity(r, path, as)
	c.checkForbiddenWords(r, path, as, ds, gc)
	c.checkTitleAlignment(r, path, a, as, ds)
}

// checkBullets re-applies the count and length rules. The source deck's
// structured content is preferred over the extraction so title and caption
// boxes are never miscounted as bullets.
func (c *Checker) checkBullets(r *report.Report, path string, a *artifact.Artifact, as *artifact.Slide, ds *deck.Slide, gc *deck.GlobalConstraints) {
	layout := ""
	var sc *deck.SlideConstraints
	if ds != nil {
		layout = policy.NormalizeLayout(ds.Layout)
		sc = ds.SlideConstraints
	}
	bounds := policy.ResolveBounds(layout, gc, sc)

	var texts []string
	if ds != nil {
		texts = normalize.BulletTexts(ds, false)
	} else {
		for _, box := range as.Boxes {
			if c.classify(box, a.SlideHeightEMU) != roleBody {
				continue
			}
			for _, p := range box.BulletParagraphs() {
				texts = append(texts, textutil.Collapse(p.Text))
			}
		}
	}

	if bounds.MaxBullets > 0 && len(texts) > bounds.MaxBullets {
		r.Addf(report.SeverityWarning, path, "density",
			"rendered bullet count %d exceeds the maximum %d", len(texts), bounds.MaxBullets)
	}
	for k, text := range texts {
		if n := len([]rune(text)); bounds.MaxCharsPerBullet > 0 && n > bounds.MaxCharsPerBullet {
			r.Addf(report.SeverityWarning, fmt.Sprintf("%s.bullets[%d]", path, k), "density",
				"rendered bullet is %d chars, maximum is %d", n, bounds.MaxCharsPerBullet)
		}
	}
}

// checkOverflow estimates whether a box's text fits its height: characters
// per line at the run's font size times the line height, compared against the
// box height plus a fixed tolerance. An estimate only; narrow glyph runs and
// renderer shrink-to-fit can absorb a reported overflow.
func (c *Checker) checkOverflow(r *report.Report, path string, as *artifact.Slide) {
	for j, box := range as.Boxes {
		if box.WidthEMU <= 0 || box.HeightEMU <= 0 {
			continue
		}
		widthPt := artifact.EMUToPt(box.WidthEMU)
		var neededPt float64
		for _, p := range box.Paragraphs {
			text := textutil.Collapse(p.Text)
			if text == "" {
				continue
			}
			size := p.FontSizePt
			if size <= 0 {
				size = box.EffectiveFontSize()
			}
			if size <= 0 {
				size = c.tokens.BodyFontSizePt
			}
			cpl := int(widthPt / (size * policy.GlyphWidthFactor))
			if cpl < 1 {
				cpl = 1
			}
			lines := textutil.EstimateLines(text, cpl)
			neededPt += float64(lines) * size * policy.LineHeightFactor
		}
		if neededPt == 0 {
			continue
		}
		limit := float64(box.HeightEMU) * (1 + policy.OverflowToleranceRatio)
		if needed := float64(artifact.PtToEMU(neededPt)); needed > limit {
			r.Addf(report.SeverityWarning, fmt.Sprintf("%s.boxes[%d]", path, j), "overflow",
				"estimated text height %.1fpt likely overflows the %.1fpt box",
				neededPt, artifact.EMUToPt(box.HeightEMU))
		}
	}
}

// checkCanvasBounds flags boxes placed outside the slide canvas.
func (c *Checker) checkCanvasBounds(r *report.Report, path string, a *artifact.Artifact, as *artifact.Slide) {
	for j, box := range as.Boxes {
		if box.LeftEMU < 0 || box.TopEMU < 0 ||
			box.RightEMU() > a.SlideWidthEMU || box.BottomEMU() > a.SlideHeightEMU {
			r.Addf(report.SeverityWarning, fmt.Sprintf("%s.boxes[%d]", path, j), "layout",
				"box %q extends outside the slide canvas", box.Name)
		}
	}
}

// checkFonts enforces font-family membership and flags implausible sizes.
func (c *Checker) checkFonts(r *report.Report, path string, as *artifact.Slide) {
	for j, box := range as.Boxes {
		boxPath := fmt.Sprintf("%s.boxes[%d]", path, j)
		if name := box.EffectiveFontName(); name != "" {
			if _, ok := c.allowedFonts[textutil.NormalizeFontName(name)]; !ok {
				r.Addf(report.SeverityWarning, boxPath, "font",
					"font %q is not in the allowed set", name)
			}
		}
		if size := box.EffectiveFontSize(); size > 0 && (size > 30 || size < 8) {
			r.Addf(report.SeverityInfo, boxPath, "font",
				"unusual font size %.1fpt", size)
		}
	}
}

// checkDensity scores the slide's total extracted text volume.
func (c *Checker) checkDensity(r *report.Report, path string, as *artifact.Slide) {
	totalChars := 0
	totalParagraphs := 0
	for _, box := range as.Boxes {
		for _, p := range box.Paragraphs {
			text := textutil.Collapse(p.Text)
			if text == "" {
				continue
			}
			totalChars += len([]rune(text))
			totalParagraphs++
		}
	}
	if totalChars > policy.DensityMaxChars {
		r.Addf(report.SeverityWarning, path, "density",
			"slide carries %d chars of rendered text, maximum is %d", totalChars, policy.DensityMaxChars)
	}
	if totalChars < policy.DensityMinChars && totalParagraphs < policy.DensityMinParagraphs {
		r.Addf(report.SeverityInfo, path, "density",
			"slide carries only %d chars of rendered text", totalChars)
	}
}

// checkForbiddenWords scans the full extracted text. A hit is always an
// error, matching the authoring-time gate.
func (c *Checker) checkForbiddenWords(r *report.Report, path string, as *artifact.Slide, ds *deck.Slide, gc *deck.GlobalConstraints) {
	var sc *deck.SlideConstraints
	if ds != nil {
		sc = ds.SlideConstraints
	}
	words := policy.ResolveForbiddenWords(gc, sc)
	if len(words) == 0 {
		return
	}
	var parts []string
	for _, box := range as.Boxes {
		if t := box.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	text := strings.Join(parts, " ")
	for _, word := range words {
		if textutil.FoldContains(text, word) {
			r.Addf(report.SeverityError, path, "forbidden-word",
				"forbidden word %q found in rendered text", word)
		}
	}
}

// checkTitleAlignment compares the authored title against the rendered
// title box using a token-frequency fingerprint.
func (c *Checker) checkTitleAlignment(r *report.Report, path string, a *artifact.Artifact, as *artifact.Slide, ds *deck.Slide) {
	if ds == nil || textutil.Collapse(ds.Title) == "" {
		return
	}
	var rendered string
	for _, box := range as.Boxes {
		if c.classify(box, a.SlideHeightEMU) == roleTitle {
			rendered = box.Text()
			break
		}
	}
	if rendered == "" {
		return
	}
	want := textutil.NewFingerprint(ds.Title)
	got := textutil.NewFingerprint(rendered)
	if sim := textutil.CosineSimilarity(want, got); sim < titleSimilarityFloor {
		r.Addf(report.SeverityInfo, path+".title", "alignment",
			"rendered title %q diverges from the authored title %q", rendered, ds.Title)
	}
}

// classify assigns a box role by nearest configured font size within the
// tolerance, falling back to the vertical band when no size matches.
func (c *Checker) classify(box *artifact.TextBox, slideHeightEMU int64) boxRole {
	size := box.EffectiveFontSize()
	if size > 0 {
		candidates := []struct {
			role boxRole
			size float64
		}{
			{roleTitle, c.tokens.TitleFontSizePt},
			{roleGoverning, c.tokens.GoverningFontSizePt},
			{roleBody, c.tokens.BodyFontSizePt},
			{roleFootnote, c.tokens.FootnoteFontSizePt},
		}
		best := boxRole("")
		bestDelta := math.Inf(1)
		for _, cand := range candidates {
			if cand.size <= 0 {
				continue
			}
			delta := math.Abs(size - cand.size)
			if delta <= c.tokens.FontSizeTolerancePt && delta < bestDelta {
				best, bestDelta = cand.role, delta
			}
		}
		if best != "" {
			return best
		}
	}

	switch y := box.CenterYRatio(slideHeightEMU); {
	case y <= policy.TitleBandRatio:
		return roleTitle
	case y <= policy.GoverningBandRatio:
		return roleGoverning
	case y >= policy.FootnoteBandRatio:
		return roleFootnote
	default:
		return roleBody
	}
}
