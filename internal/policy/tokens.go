package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Font policy defaults for the rendered deck.
const (
	TitleFontSizePt     = 24.0
	GoverningFontSizePt = 16.0
	BodyFontSizePt      = 12.0
	FootnoteFontSizePt  = 10.0

	// FontSizeTolerancePt: classification of rendered text boxes matches a
	// role when the font size is within this tolerance. Empirically chosen;
	// widening it makes role detection ambiguous, narrowing it misclassifies
	// template variance as violations.
	FontSizeTolerancePt = 2.0
)

// Text overflow estimation for rendered boxes. GlyphWidthFactor approximates
// the average glyph advance as a fraction of the font size and
// OverflowToleranceRatio is the slack before an estimate is reported. Both
// are heuristics calibrated on the house template, not guarantees.
const (
	GlyphWidthFactor       = 0.55
	LineHeightFactor       = 1.2
	OverflowToleranceRatio = 0.10
)

// Vertical-position thresholds (fractions of slide height) used to classify
// rendered text boxes into title/governing/body/footnote bands.
const (
	TitleBandRatio     = 0.12
	GoverningBandRatio = 0.22
	FootnoteBandRatio  = 0.86
)

// defaultAllowedFonts lists the house font family and the spellings renderers
// emit for it.
var defaultAllowedFonts = []string{
	"Noto Sans KR",
	"Noto Sans KR Bold",
	"Noto Sans KR Regular",
	"NotoSansKR",
	"NotoSansKR-Bold",
	"NotoSansKR-Regular",
}

// Tokens is the design-token policy the post-render checker enforces.
type Tokens struct {
	AllowedFonts        []string `yaml:"allowed_fonts"`
	TitleFontSizePt     float64  `yaml:"title_font_size_pt"`
	GoverningFontSizePt float64  `yaml:"governing_font_size_pt"`
	BodyFontSizePt      float64  `yaml:"body_font_size_pt"`
	FootnoteFontSizePt  float64  `yaml:"footnote_font_size_pt"`
	FontSizeTolerancePt float64  `yaml:"font_size_tolerance_pt"`
}

// DefaultTokens returns the house design-token policy.
func DefaultTokens() Tokens {
	fonts := make([]string, len(defaultAllowedFonts))
	copy(fonts, defaultAllowedFonts)
	return Tokens{
		AllowedFonts:        fonts,
		TitleFontSizePt:     TitleFontSizePt,
		GoverningFontSizePt: GoverningFontSizePt,
		BodyFontSizePt:      BodyFontSizePt,
		FootnoteFontSizePt:  FootnoteFontSizePt,
		FontSizeTolerancePt: FontSizeTolerancePt,
	}
}

// LoadTokens reads a design-token document, filling unset fields from the
// defaults. A missing file degrades to the defaults rather than failing, so
// the checker can still run.
func LoadTokens(path string) (Tokens, error) {
	tokens := DefaultTokens()
	if path == "" {
		return tokens, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return tokens, nil
		}
		return tokens, fmt.Errorf("read design tokens: %w", err)
	}
	var loaded Tokens
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return tokens, fmt.Errorf("decode design tokens: %w", err)
	}
	if len(loaded.AllowedFonts) > 0 {
		tokens.AllowedFonts = append(loaded.AllowedFonts, tokens.AllowedFonts...)
	}
	if loaded.TitleFontSizePt > 0 {
		tokens.TitleFontSizePt = loaded.TitleFontSizePt
	}
	if loaded.GoverningFontSizePt > 0 {
		tokens.GoverningFontSizePt = loaded.GoverningFontSizePt
	}
	if loaded.BodyFontSizePt > 0 {
		tokens.BodyFontSizePt = loaded.BodyFontSizePt
	}
	if loaded.FootnoteFontSizePt > 0 {
		tokens.FootnoteFontSizePt = loaded.FootnoteFontSizePt
	}
	if loaded.FontSizeTolerancePt > 0 {
		tokens.FontSizeTolerancePt = loaded.FontSizeTolerancePt
	}
	return tokens, nil
}
