// Package artifact models the geometry-and-text report extracted from a
// rendered deck. The renderer owns the binary output; this package only
// carries what the post-render checker needs: text boxes with positions,
// sizes, fonts, and paragraph text, all in EMU coordinates.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"deckhand/internal/textutil"
)

// EMU conversion factors. PowerPoint geometry is expressed in English Metric
// Units.
const (
	EMUPerInch  = 914400
	EMUPerPoint = 12700
)

// PtToEMU converts typographic points to EMU.
func PtToEMU(pt float64) int64 { return int64(pt * EMUPerPoint) }

// EMUToPt converts EMU to typographic points.
func EMUToPt(emu int64) float64 { return float64(emu) / EMUPerPoint }

// EMUToInches converts EMU to inches.
func EMUToInches(emu int64) float64 { return float64(emu) / EMUPerInch }

// Artifact is the extraction of one rendered deck.
type Artifact struct {
	Source         string   `json:"source,omitempty"`
	SlideWidthEMU  int64    `json:"slide_width_emu"`
	SlideHeightEMU int64    `json:"slide_height_emu"`
	Slides         []*Slide `json:"slides"`
}

// Slide is the extraction of one rendered page.
type Slide struct {
	Index int        `json:"index"`
	Boxes []*TextBox `json:"boxes,omitempty"`
}

// TextBox is one positioned text container. Font fields hold the dominant
// run formatting; per-paragraph overrides live on Paragraph.
type TextBox struct {
	Name       string      `json:"name,omitempty"`
	LeftEMU    int64       `json:"left_emu"`
	TopEMU     int64       `json:"top_emu"`
	WidthEMU   int64       `json:"width_emu"`
	HeightEMU  int64       `json:"height_emu"`
	FontName   string      `json:"font_name,omitempty"`
	FontSizePt float64     `json:"font_size_pt,omitempty"`
	Paragraphs []Paragraph `json:"paragraphs,omitempty"`
}

// Paragraph is one text run group inside a box. Level mirrors the bullet
// indent level; -1 means the paragraph carries no bullet formatting.
type Paragraph struct {
	Text       string  `json:"text"`
	Level      int     `json:"level"`
	FontName   string  `json:"font_name,omitempty"`
	FontSizePt float64 `json:"font_size_pt,omitempty"`
	Bold       bool    `json:"bold,omitempty"`
}

// Load reads an extraction report from a JSON file.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	a, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if a.Source == "" {
		a.Source = path
	}
	return a, nil
}

// Parse decodes an extraction report.
func Parse(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	if a.SlideWidthEMU <= 0 || a.SlideHeightEMU <= 0 {
		return nil, fmt.Errorf("artifact missing slide canvas dimensions")
	}
	return &a, nil
}

// Text joins the non-empty paragraph texts of the box.
func (b *TextBox) Text() string {
	var parts []string
	for _, p := range b.Paragraphs {
		if t := textutil.Collapse(p.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// EffectiveFontSize returns the box-level font size, falling back to the
// largest paragraph size when the box carries none.
func (b *TextBox) EffectiveFontSize() float64 {
	if b.FontSizePt > 0 {
		return b.FontSizePt
	}
	var max float64
	for _, p := range b.Paragraphs {
		if p.FontSizePt > max {
			max = p.FontSizePt
		}
	}
	return max
}

// EffectiveFontName returns the box-level font name, falling back to the
// first paragraph that declares one.
func (b *TextBox) EffectiveFontName() string {
	if b.FontName != "" {
		return b.FontName
	}
	for _, p := range b.Paragraphs {
		if p.FontName != "" {
			return p.FontName
		}
	}
	return ""
}

// RightEMU returns the right edge of the box.
func (b *TextBox) RightEMU() int64 { return b.LeftEMU + b.WidthEMU }

// BottomEMU returns the bottom edge of the box.
func (b *TextBox) BottomEMU() int64 { return b.TopEMU + b.HeightEMU }

// CenterYRatio returns the vertical center of the box as a fraction of the
// slide height.
func (b *TextBox) CenterYRatio(slideHeightEMU int64) float64 {
	if slideHeightEMU <= 0 {
		return 0
	}
	return (float64(b.TopEMU) + float64(b.HeightEMU)/2) / float64(slideHeightEMU)
}

// BulletParagraphs returns the paragraphs that carry bullet formatting and
// non-empty text.
func (b *TextBox) BulletParagraphs() []Paragraph {
	var out []Paragraph
	for _, p := range b.Paragraphs {
		if p.Level >= 0 && textutil.Collapse(p.Text) != "" {
			out = append(out, p)
		}
	}
	return out
}
