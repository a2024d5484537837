package deck

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Deck is the top-level deck specification document. It is the sole durable
// artifact between pipeline stages.
type Deck struct {
	Title             string             `yaml:"title,omitempty" json:"title,omitempty"`
	ClientMeta        map[string]string  `yaml:"client_meta,omitempty" json:"client_meta,omitempty"`
	GlobalConstraints *GlobalConstraints `yaml:"global_constraints,omitempty" json:"global_constraints,omitempty"`
	SourcesRef        []string           `yaml:"sources_ref,omitempty" json:"sources_ref,omitempty"`
	Slides            []*Slide           `yaml:"slides" json:"slides"`
}

// GlobalConstraints are deck-wide policy overrides. Zero values mean "not
// set"; resolution against slide overrides and policy defaults happens in the
// policy package.
type GlobalConstraints struct {
	MaxSlides                int      `yaml:"max_slides,omitempty" json:"max_slides,omitempty"`
	DefaultMaxBullets        int      `yaml:"default_max_bullets,omitempty" json:"default_max_bullets,omitempty"`
	DefaultMaxCharsPerBullet int      `yaml:"default_max_chars_per_bullet,omitempty" json:"default_max_chars_per_bullet,omitempty"`
	ForbiddenWords           []string `yaml:"forbidden_words,omitempty" json:"forbidden_words,omitempty"`
	RequiredSections         []string `yaml:"required_sections,omitempty" json:"required_sections,omitempty"`
}

// SlideConstraints override the global constraints for one slide.
type SlideConstraints struct {
	MaxBullets        int      `yaml:"max_bullets,omitempty" json:"max_bullets,omitempty"`
	MaxCharsPerBullet int      `yaml:"max_chars_per_bullet,omitempty" json:"max_chars_per_bullet,omitempty"`
	ForbiddenWords    []string `yaml:"forbidden_words,omitempty" json:"forbidden_words,omitempty"`
}

// Empty reports whether the record carries no overrides at all.
func (c *SlideConstraints) Empty() bool {
	return c == nil || (c.MaxBullets == 0 && c.MaxCharsPerBullet == 0 && len(c.ForbiddenWords) == 0)
}

// Metadata carries slide bookkeeping: the deck section the slide belongs to
// and the slide's preferred evidence anchors, in preference order.
type Metadata struct {
	Section    string   `yaml:"section,omitempty" json:"section,omitempty"`
	SourceRefs []string `yaml:"source_refs,omitempty" json:"source_refs,omitempty"`
}

// Slide is one deck page. The content payload is either the canonical Blocks
// list or exactly one of the legacy shapes; normalization promotes legacy
// content into Blocks and clears the legacy fields.
type Slide struct {
	Layout           string            `yaml:"layout" json:"layout"`
	Title            string            `yaml:"title,omitempty" json:"title,omitempty"`
	Subtitle         string            `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	GoverningMessage string            `yaml:"governing_message,omitempty" json:"governing_message,omitempty"`
	Notes            string            `yaml:"notes,omitempty" json:"notes,omitempty"`
	LayoutIntent     map[string]any    `yaml:"layout_intent,omitempty" json:"layout_intent,omitempty"`
	SlideConstraints *SlideConstraints `yaml:"slide_constraints,omitempty" json:"slide_constraints,omitempty"`
	Metadata         *Metadata         `yaml:"metadata,omitempty" json:"metadata,omitempty"`

	// Canonical content model.
	Blocks []*Block `yaml:"blocks,omitempty" json:"blocks,omitempty"`

	// Legacy content shapes, kept for backward compatibility on input.
	Bullets       []Item         `yaml:"bullets,omitempty" json:"bullets,omitempty"`
	Columns       []Column       `yaml:"columns,omitempty" json:"columns,omitempty"`
	ContentBlocks []ContentBlock `yaml:"content_blocks,omitempty" json:"content_blocks,omitempty"`
	Visuals       []Visual       `yaml:"visuals,omitempty" json:"visuals,omitempty"`

	Footnotes []Item `yaml:"footnotes,omitempty" json:"footnotes,omitempty"`
}

// SourceRefs returns the slide's declared evidence anchors, or nil.
func (s *Slide) SourceRefs() []string {
	if s == nil || s.Metadata == nil {
		return nil
	}
	return s.Metadata.SourceRefs
}

// EnsureMetadata returns the slide metadata, allocating it when absent.
func (s *Slide) EnsureMetadata() *Metadata {
	if s.Metadata == nil {
		s.Metadata = &Metadata{}
	}
	return s.Metadata
}

// Column is a legacy multi-column payload entry.
type Column struct {
	Heading       string         `yaml:"heading,omitempty" json:"heading,omitempty"`
	Subheading    string         `yaml:"subheading,omitempty" json:"subheading,omitempty"`
	Bullets       []Item         `yaml:"bullets,omitempty" json:"bullets,omitempty"`
	ContentBlocks []ContentBlock `yaml:"content_blocks,omitempty" json:"content_blocks,omitempty"`
	Visual        *Visual        `yaml:"visual,omitempty" json:"visual,omitempty"`
}

// ContentBlock is the legacy ad-hoc content list entry, discriminated by a
// free-form type string. Normalization maps it onto the canonical Block types.
type ContentBlock struct {
	Type     string    `yaml:"type" json:"type"`
	Slot     string    `yaml:"slot,omitempty" json:"slot,omitempty"`
	Position string    `yaml:"position,omitempty" json:"position,omitempty"`
	Bullets  []Item    `yaml:"bullets,omitempty" json:"bullets,omitempty"`
	Text     string    `yaml:"text,omitempty" json:"text,omitempty"`
	Chart    *Chart    `yaml:"chart,omitempty" json:"chart,omitempty"`
	Image    *Image    `yaml:"image,omitempty" json:"image,omitempty"`
	Table    *Table    `yaml:"table,omitempty" json:"table,omitempty"`
	Quote    *Quote    `yaml:"quote,omitempty" json:"quote,omitempty"`
	KPI      *Card     `yaml:"kpi,omitempty" json:"kpi,omitempty"`
	Callout  *Callout  `yaml:"callout,omitempty" json:"callout,omitempty"`
	Evidence *Evidence `yaml:"evidence,omitempty" json:"evidence,omitempty"`
}

// Callout is a legacy emphasis box; normalization turns it into a one-item
// action list.
type Callout struct {
	Text  string `yaml:"text,omitempty" json:"text,omitempty"`
	Style string `yaml:"style,omitempty" json:"style,omitempty"`
}

// Visual is a legacy chart/image reference attached to a slide or column.
type Visual struct {
	Type     string    `yaml:"type,omitempty" json:"type,omitempty"`
	Title    string    `yaml:"title,omitempty" json:"title,omitempty"`
	Caption  string    `yaml:"caption,omitempty" json:"caption,omitempty"`
	Path     string    `yaml:"path,omitempty" json:"path,omitempty"`
	Evidence *Evidence `yaml:"evidence,omitempty" json:"evidence,omitempty"`
}

// Load reads a deck document from a YAML file.
func Load(path string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck spec: %w", err)
	}
	return Parse(data)
}

// Parse decodes a deck document from YAML bytes.
func Parse(data []byte) (*Deck, error) {
	var d Deck
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode deck spec: %w", err)
	}
	return &d, nil
}

// Save writes the deck document to a YAML file.
func (d *Deck) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write deck spec: %w", err)
	}
	return nil
}

// Marshal encodes the deck document as YAML.
func (d *Deck) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode deck spec: %w", err)
	}
	return data, nil
}
