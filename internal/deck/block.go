package deck

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// BlockType discriminates the canonical block union.
type BlockType string

const (
	BlockBullets       BlockType = "bullets"
	BlockActionList    BlockType = "action_list"
	BlockChart         BlockType = "chart"
	BlockImage         BlockType = "image"
	BlockTable         BlockType = "table"
	BlockQuote         BlockType = "quote"
	BlockKPICards      BlockType = "kpi_cards"
	BlockMatrix2x2     BlockType = "matrix_2x2"
	BlockTimelineSteps BlockType = "timeline_steps"
	BlockText          BlockType = "text"
)

var blockTypes = map[BlockType]struct{}{
	BlockBullets:       {},
	BlockActionList:    {},
	BlockChart:         {},
	BlockImage:         {},
	BlockTable:         {},
	BlockQuote:         {},
	BlockKPICards:      {},
	BlockMatrix2x2:     {},
	BlockTimelineSteps: {},
	BlockText:          {},
}

// KnownBlockType reports whether t names a canonical block variant.
func KnownBlockType(t BlockType) bool {
	_, ok := blockTypes[t]
	return ok
}

// NormalizeBlockType lowercases and trims a raw type string.
func NormalizeBlockType(raw string) BlockType {
	return BlockType(strings.ToLower(strings.TrimSpace(raw)))
}

// Block is one typed, slotted content unit on a slide. Exactly one payload
// field is populated according to Type; PayloadError reports violations.
// Re-inserting a block with the same (type, slot) replaces the existing one.
type Block struct {
	Type     BlockType      `yaml:"type" json:"type"`
	Slot     string         `yaml:"slot,omitempty" json:"slot,omitempty"`
	Items    []Item         `yaml:"items,omitempty" json:"items,omitempty"`
	Cards    []Card         `yaml:"cards,omitempty" json:"cards,omitempty"`
	Chart    *Chart         `yaml:"chart,omitempty" json:"chart,omitempty"`
	Image    *Image         `yaml:"image,omitempty" json:"image,omitempty"`
	Table    *Table         `yaml:"table,omitempty" json:"table,omitempty"`
	Quote    *Quote         `yaml:"quote,omitempty" json:"quote,omitempty"`
	Timeline []TimelineStep `yaml:"timeline,omitempty" json:"timeline,omitempty"`
	Matrix   *Matrix2x2     `yaml:"matrix_2x2,omitempty" json:"matrix_2x2,omitempty"`
	Text     string         `yaml:"text,omitempty" json:"text,omitempty"`
	Evidence *Evidence      `yaml:"evidence,omitempty" json:"evidence,omitempty"`
}

// IsBulletLike reports whether the block carries bullet items.
func (b *Block) IsBulletLike() bool {
	return b != nil && (b.Type == BlockBullets || b.Type == BlockActionList)
}

// PayloadError returns a description of a payload that does not match the
// block type, or the empty string when the payload shape is valid. Unknown
// type strings are reported too; this is the closed-union guard that replaces
// the silently-ignored-key behavior of the legacy shape.
func (b *Block) PayloadError() string {
	if b == nil {
		return "block is nil"
	}
	if !KnownBlockType(b.Type) {
		return fmt.Sprintf("unknown block type %q", b.Type)
	}
	switch b.Type {
	case BlockBullets, BlockActionList:
		if len(b.Cards) > 0 || b.Chart != nil || b.Image != nil || b.Table != nil || b.Quote != nil || len(b.Timeline) > 0 || b.Matrix != nil {
			return fmt.Sprintf("%s block must carry only items", b.Type)
		}
	case BlockChart:
		if b.Chart == nil {
			return "chart block missing chart payload"
		}
	case BlockImage:
		if b.Image == nil {
			return "image block missing image payload"
		}
	case BlockTable:
		if b.Table == nil {
			return "table block missing table payload"
		}
	case BlockQuote:
		if b.Quote == nil {
			return "quote block missing quote payload"
		}
	case BlockKPICards:
		if len(b.Cards) == 0 {
			return "kpi_cards block missing cards payload"
		}
	case BlockMatrix2x2:
		if b.Matrix == nil {
			return "matrix_2x2 block missing matrix payload"
		}
	case BlockTimelineSteps:
		if len(b.Timeline) == 0 {
			return "timeline_steps block missing timeline payload"
		}
	case BlockText:
		if strings.TrimSpace(b.Text) == "" {
			return "text block missing text payload"
		}
	}
	return ""
}

// Item is a bullet or action entry.
type Item struct {
	Text     string    `yaml:"text" json:"text"`
	Icon     string    `yaml:"icon,omitempty" json:"icon,omitempty"`
	Emphasis string    `yaml:"emphasis,omitempty" json:"emphasis,omitempty"`
	Evidence *Evidence `yaml:"evidence,omitempty" json:"evidence,omitempty"`
}

// UnmarshalYAML accepts either a bare string bullet or the object form.
func (i *Item) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		i.Text = node.Value
		return nil
	}
	type plain Item
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*i = Item(p)
	return nil
}

// Evidence anchors a content unit to the source catalog.
type Evidence struct {
	SourceAnchor string `yaml:"source_anchor,omitempty" json:"source_anchor,omitempty"`
	Confidence   string `yaml:"confidence,omitempty" json:"confidence,omitempty"`
}

// Card is one KPI or strategy-option card.
type Card struct {
	Label      string    `yaml:"label,omitempty" json:"label,omitempty"`
	Value      string    `yaml:"value,omitempty" json:"value,omitempty"`
	Comparison string    `yaml:"comparison,omitempty" json:"comparison,omitempty"`
	Evidence   *Evidence `yaml:"evidence,omitempty" json:"evidence,omitempty"`
}

// TimelineStep is one phase entry of a timeline block.
type TimelineStep struct {
	Phase       string `yaml:"phase,omitempty" json:"phase,omitempty"`
	Title       string `yaml:"title,omitempty" json:"title,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Matrix2x2 is a competitive-positioning matrix payload.
type Matrix2x2 struct {
	XAxis     string        `yaml:"x_axis,omitempty" json:"x_axis,omitempty"`
	YAxis     string        `yaml:"y_axis,omitempty" json:"y_axis,omitempty"`
	Quadrants []string      `yaml:"quadrants,omitempty" json:"quadrants,omitempty"`
	Points    []MatrixPoint `yaml:"points,omitempty" json:"points,omitempty"`
}

// MatrixPoint is one plotted entity on a 2x2 matrix.
type MatrixPoint struct {
	Label string  `yaml:"label,omitempty" json:"label,omitempty"`
	X     float64 `yaml:"x" json:"x"`
	Y     float64 `yaml:"y" json:"y"`
	Color string  `yaml:"color,omitempty" json:"color,omitempty"`
}

// Chart is a chart payload; the renderer decides presentation.
type Chart struct {
	Type     string    `yaml:"type,omitempty" json:"type,omitempty"`
	Title    string    `yaml:"title,omitempty" json:"title,omitempty"`
	Caption  string    `yaml:"caption,omitempty" json:"caption,omitempty"`
	Unit     string    `yaml:"unit,omitempty" json:"unit,omitempty"`
	Evidence *Evidence `yaml:"evidence,omitempty" json:"evidence,omitempty"`
}

// Image is an image payload.
type Image struct {
	Path     string    `yaml:"path,omitempty" json:"path,omitempty"`
	Caption  string    `yaml:"caption,omitempty" json:"caption,omitempty"`
	AltText  string    `yaml:"alt_text,omitempty" json:"alt_text,omitempty"`
	Evidence *Evidence `yaml:"evidence,omitempty" json:"evidence,omitempty"`
}

// Table is a tabular payload.
type Table struct {
	Headers  []string   `yaml:"headers,omitempty" json:"headers,omitempty"`
	Rows     [][]string `yaml:"rows,omitempty" json:"rows,omitempty"`
	Evidence *Evidence  `yaml:"evidence,omitempty" json:"evidence,omitempty"`
}

// Quote is a pull-quote payload.
type Quote struct {
	Text     string    `yaml:"text,omitempty" json:"text,omitempty"`
	Author   string    `yaml:"author,omitempty" json:"author,omitempty"`
	Evidence *Evidence `yaml:"evidence,omitempty" json:"evidence,omitempty"`
}

// FindBlock returns the first block matching the type and, when slot is
// non-empty, the slot. Returns nil when absent.
func FindBlock(blocks []*Block, t BlockType, slot string) *Block {
	slotNorm := strings.ToLower(strings.TrimSpace(slot))
	for _, b := range blocks {
		if b == nil || b.Type != t {
			continue
		}
		if slot != "" && strings.ToLower(strings.TrimSpace(b.Slot)) != slotNorm {
			continue
		}
		return b
	}
	return nil
}

// UpsertBlock replaces the block with the same (type, slot) or appends when
// none exists, returning the updated list.
func UpsertBlock(blocks []*Block, block *Block) []*Block {
	slotNorm := strings.ToLower(strings.TrimSpace(block.Slot))
	for idx, cur := range blocks {
		if cur == nil || cur.Type != block.Type {
			continue
		}
		if strings.ToLower(strings.TrimSpace(cur.Slot)) != slotNorm {
			continue
		}
		blocks[idx] = block
		return blocks
	}
	return append(blocks, block)
}
