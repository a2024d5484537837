package evidence

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"deckhand/internal/textutil"
)

// AnchorPrefix is the document name every catalog anchor carries.
const AnchorPrefix = "sources.md#"

// Catalog is the set of evidence anchors available to a deck, in document
// order. Pass it explicitly; there is no package-level catalog state.
type Catalog struct {
	anchors []string
	set     map[string]struct{}
}

// NewCatalog builds a catalog from explicit anchors, deduplicating while
// keeping first-seen order.
func NewCatalog(anchors []string) *Catalog {
	c := &Catalog{set: make(map[string]struct{}, len(anchors))}
	for _, a := range anchors {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, ok := c.set[a]; ok {
			continue
		}
		c.set[a] = struct{}{}
		c.anchors = append(c.anchors, a)
	}
	return c
}

// LoadCatalog reads the sources markdown file and parses its anchors.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source catalog: %w", err)
	}
	return ParseCatalog(data), nil
}

// ParseCatalog extracts one anchor per markdown heading, GitHub style: the
// heading text lowercased, punctuation stripped, whitespace collapsed to
// hyphens.
func ParseCatalog(data []byte) *Catalog {
	var anchors []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimLeft(line, "#")
		if trimmed == line || !strings.HasPrefix(trimmed, " ") {
			continue
		}
		slug := textutil.Slugify(trimmed)
		if slug == "" {
			continue
		}
		anchors = append(anchors, AnchorPrefix+slug)
	}
	return NewCatalog(anchors)
}

// Contains reports whether the anchor exists in the catalog.
func (c *Catalog) Contains(anchor string) bool {
	if c == nil {
		return false
	}
	_, ok := c.set[strings.TrimSpace(anchor)]
	return ok
}

// Anchors returns the anchors in document order.
func (c *Catalog) Anchors() []string {
	if c == nil {
		return nil
	}
	return c.anchors
}

// Len returns the number of anchors.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.anchors)
}

// First returns the first anchor in document order, or "" when the catalog is
// empty. It is the resolver's last-resort pick.
func (c *Catalog) First() string {
	if c == nil || len(c.anchors) == 0 {
		return ""
	}
	return c.anchors[0]
}

// firstValid returns the first candidate present in the catalog, or "".
func (c *Catalog) firstValid(candidates []string) string {
	for _, cand := range candidates {
		if cand != "" && c.Contains(cand) {
			return cand
		}
	}
	return ""
}
