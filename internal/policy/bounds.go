package policy

import "deckhand/internal/deck"

// Bounds is the effective constraint set for one slide after two-tier
// resolution: slide override wins, else global default, else policy constant.
type Bounds struct {
	MinBullets        int
	MaxBullets        int
	MaxCharsPerBullet int
	ForbiddenWords    []string
}

// ResolveMaxBullets resolves the effective slide bullet maximum.
func ResolveMaxBullets(gc *deck.GlobalConstraints, sc *deck.SlideConstraints) int {
	max := BulletMaxCount
	if gc != nil && gc.DefaultMaxBullets > 0 {
		max = gc.DefaultMaxBullets
	}
	if sc != nil && sc.MaxBullets > 0 {
		max = sc.MaxBullets
	}
	return max
}

// ResolveMaxCharsPerBullet resolves the effective per-item character limit.
func ResolveMaxCharsPerBullet(gc *deck.GlobalConstraints, sc *deck.SlideConstraints) int {
	max := BulletMaxChars
	if gc != nil && gc.DefaultMaxCharsPerBullet > 0 {
		max = gc.DefaultMaxCharsPerBullet
	}
	if sc != nil && sc.MaxCharsPerBullet > 0 {
		max = sc.MaxCharsPerBullet
	}
	return max
}

// ResolveForbiddenWords merges global and slide forbidden-word lists,
// deduplicated, preserving first-seen order.
func ResolveForbiddenWords(gc *deck.GlobalConstraints, sc *deck.SlideConstraints) []string {
	var words []string
	seen := make(map[string]struct{})
	appendWords := func(list []string) {
		for _, w := range list {
			if w == "" {
				continue
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			words = append(words, w)
		}
	}
	if gc != nil {
		appendWords(gc.ForbiddenWords)
	}
	if sc != nil {
		appendWords(sc.ForbiddenWords)
	}
	return words
}

// ResolveBounds computes the effective bullet bounds for a slide. This is the
// single point of truth shared by the densifier, the validator, and the
// post-render checker.
func ResolveBounds(layout string, gc *deck.GlobalConstraints, sc *deck.SlideConstraints) Bounds {
	b := Bounds{
		MinBullets:        BulletMinCount,
		MaxBullets:        ResolveMaxBullets(gc, sc),
		MaxCharsPerBullet: ResolveMaxCharsPerBullet(gc, sc),
		ForbiddenWords:    ResolveForbiddenWords(gc, sc),
	}

	switch {
	case IsNoBulletLayout(layout):
		b.MinBullets = 0
		b.MaxBullets = 0
	case IsVisualLayout(layout):
		b.MinBullets = 0
		if b.MaxBullets > VisualBulletMaxCount {
			b.MaxBullets = VisualBulletMaxCount
		}
	}
	return b
}

// ColumnBulletLimit computes the per-column maximum for column layouts,
// bounded by the slide-wide maximum while still permitting dense decks.
func ColumnBulletLimit(maxBullets int) int {
	if maxBullets <= 0 {
		return 0
	}
	limit := ColumnBulletMaxCount
	if maxBullets < limit {
		limit = maxBullets
	}
	if limit < 3 {
		limit = 3
	}
	return limit
}
