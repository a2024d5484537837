// Package deck defines the deck specification document: the Deck, its
// Slides, and the canonical typed Block model, together with the legacy
// content shapes (flat bullets, columns, ad-hoc content blocks) that older
// documents still carry.
//
// The package is a pure data model. Normalization, densification, and
// validation live in their own packages; every pipeline stage mutates a Deck
// value in place and the document round-trips through YAML losslessly except
// for the legacy-field clearing that normalization performs.
package deck
