package stage

import (
	"deckhand/internal/deck"
	"deckhand/internal/deckstore"
	"deckhand/internal/services"
)

// ItemDeck decodes the deck document carried by a store item.
// On a missing or malformed document it returns a services.ErrValidation
// suitable for stage Execute methods.
func ItemDeck(item *deckstore.Item) (*deck.Deck, error) {
	d, err := item.Deck()
	if err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "parse deck",
			"Deck document is malformed; re-run normalization", err)
	}
	if d == nil {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "parse deck",
			"Item carries no deck document; re-run normalization", nil)
	}
	return d, nil
}
