package stage

import (
	"context"

	"deckhand/internal/deckstore"
)

// Handler describes the contract the pipeline manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *deckstore.Item) error
	Execute(context.Context, *deckstore.Item) error
	HealthCheck(context.Context) Health
}
