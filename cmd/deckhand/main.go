package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Ctrl-C during `run` surfaces as context.Canceled; exit quietly.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "deckhand: %v\n", err)
		}
		os.Exit(1)
	}
}
