package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deckhand/internal/evidence"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "catalog <sources.md>",
		Short: "List the anchors a source catalog exposes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := evidence.LoadCatalog(args[0])
			if err != nil {
				return err
			}
			anchors := cat.Anchors()
			if jsonFlag {
				return writeJSON(cmd, anchors)
			}
			if len(anchors) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog exposes no anchors")
				return nil
			}
			for _, anchor := range anchors {
				fmt.Fprintln(cmd.OutOrStdout(), anchor)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit anchors as JSON")
	return cmd
}
