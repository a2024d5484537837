package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"deckhand/internal/config"
	"deckhand/internal/deck"
	"deckhand/internal/densify"
	"deckhand/internal/evidence"
	"deckhand/internal/layoutsync"
	"deckhand/internal/normalize"
)

// loadDeckArg reads the deck document named by the first positional argument.
func loadDeckArg(args []string) (*deck.Deck, string, error) {
	path := strings.TrimSpace(args[0])
	d, err := deck.Load(path)
	if err != nil {
		return nil, path, err
	}
	return d, path, nil
}

func saveDeck(d *deck.Deck, inPath, outFlag string) (string, error) {
	out := strings.TrimSpace(outFlag)
	if out == "" {
		out = inPath
	}
	if err := d.Save(out); err != nil {
		return out, err
	}
	return out, nil
}

// resolveCatalog locates the source catalog for a deck: an explicit flag
// wins, then the configured path, then a sources.md next to the deck.
func resolveCatalog(cfg *config.Config, deckPath, flagValue string) string {
	if path := strings.TrimSpace(flagValue); path != "" {
		return path
	}
	configured := strings.TrimSpace(cfg.Evidence.CatalogPath)
	if configured != "" && filepath.IsAbs(configured) {
		return configured
	}
	name := configured
	if name == "" {
		name = "sources.md"
	}
	return filepath.Join(filepath.Dir(deckPath), name)
}

func newNormalizeCommand(ctx *commandContext) *cobra.Command {
	var outFlag string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "normalize <deck.yaml>",
		Short: "Fold legacy slide fields into canonical blocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, path, err := loadDeckArg(args)
			if err != nil {
				return err
			}
			stats := normalize.Apply(d)
			out, err := saveDeck(d, path, outFlag)
			if err != nil {
				return err
			}
			if jsonFlag {
				return writeJSON(cmd, stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "normalized %d slides (%d promoted, %d blocks) -> %s\n",
				stats.Slides, stats.SlidesPromoted, stats.BlocksPromoted, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFlag, "output", "o", "", "Write the result here instead of in place")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit stage statistics as JSON")
	return cmd
}

func newDensifyCommand(ctx *commandContext) *cobra.Command {
	var outFlag string
	var catalogFlag string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "densify <deck.yaml>",
		Short: "Fill sparse slides up to their layout bounds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			d, path, err := loadDeckArg(args)
			if err != nil {
				return err
			}
			cat, _ := evidence.LoadCatalog(resolveCatalog(cfg, path, catalogFlag))
			stats := densify.Apply(d, cat)
			out, err := saveDeck(d, path, outFlag)
			if err != nil {
				return err
			}
			if jsonFlag {
				return writeJSON(cmd, stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "densified %d of %d slides (%d blocks materialized) -> %s\n",
				stats.SlidesTouched, stats.SlidesTotal, stats.BlocksMaterialized, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFlag, "output", "o", "", "Write the result here instead of in place")
	cmd.Flags().StringVar(&catalogFlag, "catalog", "", "Source catalog used for placeholder evidence")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit stage statistics as JSON")
	return cmd
}

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	var outFlag string
	var catalogFlag string
	var confidenceFlag string
	var overwriteFlag bool
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "enrich <deck.yaml>",
		Short: "Resolve source anchors and confidence onto deck items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			d, path, err := loadDeckArg(args)
			if err != nil {
				return err
			}
			catalogPath := resolveCatalog(cfg, path, catalogFlag)
			cat, err := evidence.LoadCatalog(catalogPath)
			if err != nil {
				return fmt.Errorf("load catalog %s: %w", catalogPath, err)
			}
			opts := evidence.Options{
				Confidence: confidenceFlag,
				Overwrite:  overwriteFlag,
			}
			if opts.Confidence == "" {
				opts.Confidence = cfg.Evidence.DefaultConfidence
			}
			if !cmd.Flags().Changed("overwrite") {
				opts.Overwrite = cfg.Evidence.Overwrite
			}
			stats := evidence.EnrichDeck(d, cat, opts)
			out, err := saveDeck(d, path, outFlag)
			if err != nil {
				return err
			}
			if jsonFlag {
				return writeJSON(cmd, stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enriched %d of %d items (%d slides without anchor) -> %s\n",
				stats.ItemsUpdated, stats.ItemsTotal, stats.SlidesWithoutAnchor, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFlag, "output", "o", "", "Write the result here instead of in place")
	cmd.Flags().StringVar(&catalogFlag, "catalog", "", "Source catalog path")
	cmd.Flags().StringVar(&confidenceFlag, "confidence", "", "Confidence written where none is set")
	cmd.Flags().BoolVar(&overwriteFlag, "overwrite", false, "Replace existing anchors instead of filling gaps")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit stage statistics as JSON")
	return cmd
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var outFlag string
	var prefsFlag string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "sync <deck.yaml>",
		Short: "Apply the layout preferences document to a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			d, path, err := loadDeckArg(args)
			if err != nil {
				return err
			}

			prefsPath := strings.TrimSpace(prefsFlag)
			if prefsPath == "" {
				prefsPath = strings.TrimSpace(cfg.Layout.PreferencesPath)
			}
			var prefs *layoutsync.Preferences
			if prefsPath != "" {
				prefs, err = layoutsync.Load(prefsPath)
				if err != nil {
					return err
				}
			}

			res := layoutsync.Apply(d, prefs)
			out, err := saveDeck(d, path, outFlag)
			if err != nil {
				return err
			}
			if jsonFlag {
				return writeJSON(cmd, res)
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			for _, c := range res.Changes {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d layout changes -> %s\n", len(res.Changes), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFlag, "output", "o", "", "Write the result here instead of in place")
	cmd.Flags().StringVar(&prefsFlag, "prefs", "", "Layout preferences document")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the change list as JSON")
	return cmd
}
