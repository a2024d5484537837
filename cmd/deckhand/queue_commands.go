package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"deckhand/internal/deckstore"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the deck store",
	}

	cmd.AddCommand(newQueueAddCommand(ctx))
	cmd.AddCommand(newQueueListCommand(ctx))
	cmd.AddCommand(newQueueHealthCommand(ctx))
	cmd.AddCommand(newQueueRetryCommand(ctx))
	cmd.AddCommand(newQueueClearCommand(ctx))
	return cmd
}

func openStore(ctx *commandContext) (*deckstore.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return deckstore.Open(cfg)
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <deck.yaml> [more...]",
		Short: "Queue deck documents for processing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, arg := range args {
				path, err := filepath.Abs(strings.TrimSpace(arg))
				if err != nil {
					return err
				}
				existing, err := store.FindByDeckPath(cmd.Context(), path)
				if err != nil {
					return err
				}
				if existing != nil && existing.Status != deckstore.StatusCompleted &&
					existing.Status != deckstore.StatusFailed && existing.Status != deckstore.StatusReview {
					fmt.Fprintf(cmd.OutOrStdout(), "already queued as item %d: %s\n", existing.ID, path)
					continue
				}
				base := filepath.Base(path)
				title := strings.TrimSuffix(base, filepath.Ext(base))
				item, err := store.NewItem(cmd.Context(), path, title)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued item %d: %s\n", item.ID, path)
			}
			return nil
		},
	}
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List store items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var items []*deckstore.Item
			if statusFlag != "" {
				status, ok := deckstore.ParseStatus(statusFlag)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFlag)
				}
				items, err = store.ItemsByStatus(cmd.Context(), status)
			} else {
				items, err = store.List(cmd.Context())
			}
			if err != nil {
				return err
			}

			if jsonFlag {
				return writeJSON(cmd, items)
			}

			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "store is empty")
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				detail := item.ProgressMessage
				if item.NeedsReview {
					detail = item.ReviewReason
				} else if item.ErrorMessage != "" {
					detail = item.ErrorMessage
				}
				rows = append(rows, []string{
					strconv.FormatInt(item.ID, 10),
					string(item.Status),
					item.Title,
					item.UpdatedAt.Local().Format(time.RFC3339),
					detail,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Status", "Title", "Updated", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit items as JSON")
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only list items in this status")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Summarize store item counts by lifecycle phase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			summary, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}
			if jsonFlag {
				return writeJSON(cmd, summary)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Total", "Pending", "Processing", "Review", "Failed", "Completed"},
				[][]string{{
					strconv.Itoa(summary.Total),
					strconv.Itoa(summary.Pending),
					strconv.Itoa(summary.Processing),
					strconv.Itoa(summary.Review),
					strconv.Itoa(summary.Failed),
					strconv.Itoa(summary.Completed),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the summary as JSON")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry <id> [more...]",
		Short: "Return review or failed items to the pending state",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid item id %q", arg)
				}
				item, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", id)
				}
				if item.Status != deckstore.StatusReview && item.Status != deckstore.StatusFailed {
					return fmt.Errorf("item %d is %s; only review or failed items can be retried", id, item.Status)
				}
				item.Status = deckstore.StatusPending
				item.NeedsReview = false
				item.ReviewReason = ""
				item.ErrorMessage = ""
				item.DeckYAML = ""
				item.ReportJSON = ""
				item.SetProgress("", "", 0)
				if err := store.Update(cmd.Context(), item); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "item %d returned to pending\n", id)
			}
			return nil
		},
	}
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed items from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context(), !allFlag)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d items\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&allFlag, "all", false, "Remove every item regardless of status")
	return cmd
}
