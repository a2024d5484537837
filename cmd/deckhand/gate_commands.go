package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"deckhand/internal/artifact"
	"deckhand/internal/deck"
	"deckhand/internal/evidence"
	"deckhand/internal/policy"
	"deckhand/internal/qa"
	"deckhand/internal/report"
	"deckhand/internal/validate"
)

// emitReport writes the report in the requested form and converts a failed
// gate into a command error.
func emitReport(cmd *cobra.Command, r *report.Report, gate string, strict, jsonOut bool, reportPath string) error {
	r.Sort()

	if path := strings.TrimSpace(reportPath); path != "" {
		if err := os.WriteFile(path, []byte(r.Markdown()), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	passed := r.Passed()
	if strict {
		passed = r.PassedStrict()
	}

	if jsonOut {
		if err := writeJSON(cmd, r); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		if len(r.Issues) > 0 {
			rows := make([][]string, 0, len(r.Issues))
			for _, issue := range r.Issues {
				rows = append(rows, []string{strings.ToUpper(string(issue.Severity)), issue.Path, issue.Message})
			}
			fmt.Fprintln(out, renderTable([]string{"Severity", "Path", "Message"}, rows, nil))
		}
		result := "PASS"
		if !passed {
			result = "FAIL"
		}
		fmt.Fprintf(out, "%s: %s (%d errors, %d warnings, %d info) across %d slides\n",
			result, r.Target, r.Errors(), r.Warnings(), r.Infos(), r.TotalSlides)
	}

	if !passed {
		return fmt.Errorf("%s gate failed: %d errors, %d warnings", gate, r.Errors(), r.Warnings())
	}
	return nil
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var catalogFlag string
	var strictFlag bool
	var jsonFlag bool
	var reportFlag string

	cmd := &cobra.Command{
		Use:   "validate <deck.yaml>",
		Short: "Run the pre-render gate over a deck document",
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

			r := validate.Deck(d, cat)
			strict := strictFlag || cfg.Gate.Strict
			return emitReport(cmd, r, "validation", strict, jsonFlag, reportFlag)
		},
	}

	cmd.Flags().StringVar(&catalogFlag, "catalog", "", "Source catalog for anchor membership checks")
	cmd.Flags().BoolVar(&strictFlag, "strict", false, "Fail on warnings as well as errors")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the report as JSON")
	cmd.Flags().StringVar(&reportFlag, "report", "", "Also write the report as markdown to this path")
	return cmd
}

func newQACommand(ctx *commandContext) *cobra.Command {
	var deckFlag string
	var tokensFlag string
	var strictFlag bool
	var jsonFlag bool
	var reportFlag string

	cmd := &cobra.Command{
		Use:   "qa <extract.json>",
		Short: "Check a rendered extraction artifact against design tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			a, err := artifact.Load(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}

			var d *deck.Deck
			if path := strings.TrimSpace(deckFlag); path != "" {
				d, err = deck.Load(path)
				if err != nil {
					return err
				}
			}

			tokensPath := strings.TrimSpace(tokensFlag)
			if tokensPath == "" {
				tokensPath = strings.TrimSpace(cfg.Render.TokensPath)
			}
			tokens := policy.DefaultTokens()
			if tokensPath != "" {
				if _, statErr := os.Stat(tokensPath); statErr == nil {
					tokens, err = policy.LoadTokens(tokensPath)
					if err != nil {
						return err
					}
				} else if cmd.Flags().Changed("tokens") {
					return fmt.Errorf("design tokens %s: %w", tokensPath, statErr)
				}
			}

			r := qa.New(tokens).Check(a, d)
			strict := strictFlag || cfg.Gate.Strict
			return emitReport(cmd, r, "qa", strict, jsonFlag, reportFlag)
		},
	}

	cmd.Flags().StringVar(&deckFlag, "deck", "", "Authored deck document to compare against")
	cmd.Flags().StringVar(&tokensFlag, "tokens", "", "Design tokens document")
	cmd.Flags().BoolVar(&strictFlag, "strict", false, "Fail on warnings as well as errors")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the report as JSON")
	cmd.Flags().StringVar(&reportFlag, "report", "", "Also write the report as markdown to this path")
	return cmd
}
