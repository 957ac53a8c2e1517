// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/refverify/internal/report"
	"github.com/pdiddy/refverify/internal/verify"
	"github.com/pdiddy/refverify/pkg/types"
)

var checkCmd = &cobra.Command{
	Use:   "check [identifiers...]",
	Short: "Verify DOIs or arXiv IDs given on the command line",
	Long: `Check verifies raw identifiers without a BibTeX file. Each argument is
classified as an arXiv ID (2301.07041, arXiv:2301.07041), a DOI (10.xxxx/...,
optionally with a doi.org prefix) or a URL. URLs and unrecognized values are
reported as NO_IDENTIFIER.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Bool("details", false, "print per-attempt evidence for every identifier")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	records := make([]types.Record, len(args))
	for i, id := range args {
		records[i] = verify.RecordFor(id)
		kind, _ := verify.Classify(id)
		slog.Debug("classified identifier", "input", id, "type", kind)
	}

	eng, err := newEngine(slog.Default())
	if err != nil {
		return err
	}
	defer eng.Close()

	out := cmd.OutOrStdout()
	res, err := eng.run(records, "check", out)
	if err != nil {
		return err
	}

	if details, _ := cmd.Flags().GetBool("details"); details {
		warn := color.New(color.FgYellow)
		for _, v := range res.Verdicts {
			fmt.Fprintf(out, "\n%s\n", v.Key)
			for _, o := range v.Evidence {
				fmt.Fprintf(out, "  %s\n", report.DescribeOutcome(o))
			}
			if v.NeedsReview {
				fmt.Fprintln(out, warn.Sprint("  access denied; the identifier may exist behind a paywall"))
			}
			if m := v.Metadata; m != nil {
				fmt.Fprintf(out, "  crossref: %s (%s, %s)\n", m.Title, m.Journal, m.Year)
			}
			if a := v.Alternative; a != nil {
				fmt.Fprintf(out, "  suggested: %s (%s)\n", a.Title, a.Identifier())
			}
		}
	}
	return invalidError(res)
}
