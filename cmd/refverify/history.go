// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/refverify/internal/archive"
)

var historyCmd = &cobra.Command{
	Use:   "history [citation-key]",
	Short: "List archived runs, or the statuses one citation key received",
	Long: `History reads the run archive configured with --archive. Without
arguments it lists recent runs; with a citation key it prints that key's
status in every archived run, most recent first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := viper.GetString("archive")
	if path == "" {
		return fmt.Errorf("no archive configured: pass --archive or set archive in refverify.yaml")
	}
	store, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		statuses, err := store.History(ctx, args[0])
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			fmt.Fprintf(out, "%s has not been verified in any archived run\n", args[0])
			return nil
		}
		for _, s := range statuses {
			fmt.Fprintln(out, s)
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Runs(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSOURCE\tTOTAL\tVALID\tINVALID\tNO ID\tREVIEW")
	for _, r := range runs {
		source := r.Source
		if r.Cancelled {
			source += " (cancelled)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), source,
			r.Summary.Total, r.Summary.Valid, r.Summary.Invalid, r.Summary.NoIdentifier, r.Summary.NeedsReview)
	}
	return tw.Flush()
}
