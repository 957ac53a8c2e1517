// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/refverify/internal/bibtex"
	"github.com/pdiddy/refverify/internal/report"
	"github.com/pdiddy/refverify/pkg/types"
)

const defaultReportPath = "verification_report.txt"

var verifyCmd = &cobra.Command{
	Use:   "verify <file.bib>",
	Short: "Verify every DOI and arXiv ID in a BibTeX file",
	Long: `Verify parses a BibTeX file and checks each reference's DOI (on doi.org,
then dx.doi.org) or arXiv ID (on arxiv.org). References without either are
reported as NO_IDENTIFIER and never touch the network. The text report is
written to --output; "-" prints it to standard output.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringP("output", "o", defaultReportPath, `text report path ("-" for stdout)`)
	verifyCmd.Flags().BoolP("json", "j", false, "also write results as JSON next to the report")
	verifyCmd.Flags().String("alternatives-output", "", "write suggested replacements as BibTeX to this file")
	verifyCmd.Flags().String("csl-output", "", "write suggested replacements as CSL-YAML to this file")
	verifyCmd.Flags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	records, err := bibtex.ParseFile(args[0])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no BibTeX entries found in %s", args[0])
	}
	slog.Info("parsed bibliography", "path", args[0], "entries", len(records))

	eng, err := newEngine(slog.Default())
	if err != nil {
		return err
	}
	defer eng.Close()

	out := cmd.OutOrStdout()
	res, err := eng.run(records, args[0], out)
	if err != nil {
		return err
	}

	if err := writeOutputs(cmd, res); err != nil {
		return err
	}
	return invalidError(res)
}

// writeOutputs renders the report files selected by flags.
func writeOutputs(cmd *cobra.Command, res types.BatchResult) error {
	outPath, _ := cmd.Flags().GetString("output")
	noColor, _ := cmd.Flags().GetBool("no-color")
	writeJSON, _ := cmd.Flags().GetBool("json")
	altPath, _ := cmd.Flags().GetString("alternatives-output")
	cslPath, _ := cmd.Flags().GetString("csl-output")

	if outPath == "-" {
		opts := report.TextOptions{Color: !noColor && !color.NoColor}
		if err := report.WriteText(cmd.OutOrStdout(), res, opts); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	} else {
		if err := writeFile(outPath, func(f *os.File) error {
			return report.WriteText(f, res, report.TextOptions{})
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report saved to: %s\n", outPath)
	}

	if writeJSON {
		jsonPath := defaultReportPath
		if outPath != "-" {
			jsonPath = outPath
		}
		jsonPath = report.JSONPath(jsonPath)
		if err := writeFile(jsonPath, func(f *os.File) error { return report.WriteJSON(f, res) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "JSON results saved to: %s\n", jsonPath)
	}

	if altPath != "" {
		n, err := writeCounted(altPath, func(f *os.File) (int, error) { return report.WriteAlternatives(f, res) })
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d alternative reference(s) saved to: %s\n", n, altPath)
	}

	if cslPath != "" {
		n, err := writeCounted(cslPath, func(f *os.File) (int, error) { return report.WriteCSL(f, res) })
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d CSL item(s) saved to: %s\n", n, cslPath)
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	_, err := writeCounted(path, func(f *os.File) (int, error) { return 0, write(f) })
	return err
}

// writeCounted creates path, runs write on it and returns write's count.
func writeCounted(path string, write func(*os.File) (int, error)) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}
	n, werr := write(f)
	cerr := f.Close()
	if werr != nil {
		return 0, fmt.Errorf("writing %s: %w", path, werr)
	}
	if cerr != nil {
		return 0, fmt.Errorf("closing %s: %w", path, cerr)
	}
	return n, nil
}
