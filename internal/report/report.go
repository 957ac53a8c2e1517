// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a batch result: a human-readable text report,
// a JSON export, a BibTeX file of suggested replacements and a CSL-YAML
// list of the same suggestions.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/pdiddy/refverify/pkg/types"
)

const ruleWidth = 80

// TextOptions controls text rendering.
type TextOptions struct {
	// Color enables ANSI highlighting of statuses and warnings.
	Color bool
}

// palette holds the colors used by the text report. Colors are toggled
// per report so file output stays plain even on a terminal.
type palette struct {
	valid, invalid, noID, warn, heading *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		valid:   color.New(color.FgGreen),
		invalid: color.New(color.FgRed, color.Bold),
		noID:    color.New(color.FgYellow),
		warn:    color.New(color.FgYellow, color.Bold),
		heading: color.New(color.FgCyan, color.Bold),
	}
	for _, c := range []*color.Color{p.valid, p.invalid, p.noID, p.warn, p.heading} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) status(k types.VerdictKind) string {
	switch k {
	case types.VerdictValid:
		return p.valid.Sprint(k)
	case types.VerdictInvalid:
		return p.invalid.Sprint(k)
	default:
		return p.noID.Sprint(k)
	}
}

// WriteText writes the full text report for res to w.
func WriteText(w io.Writer, res types.BatchResult, opts TextOptions) error {
	p := newPalette(opts.Color)
	var b strings.Builder
	rule := strings.Repeat("=", ruleWidth)
	thin := strings.Repeat("-", ruleWidth)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, p.heading.Sprint("BIBLIOGRAPHY VERIFICATION REPORT"))
	fmt.Fprintf(&b, "Generated: %s\n", res.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	if res.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", res.RunID)
	}
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)

	s := res.Summary
	fmt.Fprintln(&b, "SUMMARY")
	fmt.Fprintln(&b, thin)
	fmt.Fprintf(&b, "Total references: %d\n", s.Total)
	fmt.Fprintf(&b, "Valid: %d (%s)\n", s.Valid, percent(s.Valid, s.Total))
	fmt.Fprintf(&b, "Invalid: %d (%s)\n", s.Invalid, percent(s.Invalid, s.Total))
	fmt.Fprintf(&b, "No identifier: %d (%s)\n", s.NoIdentifier, percent(s.NoIdentifier, s.Total))
	if s.NeedsReview > 0 {
		fmt.Fprintln(&b, p.warn.Sprintf("Needs manual review (access denied): %d", s.NeedsReview))
	}
	if res.Cancelled {
		fmt.Fprintln(&b, p.warn.Sprint("Run was cancelled before every reference was verified."))
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "DETAILED RESULTS")
	fmt.Fprintln(&b, thin)
	for i, v := range res.Verdicts {
		writeDetail(&b, p, i+1, v)
	}

	if invalid := res.Invalid(); len(invalid) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, rule)
		fmt.Fprintln(&b, p.invalid.Sprint("POTENTIALLY FAKE REFERENCES"))
		fmt.Fprintln(&b, rule)
		for _, v := range invalid {
			writeSuspect(&b, p, v)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeDetail(b *strings.Builder, p palette, idx int, v types.Verdict) {
	r := v.Record
	fmt.Fprintf(b, "\n[%d] %s\n", idx, v.Key)
	fmt.Fprintf(b, "    Type: %s\n", orNA(r.EntryType))
	fmt.Fprintf(b, "    Status: %s\n", p.status(v.Kind))
	if v.NeedsReview {
		fmt.Fprintf(b, "    %s\n", p.warn.Sprint("Review: access denied by resolver; the reference may exist"))
	}
	optional(b, "    Title", r.Title)
	optional(b, "    Year", r.Year)
	optional(b, "    Journal", r.Journal)
	optional(b, "    DOI", r.DOI)
	optional(b, "    arXiv", r.ArxivID)
	if m := v.Metadata; m != nil {
		optional(b, "    Crossref", describeMetadata(*m))
		optional(b, "    Abstract", clip(m.Abstract, maxAbstract))
	}
	for _, o := range v.Evidence {
		fmt.Fprintf(b, "        -> %s\n", DescribeOutcome(o))
	}
}

func writeSuspect(b *strings.Builder, p palette, v types.Verdict) {
	r := v.Record
	fmt.Fprintf(b, "\n%s %s\n", p.warn.Sprint("!"), v.Key)
	optional(b, "  Title", r.Title)
	optional(b, "  DOI", r.DOI)
	optional(b, "  arXiv", r.ArxivID)
	if n := len(v.Evidence); n > 0 {
		fmt.Fprintf(b, "  Issue: %s\n", DescribeOutcome(v.Evidence[n-1]))
	}
	if v.NeedsReview {
		fmt.Fprintln(b, "  Review: resolver denied access; verify by hand")
	}
	if m := v.Metadata; m != nil {
		optional(b, "  Crossref record", describeMetadata(*m))
	}
	if a := v.Alternative; a != nil {
		fmt.Fprintf(b, "  Suggested: %s", a.Title)
		if a.Year != "" {
			fmt.Fprintf(b, " (%s)", a.Year)
		}
		fmt.Fprintln(b)
		optional(b, "  Suggested ID", a.Identifier())
		optional(b, "  Source", a.Source)
	}
}

// maxAbstract bounds abstracts in the text report, in runes.
const maxAbstract = 300

// describeMetadata renders "Title. Journal (Year)" from the parts present.
func describeMetadata(m types.SuggestedRecord) string {
	var parts []string
	if m.Title != "" {
		parts = append(parts, m.Title)
	}
	if m.Journal != "" {
		parts = append(parts, m.Journal)
	}
	s := strings.Join(parts, ". ")
	if m.Year != "" {
		s = strings.TrimSpace(s + " (" + m.Year + ")")
	}
	return s
}

// DescribeOutcome renders one evidence entry on a single line.
func DescribeOutcome(o types.ProbeOutcome) string {
	var b strings.Builder
	if o.Method != "" {
		b.WriteString(o.Method + " ")
	}
	b.WriteString(o.URL)
	b.WriteString(": " + string(o.Class))
	var extra []string
	if o.HTTPCode != nil {
		extra = append(extra, fmt.Sprintf("HTTP %d", *o.HTTPCode))
	}
	if o.Latency > 0 {
		extra = append(extra, o.Latency.Round(time.Millisecond).String())
	}
	if o.FinalURL != "" {
		extra = append(extra, "-> "+o.FinalURL)
	}
	if o.Error != "" {
		extra = append(extra, o.Error)
	}
	if len(extra) > 0 {
		b.WriteString(" (" + strings.Join(extra, ", ") + ")")
	}
	return b.String()
}

func percent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

func optional(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
