// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/pdiddy/refverify/pkg/types"
)

// WriteAlternatives writes one BibTeX entry per suggestion, keyed
// <original>_alt1 and preceded by a comment block naming the original.
// It returns the number of entries written; zero means nothing was written.
func WriteAlternatives(w io.Writer, res types.BatchResult) (int, error) {
	var b strings.Builder
	n := 0
	for _, v := range res.Invalid() {
		a := v.Alternative
		if a == nil {
			continue
		}
		if n == 0 {
			b.WriteString("% Alternative references for potentially invalid citations\n")
			fmt.Fprintf(&b, "%% Generated: %s\n", res.FinishedAt.Local().Format("2006-01-02 15:04:05"))
			b.WriteString("% Please review these suggestions and decide which to use\n")
		}
		n++
		fmt.Fprintln(&b)
		b.WriteString("% ========================================\n")
		fmt.Fprintf(&b, "%% Original (INVALID): %s\n", v.Key)
		if t := v.Record.Title; t != "" {
			fmt.Fprintf(&b, "%% Original title: %s\n", clip(t, 80))
		}
		if d := v.Record.DOI; d != "" {
			fmt.Fprintf(&b, "%% Original DOI: %s (NOT FOUND)\n", d)
		}
		fmt.Fprintf(&b, "%% Source: %s\n", a.Source)
		b.WriteString("% ========================================\n")
		b.WriteString(FormatBibTeX(*a, v.Key+"_alt1"))
		fmt.Fprintln(&b)
	}
	if n == 0 {
		return 0, nil
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return 0, fmt.Errorf("writing alternatives: %w", err)
	}
	return n, nil
}

// FormatBibTeX renders s as a BibTeX entry. An empty key is derived from
// the first author's family name, the year and the first title word.
func FormatBibTeX(s types.SuggestedRecord, key string) string {
	if key == "" {
		key = citeKey(s)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", BibTeXType(s.EntryType), key)
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "  %s = {%s},\n", name, value)
		}
	}
	field("title", s.Title)
	field("author", strings.Join(s.Authors, " and "))
	field("journal", s.Journal)
	field("year", s.Year)
	field("volume", s.Volume)
	field("number", s.Issue)
	field("pages", s.Pages)
	field("doi", s.DOI)
	if s.ArxivID != "" {
		field("eprint", s.ArxivID)
		field("archiveprefix", "arXiv")
	}
	field("url", s.URL)
	b.WriteString("}\n")
	return b.String()
}

// BibTeXType maps Crossref-style work types to BibTeX entry types.
func BibTeXType(t string) string {
	switch t {
	case "", "journal-article":
		return "article"
	case "proceedings-article", "conference-paper":
		return "inproceedings"
	case "book", "monograph":
		return "book"
	case "book-chapter":
		return "incollection"
	case "dissertation":
		return "phdthesis"
	case "report":
		return "techreport"
	default:
		return "misc"
	}
}

func citeKey(s types.SuggestedRecord) string {
	author := "Unknown"
	if len(s.Authors) > 0 {
		if f := parseAuthorName(s.Authors[0]); f.Family != "" {
			author = f.Family
		} else if f.Literal != "" {
			author = f.Literal
		}
	}
	year := s.Year
	if year == "" {
		year = "YEAR"
	}
	word := "Title"
	if fields := strings.Fields(s.Title); len(fields) > 0 {
		word = fields[0]
	}
	return strings.Map(keyRune, author+year+word)
}

func keyRune(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return r
	}
	return -1
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
