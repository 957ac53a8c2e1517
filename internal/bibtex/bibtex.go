// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bibtex extracts verification records from BibTeX files. It is a
// field scraper, not a full BibTeX grammar: each entry is scanned for the
// handful of fields verification and alternative search need.
package bibtex

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/refverify/pkg/types"
)

// Stored field limits, in runes.
const (
	maxTitle   = 100
	maxJournal = 80
)

var (
	entryPattern = regexp.MustCompile(`(?s)@(\w+)\s*\{([^@]+)`)
	keyPattern   = regexp.MustCompile(`^\s*([^,\s]+)\s*,`)
	arxivPattern = regexp.MustCompile(`(?i)arXiv[:\s]+(\d+\.\d+(?:v\d+)?)`)

	// eprintPattern catches arXiv IDs given as eprint with
	// archivePrefix = {arXiv}.
	eprintPattern  = fieldPattern("eprint")
	archivePattern = fieldPattern("archiveprefix")

	doiPattern     = fieldPattern("doi")
	urlPattern     = fieldPattern("url")
	titlePattern   = fieldPattern("title")
	yearPattern    = fieldPattern("year")
	journalPattern = fieldPattern("journal")
	authorPattern  = fieldPattern("author")

	// Entry types that carry no reference.
	skipTypes = map[string]bool{"comment": true, "string": true, "preamble": true}
)

// fieldPattern matches name = {value} or name = "value". The word boundary
// keeps title from matching inside booktitle.
func fieldPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + name + `\s*=\s*(?:\{([^}]+)\}|"([^"]+)")`)
}

// ParseFile reads and parses a .bib file.
func ParseFile(path string) ([]types.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bib file: %w", err)
	}
	return Parse(string(data)), nil
}

// Parse extracts one record per entry in content, in file order. Entries
// without a citation key are named entry<N> after their 1-based position.
func Parse(content string) []types.Record {
	var records []types.Record
	for _, m := range entryPattern.FindAllStringSubmatch(content, -1) {
		entryType := strings.ToLower(m[1])
		if skipTypes[entryType] {
			continue
		}
		body := m[2]

		rec := types.Record{EntryType: entryType}
		if km := keyPattern.FindStringSubmatch(body); km != nil && !strings.Contains(km[1], "=") {
			rec.Key = km[1]
		} else {
			rec.Key = "entry" + strconv.Itoa(len(records)+1)
		}

		rec.DOI = cleanDOI(field(doiPattern, body))
		rec.URL = field(urlPattern, body)
		rec.ArxivID = arxivID(body)
		rec.Title = truncate(field(titlePattern, body), maxTitle)
		rec.Year = field(yearPattern, body)
		rec.Journal = truncate(field(journalPattern, body), maxJournal)
		rec.Author = collapseSpace(field(authorPattern, body))

		records = append(records, rec)
	}
	return records
}

func field(re *regexp.Regexp, body string) string {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[2])
}

func arxivID(body string) string {
	if m := arxivPattern.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	if strings.EqualFold(field(archivePattern, body), "arxiv") {
		return field(eprintPattern, body)
	}
	return ""
}

// cleanDOI strips resolver and "doi:" prefixes, so a field holding only a
// prefix yields no DOI.
func cleanDOI(doi string) string {
	return types.NormalizeDOI(doi)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
