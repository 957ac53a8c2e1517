// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/refverify/pkg/types"
)

// CSLItem is a bibliographic entry in CSL (Citation Style Language) form,
// consumable by Pandoc and reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Volume         string    `yaml:"volume,omitempty"`
	Issue          string    `yaml:"issue,omitempty"`
	Page           string    `yaml:"page,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Note           string    `yaml:"note,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a date in CSL date-parts form.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// WriteCSL writes the suggestions attached to INVALID verdicts as a
// CSL-YAML list. Item IDs follow the <key>_alt1 convention of the BibTeX
// output. It returns the number of items written.
func WriteCSL(w io.Writer, res types.BatchResult) (int, error) {
	var items []CSLItem
	for _, v := range res.Invalid() {
		if v.Alternative != nil {
			items = append(items, toCSLItem(*v.Alternative, v.Key+"_alt1", v.Key))
		}
	}
	if len(items) == 0 {
		return 0, nil
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return 0, fmt.Errorf("encoding CSL: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("encoding CSL: %w", err)
	}
	return len(items), nil
}

func toCSLItem(s types.SuggestedRecord, id, original string) CSLItem {
	item := CSLItem{
		ID:             id,
		Type:           cslType(s.EntryType),
		Title:          s.Title,
		ContainerTitle: s.Journal,
		Volume:         s.Volume,
		Issue:          s.Issue,
		Page:           s.Pages,
		DOI:            s.DOI,
		URL:            s.URL,
		Note:           "suggested replacement for " + original + " via " + s.Source,
	}
	if item.URL == "" && s.ArxivID != "" {
		item.URL = "https://arxiv.org/abs/" + s.ArxivID
	}
	for _, a := range s.Authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}
	if y, err := strconv.Atoi(s.Year); err == nil && y > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{y}}}
	}
	return item
}

// cslType maps Crossref-style work types to CSL item types.
func cslType(t string) string {
	switch t {
	case "", "journal-article":
		return "article-journal"
	case "proceedings-article", "conference-paper":
		return "paper-conference"
	case "book", "monograph":
		return "book"
	case "book-chapter":
		return "chapter"
	case "dissertation":
		return "thesis"
	case "report":
		return "report"
	default:
		return "article"
	}
}

// parseAuthorName splits a display name on the last space: everything
// before is given, the last token is family. Single tokens become literal.
// "Family, Given" forms are split on the comma.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	if family, given, ok := strings.Cut(name, ","); ok {
		return CSLName{Family: strings.TrimSpace(family), Given: strings.TrimSpace(given)}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
