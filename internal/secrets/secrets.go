// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads credentials for the search backends from a
// directory of plain-text files, one value per file.
//
// Recognized files: crossref-mailto, semantic-scholar-api-key.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/refverify/pkg/types"
)

// File names inside the secrets directory.
const (
	CrossrefMailtoFile  = "crossref-mailto"
	SemanticScholarFile = "semantic-scholar-api-key"
)

// Secrets holds the values found on disk. Empty fields were not provided.
type Secrets struct {
	CrossrefMailto        string
	SemanticScholarAPIKey string
}

// Load reads the recognized files in dir. A missing directory or missing
// files are not errors. Unreadable files are logged and skipped.
func Load(dir string, logger *slog.Logger) (Secrets, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, nil
		}
		return Secrets{}, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Secrets{}, fmt.Errorf("secrets path %s is not a directory", dir)
	}

	var s Secrets
	for name, dst := range map[string]*string{
		CrossrefMailtoFile:  &s.CrossrefMailto,
		SemanticScholarFile: &s.SemanticScholarAPIKey,
	} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("could not read secret", "name", name, "error", err)
			}
			continue
		}
		*dst = strings.TrimSpace(string(data))
	}
	return s, nil
}

// Apply fills search credentials that configuration left empty.
// Configured values win over files.
func (s Secrets) Apply(cfg *types.SearchConfig) {
	if cfg.Mailto == "" {
		cfg.Mailto = s.CrossrefMailto
	}
	if cfg.SemanticScholarAPIKey == "" {
		cfg.SemanticScholarAPIKey = s.SemanticScholarAPIKey
	}
}
