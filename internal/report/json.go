// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/refverify/pkg/types"
)

// WriteJSON writes res as indented JSON.
func WriteJSON(w io.Writer, res types.BatchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	return nil
}

// JSONPath derives the JSON export path from the text report path:
// a .txt suffix is replaced, anything else gets .json appended.
func JSONPath(reportPath string) string {
	if base, ok := strings.CutSuffix(reportPath, ".txt"); ok {
		return base + ".json"
	}
	return reportPath + ".json"
}
