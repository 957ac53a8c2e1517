// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/refverify/pkg/types"
)

// maxJSONBody bounds API responses decoded by FetchJSON.
const maxJSONBody = 4 << 20

// FetchJSON issues a GET to rawURL with the rotated identity plus header and
// decodes an ok response into dst. A body that fails to decode turns the
// outcome into transport_error so the retry policy treats it as transient.
func (p *Prober) FetchJSON(ctx context.Context, rawURL string, timeout time.Duration, header http.Header, dst any) types.ProbeOutcome {
	out, _ := p.send(ctx, http.MethodGet, rawURL, timeout, header, func(resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			_, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
			return err
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBody)).Decode(dst); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	})
	return out
}
