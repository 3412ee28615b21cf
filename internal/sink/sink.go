// Package sink delivers outbound batches to the private analytics API.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/RubbishGeo/geo-backend/internal/reconcile"
)

// HTTPSink posts one JSON batch per run to the private API's /pickups
// endpoint. Retry and redelivery are the trigger source's job; the sink makes
// exactly one attempt and reports the outcome.
type HTTPSink struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPSink(url, apiKey string) *HTTPSink {
	return &HTTPSink{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Send posts the batch. Any non-2xx response is an error naming the run id so
// the failure is traceable in logs at the trigger source.
func (s *HTTPSink) Send(ctx context.Context, batch reconcile.Batch) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshaling batch for run %s: %w", batch.RunID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request for run %s: %w", batch.RunID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-API-Key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting batch for run %s: %w", batch.RunID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("batch for run %s rejected: %s", batch.RunID, resp.Status)
	}
	return nil
}
