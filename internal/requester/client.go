package requester

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"permanode/internal/ids"
	"permanode/internal/model"
)

// HTTPClient is the default Client implementation: a thin GET against the
// remote gateway's message-by-id endpoint. The exact route and payload
// shape are the remote gateway's concern (out of scope per spec.md §1);
// this adapter only needs to produce a model.FullMessage or report a miss.
type HTTPClient struct {
	httpClient *http.Client
	sem        *semaphore.Weighted
}

// NewHTTPClient builds a client bounding concurrent in-flight fetches to
// concurrency, grounded on golang.org/x/sync/semaphore as the idiomatic
// bounded-concurrency primitive absent a dedicated worker-pool library in
// the retrieved pack.
func NewHTTPClient(timeout time.Duration, concurrency int) *HTTPClient {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		sem:        semaphore.NewWeighted(int64(concurrency)),
	}
}

type gatewayResponse struct {
	Found    bool                 `json:"found"`
	Message  model.Message        `json:"message"`
	Metadata model.MessageMetadata `json:"metadata"`
}

// FetchMessage performs a bounded-concurrency GET for the given message id
// against endpoint.
func (c *HTTPClient) FetchMessage(ctx context.Context, endpoint string, id ids.MessageID) (model.FullMessage, bool, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return model.FullMessage{}, false, err
	}
	defer c.sem.Release(1)

	url := fmt.Sprintf("%s/messages/%s", endpoint, id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.FullMessage{}, false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.FullMessage{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.FullMessage{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return model.FullMessage{}, false, fmt.Errorf("requester: gateway returned status %d", resp.StatusCode)
	}

	var body gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.FullMessage{}, false, fmt.Errorf("requester: decoding response: %w", err)
	}
	if !body.Found {
		return model.FullMessage{}, false, nil
	}
	return model.FullMessage{Message: body.Message, Metadata: body.Metadata}, true, nil
}
