// internal/provider/client.go
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	queryTimeout     = 30 * time.Second
	heightRetryDelay = 500 * time.Millisecond
	heightMaxTries   = 3
)

// Client talks to the range-query chain-data provider over HTTP. One query
// returns every matching log and transaction in [from_block, tip] up to the
// provider's batch limit, plus the cursor to resume from.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(baseURL, authToken string, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(queryTimeout).
		SetAuthToken(authToken).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		logger: logger.Named("provider"),
	}
}

// Query requests one batch of logs/transactions/blocks. A response with no
// records and no next cursor means the range is drained for now; the caller
// decides how long to idle.
func (c *Client) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	var resp QueryResponse
	r, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post("/query")
	if err != nil {
		return nil, fmt.Errorf("provider query from block %d: %w", req.FromBlock, err)
	}
	if r.IsError() {
		return nil, fmt.Errorf("provider query from block %d: status %d", req.FromBlock, r.StatusCode())
	}

	c.logger.Debug("Query batch received",
		zap.Uint64("from_block", req.FromBlock),
		zap.Int("logs", len(resp.Data.Logs)),
		zap.Int("transactions", len(resp.Data.Transactions)))

	return &resp, nil
}

// GetHeight returns current chain height. The height advances independently
// of the ingestion cursor, so this is re-queried every loop iteration;
// transient failures are retried with exponential backoff before giving up
// for the iteration.
func (c *Client) GetHeight(ctx context.Context) (uint64, error) {
	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = heightRetryDelay

	notify := func(err error, duration time.Duration) {
		c.logger.Debug("Retrying height query", zap.Error(err), zap.Duration("backoff", duration))
	}

	operation := func() (uint64, error) {
		var resp HeightResponse
		r, err := c.http.R().
			SetContext(ctx).
			SetResult(&resp).
			Get("/height")
		if err != nil {
			return 0, err
		}
		if r.IsError() {
			return 0, fmt.Errorf("height query: status %d", r.StatusCode())
		}
		return resp.Height, nil
	}

	height, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoffPolicy),
		backoff.WithMaxTries(heightMaxTries),
		backoff.WithNotify(notify))
	if err != nil {
		return 0, fmt.Errorf("get chain height: %w", err)
	}

	return height, nil
}
