package connector

import (
	"time"

	"resty.dev/v3"
)

// NewHTTPClient builds the resty client adapters use for their live tier.
// Retries are deliberately left to the connector's retry loop so the
// classifier and fallback chain observe every attempt; resty's own retry
// machinery stays off.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return client
}
