package http

import (
	"net/http"
	"strconv"
	"time"

	"journey-board/internal/common/metrics"
)

// Client is an outbound HTTP client that records per-operation request metrics.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Wrap instruments an existing *http.Client.
func Wrap(hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{httpClient: hc}
}

// Do sends req and records it under operation. The request's context governs cancellation.
func (c *Client) Do(req *http.Request, operation string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	metrics.CRMRequests.WithLabelValues(operation, status).Inc()
	metrics.CRMRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	return resp, err
}
