// Package httpclient provides a reusable HTTP client with retry logic and resource management.
package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kart-io/abhyasam/pkg/utils/json"
)

// Client is a wrapper around http.Client with additional functionality.
type Client struct {
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a new HTTP client wrapper.
func NewClient(timeout time.Duration, maxRetries int) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
	}
}

// retryable reports whether a response status warrants another attempt.
// Server errors and rate limits are transient; client errors are not.
func retryable(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

// DoRequest executes an HTTP request with retry logic.
// Request bodies are buffered in memory so they can be replayed on retry;
// all callers in this service send small JSON payloads.
func (c *Client) DoRequest(req *http.Request) (*http.Response, error) {
	// 自动注入 W3C Trace Context 头
	c.injectTraceContext(req)

	var lastErr error

	var bodyGetter func() (io.ReadCloser, error)
	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		_ = req.Body.Close()
		bodyGetter = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
	}

	for i := 0; i <= c.maxRetries; i++ {
		if bodyGetter != nil {
			var err error
			req.Body, err = bodyGetter()
			if err != nil {
				return nil, err
			}
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			if !retryable(resp.StatusCode) {
				return resp, nil
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("upstream returned status code %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		if i < c.maxRetries {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
			}
		}
	}
	return nil, lastErr
}

// DoJSON executes a JSON request, decodes the response, and ensures the body is closed.
func (c *Client) DoJSON(req *http.Request, v interface{}) error {
	resp, err := c.DoRequest(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// injectTraceContext 将 W3C Trace Context 头注入到 HTTP 请求中，
// 使追踪信息自动传播到下游服务。传播器未设置时静默跳过。
func (c *Client) injectTraceContext(req *http.Request) {
	if req == nil || req.Context() == nil {
		return
	}

	propagator := otel.GetTextMapPropagator()
	if propagator == nil {
		return
	}

	propagator.Inject(req.Context(), propagation.HeaderCarrier(req.Header))
}
