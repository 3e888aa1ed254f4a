// Package webhook delivers analysis reports to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/ccollicutt/logdoctor/pkg/analyzer"
	"github.com/ccollicutt/logdoctor/pkg/detector"
	"github.com/ccollicutt/logdoctor/pkg/findings"
	"github.com/ccollicutt/logdoctor/pkg/output"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps how much of a response body is kept.
const maxResponseBytes = 1 << 20

// Client sends analysis reports to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new webhook client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)

	// Gzip compresses the request body and sets Content-Encoding.
	Gzip bool
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Payload is what a webhook receives: the report without raw event
// streams.
type Payload struct {
	ID         string                 `json:"id"`
	Summary    output.Summary         `json:"summary"`
	Conclusion findings.Conclusion    `json:"conclusion"`
	Findings   []findings.Finding     `json:"findings"`
	Profile    *detector.Profile      `json:"profile"`
	Health     *analyzer.HealthReport `json:"health"`
	Metadata   output.Metadata        `json:"metadata"`
}

// NewPayload trims a report down to its webhook payload.
func NewPayload(report *output.Report) Payload {
	p := Payload{
		ID:         report.ID,
		Summary:    report.Summary,
		Conclusion: report.Conclusion,
		Findings:   report.Findings,
		Profile:    report.Profile,
		Metadata:   report.Metadata,
	}
	if report.Result != nil {
		p.Health = report.Result.Health
	}
	return p
}

// Send posts a report's payload to a webhook endpoint.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}
	fail := func(err error) *Response {
		resp.Error = err
		resp.Duration = time.Since(start)
		return resp
	}

	payload, err := json.Marshal(NewPayload(report))
	if err != nil {
		return fail(fmt.Errorf("failed to marshal report: %w", err))
	}
	if opts.Gzip {
		if payload, err = compress(payload); err != nil {
			return fail(fmt.Errorf("failed to compress report: %w", err))
		}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "logdoctor-webhook")
	req.Header.Set("X-Logdoctor-Report", report.ID)
	if opts.Gzip {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return fail(fmt.Errorf("failed to read response: %w", err))
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(body)
	resp.Duration = time.Since(start)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return resp
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
