// Package providers holds HTTP clients for the external reservation and
// payment services the orchestrator calls.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// ServiceError reports a non-success response from a provider.
type ServiceError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return fmt.Sprintf("%s service returned %d: %s", e.Service, e.StatusCode, msg)
}

// Config configures a provider client.
type Config struct {
	BaseURL string
	// HTTPClient defaults to one with a 30s timeout.
	HTTPClient *http.Client
	Logf       func(format string, args ...any)
}

type client struct {
	service string
	baseURL string
	http    *http.Client
	logf    func(format string, args ...any)
}

func newClient(service string, cfg Config) client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	return client{
		service: service,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logf:    logf,
	}
}

// postJSON sends the body and decodes a JSON response into out. Non-2xx
// responses become a ServiceError.
func (c client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s service: %w", c.service, err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("%s service: %w", c.service, readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServiceError{Service: c.service, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s service: decode response: %w", c.service, err)
	}
	return nil
}

// send issues a request without a body and discards the response payload.
// Compensation calls use it: a non-2xx is logged and swallowed so one
// provider refusing a cancel cannot abort the rest of the unwind, while
// transport failures still surface to the caller.
func (c client) send(ctx context.Context, method, path string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s service: %w", c.service, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logf("%s service: %s %s returned %d: %s", c.service, method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
