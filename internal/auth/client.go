package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/odyssey-erp/pulse/internal/shared"
)

// Client calls the auth endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a client for baseURL, e.g. "http://127.0.0.1:8080/api".
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), http: hc}
}

// Verify calls POST /auth/verify.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (Response, error) {
	return c.post(ctx, "/auth/verify", req, "Verification failed")
}

// RequestReset calls POST /auth/password-reset-request.
func (c *Client) RequestReset(ctx context.Context, req ResetRequest) (Response, error) {
	return c.post(ctx, "/auth/password-reset-request", req, "Failed to request password reset")
}

// ConfirmReset calls POST /auth/password-reset-confirm.
func (c *Client) ConfirmReset(ctx context.Context, req ResetConfirmRequest) (Response, error) {
	return c.post(ctx, "/auth/password-reset-confirm", req, "Failed to reset password")
}

func (c *Client) post(ctx context.Context, path string, body any, fallback string) (Response, error) {
	base, err := url.Parse(c.baseURL)
	if c.baseURL == "" || err != nil || base.Scheme == "" || base.Host == "" {
		return Response{}, shared.Configuration("API URL is not configured")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, shared.Validation("encode request: %v", err).WithCause(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return Response{}, shared.Configuration("API URL is not configured").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, shared.AsError(ctxErr)
		}
		return Response{}, shared.Network("network request failed: %v", err).WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Response{}, shared.Network("read response: %v", err).WithCause(err)
	}
	var out Response
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Message
		if decodeErr != nil || msg == "" {
			msg = fallback
		}
		var e *shared.Error
		if resp.StatusCode >= 500 {
			e = shared.Server("%s", msg)
		} else {
			e = shared.Validation("%s", msg)
		}
		e.Status = resp.StatusCode
		return Response{}, e
	}
	if decodeErr != nil {
		return Response{}, shared.Validation("invalid auth response").WithCause(decodeErr)
	}
	return out, nil
}
