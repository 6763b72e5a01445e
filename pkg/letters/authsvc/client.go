// Package authsvc is the HTTP client for the external identity service.
//
// The token travels in the JSON request body rather than a header; that is
// the form the identity service's verify endpoint accepts.
package authsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/simple-letters/pkg/letters"
)

const (
	verifyPath     = "/internal/verify/"
	defaultTimeout = 5 * time.Second
)

// Config options for the identity service client
type Config struct {
	BaseURL string        // Base URL of the identity service, e.g. http://auth-service:8001/api/auth
	Timeout time.Duration // Per-call timeout (default: 5s)
}

// Client verifies bearer tokens against the identity service. It makes a
// single attempt per call; retry policy belongs to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new identity service client
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("auth service base URL is required")
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	UserID *json.Number `json:"user_id"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Verify implements letters.AuthVerifier.
func (c *Client) Verify(ctx context.Context, token string) (int64, error) {
	body, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return 0, fmt.Errorf("failed to encode verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyPath, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, unavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &letters.AuthError{
			Status: resp.StatusCode,
			Detail: rejectionDetail(resp.Body),
			Err:    letters.ErrVerificationFailed,
		}
	}

	var payload verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, &letters.AuthError{
			Detail: "verify response is not valid JSON",
			Err:    fmt.Errorf("%w: %v", letters.ErrMalformedAuthResponse, err),
		}
	}
	if payload.UserID == nil {
		return 0, &letters.AuthError{
			Detail: "verify response lacks user_id",
			Err:    letters.ErrMalformedAuthResponse,
		}
	}

	ownerID, err := payload.UserID.Int64()
	if err != nil {
		return 0, &letters.AuthError{
			Detail: fmt.Sprintf("user_id %q is not an integer", payload.UserID.String()),
			Err:    fmt.Errorf("%w: %v", letters.ErrMalformedAuthResponse, err),
		}
	}

	return ownerID, nil
}

// unavailable classifies a transport failure as timeout or connection error.
func unavailable(err error) *letters.AuthError {
	reason := "transport"
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		reason = "timeout"
	} else if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	return &letters.AuthError{
		Detail: reason,
		Err:    fmt.Errorf("%w: %v", letters.ErrAuthUnavailable, err),
	}
}

// rejectionDetail extracts the upstream {detail} message, falling back to the
// raw body text.
func rejectionDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var payload errorResponse
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(raw))
}
