// Package verification validates human-challenge response tokens against the
// Cloudflare Turnstile siteverify API.
package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultSiteverifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

const defaultTimeout = 10 * time.Second

// ErrVerificationFailed is returned for any challenge outcome other than an
// explicit upstream success, including transport errors and malformed
// responses. Callers must never treat an indeterminate outcome as verified.
var ErrVerificationFailed = errors.New("verification failed")

// Error is a challenge rejection carrying the upstream diagnostic codes.
type Error struct {
	Codes []string
}

func (e *Error) Error() string {
	if len(e.Codes) == 0 {
		return "challenge rejected"
	}
	return fmt.Sprintf("challenge rejected: %s", strings.Join(e.Codes, ", "))
}

func (e *Error) Unwrap() error { return ErrVerificationFailed }

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Turnstile verifies challenge tokens against the siteverify endpoint.
type Turnstile struct {
	client    *http.Client
	endpoint  string
	secretKey string
}

type Option func(*Turnstile)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Turnstile) {
		t.client = client
	}
}

// WithEndpoint overrides the siteverify endpoint.
func WithEndpoint(endpoint string) Option {
	return func(t *Turnstile) {
		t.endpoint = endpoint
	}
}

// NewTurnstile creates a verifier using the given secret key. The key is held
// in memory only and never logged.
func NewTurnstile(secretKey string, opts ...Option) *Turnstile {
	t := &Turnstile{
		client:    &http.Client{Timeout: defaultTimeout},
		endpoint:  defaultSiteverifyURL,
		secretKey: secretKey,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Verify checks a challenge token for the given client IP. It returns nil only
// when the upstream verifier explicitly reports success; every other outcome
// yields an error wrapping ErrVerificationFailed.
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) error {
	const op = "verification.Turnstile.Verify"

	form := url.Values{
		"secret":   {t.secretKey},
		"response": {token},
		"remoteip": {remoteIP},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: failed to build siteverify request: %w", op, ErrVerificationFailed)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: siteverify request failed: %w", op, ErrVerificationFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: siteverify returned status %d: %w", op, resp.StatusCode, ErrVerificationFailed)
	}

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%s: failed to decode siteverify response: %w", op, ErrVerificationFailed)
	}

	if !result.Success {
		return fmt.Errorf("%s: %w", op, &Error{Codes: result.ErrorCodes})
	}

	return nil
}
