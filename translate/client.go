package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pmt/config"
)

// Sender is the LLM call surface the orchestrator depends on. Tests swap in
// stub senders; production uses *Client.
type Sender interface {
	// Send submits one prompt pair and returns the model's text reply.
	// Failures are *AuthError (fatal) or *RequestError (retryable).
	Send(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RequestKind classifies a retryable request failure.
type RequestKind int

const (
	KindTimeout RequestKind = iota
	KindRateLimited
	KindTransport
	KindMalformed
)

func (k RequestKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate limited"
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed response"
	}
	return "unknown"
}

// RequestError is a retryable request failure. The orchestrator retries
// these up to the configured limit before marking the slice FailedFinal.
type RequestError struct {
	Kind RequestKind
	// RetryAfter is a server-provided wait hint (429 responses); zero
	// when the server gave none.
	RetryAfter time.Duration
	Err        error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request failed (%s): %v", e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// AuthError is an authentication/authorization failure. It is fatal: the
// whole run aborts immediately, no retry.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (HTTP %d): %s", e.Status, truncate(e.Body, 200))
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	settings config.ClientSettings
	apiKey   string
	http     *http.Client
}

// NewClient builds a client from validated settings. The per-request
// timeout is enforced via request contexts so a parent cancellation is
// distinguishable from a deadline.
func NewClient(settings config.ClientSettings, apiKey string) *Client {
	return &Client{
		settings: settings,
		apiKey:   apiKey,
		http:     &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send implements Sender.
func (c *Client) Send(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.settings.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.settings.Temperature,
		MaxTokens:   c.settings.MaxTokens,
	})
	if err != nil {
		return "", &RequestError{Kind: KindMalformed, Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.settings.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.settings.ChatCompletionsURL(), bytes.NewReader(body))
	if err != nil {
		return "", &RequestError{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		// A cancelled run propagates as-is so callers stop instead of
		// retrying; a hit deadline is a retryable timeout.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &RequestError{Kind: KindTimeout, Err: err}
		}
		return "", &RequestError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RequestError{Kind: KindTransport, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &AuthError{Status: resp.StatusCode, Body: string(respBody)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &RequestError{
			Kind:       KindRateLimited,
			RetryAfter: retryAfterHint(resp.Header, respBody),
			Err:        fmt.Errorf("HTTP 429: %s", truncate(string(respBody), 200)),
		}
	case resp.StatusCode != http.StatusOK:
		return "", &RequestError{
			Kind: KindTransport,
			Err:  fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &RequestError{Kind: KindMalformed, Err: fmt.Errorf("invalid JSON response: %w", err)}
	}
	if parsed.Error != nil {
		return "", &RequestError{Kind: KindMalformed, Err: fmt.Errorf("API error: %s", parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return "", &RequestError{Kind: KindMalformed, Err: errors.New("no choices in API response")}
	}
	return parsed.Choices[0].Message.Content, nil
}

// retryAfterHint extracts a wait hint from a 429 response: the Retry-After
// header, or a Google-style RetryInfo detail in the body. Zero when absent.
func retryAfterHint(h http.Header, body []byte) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return 0
	}
	for _, d := range errResp.Error.Details {
		if strings.Contains(d.Type, "RetryInfo") && d.RetryDelay != "" {
			if secs, err := strconv.ParseFloat(strings.TrimSuffix(d.RetryDelay, "s"), 64); err == nil && secs > 0 {
				return time.Duration(secs * float64(time.Second))
			}
		}
	}
	return 0
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
