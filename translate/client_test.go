package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pmt/config"
)

func chatBody(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := config.DefaultClientSettings()
	s.APIBase = srv.URL
	return NewClient(s, "test-key")
}

func TestClientSend_OK(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, chatBody(`KEY:0 "hallo"`))
	})

	reply, err := client.Send(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply != `KEY:0 "hallo"` {
		t.Errorf("reply = %q", reply)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestClientSend_AuthError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid key", status)
		})

		_, err := client.Send(context.Background(), "sys", "user")
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("status %d: err = %v, want *AuthError", status, err)
		}
		if authErr.Status != status {
			t.Errorf("AuthError.Status = %d, want %d", authErr.Status, status)
		}
	}
}

func TestClientSend_RateLimitedWithHint(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := client.Send(context.Background(), "sys", "user")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
	if reqErr.Kind != KindRateLimited {
		t.Errorf("kind = %s, want rate limited", reqErr.Kind)
	}
	if reqErr.RetryAfter != 12*time.Second {
		t.Errorf("RetryAfter = %v, want 12s", reqErr.RetryAfter)
	}
}

func TestClientSend_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	})

	_, err := client.Send(context.Background(), "sys", "user")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Kind != KindTransport {
		t.Fatalf("err = %v, want transport RequestError", err)
	}
}

func TestClientSend_MalformedResponses(t *testing.T) {
	cases := map[string]string{
		"invalid JSON": "not json",
		"no choices":   `{"choices":[]}`,
		"API error":    `{"error":{"message":"quota exceeded"}}`,
	}
	for name, body := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, body)
		})

		_, err := client.Send(context.Background(), "sys", "user")
		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.Kind != KindMalformed {
			t.Errorf("%s: err = %v, want malformed RequestError", name, err)
		}
	}
}

func TestClientSend_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read and can
		// observe the client disconnect; otherwise r.Context() is never
		// cancelled and srv.Close deadlocks in cleanup.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})
	client.settings.TimeoutSecs = 1

	_, err := client.Send(context.Background(), "sys", "user")
	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.Kind != KindTimeout {
		t.Fatalf("err = %v, want timeout RequestError", err)
	}
}

func TestClientSend_ParentCancellation(t *testing.T) {
	started := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.Send(ctx, "sys", "user")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		t.Error("parent cancellation must not be classified as retryable")
	}
}

func TestRetryAfterHint_RetryInfoBody(t *testing.T) {
	body := []byte(`{"error":{"details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"2.5s"}]}}`)
	if got := retryAfterHint(http.Header{}, body); got != 2500*time.Millisecond {
		t.Errorf("hint = %v, want 2.5s", got)
	}
	if got := retryAfterHint(http.Header{}, []byte("{}")); got != 0 {
		t.Errorf("hint = %v, want 0 for empty body", got)
	}
}
