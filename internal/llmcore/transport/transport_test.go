package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/errs"
)

func TestDoSuccessReturnsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("got Authorization %q", got)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := New(srv.URL, map[string]string{"Authorization": "Bearer sk-test"}, llmcore.ErrorHandling{}, 5000)
	resp, cancel, err := tr.Do(context.Background(), "/chat", []byte(`{}`), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
}

func TestDoClassifiesAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer srv.Close()

	tr := New(srv.URL, nil, llmcore.ErrorHandling{
		AuthErrorStatus:  []int{401},
		ErrorMessagePath: "error.message",
	}, 5000)
	_, _, err := tr.Do(context.Background(), "/chat", []byte(`{}`), false)

	authErr, ok := err.(*errs.ProviderAuthError)
	if !ok {
		t.Fatalf("got %v (%T), want *errs.ProviderAuthError", err, err)
	}
	if authErr.ServerMessage != "invalid api key" {
		t.Fatalf("got server message %q", authErr.ServerMessage)
	}
}

func TestDoClassifiesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	tr := New(srv.URL, nil, llmcore.ErrorHandling{RateLimitStatus: []int{429}}, 5000)
	_, _, err := tr.Do(context.Background(), "/chat", []byte(`{}`), false)
	if _, ok := err.(*errs.ProviderRateLimitedError); !ok {
		t.Fatalf("got %v (%T), want *errs.ProviderRateLimitedError", err, err)
	}
}

func TestDoTimeoutClassification(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()

	tr := New(srv.URL, nil, llmcore.ErrorHandling{}, 1) // 1ms timeout
	_, _, err := tr.Do(context.Background(), "/chat", []byte(`{}`), false)

	timeoutErr, ok := err.(*errs.ProviderTimeoutError)
	if !ok {
		t.Fatalf("got %v (%T), want *errs.ProviderTimeoutError", err, err)
	}
	if timeoutErr.Remediation != errs.RemediationTimeout {
		t.Fatalf("got non-streaming-setup remediation mismatch")
	}
}

func TestDoStreamingSetupTimeoutUsesDistinctRemediation(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()

	tr := New(srv.URL, nil, llmcore.ErrorHandling{}, 1)
	_, _, err := tr.Do(context.Background(), "/chat", []byte(`{}`), true)

	timeoutErr, ok := err.(*errs.ProviderTimeoutError)
	if !ok {
		t.Fatalf("got %v (%T), want *errs.ProviderTimeoutError", err, err)
	}
	if timeoutErr.Remediation != errs.RemediationStreamingSetup {
		t.Fatalf("got remediation %q, want streaming setup remediation", timeoutErr.Remediation)
	}
}

func TestEstimateTokensFourCharsPerToken(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{"a": strings.Repeat("x", 96)})
	got := EstimateTokens(payload)
	want := (len(payload) + 3) / 4
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestEstimateTokensEmpty(t *testing.T) {
	if got := EstimateTokens(nil); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}
