// Package transport implements the HTTP transport and error classifier
// (C5): issuing requests, enforcing timeout, classifying failures, and the
// mandatory 4-chars-per-token estimation fallback.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/roelfdiedericks/goclaw/internal/llmcore"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/errs"
	"github.com/roelfdiedericks/goclaw/internal/llmcore/jsonpath"
	. "github.com/roelfdiedericks/goclaw/internal/logging"
)

// Transport issues requests against one resolved provider configuration.
type Transport struct {
	Client       *http.Client
	BaseURL      string
	Headers      map[string]string
	ErrorHandling llmcore.ErrorHandling
	TimeoutMillis int
}

// New constructs a Transport with a per-request-bounded http.Client. The
// client itself carries no timeout (a zero Client.Timeout): cancellation is
// driven entirely by the context deadline callers attach per request, so a
// long-lived Transport can serve requests with different resolved timeouts.
func New(baseURL string, headers map[string]string, errorHandling llmcore.ErrorHandling, timeoutMillis int) *Transport {
	return &Transport{
		Client:        &http.Client{},
		BaseURL:       baseURL,
		Headers:       headers,
		ErrorHandling: errorHandling,
		TimeoutMillis: timeoutMillis,
	}
}

// Do issues one JSON request to baseUrl+path, classifying non-2xx responses
// and transport failures per SPEC_FULL.md §4.5. streamingSetup distinguishes
// the remediation text used when the timeout occurs before any bytes of a
// streaming response arrive.
//
// The returned cancel func bounds the request's context deadline; the
// caller owns it and must call it once done with resp.Body — immediately
// after reading a non-streaming body, or after the stream is fully drained
// — so the timeout timer is released promptly rather than lingering until
// the deadline fires on its own.
func (t *Transport) Do(ctx context.Context, path string, body []byte, streamingSetup bool) (resp *http.Response, cancel context.CancelFunc, err error) {
	ctx, cancel = context.WithTimeout(ctx, time.Duration(t.TimeoutMillis)*time.Millisecond)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, nil, &errs.MalformedResponseError{Cause: err}
	}
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	L_debug("llmcore: issuing provider request", "path", path, "timeoutMs", t.TimeoutMillis)

	resp, err = t.Client.Do(req)
	if err != nil {
		cancel()
		if classifyTimeout(err) {
			remediation := errs.RemediationTimeout
			if streamingSetup {
				remediation = errs.RemediationStreamingSetup
			}
			return nil, nil, &errs.ProviderTimeoutError{Remediation: remediation, Cause: err}
		}
		return nil, nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		defer cancel()
		data, _ := io.ReadAll(resp.Body)
		L_warn("llmcore: provider returned non-2xx response", "path", path, "status", resp.StatusCode)
		return nil, nil, t.classifyHTTPError(resp.StatusCode, http.StatusText(resp.StatusCode), data)
	}

	return resp, cancel, nil
}

// classifyTimeout implements SPEC_FULL.md §4.5's timeout classifier:
// structured Go error values (context deadline, net.Error.Timeout) are
// checked first; the substring list is the fallback, matched against the
// error's message text, per the design note in SPEC_FULL.md §9. Server
// messages extracted from non-2xx response bodies are not passed through
// this classifier.
func classifyTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return isTimeoutMessage(err.Error())
}

// isTimeoutMessage is the substring fallback classifier, grounded on
// the donor's errors.go IsTimeoutMessage.
func isTimeoutMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, needle := range []string{"timeout", "timed out", "deadline exceeded", "etimedout", "esockettimedout"} {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

func (t *Transport) classifyHTTPError(status int, statusText string, body []byte) error {
	message := extractErrorMessage(t.ErrorHandling.ErrorMessagePath, body)
	base := errs.ProviderHTTPError{Status: status, StatusText: statusText, ServerMessage: message}

	if containsStatus(t.ErrorHandling.AuthErrorStatus, status) {
		return &errs.ProviderAuthError{ProviderHTTPError: base}
	}
	if containsStatus(t.ErrorHandling.RateLimitStatus, status) || containsStatus(t.ErrorHandling.QuotaErrorStatus, status) {
		return &errs.ProviderRateLimitedError{ProviderHTTPError: base}
	}
	return &base
}

func containsStatus(statuses []int, status int) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func extractErrorMessage(path string, body []byte) string {
	if path == "" || len(body) == 0 {
		return ""
	}
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return ""
	}
	return jsonpath.ResolveString(path, root)
}

// EstimateTokens implements the mandatory fallback estimator of
// SPEC_FULL.md §4.5: ceil(len(serialized) / 4), applied to the same JSON
// serialization used to build the wire request body.
func EstimateTokens(serializedRequest []byte) int {
	n := len(serializedRequest)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// FormatTokenCount formats a token count as a decimal string. Nothing in
// this core calls it.
func FormatTokenCount(n int) string {
	return strconv.Itoa(n)
}
