package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPProber issues GET requests against API endpoints and pages.
type HTTPProber struct {
	client  *http.Client
	baseURL string
	now     func() time.Time
}

func NewHTTPProber(client *http.Client, baseURL string) *HTTPProber {
	return &HTTPProber{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     utcNow,
	}
}

// Run probes t within timeout. Any status below 500 counts as reachable, so
// 401/403 from auth-protected endpoints are successes.
func (p *HTTPProber) Run(ctx context.Context, t Target, timeout time.Duration) CheckResult {

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.resolve(t.URL), nil)
	if err != nil {
		return failed(t, ReasonInvalidRequest, err, p.now())
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		// DNS err, network err, TLS err and context timeout
		return failed(t, classifyError(err), err, p.now())
	}
	defer resp.Body.Close()

	// page load time includes the body transfer
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return failed(t, classifyError(err), err, p.now())
	}
	latency := time.Since(start)

	result := CheckResult{
		Name:      t.Name,
		Target:    t.ID(),
		Succeeded: resp.StatusCode < http.StatusInternalServerError,
		LatencyMs: ms(latency),
		Status:    strconv.Itoa(resp.StatusCode),
		Critical:  t.Critical,
		Timestamp: p.now(),
	}
	if !result.Succeeded {
		result.Reason = ReasonServerError
		result.Error = fmt.Sprintf("server responded %d", resp.StatusCode)
	}
	return result
}

func (p *HTTPProber) resolve(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	return p.baseURL + target
}
