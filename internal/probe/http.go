package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const maxBodyRead = 4 << 20

// Runner issues HTTP probes. It is owned by the caller and safe for
// concurrent use.
type Runner struct {
	client    *http.Client
	timeout   time.Duration
	limiter   *rate.Limiter
	userAgent string
}

type Option func(*Runner)

// WithTimeout sets the timeout used when a Request does not carry one.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRateLimit caps the runner at perSecond probes per second. Zero or
// negative disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(r *Runner) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithClient replaces the underlying HTTP client. Its CheckRedirect is
// overridden per request when NoRedirect is set.
func WithClient(c *http.Client) Option {
	return func(r *Runner) {
		if c != nil {
			r.client = c
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(r *Runner) { r.userAgent = ua }
}

// NewRunner returns a Runner with its own transport.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   DefaultTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: DefaultTimeout,
				MaxIdleConnsPerHost: 4,
			},
		},
		timeout:   DefaultTimeout,
		userAgent: "propcheck",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Timeout returns the runner's default probe timeout.
func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

// Get is shorthand for a GET Send.
func (r *Runner) Get(ctx context.Context, url string, headers map[string]string) Result {
	return r.Send(ctx, Request{Method: http.MethodGet, URL: url, Headers: headers})
}

// Send performs exactly one HTTP request and never returns an error: transport
// failures are reported through Result.Err.
func (r *Runner) Send(ctx context.Context, req Request) Result {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}

	result := Result{
		Kind:      KindHTTP,
		Target:    req.URL,
		Timestamp: time.Now(),
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			result.Err = fmt.Sprintf("rate limit wait: %v", err)
			return result
		}
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			result.Err = fmt.Sprintf("encode body: %v", err)
			log.Warnf("probe: %s %s not sent: %s", method, req.URL, result.Err)
			return result
		}
		body = bytes.NewReader(b)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		result.Err = fmt.Sprintf("invalid request: %v", err)
		return result
	}
	httpReq.Header.Set("User-Agent", r.userAgent)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	client := r.client
	if req.NoRedirect {
		c := *r.client
		c.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		client = &c
	}

	log.Debugf("probe: sending %s %s", method, req.URL)

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		result.Elapsed = time.Since(start)
		result.Err = err.Error()
		log.Debugf("probe: %s %s failed: %s", method, req.URL, err)
		return result
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
	result.Elapsed = time.Since(start)
	if err != nil {
		// Partial bodies count as transport failures.
		result.Err = fmt.Sprintf("read body: %v", err)
		log.Debugf("probe: %s %s failed after status=%d: %s", method, req.URL, resp.StatusCode, err)
		return result
	}
	result.StatusCode = resp.StatusCode
	result.Header = resp.Header
	result.Text = string(raw)

	if looksLikeJSON(resp.Header.Get("Content-Type"), raw) {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			result.JSON = v
			result.IsJSON = true
		}
	}

	log.Debugf("probe: %s %s status=%d elapsed=%s", method, req.URL, resp.StatusCode, result.Elapsed)
	return result
}

func looksLikeJSON(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "json") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}
