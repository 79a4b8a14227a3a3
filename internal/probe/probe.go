package probe

import (
	"net/http"
	"time"
)

// Kind identifies what kind of probe produced a Result.
type Kind string

const (
	KindHTTP Kind = "http"
	KindTCP  Kind = "tcp"
	KindDNS  Kind = "dns"
)

// DefaultTimeout bounds every probe whose caller did not set a timeout.
const DefaultTimeout = 10 * time.Second

// Request describes a single HTTP probe.
type Request struct {
	Method  string // GET when empty
	URL     string
	Headers map[string]string
	Body    any // JSON-encoded when non-nil
	Timeout time.Duration

	// NoRedirect returns 3xx responses as-is instead of following them.
	NoRedirect bool
}

// Result is the normalized outcome of one probe. When Err is set the probe
// never got a response and StatusCode is 0.
type Result struct {
	Kind       Kind
	Target     string
	StatusCode int
	Header     http.Header
	JSON       any // decoded body; nil when IsJSON is false
	IsJSON     bool
	Text       string
	Addrs      []string // DNS probes only
	Elapsed    time.Duration
	Err        string
	Timestamp  time.Time
}

// Failed reports whether the probe hit a transport-level error.
func (r Result) Failed() bool {
	return r.Err != ""
}

// HasStatus reports whether a status code was received.
func (r Result) HasStatus() bool {
	return r.Err == "" && r.StatusCode != 0
}

// StatusIn reports whether the received status is one of codes.
func (r Result) StatusIn(codes ...int) bool {
	if !r.HasStatus() {
		return false
	}
	for _, c := range codes {
		if r.StatusCode == c {
			return true
		}
	}
	return false
}

// Location returns the Location header of a redirect response.
func (r Result) Location() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Location")
}

// Object returns the JSON body as an object, or nil when it is not one.
func (r Result) Object() map[string]any {
	m, _ := r.JSON.(map[string]any)
	return m
}
