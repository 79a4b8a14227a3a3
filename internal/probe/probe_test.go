package probe

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// HTTP tests

func TestSend_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"google":{"id":"google"}}`))
	}))
	defer srv.Close()

	result := NewRunner().Send(context.Background(), Request{URL: srv.URL})
	if result.Failed() {
		t.Fatalf("unexpected transport error: %s", result.Err)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", result.StatusCode)
	}
	if !result.IsJSON {
		t.Fatal("expected JSON body")
	}
	if _, ok := result.Object()["google"]; !ok {
		t.Errorf("expected google key in %v", result.JSON)
	}
	if result.Kind != KindHTTP {
		t.Errorf("expected kind %q, got %q", KindHTTP, result.Kind)
	}
}

func TestSend_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	result := NewRunner().Send(context.Background(), Request{URL: srv.URL})
	if result.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (err: %s)", result.StatusCode, result.Err)
	}
	if result.IsJSON || result.JSON != nil {
		t.Errorf("expected no parsed body, got %v", result.JSON)
	}
	if result.Text != "<html>ok</html>" {
		t.Errorf("unexpected text %q", result.Text)
	}
}

func TestSend_MalformedJSONKeepsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"broken":`))
	}))
	defer srv.Close()

	result := NewRunner().Send(context.Background(), Request{URL: srv.URL})
	if result.IsJSON {
		t.Error("expected IsJSON=false for malformed JSON")
	}
	if result.Text != `{"broken":` {
		t.Errorf("unexpected text %q", result.Text)
	}
}

func TestSend_MethodHeadersAndBody(t *testing.T) {
	var (
		gotMethod, gotCT, gotCustom string
		gotBody                     map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		gotCustom = r.Header.Get("X-Custom")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	result := NewRunner().Send(context.Background(), Request{
		Method:  http.MethodPut,
		URL:     srv.URL,
		Headers: map[string]string{"X-Custom": "yes"},
		Body:    map[string]string{"name": "Updated Property"},
	})

	if result.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (err: %s)", result.StatusCode, result.Err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("expected PUT, got %s", gotMethod)
	}
	if gotCT != "application/json" {
		t.Errorf("expected application/json, got %q", gotCT)
	}
	if gotCustom != "yes" {
		t.Errorf("expected custom header, got %q", gotCustom)
	}
	if gotBody["name"] != "Updated Property" {
		t.Errorf("unexpected body %v", gotBody)
	}
}

func TestSend_CallerContentTypeWins(t *testing.T) {
	var gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	NewRunner().Send(context.Background(), Request{
		Method:  http.MethodPost,
		URL:     srv.URL,
		Headers: map[string]string{"content-type": "application/vnd.pgrst.object+json"},
		Body:    map[string]int{"a": 1},
	})
	if gotCT != "application/vnd.pgrst.object+json" {
		t.Errorf("expected caller content type, got %q", gotCT)
	}
}

func TestSend_NoBodyNoContentType(t *testing.T) {
	var gotCT string
	var gotLen int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotLen = len(b)
	}))
	defer srv.Close()

	NewRunner().Send(context.Background(), Request{Method: http.MethodDelete, URL: srv.URL})
	if gotCT != "" || gotLen != 0 {
		t.Errorf("expected empty request, got content-type=%q len=%d", gotCT, gotLen)
	}
}

func TestSend_UnencodableBody(t *testing.T) {
	result := NewRunner().Send(context.Background(), Request{
		Method: http.MethodPost,
		URL:    "http://127.0.0.1:1",
		Body:   map[string]any{"ch": make(chan int)},
	})
	if !result.Failed() {
		t.Fatal("expected transport error for unencodable body")
	}
	if result.HasStatus() {
		t.Errorf("expected no status, got %d", result.StatusCode)
	}
}

func TestSend_Unreachable(t *testing.T) {
	result := NewRunner().Send(context.Background(), Request{URL: "http://127.0.0.1:1"})
	if !result.Failed() {
		t.Fatal("expected transport error for unreachable target")
	}
	if result.StatusCode != 0 || result.HasStatus() {
		t.Errorf("expected absent status, got %d", result.StatusCode)
	}
}

func TestSend_InvalidURL(t *testing.T) {
	result := NewRunner().Send(context.Background(), Request{URL: "://nope"})
	if !result.Failed() {
		t.Fatal("expected error for invalid URL")
	}
}

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	result := NewRunner().Send(context.Background(), Request{URL: srv.URL, Timeout: 50 * time.Millisecond})
	if !result.Failed() {
		t.Fatalf("expected timeout error, got status %d", result.StatusCode)
	}
}

func TestSend_BodyReadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"users":[`))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	result := NewRunner().Send(context.Background(), Request{URL: srv.URL, Timeout: 200 * time.Millisecond})
	if !result.Failed() {
		t.Fatalf("expected read error, got status %d text %q", result.StatusCode, result.Text)
	}
	if result.StatusCode != 0 {
		t.Errorf("expected no status on a stalled body, got %d", result.StatusCode)
	}
	if result.HasStatus() || result.IsJSON {
		t.Errorf("expected no usable response, got %+v", result)
	}
}

func TestSend_NoRedirect(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("redirect target"))
	}))
	defer target.Close()

	location := target.URL + "/o/oauth2/v2/auth?redirect_uri=x"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, location, http.StatusFound)
	}))
	defer srv.Close()

	runner := NewRunner()

	result := runner.Send(context.Background(), Request{Method: http.MethodPost, URL: srv.URL, NoRedirect: true})
	if result.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d (err: %s)", result.StatusCode, result.Err)
	}
	if result.Location() != location {
		t.Errorf("expected Location %q, got %q", location, result.Location())
	}

	followed := runner.Send(context.Background(), Request{URL: srv.URL})
	if followed.StatusCode != http.StatusOK || followed.Text != "redirect target" {
		t.Errorf("expected followed redirect, got %d %q", followed.StatusCode, followed.Text)
	}
}

func TestRunner_DefaultTimeout(t *testing.T) {
	if got := NewRunner().Timeout(); got != DefaultTimeout {
		t.Errorf("expected %s, got %s", DefaultTimeout, got)
	}
	if got := NewRunner(WithTimeout(0)).Timeout(); got != DefaultTimeout {
		t.Errorf("zero timeout must keep default, got %s", got)
	}
	if got := NewRunner(WithTimeout(time.Second)).Timeout(); got != time.Second {
		t.Errorf("expected 1s, got %s", got)
	}
}

func TestRunner_RateLimitCancelled(t *testing.T) {
	runner := NewRunner(WithRateLimit(0.001))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	// The first request consumes the single burst token.
	if r := runner.Get(context.Background(), srv.URL, nil); r.Failed() {
		t.Fatalf("first request failed: %s", r.Err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if r := runner.Get(ctx, srv.URL, nil); !r.Failed() {
		t.Error("expected rate limit wait to fail on cancelled context")
	}
}

func TestResultHelpers(t *testing.T) {
	r := Result{StatusCode: 404}
	if !r.StatusIn(401, 403, 404) {
		t.Error("expected 404 to match")
	}
	if r.StatusIn(200) {
		t.Error("did not expect 200 to match")
	}
	failed := Result{Err: "dial tcp: refused"}
	if failed.StatusIn(0) {
		t.Error("transport failures match no status")
	}
	if failed.Location() != "" {
		t.Error("expected empty location without headers")
	}
}

// TCP tests

func TestTCP_Up(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start listener: %v", err)
	}
	defer ln.Close()

	result := TCP(context.Background(), ln.Addr().String(), time.Second)
	if result.Failed() {
		t.Errorf("expected connect, got error: %s", result.Err)
	}
	if result.Kind != KindTCP {
		t.Errorf("expected kind %q, got %q", KindTCP, result.Kind)
	}
}

func TestTCP_Down_Unreachable(t *testing.T) {
	result := TCP(context.Background(), "127.0.0.1:1", time.Second)
	if !result.Failed() {
		t.Error("expected error for unreachable target")
	}
}

// DNS tests

func TestDNS_Localhost(t *testing.T) {
	result := DNS(context.Background(), "localhost", time.Second)
	if result.Failed() {
		t.Skipf("resolver unavailable: %s", result.Err)
	}
	if len(result.Addrs) == 0 {
		t.Error("expected at least one address for localhost")
	}
}

func TestDNS_Invalid(t *testing.T) {
	result := DNS(context.Background(), "does-not-exist.invalid", time.Second)
	if !result.Failed() {
		t.Error("expected error for .invalid host")
	}
}
