package httpprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skywolf-loong/subhunt/pkg/models"
)

func hostOf(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestCheckAlive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>  Welcome\n  Page </title></head><body>hi</body></html>"))
	}))
	defer srv.Close()

	p := New(2*time.Second, 3, []string{"http"}, true, nil)
	attempts := p.Check(context.Background(), hostOf(t, srv))

	if len(attempts) != 1 {
		t.Fatalf("got %d attempts, want 1", len(attempts))
	}
	at := attempts[0]
	if at.Outcome != models.OutcomeResolved || at.StatusCode != 200 {
		t.Fatalf("attempt = %+v, want resolved 200", at)
	}
	if at.Title != "Welcome Page" {
		t.Errorf("title = %q, want whitespace-collapsed %q", at.Title, "Welcome Page")
	}
	if at.BodyHash == "" {
		t.Error("expected a body hash for a non-empty response")
	}
	if at.ContentLength <= 0 {
		t.Errorf("content length = %d, want positive", at.ContentLength)
	}
}

func TestCheckErrorStatusIsStillResolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(2*time.Second, 3, []string{"http"}, true, nil)
	attempts := p.Check(context.Background(), hostOf(t, srv))

	if attempts[0].Outcome != models.OutcomeResolved || attempts[0].StatusCode != 500 {
		t.Errorf("a 5xx is still a response: %+v", attempts[0])
	}
}

func TestCheckConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	host := hostOf(t, srv)
	srv.Close()

	p := New(2*time.Second, 3, []string{"http"}, true, nil)
	attempts := p.Check(context.Background(), host)

	if attempts[0].Outcome != models.OutcomeUnreachable {
		t.Errorf("outcome = %s (%s), want unreachable", attempts[0].Outcome, attempts[0].Err)
	}
}

func TestCheckTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	p := New(50*time.Millisecond, 3, []string{"http"}, true, nil)

	start := time.Now()
	attempts := p.Check(context.Background(), hostOf(t, srv))
	elapsed := time.Since(start)

	if attempts[0].Outcome != models.OutcomeTimedOut {
		t.Errorf("outcome = %s (%s), want timedout", attempts[0].Outcome, attempts[0].Err)
	}
	if elapsed > time.Second {
		t.Errorf("probe blocked for %s past its 50ms timeout", elapsed)
	}
}

func TestCheckRedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL, http.StatusFound)
	}))
	defer srv.Close()

	p := New(2*time.Second, 3, []string{"http"}, true, nil)
	attempts := p.Check(context.Background(), hostOf(t, srv))

	if attempts[0].Outcome != models.OutcomeError {
		t.Errorf("outcome = %s, want error after exceeding redirect limit", attempts[0].Outcome)
	}
}

func TestCheckBothSchemesIndependently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// The test server only speaks plain HTTP, so the https attempt fails
	// while the http attempt succeeds; both must be reported.
	p := New(time.Second, 3, []string{"http", "https"}, true, nil)
	attempts := p.Check(context.Background(), hostOf(t, srv))

	if len(attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(attempts))
	}
	if attempts[0].Scheme != "http" || attempts[1].Scheme != "https" {
		t.Errorf("attempts out of scheme order: %s, %s", attempts[0].Scheme, attempts[1].Scheme)
	}
	if attempts[0].Outcome != models.OutcomeResolved {
		t.Errorf("http attempt = %+v, want resolved", attempts[0])
	}
	if attempts[1].Outcome == models.OutcomeResolved {
		t.Error("https attempt against a plain HTTP server must not resolve")
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain", "<title>Hello</title>", "Hello"},
		{"attributes", `<TITLE class="x">Mixed Case</TITLE>`, "Mixed Case"},
		{"multiline", "<title>\n  Two\n  Lines\n</title>", "Two Lines"},
		{"missing", "<html><body>no title</body></html>", ""},
		{"truncated", "<title>" + strings.Repeat("a", 400) + "</title>", strings.Repeat("a", 200)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTitle([]byte(tt.body)); got != tt.want {
				t.Errorf("extractTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsHTML(t *testing.T) {
	if !isHTML("text/html; charset=utf-8") {
		t.Error("text/html should be HTML")
	}
	if isHTML("application/json") {
		t.Error("application/json should not be HTML")
	}
}
