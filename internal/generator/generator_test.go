package generator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func collect(t *testing.T, g *Generator) []string {
	t.Helper()
	var out []string
	for c := range g.Candidates(context.Background()) {
		out = append(out, c)
	}
	return out
}

func TestDefaultWordlist(t *testing.T) {
	g, err := New("example.com", "", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.Count() == 0 {
		t.Fatal("expected built-in wordlist to be non-empty")
	}

	candidates := collect(t, g)
	if len(candidates) != g.Count() {
		t.Errorf("got %d candidates, Count() says %d", len(candidates), g.Count())
	}

	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if !strings.HasSuffix(c, ".example.com") {
			t.Errorf("candidate %q does not end in base domain", c)
		}
		if seen[c] {
			t.Errorf("duplicate candidate %q", c)
		}
		seen[c] = true
	}
	if !seen["www.example.com"] {
		t.Error("built-in list should produce www.example.com")
	}
}

func TestWordlistFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "words.txt")
	content := "www\n\n# comment line\nmail\n  \nMAIL\napi\nwww\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	g, err := New("example.com", path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := collect(t, g)
	want := []string{"www.example.com", "mail.example.com", "api.example.com"}
	if len(got) != len(want) {
		t.Fatalf("got %d candidates %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEmptyWordlistFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, []byte("# only comments\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New("example.com", path, nil); err == nil {
		t.Error("expected error for wordlist with no usable labels")
	}
}

func TestMissingWordlistFile(t *testing.T) {
	if _, err := New("example.com", "/nonexistent/words.txt", nil); err == nil {
		t.Error("expected error for missing wordlist file")
	}
}

func TestInvalidDomain(t *testing.T) {
	for _, d := range []string{"", "   ", "exa mple.com"} {
		if _, err := New(d, "", nil); err == nil {
			t.Errorf("expected error for domain %q", d)
		}
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Example.COM", "example.com"},
		{"  example.com.  ", "example.com"},
		{"bücher.de", "xn--bcher-kva.de"},
	}
	for _, tt := range tests {
		got, err := NormalizeDomain(tt.in)
		if err != nil {
			t.Errorf("NormalizeDomain(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCandidatesStopOnCancel(t *testing.T) {
	g, err := New("example.com", "", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := g.Candidates(ctx)
	<-ch
	cancel()

	// Channel must close shortly after cancellation.
	n := 0
	for range ch {
		n++
		if n > g.Count() {
			t.Fatal("channel did not close after cancel")
		}
	}
}
