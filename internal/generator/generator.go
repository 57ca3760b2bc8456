package generator

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/idna"
)

// Generator produces the lazy sequence of candidate subdomain names for one
// scan: each wordlist label joined with the base domain. The sequence is
// finite and consumed exactly once; rerunning a scan builds a new Generator.
type Generator struct {
	base   string
	words  []string
	logger *logrus.Logger
}

// New builds a Generator for baseDomain. When wordlistPath is empty the
// built-in common-label list is used. Labels are deduplicated in order;
// blank lines and #-comments are skipped.
func New(baseDomain, wordlistPath string, logger *logrus.Logger) (*Generator, error) {
	if logger == nil {
		logger = logrus.New()
	}

	base, err := NormalizeDomain(baseDomain)
	if err != nil {
		return nil, err
	}

	var words []string
	if wordlistPath == "" {
		words = defaultWords()
		logger.Debugf("Using built-in wordlist with %d labels", len(words))
	} else {
		words, err = loadWordlist(wordlistPath)
		if err != nil {
			return nil, err
		}
		logger.Infof("Loaded wordlist %s with %d labels", wordlistPath, len(words))
	}

	return &Generator{
		base:   base,
		words:  words,
		logger: logger,
	}, nil
}

// Count returns the number of candidates the sequence will produce.
func (g *Generator) Count() int { return len(g.words) }

// Base returns the normalized base domain.
func (g *Generator) Base() string { return g.base }

// Candidates returns the lazy candidate sequence. The channel is closed when
// the wordlist is exhausted or ctx is cancelled.
func (g *Generator) Candidates(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for _, w := range g.words {
			select {
			case out <- w + "." + g.base:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// NormalizeDomain lowercases, trims, and IDNA-encodes a domain name.
func NormalizeDomain(domain string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimSuffix(d, ".")
	if d == "" {
		return "", fmt.Errorf("empty domain")
	}
	ascii, err := idna.Lookup.ToASCII(d)
	if err != nil {
		return "", fmt.Errorf("invalid domain %q: %w", domain, err)
	}
	return ascii, nil
}

func loadWordlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wordlist file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	const maxLine = 1024 * 1024
	buf := make([]byte, 64*1024)
	sc.Buffer(buf, maxLine)

	seen := make(map[string]struct{})
	var words []string
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan wordlist %s: %w", path, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("wordlist %s contains no usable labels", path)
	}
	return words, nil
}
