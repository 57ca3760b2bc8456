package httpprobe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/skywolf-loong/subhunt/pkg/models"
)

const (
	// maxBodyRead bounds how much of a response is read for the title and
	// body hash, so a probe never downloads an unbounded page.
	maxBodyRead = 64 * 1024

	userAgent = "subhunt/1.0"
)

var (
	reTitle          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	errRedirectLimit = errors.New("redirect limit exceeded")
)

// Probe issues one liveness request per configured scheme against a
// candidate known to resolve. Schemes are probed independently and every
// attempt is retained, since a host may serve one scheme but not the other.
type Probe struct {
	client  *http.Client
	timeout time.Duration
	schemes []string
	logger  *logrus.Logger
}

// New builds an HTTP probe. schemes defaults to both http and https;
// redirects are followed up to maxRedirects, then reported as an error.
func New(timeout time.Duration, maxRedirects int, schemes []string, insecure bool, logger *logrus.Logger) *Probe {
	if logger == nil {
		logger = logrus.New()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if maxRedirects <= 0 {
		maxRedirects = 3
	}
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: insecure,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		TLSHandshakeTimeout: timeout,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errRedirectLimit
			}
			return nil
		},
	}

	return &Probe{
		client:  client,
		timeout: timeout,
		schemes: schemes,
		logger:  logger,
	}
}

// Check probes host on every configured scheme. Attempts come back in
// scheme-configuration order regardless of which finished first.
func (p *Probe) Check(ctx context.Context, host string) []models.HTTPAttempt {
	attempts := make([]models.HTTPAttempt, len(p.schemes))
	var g errgroup.Group

	for i, scheme := range p.schemes {
		i, scheme := i, scheme
		g.Go(func() error {
			attempts[i] = p.checkScheme(ctx, scheme, host)
			return nil
		})
	}
	_ = g.Wait()

	return attempts
}

func (p *Probe) checkScheme(ctx context.Context, scheme, host string) models.HTTPAttempt {
	attempt := models.HTTPAttempt{Scheme: scheme}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	url := fmt.Sprintf("%s://%s/", scheme, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		attempt.Outcome = models.OutcomeError
		attempt.Err = err.Error()
		return attempt
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		attempt.Outcome = classifyError(err)
		attempt.Err = err.Error()
		p.logger.Debugf("HTTP probe failed for %s: %v", url, err)
		return attempt
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
	if err != nil && len(body) == 0 {
		attempt.Outcome = models.OutcomeError
		attempt.Err = fmt.Sprintf("reading response body: %v", err)
		return attempt
	}

	attempt.Outcome = models.OutcomeResolved
	attempt.StatusCode = resp.StatusCode
	attempt.ContentLength = resp.ContentLength
	if attempt.ContentLength < 0 {
		attempt.ContentLength = int64(len(body))
	}
	if len(body) > 0 {
		attempt.BodyHash = fmt.Sprintf("%x", xxh3.Hash(body))
	}
	if isHTML(resp.Header.Get("Content-Type")) {
		attempt.Title = extractTitle(body)
	}
	return attempt
}

func classifyError(err error) models.Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.OutcomeTimedOut
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return models.OutcomeTimedOut
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return models.OutcomeUnreachable
	}
	return models.OutcomeError
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

func extractTitle(body []byte) string {
	m := reTitle.FindSubmatch(body)
	if m == nil {
		return ""
	}
	title := strings.Join(strings.Fields(string(m[1])), " ")
	const maxTitle = 200
	if len(title) > maxTitle {
		title = title[:maxTitle]
	}
	return title
}
