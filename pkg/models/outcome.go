package models

// Outcome classifies the result of a single probe against one candidate.
type Outcome string

const (
	// OutcomeResolved means the probe got a positive answer: DNS records for
	// a DNS probe, any HTTP response (2xx-5xx) for an HTTP probe.
	OutcomeResolved Outcome = "resolved"
	// OutcomeUnreachable is an authoritative negative: NXDOMAIN for DNS,
	// connection refused for HTTP.
	OutcomeUnreachable Outcome = "unreachable"
	// OutcomeTimedOut means the per-probe deadline elapsed before an answer.
	OutcomeTimedOut Outcome = "timedout"
	// OutcomeError covers every other failure (malformed response, TLS
	// handshake failure, resolver errors, redirect loops).
	OutcomeError Outcome = "error"
)

// DNSOutcome is the terminal result of resolving one candidate.
type DNSOutcome struct {
	Outcome   Outcome  `json:"outcome" yaml:"outcome"`
	Addresses []string `json:"addresses,omitempty" yaml:"addresses,omitempty"`
	Err       string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// HTTPAttempt is the result of one HTTP request against a candidate on a
// single scheme. A candidate probed over both http and https carries two
// attempts; neither short-circuits the other.
type HTTPAttempt struct {
	Scheme        string  `json:"scheme" yaml:"scheme"`
	Outcome       Outcome `json:"outcome" yaml:"outcome"`
	StatusCode    int     `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	ContentLength int64   `json:"content_length,omitempty" yaml:"content_length,omitempty"`
	Title         string  `json:"title,omitempty" yaml:"title,omitempty"`
	BodyHash      string  `json:"body_hash,omitempty" yaml:"body_hash,omitempty"`
	Err           string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// Alive reports whether the attempt produced an HTTP response at all.
func (a HTTPAttempt) Alive() bool {
	return a.Outcome == OutcomeResolved && a.StatusCode > 0
}
