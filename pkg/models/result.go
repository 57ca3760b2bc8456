package models

import "time"

// ScanResult is the aggregate record for one confirmed candidate. It is
// created on the first successful probe and grows as further methods
// complete; a candidate whose every probe failed never becomes a ScanResult.
type ScanResult struct {
	Name         string        `json:"name" yaml:"name"`
	DNS          *DNSOutcome   `json:"dns,omitempty" yaml:"dns,omitempty"`
	HTTP         []HTTPAttempt `json:"http,omitempty" yaml:"http,omitempty"`
	DiscoveredAt time.Time     `json:"discovered_at" yaml:"discovered_at"`
}

// Addresses returns the resolved addresses, or nil when DNS never succeeded.
func (r *ScanResult) Addresses() []string {
	if r.DNS == nil {
		return nil
	}
	return r.DNS.Addresses
}

// FirstAlive returns the first HTTP attempt that produced a response, in the
// order the attempts were recorded.
func (r *ScanResult) FirstAlive() *HTTPAttempt {
	for i := range r.HTTP {
		if r.HTTP[i].Alive() {
			return &r.HTTP[i]
		}
	}
	return nil
}

// ScanStats are the per-scan tallies. Attempted counts every candidate the
// scheduler dispatched; the outcome counters classify each candidate by its
// DNS result. HTTPAlive counts candidates with at least one HTTP response.
type ScanStats struct {
	Attempted   int `json:"attempted" yaml:"attempted"`
	Resolved    int `json:"resolved" yaml:"resolved"`
	Unreachable int `json:"unreachable" yaml:"unreachable"`
	TimedOut    int `json:"timedout" yaml:"timedout"`
	Errored     int `json:"errored" yaml:"errored"`
	HTTPAlive   int `json:"http_alive" yaml:"http_alive"`
}

// ResultSet is the finalized, deduplicated outcome of one scan. Results are
// ordered by first successful probe completion, not by generation order.
// Once handed out by the aggregator it is read-only.
type ResultSet struct {
	Target     string        `json:"target" yaml:"target"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at" yaml:"finished_at"`
	Results    []*ScanResult `json:"results" yaml:"results"`
	Stats      ScanStats     `json:"stats" yaml:"stats"`
}

// Names returns the discovered subdomain names in insertion order.
func (s *ResultSet) Names() []string {
	names := make([]string, 0, len(s.Results))
	for _, r := range s.Results {
		names = append(names, r.Name)
	}
	return names
}

// Duration is the wall-clock time the scan took.
func (s *ResultSet) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
