package aggregator

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skywolf-loong/subhunt/pkg/models"
)

// Aggregator owns the result set for one scan. Workers record outcomes
// through it concurrently; nothing else holds a mutable reference to the
// results. Insertion order is the order of first successful probe
// completion, and a candidate appears at most once no matter how many
// methods succeed for it.
type Aggregator struct {
	mu        sync.Mutex
	target    string
	startedAt time.Time
	results   map[string]*models.ScanResult
	order     []string
	stats     models.ScanStats
	finalized bool
	logger    *logrus.Logger
}

// New builds an Aggregator for one scan of target.
func New(target string, logger *logrus.Logger) *Aggregator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Aggregator{
		target:    target,
		startedAt: time.Now(),
		results:   make(map[string]*models.ScanResult),
		logger:    logger,
	}
}

// RecordDNS records the DNS outcome for one candidate. A resolved outcome
// creates (or merges into) the candidate's ScanResult; failures only feed
// the statistics.
func (a *Aggregator) RecordDNS(name string, out models.DNSOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized {
		return
	}

	a.stats.Attempted++
	switch out.Outcome {
	case models.OutcomeResolved:
		a.stats.Resolved++
		r := a.resultLocked(name)
		r.DNS = &out
		a.logger.Infof("Found %s -> %v", name, out.Addresses)
	case models.OutcomeUnreachable:
		a.stats.Unreachable++
	case models.OutcomeTimedOut:
		a.stats.TimedOut++
	case models.OutcomeError:
		a.stats.Errored++
		a.logger.Debugf("DNS probe error for %s: %s", name, out.Err)
	}
}

// RecordHTTP merges the HTTP attempts for one candidate into its existing
// ScanResult, creating one if the candidate has no result yet (possible when
// the scan runs without the dns method). Attempts that got no response are
// still kept on the result so the formatter can show what was tried.
func (a *Aggregator) RecordHTTP(name string, attempts []models.HTTPAttempt) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalized || len(attempts) == 0 {
		return
	}

	alive := false
	for _, at := range attempts {
		if at.Alive() {
			alive = true
			break
		}
	}
	if !alive {
		// No scheme answered; the candidate stays recorded by its DNS
		// outcome alone.
		if r, ok := a.results[name]; ok {
			r.HTTP = append(r.HTTP, attempts...)
		}
		return
	}

	a.stats.HTTPAlive++
	r := a.resultLocked(name)
	r.HTTP = append(r.HTTP, attempts...)
}

// resultLocked returns the ScanResult for name, creating it on first use.
// Callers must hold a.mu.
func (a *Aggregator) resultLocked(name string) *models.ScanResult {
	if r, ok := a.results[name]; ok {
		return r
	}
	r := &models.ScanResult{
		Name:         name,
		DiscoveredAt: time.Now(),
	}
	a.results[name] = r
	a.order = append(a.order, name)
	return r
}

// Counts returns the number of candidates checked so far and the number of
// results recorded, for progress reporting.
func (a *Aggregator) Counts() (checked, found int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats.Attempted, len(a.order)
}

// Finalize seals the aggregator. Further Record calls are ignored.
func (a *Aggregator) Finalize() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finalized = true
}

// Snapshot hands off the finalized result set. It fails before Finalize; the
// returned set holds copies so later snapshots stay independent.
func (a *Aggregator) Snapshot() (*models.ResultSet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.finalized {
		return nil, fmt.Errorf("snapshot requested before scan completion")
	}

	set := &models.ResultSet{
		Target:     a.target,
		StartedAt:  a.startedAt,
		FinishedAt: time.Now(),
		Results:    make([]*models.ScanResult, 0, len(a.order)),
		Stats:      a.stats,
	}
	for _, name := range a.order {
		r := *a.results[name]
		r.HTTP = append([]models.HTTPAttempt(nil), r.HTTP...)
		if r.DNS != nil {
			dns := *r.DNS
			dns.Addresses = append([]string(nil), dns.Addresses...)
			r.DNS = &dns
		}
		set.Results = append(set.Results, &r)
	}
	return set, nil
}
