package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/skywolf-loong/subhunt/internal/aggregator"
	"github.com/skywolf-loong/subhunt/pkg/models"
	"github.com/skywolf-loong/subhunt/pkg/utils"
)

// DNSProber resolves one candidate within its own timeout.
type DNSProber interface {
	Check(ctx context.Context, name string) models.DNSOutcome
}

// HTTPProber issues the liveness requests for one resolved candidate.
type HTTPProber interface {
	Check(ctx context.Context, host string) []models.HTTPAttempt
}

// Progress is handed to the progress callback as candidates complete.
type Progress struct {
	Checked int
	Found   int
	Elapsed time.Duration
}

// Scheduler is the concurrency core: it drains the candidate sequence
// through a fixed pool of workers, runs the configured probe chain per
// candidate, and feeds outcomes to the aggregator. A failure for one
// candidate never affects another; the only shared state is the aggregator.
type Scheduler struct {
	cfg        models.ScanConfig
	dns        DNSProber
	http       HTTPProber
	agg        *aggregator.Aggregator
	limiter    *rate.Limiter
	metrics    *utils.MetricsCollector
	logger     *logrus.Logger
	onProgress func(Progress)
	started    time.Time
	completed  atomic.Int64
}

// New wires a scheduler. dns must be non-nil: HTTP probing is gated on DNS
// success even when the dns method is the only one disabled, since an
// unresolvable name cannot serve HTTP. http may be nil when the http method
// is off.
func New(cfg models.ScanConfig, dns DNSProber, http HTTPProber, agg *aggregator.Aggregator, metrics *utils.MetricsCollector, logger *logrus.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}
	if dns == nil {
		return nil, fmt.Errorf("dns prober is required")
	}
	if agg == nil {
		return nil, fmt.Errorf("aggregator is required")
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Concurrency)
	}

	s := &Scheduler{
		cfg:     cfg,
		dns:     dns,
		http:    http,
		agg:     agg,
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
	}
	s.registerMetrics()
	return s, nil
}

// OnProgress installs a callback fired every 100 completed candidates.
func (s *Scheduler) OnProgress(fn func(Progress)) { s.onProgress = fn }

// Run consumes the candidate sequence to exhaustion and returns the
// finalized result set. The ctx (and the optional scan deadline) only stop
// the dispatch of new candidates; in-flight candidates finish or hit their
// own per-probe timeouts.
func (s *Scheduler) Run(ctx context.Context, candidates <-chan string) (*models.ResultSet, error) {
	s.started = time.Now()

	dispatchCtx := ctx
	if s.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		dispatchCtx, cancel = context.WithTimeout(ctx, s.cfg.Deadline)
		defer cancel()
	}
	// Probes must outlive dispatch cancellation; each carries its own
	// timeout, so nothing here can hang past ProbeTimeout.
	probeCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(dispatchCtx, probeCtx, candidates)
		}()
	}
	wg.Wait()

	s.agg.Finalize()
	set, err := s.agg.Snapshot()
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Scan completed: %d candidates checked, %d found in %s",
		set.Stats.Attempted, len(set.Results), set.Duration().Round(time.Millisecond))
	return set, nil
}

// worker claims candidates one at a time; the channel receive is the single
// synchronization point, so no candidate is processed twice or skipped.
func (s *Scheduler) worker(dispatchCtx, probeCtx context.Context, candidates <-chan string) {
	for {
		if dispatchCtx.Err() != nil {
			return
		}
		select {
		case <-dispatchCtx.Done():
			return
		case name, ok := <-candidates:
			if !ok {
				return
			}
			if s.limiter != nil {
				if err := s.limiter.Wait(dispatchCtx); err != nil {
					return
				}
			}
			s.process(probeCtx, name)
		}
	}
}

// process runs the full probe chain for one candidate to completion.
func (s *Scheduler) process(ctx context.Context, name string) {
	s.gauge(1)
	defer s.gauge(-1)
	defer s.reportProgress()

	start := time.Now()
	dnsOut := s.checkDNS(ctx, name)
	s.observe(models.MethodDNS, string(dnsOut.Outcome), time.Since(start))
	s.agg.RecordDNS(name, dnsOut)

	if dnsOut.Outcome != models.OutcomeResolved {
		return
	}
	if s.http == nil || !s.cfg.HasMethod(models.MethodHTTP) {
		return
	}

	start = time.Now()
	attempts := s.checkHTTP(ctx, name)
	elapsed := time.Since(start)
	for _, at := range attempts {
		s.observe(models.MethodHTTP, string(at.Outcome), elapsed)
	}
	s.agg.RecordHTTP(name, attempts)
}

// checkDNS wraps the probe with the configured retry count. A retry fires
// only on timeouts and unexpected errors; authoritative negatives are
// terminal. No backoff: per-probe timeouts are short.
func (s *Scheduler) checkDNS(ctx context.Context, name string) models.DNSOutcome {
	out := s.dns.Check(ctx, name)
	for i := 0; i < s.cfg.Retries && retryable(out.Outcome); i++ {
		s.logger.Debugf("Retrying DNS probe for %s (attempt %d/%d)", name, i+2, s.cfg.Retries+1)
		out = s.dns.Check(ctx, name)
	}
	return out
}

func (s *Scheduler) checkHTTP(ctx context.Context, name string) []models.HTTPAttempt {
	attempts := s.http.Check(ctx, name)
	for i := 0; i < s.cfg.Retries && allRetryable(attempts); i++ {
		s.logger.Debugf("Retrying HTTP probe for %s (attempt %d/%d)", name, i+2, s.cfg.Retries+1)
		attempts = s.http.Check(ctx, name)
	}
	return attempts
}

func retryable(o models.Outcome) bool {
	return o == models.OutcomeTimedOut || o == models.OutcomeError
}

func allRetryable(attempts []models.HTTPAttempt) bool {
	if len(attempts) == 0 {
		return false
	}
	for _, at := range attempts {
		if !retryable(at.Outcome) {
			return false
		}
	}
	return true
}

func (s *Scheduler) reportProgress() {
	n := s.completed.Add(1)
	if s.onProgress == nil || n%100 != 0 {
		return
	}
	_, found := s.agg.Counts()
	s.onProgress(Progress{
		Checked: int(n),
		Found:   found,
		Elapsed: time.Since(s.started),
	})
}

const (
	metricProbesTotal   = "subhunt_probes_total"
	metricInflight      = "subhunt_inflight_candidates"
	metricProbeDuration = "subhunt_probe_duration_seconds"
)

func (s *Scheduler) registerMetrics() {
	if s.metrics == nil {
		return
	}
	_ = s.metrics.RegisterCounter(metricProbesTotal, "Probes completed, by method and outcome.", "method", "outcome")
	_ = s.metrics.RegisterGauge(metricInflight, "Candidates currently being probed.")
	_ = s.metrics.RegisterHistogram(metricProbeDuration, "Probe duration in seconds, by method.", nil, "method")
}

func (s *Scheduler) observe(method, outcome string, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncCounter(metricProbesTotal, 1, prometheus.Labels{"method": method, "outcome": outcome})
	s.metrics.ObserveHistogram(metricProbeDuration, elapsed.Seconds(), prometheus.Labels{"method": method})
}

func (s *Scheduler) gauge(delta float64) {
	if s.metrics == nil {
		return
	}
	s.metrics.AddGauge(metricInflight, delta, prometheus.Labels{})
}
