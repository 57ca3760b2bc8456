package aggregator

import (
	"fmt"
	"sync"
	"testing"

	"github.com/skywolf-loong/subhunt/pkg/models"
)

func resolved(addrs ...string) models.DNSOutcome {
	return models.DNSOutcome{Outcome: models.OutcomeResolved, Addresses: addrs}
}

func TestRecordAndSnapshot(t *testing.T) {
	a := New("example.com", nil)

	a.RecordDNS("www.example.com", resolved("1.2.3.4"))
	a.RecordDNS("mail.example.com", resolved("1.2.3.5"))
	a.RecordDNS("gone.example.com", models.DNSOutcome{Outcome: models.OutcomeUnreachable})
	a.RecordDNS("slow.example.com", models.DNSOutcome{Outcome: models.OutcomeTimedOut})
	a.RecordDNS("bad.example.com", models.DNSOutcome{Outcome: models.OutcomeError, Err: "boom"})

	a.Finalize()
	set, err := a.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if len(set.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(set.Results))
	}
	if set.Results[0].Name != "www.example.com" || set.Results[1].Name != "mail.example.com" {
		t.Errorf("unexpected insertion order: %v", set.Names())
	}

	stats := set.Stats
	if stats.Attempted != 5 || stats.Resolved != 2 || stats.Unreachable != 1 ||
		stats.TimedOut != 1 || stats.Errored != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestHTTPMergesIntoExistingResult(t *testing.T) {
	a := New("example.com", nil)

	a.RecordDNS("www.example.com", resolved("1.2.3.4"))
	a.RecordHTTP("www.example.com", []models.HTTPAttempt{
		{Scheme: "http", Outcome: models.OutcomeResolved, StatusCode: 200, Title: "Welcome"},
		{Scheme: "https", Outcome: models.OutcomeUnreachable},
	})

	a.Finalize()
	set, err := a.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if len(set.Results) != 1 {
		t.Fatalf("DNS and HTTP outcomes must merge into one result, got %d", len(set.Results))
	}
	r := set.Results[0]
	if r.DNS == nil || len(r.HTTP) != 2 {
		t.Fatalf("merged result incomplete: dns=%v http=%d", r.DNS, len(r.HTTP))
	}
	if at := r.FirstAlive(); at == nil || at.StatusCode != 200 {
		t.Errorf("FirstAlive = %v, want status 200", at)
	}
	if set.Stats.HTTPAlive != 1 {
		t.Errorf("HTTPAlive = %d, want 1", set.Stats.HTTPAlive)
	}
}

func TestDeadHTTPDoesNotCreateResult(t *testing.T) {
	a := New("example.com", nil)

	// HTTP attempts with no live response must not create a result for a
	// candidate that has none yet.
	a.RecordHTTP("ghost.example.com", []models.HTTPAttempt{
		{Scheme: "http", Outcome: models.OutcomeUnreachable},
	})

	// But a candidate with a DNS result keeps its failed attempts attached.
	a.RecordDNS("mail.example.com", resolved("1.2.3.5"))
	a.RecordHTTP("mail.example.com", []models.HTTPAttempt{
		{Scheme: "http", Outcome: models.OutcomeUnreachable},
	})

	a.Finalize()
	set, err := a.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if len(set.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(set.Results))
	}
	r := set.Results[0]
	if r.Name != "mail.example.com" {
		t.Errorf("unexpected result %s", r.Name)
	}
	if r.FirstAlive() != nil {
		t.Error("mail must not report a live HTTP attempt")
	}
	if len(r.HTTP) != 1 {
		t.Errorf("failed attempts should stay on the result, got %d", len(r.HTTP))
	}
	if set.Stats.HTTPAlive != 0 {
		t.Errorf("HTTPAlive = %d, want 0", set.Stats.HTTPAlive)
	}
}

func TestSnapshotRequiresFinalize(t *testing.T) {
	a := New("example.com", nil)
	if _, err := a.Snapshot(); err == nil {
		t.Error("Snapshot before Finalize must fail")
	}
}

func TestRecordAfterFinalizeIgnored(t *testing.T) {
	a := New("example.com", nil)
	a.RecordDNS("www.example.com", resolved("1.2.3.4"))
	a.Finalize()

	a.RecordDNS("late.example.com", resolved("9.9.9.9"))
	set, err := a.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(set.Results) != 1 || set.Stats.Attempted != 1 {
		t.Errorf("records after finalize must be ignored: %+v", set.Stats)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	a := New("example.com", nil)
	a.RecordDNS("www.example.com", resolved("1.2.3.4"))
	a.Finalize()

	first, err := a.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	first.Results[0].DNS.Addresses[0] = "mutated"
	first.Results[0].Name = "mutated"

	second, err := a.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if second.Results[0].Name != "www.example.com" || second.Results[0].DNS.Addresses[0] != "1.2.3.4" {
		t.Error("snapshot mutation leaked into aggregator state")
	}
}

func TestConcurrentWriters(t *testing.T) {
	a := New("example.com", nil)

	const workers = 32
	const perWorker = 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				name := fmt.Sprintf("host-%d-%d.example.com", w, i)
				a.RecordDNS(name, resolved("1.2.3.4"))
				a.RecordHTTP(name, []models.HTTPAttempt{
					{Scheme: "http", Outcome: models.OutcomeResolved, StatusCode: 200},
				})
			}
		}(w)
	}
	wg.Wait()

	a.Finalize()
	set, err := a.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Results) != workers*perWorker {
		t.Errorf("got %d results, want %d", len(set.Results), workers*perWorker)
	}
	if set.Stats.Attempted != workers*perWorker {
		t.Errorf("attempted = %d, want %d", set.Stats.Attempted, workers*perWorker)
	}
}
