package dnsprobe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/idna"
	"golang.org/x/sync/errgroup"

	"github.com/skywolf-loong/subhunt/pkg/models"
)

// Probe resolves one candidate name to its addresses. It never retries on
// its own; classification follows the four-way outcome taxonomy and the
// per-probe timeout is a hard cutoff even if the upstream never answers.
type Probe struct {
	servers     []string
	timeout     time.Duration
	udpClient   *mdns.Client
	tcpClient   *mdns.Client
	logger      *logrus.Logger
	mu          sync.Mutex
	rotateIndex int
}

// New builds a DNS probe. With no servers configured the system resolvers
// from /etc/resolv.conf are used, falling back to well-known public ones.
func New(servers []string, timeout time.Duration, logger *logrus.Logger) *Probe {
	if logger == nil {
		logger = logrus.New()
	}
	if len(servers) == 0 {
		servers = systemResolvers()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	udp := &mdns.Client{
		Net:          "udp",
		Timeout:      timeout,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		UDPSize:      1232,
	}
	tcp := &mdns.Client{
		Net:          "tcp",
		Timeout:      timeout,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	return &Probe{
		servers:   servers,
		timeout:   timeout,
		udpClient: udp,
		tcpClient: tcp,
		logger:    logger,
	}
}

// Check resolves name over A and AAAA and classifies the result. The two
// record types are queried in parallel; a candidate counts as resolved when
// either yields at least one address.
func (p *Probe) Check(ctx context.Context, name string) models.DNSOutcome {
	ascii, err := idna.Lookup.ToASCII(strings.TrimSpace(name))
	if err != nil || ascii == "" {
		return models.DNSOutcome{Outcome: models.OutcomeError, Err: fmt.Sprintf("invalid name %q", name)}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var (
		mu        sync.Mutex
		addresses []string
		nxdomain  int
		lastErr   error
	)
	g, ctx := errgroup.WithContext(ctx)

	for _, qtype := range []uint16{mdns.TypeA, mdns.TypeAAAA} {
		qtype := qtype
		g.Go(func() error {
			addrs, err := p.query(ctx, ascii, qtype)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				addresses = append(addresses, addrs...)
			case errors.Is(err, errNXDomain):
				nxdomain++
			default:
				lastErr = err
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(addresses) > 0 {
		sort.Strings(addresses)
		return models.DNSOutcome{Outcome: models.OutcomeResolved, Addresses: dedupe(addresses)}
	}
	if nxdomain > 0 {
		return models.DNSOutcome{Outcome: models.OutcomeUnreachable}
	}
	if lastErr != nil {
		if isTimeout(lastErr) {
			return models.DNSOutcome{Outcome: models.OutcomeTimedOut}
		}
		return models.DNSOutcome{Outcome: models.OutcomeError, Err: lastErr.Error()}
	}
	// NOERROR with an empty answer section: the name has no address records.
	return models.DNSOutcome{Outcome: models.OutcomeUnreachable}
}

var errNXDomain = errors.New("NXDOMAIN")

func (p *Probe) query(ctx context.Context, name string, qtype uint16) ([]string, error) {
	msg := new(mdns.Msg)
	msg.SetQuestion(mdns.Fqdn(name), qtype)
	msg.RecursionDesired = true
	msg.SetEdns0(1232, false)

	server := p.selectServer()
	resp, _, err := p.udpClient.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("nil DNS response from %s", server)
	}
	if resp.Truncated {
		resp, _, err = p.tcpClient.ExchangeContext(ctx, msg, server)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			return nil, fmt.Errorf("nil DNS TCP response from %s", server)
		}
	}

	switch resp.Rcode {
	case mdns.RcodeSuccess:
		return addressesFromAnswers(resp.Answer), nil
	case mdns.RcodeNameError:
		return nil, errNXDomain
	default:
		return nil, fmt.Errorf("DNS error: %s", mdns.RcodeToString[resp.Rcode])
	}
}

func addressesFromAnswers(rrs []mdns.RR) []string {
	var out []string
	for _, rr := range rrs {
		switch rr := rr.(type) {
		case *mdns.A:
			out = append(out, rr.A.String())
		case *mdns.AAAA:
			out = append(out, rr.AAAA.String())
		}
	}
	return out
}

func (p *Probe) selectServer() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	server := p.servers[p.rotateIndex%len(p.servers)]
	p.rotateIndex = (p.rotateIndex + 1) % len(p.servers)

	if !strings.Contains(server, ":") {
		server = net.JoinHostPort(server, "53")
	}
	return server
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func systemResolvers() []string {
	cfg, err := mdns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || cfg == nil || len(cfg.Servers) == 0 {
		return []string{
			"1.1.1.1:53",
			"8.8.8.8:53",
			"9.9.9.9:53",
		}
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, "53"))
	}
	return servers
}
