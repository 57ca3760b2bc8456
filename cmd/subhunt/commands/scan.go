package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"sort"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/net/publicsuffix"

	"github.com/skywolf-loong/subhunt/internal/aggregator"
	"github.com/skywolf-loong/subhunt/internal/generator"
	"github.com/skywolf-loong/subhunt/internal/output"
	"github.com/skywolf-loong/subhunt/internal/probe/dnsprobe"
	"github.com/skywolf-loong/subhunt/internal/probe/httpprobe"
	"github.com/skywolf-loong/subhunt/internal/scheduler"
	"github.com/skywolf-loong/subhunt/pkg/models"
	"github.com/skywolf-loong/subhunt/pkg/utils"
)

var looksLikeDomainRE = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}$`)

func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [domain]",
		Short: "Brute force and verify subdomains of a target domain",
		Long: `Scan a target domain for subdomains: every wordlist label is joined with
the domain, resolved over DNS, and optionally probed over HTTP to confirm
liveness and capture response metadata.`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}

	cmd.Flags().StringP("wordlist", "w", "", "Wordlist file, one label per line (default: built-in common labels)")
	cmd.Flags().IntP("concurrency", "t", 50, "Number of candidates probed in parallel")
	cmd.Flags().Float64P("timeout", "T", 5, "Per-probe timeout in seconds")
	cmd.Flags().StringSliceP("methods", "m", []string{"dns", "http"}, "Probe methods to run (dns, http)")
	cmd.Flags().StringSliceP("resolvers", "r", nil, "Upstream DNS resolvers (default: system resolvers)")
	cmd.Flags().Int("retries", 0, "Extra probe attempts on timeout or error")
	cmd.Flags().Duration("deadline", 0, "Scan-wide deadline; stops dispatching new candidates when exceeded")
	cmd.Flags().Float64("rate-limit", 0, "Maximum candidates started per second (0 = unlimited)")
	cmd.Flags().Bool("insecure", true, "Skip TLS certificate verification on HTTPS probes")
	cmd.Flags().StringP("output", "o", "", "Output file path")
	cmd.Flags().StringP("format", "f", "", "Output format (text, json, csv; default inferred from extension)")
	cmd.Flags().String("metrics-addr", "", "Expose prometheus metrics on this address during the scan")

	_ = viper.BindPFlag("scan.wordlist", cmd.Flags().Lookup("wordlist"))
	_ = viper.BindPFlag("scan.concurrency", cmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("scan.timeout", cmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("scan.methods", cmd.Flags().Lookup("methods"))
	_ = viper.BindPFlag("scan.resolvers", cmd.Flags().Lookup("resolvers"))
	_ = viper.BindPFlag("scan.retries", cmd.Flags().Lookup("retries"))
	_ = viper.BindPFlag("scan.deadline", cmd.Flags().Lookup("deadline"))
	_ = viper.BindPFlag("scan.rate_limit", cmd.Flags().Lookup("rate-limit"))
	_ = viper.BindPFlag("scan.insecure", cmd.Flags().Lookup("insecure"))
	_ = viper.BindPFlag("scan.output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("scan.format", cmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("scan.metrics_addr", cmd.Flags().Lookup("metrics-addr"))

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := scanConfigFromViper(args[0])
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	target, err := generator.NormalizeDomain(cfg.Target)
	if err != nil {
		return err
	}
	if !looksLikeDomainRE.MatchString(target) {
		return fmt.Errorf("invalid target domain: %s", cfg.Target)
	}
	if _, icann := publicsuffix.PublicSuffix(target); !icann {
		logrus.Warnf("Target %s is not under an ICANN public suffix", target)
	}
	cfg.Target = target

	logrus.Infof("Starting scan for %s (concurrency=%d, timeout=%s, methods=%v)",
		target, cfg.Concurrency, cfg.ProbeTimeout, cfg.Methods)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("Interrupt received, letting in-flight probes finish...")
		cancel()
	}()

	gen, err := generator.New(target, cfg.WordlistPath, logrus.StandardLogger())
	if err != nil {
		return err
	}
	logrus.Infof("Probing %d candidates", gen.Count())

	agg := aggregator.New(target, logrus.StandardLogger())
	dnsProbe := dnsprobe.New(cfg.Resolvers, cfg.ProbeTimeout, logrus.StandardLogger())

	var httpProbe scheduler.HTTPProber
	if cfg.HasMethod(models.MethodHTTP) {
		httpProbe = httpprobe.New(cfg.ProbeTimeout, cfg.MaxRedirects, nil, cfg.Insecure, logrus.StandardLogger())
	}

	var metrics *utils.MetricsCollector
	if addr := viper.GetString("scan.metrics_addr"); addr != "" {
		metrics = utils.NewMetricsCollector(true)
		go func() {
			if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
				logrus.Warnf("Metrics listener failed: %v", err)
			}
		}()
	}

	sched, err := scheduler.New(cfg, dnsProbe, httpProbe, agg, metrics, logrus.StandardLogger())
	if err != nil {
		return err
	}
	sched.OnProgress(func(p scheduler.Progress) {
		logrus.Infof("Checked %d candidates, found %d (%.1fs elapsed)",
			p.Checked, p.Found, p.Elapsed.Seconds())
	})

	set, err := sched.Run(ctx, gen.Candidates(ctx))
	if err != nil {
		return err
	}

	printReport(set)

	// Output errors never discard the computed results printed above.
	if cfg.OutputPath != "" {
		w, err := output.NewWriter(cfg.OutputPath, cfg.OutputFormat)
		if err != nil {
			return err
		}
		if err := w.Write(set); err != nil {
			return fmt.Errorf("scan succeeded but writing results failed: %w", err)
		}
		logrus.Infof("Results written to %s", cfg.OutputPath)
	}
	return nil
}

func scanConfigFromViper(target string) models.ScanConfig {
	return models.ScanConfig{
		Target:       target,
		WordlistPath: viper.GetString("scan.wordlist"),
		Concurrency:  viper.GetInt("scan.concurrency"),
		ProbeTimeout: time.Duration(viper.GetFloat64("scan.timeout") * float64(time.Second)),
		Methods:      viper.GetStringSlice("scan.methods"),
		Resolvers:    viper.GetStringSlice("scan.resolvers"),
		Retries:      viper.GetInt("scan.retries"),
		Deadline:     viper.GetDuration("scan.deadline"),
		RateLimit:    viper.GetFloat64("scan.rate_limit"),
		MaxRedirects: viper.GetInt("scan.max_redirects"),
		Insecure:     viper.GetBool("scan.insecure"),
		OutputPath:   viper.GetString("scan.output"),
		OutputFormat: viper.GetString("scan.format"),
	}
}

func printReport(set *models.ResultSet) {
	if viper.GetBool("quiet") {
		for _, name := range set.Names() {
			fmt.Println(name)
		}
		return
	}

	fmt.Printf(`
Scan Summary:
  Target:      %s
  Checked:     %d candidates
  Found:       %d subdomains
  Unreachable: %d  TimedOut: %d  Errored: %d
  HTTP alive:  %d
  Duration:    %.1fs
`,
		set.Target, set.Stats.Attempted, len(set.Results),
		set.Stats.Unreachable, set.Stats.TimedOut, set.Stats.Errored,
		set.Stats.HTTPAlive, set.Duration().Seconds())

	if len(set.Results) == 0 {
		return
	}
	names := set.Names()
	sort.Strings(names)
	fmt.Println("\nDiscovered subdomains:")
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
}
