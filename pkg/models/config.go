package models

import (
	"fmt"
	"strings"
	"time"
)

// Probe method names accepted on the configuration surface.
const (
	MethodDNS  = "dns"
	MethodHTTP = "http"
)

// ScanConfig is the full configuration surface of a scan. Zero values are
// filled in by Normalize; Validate rejects the misconfigurations that abort
// a scan before any probe is dispatched.
type ScanConfig struct {
	Target       string        `json:"target" yaml:"target"`
	WordlistPath string        `json:"wordlist_path,omitempty" yaml:"wordlist_path,omitempty"`
	Concurrency  int           `json:"concurrency" yaml:"concurrency"`
	ProbeTimeout time.Duration `json:"probe_timeout" yaml:"probe_timeout"`
	Methods      []string      `json:"methods" yaml:"methods"`
	Resolvers    []string      `json:"resolvers,omitempty" yaml:"resolvers,omitempty"`
	Retries      int           `json:"retries" yaml:"retries"`
	Deadline     time.Duration `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	RateLimit    float64       `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	MaxRedirects int           `json:"max_redirects" yaml:"max_redirects"`
	Insecure     bool          `json:"insecure" yaml:"insecure"`
	OutputPath   string        `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	OutputFormat string        `json:"output_format,omitempty" yaml:"output_format,omitempty"`
}

// DefaultScanConfig returns the defaults used when a field is unset.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Concurrency:  50,
		ProbeTimeout: 5 * time.Second,
		Methods:      []string{MethodDNS, MethodHTTP},
		Retries:      0,
		MaxRedirects: 3,
		Insecure:     true,
	}
}

// Normalize fills unset fields with defaults and canonicalizes method names.
func (c *ScanConfig) Normalize() {
	def := DefaultScanConfig()
	if c.Concurrency == 0 {
		c.Concurrency = def.Concurrency
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = def.ProbeTimeout
	}
	if len(c.Methods) == 0 {
		c.Methods = append([]string(nil), def.Methods...)
	}
	if c.MaxRedirects == 0 {
		c.MaxRedirects = def.MaxRedirects
	}
	for i, m := range c.Methods {
		c.Methods[i] = strings.ToLower(strings.TrimSpace(m))
	}
	c.Target = strings.ToLower(strings.TrimSpace(c.Target))
}

// Validate reports the first fatal misconfiguration, if any.
func (c *ScanConfig) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target domain is required")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %s", c.ProbeTimeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %f", c.RateLimit)
	}
	for _, m := range c.Methods {
		if m != MethodDNS && m != MethodHTTP {
			return fmt.Errorf("unknown probe method %q (want dns or http)", m)
		}
	}
	return nil
}

// HasMethod reports whether the named probe method is enabled.
func (c *ScanConfig) HasMethod(method string) bool {
	for _, m := range c.Methods {
		if m == method {
			return true
		}
	}
	return false
}
