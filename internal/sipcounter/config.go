package sipcounter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"sipcounter/internal/counter"
	"sipcounter/internal/link"
	"sipcounter/internal/ports"
)

var (
	// ErrInvalidPort is returned for a known port that is not a port number.
	ErrInvalidPort = errors.New("invalid known port")
	// ErrMixedDirections is returned for pre-seeded data whose link records
	// mix BOTH with IN or OUT.
	ErrMixedDirections = errors.New("link record mixes BOTH with IN/OUT")
)

// Config is the construction time configuration of a Counter.
//
// SIPFilter entries starting with a digit are response code prefixes, the
// others are request names. Greedy defaults to true when nil.
type Config struct {
	Name         string   `yaml:"name"`
	SIPFilter    []string `yaml:"sip_filter"`
	HostFilter   []string `yaml:"host_filter"`
	HostExclude  []string `yaml:"host_exclude"`
	KnownServers []string `yaml:"known_servers"`
	KnownPorts   []string `yaml:"known_ports"`
	Greedy       *bool    `yaml:"greedy"`

	// Data optionally pre-seeds the counts. It is copied.
	Data counter.Data `yaml:"-"`
}

// Bool returns a pointer to v, for Config.Greedy.
func Bool(v bool) *bool { return &v }

// IsGreedy resolves the Greedy default.
func (c Config) IsGreedy() bool {
	return c.Greedy == nil || *c.Greedy
}

// Validate checks the configuration without building a Counter.
func (c Config) Validate() error {
	for _, p := range c.KnownPorts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n := ports.Number(p); n <= 0 || n > 65535 {
			return fmt.Errorf("known port %q: %w", p, ErrInvalidPort)
		}
	}
	for key, rec := range c.Data {
		_, both := rec[link.Both]
		_, in := rec[link.In]
		_, out := rec[link.Out]
		if both && (in || out) {
			return fmt.Errorf("link %s: %w", key, ErrMixedDirections)
		}
	}
	return nil
}

// normalized returns a copy of c with every set trimmed, deduplicated and
// sorted, and known ports in decimal form.
func (c Config) normalized() Config {
	out := Config{
		Name:         strings.TrimSpace(c.Name),
		SIPFilter:    normalizeSet(c.SIPFilter, nil),
		HostFilter:   normalizeSet(c.HostFilter, nil),
		HostExclude:  normalizeSet(c.HostExclude, nil),
		KnownServers: normalizeSet(c.KnownServers, nil),
		KnownPorts:   normalizeSet(c.KnownPorts, ports.Normalize),
		Greedy:       Bool(c.IsGreedy()),
	}
	return out
}

// union merges the filter and hint sets of a and b. Name and Greedy come
// from a.
func union(a, b Config) Config {
	out := Config{
		Name:         a.Name,
		SIPFilter:    append(append([]string(nil), a.SIPFilter...), b.SIPFilter...),
		HostFilter:   append(append([]string(nil), a.HostFilter...), b.HostFilter...),
		HostExclude:  append(append([]string(nil), a.HostExclude...), b.HostExclude...),
		KnownServers: append(append([]string(nil), a.KnownServers...), b.KnownServers...),
		KnownPorts:   append(append([]string(nil), a.KnownPorts...), b.KnownPorts...),
		Greedy:       a.Greedy,
	}
	return out.normalized()
}

func normalizeSet(items []string, fn func(string) string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if fn != nil {
			it = fn(it)
		}
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}
