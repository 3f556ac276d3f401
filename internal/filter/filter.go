package filter

import (
	"sort"
	"strings"
)

// Filter decides whether an observation is counted at all. It is built once
// from the counter configuration and never mutated afterwards.
type Filter struct {
	requests  map[string]struct{}
	responses []string
	hosts     map[string]struct{}
	exclude   map[string]struct{}
	greedy    bool
}

// catchAll is the legacy "match everything" entry of older configurations.
const catchAll = ".*"

// New splits sipFilter into a request name set (ReINVITE is implied by
// INVITE) and a response code prefix set ("4" matches any 4xx).
//
// Host allow and exclude sets are independent; a host present in both is
// excluded.
func New(sipFilter, hostFilter, hostExclude []string, greedy bool) *Filter {
	f := &Filter{
		requests: make(map[string]struct{}),
		hosts:    toSet(hostFilter),
		exclude:  toSet(hostExclude),
		greedy:   greedy,
	}

	seen := make(map[string]struct{})
	for _, entry := range sipFilter {
		entry = strings.TrimSpace(entry)
		if entry == "" || entry == catchAll {
			continue
		}
		if IsResponse(entry) {
			if _, dup := seen[entry]; !dup {
				seen[entry] = struct{}{}
				f.responses = append(f.responses, entry)
			}
			continue
		}
		f.requests[entry] = struct{}{}
	}
	if _, ok := f.requests["INVITE"]; ok {
		f.requests["ReINVITE"] = struct{}{}
	}
	sort.Strings(f.responses)

	return f
}

// IsResponse reports whether a message type is a response code (or a
// response code prefix): it starts with a digit.
func IsResponse(msgType string) bool {
	return msgType != "" && msgType[0] >= '0' && msgType[0] <= '9'
}

// HostAllowed applies the host allow-list first and the exclude set last.
func (f *Filter) HostAllowed(src, dst string) bool {
	if len(f.hosts) > 0 {
		_, s := f.hosts[src]
		_, d := f.hosts[dst]
		if !s && !d {
			return false
		}
	}
	if len(f.exclude) > 0 {
		if _, ok := f.exclude[src]; ok {
			return false
		}
		if _, ok := f.exclude[dst]; ok {
			return false
		}
	}
	return true
}

// TypeAllowed applies the message type filter.
//
// A request passes when its method is in the request filter. A response
// passes when its code matches the response filter; in greedy mode an empty
// response filter admits every response whose method passes the request
// filter.
func (f *Filter) TypeAllowed(msgType, method string) bool {
	if len(f.requests) == 0 && len(f.responses) == 0 {
		return true
	}

	if !IsResponse(msgType) {
		_, ok := f.requests[method]
		return ok
	}

	if f.greedy {
		if len(f.requests) > 0 {
			if _, ok := f.requests[method]; !ok {
				return false
			}
		}
		return len(f.responses) == 0 || f.matchResponse(msgType)
	}
	return len(f.responses) > 0 && f.matchResponse(msgType)
}

func (f *Filter) matchResponse(code string) bool {
	for _, prefix := range f.responses {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}

// Greedy reports the response filtering mode.
func (f *Filter) Greedy() bool { return f.greedy }

// RequestFilter returns the request names in sorted order.
func (f *Filter) RequestFilter() []string { return sortedKeys(f.requests) }

// ResponseFilter returns the response code prefixes in sorted order.
func (f *Filter) ResponseFilter() []string {
	out := make([]string, len(f.responses))
	copy(out, f.responses)
	return out
}

// HostFilter returns the allow-listed hosts in sorted order.
func (f *Filter) HostFilter() []string { return sortedKeys(f.hosts) }

// HostExclude returns the excluded hosts in sorted order.
func (f *Filter) HostExclude() []string { return sortedKeys(f.exclude) }

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			set[it] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
