package sipcounter

// This package is the counting instance: a configured classifier in front
// of a counter.Data, plus the read API used by reports and exporters.
//
// A Counter is not safe for concurrent use. The exporter guards a single
// Counter with a mutex and reads from snapshots taken with Clone.

import (
	"sipcounter/internal/aggregate"
	"sipcounter/internal/classify"
	"sipcounter/internal/counter"
	"sipcounter/internal/filter"
	"sipcounter/internal/link"
)

// Counter counts SIP messages per link, direction and message type.
type Counter struct {
	cfg        Config
	classifier *classify.Classifier
	data       counter.Data
}

// New validates cfg and returns a Counter. cfg.Data is deep copied.
func New(cfg Config) (*Counter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return build(cfg.normalized(), cfg.Data), nil
}

// MustNew is New for static configurations; it panics on error.
func MustNew(cfg Config) *Counter {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

func build(cfg Config, data counter.Data) *Counter {
	f := filter.New(cfg.SIPFilter, cfg.HostFilter, cfg.HostExclude, cfg.IsGreedy())
	c := &Counter{
		cfg:        cfg,
		classifier: classify.New(f, cfg.KnownServers, cfg.KnownPorts),
		data:       make(counter.Data),
	}
	if data != nil {
		c.data = data.Clone()
	}
	return c
}

// Name returns the configured name.
func (c *Counter) Name() string { return c.cfg.Name }

// Config returns the normalized configuration, without data.
func (c *Counter) Config() Config {
	out := c.cfg
	out.SIPFilter = append([]string(nil), c.cfg.SIPFilter...)
	out.HostFilter = append([]string(nil), c.cfg.HostFilter...)
	out.HostExclude = append([]string(nil), c.cfg.HostExclude...)
	out.KnownServers = append([]string(nil), c.cfg.KnownServers...)
	out.KnownPorts = append([]string(nil), c.cfg.KnownPorts...)
	out.Greedy = Bool(c.cfg.IsGreedy())
	return out
}

// Classifier returns the classifier built from the configuration.
func (c *Counter) Classifier() *classify.Classifier { return c.classifier }

// RequestFilter returns the request names counted (ReINVITE implied by
// INVITE).
func (c *Counter) RequestFilter() []string { return c.classifier.Filter().RequestFilter() }

// ResponseFilter returns the response code prefixes counted.
func (c *Counter) ResponseFilter() []string { return c.classifier.Filter().ResponseFilter() }

// KnownPorts returns the known service ports, well-known ones included.
func (c *Counter) KnownPorts() []string { return c.classifier.KnownPorts() }

// Add classifies obs and counts it. It returns 1 when the observation was
// counted and 0 when a filter ignored it.
func (c *Counter) Add(obs classify.Observation) int {
	r, ok := c.classifier.Classify(obs)
	if !ok {
		return 0
	}
	c.data.Add(r.Link, r.Direction, r.MsgType)
	return 1
}

// Update adds data to the counts, bypassing classification.
func (c *Counter) Update(data counter.Data) { c.data.Update(data) }

// Subtract removes data from the counts; see counter.Data.Subtract.
func (c *Counter) Subtract(data counter.Data, compact bool) { c.data.Subtract(data, compact) }

// Compact drops non-positive counts and the structure left empty.
func (c *Counter) Compact() { c.data.Compact() }

// Clear drops every count. The configuration is kept.
func (c *Counter) Clear() { c.data.Clear() }

// Clone returns an independent copy of the counter.
func (c *Counter) Clone() *Counter {
	return build(c.Config(), c.data)
}

// Data returns the live count structure. Callers must not modify it.
func (c *Counter) Data() counter.Data { return c.data }

// Total returns the sum of every count.
func (c *Counter) Total() int { return c.data.Total() }

// Len returns the number of links.
func (c *Counter) Len() int { return len(c.data) }

// Items returns every link with its record, in canonical order. Records are
// copies.
func (c *Counter) Items() aggregate.Grouped {
	g, _ := aggregate.GroupBy(c.data, link.MaxDepth)
	return g
}

// Keys returns every link in canonical order.
func (c *Counter) Keys() []link.Key { return c.Items().Keys() }

// Values returns every record in canonical link order.
func (c *Counter) Values() []counter.Record {
	items := c.Items()
	out := make([]counter.Record, len(items))
	for i := range items {
		out[i] = items[i].Record
	}
	return out
}

// GroupBy merges links sharing the first depth fields.
func (c *Counter) GroupBy(depth int) (aggregate.Grouped, error) {
	return aggregate.GroupBy(c.data, depth)
}

// MostCommon returns the n busiest groups at depth.
func (c *Counter) MostCommon(n, depth int) (aggregate.Grouped, error) {
	return aggregate.MostCommon(c.data, n, depth)
}

// Summary returns every count summed into a single group named title.
func (c *Counter) Summary(title string) aggregate.Grouped {
	return aggregate.Summary(c.data, title)
}

// Sum reduces the counts along axis.
func (c *Counter) Sum(axis aggregate.Axis) []int { return aggregate.Sum(c.data, axis) }

// Max returns the largest count along axis.
func (c *Counter) Max(axis aggregate.Axis) []int { return aggregate.Max(c.data, axis) }

// MessageTypes returns the message types seen, in report order.
func (c *Counter) MessageTypes() []string { return aggregate.MessageTypes(c.data) }

// Directions returns the column direction layout of the counts.
func (c *Counter) Directions() []link.Direction { return aggregate.Directions(c.data) }

// Columns returns the column layout of the counts.
func (c *Counter) Columns() []aggregate.Column { return aggregate.Columns(c.data) }

// ToColumns returns one row per link laid out by Columns.
func (c *Counter) ToColumns() []aggregate.Row { return aggregate.ToColumns(c.data) }

// Contains reports whether elem is a host or port of any link (when elem
// looks like an address or a port) or a message type that was counted.
func (c *Counter) Contains(elem string) bool {
	if looksLikeEndpoint(elem) {
		for key := range c.data {
			for _, f := range key.Fields() {
				if f == elem {
					return true
				}
			}
		}
		return false
	}
	for _, mt := range c.MessageTypes() {
		if mt == elem {
			return true
		}
	}
	return false
}

// looksLikeEndpoint matches IPv4/IPv6 addresses, host names with a dot and
// port numbers (more than 3 digits, so response codes are not mistaken).
func looksLikeEndpoint(elem string) bool {
	for _, r := range elem {
		if r == '.' || r == ':' {
			return true
		}
	}
	if len(elem) <= 3 {
		return false
	}
	for _, r := range elem {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
