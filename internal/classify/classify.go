package classify

// This package turns one observation (a SIP message and whatever transport
// metadata came with it) into the message type, direction and link it is
// counted under.
//
// IMPORTANT:
// - Classification is pure: no state is kept between observations.
// - Direction heuristics are applied in a fixed precedence; every heuristic
//   that cannot decide falls through to the next one.

import (
	"sort"
	"strings"

	"sipcounter/internal/filter"
	"sipcounter/internal/link"
	"sipcounter/internal/ports"
	"sipcounter/internal/sipmsg"
)

// Fields is what the classifier needs from a parsed SIP message.
// sipmsg.Message implements it.
type Fields interface {
	IsResponse() bool
	IsRequest() bool
	// Code returns the request method or the response status code.
	Code() string
	// CSeqMethod returns the method of the CSeq header, "" when absent.
	CSeqMethod() string
	// Transport returns the top Via transport, "" when absent.
	Transport() string
	// InDialog reports whether the To header carries a tag.
	InDialog() bool
}

// Observation is a single SIP message seen on the wire.
//
// Either Message is set, or MsgType (and optionally Method) carry values
// extracted elsewhere. Every other field is optional.
type Observation struct {
	Message Fields

	MsgType string
	Method  string
	Proto   string
	MsgDir  string

	SrcHost string
	SrcPort string
	DstHost string
	DstPort string
}

// HasEndpoints reports whether both hosts and both ports are known.
func (o Observation) HasEndpoints() bool {
	return o.SrcHost != "" && o.DstHost != "" && o.SrcPort != "" && o.DstPort != ""
}

// Result is the outcome of a successful classification.
type Result struct {
	MsgType   string
	Method    string
	Direction link.Direction
	Link      link.Key
}

// ReINVITE is the message type of an INVITE sent inside a dialog.
const ReINVITE = "ReINVITE"

// Classifier holds the role hints and the filter of one counter.
type Classifier struct {
	filter       *filter.Filter
	knownServers map[string]struct{}
	knownPorts   map[string]struct{}
}

// New returns a classifier. The well-known SIP ports are always added to
// knownPorts. A nil filter accepts everything.
func New(f *filter.Filter, knownServers, knownPorts []string) *Classifier {
	if f == nil {
		f = filter.New(nil, nil, nil, true)
	}
	c := &Classifier{
		filter:       f,
		knownServers: make(map[string]struct{}),
		knownPorts:   make(map[string]struct{}),
	}
	for _, s := range knownServers {
		if s = strings.TrimSpace(s); s != "" {
			c.knownServers[s] = struct{}{}
		}
	}
	for _, p := range append(ports.WellKnown(), knownPorts...) {
		if p = strings.TrimSpace(p); p != "" {
			c.knownPorts[ports.Normalize(p)] = struct{}{}
		}
	}
	return c
}

// Filter returns the filter the classifier applies.
func (c *Classifier) Filter() *filter.Filter { return c.filter }

// KnownServers returns the configured server hosts, sorted.
func (c *Classifier) KnownServers() []string { return sortedSet(c.knownServers) }

// KnownPorts returns the known service ports including 5060 and 5061,
// sorted numerically.
func (c *Classifier) KnownPorts() []string {
	out := sortedSet(c.knownPorts)
	sort.SliceStable(out, func(i, j int) bool { return ports.Number(out[i]) < ports.Number(out[j]) })
	return out
}

// Classify returns the type, direction and link of obs. ok is false when
// the host or the message type filter rejects the observation.
func (c *Classifier) Classify(obs Observation) (Result, bool) {
	msgType, method := Types(obs)

	if obs.SrcHost != "" && obs.DstHost != "" && !c.filter.HostAllowed(obs.SrcHost, obs.DstHost) {
		return Result{}, false
	}
	if !c.filter.TypeAllowed(msgType, method) {
		return Result{}, false
	}

	dir := c.Direction(obs)
	return Result{
		MsgType:   msgType,
		Method:    method,
		Direction: dir,
		Link:      link.Resolve(obs.SrcHost, obs.SrcPort, obs.DstHost, obs.DstPort, c.protocol(obs, dir), dir),
	}, true
}

// Types returns the message type and the method of obs.
//
// The message type is the status code of a response or the method of a
// request; an INVITE inside a dialog becomes ReINVITE. The method is taken
// from CSeq, falling back to the request method, then to UNKNOWN.
func Types(obs Observation) (msgType, method string) {
	msgType = obs.MsgType
	var reqMethod string

	if m := obs.Message; m != nil {
		switch {
		case m.IsResponse():
			msgType = m.Code()
		case m.IsRequest():
			reqMethod = m.Code()
			msgType = reqMethod
			if reqMethod == "INVITE" && m.InDialog() {
				msgType = ReINVITE
			}
		default:
			msgType = sipmsg.Unknown
		}
		if obs.Method == "" {
			method = m.CSeqMethod()
		}
	}
	if msgType == "" {
		msgType = sipmsg.Unknown
	}

	if obs.Method != "" {
		method = obs.Method
	}
	if method == "" {
		switch {
		case reqMethod != "":
			method = reqMethod
		case !filter.IsResponse(msgType):
			method = msgType
		default:
			method = sipmsg.Unknown
		}
	}
	return msgType, method
}

// Direction resolves the direction of obs:
//
//  0. a missing source or destination host => Both; such messages land on
//     the local/remote placeholder link, which never carries IN/OUT
//  1. explicit MsgDir: "IN" (any case) is In, anything else is Out
//  2. known servers: source known => Out, destination known => In
//  3. known ports: destination port known => In, source port known => Out
//  4. port magnitude: the higher port is the client; on a tie the
//     lexicographically greater host is the client
//  5. no endpoint information => Both
func (c *Classifier) Direction(obs Observation) link.Direction {
	if obs.SrcHost == "" || obs.DstHost == "" {
		return link.Both
	}

	if d := strings.TrimSpace(obs.MsgDir); d != "" {
		if strings.EqualFold(d, string(link.In)) {
			return link.In
		}
		return link.Out
	}

	if !obs.HasEndpoints() {
		return link.Both
	}

	if len(c.knownServers) > 0 {
		if _, ok := c.knownServers[obs.SrcHost]; ok {
			return link.Out
		}
		if _, ok := c.knownServers[obs.DstHost]; ok {
			return link.In
		}
	}

	if _, ok := c.knownPorts[ports.Normalize(obs.DstPort)]; ok {
		return link.In
	}
	if _, ok := c.knownPorts[ports.Normalize(obs.SrcPort)]; ok {
		return link.Out
	}

	src, dst := ports.Number(obs.SrcPort), ports.Number(obs.DstPort)
	switch {
	case src > dst:
		return link.In
	case src < dst:
		return link.Out
	case obs.SrcHost > obs.DstHost:
		return link.In
	default:
		return link.Out
	}
}

// protocol picks the transport: explicit Proto, then the Via transport,
// then a hint from the server port, then UDP.
func (c *Classifier) protocol(obs Observation, dir link.Direction) string {
	if obs.Proto != "" {
		return obs.Proto
	}
	if obs.Message != nil {
		if t := obs.Message.Transport(); t != "" {
			return t
		}
	}
	serverPort := obs.SrcPort
	if dir == link.In {
		serverPort = obs.DstPort
	}
	if dir != link.Both {
		if t := ports.TransportFromPort(serverPort); t != "" {
			return t
		}
	}
	return link.DefaultProtocol
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
