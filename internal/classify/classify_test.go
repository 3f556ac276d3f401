package classify

import (
	"fmt"
	"reflect"
	"testing"

	"sipcounter/internal/filter"
	"sipcounter/internal/link"
	"sipcounter/internal/sipmsg"
)

const (
	inviteText = "INVITE sip:1111@example.com SIP/2.0\n" +
		"From: <sip:2222@example.com>;tag=tag1234\n" +
		"To: <sip:1111@example.com>\n" +
		"CSeq: 1 INVITE\n" +
		"Via: SIP/2.0/%s host.example.com:12345;branch=branch1234\n"
	reinviteText = "INVITE sip:1111@example.com SIP/2.0\n" +
		"f: <sip:2222@example.com>;tag=tag1234\n" +
		"t: <sip:1111@example.com>;tag=54321fedcba\n" +
		"CSeq: 2 INVITE\n" +
		"v: SIP/2.0/%s host.example.com:5060;branch=branch1234\n"
	okText = "SIP/2.0 200 OK\n" +
		"To: <sip:1111@example.com>;tag=54321fedcba\n" +
		"CSeq: 1 PUBLISH\n" +
		"Via: SIP/2.0/%s host.example.com:12345;branch=branch1234\n"
)

func message(t *testing.T, format, proto string) sipmsg.Message {
	t.Helper()
	m, ok := sipmsg.Parse(fmt.Sprintf(format, proto))
	if !ok {
		t.Fatalf("fixture does not parse")
	}
	return m
}

func TestTypes(t *testing.T) {
	cases := []struct {
		name            string
		obs             Observation
		msgType, method string
	}{
		{"reinvite", Observation{Message: message(t, reinviteText, "TCP")}, "ReINVITE", "INVITE"},
		{"initial invite", Observation{Message: message(t, inviteText, "UDP")}, "INVITE", "INVITE"},
		{"response", Observation{Message: message(t, okText, "UDP")}, "200", "PUBLISH"},
		{"pre-extracted", Observation{MsgType: "200", Method: "PUBLISH"}, "200", "PUBLISH"},
		{"request without cseq", Observation{Message: mustParse("BYE sip:x SIP/2.0\n")}, "BYE", "BYE"},
		{"response without cseq", Observation{Message: mustParse("SIP/2.0 486 Busy Here\n")}, "486", sipmsg.Unknown},
		{"malformed", Observation{Message: mustParse("garbage")}, sipmsg.Unknown, sipmsg.Unknown},
		{"empty", Observation{}, sipmsg.Unknown, sipmsg.Unknown},
		{"pre-extracted response", Observation{MsgType: "503"}, "503", sipmsg.Unknown},
	}
	for _, tc := range cases {
		mt, m := Types(tc.obs)
		if mt != tc.msgType || m != tc.method {
			t.Fatalf("%s: got=(%q,%q) want=(%q,%q)", tc.name, mt, m, tc.msgType, tc.method)
		}
	}
}

func mustParse(text string) sipmsg.Message {
	m, _ := sipmsg.Parse(text)
	return m
}

func TestDirectionPrecedence(t *testing.T) {
	obs := Observation{SrcHost: "10.0.0.2", SrcPort: "12345", DstHost: "10.0.0.1", DstPort: "5060"}

	cases := []struct {
		name    string
		servers []string
		ports   []string
		mutate  func(o *Observation)
		want    link.Direction
	}{
		{"explicit in", nil, nil, func(o *Observation) { o.MsgDir = "in" }, link.In},
		{"explicit other", nil, nil, func(o *Observation) { o.MsgDir = "whatever" }, link.Out},
		{"explicit beats servers", []string{"10.0.0.2"}, nil, func(o *Observation) { o.MsgDir = "IN" }, link.In},
		{"known server src", []string{"10.0.0.2"}, nil, nil, link.Out},
		{"known server dst", []string{"10.0.0.1"}, nil, nil, link.In},
		{"unknown servers fall through", []string{"10.9.9.9"}, nil, nil, link.In},
		{"well-known dst port", nil, nil, nil, link.In},
		{"known src port", nil, []string{"12345"}, func(o *Observation) { o.DstPort = "7000" }, link.Out},
		{"port magnitude out", nil, nil, func(o *Observation) { o.SrcPort, o.DstPort = "5070", "12347" }, link.Out},
		{"port magnitude in", nil, nil, func(o *Observation) { o.SrcPort, o.DstPort = "12347", "5070" }, link.In},
		{"tie src host greater", nil, nil, func(o *Observation) { o.SrcPort, o.DstPort = "7000", "7000" }, link.In},
		{"tie src host smaller", nil, nil, func(o *Observation) {
			o.SrcPort, o.DstPort = "7000", "7000"
			o.SrcHost, o.DstHost = o.DstHost, o.SrcHost
		}, link.Out},
		{"non-numeric port counts as zero", nil, nil, func(o *Observation) { o.SrcPort, o.DstPort = "sip", "7000" }, link.Out},
		{"no endpoints", nil, nil, func(o *Observation) { *o = Observation{} }, link.Both},
		{"partial endpoints", nil, nil, func(o *Observation) { o.DstPort = "" }, link.Both},
		{"explicit without hosts", nil, nil, func(o *Observation) { *o = Observation{MsgDir: "OUT"} }, link.Both},
		{"explicit without dst host", nil, nil, func(o *Observation) { o.MsgDir, o.DstHost = "IN", "" }, link.Both},
		{"explicit without ports", nil, nil, func(o *Observation) { o.MsgDir, o.SrcPort, o.DstPort = "IN", "", "" }, link.In},
	}
	for _, tc := range cases {
		o := obs
		if tc.mutate != nil {
			tc.mutate(&o)
		}
		c := New(nil, tc.servers, tc.ports)
		if got := c.Direction(o); got != tc.want {
			t.Fatalf("%s: got=%s want=%s", tc.name, got, tc.want)
		}
	}
}

func TestClassifyIsSideInvariant(t *testing.T) {
	for _, ports := range [][]string{nil, {"5070"}, {"1234"}} {
		c := New(nil, nil, ports)
		a, okA := c.Classify(Observation{MsgType: "INVITE", SrcHost: "A", SrcPort: "1234", DstHost: "B", DstPort: "5070"})
		b, okB := c.Classify(Observation{MsgType: "200", SrcHost: "B", SrcPort: "5070", DstHost: "A", DstPort: "1234"})
		if !okA || !okB {
			t.Fatalf("known ports %v: observations unexpectedly ignored", ports)
		}
		if a.Link != b.Link {
			t.Fatalf("known ports %v: two links for one flow: %v vs %v", ports, a.Link.Fields(), b.Link.Fields())
		}
		if a.Direction == b.Direction {
			t.Fatalf("known ports %v: reversed observation must flip direction", ports)
		}
	}
}

func TestClassifyRoleInference(t *testing.T) {
	c := New(nil, nil, []string{"5070"})

	first, ok := c.Classify(Observation{MsgType: "INVITE", Proto: "udp", SrcHost: "A", SrcPort: "1234", DstHost: "B", DstPort: "5070"})
	if !ok {
		t.Fatalf("unexpectedly ignored")
	}
	want := []string{"B", "A", "UDP", "5070", "1234"}
	if first.Direction != link.In || !reflect.DeepEqual(first.Link.Fields(), want) {
		t.Fatalf("got %s %v, want IN %v", first.Direction, first.Link.Fields(), want)
	}

	second, _ := c.Classify(Observation{MsgType: "200", Method: "INVITE", Proto: "UDP", SrcHost: "B", SrcPort: "5070", DstHost: "A", DstPort: "1234"})
	if second.Direction != link.Out || second.Link != first.Link {
		t.Fatalf("reversed: got %s %v", second.Direction, second.Link.Fields())
	}
}

func TestClassifyMakeLink(t *testing.T) {
	c := New(nil, nil, nil)
	cases := []struct {
		obs     Observation
		want    []string
		wantDir link.Direction
	}{
		{Observation{MsgDir: "IN", SrcHost: "10.0.0.2", SrcPort: "12345", DstHost: "10.0.0.1", DstPort: "5060", Proto: "UDP"},
			[]string{"10.0.0.1", "10.0.0.2", "UDP", "5060", "12345"}, link.In},
		{Observation{MsgDir: "OUT", SrcHost: "10.0.0.1", SrcPort: "5060", DstHost: "10.0.0.2", DstPort: "12346", Proto: "UDP"},
			[]string{"10.0.0.1", "10.0.0.2", "UDP", "5060", "12346"}, link.Out},
		{Observation{SrcHost: "10.0.0.1", SrcPort: "5070", DstHost: "10.0.0.2", DstPort: "12347", Proto: "TCP"},
			[]string{"10.0.0.1", "10.0.0.2", "TCP", "5070", "12347"}, link.Out},
	}
	for i, tc := range cases {
		tc.obs.MsgType = "INVITE"
		r, ok := c.Classify(tc.obs)
		if !ok || r.Direction != tc.wantDir || !reflect.DeepEqual(r.Link.Fields(), tc.want) {
			t.Fatalf("case %d: got %s %v", i, r.Direction, r.Link.Fields())
		}
	}
}

func TestClassifyProtocol(t *testing.T) {
	c := New(nil, nil, nil)

	r, _ := c.Classify(Observation{Message: message(t, inviteText, "TCP"), SrcHost: "10.0.0.2", SrcPort: "12347", DstHost: "10.0.0.1", DstPort: "5070"})
	if r.Link.Field(link.Protocol) != "TCP" || r.Direction != link.In {
		t.Fatalf("expected Via transport and IN, got %s %v", r.Direction, r.Link.Fields())
	}

	r, _ = c.Classify(Observation{MsgType: "OPTIONS", SrcHost: "10.0.0.2", SrcPort: "40000", DstHost: "10.0.0.1", DstPort: "5061"})
	if r.Link.Field(link.Protocol) != "TLS" {
		t.Fatalf("expected TLS from the server port, got %v", r.Link.Fields())
	}

	r, _ = c.Classify(Observation{Message: mustParse("OPTIONS sip:x SIP/2.0\n")})
	want := []string{link.Local, link.Remote, "UDP", "", ""}
	if r.Direction != link.Both || !reflect.DeepEqual(r.Link.Fields(), want) {
		t.Fatalf("expected placeholders, got %s %v", r.Direction, r.Link.Fields())
	}

	r, _ = c.Classify(Observation{MsgType: "INVITE", MsgDir: "OUT", Proto: "sctp"})
	if r.Direction != link.Both || r.Link.Field(link.ServerHost) != link.Local || r.Link.Field(link.Protocol) != "SCTP" {
		t.Fatalf("explicit direction without hosts: got %s %v", r.Direction, r.Link.Fields())
	}
}

func TestClassifyFilters(t *testing.T) {
	simple := New(filter.New([]string{"INVITE", "BYE"}, []string{"10.0.0.2"}, nil, false), nil, nil)
	publish := New(filter.New([]string{"PUBLISH", "2"}, nil, []string{"10.0.0.2"}, false), nil, []string{"8888"})

	if _, ok := simple.Classify(Observation{Message: message(t, okText, "UDP"), MsgDir: "IN",
		SrcHost: "10.0.0.2", SrcPort: "12345", DstHost: "10.0.0.1", DstPort: "5060"}); ok {
		t.Fatalf("200 must be rejected by a non-greedy request-only filter")
	}
	if _, ok := simple.Classify(Observation{MsgType: "INVITE", SrcHost: "10.0.0.8", SrcPort: "1", DstHost: "10.0.0.3", DstPort: "2"}); ok {
		t.Fatalf("hosts outside the allow-list must be rejected")
	}
	if _, ok := simple.Classify(Observation{MsgType: "INVITE"}); !ok {
		t.Fatalf("host filter must not apply without host information")
	}

	r, ok := publish.Classify(Observation{Message: message(t, okText, "TLS"), SrcHost: "10.0.0.3", SrcPort: "6000", DstHost: "10.0.0.1", DstPort: "8888"})
	want := []string{"10.0.0.1", "10.0.0.3", "TLS", "8888", "6000"}
	if !ok || r.Direction != link.In || !reflect.DeepEqual(r.Link.Fields(), want) {
		t.Fatalf("publish: got %v %s %v", ok, r.Direction, r.Link.Fields())
	}
	if _, ok := publish.Classify(Observation{MsgType: "PUBLISH", SrcHost: "10.0.0.1", SrcPort: "8888", DstHost: "10.0.0.2", DstPort: "6000"}); ok {
		t.Fatalf("excluded host must be rejected")
	}
}

func TestKnownPortsAlwaysIncludeWellKnown(t *testing.T) {
	c := New(nil, []string{"10.0.0.8"}, []string{"8888", "05070"})
	if got, want := c.KnownPorts(), []string{"5060", "5061", "5070", "8888"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
	if got := c.KnownServers(); !reflect.DeepEqual(got, []string{"10.0.0.8"}) {
		t.Fatalf("unexpected servers %v", got)
	}
}
