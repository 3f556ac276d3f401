package sipmsg

import (
	"bytes"
	"strings"
)

const sipVersion = "SIP/2.0"

// compact header forms (RFC 3261 section 7.3.3) we care about.
var compactNames = map[string]string{
	"v": "via",
	"t": "to",
}

// Parse extracts the classification fields from a SIP message text.
//
// The parser is tolerant:
// - leading whitespace and blank lines before the start line are skipped
// - parsing stops at the first empty line (end of headers)
// - only the first Via, To and CSeq headers are considered
// - header folding is not supported; continuation lines are ignored
//
// ok is false when the start line is neither a request line nor a status
// line. The returned Message is still usable and reports Unknown as Code.
func Parse(text string) (Message, bool) {
	var m Message

	text = strings.TrimLeft(text, " \t\r\n")
	if text == "" {
		return m, false
	}

	start, rest, _ := strings.Cut(text, "\n")
	parseStartLine(&m, strings.TrimRight(start, "\r"))

	for rest != "" {
		var line string
		line, rest, _ = strings.Cut(rest, "\n")
		line = strings.TrimRight(line, "\r")
		if line == "" {
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if long, ok := compactNames[name]; ok {
			name = long
		}
		value = strings.TrimSpace(value)

		switch name {
		case "cseq":
			if m.CSeq == "" {
				m.CSeq = parseCSeq(value)
			}
		case "via":
			if m.Via == "" {
				m.Via = parseViaTransport(value)
			}
		case "to":
			if m.ToTag == "" {
				m.ToTag = param(value, "tag")
			}
		}
	}

	return m, m.Kind != KindUnknown
}

// LooksLikeSIP reports whether payload starts with a SIP request or status
// line. It is cheap and used to discard non SIP datagrams before parsing.
func LooksLikeSIP(payload []byte) bool {
	payload = bytes.TrimLeft(payload, " \t\r\n")
	end := bytes.IndexByte(payload, '\n')
	if end < 0 {
		end = len(payload)
	}
	var m Message
	parseStartLine(&m, strings.TrimRight(string(payload[:end]), "\r"))
	return m.Kind != KindUnknown
}

func parseStartLine(m *Message, line string) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return
	}

	if strings.HasPrefix(fields[0], "SIP/") {
		if isStatusCode(fields[1]) {
			m.Kind = KindResponse
			m.Status = fields[1]
		}
		return
	}

	// Request-Line: Method SP Request-URI SP SIP-Version
	if len(fields) >= 3 && strings.EqualFold(fields[2], sipVersion) && isToken(fields[0]) {
		m.Kind = KindRequest
		m.Method = fields[0]
		m.RequestURI = fields[1]
	}
}

// parseCSeq returns the method of "CSeq: 102 INVITE".
func parseCSeq(value string) string {
	fields := strings.Fields(value)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// parseViaTransport returns "TCP" from "SIP/2.0/TCP host:port;branch=...".
// Only the first via-parm of a comma separated list is used.
func parseViaTransport(value string) string {
	first, _, _ := strings.Cut(value, ",")
	proto, _, _ := strings.Cut(strings.TrimSpace(first), " ")
	parts := strings.Split(proto, "/")
	if len(parts) != 3 || !strings.EqualFold(parts[0], "SIP") {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(parts[2]))
}

// param returns the value of a header parameter (";tag=abc"), or "".
// Parameters inside <...> belong to the URI and are skipped.
func param(value, name string) string {
	if i := strings.LastIndexByte(value, '>'); i >= 0 {
		value = value[i+1:]
	}
	for _, p := range strings.Split(value, ";")[1:] {
		k, v, _ := strings.Cut(strings.TrimSpace(p), "=")
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func isStatusCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s[0] >= '1' && s[0] <= '6'
}

func isToken(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case strings.ContainsRune("-.!%*_+`'~", r):
		default:
			return false
		}
	}
	return s != ""
}
