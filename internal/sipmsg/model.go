package sipmsg

// This package is responsible ONLY for extracting the few fields the counter
// needs from a SIP message text: start line, CSeq method, top Via transport
// and whether the To header carries a dialog tag.
//
// IMPORTANT:
// - Keep this package free from counting and Prometheus dependencies.
// - Keep parsing tolerant: captures are often truncated, header names may use
//   compact forms (v:, t:) and line endings may be LF or CRLF.

// Kind tells what the start line of a message looked like.
type Kind int

const (
	KindUnknown Kind = iota
	KindRequest
	KindResponse
)

// Unknown is used as method and type when nothing could be extracted.
const Unknown = "UNKNOWN"

// Message is the parsed representation of a SIP message.
//
// Only the fields needed for classification are kept; the body and the
// remaining headers are ignored.
type Message struct {
	Kind Kind

	Method string // request method, empty for responses
	Status string // response status code, empty for requests

	RequestURI string

	CSeq  string // method named in the CSeq header
	Via   string // transport of the top Via header (UDP, TCP, TLS...)
	ToTag string // tag parameter of the To header
}

// IsRequest reports whether the start line is a request line.
func (m Message) IsRequest() bool { return m.Kind == KindRequest }

// IsResponse reports whether the start line is a status line.
func (m Message) IsResponse() bool { return m.Kind == KindResponse }

// Code returns the request method or the response status code.
// Messages with an unrecognised start line return Unknown.
func (m Message) Code() string {
	switch m.Kind {
	case KindRequest:
		return m.Method
	case KindResponse:
		return m.Status
	default:
		return Unknown
	}
}

// CSeqMethod returns the method of the CSeq header, or "" when absent.
func (m Message) CSeqMethod() string { return m.CSeq }

// Transport returns the top Via transport, or "" when absent.
func (m Message) Transport() string { return m.Via }

// InDialog reports whether the To header carries a tag.
func (m Message) InDialog() bool { return m.ToTag != "" }
