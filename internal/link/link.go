package link

// This package defines the identity of a communication link between two SIP
// entities and the direction vocabulary used when counting messages on it.
//
// IMPORTANT:
// - Keep this package free from counting and I/O concerns.
// - A Key must stay comparable so it can be used directly as a map key.

import (
	"encoding/json"
	"strings"
)

// MaxDepth is the number of fields of a full link key.
const MaxDepth = 5

// Field positions inside a Key.
const (
	ServerHost = iota
	ClientHost
	Protocol
	ServerPort
	ClientPort
)

// Role names used instead of host addresses when those are not known.
const (
	Local  = "local"
	Remote = "remote"
)

// DefaultProtocol is assumed when the transport cannot be determined.
const DefaultProtocol = "UDP"

// Key is a (possibly truncated) link identity:
//
//	(server_host, client_host, protocol, server_port, client_port)
//
// Fields beyond Len() are always empty so that two keys built from the
// same prefix compare equal.
type Key struct {
	fields [MaxDepth]string
	n      int
}

// New builds a key from up to MaxDepth fields. Extra fields are dropped.
func New(fields ...string) Key {
	var k Key
	for i, f := range fields {
		if i == MaxDepth {
			break
		}
		k.fields[i] = f
		k.n++
	}
	return k
}

// Len returns the number of significant fields.
func (k Key) Len() int { return k.n }

// Field returns the i-th field, or "" when i is outside the key.
func (k Key) Field(i int) string {
	if i < 0 || i >= k.n {
		return ""
	}
	return k.fields[i]
}

// Fields returns a copy of the significant fields.
func (k Key) Fields() []string {
	out := make([]string, k.n)
	copy(out, k.fields[:k.n])
	return out
}

// Prefix truncates the key to depth fields. Depth is clamped to [0, Len()].
func (k Key) Prefix(depth int) Key {
	if depth < 0 {
		depth = 0
	}
	if depth >= k.n {
		return k
	}
	var p Key
	copy(p.fields[:depth], k.fields[:depth])
	p.n = depth
	return p
}

// displayOrder is the order fields are rendered and sorted in: the server
// side first, then the service, then the client.
var displayOrder = [MaxDepth]int{ServerHost, Protocol, ServerPort, ClientPort, ClientHost}

// Join renders the non-empty fields in display order separated by sep.
func (k Key) Join(sep string) string {
	parts := make([]string, 0, k.n)
	for _, idx := range displayOrder {
		if idx >= k.n || k.fields[idx] == "" {
			continue
		}
		parts = append(parts, k.fields[idx])
	}
	return strings.Join(parts, sep)
}

func (k Key) String() string { return k.Join("-") }

// MarshalJSON encodes the key as an array of its significant fields.
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Fields())
}

// UnmarshalJSON decodes an array of up to MaxDepth strings.
func (k *Key) UnmarshalJSON(b []byte) error {
	var fields []string
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*k = New(fields...)
	return nil
}
