package link

import "strings"

// Direction tells which side of a link sent a message.
type Direction string

const (
	// Out is server to client.
	Out Direction = "OUT"
	// In is client to server.
	In Direction = "IN"
	// Both is used when the direction is not tracked or cannot be known.
	Both Direction = "BOTH"
)

// Arrow returns the short rendering used in tabular reports.
func (d Direction) Arrow() string {
	switch d {
	case Out:
		return "->"
	case In:
		return "<-"
	default:
		return "<>"
	}
}

// Aware reports whether d belongs to the IN/OUT vocabulary.
func (d Direction) Aware() bool {
	return d == In || d == Out
}

// ParseDirection accepts names (case-insensitive) and report arrows.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN", "<-":
		return In, true
	case "OUT", "->":
		return Out, true
	case "BOTH", "<>":
		return Both, true
	default:
		return "", false
	}
}
