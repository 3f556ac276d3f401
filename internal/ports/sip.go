package ports

import "strconv"

// Well-known SIP service ports. They always count as server ports when
// guessing which side of a link is the server.
const (
	SIP    = "5060"
	SIPTLS = "5061"
)

// WellKnown returns the SIP service ports every counter treats as known.
func WellKnown() []string {
	return []string{SIP, SIPTLS}
}

// Normalize returns the decimal form of a port ("05060" => "5060").
// Values that are not ports are returned unchanged.
func Normalize(port string) string {
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return port
	}
	return strconv.Itoa(p)
}

// Number returns the numeric value of a port, or 0 when it isn't one.
func Number(port string) int {
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 {
		return 0
	}
	return p
}

// TransportFromPort returns a transport guess for a SIP service port.
//
// - 5061 is SIP over TLS
// - 5060 and anything else => "" (caller decides, usually from Via or L4)
func TransportFromPort(port string) string {
	if Normalize(port) == SIPTLS {
		return "TLS"
	}
	return ""
}
