package link

import (
	"sort"
	"strconv"
	"strings"

	"sipcounter/internal/ports"
)

// Resolve builds the canonical full key of a message once its direction is
// known. For Out the source is the server, for In the destination is.
// Both, or missing host information, yields the local/remote placeholders
// with empty ports.
//
// Swapping src and dst together with the direction always produces the same
// key, which is what keeps one physical flow on one link. Ports are stored
// in decimal form so "05060" and "5060" are the same link.
func Resolve(srcHost, srcPort, dstHost, dstPort, proto string, dir Direction) Key {
	proto = strings.ToUpper(strings.TrimSpace(proto))
	if proto == "" {
		proto = DefaultProtocol
	}

	if dir == Both || srcHost == "" || dstHost == "" {
		return New(Local, Remote, proto, "", "")
	}
	srcPort, dstPort = ports.Normalize(srcPort), ports.Normalize(dstPort)
	if dir == In {
		return New(dstHost, srcHost, proto, dstPort, srcPort)
	}
	return New(srcHost, dstHost, proto, srcPort, dstPort)
}

// Compare orders keys by (server_host, protocol, server_port, client_port,
// client_host) looking only at fields present in both keys. Ports sort
// empty first, then numerically, then any other value as a string. On a
// full tie the shorter key comes first. Compare is 0 only for equal keys.
func Compare(a, b Key) int {
	for _, idx := range displayOrder {
		if idx >= a.n || idx >= b.n {
			continue
		}
		var c int
		if idx == ServerPort || idx == ClientPort {
			c = comparePorts(a.fields[idx], b.fields[idx])
		} else {
			c = strings.Compare(a.fields[idx], b.fields[idx])
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case a.n < b.n:
		return -1
	case a.n > b.n:
		return 1
	}
	return 0
}

// Less reports whether a sorts before b.
func Less(a, b Key) bool { return Compare(a, b) < 0 }

// Sort sorts keys in canonical order.
func Sort(keys []Key) {
	sort.SliceStable(keys, func(i, j int) bool { return Less(keys[i], keys[j]) })
}

func comparePorts(a, b string) int {
	ca, na := portClass(a)
	cb, nb := portClass(b)
	switch {
	case ca != cb:
		return ca - cb
	case na < nb:
		return -1
	case na > nb:
		return 1
	}
	// "05060" and "5060" tie numerically.
	return strings.Compare(a, b)
}

// portClass ranks empty ports before numeric ones and numeric ones before
// anything else.
func portClass(p string) (class, n int) {
	if p == "" {
		return 0, 0
	}
	if v, err := strconv.Atoi(p); err == nil {
		return 1, v
	}
	return 2, 0
}
