package models

import "net/netip"

// IPVersion is the address family a caller or a record address belongs to.
type IPVersion uint8

const (
	// IPUnknown is used when the address could not be parsed.
	IPUnknown IPVersion = iota
	// IPv4 address family.
	IPv4
	// IPv6 address family.
	IPv6
)

// String implements fmt.Stringer.
func (v IPVersion) String() string {
	switch v {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	default:
		return "unknown"
	}
}

// ClassifyIP parses an address literal and returns its canonical form and family.
// IPv4-mapped IPv6 addresses (::ffff:1.2.3.4) are reported as IPv4.
// Zones are dropped since a zoned link-local address is useless to remote clients.
func ClassifyIP(s string) (string, IPVersion) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return s, IPUnknown
	}

	addr = addr.Unmap().WithZone("")
	if addr.Is4() {
		return addr.String(), IPv4
	}

	return addr.String(), IPv6
}

// IsIPv4Literal reports whether s is a plain dotted IPv4 address.
func IsIPv4Literal(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}

	return addr.Is4()
}
