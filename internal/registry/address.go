package registry

import "github.com/woozymasta/lobby/internal/models"

// SelectAddress returns the address of rec that a caller using the given IP version should dial.
//
// IPv4 callers always get the stored IPv4, even when it is empty: an IPv4-only
// client cannot use an IPv6 literal and must treat the server as unreachable.
// IPv6 callers get the IPv6 address, falling back to IPv4 since they are
// expected to be dual-stack. Unknown callers are treated as IPv4.
func SelectAddress(rec models.Record, caller models.IPVersion) string {
	if caller == models.IPv6 && rec.IPv6 != "" {
		return rec.IPv6
	}

	return rec.IPv4
}
