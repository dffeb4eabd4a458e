package geoip

import (
	"net"
	"net/netip"

	"github.com/oschwald/geoip2-golang"
)

// Provider resolves server addresses to ISO country codes from a MaxMind country database.
// A nil *Provider is valid and resolves nothing.
type Provider struct {
	db *geoip2.Reader
}

// Open loads the MMDB file at path.
func Open(path string) (*Provider, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	return &Provider{db: db}, nil
}

// Close releases the database.
func (p *Provider) Close() error {
	if p == nil || p.db == nil {
		return nil
	}

	return p.db.Close()
}

// GetCountryCode returns the ISO country code of addr, or "" when it is unknown,
// not a public unicast address, or the database is not loaded.
func (p *Provider) GetCountryCode(addr string) string {
	if p == nil || p.db == nil {
		return ""
	}

	ip, ok := publicAddr(addr)
	if !ok {
		return ""
	}

	record, err := p.db.Country(net.IP(ip.AsSlice()))
	if err != nil {
		return ""
	}

	return record.Country.IsoCode
}

// publicAddr parses addr and reports whether it may be present in a public GeoIP database.
func publicAddr(addr string) (netip.Addr, bool) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return netip.Addr{}, false
	}
	ip = ip.Unmap().WithZone("")

	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsMulticast() {
		return netip.Addr{}, false
	}

	return ip, true
}
