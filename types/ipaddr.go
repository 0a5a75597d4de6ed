package types

import (
	"fmt"
	"net/netip"
	"strings"
)

// An IPAddr is an extension value representing an IPv4 or IPv6 address or
// prefix. It is opaque to the evaluator, which manipulates it only through
// the extension function registry.
type IPAddr netip.Prefix

// ParseIPAddr parses a string in the form accepted by the `ip` extension
// function: a bare address (`192.168.0.1`, `::1`) or a CIDR prefix
// (`192.168.0.0/24`). Zoned addresses are rejected.
func ParseIPAddr(s string) (IPAddr, error) {
	if strings.ContainsRune(s, '%') {
		return IPAddr{}, fmt.Errorf("error parsing ip value `%s`: zones are not supported", s)
	}
	if strings.ContainsRune(s, '/') {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return IPAddr{}, fmt.Errorf("error parsing ip value `%s`: %w", s, err)
		}
		return IPAddr(p), nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return IPAddr{}, fmt.Errorf("error parsing ip value `%s`: %w", s, err)
	}
	return IPAddr(netip.PrefixFrom(a, a.BitLen())), nil
}

// Prefix returns the underlying netip.Prefix.
func (v IPAddr) Prefix() netip.Prefix { return netip.Prefix(v) }

// Addr returns the underlying netip.Addr.
func (v IPAddr) Addr() netip.Addr { return netip.Prefix(v).Addr() }

// IsIPv4 returns true for IPv4 addresses and prefixes.
func (v IPAddr) IsIPv4() bool { return v.Addr().Is4() }

// IsIPv6 returns true for IPv6 addresses and prefixes.
func (v IPAddr) IsIPv6() bool { return v.Addr().Is6() }

// IsLoopback returns true if the value is entirely contained in the loopback
// range for its address family.
func (v IPAddr) IsLoopback() bool {
	var loop netip.Prefix
	if v.IsIPv4() {
		loop = netip.MustParsePrefix("127.0.0.0/8")
	} else {
		loop = netip.MustParsePrefix("::1/128")
	}
	return loop.Contains(v.Addr()) && v.Prefix().Bits() >= loop.Bits()
}

// IsMulticast returns true if the value is entirely contained in the
// multicast range for its address family.
func (v IPAddr) IsMulticast() bool {
	var cast netip.Prefix
	if v.IsIPv4() {
		cast = netip.MustParsePrefix("224.0.0.0/4")
	} else {
		cast = netip.MustParsePrefix("ff00::/8")
	}
	return cast.Contains(v.Addr()) && v.Prefix().Bits() >= cast.Bits()
}

// Contains returns true if the prefix o is entirely contained within v.
func (v IPAddr) Contains(o IPAddr) bool {
	return v.Prefix().Contains(o.Addr()) && o.Prefix().Bits() >= v.Prefix().Bits()
}

// Equal returns true for identical address and prefix length.
func (v IPAddr) Equal(b Value) bool {
	o, ok := b.(IPAddr)
	return ok && netip.Prefix(v) == netip.Prefix(o)
}

// String produces a string representation, e.g. `192.168.0.0/24`. Full-length
// prefixes render as a bare address.
func (v IPAddr) String() string {
	if v.Prefix().Bits() == v.Addr().BitLen() {
		return v.Addr().String()
	}
	return v.Prefix().String()
}

// MarshalCedar produces a valid MarshalCedar language representation of the
// IPAddr, e.g. `ip("192.168.0.0/24")`.
func (v IPAddr) MarshalCedar() []byte {
	return []byte(`ip("` + v.String() + `")`)
}

func (v IPAddr) Hash() uint64 { return hashTagged("ipaddr", hashString(v.String())) }
