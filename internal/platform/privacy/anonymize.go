// Package privacy masks client addresses before they reach logs.
package privacy

import "net/netip"

// AnonymizeIP keeps only the network part of an address: the /24 for IPv4
// and the /48 for IPv6. Empty input yields "unknown", unparseable input "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}
