// Package route resolves the local IPv4 source address the kernel would
// pick to reach a given destination, by querying the host's routing table
// through a netlink route query rather than shelling out to `ip
// route get`.
package route

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// SourceFor returns the preferred local IPv4 address for reaching dst, as
// determined by the kernel's routing table.
func SourceFor(dst [4]byte) ([4]byte, error) {
	dstIP := net.IPv4(dst[0], dst[1], dst[2], dst[3])
	routes, err := netlink.RouteGet(dstIP)
	if err != nil {
		return [4]byte{}, fmt.Errorf("route: query route to %s: %w", dstIP, err)
	}
	if len(routes) == 0 {
		return [4]byte{}, fmt.Errorf("route: no route to %s", dstIP)
	}
	src := routes[0].Src
	if src == nil {
		return [4]byte{}, fmt.Errorf("route: route to %s has no preferred source", dstIP)
	}
	v4 := src.To4()
	if v4 == nil {
		return [4]byte{}, fmt.Errorf("route: route to %s resolved to a non-IPv4 source %s", dstIP, src)
	}
	var out [4]byte
	copy(out[:], v4)
	return out, nil
}
