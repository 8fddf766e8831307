package underlay

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// RawIPv4 is the production Sender/Receiver, built on an
// golang.org/x/net/ipv4.RawConn over a raw IP socket for protocol 6 (TCP).
// It requires CAP_NET_RAW (or root) and relies on the operator having
// suppressed the kernel's own response to these segments (e.g. an iptables
// rule dropping outbound RSTs on the relevant interface), since the kernel
// TCP stack is never bypassed at the socket level.
type RawIPv4 struct {
	conn *ipv4.RawConn
	buf  [65535]byte
}

// NewRawIPv4 opens a raw IPv4 socket restricted to the TCP protocol number.
func NewRawIPv4() (*RawIPv4, error) {
	pc, err := net.ListenPacket("ip4:tcp", "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("underlay: open raw ipv4 socket: %w", err)
	}
	rc, err := ipv4.NewRawConn(pc)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("underlay: wrap raw conn: %w", err)
	}
	return &RawIPv4{conn: rc}, nil
}

// Send wraps segment in an IPv4 header addressed to dst and writes it.
// Source address selection is left to the kernel's routing table.
func (r *RawIPv4) Send(dst [4]byte, segment []byte) error {
	hdr := &ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + len(segment),
		TTL:      64,
		Protocol: 6, // TCP
		Dst:      net.IPv4(dst[0], dst[1], dst[2], dst[3]),
	}
	if err := r.conn.WriteTo(hdr, segment, nil); err != nil {
		return fmt.Errorf("underlay: write ipv4 datagram to %v: %w", hdr.Dst, err)
	}
	return nil
}

// Receive reads the next inbound IPv4/TCP datagram, returning its payload
// (the TCP segment), the sender's address and the destination address it
// was sent to.
func (r *RawIPv4) Receive() ([]byte, [4]byte, [4]byte, error) {
	hdr, payload, _, err := r.conn.ReadFrom(r.buf[:])
	if err != nil {
		return nil, [4]byte{}, [4]byte{}, fmt.Errorf("underlay: read ipv4 datagram: %w", err)
	}
	var src, dst [4]byte
	copy(src[:], hdr.Src.To4())
	copy(dst[:], hdr.Dst.To4())
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, src, dst, nil
}

// Close releases the underlying raw socket.
func (r *RawIPv4) Close() error {
	return r.conn.Close()
}
