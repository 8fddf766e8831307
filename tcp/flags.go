package tcp

import "math/bits"

// Flags is the TCP control bit field occupying byte 13 of the header.
type Flags uint8

const (
	FlagFIN Flags = 1 << iota // FlagFIN - no more data from sender.
	FlagSYN                   // FlagSYN - synchronize sequence numbers.
	FlagRST                   // FlagRST - reset the connection.
	FlagPSH                   // FlagPSH - push function.
	FlagACK                   // FlagACK - acknowledgment field significant.
	FlagURG                   // FlagURG - urgent pointer field significant.
	FlagECE                   // FlagECE - ECN-Echo, never set by this engine, preserved on the wire.
	FlagCWR                   // FlagCWR - congestion window reduced, never set by this engine.
)

const (
	synack = FlagSYN | FlagACK
	finack = FlagFIN | FlagACK
	pshack = FlagPSH | FlagACK
)

// HasAll reports whether every bit in mask is set.
func (f Flags) HasAll(mask Flags) bool { return f&mask == mask }

// HasAny reports whether any bit in mask is set.
func (f Flags) HasAny(mask Flags) bool { return f&mask != 0 }

// IsPureACK reports whether f is exactly ACK with no other control bit.
// Combined with a zero payload length, this identifies a pure ACK: a
// segment that never occupies sequence space and is never retransmitted.
func (f Flags) IsPureACK() bool { return f == FlagACK }

const strflags = "FINSYNRSTPSHACKURGECECWR"

// String renders the set flags in a fixed FIN..CWR order, e.g. "[SYN,ACK]".
func (f Flags) String() string {
	switch f {
	case 0:
		return "[]"
	case synack:
		return "[SYN,ACK]"
	case finack:
		return "[FIN,ACK]"
	case pshack:
		return "[PSH,ACK]"
	case FlagACK:
		return "[ACK]"
	case FlagSYN:
		return "[SYN]"
	case FlagFIN:
		return "[FIN]"
	case FlagRST:
		return "[RST]"
	}
	buf := make([]byte, 0, 2+4*bits.OnesCount8(uint8(f)))
	buf = append(buf, '[')
	buf = f.AppendFormat(buf)
	buf = append(buf, ']')
	return string(buf)
}

// AppendFormat appends a comma-separated, allocation-free flag rendering to b.
func (f Flags) AppendFormat(b []byte) []byte {
	const flaglen = 3
	first := true
	for f != 0 {
		i := bits.TrailingZeros8(uint8(f))
		if !first {
			b = append(b, ',')
		}
		first = false
		b = append(b, strflags[i*flaglen:i*flaglen+flaglen]...)
		f &= ^(1 << i)
	}
	return b
}
