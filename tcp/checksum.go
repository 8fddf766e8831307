package tcp

import "encoding/binary"

// Checksum computes the IPv4 TCP checksum over the pseudo-header
// (src, dst, zero, protocol=6, tcp length) followed by the TCP header and
// payload, per RFC 793 §3.1. It does not read or write the frame's CRC
// field; callers compare or stamp it separately.
func Checksum(src, dst [4]byte, segment []byte) uint16 {
	var sum uint32
	sum += uint32(binary.BigEndian.Uint16(src[0:2]))
	sum += uint32(binary.BigEndian.Uint16(src[2:4]))
	sum += uint32(binary.BigEndian.Uint16(dst[0:2]))
	sum += uint32(binary.BigEndian.Uint16(dst[2:4]))
	sum += uint32(6) // protocol TCP
	sum += uint32(len(segment))

	sum = sumBytes(sum, segment)

	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}

func sumBytes(sum uint32, b []byte) uint32 {
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i : i+2]))
	}
	if n%2 == 1 {
		sum += uint32(b[n-1]) << 8
	}
	return sum
}

// VerifyChecksum reports whether f's stamped CRC field matches the checksum
// computed over its own bytes with the given pseudo-header addresses. The
// CRC field is temporarily zeroed for the computation and restored
// afterward, since the field itself is not part of its own checksum input.
func VerifyChecksum(f Frame, src, dst [4]byte) bool {
	want := f.CRC()
	f.SetCRC(0)
	got := Checksum(src, dst, f.RawData())
	f.SetCRC(want)
	return got == want
}

// StampChecksum computes and writes f's CRC field for the given
// pseudo-header addresses.
func StampChecksum(f Frame, src, dst [4]byte) {
	f.SetCRC(0)
	f.SetCRC(Checksum(src, dst, f.RawData()))
}
