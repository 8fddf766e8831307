package tcp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed TCP header length this module ever produces or
// accepts: no options, no variable data offset.
const HeaderSize = 20

// ErrShortBuffer is returned by NewFrame when buf is smaller than HeaderSize.
var ErrShortBuffer = errors.New("tcp: buffer shorter than header size")

// NewFrame wraps buf as a Frame. buf must be at least HeaderSize bytes;
// anything beyond the header is the payload.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < HeaderSize {
		return Frame{}, ErrShortBuffer
	}
	return Frame{buf: buf}, nil
}

// NewFrameWithPayload allocates a zeroed HeaderSize+len(payload) buffer,
// copies payload into the trailing region and returns the resulting Frame.
func NewFrameWithPayload(payload []byte) Frame {
	buf := make([]byte, HeaderSize+len(payload))
	copy(buf[HeaderSize:], payload)
	return Frame{buf: buf}
}

// Frame is a fixed 20-byte TCP header view over a byte buffer, with typed
// accessors for every RFC 793 header field. See RFC 9293.
type Frame struct {
	buf []byte
}

// RawData returns the underlying buffer the Frame was constructed with,
// header and payload included.
func (f Frame) RawData() []byte { return f.buf }

func (f Frame) SourcePort() uint16      { return binary.BigEndian.Uint16(f.buf[0:2]) }
func (f Frame) SetSourcePort(p uint16)  { binary.BigEndian.PutUint16(f.buf[0:2], p) }
func (f Frame) DestinationPort() uint16 { return binary.BigEndian.Uint16(f.buf[2:4]) }
func (f Frame) SetDestinationPort(p uint16) {
	binary.BigEndian.PutUint16(f.buf[2:4], p)
}

// Seq returns the sequence number of the segment's first octet (the ISN
// itself when SYN is set).
func (f Frame) Seq() Value { return Value(binary.BigEndian.Uint32(f.buf[4:8])) }
func (f Frame) SetSeq(v Value) {
	binary.BigEndian.PutUint32(f.buf[4:8], uint32(v))
}

// Ack returns the acknowledgment number, meaningful when the ACK flag is set.
func (f Frame) Ack() Value { return Value(binary.BigEndian.Uint32(f.buf[8:12])) }
func (f Frame) SetAck(v Value) {
	binary.BigEndian.PutUint32(f.buf[8:12], uint32(v))
}

// DataOffset returns the data offset field (upper nibble of byte 12), a
// word count. This module always writes 5 (no options).
func (f Frame) DataOffset() uint8 { return f.buf[12] >> 4 }

// SetDataOffset sets the data offset field.
func (f Frame) SetDataOffset(words uint8) {
	f.buf[12] = (words << 4) | (f.buf[12] & 0x0f)
}

// ControlFlags returns the TCP control bits occupying byte 13.
func (f Frame) ControlFlags() Flags { return Flags(f.buf[13]) }
func (f Frame) SetControlFlags(flags Flags) {
	f.buf[13] = byte(flags)
}

func (f Frame) WindowSize() uint16     { return binary.BigEndian.Uint16(f.buf[14:16]) }
func (f Frame) SetWindowSize(v uint16) { binary.BigEndian.PutUint16(f.buf[14:16], v) }
func (f Frame) CRC() uint16            { return binary.BigEndian.Uint16(f.buf[16:18]) }
func (f Frame) SetCRC(v uint16)        { binary.BigEndian.PutUint16(f.buf[16:18], v) }
func (f Frame) UrgentPtr() uint16      { return binary.BigEndian.Uint16(f.buf[18:20]) }
func (f Frame) SetUrgentPtr(v uint16)  { binary.BigEndian.PutUint16(f.buf[18:20], v) }

// HeaderLength returns the header length in bytes implied by DataOffset.
func (f Frame) HeaderLength() int { return 4 * int(f.DataOffset()) }

// Payload returns the bytes following the header. Call ValidateSize first
// if the frame was built from untrusted input.
func (f Frame) Payload() []byte {
	off := f.HeaderLength()
	if off == 0 {
		off = HeaderSize
	}
	return f.buf[off:]
}

// SetPayload copies payload into the frame's trailing region. The frame's
// backing buffer must already be sized HeaderSize+len(payload).
func (f Frame) SetPayload(payload []byte) {
	copy(f.buf[HeaderSize:], payload)
}

// Segment projects the header and payload length into a Segment.
func (f Frame) Segment() Segment {
	return Segment{
		SEQ:     f.Seq(),
		ACK:     f.Ack(),
		WND:     Size(f.WindowSize()),
		DATALEN: Size(len(f.Payload())),
		Flags:   f.ControlFlags(),
	}
}

// SetSegment writes seg's sequence, ack, flags and window fields into the
// header, with a fixed data offset of 5 words (no options).
func (f Frame) SetSegment(seg Segment) {
	f.SetSeq(seg.SEQ)
	f.SetAck(seg.ACK)
	f.SetDataOffset(5)
	f.SetControlFlags(seg.Flags)
	f.SetWindowSize(uint16(seg.WND))
}

// ClearHeader zeros the fixed header region, leaving any payload untouched.
func (f Frame) ClearHeader() {
	for i := range f.buf[:HeaderSize] {
		f.buf[i] = 0
	}
}

func (f Frame) String() string {
	seg := f.Segment()
	return fmt.Sprintf("TCP :%d -> :%d <SEQ=%d><ACK=%d><WND=%d>%s len=%d",
		f.SourcePort(), f.DestinationPort(), seg.SEQ, seg.ACK, seg.WND, seg.Flags, seg.DATALEN)
}

// ValidateSize checks that the frame's declared header length is
// internally consistent with the backing buffer.
func (f Frame) ValidateSize() error {
	off := f.HeaderLength()
	if off < HeaderSize {
		return fmt.Errorf("tcp: data offset %d below minimum header size", off)
	}
	if off > len(f.buf) {
		return fmt.Errorf("tcp: data offset %d exceeds buffer length %d", off, len(f.buf))
	}
	return nil
}

// ValidateExceptCRC performs ValidateSize plus the header-field checks that
// do not require the pseudo-header (ports must be non-zero).
func (f Frame) ValidateExceptCRC() error {
	if err := f.ValidateSize(); err != nil {
		return err
	}
	if f.SourcePort() == 0 {
		return errors.New("tcp: zero source port")
	}
	if f.DestinationPort() == 0 {
		return errors.New("tcp: zero destination port")
	}
	return nil
}
