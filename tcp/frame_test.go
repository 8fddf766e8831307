package tcp

import (
	"bytes"
	"testing"

	"github.com/go-test/deep"
)

func TestFrameRoundTrip(t *testing.T) {
	frm := NewFrameWithPayload([]byte("hello"))
	frm.SetSourcePort(40000)
	frm.SetDestinationPort(80)
	frm.SetSeq(12345)
	frm.SetAck(6789)
	frm.SetDataOffset(5)
	frm.SetControlFlags(FlagPSH | FlagACK)
	frm.SetWindowSize(4380)

	if frm.SourcePort() != 40000 || frm.DestinationPort() != 80 {
		t.Fatal("port round-trip failed")
	}
	if frm.Seq() != 12345 || frm.Ack() != 6789 {
		t.Fatal("seq/ack round-trip failed")
	}
	if frm.ControlFlags() != (FlagPSH | FlagACK) {
		t.Fatalf("flags round-trip failed: got %s", frm.ControlFlags())
	}
	if frm.WindowSize() != 4380 {
		t.Fatal("window round-trip failed")
	}
	if !bytes.Equal(frm.Payload(), []byte("hello")) {
		t.Fatalf("payload round-trip failed, got %q", frm.Payload())
	}
}

func TestFrameSegmentRoundTrip(t *testing.T) {
	want := Segment{SEQ: 1, ACK: 2, WND: 3, DATALEN: 4, Flags: FlagSYN | FlagACK}
	frm := NewFrameWithPayload(make([]byte, 4))
	frm.SetSegment(want)
	got := frm.Segment()
	if diff := deep.Equal(want, got); diff != nil {
		t.Errorf("segment mismatch: %v", diff)
	}
}

func TestChecksumRoundTrip(t *testing.T) {
	src := [4]byte{10, 0, 0, 1}
	dst := [4]byte{10, 0, 0, 2}
	frm := NewFrameWithPayload([]byte("payload"))
	frm.SetSourcePort(1234)
	frm.SetDestinationPort(80)
	frm.SetSeq(1)
	frm.SetAck(0)
	frm.SetDataOffset(5)
	frm.SetControlFlags(FlagSYN)
	frm.SetWindowSize(1024)

	StampChecksum(frm, src, dst)
	if !VerifyChecksum(frm, src, dst) {
		t.Fatal("freshly stamped checksum should verify")
	}
	frm.RawData()[len(frm.RawData())-1] ^= 0xff
	if VerifyChecksum(frm, src, dst) {
		t.Fatal("corrupted payload should fail checksum verification")
	}
}

func TestShortBufferRejected(t *testing.T) {
	_, err := NewFrame(make([]byte, 10))
	if err != ErrShortBuffer {
		t.Fatalf("want ErrShortBuffer, got %v", err)
	}
}
