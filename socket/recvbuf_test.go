package socket

import (
	"testing"

	"github.com/momotaro98/toytcp/tcp"
)

func TestReassemblyBufferCoalescesContiguousPrefix(t *testing.T) {
	var r ReassemblyBuffer
	r.Insert(tcp.Value(110), []byte("world"))
	r.Insert(tcp.Value(105), []byte("hello"))

	out, next := r.DrainContiguous(tcp.Value(105))
	if string(out) != "helloworld" {
		t.Fatalf("want coalesced %q, got %q", "helloworld", out)
	}
	if next != tcp.Value(115) {
		t.Fatalf("want next=115, got %d", next)
	}
	if r.Pending() != 0 {
		t.Fatalf("buffer should be empty after full drain, got %d pending", r.Pending())
	}
}

func TestReassemblyBufferLeavesGapUndrained(t *testing.T) {
	var r ReassemblyBuffer
	r.Insert(tcp.Value(120), []byte("tail"))

	out, next := r.DrainContiguous(tcp.Value(100))
	if len(out) != 0 {
		t.Fatalf("gap should prevent any drain, got %q", out)
	}
	if next != tcp.Value(100) {
		t.Fatalf("expected sequence should be unchanged, got %d", next)
	}
	if r.Pending() != 1 {
		t.Fatalf("segment beyond gap should remain buffered, got %d pending", r.Pending())
	}
}
