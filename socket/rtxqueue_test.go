package socket

import (
	"testing"
	"time"

	"github.com/momotaro98/toytcp/tcp"
)

func TestRtxQueueRetireIsIdempotent(t *testing.T) {
	var q RtxQueue
	q.Enqueue(RtxEntry{Seq: 0, Len: 10, LastTx: time.Now(), TransmitCount: 1})
	q.Enqueue(RtxEntry{Seq: 10, Len: 10, LastTx: time.Now(), TransmitCount: 1})
	q.Enqueue(RtxEntry{Seq: 20, Len: 10, LastTx: time.Now(), TransmitCount: 1})

	retired := q.Retire(20)
	if len(retired) != 2 {
		t.Fatalf("want 2 retired entries, got %d", len(retired))
	}
	if q.Len() != 1 {
		t.Fatalf("want 1 remaining entry, got %d", q.Len())
	}

	again := q.Retire(20)
	if len(again) != 0 {
		t.Fatalf("retiring twice at the same una must be a no-op, got %d", len(again))
	}
	if q.Len() != 1 {
		t.Fatalf("queue should be unchanged by a repeated retire, got len %d", q.Len())
	}
}

func TestRtxQueueOrderingAcrossWrap(t *testing.T) {
	var q RtxQueue
	near := tcp.Value(0xfffffff0)
	q.Enqueue(RtxEntry{Seq: near, Len: 8})
	q.Enqueue(RtxEntry{Seq: tcp.Add(near, 8), Len: 8}) // wraps past 2^32

	retired := q.Retire(tcp.Add(near, 16))
	if len(retired) != 2 {
		t.Fatalf("want both pre-wrap and post-wrap entries retired, got %d", len(retired))
	}
}

func TestRtxQueueMoveHeadToTail(t *testing.T) {
	var q RtxQueue
	q.Enqueue(RtxEntry{Seq: 0, TransmitCount: 1})
	q.Enqueue(RtxEntry{Seq: 10, TransmitCount: 1})

	head, _ := q.Head()
	head.TransmitCount++
	q.MoveHeadToTail(head)

	if q.Len() != 2 {
		t.Fatalf("MoveHeadToTail must not change queue length, got %d", q.Len())
	}
	newHead, _ := q.Head()
	if newHead.Seq != 10 {
		t.Fatalf("old second entry should now be head, got seq %d", newHead.Seq)
	}
}
