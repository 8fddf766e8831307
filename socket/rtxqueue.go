package socket

import (
	"time"

	"github.com/momotaro98/toytcp/tcp"
)

// RtxEntry is one outstanding, unacknowledged segment.
type RtxEntry struct {
	Seq           tcp.Value
	Len           tcp.Size // sequence-space length, i.e. Segment.Len()
	PayloadLen    tcp.Size // data-only length; what send window credit is restored by on retirement
	Raw           []byte   // full serialized frame, ready for retransmission verbatim
	LastTx        time.Time
	TransmitCount int
	IsFIN         bool
}

// RtxQueue is the ordered, non-decreasing-sequence-number retransmission
// queue described for each socket: the oldest unacknowledged segment is
// always at index 0. Pure ACKs are never enqueued, since they occupy no
// sequence space and therefore can never themselves be acknowledged.
type RtxQueue struct {
	entries []RtxEntry
}

// Enqueue appends e to the tail. Callers must not enqueue pure ACKs.
func (q *RtxQueue) Enqueue(e RtxEntry) {
	q.entries = append(q.entries, e)
}

// Head returns the oldest entry, or ok=false if the queue is empty.
func (q *RtxQueue) Head() (RtxEntry, bool) {
	if len(q.entries) == 0 {
		return RtxEntry{}, false
	}
	return q.entries[0], true
}

// PopHead removes and returns the oldest entry.
func (q *RtxQueue) PopHead() RtxEntry {
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e
}

// Empty reports whether the queue has no outstanding entries.
func (q *RtxQueue) Empty() bool { return len(q.entries) == 0 }

// Retire removes every entry whose last sequence octet falls before una
// (i.e. the entry's entire span is covered by the cumulative ack) and
// returns them in head-to-tail order. A segment only partially covered by
// una stays at the head, uncredited, until a later ack fully covers it.
func (q *RtxQueue) Retire(una tcp.Value) []RtxEntry {
	i := 0
	for i < len(q.entries) && tcp.Add(q.entries[i].Seq, q.entries[i].Len).LessThanEq(una) {
		i++
	}
	if i == 0 {
		return nil
	}
	retired := append([]RtxEntry(nil), q.entries[:i]...)
	q.entries = q.entries[i:]
	return retired
}

// ReplaceHead swaps out the current head with a retransmitted copy,
// preserving queue order: the entry stays at the head rather than moving to
// the tail. The engine's timer uses MoveHeadToTail instead.
func (q *RtxQueue) ReplaceHead(e RtxEntry) {
	q.entries[0] = e
}

// MoveHeadToTail pops the head and re-appends e (its retransmitted
// successor) at the tail, matching the reference's "retransmit, reappend at
// tail" behavior.
func (q *RtxQueue) MoveHeadToTail(e RtxEntry) {
	q.entries = q.entries[1:]
	q.entries = append(q.entries, e)
}

// Len reports the number of outstanding entries.
func (q *RtxQueue) Len() int { return len(q.entries) }
