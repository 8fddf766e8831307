package socket

import (
	"bytes"
	"time"

	"github.com/momotaro98/toytcp/tcp"
)

// SendParams tracks the sender's view of the sequence space.
type SendParams struct {
	UNA tcp.Value // oldest unacknowledged sequence number
	NXT tcp.Value // sequence number of the next byte to be produced
	WND tcp.Size  // peer's advertised window, tracked as remaining send credit
	ISS tcp.Value // initial send sequence number, fixed at birth
}

// RecvParams tracks the receiver's view of the sequence space.
type RecvParams struct {
	NXT tcp.Value // next sequence number expected from the peer
	WND tcp.Size  // our advertised receive window
	IRS tcp.Value // initial receive sequence number, fixed at birth
}

// Socket is the full per-connection (or per-listener) record kept in the
// engine's socket table.
type Socket struct {
	ID     ID
	Status tcp.State

	Send SendParams
	Recv RecvParams

	Rtx     RtxQueue
	Reassem ReassemblyBuffer
	RecvBuf bytes.Buffer // contiguous, not-yet-read application data
	RecvEOF bool         // a FIN has been folded into RecvBuf's end

	// TimeWaitEntered records when Status became StateTimeWait, so the
	// timer goroutine knows when TimeWaitDuration has elapsed.
	TimeWaitEntered time.Time

	// Backlog holds IDs of fully established children awaiting Accept.
	// Only meaningful when Status == StateListen.
	Backlog []ID

	// ListeningSocket is the ID of this socket's parent listener while it
	// is a SYN_RCVD child. Represented as an ID, never a pointer, so the
	// cyclic listener<->child relationship is expressed purely through
	// table lookups. HasListeningSocket distinguishes "no parent" from the
	// zero ID, which is itself a valid listening key.
	ListeningSocket    ID
	HasListeningSocket bool

	Events *EventBus
}

// New returns a freshly initialized Socket for id in StateClosed; callers
// set Status and the relevant send/recv parameters before inserting it into
// the table.
func New(id ID) *Socket {
	return &Socket{
		ID:     id,
		Status: tcp.StateClosed,
		Events: NewEventBus(),
	}
}
