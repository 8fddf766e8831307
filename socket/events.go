package socket

// EventKind enumerates the protocol events a socket publishes to wake an
// application thread suspended on accept/connect/send/close.
type EventKind uint8

const (
	// ConnectionCompleted fires on the listening socket when a child
	// reaches ESTABLISHED (wakes accept), and on a connecting socket when
	// its own handshake completes (wakes connect).
	ConnectionCompleted EventKind = iota
	// Acked fires whenever the retransmission queue retires one or more
	// entries, restoring send window (wakes a blocked send).
	Acked
	// DataArrived fires when in-order payload becomes available to read,
	// or when a FIN delivers EOF.
	DataArrived
	// ConnectionClosed fires when the connection terminates, whether
	// gracefully (LAST_ACK's ACK observed) or abortively (retransmission
	// limit reached).
	ConnectionClosed
)

func (k EventKind) String() string {
	switch k {
	case ConnectionCompleted:
		return "ConnectionCompleted"
	case Acked:
		return "Acked"
	case DataArrived:
		return "DataArrived"
	case ConnectionClosed:
		return "ConnectionClosed"
	default:
		return "Unknown"
	}
}

// Event is a single notification published against a socket ID.
type Event struct {
	Sock ID
	Kind EventKind
	// EOF is set alongside DataArrived when the payload it announces ends
	// in a FIN: the reader should not expect more data after draining it.
	EOF bool
	// Err carries the abort reason for ConnectionClosed when the closure
	// was not a clean LAST_ACK/FIN exchange (e.g. retransmission limit
	// reached).
	Err error
}

// EventBus is a small buffered channel private to one socket. Unlike a
// single engine-wide mutex-guarded slot, each socket gets its own, sized to
// the number of distinct event kinds it can race on, so a publisher can
// never be blocked by an unrelated waiter. Every kind shares the one
// channel: whichever waiter on the socket receives next gets the event,
// whatever its kind.
type EventBus struct {
	ch chan Event
}

// NewEventBus allocates a bus with enough capacity for one pending event
// per EventKind.
func NewEventBus() *EventBus {
	return &EventBus{ch: make(chan Event, 4)}
}

// Publish enqueues ev without blocking. If the channel is saturated
// (four unconsumed events already pending, one per kind at most having
// been the design budget) the event is dropped rather than stalling the
// receive or timer goroutine; a waiter that missed it observes the
// resulting state change only when its retry loop next re-checks the
// socket after some later wakeup.
func (b *EventBus) Publish(ev Event) {
	select {
	case b.ch <- ev:
	default:
	}
}

// Wait returns the bus's receive channel without blocking; callers receive
// from it (the channel is never closed), typically in a loop that filters
// for the Kind they care about.
func (b *EventBus) Wait() <-chan Event {
	return b.ch
}
