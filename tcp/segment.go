package tcp

// Segment is an incoming or outgoing TCP segment projected into the
// sequence space, independent of its wire encoding.
type Segment struct {
	SEQ     Value // sequence number of the first octet (ISN itself, if SYN is set).
	ACK     Value // acknowledgment number, meaningful when Flags has ACK set.
	DATALEN Size  // payload length, excluding SYN/FIN.
	WND     Size  // advertised window.
	Flags   Flags
}

// Len returns the segment's length in sequence space, counting SYN and FIN
// as one octet each.
func (seg Segment) Len() Size {
	n := seg.DATALEN
	if seg.Flags.HasAny(FlagSYN) {
		n++
	}
	if seg.Flags.HasAny(FlagFIN) {
		n++
	}
	return n
}

// Last returns the sequence number of the segment's final octet. For a
// zero-length segment (pure ACK) this equals SEQ.
func (seg Segment) Last() Value {
	n := seg.Len()
	if n == 0 {
		return seg.SEQ
	}
	return Add(seg.SEQ, n) - 1
}

// IsPureACK reports whether the segment carries no sequence-space-consuming
// control bit and no payload: such segments are never retransmitted.
func (seg Segment) IsPureACK() bool {
	return seg.Flags.IsPureACK() && seg.DATALEN == 0
}

// State enumerates the states a ToyTCP connection progresses through.
// Every state from Listen through LastAck except TimeWait is driven by a
// segment handler in the engine package, including the FinWait1/2 and
// Closing states used to complete the closing sequence beyond the bare
// reference; TimeWait sockets are removed by the timer goroutine.
type State uint8

const (
	StateClosed State = iota
	StateListen
	StateSynSent
	StateSynRcvd
	StateEstablished
	StateFinWait1
	StateFinWait2
	StateClosing
	StateTimeWait
	StateCloseWait
	StateLastAck
)

var stateNames = [...]string{
	StateClosed:      "CLOSED",
	StateListen:      "LISTEN",
	StateSynSent:     "SYN_SENT",
	StateSynRcvd:     "SYN_RCVD",
	StateEstablished: "ESTABLISHED",
	StateFinWait1:    "FIN_WAIT_1",
	StateFinWait2:    "FIN_WAIT_2",
	StateClosing:     "CLOSING",
	StateTimeWait:    "TIME_WAIT",
	StateCloseWait:   "CLOSE_WAIT",
	StateLastAck:     "LAST_ACK",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// IsSynchronized reports whether the connection has passed through the
// three-way handshake.
func (s State) IsSynchronized() bool { return s >= StateEstablished }

// IsClosing reports whether the connection is tearing down but the socket
// still occupies the table.
func (s State) IsClosing() bool {
	return s == StateFinWait1 || s == StateFinWait2 || s == StateClosing ||
		s == StateTimeWait || s == StateCloseWait || s == StateLastAck
}
