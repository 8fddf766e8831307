package engine

import "time"

// Config holds every tunable the protocol engine needs. DefaultConfig returns
// the values spec.md assigns to each: MSS 1460, ephemeral ports
// [40000, 60000), a fixed 3-second RTO, and five transmission attempts
// before a segment is abandoned.
type Config struct {
	// MSS bounds how many payload bytes Send puts in one segment.
	MSS int

	// EphemeralPortLo/Hi bound the half-open range connect draws client
	// ports from. Collisions with an existing four-tuple are resolved by
	// redraw, bounded by the range size.
	EphemeralPortLo uint16
	EphemeralPortHi uint16

	// RetransmissionTimeout is the fixed RTO; no RFC 6298 RTT estimation
	// is performed.
	RetransmissionTimeout time.Duration

	// MaxTransmissions is how many times a segment is sent (the original
	// transmission plus retransmissions) before the retransmission queue
	// gives up on it.
	MaxTransmissions int

	// TimerInterval is how often the retransmission timer goroutine scans
	// the socket table.
	TimerInterval time.Duration

	// TimeWaitDuration bounds how long a socket lingers in TIME_WAIT before
	// the timer goroutine removes it. This is not an MSL estimate (that is
	// an explicit Non-goal); it exists purely so TIME_WAIT sockets do not
	// accumulate forever.
	TimeWaitDuration time.Duration

	// RecvWindow is the fixed receive window this engine advertises.
	RecvWindow uint16

	// ISNSecret keys the ISN generator. Populate it from crypto/rand at
	// startup; a zero value still works but is predictable across process
	// restarts and should only be used in tests.
	ISNSecret [32]byte
}

// DefaultConfig returns the spec-mandated constants.
func DefaultConfig() Config {
	return Config{
		MSS:                   1460,
		EphemeralPortLo:       40000,
		EphemeralPortHi:       60000,
		RetransmissionTimeout: 3 * time.Second,
		MaxTransmissions:      5,
		TimerInterval:         100 * time.Millisecond,
		TimeWaitDuration:      6 * time.Second,
		RecvWindow:            4380,
	}
}
