package engine

import (
	"log/slog"
	"time"

	"github.com/momotaro98/toytcp/socket"
	"github.com/momotaro98/toytcp/tcp"
)

// dueRetransmit is a snapshot of one socket's head-of-queue entry that
// needs to be resent, taken under the table lock so the actual I/O can
// happen without holding it.
type dueRetransmit struct {
	sockID socket.ID
	entry  socketRtxEntrySnapshot
}

type socketRtxEntrySnapshot struct {
	seq           tcp.Value
	raw           []byte
	transmitCount int
	isFIN         bool
}

// timerLoop is the retransmission timer: once per TimerInterval it walks
// the socket table, retires already-acknowledged heads, and resends or
// abandons timed-out ones. Per spec.md's recommended re-architecture, the
// actual (possibly slow) underlay sends happen with the table lock
// released, so a lossy or slow underlay cannot starve the receive
// dispatcher; the lock is only held to snapshot and to later commit.
func (e *Engine) timerLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.TimerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

func (e *Engine) tick() {
	now := time.Now()
	var due []dueRetransmit
	var abandoned []socket.ID
	var timedWaitDone []socket.ID

	e.mu.Lock()
	for id, s := range e.table {
		if s.Status == tcp.StateTimeWait {
			if now.Sub(s.TimeWaitEntered) >= e.cfg.TimeWaitDuration {
				timedWaitDone = append(timedWaitDone, id)
			}
			continue
		}

		head, ok := s.Rtx.Head()
		if !ok {
			continue
		}
		if head.Seq.LessThan(s.Send.UNA) {
			// Already acknowledged; the timer shares retirement logic with
			// the established handler, retiring lazily here.
			e.retire(s, s.Send.UNA)
			continue
		}
		if now.Sub(head.LastTx) < e.cfg.RetransmissionTimeout {
			continue
		}
		if head.TransmitCount >= e.cfg.MaxTransmissions {
			s.Rtx.PopHead()
			abandoned = append(abandoned, id)
			continue
		}
		due = append(due, dueRetransmit{
			sockID: id,
			entry: socketRtxEntrySnapshot{
				seq:           head.Seq,
				raw:           append([]byte(nil), head.Raw...),
				transmitCount: head.TransmitCount,
				isFIN:         head.IsFIN,
			},
		})
	}

	for _, id := range timedWaitDone {
		s := e.table[id]
		e.finishClose(s, nil)
	}
	for _, id := range abandoned {
		s, ok := e.table[id]
		if !ok {
			continue
		}
		if e.metrics != nil {
			e.metrics.ConnectionsAborted.Inc()
		}
		e.finishClose(s, errRetransmissionLimitReached)
	}
	e.mu.Unlock()

	// Perform the actual sends without the lock held.
	for _, d := range due {
		s := d.sockID
		if err := e.underlay.Send(s.RemoteAddr, d.entry.raw); err != nil {
			e.logAttrs(slog.LevelDebug, "retransmit send failed",
				slog.String("sock", s.String()), slog.String("err", err.Error()))
			continue
		}
		if e.metrics != nil {
			e.metrics.SegmentsSent.Inc()
			e.metrics.Retransmissions.Inc()
		}
		e.commitRetransmit(s, d.entry)
	}
}

// commitRetransmit reacquires the table lock to update the retransmitted
// entry's timestamp and counter, moving it to the tail.
func (e *Engine) commitRetransmit(id socket.ID, snap socketRtxEntrySnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.table[id]
	if !ok {
		return
	}
	head, ok := s.Rtx.Head()
	if !ok || head.Seq != snap.seq {
		return // queue moved on (e.g. acked) while the send was in flight
	}
	head.TransmitCount++
	head.LastTx = time.Now()
	s.Rtx.MoveHeadToTail(head)
}

var errRetransmissionLimitReached = retransmissionLimitError{}

type retransmissionLimitError struct{}

func (retransmissionLimitError) Error() string {
	return "engine: retransmission limit reached, connection aborted"
}
