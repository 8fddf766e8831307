package engine

import (
	"log/slog"
	"time"

	"github.com/momotaro98/toytcp/socket"
	"github.com/momotaro98/toytcp/tcp"
)

// sendRST replies to an unacceptable segment on id with a bare RST, without
// any associated socket (there may not be one). seq is chosen per RFC 9293:
// the incoming segment's ACK number if it carried one, otherwise zero.
func (e *Engine) sendRST(id socket.ID, seq tcp.Value) {
	frm := buildFrame(id, tcp.Segment{SEQ: seq, Flags: tcp.FlagRST}, nil)
	_ = e.underlay.Send(id.RemoteAddr, frm.RawData())
}

// handleListen implements LISTEN: a SYN opens a new child socket in
// SYN_RCVD; an ACK-bearing segment (which cannot be valid against a
// listener) draws an RST rather than being silently ignored.
func (e *Engine) handleListen(s *socket.Socket, id socket.ID, frm tcp.Frame) {
	seg := frm.Segment()
	if seg.Flags.HasAny(tcp.FlagACK) {
		e.sendRST(id, seg.ACK)
		return
	}
	if !seg.Flags.HasAny(tcp.FlagSYN) {
		return
	}

	child := socket.New(id)
	child.Status = tcp.StateSynRcvd
	child.Recv.IRS = seg.SEQ
	child.Recv.NXT = tcp.Add(seg.SEQ, 1)
	child.Recv.WND = tcp.Size(e.cfg.RecvWindow)

	iss := e.isnGen.ISN(id.LocalAddr, id.RemoteAddr, id.LocalPort, id.RemotePort)
	child.Send.ISS = iss
	child.Send.UNA = iss
	child.Send.NXT = tcp.Add(iss, 1)
	child.Send.WND = seg.WND

	child.ListeningSocket = s.ID
	child.HasListeningSocket = true

	e.table[id] = child
	e.transmit(child, tcp.Segment{
		SEQ:   iss,
		ACK:   child.Recv.NXT,
		WND:   tcp.Size(e.cfg.RecvWindow),
		Flags: tcp.FlagSYN | tcp.FlagACK,
	}, nil)
}

// handleSynSent implements the client side of the handshake. Only a
// segment carrying both SYN and ACK with an in-range ack is accepted. If
// our SYN was already acknowledged, the connection is established;
// otherwise (simultaneous open) this retransmits SYN|ACK and waits in
// SYN_RCVD, per RFC 9293, rather than the bare ACK the reference sends.
func (e *Engine) handleSynSent(s *socket.Socket, frm tcp.Frame) {
	seg := frm.Segment()
	if !seg.Flags.HasAll(tcp.FlagSYN|tcp.FlagACK) ||
		!s.Send.UNA.LessThanEq(seg.ACK) || !seg.ACK.LessThanEq(s.Send.NXT) {
		return
	}

	s.Recv.IRS = seg.SEQ
	s.Recv.NXT = tcp.Add(seg.SEQ, 1)
	ourSYNAcked := s.Send.ISS.LessThan(seg.ACK)
	e.retire(s, seg.ACK)
	s.Send.WND = seg.WND

	if ourSYNAcked {
		s.Status = tcp.StateEstablished
		e.transmit(s, tcp.Segment{
			SEQ: s.Send.NXT, ACK: s.Recv.NXT, WND: tcp.Size(e.cfg.RecvWindow), Flags: tcp.FlagACK,
		}, nil)
		s.Events.Publish(socket.Event{Sock: s.ID, Kind: socket.ConnectionCompleted})
		if e.metrics != nil {
			e.metrics.ActiveConnections.Inc()
		}
		return
	}

	s.Status = tcp.StateSynRcvd
	e.transmit(s, tcp.Segment{
		SEQ: s.Send.ISS, ACK: s.Recv.NXT, WND: tcp.Size(e.cfg.RecvWindow), Flags: tcp.FlagSYN | tcp.FlagACK,
	}, nil)
}

// handleSynRcvd implements the server side of the final handshake ACK: on
// acceptance the child is established and handed to its listener's
// backlog, waking a blocked Accept.
func (e *Engine) handleSynRcvd(s *socket.Socket, frm tcp.Frame) {
	seg := frm.Segment()
	if !seg.Flags.HasAny(tcp.FlagACK) ||
		!s.Send.UNA.LessThanEq(seg.ACK) || !seg.ACK.LessThanEq(s.Send.NXT) {
		return
	}

	s.Recv.NXT = seg.SEQ
	e.retire(s, seg.ACK)
	s.Status = tcp.StateEstablished

	if s.HasListeningSocket {
		if listener, ok := e.table[s.ListeningSocket]; ok {
			listener.Backlog = append(listener.Backlog, s.ID)
			listener.Events.Publish(socket.Event{Sock: listener.ID, Kind: socket.ConnectionCompleted})
			if e.metrics != nil {
				e.metrics.ListenBacklogDepth.WithLabelValues(listener.ID.String()).Set(float64(len(listener.Backlog)))
			}
		}
	}
	if e.metrics != nil {
		e.metrics.ActiveConnections.Inc()
	}
}

// deliverPayload folds an in-order segment's payload (and, if eof, its FIN)
// into s's receive buffer, draining any reassembly backlog that the new
// data now makes contiguous, and wakes a blocked Recv.
func (e *Engine) deliverPayload(s *socket.Socket, seg tcp.Segment, payload []byte, eof bool) {
	if seg.SEQ != s.Recv.NXT {
		if tcp.InWindow(seg.SEQ, s.Recv.NXT, s.Recv.WND) && len(payload) > 0 {
			e.logAttrs(slog.LevelDebug, "out-of-order segment buffered", slog.String("sock", s.ID.String()))
			s.Reassem.Insert(seg.SEQ, payload)
		}
		return
	}
	if len(payload) > 0 {
		s.RecvBuf.Write(payload)
		s.Recv.NXT = tcp.Add(s.Recv.NXT, tcp.Size(len(payload)))
	}
	if more, next := s.Reassem.DrainContiguous(s.Recv.NXT); len(more) > 0 {
		s.RecvBuf.Write(more)
		s.Recv.NXT = next
	}
	if eof {
		s.Recv.NXT = tcp.Add(s.Recv.NXT, 1)
		s.RecvEOF = true
	}
	if len(payload) > 0 || eof {
		s.Events.Publish(socket.Event{Sock: s.ID, Kind: socket.DataArrived, EOF: eof})
	}
}

// handleEstablished processes data, ACKs and the peer's FIN during the
// open data-transfer phase.
func (e *Engine) handleEstablished(s *socket.Socket, frm tcp.Frame) {
	seg := frm.Segment()
	if !seg.Flags.HasAny(tcp.FlagACK) {
		return
	}
	if s.Send.NXT.LessThan(seg.ACK) {
		return // ack for unsent data
	}
	if s.Send.UNA.LessThan(seg.ACK) {
		e.retire(s, seg.ACK)
	}

	fin := seg.Flags.HasAny(tcp.FlagFIN)
	recvBefore := s.Recv.NXT
	e.deliverPayload(s, seg, frm.Payload(), fin)

	if fin {
		e.transmit(s, tcp.Segment{
			SEQ: s.Send.NXT, ACK: s.Recv.NXT, WND: tcp.Size(e.cfg.RecvWindow), Flags: tcp.FlagACK,
		}, nil)
		s.Status = tcp.StateCloseWait
		return
	}

	// In-order data advances Recv.NXT; the peer's retransmission queue and
	// send window only reopen once it observes this cumulative ack, so one
	// must go back for every such advance, not just when we next send data.
	if s.Recv.NXT != recvBefore {
		e.transmit(s, tcp.Segment{
			SEQ: s.Send.NXT, ACK: s.Recv.NXT, WND: tcp.Size(e.cfg.RecvWindow), Flags: tcp.FlagACK,
		}, nil)
	}
}

// handleFinWait1 waits for our own FIN to be acknowledged, or a
// simultaneous-close FIN from the peer.
func (e *Engine) handleFinWait1(s *socket.Socket, frm tcp.Frame) {
	seg := frm.Segment()
	if !seg.Flags.HasAny(tcp.FlagACK) {
		return
	}
	finAcked := false
	if seg.ACK.LessThanEq(s.Send.NXT) && s.Send.UNA.LessThanEq(seg.ACK) {
		finAcked = e.retire(s, seg.ACK)
	}

	if seg.Flags.HasAny(tcp.FlagFIN) {
		e.deliverPayload(s, seg, frm.Payload(), true)
		e.transmit(s, tcp.Segment{
			SEQ: s.Send.NXT, ACK: s.Recv.NXT, WND: tcp.Size(e.cfg.RecvWindow), Flags: tcp.FlagACK,
		}, nil)
		if finAcked {
			e.enterTimeWait(s)
		} else {
			s.Status = tcp.StateClosing
		}
		return
	}
	if finAcked {
		s.Status = tcp.StateFinWait2
	}
}

// handleClosing waits for the peer's ACK of our own FIN after a
// simultaneous close (both sides' FIN crossed on the wire).
func (e *Engine) handleClosing(s *socket.Socket, frm tcp.Frame) {
	seg := frm.Segment()
	if !seg.Flags.HasAny(tcp.FlagACK) {
		return
	}
	if seg.ACK.LessThanEq(s.Send.NXT) && s.Send.UNA.LessThanEq(seg.ACK) {
		if e.retire(s, seg.ACK) {
			e.enterTimeWait(s)
		}
	}
}

// handleFinWait2 waits for the peer's FIN once our own has been acked.
func (e *Engine) handleFinWait2(s *socket.Socket, frm tcp.Frame) {
	seg := frm.Segment()
	if !seg.Flags.HasAny(tcp.FlagACK) {
		return
	}
	if seg.Flags.HasAny(tcp.FlagFIN) {
		e.deliverPayload(s, seg, frm.Payload(), true)
		e.transmit(s, tcp.Segment{
			SEQ: s.Send.NXT, ACK: s.Recv.NXT, WND: tcp.Size(e.cfg.RecvWindow), Flags: tcp.FlagACK,
		}, nil)
		e.enterTimeWait(s)
		return
	}
	recvBefore := s.Recv.NXT
	e.deliverPayload(s, seg, frm.Payload(), false)
	if s.Recv.NXT != recvBefore {
		e.transmit(s, tcp.Segment{
			SEQ: s.Send.NXT, ACK: s.Recv.NXT, WND: tcp.Size(e.cfg.RecvWindow), Flags: tcp.FlagACK,
		}, nil)
	}
}

// handleCloseWait retires acks for any of our own data that was still in
// flight when the peer's FIN arrived; the peer has already closed its
// sending side, so no further payload is expected until our own Close call
// sends the answering FIN and moves the socket to LAST_ACK.
func (e *Engine) handleCloseWait(s *socket.Socket, frm tcp.Frame) {
	seg := frm.Segment()
	if !seg.Flags.HasAny(tcp.FlagACK) {
		return
	}
	if s.Send.UNA.LessThan(seg.ACK) {
		e.retire(s, seg.ACK)
	}
}

// handleLastAck waits for the peer's ACK of our FIN, which completes the
// graceful close: the socket is removed from the table.
func (e *Engine) handleLastAck(s *socket.Socket, frm tcp.Frame) {
	seg := frm.Segment()
	if !seg.Flags.HasAny(tcp.FlagACK) {
		return
	}
	if s.Send.UNA.LessThanEq(seg.ACK) && seg.ACK.LessThanEq(s.Send.NXT) {
		if e.retire(s, seg.ACK) {
			e.finishClose(s, nil)
		}
	}
}

// enterTimeWait transitions s into TIME_WAIT; the timer goroutine removes
// it once cfg.TimeWaitDuration has passed.
func (e *Engine) enterTimeWait(s *socket.Socket) {
	s.Status = tcp.StateTimeWait
	s.TimeWaitEntered = time.Now()
}

// finishClose removes s from the table and publishes ConnectionClosed. err
// is non-nil only for an abortive close (e.g. retransmission exhaustion).
func (e *Engine) finishClose(s *socket.Socket, err error) {
	delete(e.table, s.ID)
	if e.metrics != nil && s.Status.IsSynchronized() {
		e.metrics.ActiveConnections.Dec()
	}
	s.Events.Publish(socket.Event{Sock: s.ID, Kind: socket.ConnectionClosed, Err: err})
}
