package engine

import (
	"log/slog"

	"github.com/momotaro98/toytcp/internal"
	"github.com/momotaro98/toytcp/socket"
	"github.com/momotaro98/toytcp/tcp"
)

// receiveLoop is the receive dispatcher: it pulls IPv4 datagrams carrying
// TCP segments from the underlay, demultiplexes them to the matching
// socket under the table writer lock, and hands them to the per-state
// handler.
func (e *Engine) receiveLoop() {
	defer e.wg.Done()
	for {
		segBytes, src, dst, err := e.underlay.Receive()
		if err != nil {
			select {
			case <-e.stop:
				return
			default:
				e.logAttrs(slog.LevelDebug, "receive error", slog.String("err", err.Error()))
				continue
			}
		}

		frm, err := tcp.NewFrame(segBytes)
		if err != nil {
			e.logAttrs(slog.LevelDebug, "short segment discarded", slog.String("err", err.Error()))
			continue
		}
		if err := frm.ValidateExceptCRC(); err != nil {
			e.logAttrs(slog.LevelDebug, "malformed segment discarded", slog.String("err", err.Error()))
			if e.metrics != nil {
				e.metrics.SegmentsDropped.WithLabelValues("malformed").Inc()
			}
			continue
		}

		id := socket.ID{
			LocalAddr:  dst,
			RemoteAddr: src,
			LocalPort:  frm.DestinationPort(),
			RemotePort: frm.SourcePort(),
		}

		e.mu.Lock()
		s, ok := e.lookup(id)
		if !ok {
			e.mu.Unlock()
			e.logAttrs(slog.LevelDebug, "no matching socket, discarding", slog.String("sock", id.String()))
			if e.metrics != nil {
				e.metrics.SegmentsDropped.WithLabelValues("no_socket").Inc()
			}
			continue
		}
		if !tcp.VerifyChecksum(frm, dst, src) {
			e.mu.Unlock()
			e.logAttrs(slog.LevelDebug, "bad checksum, discarding", slog.String("sock", s.ID.String()))
			if e.metrics != nil {
				e.metrics.SegmentsDropped.WithLabelValues("bad_checksum").Inc()
			}
			continue
		}
		if e.metrics != nil {
			e.metrics.SegmentsReceived.Inc()
		}

		e.logAttrs(internal.LevelTrace, "rx", slog.String("sock", s.ID.String()),
			slog.String("status", s.Status.String()), slog.String("seg", frm.String()),
			internal.SlogAddr4("src", src), internal.SlogAddr4("dst", dst))

		switch s.Status {
		case tcp.StateListen:
			e.handleListen(s, id, frm)
		case tcp.StateSynSent:
			e.handleSynSent(s, frm)
		case tcp.StateSynRcvd:
			e.handleSynRcvd(s, frm)
		case tcp.StateEstablished:
			e.handleEstablished(s, frm)
		case tcp.StateFinWait1:
			e.handleFinWait1(s, frm)
		case tcp.StateFinWait2:
			e.handleFinWait2(s, frm)
		case tcp.StateClosing:
			e.handleClosing(s, frm)
		case tcp.StateCloseWait:
			e.handleCloseWait(s, frm)
		case tcp.StateLastAck:
			e.handleLastAck(s, frm)
		default:
			e.logAttrs(slog.LevelDebug, "segment for unhandled state dropped",
				slog.String("status", s.Status.String()))
		}
		e.mu.Unlock()
	}
}
