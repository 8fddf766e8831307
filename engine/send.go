package engine

import (
	"log/slog"
	"time"

	"github.com/momotaro98/toytcp/internal"
	"github.com/momotaro98/toytcp/socket"
	"github.com/momotaro98/toytcp/tcp"
)

// buildFrame serializes seg as a complete TCP/IPv4 segment ready for the
// underlay: header fields populated, checksum stamped over the given
// pseudo-header addresses.
func buildFrame(id socket.ID, seg tcp.Segment, payload []byte) tcp.Frame {
	frm := tcp.NewFrameWithPayload(payload)
	frm.SetSourcePort(id.LocalPort)
	frm.SetDestinationPort(id.RemotePort)
	frm.SetSegment(seg)
	tcp.StampChecksum(frm, id.LocalAddr, id.RemoteAddr)
	return frm
}

// transmit builds and sends seg+payload over the underlay, and — unless it
// is a pure ACK — enqueues it on s's retransmission queue with a
// transmission count of 1.
func (e *Engine) transmit(s *socket.Socket, seg tcp.Segment, payload []byte) error {
	frm := buildFrame(s.ID, seg, payload)
	if err := e.underlay.Send(s.ID.RemoteAddr, frm.RawData()); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.SegmentsSent.Inc()
	}
	if !seg.IsPureACK() {
		s.Rtx.Enqueue(socket.RtxEntry{
			Seq:           seg.SEQ,
			Len:           seg.Len(),
			PayloadLen:    seg.DATALEN,
			Raw:           frm.RawData(),
			LastTx:        time.Now(),
			TransmitCount: 1,
			IsFIN:         seg.Flags.HasAny(tcp.FlagFIN),
		})
	}
	e.logAttrs(internal.LevelTrace, "tx", slog.String("sock", s.ID.String()), slog.String("seg", frm.String()))
	return nil
}

// retire advances s.Send.UNA to una (the caller has already validated it)
// and removes every fully acknowledged entry from the retransmission
// queue, restoring send window and publishing Acked. It reports whether a
// retired FIN was observed, which callers in a closing state use to
// recognize their own FIN has been acknowledged.
func (e *Engine) retire(s *socket.Socket, una tcp.Value) (finAcked bool) {
	s.Send.UNA = una
	retired := s.Rtx.Retire(una)
	if len(retired) == 0 {
		return false
	}
	for _, ent := range retired {
		s.Send.WND += ent.PayloadLen
		if ent.IsFIN {
			finAcked = true
		}
	}
	s.Events.Publish(socket.Event{Sock: s.ID, Kind: socket.Acked})
	return finAcked
}
