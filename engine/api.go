package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/momotaro98/toytcp/socket"
	"github.com/momotaro98/toytcp/tcp"
)

// Listen creates a new socket in LISTEN bound to localAddr:localPort.
func (e *Engine) Listen(localAddr [4]byte, localPort uint16) (socket.ID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := socket.Listening(localAddr, localPort)
	if _, exists := e.table[id]; exists {
		return socket.ID{}, ErrPortInUse
	}
	s := socket.New(id)
	s.Status = tcp.StateListen
	s.Recv.WND = tcp.Size(e.cfg.RecvWindow)
	e.table[id] = s
	return id, nil
}

// Accept blocks until a child of the listening socket listenID completes
// its handshake, returning the child's ID, or until ctx is done.
func (e *Engine) Accept(ctx context.Context, listenID socket.ID) (socket.ID, error) {
	for {
		e.mu.Lock()
		s, ok := e.table[listenID]
		if !ok {
			e.mu.Unlock()
			return socket.ID{}, ErrSocketNotExist
		}
		if s.Status != tcp.StateListen {
			e.mu.Unlock()
			return socket.ID{}, ErrNotListening
		}
		if len(s.Backlog) > 0 {
			child := s.Backlog[0]
			s.Backlog = s.Backlog[1:]
			if c, ok := e.table[child]; ok {
				c.HasListeningSocket = false
			}
			if e.metrics != nil {
				e.metrics.ListenBacklogDepth.WithLabelValues(listenID.String()).Set(float64(len(s.Backlog)))
			}
			e.mu.Unlock()
			return child, nil
		}
		events := s.Events.Wait()
		e.mu.Unlock()

		select {
		case <-events:
			// Re-check the backlog; a different waiter (or an unrelated
			// event) may have drained it or this may be a stale wakeup.
		case <-ctx.Done():
			return socket.ID{}, ctx.Err()
		}
	}
}

// Connect draws an ephemeral local port, sends a SYN toward remoteAddr:
// remotePort, and blocks until the handshake completes or ctx is done.
func (e *Engine) Connect(ctx context.Context, localAddr, remoteAddr [4]byte, remotePort uint16) (socket.ID, error) {
	e.mu.Lock()
	port, err := e.pickEphemeralPort(localAddr, remoteAddr, remotePort)
	if err != nil {
		e.mu.Unlock()
		return socket.ID{}, err
	}
	id := socket.ID{LocalAddr: localAddr, RemoteAddr: remoteAddr, LocalPort: port, RemotePort: remotePort}

	s := socket.New(id)
	iss := e.isnGen.ISN(localAddr, remoteAddr, port, remotePort)
	s.Status = tcp.StateSynSent
	s.Send.ISS = iss
	s.Send.UNA = iss
	s.Send.NXT = tcp.Add(iss, 1)
	s.Recv.WND = tcp.Size(e.cfg.RecvWindow)
	e.table[id] = s

	if err := e.transmit(s, tcp.Segment{SEQ: iss, WND: tcp.Size(e.cfg.RecvWindow), Flags: tcp.FlagSYN}, nil); err != nil {
		delete(e.table, id)
		e.mu.Unlock()
		return socket.ID{}, fmt.Errorf("engine: send SYN: %w", err)
	}
	e.mu.Unlock()

	for {
		e.mu.RLock()
		s, ok := e.table[id]
		if !ok {
			e.mu.RUnlock()
			return socket.ID{}, ErrConnectionClosed
		}
		if s.Status == tcp.StateEstablished {
			e.mu.RUnlock()
			return id, nil
		}
		events := s.Events.Wait()
		e.mu.RUnlock()

		select {
		case <-events:
		case <-ctx.Done():
			return socket.ID{}, ctx.Err()
		}
	}
}

// Send transmits data over an established socket, blocking between chunks
// when the peer's advertised window is exhausted, until every byte has
// been transmitted (not necessarily acknowledged) or ctx is done.
func (e *Engine) Send(ctx context.Context, id socket.ID, data []byte) error {
	cursor := 0
	for cursor < len(data) {
		e.mu.Lock()
		s, ok := e.table[id]
		if !ok {
			e.mu.Unlock()
			return ErrSocketNotExist
		}
		if s.Status != tcp.StateEstablished {
			e.mu.Unlock()
			return ErrConnectionClosed
		}

		chunk := e.cfg.MSS
		if int(s.Send.WND) < chunk {
			chunk = int(s.Send.WND)
		}
		if remaining := len(data) - cursor; remaining < chunk {
			chunk = remaining
		}
		if chunk == 0 {
			events := s.Events.Wait()
			e.mu.Unlock()
			select {
			case <-events:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		seg := tcp.Segment{
			SEQ: s.Send.NXT, ACK: s.Recv.NXT, WND: tcp.Size(e.cfg.RecvWindow),
			Flags: tcp.FlagACK, DATALEN: tcp.Size(chunk),
		}
		payload := data[cursor : cursor+chunk]
		if err := e.transmit(s, seg, payload); err != nil {
			e.mu.Unlock()
			return fmt.Errorf("engine: send data: %w", err)
		}
		s.Send.NXT = tcp.Add(s.Send.NXT, tcp.Size(chunk))
		s.Send.WND -= tcp.Size(chunk)
		cursor += chunk
		e.mu.Unlock()

		// Yield briefly so the receive dispatcher can acquire the lock and
		// process returning ACKs; a concession to the coarse locking model
		// rather than a correctness requirement.
		time.Sleep(time.Millisecond)
	}
	return nil
}

// Recv blocks until at least one byte of application data (or EOF) is
// available, then drains and returns whatever is currently buffered.
// It is the necessary complement to the FIN/CLOSE_WAIT delivery path: data
// folded into a socket's receive buffer by the dispatcher has to reach the
// application somehow.
func (e *Engine) Recv(ctx context.Context, id socket.ID) (data []byte, eof bool, err error) {
	for {
		e.mu.Lock()
		s, ok := e.table[id]
		if !ok {
			e.mu.Unlock()
			return nil, false, ErrSocketNotExist
		}
		if s.RecvBuf.Len() > 0 || s.RecvEOF {
			out := append([]byte(nil), s.RecvBuf.Bytes()...)
			s.RecvBuf.Reset()
			wasEOF := s.RecvEOF && out == nil
			e.mu.Unlock()
			return out, wasEOF, nil
		}
		events := s.Events.Wait()
		e.mu.Unlock()

		select {
		case <-events:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

// Close tears down sock. For an ESTABLISHED socket this starts the active
// close (FIN_WAIT_1); for CLOSE_WAIT it sends the answering FIN and enters
// LAST_ACK; for LISTEN it is removed immediately. It blocks until
// ConnectionClosed is observed for a connected socket, or ctx is done.
func (e *Engine) Close(ctx context.Context, id socket.ID) error {
	e.mu.Lock()
	s, ok := e.table[id]
	if !ok {
		e.mu.Unlock()
		return ErrSocketNotExist
	}

	switch s.Status {
	case tcp.StateListen, tcp.StateSynSent, tcp.StateSynRcvd:
		delete(e.table, id)
		e.mu.Unlock()
		return nil
	case tcp.StateEstablished:
		e.transmit(s, tcp.Segment{
			SEQ: s.Send.NXT, ACK: s.Recv.NXT, WND: tcp.Size(e.cfg.RecvWindow), Flags: tcp.FlagFIN | tcp.FlagACK,
		}, nil)
		s.Send.NXT = tcp.Add(s.Send.NXT, 1)
		s.Status = tcp.StateFinWait1
	case tcp.StateCloseWait:
		e.transmit(s, tcp.Segment{
			SEQ: s.Send.NXT, ACK: s.Recv.NXT, WND: tcp.Size(e.cfg.RecvWindow), Flags: tcp.FlagFIN | tcp.FlagACK,
		}, nil)
		s.Send.NXT = tcp.Add(s.Send.NXT, 1)
		s.Status = tcp.StateLastAck
	default:
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	for {
		e.mu.RLock()
		s, ok := e.table[id]
		if !ok {
			e.mu.RUnlock()
			return nil
		}
		events := s.Events.Wait()
		e.mu.RUnlock()

		select {
		case ev := <-events:
			if ev.Kind == socket.ConnectionClosed {
				return ev.Err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
