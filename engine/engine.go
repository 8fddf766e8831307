// Package engine implements the ToyTCP protocol engine: a socket table
// guarded by a single RWMutex, a receive dispatcher goroutine, a
// retransmission timer goroutine, and the listen/accept/connect/send/close
// API application goroutines call into.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/momotaro98/toytcp/internal"
	"github.com/momotaro98/toytcp/isn"
	"github.com/momotaro98/toytcp/metrics"
	"github.com/momotaro98/toytcp/socket"
	"github.com/momotaro98/toytcp/underlay"
	"github.com/rs/xid"
)

var (
	ErrSocketNotExist   = errors.New("engine: socket does not exist")
	ErrNotListening     = errors.New("engine: socket is not listening")
	ErrConnectionClosed = errors.New("engine: connection closed")
	ErrNoEphemeralPort  = errors.New("engine: no ephemeral port available")
	ErrPortInUse        = errors.New("engine: port already in use")
)

// Engine owns the socket table and the three long-lived goroutines that
// drive it: the caller's own goroutine for API calls, a receive dispatcher,
// and a retransmission timer.
type Engine struct {
	cfg      Config
	id       xid.ID
	log      *slog.Logger
	metrics  *metrics.Metrics
	underlay underlay.SenderReceiver
	isnGen   *isn.Generator

	mu    sync.RWMutex
	table map[socket.ID]*socket.Socket

	stop chan struct{}
	wg   sync.WaitGroup
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger attaches a structured logger; nil (the default) disables
// logging entirely.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics attaches a Prometheus collector bundle; nil (the default)
// disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New constructs an Engine bound to u and starts its receive dispatcher and
// retransmission timer goroutines. Call Close to stop them.
func New(cfg Config, u underlay.SenderReceiver, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		id:       xid.New(),
		underlay: u,
		isnGen:   isn.New(cfg.ISNSecret),
		table:    make(map[socket.ID]*socket.Socket),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.wg.Add(2)
	go e.receiveLoop()
	go e.timerLoop()
	return e
}

// Close stops the background goroutines. It does not tear down individual
// connections; callers should Close each socket themselves first if a
// graceful shutdown of peers matters.
func (e *Engine) Close() error {
	close(e.stop)
	err := e.underlay.Close()
	e.wg.Wait()
	return err
}

func (e *Engine) logAttrs(lvl slog.Level, msg string, attrs ...slog.Attr) {
	if !internal.LogEnabled(e.log, lvl) {
		return
	}
	internal.LogAttrs(e.log, lvl, msg, append(attrs, slog.String("engine", e.id.String()))...)
}

// pickEphemeralPort draws an unused local port in
// [EphemeralPortLo, EphemeralPortHi) for localAddr<->remoteAddr:remotePort,
// redrawing on a four-tuple collision, bounded by the size of the range.
func (e *Engine) pickEphemeralPort(localAddr, remoteAddr [4]byte, remotePort uint16) (uint16, error) {
	lo, hi := e.cfg.EphemeralPortLo, e.cfg.EphemeralPortHi
	span := int(hi) - int(lo)
	if span <= 0 {
		return 0, fmt.Errorf("%w: empty ephemeral port range", ErrNoEphemeralPort)
	}
	for attempt := 0; attempt < span; attempt++ {
		port := lo + uint16(rand.Intn(span))
		id := socket.ID{LocalAddr: localAddr, RemoteAddr: remoteAddr, LocalPort: port, RemotePort: remotePort}
		if _, exists := e.table[id]; !exists {
			return port, nil
		}
	}
	return 0, ErrNoEphemeralPort
}

// lookup finds the socket for an exact four-tuple, falling back to the
// wildcard listening key on the same local endpoint.
func (e *Engine) lookup(id socket.ID) (*socket.Socket, bool) {
	if s, ok := e.table[id]; ok {
		return s, true
	}
	listenKey := socket.Listening(id.LocalAddr, id.LocalPort)
	if s, ok := e.table[listenKey]; ok {
		return s, true
	}
	return nil, false
}
