// Package isn generates initial sequence numbers that resist off-path
// prediction, following the RFC 6528 recipe: a keyed hash of the
// connection's four-tuple feeds a counter-independent pseudo-random value,
// so two connections never leak a predictable relationship between their
// ISNs the way a free-running counter would.
package isn

import (
	"encoding/binary"
	"sync"

	"github.com/momotaro98/toytcp/tcp"
	"golang.org/x/crypto/blake2b"
)

// Generator produces initial sequence numbers in [1, 2^31), as required for
// ISN randomization, keyed by a secret fixed at construction.
type Generator struct {
	secret [32]byte
	mu     sync.Mutex
}

// New returns a Generator keyed by secret. Pass 32 bytes read from
// crypto/rand at engine startup; the secret never needs to leave the
// process or be rotated for this module's purposes.
func New(secret [32]byte) *Generator {
	return &Generator{secret: secret}
}

// ISN returns a pseudo-random initial sequence number for the connection
// identified by the four addresses and ports given, always in [1, 2^31).
func (g *Generator) ISN(localAddr, remoteAddr [4]byte, localPort, remotePort uint16) tcp.Value {
	g.mu.Lock()
	defer g.mu.Unlock()

	h, _ := blake2b.New256(g.secret[:]) // keyed hash: secret is the MAC key, never mixed into the message
	var portBuf [4]byte
	binary.BigEndian.PutUint16(portBuf[0:2], localPort)
	binary.BigEndian.PutUint16(portBuf[2:4], remotePort)
	h.Write(localAddr[:])
	h.Write(remoteAddr[:])
	h.Write(portBuf[:])
	sum := h.Sum(nil)

	v := binary.BigEndian.Uint32(sum[:4])
	v &= 0x7fffffff // restrict to [0, 2^31)
	if v == 0 {
		v = 1
	}
	return tcp.Value(v)
}
