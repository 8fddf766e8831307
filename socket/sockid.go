// Package socket defines the per-connection record the protocol engine
// keeps in its socket table: identity, send/receive parameters, status,
// retransmission queue and accept backlog.
package socket

import "fmt"

// ID identifies a socket by its four-tuple. A listening socket uses the
// zero RemoteAddr/RemotePort ("any remote") wildcard.
type ID struct {
	LocalAddr  [4]byte
	RemoteAddr [4]byte
	LocalPort  uint16
	RemotePort uint16
}

// Listening returns the wildcard ID a listening socket bound to
// localAddr:localPort is keyed by.
func Listening(localAddr [4]byte, localPort uint16) ID {
	return ID{LocalAddr: localAddr, LocalPort: localPort}
}

// IsListeningKey reports whether id has the wildcard remote endpoint a
// listening socket is keyed by.
func (id ID) IsListeningKey() bool {
	return id.RemoteAddr == [4]byte{} && id.RemotePort == 0
}

func (id ID) String() string {
	return fmt.Sprintf("%d.%d.%d.%d:%d<->%d.%d.%d.%d:%d",
		id.LocalAddr[0], id.LocalAddr[1], id.LocalAddr[2], id.LocalAddr[3], id.LocalPort,
		id.RemoteAddr[0], id.RemoteAddr[1], id.RemoteAddr[2], id.RemoteAddr[3], id.RemotePort)
}
