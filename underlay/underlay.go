// Package underlay defines the seam between the protocol engine and the
// IPv4 transport it rides on: a Sender for outbound TCP segments wrapped in
// IPv4, and a Receiver yielding inbound ones. production code gets
// RawIPv4; tests get a simpler in-memory double.
package underlay

// Sender writes a raw IPv4 datagram whose protocol field is 6 (TCP). The
// segment is the caller's fully-built TCP frame (header plus payload); the
// source address is whatever the kernel or implementation selects.
type Sender interface {
	Send(dst [4]byte, segment []byte) error
}

// Receiver yields TCP segments extracted from inbound IPv4 datagrams,
// together with the sender's and destination addresses for demultiplexing
// (a socket's four-tuple needs both). Receive blocks until a datagram
// arrives or the underlay is closed.
type Receiver interface {
	Receive() (segment []byte, src, dst [4]byte, err error)
}

// SenderReceiver is satisfied by every concrete underlay this module ships.
type SenderReceiver interface {
	Sender
	Receiver
	Close() error
}
