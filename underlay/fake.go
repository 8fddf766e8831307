package underlay

import "sync"

// Fake is an in-memory Sender/Receiver used by engine tests: two Fakes
// wired to each other's inbox via Connect exchange segments without any
// real socket, so the full handshake/transfer/close state machine can be
// exercised at full speed and without root privileges.
type Fake struct {
	selfAddr [4]byte
	peer     *Fake
	inbox    chan fakeDatagram
	closed   chan struct{}
	once     sync.Once

	dropCount int
}

type fakeDatagram struct {
	segment []byte
	src     [4]byte
	dst     [4]byte
}

// NewFake returns a Fake identified by selfAddr, with no peer wired yet.
func NewFake(selfAddr [4]byte) *Fake {
	return &Fake{
		selfAddr: selfAddr,
		inbox:    make(chan fakeDatagram, 64),
		closed:   make(chan struct{}),
	}
}

// Connect wires a and b so sends on one arrive on the other's Receive.
func Connect(a, b *Fake) {
	a.peer = b
	b.peer = a
}

// DropNext causes the next n sends from f to be silently discarded
// instead of delivered, simulating the loss tests need to exercise
// retransmission.
func (f *Fake) DropNext(n int) { f.dropCount = n }

func (f *Fake) Send(dst [4]byte, segment []byte) error {
	if f.dropCount > 0 {
		f.dropCount--
		return nil
	}
	if f.peer == nil {
		return nil
	}
	cp := make([]byte, len(segment))
	copy(cp, segment)
	select {
	case f.peer.inbox <- fakeDatagram{segment: cp, src: f.selfAddr, dst: dst}:
	case <-f.peer.closed:
	}
	return nil
}

func (f *Fake) Receive() ([]byte, [4]byte, [4]byte, error) {
	select {
	case dg := <-f.inbox:
		return dg.segment, dg.src, dg.dst, nil
	case <-f.closed:
		return nil, [4]byte{}, [4]byte{}, errClosed
	}
}

func (f *Fake) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

var errClosed = fakeClosedError{}

type fakeClosedError struct{}

func (fakeClosedError) Error() string { return "underlay: fake closed" }
