package socket

import "github.com/momotaro98/toytcp/tcp"

// ReassemblyBuffer holds payload from segments that arrived ahead of the
// expected sequence number, keyed by their starting sequence, and coalesces
// a contiguous prefix once the gap closes. The reference implementation
// does not buffer out-of-order segments at all; this is the "complete
// implementation" reassembly structure called for alongside it.
type ReassemblyBuffer struct {
	segments map[tcp.Value][]byte
}

// Insert records a segment's payload at its starting sequence number.
// Segments that fall entirely before the already-delivered point should be
// filtered by the caller before calling Insert.
func (r *ReassemblyBuffer) Insert(seq tcp.Value, data []byte) {
	if len(data) == 0 {
		return
	}
	if r.segments == nil {
		r.segments = make(map[tcp.Value][]byte)
	}
	if _, exists := r.segments[seq]; !exists {
		cp := make([]byte, len(data))
		copy(cp, data)
		r.segments[seq] = cp
	}
}

// DrainContiguous removes and returns the longest run of buffered bytes
// starting exactly at expected, along with the sequence number immediately
// following the drained run (the caller's new expected value).
func (r *ReassemblyBuffer) DrainContiguous(expected tcp.Value) ([]byte, tcp.Value) {
	var out []byte
	for {
		seg, ok := r.segments[expected]
		if !ok {
			break
		}
		delete(r.segments, expected)
		out = append(out, seg...)
		expected = tcp.Add(expected, tcp.Size(len(seg)))
	}
	return out, expected
}

// Pending reports how many out-of-order segments are currently buffered.
func (r *ReassemblyBuffer) Pending() int { return len(r.segments) }
