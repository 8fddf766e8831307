package tcp

// Value is a TCP sequence or acknowledgment number. It wraps modulo 2^32 and
// must never be compared with plain integer inequality: the whole point of
// this type is to force callers through the serial-number arithmetic below.
type Value uint32

// Size is a length measured in octets of sequence space (a segment length,
// a window, or the distance between two Values).
type Size uint32

// Add returns v+sz, wrapping modulo 2^32.
func Add(v Value, sz Size) Value { return v + Value(sz) }

// Sizeof returns the distance from a to b going forward, i.e. the Size that
// satisfies Add(a, Sizeof(a,b)) == b. It is always in [0, 2^32).
func Sizeof(a, b Value) Size { return Size(b - a) }

// LessThan implements RFC 1323 serial-number arithmetic: a < b iff
// (b-a) mod 2^32 is in (0, 2^31). This stays correct across the wrap point,
// unlike a plain uint32 comparison.
func (a Value) LessThan(b Value) bool {
	return int32(b-a) > 0
}

// LessThanEq reports whether a < b || a == b under serial-number arithmetic.
func (a Value) LessThanEq(b Value) bool {
	return a == b || a.LessThan(b)
}

// InWindow reports whether v lies in the closed-open window
// [start, start+size) using serial-number arithmetic. A zero-size window
// contains nothing, matching RFC 9293's treatment of a zero receive window.
func InWindow(v, start Value, size Size) bool {
	return size != 0 && Sizeof(start, v) < Size(size)
}
