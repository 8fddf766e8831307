package tcp

import "testing"

func TestLessThanWrapsAroundZero(t *testing.T) {
	cases := []struct {
		a, b Value
		want bool
	}{
		{0, 1, true},
		{1, 0, false},
		{0xffffffff, 0, true},
		{0, 0xffffffff, false},
		{1<<31 - 1, 1 << 31, true},
		{1 << 31, 1<<31 - 1, false},
	}
	for _, c := range cases {
		if got := c.a.LessThan(c.b); got != c.want {
			t.Errorf("Value(%d).LessThan(%d) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestInWindow(t *testing.T) {
	if !InWindow(100, 100, 10) {
		t.Error("start of window should be in window")
	}
	if InWindow(110, 100, 10) {
		t.Error("end of window (exclusive) should not be in window")
	}
	if !InWindow(109, 100, 10) {
		t.Error("last octet of window should be in window")
	}
	if InWindow(50, 100, 10) {
		t.Error("value before window should not be in window")
	}
	if InWindow(100, 100, 0) {
		t.Error("zero-size window should contain nothing")
	}
	// Wraps past 2^32.
	var start Value = 0xfffffffa
	if !InWindow(5, start, 20) {
		t.Error("window spanning the wrap point should contain post-wrap values")
	}
}

func TestSizeofAndAdd(t *testing.T) {
	a := Value(10)
	b := Add(a, 5)
	if b != 15 {
		t.Fatalf("Add(10,5) = %d, want 15", b)
	}
	if got := Sizeof(a, b); got != 5 {
		t.Fatalf("Sizeof(10,15) = %d, want 5", got)
	}
	// Wrap-around.
	a = Value(0xfffffffe)
	b = Add(a, 4)
	if b != 2 {
		t.Fatalf("Add near wrap = %d, want 2", b)
	}
	if got := Sizeof(a, b); got != 4 {
		t.Fatalf("Sizeof across wrap = %d, want 4", got)
	}
}
