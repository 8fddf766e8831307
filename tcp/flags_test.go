package tcp

import "testing"

func TestFlagsString(t *testing.T) {
	cases := map[Flags]string{
		0:                 "[]",
		FlagSYN:           "[SYN]",
		FlagSYN | FlagACK: "[SYN,ACK]",
		FlagFIN | FlagACK: "[FIN,ACK]",
		FlagRST:           "[RST]",
		FlagURG | FlagCWR: "[URG,CWR]",
	}
	for f, want := range cases {
		if got := f.String(); got != want {
			t.Errorf("Flags(%d).String() = %q, want %q", f, got, want)
		}
	}
}

func TestFlagsIsPureACK(t *testing.T) {
	if !FlagACK.IsPureACK() {
		t.Error("bare ACK should be a pure ack")
	}
	if (FlagACK | FlagPSH).IsPureACK() {
		t.Error("ACK+PSH should not be a pure ack")
	}
}
