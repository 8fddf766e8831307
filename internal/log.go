// Package internal holds the logging plumbing used by the engine package.
// It is not part of the module's public API.
package internal

import (
	"context"
	"encoding/binary"
	"log/slog"
)

// LevelTrace sits below slog.LevelDebug for segment-by-segment tracing that
// would otherwise flood a debug log.
const LevelTrace slog.Level = slog.LevelDebug - 2

// LogEnabled reports whether l would emit a record at lvl, tolerating a nil
// logger (logging disabled).
func LogEnabled(l *slog.Logger, lvl slog.Level) bool {
	return l != nil && l.Handler().Enabled(context.Background(), lvl)
}

// LogAttrs logs through l if non-nil; every call site in this module goes
// through here so a nil *slog.Logger silently disables logging instead of
// panicking.
func LogAttrs(l *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	if l != nil {
		l.LogAttrs(context.Background(), level, msg, attrs...)
	}
}

// SlogAddr4 renders a 4-byte IPv4 address as a slog attribute without
// allocating a string.
func SlogAddr4(key string, addr [4]byte) slog.Attr {
	return slog.Uint64(key, uint64(binary.BigEndian.Uint32(addr[:])))
}
