package engine

import (
	"net"

	"github.com/momotaro98/toytcp/stats"
)

// Snapshot returns a point-in-time row per socket currently in the table,
// suitable for stats.WriteCSV.
func (e *Engine) Snapshot() []stats.Row {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rows := make([]stats.Row, 0, len(e.table))
	for _, s := range e.table {
		rows = append(rows, stats.Row{
			LocalAddr:   net.IPv4(s.ID.LocalAddr[0], s.ID.LocalAddr[1], s.ID.LocalAddr[2], s.ID.LocalAddr[3]).String(),
			LocalPort:   s.ID.LocalPort,
			RemoteAddr:  net.IPv4(s.ID.RemoteAddr[0], s.ID.RemoteAddr[1], s.ID.RemoteAddr[2], s.ID.RemoteAddr[3]).String(),
			RemotePort:  s.ID.RemotePort,
			Status:      s.Status.String(),
			SendUNA:     uint32(s.Send.UNA),
			SendNXT:     uint32(s.Send.NXT),
			SendWindow:  uint32(s.Send.WND),
			RecvNXT:     uint32(s.Recv.NXT),
			RecvWindow:  uint32(s.Recv.WND),
			RtxQueueLen: s.Rtx.Len(),
			BacklogLen:  len(s.Backlog),
		})
	}
	return rows
}
