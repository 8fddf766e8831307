// Package stats exports a point-in-time snapshot of the engine's socket
// table as CSV, the same shape m-lab's tcp-info collector writes for
// kernel TCP_INFO records, applied here to ToyTCP's own socket table.
package stats

import (
	"io"

	"github.com/gocarina/gocsv"
)

// Row is one socket's snapshot, flattened for CSV encoding. Column order
// follows gocsv's struct-tag convention.
type Row struct {
	LocalAddr   string `csv:"local_addr"`
	LocalPort   uint16 `csv:"local_port"`
	RemoteAddr  string `csv:"remote_addr"`
	RemotePort  uint16 `csv:"remote_port"`
	Status      string `csv:"status"`
	SendUNA     uint32 `csv:"send_una"`
	SendNXT     uint32 `csv:"send_next"`
	SendWindow  uint32 `csv:"send_window"`
	RecvNXT     uint32 `csv:"recv_next"`
	RecvWindow  uint32 `csv:"recv_window"`
	RtxQueueLen int    `csv:"rtx_queue_len"`
	BacklogLen  int    `csv:"backlog_len"`
}

// WriteCSV encodes rows to w as CSV with a header row.
func WriteCSV(w io.Writer, rows []Row) error {
	return gocsv.Marshal(rows, w)
}
