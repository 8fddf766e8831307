// Command toytcpd is a minimal echo server built on the userspace TCP
// engine: every byte a client sends is printed to stdout and sent back to
// that client, and the connection is closed once the peer closes its side.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/momotaro98/toytcp/engine"
	"github.com/momotaro98/toytcp/socket"
	"github.com/momotaro98/toytcp/stats"
	"github.com/momotaro98/toytcp/underlay"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	laddr := flag.String("laddr", "", "local IPv4 address to bind (required)")
	lport := flag.Uint("lport", 0, "local TCP port to listen on (required)")
	verbose := flag.Bool("v", false, "enable debug logging")
	statsInterval := flag.Duration("stats-interval", 0, "if non-zero, periodically write a CSV socket-table snapshot to stderr")
	flag.Parse()

	if *laddr == "" || *lport == 0 {
		flag.Usage()
		return errors.New("toytcpd: -laddr and -lport are required")
	}
	local, err := parseIPv4(*laddr)
	if err != nil {
		return err
	}

	var log *slog.Logger
	if *verbose {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	u, err := underlay.NewRawIPv4()
	if err != nil {
		return fmt.Errorf("toytcpd: %w (try running as root or with CAP_NET_RAW)", err)
	}

	cfg := engine.DefaultConfig()
	if _, err := rand.Read(cfg.ISNSecret[:]); err != nil {
		return fmt.Errorf("toytcpd: seed ISN secret: %w", err)
	}

	var opts []engine.Option
	if log != nil {
		opts = append(opts, engine.WithLogger(log))
	}
	e := engine.New(cfg, u, opts...)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		s := <-c
		fmt.Fprintln(os.Stderr, "toytcpd: shutting down on signal", s)
		cancel()
	}()

	listenID, err := e.Listen(local, uint16(*lport))
	if err != nil {
		return fmt.Errorf("toytcpd: listen: %w", err)
	}
	fmt.Printf("toytcpd: listening on %s:%d\n", *laddr, *lport)

	if *statsInterval > 0 {
		go reportStats(ctx, e, *statsInterval)
	}

	for {
		child, err := e.Accept(ctx, listenID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("toytcpd: accept: %w", err)
		}
		go serve(ctx, e, child)
	}
}

func serve(ctx context.Context, e *engine.Engine, sock socket.ID) {
	fmt.Printf("toytcpd: accepted %s\n", sock)
	for {
		data, eof, err := e.Recv(ctx, sock)
		if err != nil {
			fmt.Fprintf(os.Stderr, "toytcpd: recv from %s: %v\n", sock, err)
			return
		}
		if len(data) > 0 {
			os.Stdout.Write(data)
			if err := e.Send(ctx, sock, data); err != nil {
				fmt.Fprintf(os.Stderr, "toytcpd: echo to %s: %v\n", sock, err)
				return
			}
		}
		if eof {
			if err := e.Close(ctx, sock); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "toytcpd: close %s: %v\n", sock, err)
			}
			fmt.Printf("toytcpd: %s closed\n", sock)
			return
		}
	}
}

func reportStats(ctx context.Context, e *engine.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rows := e.Snapshot()
			if len(rows) == 0 {
				continue
			}
			if err := stats.WriteCSV(os.Stderr, rows); err != nil {
				fmt.Fprintf(os.Stderr, "toytcpd: write stats: %v\n", err)
			}
		}
	}
}

func parseIPv4(s string) ([4]byte, error) {
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return [4]byte{}, fmt.Errorf("toytcpd: %q is not a valid IPv4 address", s)
	}
	var out [4]byte
	copy(out[:], ip)
	return out, nil
}
