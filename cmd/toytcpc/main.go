// Command toytcpc connects to a toytcpd-style peer over the userspace TCP
// engine, writes stdin to the connection, and prints whatever the peer
// sends back until it closes.
package main

import (
	"bufio"
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

	"github.com/momotaro98/toytcp/engine"
	"github.com/momotaro98/toytcp/route"
	"github.com/momotaro98/toytcp/underlay"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	laddr := flag.String("laddr", "", "local IPv4 address; auto-detected via the routing table if empty")
	raddr := flag.String("raddr", "", "remote IPv4 address (required)")
	rport := flag.Uint("rport", 0, "remote TCP port (required)")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *raddr == "" || *rport == 0 {
		flag.Usage()
		return errors.New("toytcpc: -raddr and -rport are required")
	}
	remote, err := parseIPv4(*raddr)
	if err != nil {
		return err
	}

	var local [4]byte
	if *laddr != "" {
		local, err = parseIPv4(*laddr)
		if err != nil {
			return err
		}
	} else {
		local, err = route.SourceFor(remote)
		if err != nil {
			return fmt.Errorf("toytcpc: -laddr not given and route lookup failed: %w", err)
		}
	}

	u, err := underlay.NewRawIPv4()
	if err != nil {
		return fmt.Errorf("toytcpc: %w (try running as root or with CAP_NET_RAW)", err)
	}

	cfg := engine.DefaultConfig()
	if _, err := rand.Read(cfg.ISNSecret[:]); err != nil {
		return fmt.Errorf("toytcpc: seed ISN secret: %w", err)
	}
	var opts []engine.Option
	if *verbose {
		opts = append(opts, engine.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}
	e := engine.New(cfg, u, opts...)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		s := <-c
		fmt.Fprintln(os.Stderr, "toytcpc: terminating on signal", s)
		cancel()
	}()

	fmt.Printf("toytcpc: connecting %s -> %s:%d\n", fmtAddr(local), *raddr, *rport)
	sock, err := e.Connect(ctx, local, remote, uint16(*rport))
	if err != nil {
		return fmt.Errorf("toytcpc: connect: %w", err)
	}
	fmt.Println("toytcpc: connected")

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := e.Send(ctx, sock, scanner.Bytes()); err != nil {
				fmt.Fprintf(os.Stderr, "toytcpc: send: %v\n", err)
				return
			}
		}
		if err := e.Close(ctx, sock); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "toytcpc: close: %v\n", err)
		}
	}()

	for {
		data, eof, err := e.Recv(ctx, sock)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("toytcpc: recv: %w", err)
		}
		if len(data) > 0 {
			os.Stdout.Write(data)
		}
		if eof {
			fmt.Println("toytcpc: peer closed")
			return nil
		}
	}
}

func fmtAddr(a [4]byte) string {
	return net.IPv4(a[0], a[1], a[2], a[3]).String()
}

func parseIPv4(s string) ([4]byte, error) {
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return [4]byte{}, fmt.Errorf("toytcpc: %q is not a valid IPv4 address", s)
	}
	var out [4]byte
	copy(out[:], ip)
	return out, nil
}
