package main

import (
	"context"
	"flag"
	"github.com/lithdew/bytesutil"
	"github.com/lithdew/reorder"
	"github.com/pkg/profile"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"log"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"sync"
)

func check(err error) {
	if err != nil {
		log.Panic(err)
	}
}

// shuffleConn holds back writes until it has batch of them, and then writes them out in a random order. Packets
// without a payload, such as session resets, are written out immediately.
type shuffleConn struct {
	conn  net.PacketConn
	batch int

	mu      sync.Mutex
	pending [][]byte
}

func (c *shuffleConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	if len(b) <= reorder.PacketHeaderSize {
		return c.conn.WriteTo(b, addr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = append(c.pending, append([]byte(nil), b...))
	if len(c.pending) < c.batch {
		return len(b), nil
	}

	rand.Shuffle(len(c.pending), func(i, j int) {
		c.pending[i], c.pending[j] = c.pending[j], c.pending[i]
	})

	for _, p := range c.pending {
		if _, err := c.conn.WriteTo(p, addr); err != nil {
			return 0, err
		}
	}

	c.pending = c.pending[:0]

	return len(b), nil
}

var (
	client          bool
	enableLogs      bool
	enableProfiling bool
	packetsPerSec   float64
	batch           int
	packetSize      int
)

func runClient(ctx context.Context, addr *net.UDPAddr) error {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return err
	}

	e, err := reorder.NewEndpoint(
		&shuffleConn{conn: conn, batch: batch},
		reorder.HandlerFunc(func(uint64, []byte) {}),
		nil,
	)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})

	g.Go(func() error {
		if err := e.SendReset(addr); err != nil {
			return err
		}

		limiter := rate.NewLimiter(rate.Limit(packetsPerSec), batch)
		buf := make([]byte, packetSize)

		for {
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}

			buf = bytesutil.RandomSlice(buf)

			n, err := e.SendPacket(buf, addr)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}

			if enableLogs {
				log.Printf("sent %d byte(s)", n)
			}
		}
	})

	return g.Wait()
}

func runServer(ctx context.Context, addr *net.UDPAddr) error {
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}

	config := reorder.NewConfig()
	config.Logger = log.Default()

	e, err := reorder.NewEndpoint(conn, reorder.HandlerFunc(func(seq uint64, buf []byte) {
		if enableLogs {
			log.Printf("recv packet %d (%d byte(s))", seq, len(buf))
		}
	}), config)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return e.Serve(conn)
	})

	g.Go(func() error {
		<-ctx.Done()
		return conn.Close()
	})

	return g.Wait()
}

func main() {
	flag.BoolVar(&client, "client", false, "client mode")
	flag.BoolVar(&enableLogs, "log", false, "log every packet sent/recv")
	flag.BoolVar(&enableProfiling, "profile", false, "perform cpu profiling")
	flag.Float64Var(&packetsPerSec, "rate", 1000, "packets sent per second in client mode")
	flag.IntVar(&batch, "batch", 16, "number of packets shuffled together before being sent in client mode")
	flag.IntVar(&packetSize, "size", 1024, "payload size of each packet in client mode")
	flag.Parse()

	addr, err := net.ResolveUDPAddr("udp", ":4444")
	check(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := []func(*profile.Profile){
		profile.CPUProfile,
		profile.NoShutdownHook,
	}

	if client {
		opts = append(opts, profile.ProfilePath("./cmd/udp_test/client"))

		if enableProfiling {
			defer profile.Start(opts...).Stop()
		}

		log.Println("running as client")
		check(runClient(ctx, addr))
	} else {
		opts = append(opts, profile.ProfilePath("./cmd/udp_test/server"))

		if enableProfiling {
			defer profile.Start(opts...).Stop()
		}

		log.Println("running as server")
		check(runServer(ctx, addr))
	}
}
