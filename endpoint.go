package reorder

import (
	"errors"
	"fmt"
	"github.com/lithdew/bytesutil"
	"github.com/valyala/bytebufferpool"
	"github.com/ygrebnov/errorc"
	"math"
	"net"
	"sync"
)

type Conn interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
}

// Handler is handed every packet an Endpoint receives, exactly once and in sequence order. buf is only valid for
// the duration of the call. Process must not call back into the Endpoint's receiving side.
type Handler interface {
	Process(seq uint64, buf []byte)
}

type HandlerFunc func(seq uint64, buf []byte)

func (f HandlerFunc) Process(seq uint64, buf []byte) {
	f(seq, buf)
}

type packet struct {
	seq uint64
	buf *bytebufferpool.ByteBuffer
}

type Endpoint struct {
	config  *Config
	conn    Conn
	handler Handler
	metrics *metrics

	pool bytebufferpool.Pool

	sendMu    sync.Mutex
	sendEpoch uint16
	seq       uint64

	recvMu    sync.Mutex // guards recv across each insert and the drain that follows it
	recvEpoch uint16
	recv      *ReorderBuffer[packet]
}

func NewEndpoint(conn Conn, handler Handler, config *Config) (*Endpoint, error) {
	if config == nil {
		config = NewConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if handler == nil {
		return nil, errorc.With(ErrInvalidConfig, errorc.String("Handler", "must not be nil"))
	}

	e := &Endpoint{
		config:  config,
		conn:    conn,
		handler: handler,
		metrics: newMetrics(config.Registerer, config.Namespace, config.Subsystem),
		recv:    NewReorderBuffer[packet](int(config.BufferSize)),
	}

	return e, nil
}

// SendPacket assigns buf the next outgoing sequence number and writes it to addr.
func (e *Endpoint) SendPacket(buf []byte, addr net.Addr) (written int, err error) {
	if uint(len(buf)) > e.config.MaxPacketSize {
		return 0, fmt.Errorf("got %d byte(s), max is %d byte(s): %w", len(buf), e.config.MaxPacketSize, ErrPacketTooLarge)
	}

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	header := PacketHeader{epoch: e.sendEpoch, seq: e.seq, size: uint16(len(buf))}

	if err := e.write(header, buf, addr); err != nil {
		return 0, fmt.Errorf("failed to write packet %d: %w", header.seq, err)
	}

	e.seq++

	return PacketHeaderSize + len(buf), nil
}

// SendReset starts a new session epoch, restarts outgoing sequence numbers from 0, and announces the new epoch to
// the peer at addr. Every packet carries its epoch, so the peer still switches over should a packet of the new
// session overtake the announcement.
func (e *Endpoint) SendReset(addr net.Addr) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	e.sendEpoch++
	e.seq = 0

	if err := e.write(PacketHeader{flag: FlagReset, epoch: e.sendEpoch}, nil, addr); err != nil {
		return fmt.Errorf("failed to write reset for session %d: %w", e.sendEpoch, err)
	}

	return nil
}

func (e *Endpoint) write(header PacketHeader, buf []byte, addr net.Addr) error {
	scratch := e.pool.Get()
	defer e.pool.Put(scratch)

	scratch.B = header.AppendTo(scratch.B[:0])
	scratch.B = append(scratch.B, buf...)

	_, err := e.conn.WriteTo(scratch.B, addr)
	return err
}

// RecvPacket decodes a single packet and hands every packet that is now in order to the endpoint's handler.
// A packet that is rejected by the reorder buffer yields an error wrapping ErrDuplicate, ErrExpired, or
// ErrFullBuffer. A packet from a session older than the current one yields ErrStaleSession.
func (e *Endpoint) RecvPacket(buf []byte) error {
	header, payload, err := UnmarshalPacketHeader(buf)
	if err != nil {
		e.metrics.decodeErrors.Inc()
		return fmt.Errorf("failed to unmarshal packet header: %w", err)
	}

	if uint(len(payload)) > e.config.MaxPacketSize {
		e.metrics.decodeErrors.Inc()
		return fmt.Errorf("packet %d has %d byte(s), max is %d byte(s): %w",
			header.seq,
			len(payload),
			e.config.MaxPacketSize,
			ErrPacketTooLarge,
		)
	}

	e.recvMu.Lock()
	defer e.recvMu.Unlock()

	// The first packet seen from a newer session, be it the reset announcement or a data packet that overtook it,
	// restarts the reorder buffer. Packets still in flight from an older session are dropped.

	switch {
	case epochGreaterThan(header.epoch, e.recvEpoch):
		e.reset(header.epoch)
	case header.epoch != e.recvEpoch:
		e.metrics.staleSessions.Inc()
		return fmt.Errorf("packet %d is from session %d, but session %d has started: %w",
			header.seq,
			header.epoch,
			e.recvEpoch,
			ErrStaleSession,
		)
	}

	if header.Reset() {
		return nil
	}

	// Copy the payload out of buf, as buf will most likely be reused by the caller to read the next packet.

	b := e.pool.Get()
	b.B = bytesutil.ExtendSlice(b.B, len(payload))
	copy(b.B, payload)

	result := e.recv.Insert(header.seq, packet{seq: header.seq, buf: b})
	e.metrics.inserts.WithLabelValues(result.String()).Inc()

	if result != Inserted {
		e.pool.Put(b)

		if result == FullBuffer {
			lo, hi := e.recv.Window()
			e.logf("rejected packet %d (window [%d, %d)): %s", header.seq, lo, hi, result)
		}

		return fmt.Errorf("packet received w/ sequence number %d was rejected: %w", header.seq, result.Err())
	}

	for p := range e.recv.Drain() {
		e.handler.Process(p.seq, p.buf.B)
		e.pool.Put(p.buf)
		e.metrics.delivered.Inc()
	}

	e.metrics.buffered.Set(float64(e.recv.Len()))

	return nil
}

// reset switches the receiving side over to session epoch. recvMu must be held.
func (e *Endpoint) reset(epoch uint16) {
	e.logf("peer started session %d, dropping %d buffered packet(s) of session %d waiting on packet %d",
		epoch,
		e.recv.Len(),
		e.recvEpoch,
		e.recv.Next(),
	)

	e.recvEpoch = epoch
	e.recv.Reset()

	e.metrics.resets.Inc()
	e.metrics.buffered.Set(0)
}

// Serve reads packets from conn until it is closed. Packets that fail to be received are logged and dropped.
func (e *Endpoint) Serve(conn net.PacketConn) error {
	buf := make([]byte, math.MaxUint16)

	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if isEOF(err) {
				return nil
			}
			return err
		}

		if err := e.RecvPacket(buf[:n]); err != nil && !isRejected(err) {
			e.logf("dropped packet from %s: %v", addr, err)
		}
	}
}

// Next returns the sequence number that will be assigned to the next sent packet.
func (e *Endpoint) Next() uint64 {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	return e.seq
}

// Expected returns the sequence number of the next packet to be handed to the handler.
func (e *Endpoint) Expected() uint64 {
	e.recvMu.Lock()
	defer e.recvMu.Unlock()

	return e.recv.Next()
}

// Buffered returns the number of received packets waiting on an earlier packet.
func (e *Endpoint) Buffered() int {
	e.recvMu.Lock()
	defer e.recvMu.Unlock()

	return e.recv.Len()
}

func (e *Endpoint) logf(format string, v ...interface{}) {
	if e.config.Logger != nil {
		e.config.Logger.Printf(format, v...)
	}
}

func isRejected(err error) bool {
	return errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrFullBuffer) ||
		errors.Is(err, ErrStaleSession)
}
