package reorder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ygrebnov/errorc"
	"log"
	"math"
	"strconv"
)

const MaxPacketSize = math.MaxUint16 - PacketHeaderSize

type Config struct {
	// Number of out-of-order packets an endpoint may hold while waiting for a gap to be filled.
	BufferSize uint

	// Largest payload, in bytes, that may be sent or received in a single packet.
	MaxPacketSize uint

	// Destination for rejected packets and session resets. Nothing is logged if nil.
	Logger *log.Logger

	// Metrics are registered here if non-nil.
	Registerer prometheus.Registerer
	Namespace  string
	Subsystem  string
}

func NewConfig() *Config {
	return &Config{
		BufferSize:    256,
		MaxPacketSize: 16 * 1024,

		Namespace: "reorder",
	}
}

func (c *Config) Validate() error {
	if c.BufferSize == 0 {
		return errorc.With(ErrInvalidConfig, errorc.String("BufferSize", "must be > 0"))
	}

	if c.MaxPacketSize == 0 {
		return errorc.With(ErrInvalidConfig, errorc.String("MaxPacketSize", "must be > 0"))
	}

	// Header and payload together must fit in a single datagram read by Serve.

	if c.MaxPacketSize > MaxPacketSize {
		return errorc.With(ErrInvalidConfig,
			errorc.String("MaxPacketSize", "must be <= "+strconv.Itoa(MaxPacketSize)),
		)
	}

	return nil
}
