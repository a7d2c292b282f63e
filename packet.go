package reorder

import (
	"encoding/binary"
	"fmt"
	"github.com/lithdew/bytesutil"
	"io"
)

const PacketHeaderSize = 13

type PacketHeaderFlag uint8

const (
	// FlagFragment is reserved and must never be set.
	FlagFragment PacketHeaderFlag = 1 << iota

	// FlagReset announces a new session epoch, carrying no payload. The sender restarts its sequence numbers from 0.
	FlagReset
)

func (f PacketHeaderFlag) Toggled(flag PacketHeaderFlag) bool {
	return f&flag != 0
}

type PacketHeader struct {
	flag  PacketHeaderFlag
	epoch uint16
	seq   uint64
	size  uint16
}

func (p PacketHeader) Epoch() uint16 {
	return p.epoch
}

func (p PacketHeader) Seq() uint64 {
	return p.seq
}

func (p PacketHeader) Reset() bool {
	return p.flag.Toggled(FlagReset)
}

func (p PacketHeader) AppendTo(dst []byte) []byte {
	dst = append(dst, uint8(p.flag))
	dst = bytesutil.AppendUint16BE(dst, p.epoch)
	dst = binary.BigEndian.AppendUint64(dst, p.seq)
	dst = bytesutil.AppendUint16BE(dst, p.size)
	return dst
}

// UnmarshalPacketHeader decodes a packet header from b. leftover holds exactly the payload the header describes.
func UnmarshalPacketHeader(b []byte) (header PacketHeader, leftover []byte, err error) {
	if len(b) < PacketHeaderSize {
		return header, b, fmt.Errorf("got %d byte(s), expected at least %d byte(s): %w",
			len(b),
			PacketHeaderSize,
			io.ErrUnexpectedEOF,
		)
	}

	header.flag, b = PacketHeaderFlag(b[0]), b[1:]

	if header.flag.Toggled(FlagFragment) {
		return header, b, fmt.Errorf("got unsupported packet header flag %08b", uint8(header.flag))
	}

	header.epoch, b = bytesutil.Uint16BE(b[:2]), b[2:]
	header.seq, b = binary.BigEndian.Uint64(b[:8]), b[8:]
	header.size, b = bytesutil.Uint16BE(b[:2]), b[2:]

	if int(header.size) > len(b) {
		return header, b, fmt.Errorf("header declares %d byte(s) of payload, but only got %d byte(s): %w",
			header.size,
			len(b),
			io.ErrUnexpectedEOF,
		)
	}

	return header, b[:header.size], nil
}
