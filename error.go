package reorder

import (
	"errors"
	"io"
	"net"
)

var (
	ErrDuplicate  = errors.New("reorder: duplicate sequence number")
	ErrExpired    = errors.New("reorder: sequence number expired")
	ErrFullBuffer = errors.New("reorder: sequence number outside of window")

	ErrStaleSession = errors.New("reorder: packet from an earlier session")

	ErrUnknownResult = errors.New("reorder: unknown insert result")

	ErrInvalidConfig  = errors.New("reorder: invalid configuration")
	ErrPacketTooLarge = errors.New("reorder: packet too large")
)

func isEOF(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		if netErr.Err == nil {
			return false
		}
		return errors.Is(netErr.Err, net.ErrClosed) || netErr.Err.Error() == "use of closed network connection"
	}

	return errors.Is(err, net.ErrClosed)
}
