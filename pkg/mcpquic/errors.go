package mcpquic

import (
	"errors"
	"fmt"

	"github.com/quic-go/quic-go"
)

// Stream error codes.
const (
	StreamOK          quic.StreamErrorCode = 0x00
	StreamBadPreamble quic.StreamErrorCode = 0x02
	StreamLineTooLong quic.StreamErrorCode = 0x03
)

// Connection error codes.
const (
	ConnOK          quic.ApplicationErrorCode = 0x00
	ConnBadALPN     quic.ApplicationErrorCode = 0x01
	ConnBadProtocol quic.ApplicationErrorCode = 0x03
)

var (
	ErrBadPreamble  = errors.New("mcpquic: bad stream preamble")
	ErrBadALPN      = errors.New("mcpquic: " + ALPN + " not negotiated")
	ErrNotConnected = errors.New("mcpquic: client not connected")
)

// ConnError reports why a peer connection was refused.
type ConnError struct {
	Remote string
	Code   quic.ApplicationErrorCode
	Err    error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("mcpquic: %s refused (0x%02x): %v", e.Remote, uint64(e.Code), e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }
