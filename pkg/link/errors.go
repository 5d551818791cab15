package link

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady indicates the link is not synchronized.
	ErrNotReady = errors.New("link not ready")
	// ErrNoReply indicates the peer replied to a later request,
	// so earlier requests will never be answered.
	ErrNoReply = errors.New("no reply")
	// ErrTimeout indicates no reply arrived in time.
	ErrTimeout = errors.New("reply timeout")
)

// StatusError is an error status replied by the peer.
type StatusError struct {
	Code byte
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("status error 0x%02x", e.Code)
}

// ErrFrameTooLong indicates frame data exceeds MaxDataLen.
var ErrFrameTooLong = errors.New("frame too long")
