package cart

import "errors"

var (
	// ErrNoReply indicates the bus returned no bytes for a read.
	ErrNoReply = errors.New("no reply")
	// ErrBusTimeout indicates the transport timeout flag was observed during a read.
	ErrBusTimeout = errors.New("bus timeout")
	// ErrAddressRejected indicates an address-restricted command was given
	// an address it doesn't serve. Nothing is transmitted.
	ErrAddressRejected = errors.New("address rejected")
)
