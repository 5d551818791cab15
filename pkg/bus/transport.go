// Package bus defines the capability set of an addressed, half-duplex bus.
package bus

// Transport is the addressed bus seen by the protocol layer.
// It mirrors a two-wire master: writes are buffered between
// BeginTransaction and EndTransaction, reads are requested up front
// and then drained byte by byte.
//
// The timeout flag is sticky: once set by a transaction it stays set
// until ResetTimeoutFlag is called.
type Transport interface {
	// BeginTransaction starts a write transaction to addr.
	BeginTransaction(addr byte)
	// WriteByte queues one byte in the current transaction.
	WriteByte(b byte) error
	// EndTransaction transmits the queued bytes.
	EndTransaction() error
	// RequestBytes asks addr for count bytes and returns how many arrived.
	RequestBytes(addr byte, count int) int
	// Available returns the number of received bytes not yet read.
	Available() int
	// ReadByte consumes one received byte.
	ReadByte() (byte, error)
	// TimeoutFlag reports whether a transaction has timed out.
	TimeoutFlag() bool
	// ResetTimeoutFlag clears the timeout flag.
	ResetTimeoutFlag()
}
