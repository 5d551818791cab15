package bridge

import "errors"

var (
	// ErrNoTransaction indicates a write outside a transaction.
	ErrNoTransaction = errors.New("no transaction")
	// ErrNoData indicates ReadByte with nothing available.
	ErrNoData = errors.New("no data available")
	// ErrUnsupportedURL indicates Open doesn't know the URL scheme.
	ErrUnsupportedURL = errors.New("unsupported bridge URL")
)
