package cart

import "errors"

type transaction struct {
	addr byte
	data []byte
}

type request struct {
	addr  byte
	count int
}

// fakeBus records transactions and plays scripted replies.
type fakeBus struct {
	sent     []transaction
	requests []request
	// replies are consumed one per RequestBytes.
	replies [][]byte
	// timeoutOn raises the timeout flag on these ReadByte calls (0-based).
	timeoutOn map[int]bool

	current   *transaction
	rx        []byte
	timeout   bool
	readCalls int
	resets    int
}

func (b *fakeBus) BeginTransaction(addr byte) {
	b.current = &transaction{addr: addr}
}

func (b *fakeBus) WriteByte(c byte) error {
	if b.current == nil {
		return errors.New("no transaction")
	}
	b.current.data = append(b.current.data, c)
	return nil
}

func (b *fakeBus) EndTransaction() error {
	if b.current == nil {
		return errors.New("no transaction")
	}
	b.sent = append(b.sent, *b.current)
	b.current = nil
	return nil
}

func (b *fakeBus) RequestBytes(addr byte, count int) int {
	b.requests = append(b.requests, request{addr: addr, count: count})
	b.rx = nil
	if len(b.replies) > 0 {
		b.rx, b.replies = b.replies[0], b.replies[1:]
	}
	return len(b.rx)
}

func (b *fakeBus) Available() int {
	return len(b.rx)
}

func (b *fakeBus) ReadByte() (byte, error) {
	if len(b.rx) == 0 {
		return 0, errors.New("empty")
	}
	if b.timeoutOn[b.readCalls] {
		b.timeout = true
	}
	b.readCalls++
	c := b.rx[0]
	b.rx = b.rx[1:]
	return c, nil
}

func (b *fakeBus) TimeoutFlag() bool {
	return b.timeout
}

func (b *fakeBus) ResetTimeoutFlag() {
	b.timeout = false
	b.resets++
}
