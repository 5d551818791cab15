// Package sim provides an in-memory bus with simulated peripherals.
package sim

import (
	"errors"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/cartbus/pkg/cart"
)

var (
	// ErrNoTransaction indicates WriteByte/EndTransaction without BeginTransaction.
	ErrNoTransaction = errors.New("no transaction")
	// ErrNack indicates no peripheral answered the address.
	ErrNack = errors.New("address not acknowledged")
	// ErrNoData indicates ReadByte with nothing available.
	ErrNoData = errors.New("no data available")
)

// Fault describes misbehavior injected for an address.
type Fault struct {
	// DropReply discards every reply.
	DropReply bool
	// Truncate keeps at most this many reply bytes when positive.
	Truncate int
	// Timeout raises the timeout flag when a reply byte is read.
	Timeout bool
}

// Transaction is a write transaction seen on the bus.
type Transaction struct {
	Addr byte
	Data []byte
}

// Bus is an in-memory bus.Transport.
type Bus struct {
	peripherals map[byte]Peripheral
	faults      map[byte]Fault
	log         []Transaction

	txAddr  byte
	txData  []byte
	inTx    bool
	rxAddr  byte
	rx      []byte
	timeout bool

	lock sync.Mutex
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		peripherals: make(map[byte]Peripheral),
		faults:      make(map[byte]Fault),
	}
}

// NewDefault creates a bus populated with a holder and two cartridges.
func NewDefault() *Bus {
	cart1 := NewCartridge("cartridge1", 9, 2, 2570)
	cart1.GPIOSwitch = 1
	return New().
		Attach(cart.HolderAddress, NewHolder()).
		Attach(cart.Cartridge0Address, NewCartridge("cartridge0", 8, 1, 5)).
		Attach(cart.Cartridge1Address, cart1)
}

// Attach adds a peripheral at addr.
func (b *Bus) Attach(addr byte, p Peripheral) *Bus {
	b.lock.Lock()
	b.peripherals[addr] = p
	b.lock.Unlock()
	return b
}

// Detach removes the peripheral at addr.
func (b *Bus) Detach(addr byte) *Bus {
	b.lock.Lock()
	delete(b.peripherals, addr)
	b.lock.Unlock()
	return b
}

// Peripheral returns the peripheral at addr.
func (b *Bus) Peripheral(addr byte) Peripheral {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.peripherals[addr]
}

// SetFault injects a fault for addr.
func (b *Bus) SetFault(addr byte, f Fault) *Bus {
	b.lock.Lock()
	b.faults[addr] = f
	b.lock.Unlock()
	return b
}

// ClearFault removes the fault of addr.
func (b *Bus) ClearFault(addr byte) *Bus {
	b.lock.Lock()
	delete(b.faults, addr)
	b.lock.Unlock()
	return b
}

// Transactions returns and clears the write transactions seen so far.
func (b *Bus) Transactions() []Transaction {
	b.lock.Lock()
	defer b.lock.Unlock()
	log := b.log
	b.log = nil
	return log
}

// BeginTransaction implements bus.Transport.
func (b *Bus) BeginTransaction(addr byte) {
	b.lock.Lock()
	b.txAddr, b.txData, b.inTx = addr, nil, true
	b.lock.Unlock()
}

// WriteByte implements bus.Transport.
func (b *Bus) WriteByte(c byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.inTx {
		return ErrNoTransaction
	}
	b.txData = append(b.txData, c)
	return nil
}

// EndTransaction implements bus.Transport.
func (b *Bus) EndTransaction() error {
	b.lock.Lock()
	if !b.inTx {
		b.lock.Unlock()
		return ErrNoTransaction
	}
	tx := Transaction{Addr: b.txAddr, Data: b.txData}
	b.inTx, b.txData = false, nil
	b.log = append(b.log, tx)
	p := b.peripherals[tx.Addr]
	b.lock.Unlock()

	if p == nil {
		return ErrNack
	}
	glog.V(3).Infof("sim: %02x <- % x", tx.Addr, tx.Data)
	p.Receive(tx.Data)
	return nil
}

// RequestBytes implements bus.Transport.
func (b *Bus) RequestBytes(addr byte, count int) int {
	b.lock.Lock()
	p, fault := b.peripherals[addr], b.faults[addr]
	b.lock.Unlock()

	var rx []byte
	if p != nil {
		rx = p.Reply(count)
	}
	if fault.DropReply {
		rx = nil
	}
	if fault.Truncate > 0 && len(rx) > fault.Truncate {
		rx = rx[:fault.Truncate]
	}

	b.lock.Lock()
	b.rxAddr, b.rx = addr, rx
	b.lock.Unlock()
	glog.V(3).Infof("sim: %02x -> % x", addr, rx)
	return len(rx)
}

// Available implements bus.Transport.
func (b *Bus) Available() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.rx)
}

// ReadByte implements bus.Transport.
func (b *Bus) ReadByte() (byte, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if len(b.rx) == 0 {
		return 0, ErrNoData
	}
	c := b.rx[0]
	b.rx = b.rx[1:]
	if b.faults[b.rxAddr].Timeout {
		b.timeout = true
	}
	return c, nil
}

// TimeoutFlag implements bus.Transport.
func (b *Bus) TimeoutFlag() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.timeout
}

// ResetTimeoutFlag implements bus.Transport.
func (b *Bus) ResetTimeoutFlag() {
	b.lock.Lock()
	b.timeout = false
	b.lock.Unlock()
}
