// Package bridge implements bus.Transport through a bus-bridge
// microcontroller reached over a pkg/link stream.
package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cartbus/pkg/link"
)

// Request codes understood by the bridge.
const (
	// CodeWrite writes [addr, bytes...] in one bus transaction.
	CodeWrite byte = 0x01
	// CodeRead requests [addr, count] bytes, the reply carries them.
	CodeRead byte = 0x02
	// CodeReset is an event the bridge sends after it boots.
	CodeReset byte = 0x81
)

// Status codes replied by the bridge along with the error bit.
const (
	StatusNack    byte = 0x02
	StatusTimeout byte = 0x04
)

// DefaultTimeout bounds a single bridge request.
const DefaultTimeout = 200 * time.Millisecond

// maxWrite leaves room for the address in a frame.
const maxWrite = link.MaxDataLen - 1

// Transport is a bus.Transport backed by a link.Client.
type Transport struct {
	Client  *link.Client
	Timeout time.Duration

	txAddr  byte
	txData  []byte
	inTx    bool
	rx      []byte
	timeout bool

	ready     chan struct{}
	readyOnce sync.Once
	lock      sync.Mutex
}

// New creates a Transport over client.
func New(client *link.Client) *Transport {
	return &Transport{
		Client:  client,
		Timeout: DefaultTimeout,
		ready:   make(chan struct{}),
	}
}

// Run runs the link and consumes its state changes and events.
func (t *Transport) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go t.watch(runCtx)
	return t.Client.Run(runCtx)
}

// WaitReady blocks until the link synchronizes for the first time.
func (t *Transport) WaitReady(ctx context.Context) error {
	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Transport) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case state := <-t.Client.StateChan():
			if state.IsReady() {
				t.readyOnce.Do(func() { close(t.ready) })
			}
		case f := <-t.Client.EventChan():
			if f.Code == CodeReset {
				glog.Warning("bridge: reset")
			} else {
				glog.V(1).Infof("bridge: event 0x%02x % x", f.Code, f.Data)
			}
		}
	}
}

// BeginTransaction implements bus.Transport.
func (t *Transport) BeginTransaction(addr byte) {
	t.lock.Lock()
	t.txAddr, t.txData, t.inTx = addr, t.txData[:0], true
	t.lock.Unlock()
}

// WriteByte implements bus.Transport.
func (t *Transport) WriteByte(b byte) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if !t.inTx {
		return ErrNoTransaction
	}
	if len(t.txData) >= maxWrite {
		return link.ErrFrameTooLong
	}
	t.txData = append(t.txData, b)
	return nil
}

// EndTransaction implements bus.Transport.
func (t *Transport) EndTransaction() error {
	t.lock.Lock()
	if !t.inTx {
		t.lock.Unlock()
		return ErrNoTransaction
	}
	data := append([]byte{t.txAddr}, t.txData...)
	t.inTx = false
	t.lock.Unlock()

	_, err := t.call(CodeWrite, data)
	return err
}

// RequestBytes implements bus.Transport.
func (t *Transport) RequestBytes(addr byte, count int) int {
	if count > link.MaxDataLen-1 {
		count = link.MaxDataLen - 1
	}
	rx, err := t.call(CodeRead, []byte{addr, byte(count)})
	if err != nil {
		glog.V(1).Infof("bridge: read 0x%02x: %v", addr, err)
	}
	t.lock.Lock()
	t.rx = rx
	t.lock.Unlock()
	return len(rx)
}

// Available implements bus.Transport.
func (t *Transport) Available() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.rx)
}

// ReadByte implements bus.Transport.
func (t *Transport) ReadByte() (byte, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.rx) == 0 {
		return 0, ErrNoData
	}
	b := t.rx[0]
	t.rx = t.rx[1:]
	return b, nil
}

// TimeoutFlag implements bus.Transport.
func (t *Transport) TimeoutFlag() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.timeout
}

// ResetTimeoutFlag implements bus.Transport.
func (t *Transport) ResetTimeoutFlag() {
	t.lock.Lock()
	t.timeout = false
	t.lock.Unlock()
}

// call sends one request. Bus timeouts reported by the bridge and
// link timeouts raise the timeout flag.
func (t *Transport) call(code byte, data []byte) ([]byte, error) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	reply, err := t.Client.Call(context.Background(), code, data, timeout)
	if isTimeout(err) {
		t.lock.Lock()
		t.timeout = true
		t.lock.Unlock()
	}
	return reply, err
}

func isTimeout(err error) bool {
	if err == link.ErrTimeout {
		return true
	}
	se, ok := err.(*link.StatusError)
	return ok && se.Code == StatusTimeout
}
