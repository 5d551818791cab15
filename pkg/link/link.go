package link

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"
)

// FrameHandler is called for every frame received.
type FrameHandler interface {
	HandleFrame(context.Context, *Frame)
}

// HandleFrameFunc is the func form of FrameHandler.
type HandleFrameFunc func(context.Context, *Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(ctx context.Context, frame *Frame) {
	f(ctx, frame)
}

// StateNotifier is called when the link state changes.
type StateNotifier interface {
	StateChanged(context.Context, State)
}

// StateChangedFunc is the func form of StateNotifier.
type StateChangedFunc func(context.Context, State)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, state State) {
	f(ctx, state)
}

// DefaultSyncTimeout is how long a handshake or a frame may stall.
const DefaultSyncTimeout = 100 * time.Millisecond

// Link sends and receives frames over a byte stream.
type Link struct {
	Stream   io.ReadWriter
	Handler  FrameHandler
	Notifier StateNotifier
	Timeout  time.Duration
	// ReadTimeout must be set when Stream.Read returns periodically
	// (timeout error or 0 bytes) instead of blocking.
	ReadTimeout bool

	seq   Seq
	state State
	lock  sync.RWMutex

	syncTimer <-chan time.Time
	parser    Parser
}

// New creates a Link over stream.
func New(stream io.ReadWriter) *Link {
	return &Link{
		Stream:  stream,
		Timeout: DefaultSyncTimeout,
		seq:     NewSeq(),
	}
}

// State returns the current state.
func (l *Link) State() State {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.state
}

// Send numbers and transmits a frame.
func (l *Link) Send(f *Frame) error {
	if len(f.Data) > MaxDataLen {
		return ErrFrameTooLong
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	if !l.state.IsReady() {
		return ErrNotReady
	}
	f.Seq = l.seq
	if _, err := f.WriteTo(l.Stream); err != nil {
		return err
	}
	glog.V(3).Infof("link: TX % x", f.Bytes())
	l.seq = l.seq.Next()
	return nil
}

// Run receives and dispatches frames until ctx is done or the stream fails.
func (l *Link) Run(ctx context.Context) error {
	if err := l.apply(ctx, l.parser.Reset()); err != nil {
		return err
	}
	if l.ReadTimeout {
		return l.runPolling(ctx)
	}
	return l.runBlocking(ctx)
}

func (l *Link) runPolling(ctx context.Context) error {
	buf := make([]byte, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.syncTimer:
			if err := l.apply(ctx, l.parser.Timeout()); err != nil {
				return err
			}
			continue
		default:
		}
		var step Step
		n, err := l.Stream.Read(buf)
		switch {
		case err != nil && !os.IsTimeout(err):
			return err
		case err != nil || n == 0:
			step = l.parser.Timeout()
		default:
			step = l.parser.Parse(buf[0])
		}
		if err = l.apply(ctx, step); err != nil {
			return err
		}
	}
}

func (l *Link) runBlocking(ctx context.Context) error {
	byteCh, errCh := make(chan byte), make(chan error, 1)
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.readLoop(readCtx, byteCh, errCh)
	for {
		var step Step
		select {
		case b := <-byteCh:
			step = l.parser.Parse(b)
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-l.syncTimer:
			step = l.parser.Timeout()
		}
		if err := l.apply(ctx, step); err != nil {
			return err
		}
	}
}

func (l *Link) readLoop(ctx context.Context, byteCh chan<- byte, errCh chan<- error) {
	buf := make([]byte, 1)
	for {
		if _, err := l.Stream.Read(buf); err != nil {
			errCh <- err
			return
		}
		select {
		case byteCh <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}

func (l *Link) apply(ctx context.Context, step Step) (err error) {
	var notifier StateNotifier
	l.lock.Lock()
	if l.state != step.State {
		glog.V(2).Infof("link: state %d -> %d", l.state, step.State)
		l.state = step.State
		notifier = l.Notifier
	}
	if step.Sync != 0 {
		_, err = l.Stream.Write([]byte{step.Sync, byte(l.seq)})
	}
	l.lock.Unlock()
	if err != nil {
		return
	}

	if l.ReadTimeout {
		// polling reads stall on their own; only a pending syncREQ needs a timer.
		if step.Sync == syncREQ {
			l.syncTimer = time.After(l.timeout())
		} else {
			l.syncTimer = nil
		}
	} else {
		switch step.Timer() {
		case TimerRestart:
			l.syncTimer = time.After(l.timeout())
		case TimerStop:
			l.syncTimer = nil
		}
	}

	if notifier != nil {
		notifier.StateChanged(ctx, step.State)
	}
	if step.Frame != nil {
		glog.V(3).Infof("link: RX % x", step.Frame.Bytes())
		if h := l.Handler; h != nil {
			h.HandleFrame(ctx, step.Frame)
		}
	}
	return
}

func (l *Link) timeout() time.Duration {
	if l.Timeout > 0 {
		return l.Timeout
	}
	return DefaultSyncTimeout
}
