package link

import (
	"context"
	"sync"
	"time"
)

// Result is the reply to a request.
type Result struct {
	Err  error
	Code byte
	Data []byte
}

// Request is a sent frame waiting for its reply.
type Request struct {
	seq      Seq
	resultCh chan Result
	next     *Request
}

// Seq returns the sequence the request was sent with.
func (r *Request) Seq() Seq {
	return r.seq
}

// ResultChan delivers exactly one Result.
func (r *Request) ResultChan() <-chan Result {
	return r.resultCh
}

// Client matches replies from the peer to outstanding requests.
// Events and state changes are delivered on channels which must be
// drained by the owner.
type Client struct {
	link    *Link
	eventCh chan *Frame
	stateCh chan State

	pendingHead *Request
	pendingTail *Request
	pendingLock sync.Mutex
}

// NewClient wraps a Link.
func NewClient(l *Link) *Client {
	c := &Client{
		link:    l,
		eventCh: make(chan *Frame, 1),
		stateCh: make(chan State, 1),
	}
	l.Handler = c
	l.Notifier = StateChangedFunc(func(ctx context.Context, state State) {
		select {
		case c.stateCh <- state:
		case <-ctx.Done():
		}
	})
	return c
}

// Link returns the wrapped Link.
func (c *Client) Link() *Link {
	return c.link
}

// StateChan reports link state changes.
func (c *Client) StateChan() <-chan State {
	return c.stateCh
}

// EventChan reports event frames.
func (c *Client) EventChan() <-chan *Frame {
	return c.eventCh
}

// DoWith sends a request delivering the result on ch.
func (c *Client) DoWith(f *Frame, ch chan Result) *Request {
	req := &Request{resultCh: ch}

	c.pendingLock.Lock()
	defer c.pendingLock.Unlock()
	err := c.link.Send(f)
	req.seq = f.Seq
	if err != nil {
		req.resultCh <- Result{Err: err}
		return req
	}
	if c.pendingHead == nil {
		c.pendingHead = req
	} else {
		c.pendingTail.next = req
	}
	c.pendingTail = req
	return req
}

// Do sends a request.
func (c *Client) Do(f *Frame) *Request {
	return c.DoWith(f, make(chan Result, 1))
}

// Call sends a request and waits for its reply for at most timeout.
// Error statuses are returned as *StatusError.
func (c *Client) Call(ctx context.Context, code byte, data []byte, timeout time.Duration) ([]byte, error) {
	req := c.Do(&Frame{Code: code, Data: data})
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-req.ResultChan():
		return r.Data, r.Err
	case <-timer.C:
		c.forget(req)
		return nil, ErrTimeout
	case <-ctx.Done():
		c.forget(req)
		return nil, ctx.Err()
	}
}

// forget drops an abandoned request so a late reply doesn't fail
// the requests sent after it.
func (c *Client) forget(req *Request) {
	c.pendingLock.Lock()
	defer c.pendingLock.Unlock()
	var prev *Request
	for curr := c.pendingHead; curr != nil; prev, curr = curr, curr.next {
		if curr != req {
			continue
		}
		if prev == nil {
			c.pendingHead = curr.next
		} else {
			prev.next = curr.next
		}
		if c.pendingTail == curr {
			c.pendingTail = prev
		}
		curr.next = nil
		return
	}
}

// HandleFrame implements FrameHandler.
func (c *Client) HandleFrame(ctx context.Context, f *Frame) {
	if f.IsEvent() {
		select {
		case c.eventCh <- f:
		case <-ctx.Done():
		}
		return
	}
	if len(f.Data) == 0 {
		// a reply always carries the request seq.
		return
	}
	seq := Seq(f.Data[0])
	if !seq.IsValid() {
		return
	}
	c.pendingLock.Lock()
	head := c.pendingHead
	curr := c.pendingHead
	for ; curr != nil; curr = curr.next {
		if curr.seq == seq {
			if c.pendingHead = curr.next; c.pendingHead == nil {
				c.pendingTail = nil
			}
			curr.next = nil
			break
		}
	}
	c.pendingLock.Unlock()
	if curr == nil {
		return
	}
	for head != curr {
		next := head.next
		head.next = nil
		head.resultCh <- Result{Err: ErrNoReply}
		head = next
	}
	if f.Code&1 != 0 {
		curr.resultCh <- Result{Err: &StatusError{Code: f.Code & 0x7e}}
	} else {
		curr.resultCh <- Result{Code: f.Code & 0x7e, Data: f.Data[1:]}
	}
}

// Run runs the Link.
func (c *Client) Run(ctx context.Context) error {
	return c.link.Run(ctx)
}
