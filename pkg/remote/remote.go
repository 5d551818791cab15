package remote

import (
	"context"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/cartbus/pkg/cart"
	"github.com/robotalks/cartbus/pkg/ops"
)

// Topics under the device prefix.
const (
	TopicCmd    = "cmd"
	TopicError  = "error"
	TopicStatus = "status"
)

// DefaultQueueSize is the number of command lines buffered.
const DefaultQueueSize = 16

// Remote executes command lines received over MQTT one at a time.
// The dispatcher is only used from Run.
type Remote struct {
	Dispatcher *cart.Dispatcher
	Pub        Publisher

	cmdCh chan string
}

// New creates a Remote. Console output of d should go to a Console on pub.
func New(d *cart.Dispatcher, pub Publisher) *Remote {
	return &Remote{
		Dispatcher: d,
		Pub:        pub,
		cmdCh:      make(chan string, DefaultQueueSize),
	}
}

// HandleCmd queues the lines of payload. Lines are dropped when the
// queue is full.
func (r *Remote) HandleCmd(topic string, payload []byte) {
	for _, line := range strings.Split(string(payload), "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		select {
		case r.cmdCh <- line:
		default:
			glog.Warningf("remote: queue full, drop %q", line)
			r.Pub.Pub(TopicError, []byte("busy: "+line))
		}
	}
}

// Name implements framework.Named.
func (r *Remote) Name() string {
	return "remote"
}

// Run executes queued lines until ctx is done.
func (r *Remote) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line := <-r.cmdCh:
			r.exec(line)
		}
	}
}

func (r *Remote) exec(line string) {
	glog.V(1).Infof("remote: exec %q", line)
	err := ops.ExecLine(r.Dispatcher, line)
	if f, ok := r.Dispatcher.Console.(interface{ Flush() }); ok {
		f.Flush()
	}
	if err != nil {
		glog.V(1).Infof("remote: %q: %v", line, err)
		r.Pub.Pub(TopicError, []byte(line+": "+err.Error()))
	}
}
