package cart

import (
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/cartbus/pkg/bus"
)

// Reply is the outcome of reading from a peripheral.
type Reply struct {
	Data []byte
	// Timeouts lists positions in Data after which the
	// transport timeout flag was observed, -1 for a timeout
	// seen without any byte received.
	Timeouts []int
}

// NoReply tells whether the bus returned nothing.
func (r Reply) NoReply() bool {
	return len(r.Data) == 0
}

// TimedOut tells whether a timeout was observed while draining.
func (r Reply) TimedOut() bool {
	return len(r.Timeouts) > 0
}

// Err maps the reply condition to ErrNoReply or ErrBusTimeout.
func (r Reply) Err() error {
	if r.NoReply() {
		return ErrNoReply
	}
	if r.TimedOut() {
		return ErrBusTimeout
	}
	return nil
}

// String renders the reply as console text: decimal values with a
// note wherever a timeout was seen.
func (r Reply) String() string {
	if r.NoReply() {
		if r.TimedOut() {
			return "No Packet Available" + timeoutNote
		}
		return "No Packet Available"
	}
	var sb strings.Builder
	t := 0
	for n, b := range r.Data {
		if n > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(int(b)))
		for ; t < len(r.Timeouts) && r.Timeouts[t] == n; t++ {
			sb.WriteString(timeoutNote)
		}
	}
	return sb.String()
}

const timeoutNote = " (I2C Timeout occurred)"

// Reader requests and drains replies from the bus.
type Reader struct {
	Bus bus.Transport
}

// Read requests count bytes from target and drains whatever arrives.
// Fewer bytes than requested is not an error. A timeout flag raised
// by a request that produced nothing is cleared as well.
func (r *Reader) Read(target Address, count int) (reply Reply) {
	r.Bus.RequestBytes(target, count)
	if r.Bus.Available() == 0 {
		glog.V(2).Infof("RECV %s: no reply", AddressName(target))
		if r.checkTimeout(target) {
			reply.Timeouts = []int{-1}
		}
		return
	}
	for r.Bus.Available() > 0 {
		b, err := r.Bus.ReadByte()
		if err != nil {
			glog.V(1).Infof("read %s: %v", AddressName(target), err)
			break
		}
		reply.Data = append(reply.Data, b)
		if r.checkTimeout(target) {
			reply.Timeouts = append(reply.Timeouts, len(reply.Data)-1)
		}
	}
	glog.V(2).Infof("RECV %s % x", AddressName(target), reply.Data)
	return
}

// ReadIdentification requests the 4-byte identification record.
// Slots not delivered by the peripheral stay zero, extra bytes are dropped.
func (r *Reader) ReadIdentification(target Address) (id Identification, timedOut bool) {
	r.Bus.RequestBytes(target, IdentificationLength)
	if r.Bus.Available() == 0 && r.checkTimeout(target) {
		timedOut = true
	}
	n := 0
	for r.Bus.Available() > 0 {
		b, err := r.Bus.ReadByte()
		if err != nil {
			glog.V(1).Infof("read %s: %v", AddressName(target), err)
			break
		}
		if n < IdentificationLength {
			id[n] = b
		}
		n++
		if r.checkTimeout(target) {
			timedOut = true
		}
	}
	if n < IdentificationLength {
		glog.V(1).Infof("identification from %s truncated: %d bytes", AddressName(target), n)
	}
	glog.V(2).Infof("RECV %s % x", AddressName(target), id[:])
	return
}

// checkTimeout observes and clears the sticky timeout flag so it
// can't leak into a later read.
func (r *Reader) checkTimeout(target Address) bool {
	if !r.Bus.TimeoutFlag() {
		return false
	}
	r.Bus.ResetTimeoutFlag()
	glog.Warningf("bus timeout reading %s", AddressName(target))
	return true
}
