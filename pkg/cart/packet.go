package cart

import (
	"github.com/golang/glog"

	"github.com/robotalks/cartbus/pkg/bus"
)

// PacketSize is the number of bytes in every command packet.
const PacketSize = 3

// Packet is a single command sent to a peripheral.
type Packet struct {
	Target  Address
	Command Command
	Address byte
	Data    byte
}

// Bytes returns the wire payload: command, data, address.
func (p Packet) Bytes() [PacketSize]byte {
	return [PacketSize]byte{byte(p.Command), p.Data, p.Address}
}

// Send sends the packet as one transaction to its target.
// Transport failures are logged only, the bus gives no
// acknowledgement the caller could act on.
func (p Packet) Send(t bus.Transport) {
	t.BeginTransaction(p.Target)
	for _, b := range p.Bytes() {
		if err := t.WriteByte(b); err != nil {
			glog.V(1).Infof("write %s to %s: %v", p.Command, AddressName(p.Target), err)
		}
	}
	if err := t.EndTransaction(); err != nil {
		glog.V(1).Infof("send %s to %s: %v", p.Command, AddressName(p.Target), err)
		return
	}
	glog.V(2).Infof("SEND %s % x", AddressName(p.Target), p.Bytes())
}
