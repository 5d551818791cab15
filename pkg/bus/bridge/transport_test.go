package bridge

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cartbus/pkg/bus"
	"github.com/robotalks/cartbus/pkg/bus/sim"
	"github.com/robotalks/cartbus/pkg/cart"
	"github.com/robotalks/cartbus/pkg/link"
)

var _ bus.Transport = (*Transport)(nil)

type chanStream struct {
	readCh  <-chan byte
	writeCh chan<- byte
}

func (s *chanStream) Read(p []byte) (int, error) {
	p[0] = <-s.readCh
	return 1, nil
}

func (s *chanStream) Write(p []byte) (int, error) {
	for _, b := range p {
		s.writeCh <- b
	}
	return len(p), nil
}

func streamPair() (*chanStream, *chanStream) {
	a, b := make(chan byte, 256), make(chan byte, 256)
	return &chanStream{readCh: a, writeCh: b}, &chanStream{readCh: b, writeCh: a}
}

// fakeBridge is the firmware side: it executes link requests on a sim.Bus.
type fakeBridge struct {
	link   *link.Link
	bus    *sim.Bus
	silent sync.Map
}

func (p *fakeBridge) HandleFrame(ctx context.Context, f *link.Frame) {
	if len(f.Data) == 0 {
		return
	}
	addr, status, data := f.Data[0], byte(0), []byte{byte(f.Seq)}
	if _, ok := p.silent.Load(addr); ok {
		return
	}
	switch f.Code {
	case CodeWrite:
		p.bus.BeginTransaction(addr)
		for _, b := range f.Data[1:] {
			p.bus.WriteByte(b)
		}
		if err := p.bus.EndTransaction(); err != nil {
			status = StatusNack | 1
		}
	case CodeRead:
		if p.bus.RequestBytes(addr, int(f.Data[1])) == 0 {
			break
		}
		for p.bus.Available() > 0 {
			b, _ := p.bus.ReadByte()
			data = append(data, b)
		}
		if p.bus.TimeoutFlag() {
			p.bus.ResetTimeoutFlag()
			status, data = StatusTimeout|1, data[:1]
		}
	}
	p.link.Send(&link.Frame{Code: status, Data: data})
}

type bridgeTestEnv struct {
	t         *testing.T
	bus       *sim.Bus
	bridge    *fakeBridge
	transport *Transport
	cancel    func()
}

func newBridgeTestEnv(t *testing.T) *bridgeTestEnv {
	local, remote := streamPair()
	env := &bridgeTestEnv{t: t, bus: sim.NewDefault()}
	env.bridge = &fakeBridge{link: link.New(remote), bus: env.bus}
	env.bridge.link.Handler = env.bridge
	env.transport = New(link.NewClient(link.New(local)))
	env.transport.Timeout = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	env.cancel = cancel
	go env.bridge.link.Run(ctx)
	go env.transport.Run(ctx)

	waitCtx, waitCancel := context.WithTimeout(ctx, time.Second)
	defer waitCancel()
	require.NoError(t, env.transport.WaitReady(waitCtx))
	require.Eventually(t, func() bool {
		return env.bridge.link.State().IsReady()
	}, time.Second, 5*time.Millisecond)
	return env
}

func TestTransportWriteRead(t *testing.T) {
	env := newBridgeTestEnv(t)
	defer env.cancel()
	tr := env.transport

	tr.BeginTransaction(cart.Cartridge0Address)
	for _, b := range []byte{0x06, 0x07, 0x10} {
		require.NoError(t, tr.WriteByte(b))
	}
	require.NoError(t, tr.EndTransaction())
	require.Equal(t, []sim.Transaction{
		{Addr: cart.Cartridge0Address, Data: []byte{0x06, 0x07, 0x10}},
	}, env.bus.Transactions())

	require.Equal(t, 1, tr.RequestBytes(cart.Cartridge0Address, 1))
	require.Equal(t, 1, tr.Available())
	b, err := tr.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(7), b)
	_, err = tr.ReadByte()
	require.Equal(t, ErrNoData, err)
	require.False(t, tr.TimeoutFlag())
}

func TestTransportErrors(t *testing.T) {
	env := newBridgeTestEnv(t)
	defer env.cancel()
	tr := env.transport

	require.Equal(t, ErrNoTransaction, tr.WriteByte(1))
	require.Equal(t, ErrNoTransaction, tr.EndTransaction())

	tr.BeginTransaction(0x30)
	require.NoError(t, tr.WriteByte(1))
	require.Equal(t, &link.StatusError{Code: StatusNack}, tr.EndTransaction())
	require.False(t, tr.TimeoutFlag())

	env.bridge.silent.Store(byte(0x31), true)
	require.Zero(t, tr.RequestBytes(0x31, 1))
	require.True(t, tr.TimeoutFlag())
	tr.ResetTimeoutFlag()
	require.False(t, tr.TimeoutFlag())
}

func TestTransportDispatcher(t *testing.T) {
	env := newBridgeTestEnv(t)
	defer env.cancel()
	var console bytes.Buffer
	d := cart.NewDispatcher(env.transport, &console)

	d.GetIdentification(cart.Cartridge1Address)
	d.EEPROMWrite(cart.Cartridge0Address, 3, 42)
	env.bus.SetFault(cart.Cartridge1Address, sim.Fault{Timeout: true})
	d.GetPeripheralType(cart.Cartridge1Address)
	env.bus.ClearFault(cart.Cartridge1Address)
	d.GetPeripheralType(cart.Cartridge1Address)
	require.Equal(t, "Serial Number = 922570\n"+
		"Command: 'EEPROM Write' Sent\n"+
		"Value = 42 Address = 3\n"+
		"Readback = 42\n"+
		"Peripheral Type = No Packet Available (I2C Timeout occurred)\n"+
		"Peripheral Type = 9\n", console.String())
}
