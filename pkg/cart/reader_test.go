package cart

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderNoReply(t *testing.T) {
	b := &fakeBus{}
	r := &Reader{Bus: b}
	reply := r.Read(Cartridge0Address, 1)
	require.True(t, reply.NoReply())
	require.Equal(t, ErrNoReply, reply.Err())
	require.Equal(t, "No Packet Available", reply.String())
	require.Zero(t, b.readCalls)
	require.Equal(t, []request{{addr: Cartridge0Address, count: 1}}, b.requests)
}

func TestReaderShortReply(t *testing.T) {
	b := &fakeBus{replies: [][]byte{{7}}}
	reply := (&Reader{Bus: b}).Read(HolderAddress, 4)
	require.Equal(t, []byte{7}, reply.Data)
	require.NoError(t, reply.Err())
	require.Equal(t, "7", reply.String())
}

func TestReaderTimeoutReset(t *testing.T) {
	b := &fakeBus{
		replies:   [][]byte{{1, 2}, {3}},
		timeoutOn: map[int]bool{0: true},
	}
	r := &Reader{Bus: b}

	reply := r.Read(Cartridge1Address, 2)
	require.Equal(t, []byte{1, 2}, reply.Data)
	require.Equal(t, []int{0}, reply.Timeouts)
	require.Equal(t, ErrBusTimeout, reply.Err())
	require.Equal(t, "1 (I2C Timeout occurred) 2", reply.String())
	require.False(t, b.TimeoutFlag())
	require.Equal(t, 1, b.resets)

	reply = r.Read(Cartridge1Address, 1)
	require.Equal(t, []byte{3}, reply.Data)
	require.False(t, reply.TimedOut())
	require.Equal(t, 1, b.resets)
}

type timeoutOnRequestBus struct {
	fakeBus
}

func (b *timeoutOnRequestBus) RequestBytes(addr byte, count int) int {
	b.timeout = true
	return b.fakeBus.RequestBytes(addr, count)
}

func TestReaderNoReplyTimeout(t *testing.T) {
	b := &timeoutOnRequestBus{}
	r := &Reader{Bus: b}
	reply := r.Read(Cartridge0Address, 1)
	require.True(t, reply.NoReply())
	require.True(t, reply.TimedOut())
	require.Equal(t, ErrNoReply, reply.Err())
	require.Equal(t, "No Packet Available (I2C Timeout occurred)", reply.String())
	require.False(t, b.TimeoutFlag())
	require.Zero(t, b.readCalls)
}
