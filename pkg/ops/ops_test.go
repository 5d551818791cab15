package ops

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cartbus/pkg/bus/sim"
	"github.com/robotalks/cartbus/pkg/cart"
)

func TestParseArg(t *testing.T) {
	testCases := []struct {
		in     string
		expect int
	}{
		{"12", 12},
		{"0x24", 0x24},
		{"holder", 0x2f},
		{"cart0", 0x24},
		{"C1", 0x25},
		{"300", 300},
	}
	for _, tc := range testCases {
		v, err := ParseArg(tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.expect, v, tc.in)
	}
	_, err := ParseArg("fast")
	require.Error(t, err)
}

func TestFind(t *testing.T) {
	require.Equal(t, "fan", Find("f").Name)
	require.Equal(t, "eeprom.read", Find("er").Name)
	require.Nil(t, Find("nope"))
	names := make(map[string]bool)
	for _, op := range Ops {
		require.False(t, names[op.Name], op.Name)
		names[op.Name] = true
	}
}

func TestExecLine(t *testing.T) {
	b := sim.NewDefault()
	var console bytes.Buffer
	d := cart.NewDispatcher(b, &console)

	require.NoError(t, ExecLine(d, "fan 1000"))
	require.NoError(t, ExecLine(d, "  "))
	require.NoError(t, ExecLine(d, "ew cart0 0x10 7"))
	require.NoError(t, ExecLine(d, "id cart1"))
	require.Equal(t, cart.ErrAddressRejected, ExecLine(d, "switch holder"))
	require.NoError(t, ExecLine(d, "vsense cart0"))

	require.Equal(t, []sim.Transaction{
		{Addr: cart.HolderAddress, Data: []byte{0x01, 0xff, 0xff}},
		{Addr: cart.Cartridge0Address, Data: []byte{0x06, 0x07, 0x10}},
		{Addr: cart.Cartridge1Address, Data: []byte{0x08, 0xff, 0xff}},
		{Addr: cart.Cartridge0Address, Data: []byte{0x20, 0xff, 0xff}},
	}, b.Transactions())
	require.Equal(t, "Command: 'EEPROM Write' Sent\n"+
		"Value = 7 Address = 16\n"+
		"Readback = 7\n"+
		"Serial Number = 922570\n"+
		"Extruder Status = 0\n", console.String())
}

func TestExecLineErrors(t *testing.T) {
	d := cart.NewDispatcher(sim.NewDefault(), &bytes.Buffer{})
	require.ErrorIs(t, ExecLine(d, "warp 9"), ErrUnknownCommand)
	require.EqualError(t, ExecLine(d, "eeprom.read cart0"), "eeprom.read: TARGET ADDRESS required")
	require.NoError(t, ExecLine(d, "fan.off"))
	require.Error(t, ExecLine(d, "fan 0xzz"))
	require.EqualError(t, ExecLine(d, "eeprom.read cart0 0x100"), "value 256 out of byte range")
}
