package sim

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cartbus/pkg/bus"
	"github.com/robotalks/cartbus/pkg/cart"
)

var _ bus.Transport = (*Bus)(nil)

func newTestDispatcher(b *Bus) (*cart.Dispatcher, *bytes.Buffer) {
	var console bytes.Buffer
	return cart.NewDispatcher(b, &console), &console
}

func TestBusTransactions(t *testing.T) {
	b := NewDefault()
	require.Equal(t, ErrNoTransaction, b.WriteByte(1))
	require.Equal(t, ErrNoTransaction, b.EndTransaction())

	b.BeginTransaction(0x30)
	require.NoError(t, b.WriteByte(1))
	require.Equal(t, ErrNack, b.EndTransaction())
	require.Equal(t, []Transaction{{Addr: 0x30, Data: []byte{1}}}, b.Transactions())
	require.Empty(t, b.Transactions())

	require.Zero(t, b.RequestBytes(0x30, 1))
	_, err := b.ReadByte()
	require.Equal(t, ErrNoData, err)
}

func TestHolderCommands(t *testing.T) {
	b := NewDefault()
	d, console := newTestDispatcher(b)
	holder := b.Peripheral(cart.HolderAddress).(*Device)

	d.SetFanDuty(400)
	require.Equal(t, byte(255), holder.FanDuty)
	d.FanOff()
	require.Equal(t, byte(0), holder.FanDuty)
	d.ToggleUV(1)
	require.Equal(t, byte(1), holder.UVLED)
	d.SetWhiteLED(10)
	d.SetRedLED(20)
	require.Equal(t, byte(10), holder.WhiteLED)
	require.Equal(t, byte(20), holder.RedLED)
	require.Empty(t, console.String())
}

func TestEEPROMRoundTrip(t *testing.T) {
	b := NewDefault()
	d, console := newTestDispatcher(b)
	d.EEPROMWrite(cart.Cartridge0Address, 0x10, 0x07)
	d.EEPROMRead(cart.Cartridge0Address, 0x10)
	d.EEPROMRead(cart.Cartridge1Address, 0x10)
	require.Equal(t, "Command: 'EEPROM Write' Sent\n"+
		"Value = 7 Address = 16\n"+
		"Readback = 7\n"+
		"Command: 'EEPROM Read' Sent\n"+
		"Value = 7\n"+
		"Command: 'EEPROM Read' Sent\n"+
		"Value = 0\n", console.String())
	require.Equal(t, []Transaction{
		{Addr: cart.Cartridge0Address, Data: []byte{0x06, 0x07, 0x10}},
		{Addr: cart.Cartridge0Address, Data: []byte{0x07, 0xff, 0x10}},
		{Addr: cart.Cartridge1Address, Data: []byte{0x07, 0xff, 0x10}},
	}, b.Transactions())
}

func TestIdentification(t *testing.T) {
	b := NewDefault()
	d, console := newTestDispatcher(b)
	id := d.GetIdentification(cart.Cartridge1Address)
	require.Equal(t, cart.Identification{2, 9, 10, 20}, id)
	d.GetIdentification(cart.Cartridge0Address)
	require.Equal(t, "Serial Number = 922570\nSerial Number = 810005\n", console.String())
}

func TestIdentificationTruncated(t *testing.T) {
	b := NewDefault().SetFault(cart.Cartridge1Address, Fault{Truncate: 2})
	d, console := newTestDispatcher(b)
	id := d.GetIdentification(cart.Cartridge1Address)
	require.Equal(t, cart.Identification{2, 9, 0, 0}, id)
	require.Equal(t, "Serial Number = 9200000\n", console.String())
}

func TestStatusQueries(t *testing.T) {
	b := NewDefault()
	c0 := b.Peripheral(cart.Cartridge0Address).(*Device)
	c0.ErrorCode, c0.VoltageSense, c0.Size, c0.Material = 4, 1, 2, 6
	d, console := newTestDispatcher(b)

	d.GetErrorCode(cart.Cartridge0Address)
	d.ClearError(cart.Cartridge0Address)
	d.GetErrorCode(cart.Cartridge0Address)
	require.NoError(t, d.GetVoltageSense(cart.Cartridge0Address))
	require.NoError(t, d.GetVoltageSense(cart.Cartridge1Address))
	require.NoError(t, d.GetGPIOSwitch(cart.Cartridge1Address))
	d.GetSize(cart.Cartridge0Address)
	d.GetMaterial(cart.Cartridge0Address)
	d.GetFirmwareVersion(cart.HolderAddress)
	require.Equal(t, "Error Code = 4\n"+
		"Cleared Error State\n"+
		"Error Code = 0\n"+
		"Extruder Status = 1\n"+
		"Solenoid Status = 0\n"+
		"Syringe Status = 1\n"+
		"Cartridge Size = 2\n"+
		"Cartridge Material = 6\n"+
		"Cartridge Firmware Version = 3\n", console.String())
}

func TestRejectedAddressesDontTouchBus(t *testing.T) {
	b := NewDefault()
	d, console := newTestDispatcher(b)
	require.Equal(t, cart.ErrAddressRejected, d.GetVoltageSense(cart.HolderAddress))
	require.Equal(t, cart.ErrAddressRejected, d.GetGPIOSwitch(cart.Cartridge0Address))
	require.Empty(t, b.Transactions())
	require.Empty(t, console.String())
}

func TestFaults(t *testing.T) {
	b := NewDefault().SetFault(cart.Cartridge0Address, Fault{DropReply: true})
	d, console := newTestDispatcher(b)
	d.GetPeripheralType(cart.Cartridge0Address)
	require.Equal(t, "Peripheral Type = No Packet Available\n", console.String())

	console.Reset()
	b.ClearFault(cart.Cartridge0Address).SetFault(cart.Cartridge1Address, Fault{Timeout: true})
	d.GetPeripheralType(cart.Cartridge1Address)
	require.Equal(t, "Peripheral Type = 9 (I2C Timeout occurred)\n", console.String())
	require.False(t, b.TimeoutFlag())

	console.Reset()
	d.GetPeripheralType(cart.Cartridge0Address)
	require.Equal(t, "Peripheral Type = 8\n", console.String())
}

func TestDetachedPeripheral(t *testing.T) {
	b := NewDefault().Detach(cart.Cartridge0Address)
	d, console := newTestDispatcher(b)
	d.GetProgrammerStation(cart.Cartridge0Address)
	require.Equal(t, "Programmer Station = No Packet Available\n", console.String())
}
