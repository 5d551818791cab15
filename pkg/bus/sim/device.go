package sim

import (
	"sync"

	"github.com/robotalks/cartbus/pkg/cart"
)

// Peripheral is a device attached to the simulated bus.
type Peripheral interface {
	// Receive handles one write transaction.
	Receive(pkt []byte)
	// Reply answers a read request of count bytes.
	Reply(count int) []byte
}

// Device models the firmware of the holder and the cartridges.
// Packets are buffered as [command, data, address].
type Device struct {
	Name string

	EEPROM [256]byte

	ProgrammerStation byte
	Type              byte
	SerialHigh        byte
	SerialLow         byte

	Size         byte
	Material     byte
	ErrorCode    byte
	Firmware     byte
	Temperature  byte
	VoltageSense byte
	GPIOSwitch   byte

	FanDuty  byte
	WhiteLED byte
	RedLED   byte
	UVLED    byte

	pending []byte
	lock    sync.Mutex
}

// NewHolder creates a cartridge holder.
func NewHolder() *Device {
	return &Device{Name: "holder", Type: 1, Firmware: 3}
}

// NewCartridge creates a cartridge with its identification.
func NewCartridge(name string, typ, station byte, serial uint16) *Device {
	return &Device{
		Name:              name,
		Type:              typ,
		ProgrammerStation: station,
		SerialHigh:        byte(serial / 255),
		SerialLow:         byte(serial % 255),
		Firmware:          3,
	}
}

// Receive implements Peripheral.
func (d *Device) Receive(pkt []byte) {
	if len(pkt) != cart.PacketSize {
		return
	}
	cmd, data, addr := cart.Command(pkt[0]), pkt[1], pkt[2]
	d.lock.Lock()
	defer d.lock.Unlock()
	d.pending = nil
	switch cmd {
	case cart.CmdSetFanPWM:
		d.FanDuty = data
	case cart.CmdSetLEDWhitePWM:
		d.WhiteLED = data
	case cart.CmdSetLEDRedPWM:
		d.RedLED = data
	case cart.CmdSetLEDUVPWM:
		d.UVLED = data
	case cart.CmdEEPROMWrite:
		d.EEPROM[addr] = data
		d.pending = []byte{d.EEPROM[addr]}
	case cart.CmdEEPROMRead:
		d.pending = []byte{d.EEPROM[addr]}
	case cart.CmdReadSerial:
		d.pending = []byte{d.ProgrammerStation, d.Type, d.SerialHigh, d.SerialLow}
	case cart.CmdReadSize:
		d.pending = []byte{d.Size}
	case cart.CmdReadMaterial:
		d.pending = []byte{d.Material}
	case cart.CmdReadType:
		d.pending = []byte{d.Type}
	case cart.CmdReadProgrammer:
		d.pending = []byte{d.ProgrammerStation}
	case cart.CmdReadError:
		d.pending = []byte{d.ErrorCode}
	case cart.CmdReadFirmware:
		d.pending = []byte{d.Firmware}
	case cart.CmdClearError:
		d.ErrorCode = 0
	case cart.CmdReadTemperature:
		d.pending = []byte{d.Temperature}
	case cart.CmdGetVoltageSense:
		d.pending = []byte{d.VoltageSense}
	case cart.CmdGetGPIOSwitch:
		d.pending = []byte{d.GPIOSwitch}
	}
}

// Reply implements Peripheral.
func (d *Device) Reply(count int) []byte {
	d.lock.Lock()
	defer d.lock.Unlock()
	reply := d.pending
	d.pending = nil
	if len(reply) > count {
		reply = reply[:count]
	}
	return reply
}
