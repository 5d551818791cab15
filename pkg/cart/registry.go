package cart

import "fmt"

// Address is a peripheral bus address.
type Address = byte

// Well-known bus addresses.
const (
	// HolderAddress is the cartridge holder carrying the fan and LEDs.
	HolderAddress Address = 0x2F
	// CartridgePrefixAddress is the base address of cartridge slots.
	CartridgePrefixAddress Address = 0x24
	// Cartridge0Address is the left cartridge.
	Cartridge0Address = CartridgePrefixAddress + 0
	// Cartridge1Address is the right cartridge.
	Cartridge1Address = CartridgePrefixAddress + 1
)

// Sentinels for packet fields a command doesn't use.
const (
	EmptyAddress byte = 0xFF
	EmptyData    byte = 0xFF
)

// MaxFanDuty is the highest fan PWM duty sent to the holder.
// 127 (50%) is the limit for 12V fans wired in parallel, 255 is
// fine for fans wired in series.
const MaxFanDuty = 255

// Command is the opcode of a packet. Values are shared with the
// peripheral firmware and must never change.
type Command byte

// Commands.
const (
	CmdSetFanPWM       Command = 0x01
	CmdReserved02      Command = 0x02
	CmdSetLEDWhitePWM  Command = 0x03
	CmdSetLEDRedPWM    Command = 0x04
	CmdSetLEDUVPWM     Command = 0x05
	CmdEEPROMWrite     Command = 0x06
	CmdEEPROMRead      Command = 0x07
	CmdReadSerial      Command = 0x08
	CmdReadSize        Command = 0x09
	CmdReadMaterial    Command = 0x10
	CmdReadType        Command = 0x11
	CmdReadProgrammer  Command = 0x12
	CmdReadError       Command = 0x13
	CmdReadFirmware    Command = 0x14
	CmdClearError      Command = 0x15
	CmdReadTemperature Command = 0x16
	CmdGetVoltageSense Command = 0x20
	CmdGetGPIOSwitch   Command = 0x21
)

var commandNames = map[Command]string{
	CmdSetFanPWM:       "set-fan-pwm",
	CmdReserved02:      "reserved-02",
	CmdSetLEDWhitePWM:  "set-led-white-pwm",
	CmdSetLEDRedPWM:    "set-led-red-pwm",
	CmdSetLEDUVPWM:     "set-led-uv-pwm",
	CmdEEPROMWrite:     "eeprom-write",
	CmdEEPROMRead:      "eeprom-read",
	CmdReadSerial:      "read-serial",
	CmdReadSize:        "read-size",
	CmdReadMaterial:    "read-material",
	CmdReadType:        "read-type",
	CmdReadProgrammer:  "read-programmer",
	CmdReadError:       "read-error",
	CmdReadFirmware:    "read-firmware",
	CmdClearError:      "clear-error",
	CmdReadTemperature: "read-temperature",
	CmdGetVoltageSense: "get-gpio-v-sense",
	CmdGetGPIOSwitch:   "get-gpio-switch",
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command-0x%02x", byte(c))
}

// IsCartridge tells whether addr is one of the cartridge slots.
func IsCartridge(addr Address) bool {
	return addr == Cartridge0Address || addr == Cartridge1Address
}

// AddressName gives a friendly name for well-known addresses.
func AddressName(addr Address) string {
	switch addr {
	case HolderAddress:
		return "holder"
	case Cartridge0Address:
		return "cartridge0"
	case Cartridge1Address:
		return "cartridge1"
	}
	return fmt.Sprintf("0x%02x", addr)
}
