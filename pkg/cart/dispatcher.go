package cart

import (
	"fmt"
	"io"
	"os"

	"github.com/robotalks/cartbus/pkg/bus"
)

// Dispatcher exposes one method per peripheral capability.
// It is synchronous and must not be shared between goroutines
// without external serialization.
type Dispatcher struct {
	Bus     bus.Transport
	Console io.Writer
	// Verbose echoes fire-and-forget commands to the console.
	Verbose bool
}

// NewDispatcher creates a Dispatcher writing reports to console.
// A nil console means os.Stdout.
func NewDispatcher(t bus.Transport, console io.Writer) *Dispatcher {
	if console == nil {
		console = os.Stdout
	}
	return &Dispatcher{Bus: t, Console: console}
}

// WithVerbose sets Verbose.
func (d *Dispatcher) WithVerbose(en bool) *Dispatcher {
	d.Verbose = en
	return d
}

// GeneralCommand sends an arbitrary command. No reply is read.
func (d *Dispatcher) GeneralCommand(target Address, cmd Command, addr, data byte) {
	d.send(target, cmd, addr, data)
	if d.Verbose {
		d.println("Command: 'I2C Command' Sent")
		d.printf("Target address = %d\n", target)
		d.printf("command = %d\n", byte(cmd))
		d.printf("address = %d\n", addr)
		d.printf("data = %d\n", data)
	}
}

// SetFanDuty sets the holder fan PWM duty, clamped to 0..MaxFanDuty.
func (d *Dispatcher) SetFanDuty(duty int) {
	if duty > MaxFanDuty {
		duty = MaxFanDuty
	} else if duty < 0 {
		duty = 0
	}
	d.send(HolderAddress, CmdSetFanPWM, EmptyAddress, byte(duty))
	if d.Verbose {
		d.println("Command: 'Set Fan Speed' Sent")
		d.printf("fanSpeed = %d\n", duty)
	}
}

// FanOff stops the holder fan.
func (d *Dispatcher) FanOff() {
	d.send(HolderAddress, CmdSetFanPWM, EmptyAddress, 0)
	if d.Verbose {
		d.println("Command: 'Fan Off' Sent")
		d.println("fanSpeed = 0")
	}
}

// ToggleUV switches the holder UV LED: 0 disables, anything else enables.
func (d *Dispatcher) ToggleUV(data byte) {
	d.setLED(CmdSetLEDUVPWM, "Toggle UV", data)
}

// SetWhiteLED sets the holder white LED PWM duty.
func (d *Dispatcher) SetWhiteLED(duty byte) {
	d.setLED(CmdSetLEDWhitePWM, "Set White LED", duty)
}

// SetRedLED sets the holder red LED PWM duty.
func (d *Dispatcher) SetRedLED(duty byte) {
	d.setLED(CmdSetLEDRedPWM, "Set Red LED", duty)
}

func (d *Dispatcher) setLED(cmd Command, name string, data byte) {
	d.send(HolderAddress, cmd, EmptyAddress, data)
	if d.Verbose {
		d.printf("Command: '%s' Sent\n", name)
		d.printf("data = %d\n", data)
	}
}

// EEPROMWrite writes data to an EEPROM cell and reports the byte read back.
func (d *Dispatcher) EEPROMWrite(target Address, addr, data byte) {
	d.send(target, CmdEEPROMWrite, addr, data)
	d.println("Command: 'EEPROM Write' Sent")
	d.printf("Value = %d Address = %d\n", data, addr)
	d.report("Readback = ", target)
}

// EEPROMRead reads and reports an EEPROM cell.
func (d *Dispatcher) EEPROMRead(target Address, addr byte) {
	d.send(target, CmdEEPROMRead, addr, EmptyData)
	d.println("Command: 'EEPROM Read' Sent")
	d.report("Value = ", target)
}

// GetIdentification reads and reports the identification record.
func (d *Dispatcher) GetIdentification(target Address) Identification {
	d.send(target, CmdReadSerial, EmptyAddress, EmptyData)
	id, timedOut := d.reader().ReadIdentification(target)
	d.printf("Serial Number = %s", id.String())
	if timedOut {
		d.print(timeoutNote)
	}
	d.println("")
	return id
}

// GetProgrammerStation reports the station which programmed target.
func (d *Dispatcher) GetProgrammerStation(target Address) {
	d.query(target, CmdReadProgrammer, "Programmer Station = ")
}

// GetPeripheralType reports the peripheral type of target.
func (d *Dispatcher) GetPeripheralType(target Address) {
	d.query(target, CmdReadType, "Peripheral Type = ")
}

// GetSize reports the nozzle size of a cartridge.
func (d *Dispatcher) GetSize(target Address) {
	d.query(target, CmdReadSize, "Cartridge Size = ")
}

// GetMaterial reports the material loaded in a cartridge.
func (d *Dispatcher) GetMaterial(target Address) {
	d.query(target, CmdReadMaterial, "Cartridge Material = ")
}

// GetErrorCode reports the error code of target.
func (d *Dispatcher) GetErrorCode(target Address) {
	d.query(target, CmdReadError, "Error Code = ")
}

// GetFirmwareVersion reports the firmware version of target.
func (d *Dispatcher) GetFirmwareVersion(target Address) {
	d.query(target, CmdReadFirmware, "Cartridge Firmware Version = ")
}

// GetTemperature reports the temperature byte of a cartridge.
func (d *Dispatcher) GetTemperature(target Address) {
	d.query(target, CmdReadTemperature, "Cartridge Temperature = ")
}

// GetVoltageSense reports the voltage sense pin of a cartridge: the hot end
// on cartridge 0, the solenoid on cartridge 1. Other addresses are rejected
// without touching the bus or the console.
func (d *Dispatcher) GetVoltageSense(target Address) error {
	var label string
	switch target {
	case Cartridge0Address:
		label = "Extruder Status = "
	case Cartridge1Address:
		label = "Solenoid Status = "
	default:
		return ErrAddressRejected
	}
	d.query(target, CmdGetVoltageSense, label)
	return nil
}

// GetGPIOSwitch reports whether the syringe of the pneumatic cartridge
// (cartridge 1) is deployed. Other addresses are rejected silently.
func (d *Dispatcher) GetGPIOSwitch(target Address) error {
	if target != Cartridge1Address {
		return ErrAddressRejected
	}
	d.query(target, CmdGetGPIOSwitch, "Syringe Status = ")
	return nil
}

// ClearError clears the error flag of target.
func (d *Dispatcher) ClearError(target Address) {
	d.send(target, CmdClearError, EmptyAddress, EmptyData)
	d.println("Cleared Error State")
}

func (d *Dispatcher) send(target Address, cmd Command, addr, data byte) {
	Packet{Target: target, Command: cmd, Address: addr, Data: data}.Send(d.Bus)
}

func (d *Dispatcher) query(target Address, cmd Command, label string) {
	d.send(target, cmd, EmptyAddress, EmptyData)
	d.report(label, target)
}

func (d *Dispatcher) report(label string, target Address) {
	reply := d.reader().Read(target, 1)
	d.println(label + reply.String())
}

func (d *Dispatcher) reader() *Reader {
	return &Reader{Bus: d.Bus}
}

func (d *Dispatcher) print(s string) {
	io.WriteString(d.Console, s)
}

func (d *Dispatcher) println(s string) {
	io.WriteString(d.Console, s+"\n")
}

func (d *Dispatcher) printf(format string, args ...interface{}) {
	fmt.Fprintf(d.Console, format, args...)
}
