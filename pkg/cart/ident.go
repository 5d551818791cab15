package cart

import "strconv"

// IdentificationLength is the size of the identification reply.
const IdentificationLength = 4

// Slots of the identification reply.
const (
	SlotProgrammerStation = 0
	SlotType              = 1
	SlotSerialHigh        = 2
	SlotSerialLow         = 3
)

// SerialDigits is the zero-padded width of the serial in reports.
const SerialDigits = 4

// Identification is the raw identification reply of a peripheral.
type Identification [IdentificationLength]byte

// Slot returns the byte at slot i, false if i is out of range.
func (id Identification) Slot(i int) (byte, bool) {
	if i < 0 || i >= len(id) {
		return 0, false
	}
	return id[i], true
}

// ProgrammerStation is the station that programmed the peripheral.
func (id Identification) ProgrammerStation() byte { return id[SlotProgrammerStation] }

// Type is the peripheral type.
func (id Identification) Type() byte { return id[SlotType] }

// SerialHigh is the high serial byte.
func (id Identification) SerialHigh() byte { return id[SlotSerialHigh] }

// SerialLow is the low serial byte.
func (id Identification) SerialLow() byte { return id[SlotSerialLow] }

// Serial is the composite serial number. The peripherals are programmed
// with a multiplier of 255, not 256.
func (id Identification) Serial() uint16 {
	return uint16(id.SerialHigh())*255 + uint16(id.SerialLow())
}

// String renders type, programmer station and padded serial run together,
// the form printed on labels.
func (id Identification) String() string {
	return strconv.Itoa(int(id.Type())) +
		strconv.Itoa(int(id.ProgrammerStation())) +
		FormatPadded(int(id.Serial()), SerialDigits)
}
