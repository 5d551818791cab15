// Package cart provides the command protocol spoken to the cartridge holder
// and the cartridges sitting on the shared peripheral bus.
package cart

// Every command is a 3-byte packet written to the target bus address.
// The peripheral firmware buffers incoming packets as
//
//	[0] command
//	[1] data
//	[2] EEPROM/register address
//
// so data precedes address on the wire. Queries are answered by a
// separate read request; most replies are a single byte, the
// identification reply is 4 bytes.
//
// Producer: printer controller
// Consumer: holder and cartridge firmware
