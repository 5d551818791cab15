// Package link provides the serial link to a bus bridge.
package link

// The bridge is a small microcontroller owning the peripheral bus.
// The controller talks to it over a byte stream (serial port or
// websocket) which may drop or corrupt bytes, so the link must be able
// to recover without resetting either side.
//
// Both peers number their frames. A peer which loses track sends
// syncREQ followed by its next sequence and the other answers with
// syncACK and its own sequence. There is no checksum; parity can be
// enabled on the serial port if bit errors matter.
//
// Frame layout:
//
//	seq | code(bit 7: event, bits 4-6: length) | [length] | data
//
// A length nibble of 7 means an explicit length byte (< 0x80) follows.
// Replies carry the request sequence as their first data byte; bit 0
// of a reply code marks an error status.
//
// Producer: controller (requests), bridge (replies, events)
// Consumer: bridge (requests), controller (replies, events)
