package link

import (
	"io"
	"time"
)

// Seq is a frame sequence number. Valid values are 1..0xef, the rest
// is reserved for sync control bytes.
type Seq byte

// NewSeq picks a random starting sequence.
func NewSeq() Seq {
	return Seq(byte(time.Now().UnixNano())).Next()
}

// Next returns the following sequence number.
func (s Seq) Next() Seq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return Seq(n)
}

// IsValid tells whether s can number a frame.
func (s Seq) IsValid() bool {
	n := byte(s)
	return n > 0 && n < 0xf0
}

// MaxDataLen is the longest data a frame can carry.
const MaxDataLen = 0x7f

const (
	codeEvent byte = 0x80
	codeMask  byte = 0x8f
	lenShift       = 4
	lenInline byte = 7
)

// Frame is a unit on the link.
type Frame struct {
	Seq  Seq
	Code byte
	Data []byte
}

// IsEvent tells whether the frame is unsolicited.
func (f *Frame) IsEvent() bool {
	return f.Code&codeEvent != 0
}

func (f *Frame) header() []byte {
	l := byte(len(f.Data))
	head := []byte{byte(f.Seq), f.Code & codeMask, l}
	if l < lenInline {
		head[1] |= l << lenShift
		return head[:2]
	}
	head[1] |= lenInline << lenShift
	return head
}

// Bytes returns the encoded frame.
func (f *Frame) Bytes() []byte {
	return append(f.header(), f.Data...)
}

// WriteTo writes the encoded frame in two writes: header and data.
func (f *Frame) WriteTo(w io.Writer) (n int64, err error) {
	var n1 int
	if n1, err = w.Write(f.header()); err != nil {
		return int64(n1), err
	}
	n = int64(n1)
	if len(f.Data) > 0 {
		n1, err = w.Write(f.Data)
		n += int64(n1)
	}
	return
}
