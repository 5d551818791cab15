package link

// State is the synchronization state of the link.
type State int

const (
	// StateSyncing means the peers are not synchronized.
	StateSyncing State = 0
	// StateReady means frames can be exchanged.
	StateReady State = 0x01
	// StateReceiving means a sync handshake or a frame is in progress.
	StateReceiving State = 0x02
)

// IsReady tells whether frames can be sent.
func (s State) IsReady() bool {
	return s&StateReady != 0
}

// IsReceiving tells whether a handshake or a frame is half way.
func (s State) IsReceiving() bool {
	return s&StateReceiving != 0
}

// TimerAction tells the link what to do with the sync timer.
type TimerAction int

const (
	// TimerNoChange keeps the timer as is.
	TimerNoChange TimerAction = iota
	// TimerRestart (re)arms the timer.
	TimerRestart
	// TimerStop cancels the timer.
	TimerStop
)

// Step is the outcome of feeding the parser.
type Step struct {
	// Sync is a control byte to send back, 0 for none.
	Sync  byte
	State State
	Frame *Frame
}

// Timer decides what to do with the sync timer after this step.
func (s Step) Timer() TimerAction {
	if s.State.IsReceiving() || s.Sync == syncREQ {
		return TimerRestart
	}
	if s.State.IsReady() {
		return TimerStop
	}
	return TimerNoChange
}

const (
	syncREQ byte = 0xff
	syncACK byte = 0xfe
)

type parseState int

const (
	waitSync       parseState = iota // syncREQ sent, waiting for the peer
	waitReqSeq                       // got syncREQ, waiting for its seq
	waitAckSeq                       // got syncACK, waiting for its seq
	waitFrameSeq                     // synchronized, waiting for a frame
	waitFrameAck                     // got syncACK while synchronized
	waitFrameCode                    // waiting for code
	waitFrameLen                     // waiting for explicit length
	waitFrameData                    // receiving data
)

// Parser decodes the byte stream from the peer.
type Parser struct {
	peerSeq Seq
	state   parseState
	frame   *Frame
	recvLen int
}

// State returns the current link state.
func (p *Parser) State() State {
	switch {
	case p.state == waitSync:
		return StateSyncing
	case p.state == waitFrameSeq:
		return StateReady
	case p.state > waitFrameSeq:
		return StateReady | StateReceiving
	}
	return StateSyncing | StateReceiving
}

// Reset drops everything and asks the peer to resync.
func (p *Parser) Reset() (s Step) {
	p.frame = nil
	s.Sync, s.Frame = p.resync()
	s.State = p.State()
	return
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (s Step) {
	s.Sync, s.Frame = p.parseByte(b)
	s.State = p.State()
	return
}

// Timeout tells the parser the sync timer expired.
// Anything but an idle synchronized link is resynchronized.
func (p *Parser) Timeout() (s Step) {
	if p.state != waitFrameSeq {
		s.Sync, s.Frame = p.resync()
	}
	s.State = p.State()
	return
}

func (p *Parser) parseByte(b byte) (byte, *Frame) {
	switch p.state {
	case waitSync:
		switch b {
		case syncREQ:
			p.state = waitReqSeq
		case syncACK:
			p.state = waitAckSeq
		}
	case waitReqSeq:
		if !p.accept(Seq(b)) {
			return p.resync()
		}
		return syncACK, nil
	case waitAckSeq:
		if !p.accept(Seq(b)) {
			return p.resync()
		}
	case waitFrameSeq:
		switch {
		case b == syncREQ:
			p.state = waitReqSeq
		case b == syncACK:
			p.state = waitFrameAck
		case Seq(b) != p.peerSeq:
			return p.resync()
		default:
			p.frame = &Frame{Seq: p.peerSeq}
			p.peerSeq = p.peerSeq.Next()
			p.state = waitFrameCode
		}
	case waitFrameAck:
		if Seq(b) != p.peerSeq {
			return p.resync()
		}
		p.state = waitFrameSeq
	case waitFrameCode:
		p.frame.Code = b & codeMask
		switch l := (b >> lenShift) & lenInline; l {
		case 0:
			return p.frameDone()
		case lenInline:
			p.state = waitFrameLen
		default:
			p.expect(int(l))
		}
	case waitFrameLen:
		if b > MaxDataLen {
			return p.resync()
		}
		if b == 0 {
			return p.frameDone()
		}
		p.expect(int(b))
	case waitFrameData:
		p.frame.Data[p.recvLen] = b
		if p.recvLen++; p.recvLen >= len(p.frame.Data) {
			return p.frameDone()
		}
	}
	return 0, nil
}

func (p *Parser) accept(seq Seq) bool {
	if !seq.IsValid() {
		return false
	}
	p.peerSeq, p.state = seq, waitFrameSeq
	return true
}

func (p *Parser) expect(l int) {
	p.frame.Data, p.recvLen = make([]byte, l), 0
	p.state = waitFrameData
}

func (p *Parser) resync() (byte, *Frame) {
	p.state = waitSync
	return syncREQ, nil
}

func (p *Parser) frameDone() (byte, *Frame) {
	p.state = waitFrameSeq
	f := p.frame
	p.frame = nil
	return 0, f
}
