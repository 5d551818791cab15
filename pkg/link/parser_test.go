package link

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type parserStep struct {
	in     []byte
	expect Step
	final  Step
}

type parserScript struct {
	steps []parserStep
}

func script() *parserScript {
	return &parserScript{}
}

func (b *parserScript) on(state State, in ...byte) *parserScript {
	s := parserStep{in: in, expect: Step{State: state}}
	s.final = s.expect
	b.steps = append(b.steps, s)
	return b
}

func (b *parserScript) onSyncing(in ...byte) *parserScript {
	return b.on(StateSyncing|StateReceiving, in...)
}

func (b *parserScript) onReceiving(in ...byte) *parserScript {
	return b.on(StateReady|StateReceiving, in...)
}

func (b *parserScript) timeout() *parserScript {
	b.steps = append(b.steps, parserStep{})
	return b
}

func (b *parserScript) final(s Step) *parserScript {
	b.steps[len(b.steps)-1].final = s
	return b
}

func (b *parserScript) synced() *parserScript {
	return b.final(Step{State: StateReady})
}

func (b *parserScript) frame(seq, code byte, data ...byte) *parserScript {
	return b.final(Step{State: StateReady, Frame: &Frame{Seq: Seq(seq), Code: code, Data: data}})
}

func (b *parserScript) resync() *parserScript {
	return b.final(Step{Sync: syncREQ, State: StateSyncing})
}

func (b *parserScript) syncedWithAck() *parserScript {
	return b.final(Step{Sync: syncACK, State: StateReady})
}

func TestParser(t *testing.T) {
	testCases := []struct {
		name  string
		steps *parserScript
	}{
		{
			"sync and receive replies",
			script().
				onSyncing(syncACK, 1).synced().
				onReceiving(1, 0x02).frame(1, 2).
				onReceiving(2, 0x72, 0).frame(2, 2).
				onReceiving(3, 0x92, 0x03).frame(3, 0x82, 3).
				onReceiving(4, 0x72, 0x08, 1, 2, 3, 4, 5, 6, 7, 8).frame(4, 2, 1, 2, 3, 4, 5, 6, 7, 8),
		},
		{
			"sync timeout",
			script().
				timeout().resync().
				onSyncing(syncACK).
				timeout().resync(),
		},
		{
			"skip noise before sync",
			script().
				on(StateSyncing, 1, 2, 3, 4, 0x80, 0x81, 0xf0, 0xf1).
				onSyncing(syncACK, 1).synced(),
		},
		{
			"req while syncing",
			script().
				onSyncing(syncREQ, 1).syncedWithAck(),
		},
		{
			"req with invalid seq",
			script().
				onSyncing(syncREQ, syncREQ).resync().
				onSyncing(syncACK, 1).synced(),
		},
		{
			"req after sync",
			script().
				onSyncing(syncACK, 1).synced().
				onSyncing(syncREQ, 1).syncedWithAck().
				onReceiving(1, 0x02).frame(1, 2),
		},
		{
			"ack after sync",
			script().
				onSyncing(syncACK, 1).synced().
				onReceiving(syncACK, 1).synced().
				onReceiving(1, 0x02).frame(1, 2),
		},
		{
			"ack with wrong seq after sync",
			script().
				onSyncing(syncACK, 1).synced().
				onReceiving(syncACK, 2).resync().
				onSyncing(syncACK, 2).synced().
				onReceiving(2, 0x02).frame(2, 2),
		},
		{
			"unexpected seq",
			script().
				onSyncing(syncACK, 1).synced().
				onReceiving(1, 2).frame(1, 2).
				onSyncing(1).resync().
				on(StateSyncing, 0x92, 3).
				onSyncing(syncACK, 3).synced(),
		},
		{
			"invalid explicit length",
			script().
				onSyncing(syncACK, 1).synced().
				onReceiving(1, 0x70, 0x80).resync().
				on(StateSyncing, 1, 2, 3, 4).
				onSyncing(syncACK, 1).synced(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var parser Parser
			for n, s := range tc.steps.steps {
				var step Step
				if l := len(s.in); l == 0 {
					step = parser.Timeout()
				} else {
					for i, b := range s.in {
						step = parser.Parse(b)
						if i+1 < l {
							require.Equalf(t, s.expect, step, "step[%d][%d] mismatch", n, i)
						}
					}
				}
				require.Equalf(t, s.final, step, "step[%d] final mismatch", n)
			}
		})
	}
}

func TestParserReset(t *testing.T) {
	var parser Parser
	s := parser.Reset()
	require.Equal(t, syncREQ, s.Sync)
	require.Equal(t, StateSyncing, s.State)
	require.Nil(t, s.Frame)
}

func TestState(t *testing.T) {
	require.False(t, StateSyncing.IsReady())
	require.False(t, StateSyncing.IsReceiving())
	require.True(t, StateReady.IsReady())
	require.False(t, StateReady.IsReceiving())
	require.True(t, (StateReady | StateReceiving).IsReady())
	require.True(t, (StateReady | StateReceiving).IsReceiving())
}

func TestStepTimer(t *testing.T) {
	testCases := []struct {
		state  State
		sync   byte
		action TimerAction
	}{
		{StateSyncing, 0, TimerNoChange},
		{StateSyncing, syncACK, TimerNoChange},
		{StateSyncing, syncREQ, TimerRestart},
		{StateReceiving, 0, TimerRestart},
		{StateReady, 0, TimerStop},
		{StateReady, syncACK, TimerStop},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%x %x", tc.state, tc.sync), func(t *testing.T) {
			require.Equal(t, tc.action, Step{Sync: tc.sync, State: tc.state}.Timer())
		})
	}
}
