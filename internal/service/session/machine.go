// Package session owns the conversation lifecycle: the state machine the
// wake gate probes and the control loop that runs one conversation from
// activation back to idle.
package session

import (
	"fmt"
	"sync"

	"github.com/zhouzirui/steward/internal/model/conv"
)

// ErrBadTransition reports a transition the lifecycle does not allow.
// Callers get an explicit result, never a panic.
type ErrBadTransition struct {
	From, To conv.State
}

func (e *ErrBadTransition) Error() string {
	return fmt.Sprintf("session: no transition %s -> %s", e.From, e.To)
}

// allowed enumerates every legal lifecycle edge.
var allowed = map[conv.State][]conv.State{
	conv.StateIdle:      {conv.StateActivated},
	conv.StateActivated: {conv.StateListening, conv.StateIdle},
	conv.StateListening: {conv.StateThinking, conv.StateIdle},
	conv.StateThinking:  {conv.StateSpeaking, conv.StateListening, conv.StateIdle},
	conv.StateSpeaking:  {conv.StateListening, conv.StateIdle},
}

// Machine is the conversation state, safe for concurrent probing.
type Machine struct {
	mu    sync.Mutex
	state conv.State
}

func NewMachine() *Machine {
	return &Machine{state: conv.StateIdle}
}

// State reports the current state. The wake-word gate polls this to
// suppress triggers mid-conversation.
func (m *Machine) State() conv.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// To attempts a transition and reports whether the edge is legal.
func (m *Machine) To(next conv.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, candidate := range allowed[m.state] {
		if candidate == next {
			m.state = next
			return nil
		}
	}
	return &ErrBadTransition{From: m.state, To: next}
}
