// Package report models the lifecycle phases of the batch flows as an
// explicit state machine and renders final per-item outcome summaries.
// The CLI only renders the current state; nothing here touches a
// terminal directly.
package report

import "fmt"

// Phase is one stage of a backup, restore, or recovery flow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDetecting
	PhaseArchiving
	PhaseRotating
	PhaseUploading
	PhaseResolving
	PhaseRestoring
	PhaseDone
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:      "idle",
	PhaseDetecting: "detecting",
	PhaseArchiving: "archiving",
	PhaseRotating:  "rotating",
	PhaseUploading: "uploading",
	PhaseResolving: "resolving",
	PhaseRestoring: "restoring",
	PhaseDone:      "done",
	PhaseFailed:    "failed",
}

func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// transitions is the closed set of legal moves. Every phase may fail;
// only the listed forward moves are otherwise allowed.
var transitions = map[Phase][]Phase{
	PhaseIdle:      {PhaseDetecting},
	PhaseDetecting: {PhaseArchiving, PhaseResolving, PhaseDone},
	PhaseArchiving: {PhaseRotating, PhaseDone},
	PhaseRotating:  {PhaseUploading, PhaseDone},
	PhaseUploading: {PhaseDone},
	PhaseResolving: {PhaseRestoring, PhaseDone},
	PhaseRestoring: {PhaseResolving, PhaseDone},
}

// Machine tracks the current phase and rejects illegal transitions. An
// optional observer sees every successful transition; the CLI hooks its
// progress output there.
type Machine struct {
	current  Phase
	observer func(from, to Phase)
}

func NewMachine(observer func(from, to Phase)) *Machine {
	return &Machine{current: PhaseIdle, observer: observer}
}

func (m *Machine) Current() Phase { return m.current }

// To moves the machine to next, or errors if the move is not legal from
// the current phase. PhaseFailed is reachable from everywhere.
func (m *Machine) To(next Phase) error {
	if next != PhaseFailed && !legal(m.current, next) {
		return fmt.Errorf("illegal phase transition %s -> %s", m.current, next)
	}
	prev := m.current
	m.current = next
	if m.observer != nil {
		m.observer(prev, next)
	}
	return nil
}

func legal(from, to Phase) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
