package exc

import (
	"context"
	"sync"
)

// Action is a resource-manager decision for the next cycle.
type Action uint8

const (
	Continue Action = iota
	Suspend
	Resume
	Reconfigure
	Release
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Suspend:
		return "suspend"
	case Resume:
		return "resume"
	case Reconfigure:
		return "reconfigure"
	case Release:
		return "release"
	default:
		return "unknown"
	}
}

// Decision is what the manager wants the EXC to do before its next cycle.
// AWM is only meaningful for Reconfigure.
type Decision struct {
	Action Action
	AWM    int
}

// Manager is the external resource manager as seen by one EXC.
type Manager interface {
	// Assign returns the working mode granted to the EXC.
	Assign(ctx context.Context, excID int) (int, error)
	// Poll returns the decision for the next cycle.
	Poll(ctx context.Context, excID int) Decision
}

// StaticManager grants a fixed working mode and never interferes.
type StaticManager struct {
	AWM int
}

func (m StaticManager) Assign(context.Context, int) (int, error) { return m.AWM, nil }

func (m StaticManager) Poll(context.Context, int) Decision { return Decision{Action: Continue} }

// ScriptedManager replays a fixed list of decisions, one per Poll, then
// continues forever.
type ScriptedManager struct {
	AWM int

	mu        sync.Mutex
	decisions []Decision
}

// NewScriptedManager returns a manager that grants awm and replays decisions.
func NewScriptedManager(awm int, decisions ...Decision) *ScriptedManager {
	return &ScriptedManager{AWM: awm, decisions: decisions}
}

func (m *ScriptedManager) Assign(context.Context, int) (int, error) { return m.AWM, nil }

func (m *ScriptedManager) Poll(context.Context, int) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.decisions) == 0 {
		return Decision{Action: Continue}
	}
	d := m.decisions[0]
	m.decisions = m.decisions[1:]
	return d
}

var (
	_ Manager = StaticManager{}
	_ Manager = (*ScriptedManager)(nil)
)
