package exc

import "fmt"

// State is the lifecycle state of an execution context.
type State int32

const (
	StateUnregistered State = iota
	StateRegistered
	StateConfigured
	StateRunning
	StateSuspended
	StateDone
	StateReleasing
	StateTerminated
)

var stateNames = map[State]string{
	StateUnregistered: "UNREGISTERED",
	StateRegistered:   "REGISTERED",
	StateConfigured:   "CONFIGURED",
	StateRunning:      "RUNNING",
	StateSuspended:    "SUSPENDED",
	StateDone:         "DONE",
	StateReleasing:    "RELEASING",
	StateTerminated:   "TERMINATED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE(%d)", int32(s))
}

// transitions lists the legal successor states. RELEASING -> TERMINATED is
// the only way out of RELEASING, and TERMINATED has no successors.
var transitions = map[State][]State{
	StateUnregistered: {StateRegistered},
	StateRegistered:   {StateConfigured, StateReleasing, StateTerminated},
	StateConfigured:   {StateRunning, StateSuspended, StateReleasing},
	StateRunning:      {StateSuspended, StateConfigured, StateDone, StateReleasing},
	StateSuspended:    {StateRunning, StateConfigured, StateReleasing},
	StateDone:         {StateReleasing},
	StateReleasing:    {StateTerminated},
	StateTerminated:   nil,
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateTerminated }
