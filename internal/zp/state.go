package zp

import "time"

// State is a step of the staging workflow.
type State int

const (
	Idle State = iota
	Cleaning
	AwaitingArchiveChoice
	Extracting
	Summarized
	AwaitingCollapseDecision
	AwaitingDestinationChoice
	Moving
	Done
)

var stateNames = [...]string{
	Idle:                      "Idle",
	Cleaning:                  "Cleaning",
	AwaitingArchiveChoice:     "AwaitingArchiveChoice",
	Extracting:                "Extracting",
	Summarized:                "Summarized",
	AwaitingCollapseDecision:  "AwaitingCollapseDecision",
	AwaitingDestinationChoice: "AwaitingDestinationChoice",
	Moving:                    "Moving",
	Done:                      "Done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// transitions lists the legal successors of every state.
var transitions = map[State][]State{
	Idle:                      {Cleaning},
	Cleaning:                  {AwaitingArchiveChoice, Idle},
	AwaitingArchiveChoice:     {Extracting, Idle},
	Extracting:                {Summarized, Idle},
	Summarized:                {AwaitingCollapseDecision, AwaitingDestinationChoice, Idle},
	AwaitingCollapseDecision:  {AwaitingDestinationChoice, Idle},
	AwaitingDestinationChoice: {Moving, Idle},
	Moving:                    {Done, Idle},
	Done:                      {Idle},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StateChange is published to subscribers on every transition.
type StateChange struct {
	From    State
	To      State
	RunID   string
	Archive string
	At      time.Time
}
