package models

// GamePhase is the room's current stage within a round's lifecycle.
// The phase machine is linear; the only skip transition is early
// termination straight to PhaseFinished.
type GamePhase string

const (
	PhaseWaiting        GamePhase = "waiting"
	PhaseTopicSelection GamePhase = "topic_selection"
	PhaseGuessing       GamePhase = "guessing"
	PhaseScoring        GamePhase = "scoring"
	PhaseFinished       GamePhase = "finished"
)

// RoomStatus tracks whether a game has started.
type RoomStatus string

const (
	StatusWaiting RoomStatus = "waiting"
	StatusPlaying RoomStatus = "playing"
)

// Next returns the phase that follows p in the normal round cycle.
// Scoring loops back to topic selection; the round-vs-finished decision
// is made by the coordinator, not here.
func (p GamePhase) Next() GamePhase {
	switch p {
	case PhaseWaiting:
		return PhaseTopicSelection
	case PhaseTopicSelection:
		return PhaseGuessing
	case PhaseGuessing:
		return PhaseScoring
	case PhaseScoring:
		return PhaseTopicSelection
	default:
		return PhaseFinished
	}
}

// IsTerminal reports whether no further transitions are possible.
func (p GamePhase) IsTerminal() bool {
	return p == PhaseFinished
}

// IsValid reports whether p is one of the known phases.
func (p GamePhase) IsValid() bool {
	switch p {
	case PhaseWaiting, PhaseTopicSelection, PhaseGuessing, PhaseScoring, PhaseFinished:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from p to next is a legal
// transition. Early termination to finished is allowed from any phase.
func (p GamePhase) CanTransitionTo(next GamePhase) bool {
	if next == PhaseFinished {
		return !p.IsTerminal()
	}
	return p.Next() == next && !p.IsTerminal()
}
