// Package session is the client-side duel state machine: it owns the
// session snapshot and is its only writer.
package session

import (
	"slices"

	"github.com/DoyleJ11/sketch-duel/internal/canvas"
)

type Phase string

const (
	PhaseQueue  Phase = "queue"
	PhaseDraw   Phase = "draw"
	PhaseResult Phase = "result"
)

// Unassigned is shown in the opponent slot while no opponent is paired.
const Unassigned = "Waiting for opponent..."

type Snapshot struct {
	Phase           Phase
	Prompt          string
	Participants    [2]string
	SelfIndex       int
	RoundActive     bool
	TimeRemaining   int // seconds
	OwnStrokes      []canvas.Stroke
	OpponentStrokes []canvas.Stroke
	InProgress      []canvas.Point // uncommitted local gesture, never relayed
	Winner          string         // empty until round-ended
	Rating          int
	LastDelta       int // rating change shown on the result screen
}

func (s Snapshot) Self() string { return s.Participants[s.SelfIndex] }

func (s Snapshot) Opponent() string { return s.Participants[1-s.SelfIndex] }

func (s Snapshot) clone() Snapshot {
	s.OwnStrokes = canvas.CloneStrokes(s.OwnStrokes)
	s.OpponentStrokes = canvas.CloneStrokes(s.OpponentStrokes)
	s.InProgress = slices.Clone(s.InProgress)
	return s
}
