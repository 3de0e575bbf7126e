package engine

import (
	"errors"
	"slices"

	"github.com/DoyleJ11/sketch-duel/internal/canvas"
)

var ErrRoundNotActive = errors.New("round not active")
var ErrRoundActive = errors.New("round already active")
var ErrShortStroke = errors.New("stroke needs at least two points")
var ErrStrokeTooLong = errors.New("stroke has too many points")
var ErrNothingToUndo = errors.New("nothing to undo")
var ErrBadSeat = errors.New("invalid seat")
var ErrUnsupportedCommand = errors.New("unsupported command")

const MaxStrokePoints = canvas.MaxStrokePoints

type Seat int

const (
	SeatA Seat = 0
	SeatB Seat = 1
)

func (s Seat) Other() Seat { return 1 - s }

func (s Seat) valid() bool { return s == SeatA || s == SeatB }

type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseDrawing Phase = "drawing"
	PhaseEnded   Phase = "ended"
)

type Player struct {
	Identity string
	Name     string
	Strokes  [][]canvas.Point
}

type State struct {
	Round    int
	Phase    Phase
	Prompt   string
	TimerSec int
	Seats    [2]Player
	Winner   Seat
}

type CommandType string

const (
	CmdStartRound CommandType = "StartRound"
	CmdAddStroke  CommandType = "AddStroke"
	CmdUndo       CommandType = "Undo"
	CmdClear      CommandType = "Clear"
	CmdEndRound   CommandType = "EndRound"
)

/*
	CmdStartRound -> EvtRoundStarted
	CmdAddStroke  -> EvtStrokeAdded
	CmdUndo       -> EvtStrokeUndone
	CmdClear      -> EvtStrokesCleared
	CmdEndRound   -> EvtRoundEnded   (Seat is the winner picked by the judge)
*/

type Command struct {
	Type     CommandType
	Seat     Seat
	Prompt   string
	TimerSec int
	Points   []canvas.Point
}

type EventType string

const (
	EvtRoundStarted   EventType = "RoundStarted"
	EvtStrokeAdded    EventType = "StrokeAdded"
	EvtStrokeUndone   EventType = "StrokeUndone"
	EvtStrokesCleared EventType = "StrokesCleared"
	EvtRoundEnded     EventType = "RoundEnded"
)

type Event struct {
	Type   EventType
	Round  int
	Seat   Seat
	Points []canvas.Point
}

// Apply validates cmd against s and returns the resulting events and state.
// s is never modified.
func Apply(s State, cmd Command) ([]Event, State, error) {
	if cmd.Type != CmdStartRound && !cmd.Seat.valid() {
		return nil, s, ErrBadSeat
	}

	switch cmd.Type {
	case CmdStartRound:
		if s.Phase == PhaseDrawing {
			return nil, s, ErrRoundActive
		}
		newState := s
		newState.Round++
		newState.Phase = PhaseDrawing
		newState.Prompt = cmd.Prompt
		newState.TimerSec = cmd.TimerSec
		newState.Winner = 0
		for i := range newState.Seats {
			newState.Seats[i].Strokes = nil
		}
		return []Event{{Type: EvtRoundStarted, Round: newState.Round}}, newState, nil

	case CmdAddStroke:
		if s.Phase != PhaseDrawing {
			return nil, s, ErrRoundNotActive
		}
		if len(cmd.Points) < canvas.MinStrokePoints {
			return nil, s, ErrShortStroke
		}
		if len(cmd.Points) > MaxStrokePoints {
			return nil, s, ErrStrokeTooLong
		}
		pts := slices.Clone(cmd.Points)
		newState := withStrokes(s, cmd.Seat, append(slices.Clone(s.Seats[cmd.Seat].Strokes), pts))
		return []Event{{Type: EvtStrokeAdded, Round: s.Round, Seat: cmd.Seat, Points: pts}}, newState, nil

	case CmdUndo:
		if s.Phase != PhaseDrawing {
			return nil, s, ErrRoundNotActive
		}
		strokes := s.Seats[cmd.Seat].Strokes
		if len(strokes) == 0 {
			return nil, s, ErrNothingToUndo
		}
		newState := withStrokes(s, cmd.Seat, slices.Clone(strokes[:len(strokes)-1]))
		return []Event{{Type: EvtStrokeUndone, Round: s.Round, Seat: cmd.Seat}}, newState, nil

	case CmdClear:
		if s.Phase != PhaseDrawing {
			return nil, s, ErrRoundNotActive
		}
		newState := withStrokes(s, cmd.Seat, nil)
		return []Event{{Type: EvtStrokesCleared, Round: s.Round, Seat: cmd.Seat}}, newState, nil

	case CmdEndRound:
		if s.Phase != PhaseDrawing {
			return nil, s, ErrRoundNotActive
		}
		newState := s
		newState.Phase = PhaseEnded
		newState.Winner = cmd.Seat
		return []Event{{Type: EvtRoundEnded, Round: s.Round, Seat: cmd.Seat}}, newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// Reduce rebuilds the stroke lists of a round from its events.
func Reduce(events []Event) State {
	s := NewState([2]Player{})
	for _, event := range events {
		switch event.Type {
		case EvtRoundStarted:
			s.Round = event.Round
			s.Phase = PhaseDrawing
			s.Seats[0].Strokes, s.Seats[1].Strokes = nil, nil
		case EvtStrokeAdded:
			s.Seats[event.Seat].Strokes = append(s.Seats[event.Seat].Strokes, event.Points)
		case EvtStrokeUndone:
			if n := len(s.Seats[event.Seat].Strokes); n > 0 {
				s.Seats[event.Seat].Strokes = s.Seats[event.Seat].Strokes[:n-1]
			}
		case EvtStrokesCleared:
			s.Seats[event.Seat].Strokes = nil
		case EvtRoundEnded:
			s.Phase = PhaseEnded
			s.Winner = event.Seat
		}
	}
	return s
}

func withStrokes(s State, seat Seat, strokes [][]canvas.Point) State {
	newState := s
	newState.Seats[seat].Strokes = strokes
	return newState
}
