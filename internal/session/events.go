package session

import (
	"github.com/DoyleJ11/sketch-duel/internal/canvas"
	"github.com/DoyleJ11/sketch-duel/internal/protocol"
)

// Event is anything the machine reacts to: inbound relay messages, timer
// ticks and local user input.
type Event interface{ isSessionEvent() }

type Inbound struct {
	Msg protocol.Message
}

// Tick is one second of the countdown identified by Generation.
type Tick struct {
	Generation uint64
}

type PointerDown struct {
	Input canvas.InputEvent
}

type PointerMove struct {
	Input canvas.InputEvent
}

type PointerUp struct{}

type PointerLeave struct{}

type UndoRequest struct{}

type ClearRequest struct{}

type PlayAgainRequest struct{}

// Resize reports a new on-screen size of the local drawing surface.
type Resize struct {
	Surface canvas.Surface
}

// Query reads the snapshot from the machine's goroutine.
type Query struct {
	Reply chan Snapshot
}

func (Inbound) isSessionEvent()          {}
func (Tick) isSessionEvent()             {}
func (PointerDown) isSessionEvent()      {}
func (PointerMove) isSessionEvent()      {}
func (PointerUp) isSessionEvent()        {}
func (PointerLeave) isSessionEvent()     {}
func (UndoRequest) isSessionEvent()      {}
func (ClearRequest) isSessionEvent()     {}
func (PlayAgainRequest) isSessionEvent() {}
func (Resize) isSessionEvent()           {}
func (Query) isSessionEvent()            {}
