package protocol

import "github.com/DoyleJ11/sketch-duel/internal/canvas"

type Type string

const (
	TypeJoin       Type = "join"
	TypePlayAgain  Type = "play-again"
	TypeSendStroke Type = "send-stroke"
	TypeUndo       Type = "undo"
	TypeClear      Type = "clear"
	TypeEndRound   Type = "end-round"

	TypeRoundStart    Type = "round-start"
	TypeRoundEnded    Type = "round-ended"
	TypeReceiveStroke Type = "receive-stroke"
	TypeUndoConfirm   Type = "undo-confirm"
	TypeClearConfirm  Type = "clear-confirm"
	TypeOpponentUndo  Type = "opponent-undo"
	TypeOpponentClear Type = "opponent-clear"
	TypeOpponentLeave Type = "opponent-leave"
	TypeError         Type = "error"
)

// Message is any payload that can be put in an envelope.
type Message interface {
	MessageType() Type
}

// Outbound

type Join struct {
	Identity string `json:"identity"`
	Username string `json:"username"`
}

type PlayAgain struct{}

type SendStroke struct {
	Points []canvas.Point `json:"points"`
}

type Undo struct{}

type Clear struct{}

type EndRound struct{}

// Inbound

type RoundStart struct {
	Prompt       string    `json:"prompt"`
	Participants [2]string `json:"participants"`
	SelfIndex    int       `json:"selfIndex"`
	Timer        int       `json:"timer"` // seconds
}

type RoundEnded struct {
	Winner string `json:"winner"`
}

type ReceiveStroke struct {
	Points []canvas.Point `json:"points"`
}

type UndoConfirm struct{}

type ClearConfirm struct{}

type OpponentUndo struct{}

type OpponentClear struct{}

type OpponentLeave struct{}

type Error struct {
	Message string `json:"message"`
}

func (Join) MessageType() Type       { return TypeJoin }
func (PlayAgain) MessageType() Type  { return TypePlayAgain }
func (SendStroke) MessageType() Type { return TypeSendStroke }
func (Undo) MessageType() Type       { return TypeUndo }
func (Clear) MessageType() Type      { return TypeClear }
func (EndRound) MessageType() Type   { return TypeEndRound }

func (RoundStart) MessageType() Type    { return TypeRoundStart }
func (RoundEnded) MessageType() Type    { return TypeRoundEnded }
func (ReceiveStroke) MessageType() Type { return TypeReceiveStroke }
func (UndoConfirm) MessageType() Type   { return TypeUndoConfirm }
func (ClearConfirm) MessageType() Type  { return TypeClearConfirm }
func (OpponentUndo) MessageType() Type  { return TypeOpponentUndo }
func (OpponentClear) MessageType() Type { return TypeOpponentClear }
func (OpponentLeave) MessageType() Type { return TypeOpponentLeave }
func (Error) MessageType() Type         { return TypeError }
