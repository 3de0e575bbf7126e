package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownType = errors.New("unknown message type")

type Envelope struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode wraps msg in an envelope.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.MessageType(), err)
	}
	return json.Marshal(Envelope{Type: msg.MessageType(), Data: data})
}

// Decode parses an envelope and its payload into the matching message type.
func Decode(b []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var msg Message
	switch env.Type {
	case TypeJoin:
		msg = &Join{}
	case TypePlayAgain:
		msg = &PlayAgain{}
	case TypeSendStroke:
		msg = &SendStroke{}
	case TypeUndo:
		msg = &Undo{}
	case TypeClear:
		msg = &Clear{}
	case TypeEndRound:
		msg = &EndRound{}
	case TypeRoundStart:
		msg = &RoundStart{}
	case TypeRoundEnded:
		msg = &RoundEnded{}
	case TypeReceiveStroke:
		msg = &ReceiveStroke{}
	case TypeUndoConfirm:
		msg = &UndoConfirm{}
	case TypeClearConfirm:
		msg = &ClearConfirm{}
	case TypeOpponentUndo:
		msg = &OpponentUndo{}
	case TypeOpponentClear:
		msg = &OpponentClear{}
	case TypeOpponentLeave:
		msg = &OpponentLeave{}
	case TypeError:
		msg = &Error{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, msg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
	}
	return deref(msg), nil
}

// deref returns the value form so callers can type-switch on plain structs.
func deref(m Message) Message {
	switch v := m.(type) {
	case *Join:
		return *v
	case *PlayAgain:
		return *v
	case *SendStroke:
		return *v
	case *Undo:
		return *v
	case *Clear:
		return *v
	case *EndRound:
		return *v
	case *RoundStart:
		return *v
	case *RoundEnded:
		return *v
	case *ReceiveStroke:
		return *v
	case *UndoConfirm:
		return *v
	case *ClearConfirm:
		return *v
	case *OpponentUndo:
		return *v
	case *OpponentClear:
		return *v
	case *OpponentLeave:
		return *v
	case *Error:
		return *v
	}
	return m
}
