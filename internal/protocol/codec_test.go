package protocol

import (
	"errors"
	"testing"

	"github.com/DoyleJ11/sketch-duel/internal/canvas"
)

func TestDecode_RoundStart(t *testing.T) {
	raw := `{"type":"round-start","data":{"prompt":"Draw a mountain","participants":["Ana","Bo"],"selfIndex":0,"timer":60}}`

	msg, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	rs, ok := msg.(RoundStart)
	if !ok {
		t.Fatalf("want RoundStart, got %T", msg)
	}
	if rs.Prompt != "Draw a mountain" || rs.Participants != [2]string{"Ana", "Bo"} || rs.Timer != 60 {
		t.Fatalf("unexpected payload: %+v", rs)
	}
}

func TestDecode_EmptyPayloads(t *testing.T) {
	cases := []struct {
		raw  string
		want Message
	}{
		{`{"type":"undo-confirm"}`, UndoConfirm{}},
		{`{"type":"opponent-leave","data":{}}`, OpponentLeave{}},
		{`{"type":"opponent-clear","data":null}`, OpponentClear{}},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := Decode([]byte(tc.raw))
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"chat","data":{"text":"hi"}}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("want ErrUnknownType, got %v", err)
	}
}

func TestDecode_BadJSON(t *testing.T) {
	if _, err := Decode([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Decode([]byte(`{"type":"send-stroke","data":{"points":"nope"}}`)); err == nil {
		t.Fatalf("expected payload error")
	}
}

func TestStrokePointsSurviveTheWire(t *testing.T) {
	pts := []canvas.Point{{X: 10.5, Y: 20.25}, {X: 11, Y: 22}, {X: 799.99, Y: 0.01}}
	b, err := Encode(SendStroke{Points: pts})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// The authority relays the same payload as receive-stroke.
	relayed := []byte(`{"type":"receive-stroke","data":` + string(b[len(`{"type":"send-stroke","data":`):]))
	msg, err := Decode(relayed)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got := msg.(ReceiveStroke).Points
	if canvas.Render(got, true).D != canvas.Render(pts, true).D {
		t.Fatalf("outline changed across the wire")
	}
}

func TestMaxFrameBytes_FitsOverlongStroke(t *testing.T) {
	// Worst case: every coordinate a full-precision negative float.
	pts := make([]canvas.Point, canvas.MaxStrokePoints+1)
	for i := range pts {
		pts[i] = canvas.Point{X: -123.45678901234567e-300, Y: -987.6543210987654e-300}
	}
	b, err := Encode(ReceiveStroke{Points: pts})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(b) > MaxFrameBytes {
		t.Fatalf("frame of %d bytes exceeds MaxFrameBytes %d", len(b), MaxFrameBytes)
	}
}
