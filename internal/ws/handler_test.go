package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/sketch-duel/internal/canvas"
	"github.com/DoyleJ11/sketch-duel/internal/engine"
	"github.com/DoyleJ11/sketch-duel/internal/hub"
	"github.com/DoyleJ11/sketch-duel/internal/lobby"
	"github.com/DoyleJ11/sketch-duel/internal/protocol"
)

func newServer(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, lobby.Config{
		RoundDuration: 30 * time.Second,
		Clock:         clockwork.NewFakeClock(),
		Prompts:       []string{"Draw a whale"},
	})
	srv := httptest.NewServer(Handler(h, Options{}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	conn.SetReadLimit(protocol.MaxFrameBytes)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func write(t *testing.T, conn *websocket.Conn, msg protocol.Message) {
	t.Helper()
	b, err := protocol.Encode(msg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, b))
}

func read(t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, b, err := conn.Read(ctx)
	require.NoError(t, err)
	msg, err := protocol.Decode(b)
	require.NoError(t, err)
	return msg
}

func TestHandler_JoinPairsAndRelays(t *testing.T) {
	url := newServer(t)

	a := dial(t, url)
	write(t, a, protocol.Join{Identity: "id-ana", Username: "  Ana "})
	b := dial(t, url)
	write(t, b, protocol.Join{Identity: "id-bo", Username: ""})

	ra := read(t, a).(protocol.RoundStart)
	rb := read(t, b).(protocol.RoundStart)
	assert.Equal(t, [2]string{"Ana", AnonymousName}, ra.Participants)
	assert.Equal(t, "Draw a whale", rb.Prompt)
	assert.Equal(t, 30, ra.Timer)
	assert.Equal(t, 1, rb.SelfIndex)

	pts := []canvas.Point{{X: 10, Y: 10}, {X: 20, Y: 25}}
	write(t, a, protocol.SendStroke{Points: pts})
	assert.Equal(t, protocol.ReceiveStroke{Points: pts}, read(t, b))

	write(t, a, protocol.Undo{})
	assert.Equal(t, protocol.UndoConfirm{}, read(t, a))
	assert.Equal(t, protocol.OpponentUndo{}, read(t, b))
}

// longStroke is a stroke of n points normalized from an odd-sized surface,
// so every coordinate encodes with a long decimal expansion.
func longStroke(n int) []canvas.Point {
	surface := canvas.Surface{Width: 1366, Height: 911}
	pts := make([]canvas.Point, n)
	for i := range pts {
		pts[i] = surface.Normalize(float64(i%1366)+0.37, float64(i%911)+0.61)
	}
	return pts
}

func joinPair(t *testing.T, url string) (*websocket.Conn, *websocket.Conn) {
	t.Helper()
	a := dial(t, url)
	write(t, a, protocol.Join{Identity: "id-ana", Username: "Ana"})
	b := dial(t, url)
	write(t, b, protocol.Join{Identity: "id-bo", Username: "Bo"})
	require.IsType(t, protocol.RoundStart{}, read(t, a))
	require.IsType(t, protocol.RoundStart{}, read(t, b))
	return a, b
}

func TestHandler_RelaysLongStrokes(t *testing.T) {
	tests := []struct {
		name   string
		points int
	}{
		{"long gesture", 1000},
		{"longest allowed", canvas.MaxStrokePoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := joinPair(t, newServer(t))

			pts := longStroke(tt.points)
			write(t, a, protocol.SendStroke{Points: pts})

			got, ok := read(t, b).(protocol.ReceiveStroke)
			require.True(t, ok, "opponent should receive the stroke")
			assert.Equal(t, pts, got.Points)
		})
	}
}

func TestHandler_OverlongStrokeRejectedConnectionKept(t *testing.T) {
	a, b := joinPair(t, newServer(t))

	write(t, a, protocol.SendStroke{Points: longStroke(canvas.MaxStrokePoints + 1)})

	got := read(t, a)
	require.IsType(t, protocol.Error{}, got)
	assert.Equal(t, engine.ErrStrokeTooLong.Error(), got.(protocol.Error).Message)

	// Both links are still usable.
	pts := longStroke(canvas.MinStrokePoints)
	write(t, a, protocol.SendStroke{Points: pts})
	assert.Equal(t, protocol.ReceiveStroke{Points: pts}, read(t, b))
}

func TestHandler_DisconnectNotifiesOpponent(t *testing.T) {
	url := newServer(t)

	a := dial(t, url)
	write(t, a, protocol.Join{Identity: "id-ana", Username: "Ana"})
	b := dial(t, url)
	write(t, b, protocol.Join{Identity: "id-bo", Username: "Bo"})
	_, _ = read(t, a), read(t, b)

	require.NoError(t, b.Close(websocket.StatusNormalClosure, "bye"))
	assert.Equal(t, protocol.OpponentLeave{}, read(t, a))
}

func TestHandler_BadMessageGetsError(t *testing.T) {
	url := newServer(t)

	a := dial(t, url)
	write(t, a, protocol.Join{Identity: "id-ana", Username: "Ana"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, a.Write(ctx, websocket.MessageText, []byte(`{"type":"dance","data":{}}`)))

	got := read(t, a)
	require.IsType(t, protocol.Error{}, got)
	assert.Contains(t, got.(protocol.Error).Message, "unknown")
}

func TestHandler_RequiresJoinFirst(t *testing.T) {
	url := newServer(t)

	a := dial(t, url)
	write(t, a, protocol.Undo{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := a.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trimmed", "  Ana  ", "Ana"},
		{"empty", "", AnonymousName},
		{"only spaces", "   ", AnonymousName},
		{"control chars", "Bo\x00\x07", "Bo"},
		{"nfc", "Jose\u0301", "Jos\u00e9"},
		{"capped", strings.Repeat("x", 30), strings.Repeat("x", MaxNameRunes)},
		{"capped runes", strings.Repeat("é", 30), strings.Repeat("é", MaxNameRunes)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}
