package lobby

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/sketch-duel/internal/canvas"
	"github.com/DoyleJ11/sketch-duel/internal/engine"
	"github.com/DoyleJ11/sketch-duel/internal/events"
	"github.com/DoyleJ11/sketch-duel/internal/protocol"
	"github.com/DoyleJ11/sketch-duel/internal/rating"
)

// helper: receive one message with a timeout so tests never hang
func recvMsg(t *testing.T, ch <-chan protocol.Message, within time.Duration) protocol.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return nil // unreachable
	}
}

func recvNoMsg(t *testing.T, ch <-chan protocol.Message, within time.Duration) {
	t.Helper()
	select {
	case m := <-ch:
		t.Fatalf("expected no message within %v, but got: %#v", within, m)
	case <-time.After(within):
	}
}

func recvView(t *testing.T, l *Lobby) View {
	t.Helper()
	reply := make(chan View, 1)
	l.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	results []events.RoundResult
}

func (p *recordingPublisher) PublishRoundResult(_ context.Context, r events.RoundResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, r)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.results)
}

type fixture struct {
	lobby  *Lobby
	clock  *clockwork.FakeClock
	store  *rating.MemoryStore
	pub    *recordingPublisher
	outA   chan protocol.Message
	outB   chan protocol.Message
	kicked chan string
}

func newFixture(t *testing.T, outboxSize int) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fixture{
		clock:  clockwork.NewFakeClock(),
		store:  rating.NewMemoryStore(),
		pub:    &recordingPublisher{},
		outA:   make(chan protocol.Message, outboxSize),
		outB:   make(chan protocol.Message, outboxSize),
		kicked: make(chan string, 2),
	}
	kick := func(id string) func() { return func() { f.kicked <- id } }

	f.lobby = NewLobby(ctx, "pair-1",
		Member{PlayerID: "p1", Identity: "id-ana", Name: "Ana", Outbox: f.outA, Kick: kick("p1")},
		Member{PlayerID: "p2", Identity: "id-bo", Name: "Bo", Outbox: f.outB, Kick: kick("p2")},
		Config{
			RoundDuration: 60 * time.Second,
			Grace:         2 * time.Second,
			Clock:         f.clock,
			Judge:         JudgeFunc(func(engine.State) engine.Seat { return engine.SeatA }),
			Prompts:       []string{"Draw a mountain"},
			Ratings:       f.store,
			Publisher:     f.pub,
		})
	return f
}

func (f *fixture) drainRoundStart(t *testing.T) {
	t.Helper()
	a := recvMsg(t, f.outA, time.Second)
	b := recvMsg(t, f.outB, time.Second)
	require.IsType(t, protocol.RoundStart{}, a)
	require.IsType(t, protocol.RoundStart{}, b)
}

func TestLobby_RoundStartPerSeat(t *testing.T) {
	f := newFixture(t, 8)

	a := recvMsg(t, f.outA, time.Second).(protocol.RoundStart)
	b := recvMsg(t, f.outB, time.Second).(protocol.RoundStart)

	assert.Equal(t, "Draw a mountain", a.Prompt)
	assert.Equal(t, [2]string{"Ana", "Bo"}, a.Participants)
	assert.Equal(t, a.Participants, b.Participants)
	assert.Equal(t, 0, a.SelfIndex)
	assert.Equal(t, 1, b.SelfIndex)
	assert.Equal(t, 60, a.Timer)

	v := recvView(t, f.lobby)
	assert.Equal(t, engine.PhaseDrawing, v.State.Phase)
	assert.Equal(t, 2, v.NumMembers)
}

func TestLobby_StrokeRelayedToOpponentOnly(t *testing.T) {
	f := newFixture(t, 8)
	f.drainRoundStart(t)

	pts := []canvas.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}
	f.lobby.Inbox() <- FromClient{PlayerID: "p1", Msg: protocol.SendStroke{Points: pts}}

	got := recvMsg(t, f.outB, time.Second)
	assert.Equal(t, protocol.ReceiveStroke{Points: pts}, got)
	recvNoMsg(t, f.outA, 50*time.Millisecond)
}

func TestLobby_UndoAndClearConfirmations(t *testing.T) {
	f := newFixture(t, 8)
	f.drainRoundStart(t)

	pts := []canvas.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}
	f.lobby.Inbox() <- FromClient{PlayerID: "p2", Msg: protocol.SendStroke{Points: pts}}
	_ = recvMsg(t, f.outA, time.Second)

	f.lobby.Inbox() <- FromClient{PlayerID: "p2", Msg: protocol.Undo{}}
	assert.Equal(t, protocol.UndoConfirm{}, recvMsg(t, f.outB, time.Second))
	assert.Equal(t, protocol.OpponentUndo{}, recvMsg(t, f.outA, time.Second))

	f.lobby.Inbox() <- FromClient{PlayerID: "p2", Msg: protocol.SendStroke{Points: pts}}
	_ = recvMsg(t, f.outA, time.Second)
	f.lobby.Inbox() <- FromClient{PlayerID: "p2", Msg: protocol.Clear{}}
	assert.Equal(t, protocol.ClearConfirm{}, recvMsg(t, f.outB, time.Second))
	assert.Equal(t, protocol.OpponentClear{}, recvMsg(t, f.outA, time.Second))
}

func TestLobby_RejectedCommandReturnsError(t *testing.T) {
	f := newFixture(t, 8)
	f.drainRoundStart(t)

	f.lobby.Inbox() <- FromClient{PlayerID: "p1", Msg: protocol.Undo{}}

	got := recvMsg(t, f.outA, time.Second)
	require.IsType(t, protocol.Error{}, got)
	assert.Equal(t, engine.ErrNothingToUndo.Error(), got.(protocol.Error).Message)
	recvNoMsg(t, f.outB, 50*time.Millisecond)
}

func TestLobby_EndRoundOnce(t *testing.T) {
	f := newFixture(t, 8)
	f.drainRoundStart(t)

	// both clients' countdowns expire at about the same time
	f.lobby.Inbox() <- FromClient{PlayerID: "p1", Msg: protocol.EndRound{}}
	f.lobby.Inbox() <- FromClient{PlayerID: "p2", Msg: protocol.EndRound{}}

	assert.Equal(t, protocol.RoundEnded{Winner: "Ana"}, recvMsg(t, f.outA, time.Second))
	assert.Equal(t, protocol.RoundEnded{Winner: "Ana"}, recvMsg(t, f.outB, time.Second))
	recvNoMsg(t, f.outA, 50*time.Millisecond)

	v := recvView(t, f.lobby)
	assert.Equal(t, engine.PhaseEnded, v.State.Phase)

	ana, err := f.store.Get(context.Background(), "id-ana")
	require.NoError(t, err)
	bo, err := f.store.Get(context.Background(), "id-bo")
	require.NoError(t, err)
	assert.Equal(t, rating.Initial+rating.Delta, ana.Rating)
	assert.Equal(t, rating.Initial-rating.Delta, bo.Rating)
	assert.Equal(t, 1, f.pub.count())
}

func TestLobby_AuthoritativeTimerEndsRound(t *testing.T) {
	f := newFixture(t, 8)
	f.drainRoundStart(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))

	f.clock.Advance(61 * time.Second)
	recvNoMsg(t, f.outA, 50*time.Millisecond)

	f.clock.Advance(time.Second)
	assert.Equal(t, protocol.RoundEnded{Winner: "Ana"}, recvMsg(t, f.outA, time.Second))
	assert.Equal(t, protocol.RoundEnded{Winner: "Ana"}, recvMsg(t, f.outB, time.Second))
}

func TestLobby_LeaveNotifiesOpponentAndStops(t *testing.T) {
	f := newFixture(t, 8)
	f.drainRoundStart(t)

	f.lobby.Inbox() <- Leave{PlayerID: "p2"}

	assert.Equal(t, protocol.OpponentLeave{}, recvMsg(t, f.outA, time.Second))
	select {
	case <-f.lobby.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby did not stop after leave")
	}
}

func TestLobby_DetachAfterRoundIsSilent(t *testing.T) {
	f := newFixture(t, 8)
	f.drainRoundStart(t)

	f.lobby.Inbox() <- FromClient{PlayerID: "p1", Msg: protocol.EndRound{}}
	_ = recvMsg(t, f.outA, time.Second)
	_ = recvMsg(t, f.outB, time.Second)

	f.lobby.Inbox() <- Detach{PlayerID: "p1"}
	recvNoMsg(t, f.outB, 50*time.Millisecond)

	v := recvView(t, f.lobby)
	assert.Equal(t, 1, v.NumMembers)

	f.lobby.Inbox() <- Detach{PlayerID: "p2"}
	select {
	case <-f.lobby.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby did not stop once empty")
	}
}

func TestLobby_DetachMidRoundIsALeave(t *testing.T) {
	f := newFixture(t, 8)
	f.drainRoundStart(t)

	f.lobby.Inbox() <- Detach{PlayerID: "p1"}
	assert.Equal(t, protocol.OpponentLeave{}, recvMsg(t, f.outB, time.Second))
}

func TestLobby_DropSlowClient(t *testing.T) {
	// Outbox of one is filled by round-start, so the next relay overflows.
	f := newFixture(t, 1)

	pts := []canvas.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}
	f.lobby.Inbox() <- FromClient{PlayerID: "p1", Msg: protocol.SendStroke{Points: pts}}

	select {
	case id := <-f.kicked:
		assert.Equal(t, "p2", id)
	case <-time.After(time.Second):
		t.Fatal("expected slow client to be kicked")
	}
}

func TestLobby_ShutdownStopsTimer(t *testing.T) {
	f := newFixture(t, 8)
	f.drainRoundStart(t)

	f.lobby.Inbox() <- Shutdown{}
	<-f.lobby.Done()

	f.clock.Advance(time.Hour)
	recvNoMsg(t, f.outA, 50*time.Millisecond)
	assert.Equal(t, 0, f.pub.count())
}

// stalledStore never answers before its context ends.
type stalledStore struct {
	rating.MemoryStore
	settleErr chan error
}

func (s *stalledStore) Settle(ctx context.Context, _, _ rating.Player) (rating.Outcome, error) {
	<-ctx.Done()
	s.settleErr <- ctx.Err()
	return rating.Outcome{}, ctx.Err()
}

func TestLobby_SlowSettleIsBounded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &stalledStore{settleErr: make(chan error, 1)}
	outA := make(chan protocol.Message, 8)
	outB := make(chan protocol.Message, 8)
	l := NewLobby(ctx, "pair-slow",
		Member{PlayerID: "p1", Identity: "id-ana", Name: "Ana", Outbox: outA},
		Member{PlayerID: "p2", Identity: "id-bo", Name: "Bo", Outbox: outB},
		Config{
			RoundDuration: 60 * time.Second,
			SettleTimeout: 50 * time.Millisecond,
			Clock:         clockwork.NewFakeClock(),
			Judge:         JudgeFunc(func(engine.State) engine.Seat { return engine.SeatA }),
			Ratings:       store,
		})
	_, _ = recvMsg(t, outA, time.Second), recvMsg(t, outB, time.Second)

	l.Inbox() <- FromClient{PlayerID: "p1", Msg: protocol.EndRound{}}
	l.Inbox() <- Leave{PlayerID: "p1"}

	// round-ended goes out before the store is consulted
	assert.Equal(t, protocol.RoundEnded{Winner: "Ana"}, recvMsg(t, outB, 100*time.Millisecond))

	select {
	case err := <-store.settleErr:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("settle was not cut off")
	}
	assert.Equal(t, protocol.OpponentLeave{}, recvMsg(t, outB, time.Second))
}
