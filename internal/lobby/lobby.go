package lobby

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/sketch-duel/internal/engine"
	"github.com/DoyleJ11/sketch-duel/internal/events"
	"github.com/DoyleJ11/sketch-duel/internal/protocol"
	"github.com/DoyleJ11/sketch-duel/internal/rating"
)

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	PlayerID string
	Msg      protocol.Message
}

func (FromClient) isLobbyMsg() {}

// Leave is a disconnect: the other seat is told its opponent left and the
// duel is over.
type Leave struct{ PlayerID string }

func (Leave) isLobbyMsg() {}

// Detach removes a player who asked to play again.
type Detach struct{ PlayerID string }

func (Detach) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type timerExpired struct{ round int }

func (timerExpired) isLobbyMsg() {}

// Member is one connected player seated in the duel.
type Member struct {
	PlayerID string
	Identity string
	Name     string
	Outbox   chan<- protocol.Message
	Kick     func() // drops a client that cannot keep up
}

type View struct {
	ID         string
	NumMembers int
	State      engine.State
}

type Config struct {
	RoundDuration time.Duration
	Grace         time.Duration // authoritative timer runs this much past the clients'
	SettleTimeout time.Duration // bounds rating settle and publish at round end
	Clock         clockwork.Clock
	Judge         Judge
	Prompts       []string
	Ratings       rating.Store
	Publisher     events.Publisher
	Logger        *zap.Logger
}

// WithDefaults fills unset fields. Rooms sharing a store must share the result.
func (c Config) WithDefaults() Config {
	if c.RoundDuration <= 0 {
		c.RoundDuration = 60 * time.Second
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = 5 * time.Second
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Judge == nil {
		c.Judge = RandomJudge
	}
	if len(c.Prompts) == 0 {
		c.Prompts = DefaultPrompts
	}
	if c.Ratings == nil {
		c.Ratings = rating.NewMemoryStore()
	}
	if c.Publisher == nil {
		c.Publisher = events.Nop{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Lobby is the duel room of one matched pair and the single writer of its
// engine state.
type Lobby struct {
	id      string
	inbox   chan Msg
	state   engine.State
	members [2]*Member
	timer   clockwork.Timer
	cfg     Config
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewLobby seats a and b and starts the first round.
func NewLobby(parent context.Context, id string, a, b Member, cfg Config) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	cfg = cfg.WithDefaults()

	l := &Lobby{
		id:    id,
		inbox: make(chan Msg, 64),
		state: engine.NewState([2]engine.Player{
			{Identity: a.Identity, Name: a.Name},
			{Identity: b.Identity, Name: b.Name},
		}),
		members: [2]*Member{&a, &b},
		cfg:     cfg,
		log:     cfg.Logger.With(zap.String("pair_id", id)),
		ctx:     ctx,
		cancel:  cancel,
	}

	l.startRound()
	go l.loop()
	return l
}

func (l *Lobby) ID() string { return l.id }

// Expose the inbox so the hub or tests can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has stopped.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

func (l *Lobby) loop() {
	defer l.stopTimer()
	for {
		select {
		case <-l.ctx.Done():
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case FromClient:
				seat, ok := l.seatOf(msg.PlayerID)
				if !ok {
					break
				}
				l.handleClient(seat, msg.Msg)

			case timerExpired:
				if msg.round == l.state.Round {
					l.log.Debug("authoritative timer expired", zap.Int("round", msg.round))
					l.endRound()
				}

			case Leave:
				seat, ok := l.seatOf(msg.PlayerID)
				if !ok {
					break
				}
				l.members[seat] = nil
				l.send(seat.Other(), protocol.OpponentLeave{})
				l.log.Info("player left duel", zap.String("player_id", msg.PlayerID))
				l.cancel()

			case Detach:
				seat, ok := l.seatOf(msg.PlayerID)
				if !ok {
					break
				}
				l.members[seat] = nil
				if l.state.Phase == engine.PhaseDrawing || l.members[seat.Other()] == nil {
					// Leaving mid-round abandons the duel.
					l.send(seat.Other(), protocol.OpponentLeave{})
					l.cancel()
				}

			case GetState:
				// test-only: reflect internal state without data races
				n := 0
				for _, mb := range l.members {
					if mb != nil {
						n++
					}
				}
				msg.Reply <- View{ID: l.id, NumMembers: n, State: l.state}

			case Shutdown:
				l.cancel()
				return
			}
		}
	}
}

func (l *Lobby) handleClient(seat engine.Seat, msg protocol.Message) {
	var cmd engine.Command
	switch m := msg.(type) {
	case protocol.SendStroke:
		cmd = engine.Command{Type: engine.CmdAddStroke, Seat: seat, Points: m.Points}
	case protocol.Undo:
		cmd = engine.Command{Type: engine.CmdUndo, Seat: seat}
	case protocol.Clear:
		cmd = engine.Command{Type: engine.CmdClear, Seat: seat}
	case protocol.EndRound:
		l.endRound()
		return
	default:
		l.send(seat, protocol.Error{Message: "unsupported message " + string(msg.MessageType())})
		return
	}

	evts, next, err := engine.Apply(l.state, cmd)
	if err != nil {
		l.log.Debug("command rejected", zap.String("cmd", string(cmd.Type)), zap.Int("seat", int(seat)), zap.Error(err))
		l.send(seat, protocol.Error{Message: err.Error()})
		return
	}
	l.state = next
	for _, ev := range evts {
		l.relay(ev)
	}
}

// relay turns engine events into the messages each seat needs.
func (l *Lobby) relay(ev engine.Event) {
	switch ev.Type {
	case engine.EvtStrokeAdded:
		l.send(ev.Seat.Other(), protocol.ReceiveStroke{Points: ev.Points})
	case engine.EvtStrokeUndone:
		l.send(ev.Seat, protocol.UndoConfirm{})
		l.send(ev.Seat.Other(), protocol.OpponentUndo{})
	case engine.EvtStrokesCleared:
		l.send(ev.Seat, protocol.ClearConfirm{})
		l.send(ev.Seat.Other(), protocol.OpponentClear{})
	}
}

func (l *Lobby) startRound() {
	prompt := l.cfg.Prompts[randIntN(len(l.cfg.Prompts))]
	secs := int(l.cfg.RoundDuration / time.Second)
	_, next, err := engine.Apply(l.state, engine.Command{Type: engine.CmdStartRound, Prompt: prompt, TimerSec: secs})
	if err != nil {
		l.log.Error("cannot start round", zap.Error(err))
		return
	}
	l.state = next

	names := l.state.Names()
	for seat := range l.members {
		l.send(engine.Seat(seat), protocol.RoundStart{
			Prompt:       prompt,
			Participants: names,
			SelfIndex:    seat,
			Timer:        secs,
		})
	}

	round := l.state.Round
	l.stopTimer()
	l.timer = l.cfg.Clock.AfterFunc(l.cfg.RoundDuration+l.cfg.Grace, func() {
		select {
		case l.inbox <- timerExpired{round: round}:
		case <-l.ctx.Done():
		}
	})

	l.log.Info("round started", zap.Int("round", round), zap.String("prompt", prompt))
}

// endRound is idempotent: only the first caller in a round picks a winner.
func (l *Lobby) endRound() {
	if l.state.Phase != engine.PhaseDrawing {
		return
	}
	winner := l.cfg.Judge.Decide(l.state)
	_, next, err := engine.Apply(l.state, engine.Command{Type: engine.CmdEndRound, Seat: winner})
	if err != nil {
		l.log.Error("cannot end round", zap.Error(err))
		return
	}
	l.state = next
	l.stopTimer()

	w, lo := l.state.Seats[winner], l.state.Seats[winner.Other()]
	for seat := range l.members {
		l.send(engine.Seat(seat), protocol.RoundEnded{Winner: w.Name})
	}

	// Settle and publish run on the room goroutine. The round is already over,
	// so only Leave and Detach queue behind them, for at most SettleTimeout.
	ctx, cancel := context.WithTimeout(l.ctx, l.cfg.SettleTimeout)
	defer cancel()
	out, err := l.cfg.Ratings.Settle(ctx,
		rating.Player{Identity: w.Identity, Username: w.Name},
		rating.Player{Identity: lo.Identity, Username: lo.Name})
	if err != nil {
		l.log.Error("settle ratings", zap.Error(err))
	}

	result := events.RoundResult{
		PairID:  l.id,
		Round:   l.state.Round,
		Prompt:  l.state.Prompt,
		Winner:  events.Participant{Identity: w.Identity, Name: w.Name, Rating: out.Winner.Rating},
		Loser:   events.Participant{Identity: lo.Identity, Name: lo.Name, Rating: out.Loser.Rating},
		EndedAt: l.cfg.Clock.Now(),
	}
	if err := l.cfg.Publisher.PublishRoundResult(ctx, result); err != nil {
		l.log.Warn("publish round result", zap.Error(err))
	}

	l.log.Info("round ended", zap.Int("round", l.state.Round), zap.String("winner", w.Name))
}

func (l *Lobby) send(seat engine.Seat, msg protocol.Message) {
	mb := l.members[seat]
	if mb == nil {
		return
	}
	select {
	case mb.Outbox <- msg:
	default:
		// Client is slow/full - drop them.
		l.log.Warn("outbox full, kicking player", zap.String("player_id", mb.PlayerID))
		if mb.Kick != nil {
			mb.Kick()
		}
	}
}

func (l *Lobby) seatOf(playerID string) (engine.Seat, bool) {
	for i, mb := range l.members {
		if mb != nil && mb.PlayerID == playerID {
			return engine.Seat(i), true
		}
	}
	return 0, false
}

func (l *Lobby) stopTimer() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}
