package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/sketch-duel/internal/canvas"
	"github.com/DoyleJ11/sketch-duel/internal/protocol"
)

var (
	ErrCaptureDisabled   = errors.New("drawing is disabled outside an active round")
	ErrNoStrokes         = errors.New("no own strokes to remove")
	ErrNotInResult       = errors.New("play again is only available on the result screen")
	ErrBadRoundStart     = errors.New("invalid round-start")
	ErrUnexpectedMessage = errors.New("unexpected message from authority")
	ErrUnknownEvent      = errors.New("unknown event")
)

// Sender is the outbound half of the relay channel. Send must not block.
type Sender interface {
	Send(protocol.Message) error
}

// Ledger is the rating ledger as seen by the machine.
type Ledger interface {
	Settle(won bool) (int, error)
	Rating() int
}

type Options struct {
	Surface  canvas.Surface
	Clock    clockwork.Clock
	Logger   *zap.Logger
	OnChange func(Snapshot) // called on the machine goroutine after every event
}

// Machine orchestrates queue -> draw -> result -> queue for one client
// session. All state changes happen inside Apply, one event at a time.
type Machine struct {
	snap     Snapshot
	settled  bool // rating applied for the current round
	gen      uint64
	capture  *canvas.Capture
	timer    *RoundTimer
	out      Sender
	ledger   Ledger
	events   chan Event
	onChange func(Snapshot)
	log      *zap.Logger
}

func New(out Sender, ledger Ledger, opts Options) *Machine {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	events := make(chan Event, 256)
	m := &Machine{
		capture:  canvas.NewCapture(opts.Surface),
		timer:    NewRoundTimer(opts.Clock, events),
		out:      out,
		ledger:   ledger,
		events:   events,
		onChange: opts.OnChange,
		log:      opts.Logger,
	}
	m.snap = Snapshot{
		Phase:        PhaseQueue,
		Participants: [2]string{"", Unassigned},
		Rating:       ledger.Rating(),
	}
	return m
}

// Post queues ev for Run. Events are applied in the order they are posted.
func (m *Machine) Post(ctx context.Context, ev Event) error {
	select {
	case m.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies queued events until ctx is done.
func (m *Machine) Run(ctx context.Context) error {
	defer m.timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.events:
			if err := m.Apply(ev); err != nil {
				m.log.Debug("event not applied", zap.String("event", fmt.Sprintf("%T", ev)), zap.Error(err))
			}
		}
	}
}

// Snapshot returns a copy of the current state. Only call it from the
// goroutine that drives Apply; other goroutines post a Query.
func (m *Machine) Snapshot() Snapshot {
	s := m.snap.clone()
	s.InProgress = m.capture.InProgress()
	return s
}

// Apply processes a single event.
func (m *Machine) Apply(ev Event) error {
	var err error
	switch e := ev.(type) {
	case Inbound:
		err = m.handleMessage(e.Msg)
	case Tick:
		err = m.tick(e.Generation)
	case PointerDown:
		if !m.capture.Down(e.Input, m.canDraw()) {
			err = ErrCaptureDisabled
		}
	case PointerMove:
		m.capture.Move(e.Input)
	case PointerUp:
		err = m.finishStroke(m.capture.Up())
	case PointerLeave:
		err = m.finishStroke(m.capture.Leave())
	case UndoRequest:
		err = m.request(protocol.Undo{})
	case ClearRequest:
		err = m.request(protocol.Clear{})
	case PlayAgainRequest:
		err = m.playAgain()
	case Resize:
		m.capture.Resize(e.Surface)
	case Query:
		e.Reply <- m.Snapshot()
		return nil
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}

	if m.onChange != nil {
		m.onChange(m.Snapshot())
	}
	return err
}

func (m *Machine) handleMessage(msg protocol.Message) error {
	switch v := msg.(type) {
	case protocol.RoundStart:
		return m.startRound(v)
	case protocol.RoundEnded:
		return m.roundEnded(v.Winner)
	case protocol.ReceiveStroke:
		s, ok := canvas.NewStroke(v.Points)
		if !ok {
			m.log.Debug("dropping short remote stroke", zap.Int("points", len(v.Points)))
			return nil
		}
		m.snap.OpponentStrokes = append(m.snap.OpponentStrokes, s)
	case protocol.UndoConfirm:
		m.snap.OwnStrokes = canvas.DropLast(m.snap.OwnStrokes)
	case protocol.ClearConfirm:
		m.snap.OwnStrokes = nil
	case protocol.OpponentUndo:
		m.snap.OpponentStrokes = canvas.DropLast(m.snap.OpponentStrokes)
	case protocol.OpponentClear:
		m.snap.OpponentStrokes = nil
	case protocol.OpponentLeave:
		m.opponentLeft()
	case protocol.Error:
		m.log.Warn("authority reported an error", zap.String("message", v.Message))
	default:
		return fmt.Errorf("%w: %T", ErrUnexpectedMessage, msg)
	}
	return nil
}

func (m *Machine) startRound(rs protocol.RoundStart) error {
	if rs.SelfIndex != 0 && rs.SelfIndex != 1 {
		return fmt.Errorf("%w: self index %d", ErrBadRoundStart, rs.SelfIndex)
	}
	m.capture.Cancel()
	m.settled = false
	m.snap = Snapshot{
		Phase:         PhaseDraw,
		Prompt:        rs.Prompt,
		Participants:  rs.Participants,
		SelfIndex:     rs.SelfIndex,
		RoundActive:   true,
		TimeRemaining: max(rs.Timer, 0),
		Rating:        m.ledger.Rating(),
	}
	m.restartTimer(true)

	m.log.Info("round started",
		zap.String("prompt", rs.Prompt),
		zap.String("opponent", m.snap.Opponent()),
		zap.Int("timer", m.snap.TimeRemaining))
	return nil
}

func (m *Machine) tick(gen uint64) error {
	if gen != m.gen || !m.canDraw() {
		return nil // stale countdown
	}
	if m.snap.TimeRemaining > 0 {
		m.snap.TimeRemaining--
	}
	if m.snap.TimeRemaining > 0 {
		return nil
	}

	if !m.endDraw() {
		return nil
	}
	m.log.Info("local timer expired, ending round")
	if err := m.out.Send(protocol.EndRound{}); err != nil {
		return fmt.Errorf("send end-round: %w", err)
	}
	return nil
}

// endDraw is the single guard shared by both ways a round can end. It
// reports whether this call performed the Draw -> Result transition.
func (m *Machine) endDraw() bool {
	if m.snap.Phase != PhaseDraw {
		return false
	}
	m.restartTimer(false)
	m.capture.Cancel()
	m.snap.RoundActive = false
	m.snap.Phase = PhaseResult
	return true
}

func (m *Machine) roundEnded(winner string) error {
	m.endDraw()
	if m.snap.Phase != PhaseResult || m.settled {
		m.log.Debug("ignoring round-ended", zap.String("phase", string(m.snap.Phase)), zap.Bool("settled", m.settled))
		return nil
	}

	m.settled = true
	m.snap.Winner = winner
	delta, err := m.ledger.Settle(winner == m.snap.Self())
	m.snap.LastDelta = delta
	m.snap.Rating = m.ledger.Rating()

	m.log.Info("round ended",
		zap.String("winner", winner),
		zap.Int("delta", delta),
		zap.Int("rating", m.snap.Rating))
	return err
}

func (m *Machine) opponentLeft() {
	m.log.Info("opponent left", zap.String("opponent", m.snap.Opponent()))
	m.toQueue()
	m.snap.Participants[1-m.snap.SelfIndex] = Unassigned
}

func (m *Machine) playAgain() error {
	if m.snap.Phase != PhaseResult {
		return ErrNotInResult
	}
	m.toQueue()
	if err := m.out.Send(protocol.PlayAgain{}); err != nil {
		return fmt.Errorf("send play-again: %w", err)
	}
	return nil
}

func (m *Machine) toQueue() {
	m.restartTimer(false)
	m.capture.Cancel()
	m.snap.Phase = PhaseQueue
	m.snap.RoundActive = false
	m.snap.TimeRemaining = 0
	m.snap.Winner = ""
	m.snap.LastDelta = 0
	m.snap.OwnStrokes = nil
	m.snap.OpponentStrokes = nil
}

func (m *Machine) finishStroke(s canvas.Stroke, ok bool) error {
	if !ok {
		return nil
	}
	m.snap.OwnStrokes = append(m.snap.OwnStrokes, s)
	if err := m.out.Send(protocol.SendStroke{Points: s.Points()}); err != nil {
		return fmt.Errorf("send stroke: %w", err)
	}
	return nil
}

// request sends an undo or clear. Own strokes change only when the
// authority confirms.
func (m *Machine) request(msg protocol.Message) error {
	if !m.canDraw() {
		return ErrCaptureDisabled
	}
	if len(m.snap.OwnStrokes) == 0 {
		return ErrNoStrokes
	}
	if err := m.out.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.MessageType(), err)
	}
	return nil
}

// restartTimer replaces the countdown. Bumping the generation makes any tick
// already queued from the old countdown stale.
func (m *Machine) restartTimer(run bool) {
	m.timer.Stop()
	m.gen++
	if run {
		m.timer.Start(m.gen)
	}
}

func (m *Machine) canDraw() bool {
	return m.snap.Phase == PhaseDraw && m.snap.RoundActive
}
