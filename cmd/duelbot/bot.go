package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/sketch-duel/internal/canvas"
	"github.com/DoyleJ11/sketch-duel/internal/logging"
	"github.com/DoyleJ11/sketch-duel/internal/protocol"
	"github.com/DoyleJ11/sketch-duel/internal/rating"
	"github.com/DoyleJ11/sketch-duel/internal/relay"
	"github.com/DoyleJ11/sketch-duel/internal/session"
)

// errFinished ends the errgroup once the requested rounds are played.
var errFinished = errors.New("finished")

// The bot draws on a surface the size of the logical canvas.
var botSurface = canvas.Surface{Width: canvas.LogicalWidth, Height: canvas.LogicalHeight}

func Play(ctx context.Context, cfg *Config) error {
	level := "info"
	if cfg.verbose {
		level = "debug"
	}
	log, err := logging.New(level, true)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger, err := rating.NewLedger(rating.NewFileStore(cfg.profile))
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if cfg.username != "" {
		if err := ledger.Rename(cfg.username); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
	}
	profile := ledger.Profile()
	log.Info("profile loaded",
		zap.String("identity", profile.Identity),
		zap.String("username", profile.Username),
		zap.Int("rating", profile.Rating))

	client, err := relay.Dial(ctx, cfg.server, relay.Options{Logger: log})
	if err != nil {
		return err
	}
	defer client.Close()

	snaps := make(chan session.Snapshot, 1)
	m := session.New(client, ledger, session.Options{
		Surface:  botSurface,
		Logger:   log,
		OnChange: func(s session.Snapshot) { latest(snaps, s) },
	})

	if err := client.Join(profile.Identity, profile.Username); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Run(gctx, func(msg protocol.Message) {
			_ = m.Post(gctx, session.Inbound{Msg: msg})
		})
	})
	g.Go(func() error { return m.Run(gctx) })
	g.Go(func() error {
		d := &driver{cfg: cfg, m: m, log: log}
		return d.run(gctx, snaps)
	})

	err = g.Wait()
	if errors.Is(err, errFinished) || errors.Is(err, context.Canceled) {
		log.Info("done", zap.Int("rating", ledger.Rating()))
		return nil
	}
	return err
}

// latest replaces any unread snapshot so the driver only sees the newest.
func latest(ch chan session.Snapshot, s session.Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

type driver struct {
	cfg     *Config
	m       *session.Machine
	log     *zap.Logger
	played  int
	phase   session.Phase
	handled bool // result of the current round already processed
}

func (d *driver) run(ctx context.Context, snaps <-chan session.Snapshot) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-snaps:
			if err := d.observe(ctx, s); err != nil {
				return err
			}
		}
	}
}

func (d *driver) observe(ctx context.Context, s session.Snapshot) error {
	prev := d.phase
	d.phase = s.Phase

	switch s.Phase {
	case session.PhaseDraw:
		if prev == session.PhaseDraw {
			return nil
		}
		d.handled = false
		d.log.Info("round started", zap.String("prompt", s.Prompt), zap.String("opponent", s.Opponent()))
		go d.scribble(ctx, d.cfg.strokes)

	case session.PhaseResult:
		// The winner arrives after the local countdown has already ended.
		if s.Winner == "" || d.handled {
			return nil
		}
		d.handled = true
		d.played++
		d.log.Info("round ended",
			zap.String("winner", s.Winner),
			zap.Bool("won", s.Winner == s.Self()),
			zap.Int("delta", s.LastDelta),
			zap.Int("rating", s.Rating))
		if d.cfg.exportDir != "" {
			if err := exportRound(d.cfg.exportDir, d.played, s); err != nil {
				d.log.Warn("export round", zap.Error(err))
			}
		}
		if d.cfg.rounds > 0 && d.played >= d.cfg.rounds {
			return errFinished
		}
		return d.m.Post(ctx, session.PlayAgainRequest{})

	case session.PhaseQueue:
		if prev != session.PhaseQueue && prev != "" {
			d.log.Info("back in queue", zap.String("opponent", s.Opponent()))
		}
	}
	return nil
}

// scribble draws n random strokes spread over the first part of the round.
func (d *driver) scribble(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		for _, ev := range Scribble(rand.Float64) {
			if err := d.m.Post(ctx, ev); err != nil {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(750 * time.Millisecond):
		}
	}
}

// Scribble returns the pointer events of one wavy stroke.
func Scribble(rnd func() float64) []session.Event {
	const steps = 24
	x0 := 80 + rnd()*(canvas.LogicalWidth-160)
	y0 := 80 + rnd()*(canvas.LogicalHeight-160)
	heading := rnd() * 2 * math.Pi
	amp := 10 + rnd()*30

	evs := make([]session.Event, 0, steps+2)
	at := func(i int) canvas.InputEvent {
		t := float64(i) * 6
		wobble := amp * math.Sin(float64(i)/3)
		x := x0 + t*math.Cos(heading) - wobble*math.Sin(heading)
		y := y0 + t*math.Sin(heading) + wobble*math.Cos(heading)
		return canvas.InputEvent{ClientX: clamp(x, canvas.LogicalWidth), ClientY: clamp(y, canvas.LogicalHeight)}
	}
	evs = append(evs, session.PointerDown{Input: at(0)})
	for i := 1; i <= steps; i++ {
		evs = append(evs, session.PointerMove{Input: at(i)})
	}
	return append(evs, session.PointerUp{})
}

func clamp(v, limit float64) float64 {
	return math.Min(math.Max(v, 0), limit)
}

// exportRound writes round-<n>.png with the local drawing and round-<n>.pdf
// with both drawings side by side.
func exportRound(dir string, n int, s session.Snapshot) (err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := filepath.Join(dir, fmt.Sprintf("round-%d", n))

	png, err := os.Create(base + ".png")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := png.Close(); err == nil {
			err = cerr
		}
	}()
	if err := canvas.WritePNG(png, canvas.LogicalWidth, canvas.LogicalHeight, s.OwnStrokes); err != nil {
		return fmt.Errorf("write png: %w", err)
	}

	pdf, err := os.Create(base + ".pdf")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := pdf.Close(); err == nil {
			err = cerr
		}
	}()
	sheets := [2]canvas.Sheet{}
	sheets[s.SelfIndex] = canvas.Sheet{Name: s.Self(), Strokes: s.OwnStrokes}
	sheets[1-s.SelfIndex] = canvas.Sheet{Name: s.Opponent(), Strokes: s.OpponentStrokes}
	if err := canvas.WritePDF(pdf, s.Prompt, s.Winner, sheets); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
