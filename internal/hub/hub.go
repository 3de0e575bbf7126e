package hub

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/sketch-duel/internal/lobby"
	"github.com/DoyleJ11/sketch-duel/internal/protocol"
)

type HubMsg interface{ isHubMsg() }

// Join registers a connection that has sent its join message and queues it.
type Join struct {
	Member lobby.Member
}

type FromClient struct {
	PlayerID string
	Msg      protocol.Message
}

type Disconnect struct {
	PlayerID string
}

type GetStats struct {
	Reply chan Stats
}

type ShutdownHub struct{}

type roomClosed struct{ pairID string }

func (Join) isHubMsg()        {}
func (FromClient) isHubMsg()  {}
func (Disconnect) isHubMsg()  {}
func (GetStats) isHubMsg()    {}
func (ShutdownHub) isHubMsg() {}
func (roomClosed) isHubMsg()  {}

type Stats struct {
	Players int
	Queued  int
	Rooms   int
}

type player struct {
	member lobby.Member
	room   string // pair ID, empty while queued
}

// Hub is the matchmaker. It owns the waiting queue and the index of live
// duel rooms by pair ID.
type Hub struct {
	inbox   chan HubMsg
	players map[string]*player
	queue   []string
	rooms   map[string]*lobby.Lobby
	cfg     lobby.Config
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, cfg lobby.Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	cfg = cfg.WithDefaults()
	log := cfg.Logger
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		players: make(map[string]*player),
		rooms:   make(map[string]*lobby.Lobby),
		cfg:     cfg,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Post delivers msg unless the hub or ctx is done first.
func (h *Hub) Post(ctx context.Context, msg HubMsg) error {
	select {
	case h.inbox <- msg:
		return nil
	case <-h.ctx.Done():
		return fmt.Errorf("hub: %w", h.ctx.Err())
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				if _, ok := h.players[msg.Member.PlayerID]; ok {
					break
				}
				h.players[msg.Member.PlayerID] = &player{member: msg.Member}
				h.enqueue(msg.Member.PlayerID)
				h.match()

			case FromClient:
				p := h.players[msg.PlayerID]
				if p == nil {
					break
				}
				if _, ok := msg.Msg.(protocol.PlayAgain); ok {
					h.playAgain(msg.PlayerID, p)
					break
				}
				if lb := h.rooms[p.room]; lb != nil {
					h.toRoom(lb, lobby.FromClient{PlayerID: msg.PlayerID, Msg: msg.Msg})
				}

			case Disconnect:
				p := h.players[msg.PlayerID]
				if p == nil {
					break
				}
				delete(h.players, msg.PlayerID)
				h.dequeue(msg.PlayerID)
				if lb := h.rooms[p.room]; lb != nil {
					// The partner is requeued once the room reports closed.
					h.toRoom(lb, lobby.Leave{PlayerID: msg.PlayerID})
				}
				h.log.Debug("player disconnected", zap.String("player_id", msg.PlayerID))

			case roomClosed:
				delete(h.rooms, msg.pairID)
				requeued := false
				for id, p := range h.players {
					if p.room == msg.pairID {
						p.room = ""
						h.enqueue(id)
						requeued = true
					}
				}
				if requeued {
					h.match()
				}

			case GetStats:
				msg.Reply <- Stats{Players: len(h.players), Queued: len(h.queue), Rooms: len(h.rooms)}

			case ShutdownHub:
				h.cancel()
			}
		}
	}
}

func (h *Hub) playAgain(id string, p *player) {
	if p.room == "" {
		return
	}
	if lb := h.rooms[p.room]; lb != nil {
		h.toRoom(lb, lobby.Detach{PlayerID: id})
	}
	p.room = ""
	h.enqueue(id)
	h.match()
}

// match pairs waiting players in arrival order. A player is never paired
// with another connection of the same identity.
func (h *Hub) match() {
	for {
		i, j, ok := h.nextPair()
		if !ok {
			return
		}
		a, b := h.players[h.queue[i]], h.players[h.queue[j]]
		h.queue = append(h.queue[:j], h.queue[j+1:]...)
		h.queue = append(h.queue[:i], h.queue[i+1:]...)
		h.open(a, b)
	}
}

func (h *Hub) nextPair() (int, int, bool) {
	for i := 0; i < len(h.queue); i++ {
		a := h.players[h.queue[i]]
		for j := i + 1; j < len(h.queue); j++ {
			if h.players[h.queue[j]].member.Identity != a.member.Identity {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func (h *Hub) open(a, b *player) {
	pairID := uuid.NewString()
	ma, mb := a.member, b.member
	// Winners are announced by display name, so names within a pair must differ.
	if ma.Name == mb.Name {
		mb.Name += " (2)"
	}

	lb := lobby.NewLobby(h.ctx, pairID, ma, mb, h.cfg)
	h.rooms[pairID] = lb
	a.room, b.room = pairID, pairID

	go func() {
		<-lb.Done()
		select {
		case h.inbox <- roomClosed{pairID: pairID}:
		case <-h.ctx.Done():
		}
	}()

	h.log.Info("players matched",
		zap.String("pair_id", pairID),
		zap.String("a", ma.Name),
		zap.String("b", mb.Name))
}

func (h *Hub) toRoom(lb *lobby.Lobby, msg lobby.Msg) {
	select {
	case lb.Inbox() <- msg:
	case <-lb.Done():
	}
}

func (h *Hub) enqueue(id string) {
	for _, q := range h.queue {
		if q == id {
			return
		}
	}
	h.queue = append(h.queue, id)
}

func (h *Hub) dequeue(id string) {
	for i, q := range h.queue {
		if q == id {
			h.queue = append(h.queue[:i], h.queue[i+1:]...)
			return
		}
	}
}

func (h *Hub) shutdown() {
	for _, lb := range h.rooms {
		select {
		case lb.Inbox() <- lobby.Shutdown{}:
		case <-lb.Done():
		}
	}
	clear(h.rooms)
}
