package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/sketch-duel/internal/hub"
	"github.com/DoyleJ11/sketch-duel/internal/lobby"
	"github.com/DoyleJ11/sketch-duel/internal/protocol"
)

const (
	joinTimeout  = 10 * time.Second
	writeTimeout = 3 * time.Second
	outboxSize   = 32
)

type Options struct {
	OriginPatterns []string
	Logger         *zap.Logger
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(protocol.MaxFrameBytes)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		join, err := readJoin(ctx, conn)
		if err != nil {
			log.Debug("rejecting connection", zap.Error(err))
			conn.Close(websocket.StatusPolicyViolation, "join required")
			return
		}

		playerID := uuid.NewString()
		log := log.With(zap.String("player_id", playerID))
		out := make(chan protocol.Message, outboxSize)

		member := lobby.Member{
			PlayerID: playerID,
			Identity: join.Identity,
			Name:     NormalizeName(join.Username),
			Outbox:   out,
			Kick:     cancel,
		}
		if err := h.Post(ctx, hub.Join{Member: member}); err != nil {
			conn.Close(websocket.StatusTryAgainLater, "server shutting down")
			return
		}
		defer func() {
			// r.Context() may already be gone; the hub must still hear about it.
			pctx, pcancel := context.WithTimeout(context.Background(), time.Second)
			defer pcancel()
			_ = h.Post(pctx, hub.Disconnect{PlayerID: playerID})
		}()
		log.Info("player joined", zap.String("name", member.Name))

		// Writer goroutine
		go func() {
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-out:
					payload, err := protocol.Encode(msg)
					if err != nil {
						log.Error("encode", zap.Error(err))
						continue
					}
					wctx, wcancel := context.WithTimeout(ctx, writeTimeout)
					err = conn.Write(wctx, websocket.MessageText, payload)
					wcancel()
					if err != nil {
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info("player closed connection")
				default:
					log.Debug("read ended", zap.Error(err))
				}
				return
			}

			msg, err := protocol.Decode(data)
			if err != nil {
				reply(out, protocol.Error{Message: err.Error()})
				continue
			}
			if _, ok := msg.(protocol.Join); ok {
				continue
			}
			if err := h.Post(ctx, hub.FromClient{PlayerID: playerID, Msg: msg}); err != nil {
				return
			}
		}
	}
}

var errJoinRequired = errors.New("first message must be join")

func readJoin(ctx context.Context, conn *websocket.Conn) (protocol.Join, error) {
	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return protocol.Join{}, err
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		return protocol.Join{}, err
	}
	join, ok := msg.(protocol.Join)
	if !ok || join.Identity == "" {
		return protocol.Join{}, errJoinRequired
	}
	return join, nil
}

func reply(out chan<- protocol.Message, msg protocol.Message) {
	select {
	case out <- msg:
	default:
	}
}
