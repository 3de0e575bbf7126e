// Package relay is the client side of the duel relay channel: one ordered
// websocket connection to the session authority.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/sketch-duel/internal/protocol"
)

var (
	ErrOutboxFull = errors.New("relay outbox full")
	ErrClosed     = errors.New("relay closed")
)

type Options struct {
	Logger       *zap.Logger
	OutboxSize   int
	WriteTimeout time.Duration
	Header       http.Header
}

// Client sends outbound intents in order and delivers inbound messages in
// arrival order. Send never blocks.
type Client struct {
	conn         *websocket.Conn
	outbox       chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	log          *zap.Logger
}

func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: opts.Header})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewClient(conn, opts), nil
}

// NewClient wraps an established connection.
func NewClient(conn *websocket.Conn, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 64
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 3 * time.Second
	}
	conn.SetReadLimit(protocol.MaxFrameBytes)
	return &Client{
		conn:         conn,
		outbox:       make(chan []byte, opts.OutboxSize),
		done:         make(chan struct{}),
		writeTimeout: opts.WriteTimeout,
		log:          opts.Logger,
	}
}

// Send queues msg for the writer loop.
func (c *Client) Send(msg protocol.Message) error {
	b, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.outbox <- b:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Join registers for matchmaking.
func (c *Client) Join(identity, username string) error {
	return c.Send(protocol.Join{Identity: identity, Username: username})
}

// Run pumps both directions until ctx is done, the connection fails or
// Close is called. deliver is invoked sequentially, in arrival order.
func (c *Client) Run(ctx context.Context, deliver func(protocol.Message)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.writeLoop(gctx) })
	g.Go(func() error { return c.readLoop(gctx, deliver) })

	err := g.Wait()
	if c.closed() {
		return nil
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return nil
	}
	return err
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close(websocket.StatusNormalClosure, "bye")
	})
	return err
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) readLoop(ctx context.Context, deliver func(protocol.Message)) error {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			c.log.Warn("dropping undecodable message", zap.Error(err))
			continue
		}
		deliver(msg)
	}
}

func (c *Client) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return ErrClosed
		case b := <-c.outbox:
			wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
	}
}
