// Package events publishes completed duel rounds to other services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type Participant struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
	Rating   int    `json:"rating"`
}

// RoundResult is published once per completed round.
type RoundResult struct {
	PairID  string      `json:"pair_id"`
	Round   int         `json:"round"`
	Prompt  string      `json:"prompt"`
	Winner  Participant `json:"winner"`
	Loser   Participant `json:"loser"`
	EndedAt time.Time   `json:"ended_at"`
}

type Publisher interface {
	PublishRoundResult(ctx context.Context, r RoundResult) error
	Close() error
}

// Nop discards results.
type Nop struct{}

func (Nop) PublishRoundResult(context.Context, RoundResult) error { return nil }
func (Nop) Close() error                                          { return nil }

// NATSPublisher sends results as JSON on a single subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("sketch-duel"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) PublishRoundResult(_ context.Context, r RoundResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal round result: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish round result: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
