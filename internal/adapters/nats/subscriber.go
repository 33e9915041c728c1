package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/footpath/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn     *nats.Conn
	js       nats.JetStreamContext
	instance string
	subs     []*nats.Subscription
}

// NewSubscriber connects to NATS. Events emitted by instance are skipped.
func NewSubscriber(url, instance string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js, instance: instance}, nil
}

// SubscribePointsRefreshed delivers refresh announcements published after
// the subscription started. Every instance gets its own ephemeral consumer.
func (s *Subscriber) SubscribePointsRefreshed(ctx context.Context, handler func(ctx context.Context, ev *domain.Event) error) error {
	sub, err := s.js.Subscribe(domain.SubjectPointsRefreshed, func(msg *nats.Msg) {
		var ev domain.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("discarding malformed event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if ev.Instance != "" && ev.Instance == s.instance {
			_ = msg.Ack()
			return
		}
		if err := handler(ctx, &ev); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
