package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/footpath/internal/core/domain"
)

// StreamName is the JetStream stream holding points and cache events.
const StreamName = "FOOTPATH_EVENTS"

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn     *nats.Conn
	js       nats.JetStreamContext
	instance string
}

// NewPublisher connects to NATS and makes sure the event stream exists.
// instance tags every event so the emitter can ignore its own announcements.
func NewPublisher(url, instance string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"footpath.points.>", "footpath.cache.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js, instance: instance}, nil
}

func (p *Publisher) envelope(subject string) domain.Event {
	return domain.Event{
		ID:         uuid.NewString(),
		Subject:    subject,
		Instance:   p.instance,
		OccurredAt: time.Now().UTC(),
	}
}

func (p *Publisher) PublishPointsRefreshed(ctx context.Context, count int) error {
	ev := p.envelope(domain.SubjectPointsRefreshed)
	ev.Points = count
	return p.persist(ctx, ev)
}

func (p *Publisher) PublishCacheCleared(ctx context.Context, cleared int) error {
	ev := p.envelope(domain.SubjectCacheCleared)
	ev.Cleared = cleared
	return p.persist(ctx, ev)
}

// PublishRateLimited uses core NATS; rejections are only interesting live.
func (p *Publisher) PublishRateLimited(ctx context.Context, class, client string, count int) error {
	ev := p.envelope(domain.SubjectRateLimited)
	ev.Class = class
	ev.Client = client
	ev.Count = count

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.conn.Publish(ev.Subject, data)
}

func (p *Publisher) persist(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(ev.Subject, data, nats.Context(ctx), nats.MsgId(ev.ID))
	return err
}

// Conn exposes the underlying connection for readiness checks.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("footpath"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
