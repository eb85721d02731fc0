// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/preflight/internal/log"
	"github.com/ManuGH/preflight/internal/metrics"
)

// SubjectPrefix namespaces every subject published by NATSBus.
const SubjectPrefix = "preflight."

// Subject maps a topic to its NATS subject.
func Subject(topic string) string {
	return SubjectPrefix + topic
}

// NATSBus publishes events as JSON envelopes on preflight.<topic> subjects.
type NATSBus struct {
	conn   *nats.Conn
	logger zerolog.Logger

	mu   sync.Mutex
	subs []*natsSub
}

// DialNATS connects to url. The connection retries in the background after
// a disconnect; the initial connect fails fast.
func DialNATS(url string, timeout time.Duration) (*NATSBus, error) {
	logger := xglog.WithComponent("events")
	conn, err := nats.Connect(url,
		nats.Name("preflight"),
		nats.Timeout(timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Str(xglog.FieldEvent, "events.nats_disconnected").Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str(xglog.FieldEvent, "events.nats_reconnected").Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATSBus{conn: conn, logger: logger}, nil
}

func (b *NATSBus) Publish(ctx context.Context, e Event) error {
	topic := e.Topic()
	if err := ctx.Err(); err != nil {
		metrics.RecordEventDropped(topic, dropReason(err))
		return fmt.Errorf("publish topic %q: %w", topic, err)
	}
	data, err := Encode(e)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(Subject(topic), data); err != nil {
		metrics.RecordEventDropped(topic, "transport")
		return fmt.Errorf("publish topic %q: %w", topic, err)
	}
	metrics.RecordEventPublished(topic)
	return nil
}

// Subscribe decodes events arriving on the topic subject. Undecodable
// messages are logged and skipped.
func (b *NATSBus) Subscribe(_ context.Context, topic string) (Subscriber, error) {
	s := &natsSub{ch: make(chan Event, subscriberCap)}
	sub, err := b.conn.Subscribe(Subject(topic), func(m *nats.Msg) {
		ev, err := Decode(m.Data)
		if err != nil {
			b.logger.Warn().Err(err).Str("subject", m.Subject).Msg("discarding undecodable event")
			return
		}
		s.deliver(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", Subject(topic), err)
	}
	s.sub = sub

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s, nil
}

// Close unsubscribes everything and drains the connection.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}

type natsSub struct {
	sub *nats.Subscription
	ch  chan Event

	mu     sync.Mutex
	closed bool
}

// deliver drops the event when the subscriber is not keeping up; NATS
// callbacks must not block.
func (s *natsSub) deliver(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- e:
	default:
		metrics.RecordEventDropped(e.Topic(), "slow_consumer")
	}
}

func (s *natsSub) C() <-chan Event {
	return s.ch
}

func (s *natsSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.ch)
	if s.sub != nil {
		return s.sub.Unsubscribe()
	}
	return nil
}

var _ Bus = (*NATSBus)(nil)
