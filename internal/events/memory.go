// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	xglog "github.com/ManuGH/preflight/internal/log"
	"github.com/ManuGH/preflight/internal/metrics"
)

// MemoryBus is an in-process pub/sub. It is not durable; Publish blocks on a
// full subscriber until the publish context ends.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]chan Event
	closed bool
}

const (
	dropLogEvery  = 100
	subscriberCap = 64
)

var dropCount atomic.Uint64

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]chan Event)}
}

func (b *MemoryBus) Publish(ctx context.Context, e Event) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	topic := e.Topic()

	// The read lock is held across the sends so a subscriber cannot be
	// closed mid-publish. Each send is bounded by ctx.
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[topic] {
		select {
		case ch <- e:
		case <-ctx.Done():
			reason := dropReason(ctx.Err())
			metrics.RecordEventDropped(topic, reason)
			if count := dropCount.Add(1); count%dropLogEvery == 0 {
				logger := xglog.WithComponent("events")
				logger.Warn().
					Str(xglog.FieldEvent, "events.dropped").
					Str("topic", topic).
					Str("reason", reason).
					Uint64("dropped", count).
					Msg("memory bus failed to publish due to context cancellation")
			}
			return fmt.Errorf("publish topic %q: %w", topic, ctx.Err())
		}
	}
	metrics.RecordEventPublished(topic)
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string) (Subscriber, error) {
	ch := make(chan Event, subscriberCap)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("subscribe topic %q: bus closed", topic)
	}
	b.subs[topic] = append(b.subs[topic], ch)
	return &memSub{b: b, topic: topic, ch: ch}, nil
}

// Close detaches and closes every subscriber.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, chs := range b.subs {
		for _, ch := range chs {
			close(ch)
		}
		delete(b.subs, topic)
	}
	return nil
}

type memSub struct {
	b     *MemoryBus
	topic string
	ch    chan Event
	once  sync.Once
}

func (s *memSub) C() <-chan Event {
	return s.ch
}

func (s *memSub) Close() error {
	s.once.Do(func() {
		s.b.mu.Lock()
		defer s.b.mu.Unlock()

		lst := s.b.subs[s.topic]
		out := lst[:0]
		found := false
		for _, c := range lst {
			if c == s.ch {
				found = true
				continue
			}
			out = append(out, c)
		}
		if len(out) == 0 {
			delete(s.b.subs, s.topic)
		} else {
			s.b.subs[s.topic] = out
		}
		// Bus.Close already closed the channel when it is no longer listed.
		if found {
			close(s.ch)
		}
	})
	return nil
}

var _ Bus = (*MemoryBus)(nil)
