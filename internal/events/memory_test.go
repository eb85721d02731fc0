// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_DeliversByTopic(t *testing.T) {
	b := NewMemoryBus()
	t.Cleanup(func() { _ = b.Close() })

	completed, err := b.Subscribe(context.Background(), TopicHealthCheckCompleted)
	require.NoError(t, err)
	detected, err := b.Subscribe(context.Background(), TopicAnomalyDetected)
	require.NoError(t, err)

	require.NoError(t, PublishAll(context.Background(), b, FromReport(sampleReport())))

	assert.Len(t, completed.C(), 1)
	assert.Len(t, detected.C(), 2)
	ev := <-completed.C()
	assert.Equal(t, TopicHealthCheckCompleted, ev.Topic())
}

func TestMemoryBus_NoSubscribers(t *testing.T) {
	b := NewMemoryBus()
	assert.NoError(t, b.Publish(context.Background(), NewConfigurationChanged(nil, at)))
}

func TestMemoryBus_PublishTimeoutWhenFull(t *testing.T) {
	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), TopicConfigurationChanged)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	for i := 0; i < subscriberCap; i++ {
		require.NoError(t, b.Publish(context.Background(), NewConfigurationChanged(nil, at)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = b.Publish(ctx, NewConfigurationChanged(nil, at))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryBus_RejectsNilContext(t *testing.T) {
	b := NewMemoryBus()
	//nolint:staticcheck // nil context is the case under test
	err := b.Publish(nil, NewConfigurationChanged(nil, at))
	require.ErrorContains(t, err, "context is nil")
}

func TestMemoryBus_SubscriberClose(t *testing.T) {
	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), TopicAnomalyDetected)
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	_, open := <-sub.C()
	assert.False(t, open)

	assert.NoError(t, b.Publish(context.Background(), FromReport(sampleReport())[0]))
}

func TestMemoryBus_CloseClosesSubscribers(t *testing.T) {
	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), TopicAnomalyDetected)
	require.NoError(t, err)

	require.NoError(t, b.Close())
	_, open := <-sub.C()
	assert.False(t, open)
	assert.NoError(t, sub.Close())

	_, err = b.Subscribe(context.Background(), TopicAnomalyDetected)
	assert.Error(t, err)
}

func TestMemoryBus_PublishRacesSubscriberClose(t *testing.T) {
	b := NewMemoryBus()
	t.Cleanup(func() { _ = b.Close() })

	for i := 0; i < 2000; i++ {
		sub, err := b.Subscribe(context.Background(), TopicConfigurationChanged)
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = b.Publish(context.Background(), NewConfigurationChanged(nil, at))
		}()
		go func() {
			defer wg.Done()
			_ = sub.Close()
		}()
		wg.Wait()
	}
}

func TestMemoryBus_PublishRacesBusClose(t *testing.T) {
	for i := 0; i < 500; i++ {
		b := NewMemoryBus()
		_, err := b.Subscribe(context.Background(), TopicConfigurationChanged)
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = b.Publish(context.Background(), NewConfigurationChanged(nil, at))
		}()
		go func() {
			defer wg.Done()
			_ = b.Close()
		}()
		wg.Wait()
	}
}
