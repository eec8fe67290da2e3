package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/guildpoint/merit/internal/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu       sync.Mutex
	events   []Event
	failures int
}

func (s *recordingSink) Publish(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}

	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func newTestDispatcher(t *testing.T, sink Sink, buffer int) *AsyncDispatcher {
	t.Helper()

	return NewDispatcher(Params{
		Sink: sink,
		Log:  zap.NewNop(),
		Cfg:  config.Config{NotifyBuffer: buffer},
	})
}

func TestDispatcherDeliversBufferedEvents(t *testing.T) {
	sink := &recordingSink{}
	dispatcher := newTestDispatcher(t, sink, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.RunForever(ctx)

	event := Event{
		Type:     TypeAwardGranted,
		TenantID: snowflake.ID(101),
		UserID:   "user-bob",
		Points:   3,
		Context:  map[string]string{"source_tag": "star"},
	}
	require.NoError(t, dispatcher.Publish(ctx, event))
	require.NoError(t, dispatcher.Publish(ctx, Event{Type: TypeBonusGranted, TenantID: 101, UserID: "user-bob", Points: 5}))
	require.NoError(t, dispatcher.Publish(ctx, Event{Type: TypeRankChanged, TenantID: 101, UserID: "user-bob"}))

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 3
	}, time.Second, 10*time.Millisecond)

	got := sink.snapshot()
	require.Equal(t, TypeAwardGranted, got[0].Type)
	require.Equal(t, snowflake.ID(101), got[0].TenantID)
	require.Equal(t, "user-bob", got[0].UserID)
	require.Equal(t, int64(3), got[0].Points)
	require.Equal(t, "star", got[0].Context["source_tag"])
	require.Equal(t, TypeBonusGranted, got[1].Type)
	require.Equal(t, TypeRankChanged, got[2].Type)
}

func TestDispatcherDropsWhenBufferFull(t *testing.T) {
	sink := &recordingSink{}
	dispatcher := newTestDispatcher(t, sink, 1)

	// No worker is draining yet, so the second event overflows. Both
	// calls still return immediately with no error.
	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: TypeAwardGranted, UserID: "kept"}))
	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: TypeAwardGranted, UserID: "dropped"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.RunForever(ctx)

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	got := sink.snapshot()
	require.Len(t, got, 1)
	require.Equal(t, "kept", got[0].UserID)
}

func TestDispatcherKeepsRunningAfterSinkFailure(t *testing.T) {
	sink := &recordingSink{failures: 1}
	dispatcher := newTestDispatcher(t, sink, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.RunForever(ctx)

	require.NoError(t, dispatcher.Publish(ctx, Event{Type: TypeAwardGranted, UserID: "lost"}))
	require.NoError(t, dispatcher.Publish(ctx, Event{Type: TypeAwardGranted, UserID: "delivered"}))

	require.Eventually(t, func() bool {
		got := sink.snapshot()
		return len(got) == 1 && got[0].UserID == "delivered"
	}, time.Second, 10*time.Millisecond)
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	dispatcher := newTestDispatcher(t, &NoOpSink{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatcher.RunForever(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}

func TestNoOpSinkAcceptsEverything(t *testing.T) {
	var sink NoOpSink
	require.NoError(t, sink.Publish(context.Background(), Event{Type: TypeAwardGranted}))
}
