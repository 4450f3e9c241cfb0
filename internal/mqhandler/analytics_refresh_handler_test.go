package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "habitflow/contracts/mq"
	"habitflow/pkg/util"
)

type fakeRefresher struct {
	calls []int
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context, userID int) error {
	f.calls = append(f.calls, userID)
	return f.err
}

type fakeDeduper struct {
	seen     map[string]bool
	released []string
}

func newFakeDeduper() *fakeDeduper { return &fakeDeduper{seen: map[string]bool{}} }

func (d *fakeDeduper) AcquireOnce(_ context.Context, handler, eventID string) bool {
	key := util.FormatDedupKey(handler, eventID)
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

func (d *fakeDeduper) Release(_ context.Context, handler, eventID string) {
	key := util.FormatDedupKey(handler, eventID)
	delete(d.seen, key)
	d.released = append(d.released, key)
}

func encode(t *testing.T, ev mqcontracts.HabitEvent) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	return raw
}

func toggled(eventID string, userID int) mqcontracts.HabitEvent {
	return mqcontracts.HabitEvent{
		EventID:    eventID,
		Type:       mqcontracts.RoutingKeyCompletionToggled,
		UserID:     userID,
		Date:       "2026-03-18",
		OccurredAt: time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC),
		Completion: &mqcontracts.CompletionToggledPayload{RoutineID: "r1", Completed: true},
	}
}

func TestAnalyticsRefreshHandler_RefreshesOncePerEvent(t *testing.T) {
	refresher := &fakeRefresher{}
	h := NewAnalyticsRefreshHandler(refresher, newFakeDeduper(), zap.NewNop())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, encode(t, toggled("ev-1", 7))))
	require.NoError(t, h.Handle(ctx, encode(t, toggled("ev-1", 7))))
	require.NoError(t, h.Handle(ctx, encode(t, toggled("ev-2", 7))))

	assert.Equal(t, []int{7, 7}, refresher.calls)
}

func TestAnalyticsRefreshHandler_ReleasesOnFailure(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("connection refused")}
	deduper := newFakeDeduper()
	h := NewAnalyticsRefreshHandler(refresher, deduper, zap.NewNop())
	ctx := context.Background()

	err := h.Handle(ctx, encode(t, toggled("ev-1", 7)))
	require.Error(t, err)
	retryable, _ := util.IsRetryableError(err)
	assert.True(t, retryable)
	assert.Equal(t, []string{util.FormatDedupKey(analyticsRefreshName, "ev-1")}, deduper.released)

	refresher.err = nil
	require.NoError(t, h.Handle(ctx, encode(t, toggled("ev-1", 7))))
	assert.Len(t, refresher.calls, 2)
}

func TestAnalyticsRefreshHandler_RejectsBadPayloads(t *testing.T) {
	refresher := &fakeRefresher{}
	h := NewAnalyticsRefreshHandler(refresher, nil, zap.NewNop())
	ctx := context.Background()

	err := h.Handle(ctx, json.RawMessage(`{"user_id":`))
	require.Error(t, err)
	retryable, reason := util.IsRetryableError(err)
	assert.False(t, retryable)
	assert.Equal(t, "json_decode_error", reason)

	err = h.Handle(ctx, encode(t, toggled("ev-3", 0)))
	require.Error(t, err)
	retryable, _ = util.IsRetryableError(err)
	assert.False(t, retryable)

	assert.Empty(t, refresher.calls)
}

func TestAnalyticsRefreshHandler_WithoutDeduper(t *testing.T) {
	refresher := &fakeRefresher{}
	h := NewAnalyticsRefreshHandler(refresher, nil, zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), encode(t, toggled("ev-1", 3))))
	require.NoError(t, h.Handle(context.Background(), encode(t, toggled("ev-1", 3))))
	assert.Equal(t, []int{3, 3}, refresher.calls)
}
