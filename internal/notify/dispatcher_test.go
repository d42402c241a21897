package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

type fakeStore struct {
	mu        sync.Mutex
	rows      []model.DeviceNotification
	playlists map[string][]string
	media     map[string][]string
	schedules map[string][]string
	insertErr error
	lookupErr error
}

func (f *fakeStore) CreateDeviceNotifications(ns []model.DeviceNotification) ([]model.DeviceNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	out := make([]model.DeviceNotification, 0, len(ns))
	for _, n := range ns {
		n.ID = fmt.Sprintf("n-%d", len(f.rows)+1)
		f.rows = append(f.rows, n)
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeStore) ScreenIDsForPlaylist(id string) ([]string, error) {
	return f.playlists[id], f.lookupErr
}

func (f *fakeStore) ScreenIDsForMedia(id string) ([]string, error) {
	return f.media[id], f.lookupErr
}

func (f *fakeStore) ScreenIDsForSchedule(sc model.Schedule) ([]string, error) {
	return f.schedules[sc.ID], f.lookupErr
}

func (f *fakeStore) stored() []model.DeviceNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.DeviceNotification(nil), f.rows...)
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []model.DeviceNotification
	err  error
}

func (p *fakePublisher) Publish(ctx context.Context, n model.DeviceNotification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, n)
	return nil
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
}

func newTestDispatcher(store *fakeStore, pubs ...Publisher) *Dispatcher {
	d := NewDispatcher(store, pubs...)
	d.now = fixedClock
	return d
}

func TestDispatchPlaylistChangeUsesScheduledScreens(t *testing.T) {
	store := &fakeStore{playlists: map[string][]string{"pl-1": {"scr-a", "scr-b", "scr-a"}}}
	pub := &fakePublisher{}
	d := newTestDispatcher(store, pub)

	err := d.Dispatch(context.Background(), PlaylistEvent("pl-1", "items_reordered"))
	require.NoError(t, err)

	rows := store.stored()
	require.Len(t, rows, 2)
	for _, n := range rows {
		assert.Equal(t, model.NotificationPlaylistChange, n.NotificationType)
		assert.Equal(t, PriorityContentChange, n.Priority)
	}
	assert.Equal(t, "scr-a", rows[0].ScreenID)
	assert.Equal(t, "scr-b", rows[1].ScreenID)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rows[0].Payload, &payload))
	assert.Equal(t, "items_reordered", payload["action"])
	assert.Equal(t, "pl-1", payload["playlist_id"])
	assert.Equal(t, "2025-03-04T12:00:00Z", payload["timestamp"])

	assert.Len(t, pub.sent, 2)
}

func TestDispatchExplicitScreensSkipLookup(t *testing.T) {
	store := &fakeStore{lookupErr: errors.New("should not be called")}
	d := newTestDispatcher(store)

	require.NoError(t, d.Dispatch(context.Background(), PlaylistEvent("pl-1", "updated", "scr-x")))
	rows := store.stored()
	require.Len(t, rows, 1)
	assert.Equal(t, "scr-x", rows[0].ScreenID)
}

func TestDispatchPriorities(t *testing.T) {
	store := &fakeStore{
		media:     map[string][]string{"m-1": {"scr-a"}},
		schedules: map[string][]string{"sc-1": {"scr-a"}},
	}
	d := newTestDispatcher(store)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, ScheduleEvent(model.Schedule{ID: "sc-1", Name: "Lunch"}, "updated")))
	require.NoError(t, d.Dispatch(ctx, MediaEvent("m-1", "deleted")))
	require.NoError(t, d.Dispatch(ctx, ScreenEvent("scr-a", "updated")))

	rows := store.stored()
	require.Len(t, rows, 3)
	assert.Equal(t, model.NotificationScheduleChange, rows[0].NotificationType)
	assert.Equal(t, 2, rows[0].Priority)
	assert.Equal(t, model.NotificationMediaChange, rows[1].NotificationType)
	assert.Equal(t, 3, rows[1].Priority)
	assert.Equal(t, model.NotificationScreenUpdate, rows[2].NotificationType)
	assert.Equal(t, 1, rows[2].Priority)
}

func TestDispatchNoScreensWritesNothing(t *testing.T) {
	store := &fakeStore{}
	d := newTestDispatcher(store)

	require.NoError(t, d.Dispatch(context.Background(), MediaEvent("orphan", "updated")))
	assert.Empty(t, store.stored())
}

func TestDispatchReportsStoreAndPublisherFailures(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("db down")}
	d := newTestDispatcher(store)
	err := d.Dispatch(context.Background(), ScreenEvent("scr-a", "updated"))
	assert.ErrorContains(t, err, "db down")

	store = &fakeStore{}
	broken := &fakePublisher{err: errors.New("broker gone")}
	healthy := &fakePublisher{}
	d = newTestDispatcher(store, broken, healthy)
	err = d.Dispatch(context.Background(), ScreenEvent("scr-a", "updated"))
	assert.ErrorContains(t, err, "broker gone")
	assert.Len(t, store.stored(), 1)
	assert.Len(t, healthy.sent, 1)
}

func TestFireAndForgetSwallowsErrors(t *testing.T) {
	store := &fakeStore{lookupErr: errors.New("lookup failed")}
	d := newTestDispatcher(store)

	d.PlaylistChanged("org-1", "pl-1", "updated")
	d.MediaChanged("org-1", "m-1", "updated")
	d.Wait()

	assert.Empty(t, store.stored())
}

func TestFireAndForgetEventuallyWrites(t *testing.T) {
	store := &fakeStore{schedules: map[string][]string{"sc-1": {"scr-a", "scr-b"}}}
	d := newTestDispatcher(store)

	d.ScheduleChanged(model.Schedule{ID: "sc-1"}, "created")
	d.ScreenUpdated("scr-c", "paired")
	d.Wait()

	assert.Len(t, store.stored(), 3)
}
