// Package notify tells player devices that something they display changed.
// Notifications are written as rows the device polls, then pushed to every
// configured Publisher. Failures are logged and never reach the caller.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/metrics"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

const (
	PriorityScreenUpdate   = 1
	PriorityScheduleChange = 2
	PriorityContentChange  = 3
)

const dispatchTimeout = 15 * time.Second

// Store is the slice of the data layer the dispatcher needs.
type Store interface {
	CreateDeviceNotifications(notifications []model.DeviceNotification) ([]model.DeviceNotification, error)
	ScreenIDsForPlaylist(playlistID string) ([]string, error)
	ScreenIDsForMedia(mediaID string) ([]string, error)
	ScreenIDsForSchedule(s model.Schedule) ([]string, error)
}

// Publisher pushes a stored notification to devices over some transport.
type Publisher interface {
	Publish(ctx context.Context, n model.DeviceNotification) error
}

// Event describes one change and how to find the screens it affects.
type Event struct {
	Type      string
	Title     string
	Message   string
	Priority  int
	Action    string
	EntityKey string
	EntityID  string
	// ScreenIDs, when set, skips target lookup.
	ScreenIDs []string

	targets func(Store) ([]string, error)
}

func PlaylistEvent(playlistID, action string, screenIDs ...string) Event {
	return Event{
		Type:      model.NotificationPlaylistChange,
		Title:     "Playlist updated",
		Message:   fmt.Sprintf("Playlist content changed (%s)", action),
		Priority:  PriorityContentChange,
		Action:    action,
		EntityKey: "playlist_id",
		EntityID:  playlistID,
		ScreenIDs: screenIDs,
		targets: func(s Store) ([]string, error) {
			return s.ScreenIDsForPlaylist(playlistID)
		},
	}
}

func ScheduleEvent(sc model.Schedule, action string) Event {
	return Event{
		Type:      model.NotificationScheduleChange,
		Title:     "Schedule updated",
		Message:   fmt.Sprintf("Schedule %q changed (%s)", sc.Name, action),
		Priority:  PriorityScheduleChange,
		Action:    action,
		EntityKey: "schedule_id",
		EntityID:  sc.ID,
		targets: func(s Store) ([]string, error) {
			return s.ScreenIDsForSchedule(sc)
		},
	}
}

func MediaEvent(mediaID, action string) Event {
	return Event{
		Type:      model.NotificationMediaChange,
		Title:     "Media updated",
		Message:   fmt.Sprintf("Media used by this screen changed (%s)", action),
		Priority:  PriorityContentChange,
		Action:    action,
		EntityKey: "media_id",
		EntityID:  mediaID,
		targets: func(s Store) ([]string, error) {
			return s.ScreenIDsForMedia(mediaID)
		},
	}
}

func ScreenEvent(screenID, action string) Event {
	return Event{
		Type:      model.NotificationScreenUpdate,
		Title:     "Screen updated",
		Message:   fmt.Sprintf("Screen settings changed (%s)", action),
		Priority:  PriorityScreenUpdate,
		Action:    action,
		EntityKey: "screen_id",
		EntityID:  screenID,
		ScreenIDs: []string{screenID},
	}
}

type Dispatcher struct {
	store      Store
	publishers []Publisher
	now        func() time.Time
	wg         sync.WaitGroup
}

func NewDispatcher(store Store, publishers ...Publisher) *Dispatcher {
	return &Dispatcher{store: store, publishers: publishers, now: time.Now}
}

func (d *Dispatcher) PlaylistChanged(orgID, playlistID, action string, screenIDs ...string) {
	log.Debug().Str("organization_id", orgID).Str("playlist_id", playlistID).Str("action", action).
		Msg("playlist change queued")
	d.fire(PlaylistEvent(playlistID, action, screenIDs...))
}

func (d *Dispatcher) ScheduleChanged(sc model.Schedule, action string) {
	d.fire(ScheduleEvent(sc, action))
}

func (d *Dispatcher) MediaChanged(orgID, mediaID, action string) {
	log.Debug().Str("organization_id", orgID).Str("media_id", mediaID).Str("action", action).
		Msg("media change queued")
	d.fire(MediaEvent(mediaID, action))
}

func (d *Dispatcher) ScreenUpdated(screenID, action string) {
	d.fire(ScreenEvent(screenID, action))
}

// Wait blocks until every dispatch started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) fire(e Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("type", e.Type).Str("entity_id", e.EntityID).
					Msg("notification dispatch panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := d.Dispatch(ctx, e); err != nil {
			log.Warn().Err(err).Str("type", e.Type).Str("entity_id", e.EntityID).
				Msg("device notification dispatch incomplete")
		}
	}()
}

// Dispatch runs an event synchronously and reports what went wrong. Rows that
// were stored are still published when later steps fail.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) error {
	screenIDs := e.ScreenIDs
	if len(screenIDs) == 0 && e.targets != nil {
		ids, err := e.targets(d.store)
		if err != nil {
			metrics.DispatchFailures.WithLabelValues("resolve").Inc()
			return fmt.Errorf("resolve %s targets: %w", e.Type, err)
		}
		screenIDs = ids
	}
	if len(screenIDs) == 0 {
		log.Debug().Str("type", e.Type).Str("entity_id", e.EntityID).Msg("no screens affected")
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"action":    e.Action,
		e.EntityKey: e.EntityID,
		"timestamp": d.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	message := e.Message
	rows := make([]model.DeviceNotification, 0, len(screenIDs))
	for _, id := range dedupe(screenIDs) {
		rows = append(rows, model.DeviceNotification{
			ScreenID:         id,
			NotificationType: e.Type,
			Title:            e.Title,
			Message:          &message,
			Payload:          payload,
			Priority:         e.Priority,
		})
	}

	var errs []error
	stored, err := d.store.CreateDeviceNotifications(rows)
	if err != nil {
		metrics.DispatchFailures.WithLabelValues("store").Inc()
		errs = append(errs, err)
	}
	metrics.NotificationsDispatched.WithLabelValues(e.Type).Add(float64(len(stored)))

	for _, n := range stored {
		for _, p := range d.publishers {
			if err := p.Publish(ctx, n); err != nil {
				metrics.DispatchFailures.WithLabelValues("publish").Inc()
				log.Warn().Err(err).Str("screen_id", n.ScreenID).Str("notification_id", n.ID).
					Msg("failed to publish device notification")
				errs = append(errs, err)
			}
		}
	}

	log.Info().Str("type", e.Type).Str("entity_id", e.EntityID).Str("action", e.Action).
		Int("screens", len(rows)).Int("stored", len(stored)).Msg("device notifications dispatched")
	return errors.Join(errs...)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
