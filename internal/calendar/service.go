package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/metrics"
	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

// RefreshWindow is how close to expiry a token must be to get refreshed.
const RefreshWindow = 10 * time.Minute

var (
	ErrNotCalendar  = errors.New("media asset is not a calendar")
	ErrNotConnected = errors.New("calendar is not connected")
)

type Store interface {
	ListCalendarMedia() ([]model.MediaAsset, error)
	UpdateCalendarMetadata(id string, metadata []byte) error
}

type EventSource interface {
	EventsBetween(ctx context.Context, accessToken, calendarID string, start, end time.Time) ([]Event, error)
}

type RefreshResult struct {
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
	Checked   int `json:"checked"`
}

type Service struct {
	store  Store
	tokens TokenRefresher
	events EventSource
	loc    *time.Location
	now    func() time.Time
}

// NewService builds the service; loc decides what "today" means for events.
func NewService(store Store, tokens TokenRefresher, events EventSource, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, tokens: tokens, events: events, loc: loc, now: time.Now}
}

func decodeMetadata(m model.MediaAsset) (model.CalendarMetadata, error) {
	var meta model.CalendarMetadata
	if m.MediaType != model.MediaCalendar {
		return meta, ErrNotCalendar
	}
	if len(m.CalendarMetadata) == 0 {
		return meta, ErrNotConnected
	}
	if err := json.Unmarshal(m.CalendarMetadata, &meta); err != nil {
		return meta, fmt.Errorf("decode calendar metadata: %w", err)
	}
	if meta.RefreshToken == "" && meta.AccessToken == "" {
		return meta, ErrNotConnected
	}
	return meta, nil
}

func (s *Service) expiresSoon(meta model.CalendarMetadata) bool {
	return meta.TokenExpiresAt.IsZero() || meta.TokenExpiresAt.Before(s.now().Add(RefreshWindow))
}

func (s *Service) refresh(ctx context.Context, id string, meta model.CalendarMetadata) (model.CalendarMetadata, error) {
	tok, err := s.tokens.Refresh(ctx, meta.RefreshToken)
	if err != nil {
		return meta, err
	}
	meta.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		meta.RefreshToken = tok.RefreshToken
	}
	meta.TokenExpiresAt = tok.Expiry.UTC()

	body, err := json.Marshal(meta)
	if err != nil {
		return meta, err
	}
	if err := s.store.UpdateCalendarMetadata(id, body); err != nil {
		return meta, err
	}
	return meta, nil
}

// RefreshExpiring refreshes every connected calendar whose token expires
// within RefreshWindow. Per-asset failures are counted, not returned.
func (s *Service) RefreshExpiring(ctx context.Context) (RefreshResult, error) {
	var res RefreshResult
	assets, err := s.store.ListCalendarMedia()
	if err != nil {
		return res, err
	}

	for _, a := range assets {
		meta, err := decodeMetadata(a)
		if err != nil || meta.RefreshToken == "" {
			continue
		}
		res.Checked++
		if !s.expiresSoon(meta) {
			continue
		}

		if _, err := s.refresh(ctx, a.ID, meta); err != nil {
			res.Failed++
			metrics.CalendarRefreshes.WithLabelValues("failed").Inc()
			log.Error().Err(err).Str("media_id", a.ID).Msg("failed to refresh calendar token")
			continue
		}
		res.Refreshed++
		metrics.CalendarRefreshes.WithLabelValues("refreshed").Inc()
	}

	log.Info().Int("checked", res.Checked).Int("refreshed", res.Refreshed).Int("failed", res.Failed).
		Msg("calendar token refresh finished")
	return res, nil
}

// TodayEvents lists today's events of a calendar asset, refreshing its token
// first when it is about to expire.
func (s *Service) TodayEvents(ctx context.Context, asset model.MediaAsset) ([]Event, error) {
	meta, err := decodeMetadata(asset)
	if err != nil {
		return nil, err
	}
	if s.expiresSoon(meta) && meta.RefreshToken != "" {
		if meta, err = s.refresh(ctx, asset.ID, meta); err != nil {
			return nil, fmt.Errorf("refresh before listing events: %w", err)
		}
	}

	local := s.now().In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return s.events.EventsBetween(ctx, meta.AccessToken, meta.CalendarID, start, start.AddDate(0, 0, 1))
}
