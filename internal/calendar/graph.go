package calendar

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const graphTimeLayout = "2006-01-02T15:04:05.9999999"

type Event struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Location  string    `json:"location,omitempty"`
	Organizer string    `json:"organizer,omitempty"`
	IsAllDay  bool      `json:"is_all_day"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEvent struct {
	ID       string        `json:"id"`
	Subject  string        `json:"subject"`
	Start    graphDateTime `json:"start"`
	End      graphDateTime `json:"end"`
	IsAllDay bool          `json:"isAllDay"`
	Location struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	Organizer struct {
		EmailAddress struct {
			Name string `json:"name"`
		} `json:"emailAddress"`
	} `json:"organizer"`
}

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GraphClient reads calendar views from Microsoft Graph.
type GraphClient struct {
	http *resty.Client
}

func NewGraphClient(baseURL string) *GraphClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("Prefer", `outlook.timezone="UTC"`)
	return &GraphClient{http: client}
}

// EventsBetween lists the events of calendarID (or the default calendar when
// empty) overlapping [start, end).
func (g *GraphClient) EventsBetween(ctx context.Context, accessToken, calendarID string, start, end time.Time) ([]Event, error) {
	path := "/me/calendarView"
	if calendarID != "" {
		path = "/me/calendars/" + url.PathEscape(calendarID) + "/calendarView"
	}

	var page struct {
		Value []graphEvent `json:"value"`
	}
	var apiErr graphError
	resp, err := g.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetQueryParams(map[string]string{
			"startDateTime": start.UTC().Format(time.RFC3339),
			"endDateTime":   end.UTC().Format(time.RFC3339),
			"$orderby":      "start/dateTime",
			"$top":          "100",
		}).
		SetResult(&page).
		SetError(&apiErr).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("graph calendarView: %w", err)
	}
	if resp.IsError() {
		log.Warn().Int("status", resp.StatusCode()).Str("code", apiErr.Error.Code).
			Msg("graph calendarView returned an error")
		return nil, fmt.Errorf("graph calendarView: %d %s", resp.StatusCode(), apiErr.Error.Message)
	}

	events := make([]Event, 0, len(page.Value))
	for _, ge := range page.Value {
		s, err := parseGraphTime(ge.Start)
		if err != nil {
			return nil, err
		}
		e, err := parseGraphTime(ge.End)
		if err != nil {
			return nil, err
		}
		events = append(events, Event{
			ID:        ge.ID,
			Subject:   ge.Subject,
			Start:     s,
			End:       e,
			Location:  ge.Location.DisplayName,
			Organizer: ge.Organizer.EmailAddress.Name,
			IsAllDay:  ge.IsAllDay,
		})
	}
	return events, nil
}

func parseGraphTime(dt graphDateTime) (time.Time, error) {
	loc := time.UTC
	if dt.TimeZone != "" && dt.TimeZone != "UTC" {
		l, err := time.LoadLocation(dt.TimeZone)
		if err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation(graphTimeLayout, dt.DateTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse graph time %q: %w", dt.DateTime, err)
	}
	return t.UTC(), nil
}
