// Package polling computes how often players should ask for new content.
package polling

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

//go:embed default.yaml
var defaultConfig []byte

const maxConfigFileSize = 1024 * 1024

type Window struct {
	Name            string `koanf:"name"             json:"name"`
	Start           string `koanf:"start"            json:"start"`
	End             string `koanf:"end"              json:"end"`
	IntervalSeconds int    `koanf:"interval_seconds" json:"interval_seconds"`
	// Days uses 0 = Sunday. Empty means every day.
	Days []int `koanf:"days" json:"days,omitempty"`
}

type Config struct {
	Timezone               string   `koanf:"timezone"                 json:"timezone"`
	DefaultIntervalSeconds int      `koanf:"default_interval_seconds" json:"default_interval_seconds"`
	Windows                []Window `koanf:"windows"                  json:"windows"`

	loc *time.Location
}

// Load reads the embedded defaults and, when path is set, overlays the YAML
// file found there.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultConfig), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load default polling config: %w", err)
	}

	if path != "" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("polling config %s: %w", path, err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("polling config %s is larger than %d bytes", path, maxConfigFileSize)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read polling config: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load polling config %s: %w", path, err)
		}
		log.Info().Str("path", path).Msg("polling config loaded")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal polling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DefaultIntervalSeconds <= 0 {
		return fmt.Errorf("default_interval_seconds must be positive")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.loc = loc

	for _, w := range c.Windows {
		if w.IntervalSeconds <= 0 {
			return fmt.Errorf("window %s: interval_seconds must be positive", w.Name)
		}
		start, err := minuteOfDay(w.Start)
		if err != nil {
			return fmt.Errorf("window %s: %w", w.Name, err)
		}
		end, err := minuteOfDay(w.End)
		if err != nil {
			return fmt.Errorf("window %s: %w", w.Name, err)
		}
		if end <= start {
			return fmt.Errorf("window %s: end %s must be after start %s", w.Name, w.End, w.Start)
		}
		for _, d := range w.Days {
			if d < 0 || d > 6 {
				return fmt.Errorf("window %s: day %d out of range", w.Name, d)
			}
		}
	}
	return nil
}

func minuteOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", hhmm)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func (w Window) minutes() int {
	start, _ := minuteOfDay(w.Start)
	end, _ := minuteOfDay(w.End)
	return end - start
}

func (w Window) appliesOn(day int) bool {
	if len(w.Days) == 0 {
		return true
	}
	for _, d := range w.Days {
		if d == day {
			return true
		}
	}
	return false
}

// IntervalAt returns the polling interval in effect at t and the name of the
// window that supplied it ("default" when none did). Windows include their
// start minute and exclude their end minute.
func (c *Config) IntervalAt(t time.Time) (int, string) {
	loc := c.loc
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	clock := local.Format("15:04")
	day := int(local.Weekday())

	for _, w := range c.Windows {
		if !w.appliesOn(day) {
			continue
		}
		if w.Start <= clock && clock < w.End {
			return w.IntervalSeconds, w.Name
		}
	}
	return c.DefaultIntervalSeconds, "default"
}

type WindowEstimate struct {
	Name            string `json:"name"`
	Minutes         int    `json:"minutes"`
	IntervalSeconds int    `json:"interval_seconds"`
	CallsPerScreen  int    `json:"calls_per_screen"`
}

type Estimate struct {
	Screens        int              `json:"screens"`
	Windows        []WindowEstimate `json:"windows"`
	CallsPerScreen int              `json:"calls_per_screen"`
	TotalCalls     int              `json:"total_calls"`
}

// EstimateDailyCalls projects the calls one screen and the whole fleet make
// on a day every window applies. Minutes not covered by a window poll at the
// default interval.
func (c *Config) EstimateDailyCalls(screens int) Estimate {
	est := Estimate{Screens: screens, Windows: make([]WindowEstimate, 0, len(c.Windows)+1)}
	covered := 0
	for _, w := range c.Windows {
		m := w.minutes()
		calls := m * 60 / w.IntervalSeconds
		covered += m
		est.Windows = append(est.Windows, WindowEstimate{
			Name: w.Name, Minutes: m, IntervalSeconds: w.IntervalSeconds, CallsPerScreen: calls,
		})
		est.CallsPerScreen += calls
	}

	rest := 24*60 - covered
	if rest < 0 {
		rest = 0
	}
	calls := rest * 60 / c.DefaultIntervalSeconds
	est.Windows = append(est.Windows, WindowEstimate{
		Name: "default", Minutes: rest, IntervalSeconds: c.DefaultIntervalSeconds, CallsPerScreen: calls,
	})
	est.CallsPerScreen += calls
	est.TotalCalls = est.CallsPerScreen * screens
	return est
}
