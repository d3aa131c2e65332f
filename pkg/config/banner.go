package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDBanner is the identifier for the banner settings section
	SectionIDBanner = "banner"

	// BannerPositionTop places the banner at the top of the page
	BannerPositionTop = "top"
	// BannerPositionBottom places the banner at the bottom of the page
	BannerPositionBottom = "bottom"

	defaultBannerPosition = BannerPositionTop
	defaultBannerHeight   = 25
	defaultPollInterval   = 500 * time.Millisecond
)

var defaultObservedURLs = []string{"http://*", "https://*"}

// BannerSection manages banner layout and page observation settings.
type BannerSection struct {
	Position     string        `json:"position"`
	Height       int           `json:"height"`
	PollInterval time.Duration `json:"poll_interval"`
	ObservedURLs []string      `json:"observed_urls"`
	mu           sync.RWMutex
}

// NewBannerSection creates a new banner section with default settings.
func NewBannerSection() *BannerSection {
	return &BannerSection{
		Position:     defaultBannerPosition,
		Height:       defaultBannerHeight,
		PollInterval: defaultPollInterval,
		ObservedURLs: append([]string(nil), defaultObservedURLs...),
	}
}

// ID returns the section identifier.
func (s *BannerSection) ID() string {
	return SectionIDBanner
}

// Title returns the section title.
func (s *BannerSection) Title() string {
	return "Banner Settings"
}

// Description returns the section description.
func (s *BannerSection) Description() string {
	return "Configure where the warning banner is drawn, how often pages are checked for in-page navigation, and which URLs are observed."
}

// Data returns the current configuration data.
func (s *BannerSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	observed := make([]interface{}, 0, len(s.ObservedURLs))
	for _, u := range s.ObservedURLs {
		observed = append(observed, u)
	}

	return map[string]interface{}{
		"position":      s.Position,
		"height":        s.Height,
		"poll_interval": s.PollInterval.String(),
		"observed_urls": observed,
	}
}

// SetData updates the configuration from the provided data.
func (s *BannerSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "position":
			position, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid value type for position: expected string, got %T", value)
			}
			s.Position = position

		case "height":
			switch v := value.(type) {
			case float64:
				// JSON numbers come as float64
				s.Height = int(v)
			case int:
				s.Height = v
			default:
				return fmt.Errorf("invalid value type for height: expected number, got %T", value)
			}

		case "poll_interval":
			switch v := value.(type) {
			case string:
				interval, err := time.ParseDuration(v)
				if err != nil {
					return fmt.Errorf("invalid duration string for poll_interval: %w", err)
				}
				s.PollInterval = interval
			case float64:
				s.PollInterval = time.Duration(v)
			default:
				return fmt.Errorf("invalid value type for poll_interval: expected string or number, got %T", value)
			}

		case "observed_urls":
			observed, err := toStringSlice(value)
			if err != nil {
				return fmt.Errorf("invalid value for observed_urls: %w", err)
			}
			s.ObservedURLs = observed

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *BannerSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Position != BannerPositionTop && s.Position != BannerPositionBottom {
		return fmt.Errorf("position must be %q or %q, got %q", BannerPositionTop, BannerPositionBottom, s.Position)
	}
	if s.Height < 10 || s.Height > 200 {
		return fmt.Errorf("height must be between 10 and 200 pixels, got %d", s.Height)
	}
	if s.PollInterval < 50*time.Millisecond || s.PollInterval > 10*time.Second {
		return fmt.Errorf("poll_interval must be between 50ms and 10s, got %v", s.PollInterval)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BannerSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Position = defaultBannerPosition
	s.Height = defaultBannerHeight
	s.PollInterval = defaultPollInterval
	s.ObservedURLs = append([]string(nil), defaultObservedURLs...)
}

// Layout returns the banner position and height.
func (s *BannerSection) Layout() (string, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Position, s.Height
}

// GetPollInterval returns how often observed pages are checked for URL changes.
func (s *BannerSection) GetPollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.PollInterval
}

// GetObservedURLs returns the glob patterns of URLs that get a banner.
func (s *BannerSection) GetObservedURLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.ObservedURLs...)
}
