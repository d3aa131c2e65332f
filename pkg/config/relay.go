package config

import (
	"fmt"
	"os"
	"sync"
)

const (
	// SectionIDRelay is the identifier for the notification relay section
	SectionIDRelay = "relay"

	// RedisAddrEnv overrides the configured Redis address when set.
	RedisAddrEnv = "ENVWARN_REDIS_ADDR"

	defaultRelayChannel = "envwarn:relay"
)

// RelaySection configures cross-process notification delivery.
// An empty RedisAddr keeps notifications in-process.
type RelaySection struct {
	RedisAddr string `json:"redis_addr"`
	Channel   string `json:"channel"`
	mu        sync.RWMutex
}

// NewRelaySection creates a new relay section with default settings.
func NewRelaySection() *RelaySection {
	return &RelaySection{Channel: defaultRelayChannel}
}

// ID returns the section identifier.
func (s *RelaySection) ID() string {
	return SectionIDRelay
}

// Title returns the section title.
func (s *RelaySection) Title() string {
	return "Notification Relay"
}

// Description returns the section description.
func (s *RelaySection) Description() string {
	return "Optional Redis pub/sub bridge so pattern changes and detections reach other envwarn processes."
}

// Data returns the current configuration data.
func (s *RelaySection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"redis_addr": s.RedisAddr,
		"channel":    s.Channel,
	}
}

// SetData updates the configuration from the provided data.
func (s *RelaySection) SetData(data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		if key != "redis_addr" && key != "channel" {
			// Ignore unknown keys for forward compatibility
			continue
		}
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("invalid value type for %s: expected string, got %T", key, value)
		}
		if key == "redis_addr" {
			s.RedisAddr = str
		} else {
			s.Channel = str
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *RelaySection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.RedisAddr != "" && s.Channel == "" {
		return fmt.Errorf("channel is required when redis_addr is set")
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *RelaySection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RedisAddr = ""
	s.Channel = defaultRelayChannel
}

// Resolve returns the Redis address and channel to use.
// Precedence: explicit flag > environment variable > config file.
func (s *RelaySection) Resolve(flagAddr string) (addr, channel string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	addr = flagAddr
	if addr == "" {
		addr = os.Getenv(RedisAddrEnv)
	}
	if addr == "" {
		addr = s.RedisAddr
	}

	channel = s.Channel
	if channel == "" {
		channel = defaultRelayChannel
	}
	return addr, channel
}
