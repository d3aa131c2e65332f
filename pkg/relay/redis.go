package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/envwarn/pkg/logging"
	"github.com/go-redis/redis/v8"
)

// Bridge connects a Bus to a Redis pub/sub channel so notifications reach
// envwarn processes on other terminals or machines.
//
// Only messages originated on the local bus are forwarded, and messages
// that come back with the local origin are ignored. Redis failures are
// logged; they never reach publishers.
type Bridge struct {
	bus     *Bus
	client  *redis.Client
	channel string
	logger  *logging.Logger
}

// NewBridge creates a bridge for bus on channel.
func NewBridge(bus *Bus, client *redis.Client, channel string, logger *logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Bridge{
		bus:     bus,
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// NewRedisClient creates a client for addr.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// Run forwards messages in both directions until ctx is done.
func (br *Bridge) Run(ctx context.Context) error {
	pubsub := br.client.Subscribe(ctx, br.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before relaying.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", br.channel, err)
	}

	local := br.bus.Subscribe()
	defer local.Close()

	remote := pubsub.Channel()
	br.logger.Infof("relay bridge active on channel %s", br.channel)

	for {
		select {
		case <-ctx.Done():
			return nil

		case msg, ok := <-local.C():
			if !ok {
				return nil
			}
			if msg.Origin != br.bus.ID() {
				continue
			}
			payload, err := encodeMessage(msg)
			if err != nil {
				br.logger.Warnf("failed to encode %s: %v", msg.Action, err)
				continue
			}
			if err := br.client.Publish(ctx, br.channel, payload).Err(); err != nil {
				br.logger.Warnf("failed to publish %s: %v", msg.Action, err)
			}

		case rm, ok := <-remote:
			if !ok {
				return nil
			}
			msg, ok := decodeMessage(rm.Payload, br.bus.ID())
			if !ok {
				continue
			}
			br.bus.Inject(msg)
		}
	}
}

func encodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// decodeMessage parses a remote payload. It rejects malformed payloads and
// messages that originated on the bus identified by self.
func decodeMessage(payload string, self string) (Message, bool) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return Message{}, false
	}
	if msg.Action == "" || msg.Origin == "" || msg.Origin == self {
		return Message{}, false
	}
	return msg, true
}
