package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/envwarn/pkg/environment"
	"github.com/entrhq/envwarn/pkg/logging"
	"github.com/google/uuid"
)

// DefaultBuffer is the per-subscription queue length. Messages beyond it are
// dropped for that subscriber.
const DefaultBuffer = 16

// Handler answers a Request. It runs on its own goroutine, so it may take
// as long as the requester's context allows.
type Handler func(ctx context.Context, msg Message) (Response, error)

// Bus is an in-process relay. The zero value is not usable; use NewBus.
type Bus struct {
	id       string
	mu       sync.RWMutex
	subs     map[*Subscription]struct{}
	handlers map[Action]Handler
	logger   *logging.Logger
}

// NewBus creates a bus with a fresh origin id.
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Bus{
		id:       uuid.New().String(),
		subs:     make(map[*Subscription]struct{}),
		handlers: make(map[Action]Handler),
		logger:   logger,
	}
}

// ID returns the origin id stamped on messages published here.
func (b *Bus) ID() string {
	return b.id
}

// Subscription receives messages for a set of actions.
type Subscription struct {
	bus     *Bus
	ch      chan Message
	actions map[Action]bool
	once    sync.Once
}

// C returns the delivery channel. It is closed by Close.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Close stops delivery. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		close(s.ch)
	})
}

func (s *Subscription) wants(action Action) bool {
	return len(s.actions) == 0 || s.actions[action]
}

// Subscribe registers interest in actions. With no actions every message
// is delivered.
func (b *Bus) Subscribe(actions ...Action) *Subscription {
	sub := &Subscription{
		bus:     b,
		ch:      make(chan Message, DefaultBuffer),
		actions: make(map[Action]bool, len(actions)),
	}
	for _, a := range actions {
		sub.actions[a] = true
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish delivers msg to every interested subscriber without blocking.
// Messages without an origin are stamped with this bus's id.
func (b *Bus) Publish(msg Message) {
	if msg.Origin == "" {
		msg.Origin = b.id
	}
	b.deliver(msg)
}

// Inject delivers a message received from another process, keeping its
// origin so bridges do not send it back.
func (b *Bus) Inject(msg Message) {
	b.deliver(msg)
}

func (b *Bus) deliver(msg Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if !sub.wants(msg.Action) {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			b.logger.Debugf("subscriber queue full, dropping %s", msg.Action)
		}
	}
}

// Handle registers the responder for action, replacing any previous one.
func (b *Bus) Handle(action Action, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[action] = handler
}

// Request sends msg to the handler of its action and waits for the reply
// or for ctx to end. Without a handler it returns ErrUnavailable.
func (b *Bus) Request(ctx context.Context, msg Message) (Response, error) {
	if msg.Origin == "" {
		msg.Origin = b.id
	}

	b.mu.RLock()
	handler, ok := b.handlers[msg.Action]
	b.mu.RUnlock()
	if !ok {
		return Response{}, fmt.Errorf("%w: %s", ErrUnavailable, msg.Action)
	}

	type reply struct {
		resp Response
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		resp, err := handler(ctx, msg)
		if err != nil {
			resp = Response{Status: StatusError, Error: err.Error()}
		}
		done <- reply{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// NotifyPatternsChanged publishes a patternsChanged message.
func (b *Bus) NotifyPatternsChanged(ctx context.Context) {
	b.Publish(Message{Action: ActionPatternsChanged})
}

// NotifyEnvironmentDetected publishes an environmentDetected message.
func (b *Bus) NotifyEnvironmentDetected(ctx context.Context, env environment.Environment, contextID string) {
	b.Publish(Message{
		Action:      ActionEnvironmentDetected,
		Environment: env,
		ContextID:   contextID,
	})
}
