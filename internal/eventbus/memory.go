package eventbus

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/maestro-run/maestro/internal/platform/logger"
)

// MemoryBus implements Bus with synchronous, subscription-ordered delivery.
//
// The reference backend this package is grounded on (internal/events/bus in the
// kandev tree) dispatches each handler via `go func(){}()`, so Publish returns
// before any handler has run and handlers race each other. spec.md §4.1 requires
// emit to deliver to all subscribers, in subscription order, before returning,
// so Publish here walks the subscriber list in a plain loop instead.
type MemoryBus struct {
	mu            sync.RWMutex
	subscriptions map[string][]*subscription
	logger        *logger.Logger
	closed        bool
	nextSeq       uint64
}

type subscription struct {
	bus     *MemoryBus
	topic   string
	pattern *regexp.Regexp
	handler Handler
	seq     uint64
	mu      sync.Mutex
	active  bool
}

func (s *subscription) Unsubscribe() error {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	subs := s.bus.subscriptions[s.topic]
	for i, sub := range subs {
		if sub == s {
			s.bus.subscriptions[s.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	return nil
}

func (s *subscription) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// NewMemoryBus creates an empty in-memory event bus.
func NewMemoryBus(log *logger.Logger) *MemoryBus {
	return &MemoryBus{
		subscriptions: make(map[string][]*subscription),
		logger:        log,
	}
}

// Publish delivers event to every matching, currently-active subscription, in
// the order those subscriptions were registered, and returns only once every
// handler has run.
func (b *MemoryBus) Publish(ctx context.Context, topic string, event *Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("event bus is closed")
	}
	// Snapshot matching subscriptions under the lock, then run handlers
	// outside it so a handler calling Subscribe/Unsubscribe cannot deadlock.
	var matched []*subscription
	for pattern, subs := range b.subscriptions {
		if !matches(topic, pattern) {
			continue
		}
		matched = append(matched, subs...)
	}
	b.mu.RUnlock()
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	for _, sub := range matched {
		sub.mu.Lock()
		active := sub.active
		sub.mu.Unlock()
		if !active {
			continue
		}
		if err := sub.handler(ctx, event); err != nil {
			b.logger.Error("event handler error",
				zap.String("topic", topic),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}

	b.logger.Debug("published event",
		zap.String("topic", topic),
		zap.String("event_id", event.ID))
	return nil
}

// Subscribe registers handler against topic, preserving registration order so
// Publish can deliver in that same order.
func (b *MemoryBus) Subscribe(topic string, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("event bus is closed")
	}

	b.nextSeq++
	sub := &subscription{
		bus:     b,
		topic:   topic,
		pattern: compilePattern(topic),
		handler: handler,
		seq:     b.nextSeq,
		active:  true,
	}
	b.subscriptions[topic] = append(b.subscriptions[topic], sub)
	return sub, nil
}

// Close deactivates every subscription; further Publish/Subscribe calls fail.
func (b *MemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for _, subs := range b.subscriptions {
		for _, sub := range subs {
			sub.mu.Lock()
			sub.active = false
			sub.mu.Unlock()
		}
	}
	b.subscriptions = make(map[string][]*subscription)
}

func (b *MemoryBus) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.closed
}

// matches reports whether topic satisfies a subscription pattern, supporting
// NATS-style wildcards: `*` matches exactly one dot-delimited token, `>`
// matches one or more trailing tokens.
func matches(topic, pattern string) bool {
	if !strings.ContainsAny(pattern, "*>") {
		return topic == pattern
	}
	re := compilePattern(pattern)
	if re == nil {
		return false
	}
	return re.MatchString(topic)
}

func compilePattern(pattern string) *regexp.Regexp {
	if !strings.ContainsAny(pattern, "*>") {
		return nil
	}
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, `\*`, `[^.]+`)
	escaped = strings.ReplaceAll(escaped, `\>`, `.+`)
	escaped = "^" + escaped + "$"
	re, err := regexp.Compile(escaped)
	if err != nil {
		return nil
	}
	return re
}
