package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/ritzau/wordgraph/pkg/logging"
)

// ErrClosed is returned when publishing to or subscribing on a closed publisher.
var ErrClosed = errors.New("publisher is closed")

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // Number of events to buffer (0 = no buffering)
	ReplayAll  bool // If true, replay all buffered events; if false, only replay last event

	// Lossless makes Publish wait for subscribers with a full channel
	// instead of dropping the event. Events of a lossless topic must be
	// published from one goroutine at a time to keep their order.
	Lossless bool
}

// subscriptionBuffer is the capacity of each subscriber's channel.
const subscriptionBuffer = 256

// SSEPublisher implements Publisher using Server-Sent Events
type SSEPublisher struct {
	mu            sync.Mutex
	subscriptions map[string]map[*sseSubscription]bool // topic -> set of subscriptions
	version       map[string]int                       // topic -> version counter
	eventBuffer   map[string][]Event                   // topic -> ring buffer of events
	topicConfig   map[string]TopicConfig               // topic -> configuration
	closed        bool
}

// NewSSEPublisher creates a new SSE-based publisher
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{
		subscriptions: make(map[string]map[*sseSubscription]bool),
		version:       make(map[string]int),
		eventBuffer:   make(map[string][]Event),
		topicConfig:   make(map[string]TopicConfig),
	}
}

// ConfigureTopic sets buffering configuration for a topic
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topicConfig[topic] = config
}

// ResetTopic drops the buffered events of a topic so new subscribers only
// see what is published afterwards.
func (p *SSEPublisher) ResetTopic(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.eventBuffer, topic)
}

// Subscribe creates a new subscription to a topic
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}

	replay := p.eventBuffer[topic]
	if !p.topicConfig[topic].ReplayAll && len(replay) > 0 {
		replay = replay[len(replay)-1:]
	}

	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, subscriptionBuffer+len(replay)),
		done:      make(chan struct{}),
		publisher: p,
	}

	if p.subscriptions[topic] == nil {
		p.subscriptions[topic] = make(map[*sseSubscription]bool)
	}
	p.subscriptions[topic][sub] = true

	// Replay under the lock so a concurrent Publish cannot overtake it
	for _, event := range replay {
		p.deliver(sub, event)
	}
	if len(replay) > 0 {
		logging.Debug("replayed events to new subscriber", "topic", topic, "count", len(replay))
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Publish sends an event to all subscribers of a topic
func (p *SSEPublisher) Publish(topic string, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}

	p.version[topic]++
	event := Event{
		Topic:   topic,
		Type:    eventType,
		Data:    jsonData,
		Version: p.version[topic],
	}

	config := p.topicConfig[topic]
	if config.BufferSize > 0 {
		buffer := append(p.eventBuffer[topic], event)
		// Keep the most recent events
		if len(buffer) > config.BufferSize {
			buffer = buffer[len(buffer)-config.BufferSize:]
		}
		p.eventBuffer[topic] = buffer
	}

	if !config.Lossless {
		for sub := range p.subscriptions[topic] {
			p.deliver(sub, event)
		}
		p.mu.Unlock()
		return nil
	}

	subs := make([]*sseSubscription, 0, len(p.subscriptions[topic]))
	for sub := range p.subscriptions[topic] {
		subs = append(subs, sub)
	}
	p.mu.Unlock()

	// Blocking sends happen outside the lock
	for _, sub := range subs {
		sub.send(event)
	}
	return nil
}

// deliver sends without blocking. Must be called with p.mu held.
func (p *SSEPublisher) deliver(sub *sseSubscription, event Event) {
	if sub.closed {
		return
	}
	select {
	case sub.events <- event:
	default:
		logging.Warn("subscription channel full, dropping event", "topic", event.Topic, "version", event.Version)
	}
}

// Close shuts down the publisher and all subscriptions
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	var all []*sseSubscription
	for _, subs := range p.subscriptions {
		for sub := range subs {
			p.closeEvents(sub)
			all = append(all, sub)
		}
	}
	p.subscriptions = make(map[string]map[*sseSubscription]bool)
	p.mu.Unlock()

	// Stops the context watchers
	for _, sub := range all {
		sub.Close()
	}
	return nil
}

// unsubscribe removes a subscription and closes its channel.
func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if subs := p.subscriptions[sub.topic]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(p.subscriptions, sub.topic)
		}
	}
	p.closeEvents(sub)
}

// closeEvents must be called with p.mu held. A pending send is released
// through done before the channel is closed.
func (p *SSEPublisher) closeEvents(sub *sseSubscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	sub.stop()

	sub.sendMu.Lock()
	close(sub.events)
	sub.sendMu.Unlock()
}

// sseSubscription implements Subscription
type sseSubscription struct {
	topic     string
	events    chan Event
	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	sendMu    sync.Mutex // held by a blocking send; events is closed under it
	publisher *SSEPublisher
	closed    bool // guarded by publisher.mu
}

func (s *sseSubscription) stop() {
	s.doneOnce.Do(func() { close(s.done) })
}

// send queues event, waiting for room until the subscription closes.
func (s *sseSubscription) send(event Event) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.events <- event:
	case <-s.done:
	}
}

// Topic returns the subscription topic
func (s *sseSubscription) Topic() string {
	return s.topic
}

// Events returns a channel for receiving events
func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close closes the subscription
func (s *sseSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.stop()
		s.publisher.unsubscribe(s)
	})
	return nil
}

// WriteSSE writes an event to an SSE response writer
// Format: "data: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "data: %s\n\n", jsonData)
	return err
}

// ServeSSE streams a topic to an HTTP client until the request context
// ends or the publisher is closed.
func ServeSSE(w http.ResponseWriter, r *http.Request, p Publisher, topic string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	sub, err := p.Subscribe(r.Context(), topic)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	flusher, _ := w.(http.Flusher)

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	if flusher != nil {
		flusher.Flush()
	}

	for event := range sub.Events() {
		if err := WriteSSE(w, event); err != nil {
			logging.WarnContext(r.Context(), "error writing SSE event", "topic", topic, "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
