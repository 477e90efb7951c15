package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by the word graph server.
const (
	TopicGraphStatus = "graph_status" // load and reload progress
	TopicWalk        = "walk"         // steps and outcome of the active walk
)

// Event types on TopicWalk.
const (
	WalkStarted  = "started"
	WalkStep     = "step"
	WalkFinished = "finished"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "graph_status", "walk")
	Type    string          `json:"type"`    // Event type (e.g., "loading", "ready", "step")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events. It is closed when the
	// subscription or the publisher is closed.
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// GraphStatus reports the state of the loaded text source.
type GraphStatus struct {
	State   string `json:"state"`   // loading, ready, error
	Message string `json:"message"` // Human-readable status message
	Source  string `json:"source"`
	Version int64  `json:"version"` // Incremented on every successful load
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
}

// WalkStepData carries one visited word.
type WalkStepData struct {
	RunID string `json:"run_id"`
	Index int    `json:"index"`
	Word  string `json:"word"`
}

// WalkFinishedData carries the outcome of a walk.
type WalkFinishedData struct {
	RunID     string   `json:"run_id"`
	Status    string   `json:"status"`
	Completed bool     `json:"completed"`
	Visited   []string `json:"visited"`
}
