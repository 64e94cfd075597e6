// Package memory provides an in-memory publisher for tests.
package memory

import (
	"context"
	"strconv"
	"sync"
)

// Message is a recorded publish call.
type Message struct {
	Topic   string
	Payload any
}

// Publisher records published messages instead of sending them anywhere.
type Publisher struct {
	mu       sync.Mutex
	messages []Message
}

// New creates an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the message and returns a synthetic message ID.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{Topic: topic, Payload: payload})
	return "mem-" + strconv.Itoa(len(p.messages)), nil
}

// Messages returns a copy of the recorded messages.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// Close is a no-op.
func (p *Publisher) Close() error { return nil }
