// Package memory keeps the bounded conversation transcript that gives the
// synthesis step continuity across queries.
package memory

import (
	"strings"
	"sync"
	"time"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 10

// Roles recorded by the orchestrator.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Memory is a bounded FIFO of messages. Once full, adding a message evicts
// the oldest one.
type Memory struct {
	mu       sync.Mutex
	capacity int
	messages []Message
	now      func() time.Time
}

// New returns an empty memory holding at most capacity messages.
func New(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		capacity: capacity,
		messages: make([]Message, 0, capacity),
		now:      time.Now,
	}
}

// Capacity returns the maximum number of retained messages.
func (m *Memory) Capacity() int {
	return m.capacity
}

// Add appends a message, evicting the oldest when over capacity.
func (m *Memory) Add(role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, Message{Role: role, Content: content, Timestamp: m.now()})
	if over := len(m.messages) - m.capacity; over > 0 {
		m.messages = append(m.messages[:0], m.messages[over:]...)
	}
}

// Messages returns a copy of the retained messages, oldest first.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Len returns the number of retained messages.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Clear drops every message.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = m.messages[:0]
}

// ContextString renders the transcript as "ROLE: content" blocks separated
// by blank lines.
func (m *Memory) ContextString() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := make([]string, len(m.messages))
	for i, msg := range m.messages {
		parts[i] = strings.ToUpper(msg.Role) + ": " + msg.Content
	}
	return strings.Join(parts, "\n\n")
}
