// Package notice holds transient user-visible messages, the console's toast equivalent.
package notice

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level classifies a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

const defaultCapacity = 32

// Notice is one transient message.
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Center queues notices until drained and fans them out to live subscribers.
type Center struct {
	capacity int

	mu      sync.Mutex
	pending []Notice
	clients map[chan Notice]struct{}
}

// NewCenter constructs a center keeping at most capacity undrained notices.
func NewCenter(capacity int) *Center {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Center{capacity: capacity, clients: make(map[chan Notice]struct{})}
}

// Push queues a notice and broadcasts it.
func (c *Center) Push(level Level, message string) Notice {
	n := Notice{ID: uuid.NewString(), Level: level, Message: message, CreatedAt: time.Now().UTC()}
	if c == nil {
		return n
	}
	c.mu.Lock()
	c.pending = append(c.pending, n)
	if over := len(c.pending) - c.capacity; over > 0 {
		c.pending = append([]Notice(nil), c.pending[over:]...)
	}
	for ch := range c.clients {
		select {
		case ch <- n:
		default:
		}
	}
	c.mu.Unlock()
	return n
}

// Success queues a success notice.
func (c *Center) Success(message string) Notice { return c.Push(LevelSuccess, message) }

// Error queues an error notice.
func (c *Center) Error(message string) Notice { return c.Push(LevelError, message) }

// Info queues an informational notice.
func (c *Center) Info(message string) Notice { return c.Push(LevelInfo, message) }

// Drain returns and forgets every queued notice, oldest first.
func (c *Center) Drain() []Notice {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}

// Subscribe registers a live channel.
func (c *Center) Subscribe() chan Notice {
	if c == nil {
		return nil
	}
	ch := make(chan Notice, 16)
	c.mu.Lock()
	c.clients[ch] = struct{}{}
	c.mu.Unlock()
	return ch
}

// Unsubscribe removes a live channel.
func (c *Center) Unsubscribe(ch chan Notice) {
	if c == nil || ch == nil {
		return
	}
	c.mu.Lock()
	delete(c.clients, ch)
	c.mu.Unlock()
	close(ch)
}
