package mapsurface

import (
	"encoding/json"
	"sync"
)

// Broker fans out encoded map frames to connected clients.
type Broker struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	last    []byte
}

// NewBroker constructs a broker.
func NewBroker() *Broker {
	return &Broker{clients: make(map[chan []byte]struct{})}
}

// Publish encodes and broadcasts a frame. The latest entities frame is replayed to new
// subscribers so a late client still gets markers.
func (b *Broker) Publish(frame Frame) error {
	if b == nil {
		return nil
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if frame.Type == FrameEntities {
		b.last = payload
	}
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a new client channel.
func (b *Broker) Subscribe() chan []byte {
	if b == nil {
		return nil
	}
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	if b.last != nil {
		ch <- b.last
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a client channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b == nil || ch == nil {
		return
	}
	b.mu.Lock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Close disconnects every client.
func (b *Broker) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	for ch := range b.clients {
		delete(b.clients, ch)
		close(ch)
	}
	b.mu.Unlock()
}
