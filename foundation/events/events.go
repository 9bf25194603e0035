// Package events fans out the event strings produced by the node to the
// websocket viewers registered with it.
package events

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// bufferSize is how far a viewer can fall behind before its events drop.
const bufferSize = 100

// Events maintains a mapping of viewer trace ids to the channels their
// websocket handlers drain.
type Events struct {
	mu      sync.RWMutex
	viewers map[string]chan string
	dropped atomic.Uint64
}

// New constructs an events value with no viewers.
func New() *Events {
	return &Events{
		viewers: make(map[string]chan string),
	}
}

// Acquire registers a viewer and returns the channel it receives events
// on. Acquiring an id twice returns the same channel.
func (evt *Events) Acquire(id string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.viewers[id]; exists {
		return ch
	}

	ch := make(chan string, bufferSize)
	evt.viewers[id] = ch

	return ch
}

// Release removes the viewer and closes its channel.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.viewers[id]
	if !exists {
		return fmt.Errorf("viewer %q is not registered", id)
	}

	delete(evt.viewers, id)
	close(ch)

	return nil
}

// Shutdown releases every viewer.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.viewers {
		delete(evt.viewers, id)
		close(ch)
	}
}

// Send hands the event to every viewer. Mining and block processing call
// Send, so it never blocks: a viewer with a full buffer misses the event.
func (evt *Events) Send(s string) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.viewers {
		select {
		case ch <- s:
		default:
			evt.dropped.Add(1)
		}
	}
}

// Viewers returns the number of registered viewers.
func (evt *Events) Viewers() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.viewers)
}

// Dropped returns the number of events viewers missed by falling behind.
func (evt *Events) Dropped() uint64 {
	return evt.dropped.Load()
}
