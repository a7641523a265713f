// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package events provides the in-process publish/subscribe bus that connects
// the watch-mode components.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is the base interface for all events in the system.
type Event interface {
	// EventType returns a dot-notation identifier like "template.changed".
	EventType() string

	// Timestamp returns when this event occurred.
	Timestamp() time.Time
}

// EventBus fans published events out to every subscriber.
//
// Events published before Start are buffered and replayed by Start, so
// components may publish during construction without losing events.
// EventBus is safe for concurrent use.
type EventBus struct {
	subscribers []chan Event
	mu          sync.RWMutex

	started        bool
	startMu        sync.Mutex
	preStartBuffer []Event

	dropped atomic.Uint64
}

// NewEventBus creates a new EventBus. capacity sizes the pre-start buffer.
func NewEventBus(capacity int) *EventBus {
	return &EventBus{
		subscribers:    make([]chan Event, 0),
		preStartBuffer: make([]Event, 0, capacity),
	}
}

// Publish sends an event to all subscribers without blocking. A subscriber
// whose channel is full misses the event.
//
// It returns the number of subscribers that received the event, or 0 when the
// event was buffered because Start has not run yet.
func (b *EventBus) Publish(event Event) int {
	b.startMu.Lock()
	if !b.started {
		b.preStartBuffer = append(b.preStartBuffer, event)
		b.startMu.Unlock()
		return 0
	}
	b.startMu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.deliver(b.subscribers, event)
}

// Subscribe returns a channel receiving every event published from now on.
// The channel is never closed; stop reading to unsubscribe.
func (b *EventBus) Subscribe(bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Start replays buffered events in order and switches to direct delivery.
// Call it once every component has subscribed. It is idempotent.
//
// Example:
//
//	bus := events.NewEventBus(100)
//	analyzer := workbench.NewAnalyzer(bus, svc, logger)
//	cache := workbench.NewStateCache(bus, 100)
//	bus.Start()
func (b *EventBus) Start() {
	b.startMu.Lock()
	defer b.startMu.Unlock()

	if b.started {
		return
	}
	b.started = true

	if len(b.preStartBuffer) == 0 {
		return
	}

	b.mu.RLock()
	subscribers := b.subscribers
	b.mu.RUnlock()

	for _, event := range b.preStartBuffer {
		b.deliver(subscribers, event)
	}
	b.preStartBuffer = nil
}

// Dropped returns how many deliveries were skipped because a subscriber
// channel was full.
func (b *EventBus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *EventBus) deliver(subscribers []chan Event, event Event) int {
	sent := 0
	for _, ch := range subscribers {
		select {
		case ch <- event:
			sent++
		default:
			b.dropped.Add(1)
		}
	}
	return sent
}
