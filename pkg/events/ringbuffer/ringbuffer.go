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

// Package ringbuffer provides a thread-safe generic ring buffer.
//
// The workbench keeps its analysis history in one:
//
//	history := ringbuffer.New[workbench.HistoryEntry](100)
//	history.Add(entry)
//	recent := history.GetLast(10)
package ringbuffer

import "sync"

// RingBuffer holds the most recent items up to a fixed capacity. Adding to a
// full buffer overwrites the oldest item.
type RingBuffer[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int // next write position
	count int
	total uint64
}

// New creates a ring buffer holding up to size items. A size below 1 is
// treated as 1.
func New[T any](size int) *RingBuffer[T] {
	if size < 1 {
		size = 1
	}
	return &RingBuffer[T]{items: make([]T, size)}
}

// Add inserts an item, overwriting the oldest one when full.
func (rb *RingBuffer[T]) Add(item T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.items[rb.head] = item
	rb.head = (rb.head + 1) % len(rb.items)
	if rb.count < len(rb.items) {
		rb.count++
	}
	rb.total++
}

// GetLast returns up to n of the newest items, oldest first.
func (rb *RingBuffer[T]) GetLast(n int) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	return rb.last(n)
}

// GetAll returns every item, oldest first.
func (rb *RingBuffer[T]) GetAll() []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	return rb.last(rb.count)
}

// Latest returns the newest item.
func (rb *RingBuffer[T]) Latest() (T, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		var zero T
		return zero, false
	}
	return rb.items[(rb.head-1+len(rb.items))%len(rb.items)], true
}

// Filter returns the items for which keep reports true, oldest first.
func (rb *RingBuffer[T]) Filter(keep func(T) bool) []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	result := []T{}
	for _, item := range rb.last(rb.count) {
		if keep(item) {
			result = append(result, item)
		}
	}
	return result
}

// Len returns the number of items currently stored.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Cap returns the capacity.
func (rb *RingBuffer[T]) Cap() int {
	return len(rb.items)
}

// Total returns how many items were ever added, including overwritten ones.
func (rb *RingBuffer[T]) Total() uint64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.total
}

// Clear removes all items. Total is kept.
func (rb *RingBuffer[T]) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	clear(rb.items)
	rb.head = 0
	rb.count = 0
}

func (rb *RingBuffer[T]) last(n int) []T {
	n = min(n, rb.count)
	if n <= 0 {
		return []T{}
	}

	size := len(rb.items)
	start := (rb.head - n + size) % size
	result := make([]T, n)
	for i := range n {
		result[i] = rb.items[(start+i)%size]
	}
	return result
}
