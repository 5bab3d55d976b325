// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus

import (
	"sync"
)

// DefaultQueueSize - capacity used when zero is requested
const DefaultQueueSize = 1000

// Message - an item tagged with the component that sent it
type Message struct {
	From string
	Item interface{}
}

// Queue - a bounded FIFO with a single reader
type Queue struct {
	sync.RWMutex
	queue  chan Message
	closed bool
}

// NewQueue - create a queue of the given capacity
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		queue: make(chan Message, size),
	}
}

// Send - queue an item, blocks while the queue is full
//
// returns false if the queue was closed
func (q *Queue) Send(from string, item interface{}) bool {
	q.RLock()
	defer q.RUnlock()

	if q.closed {
		return false
	}
	q.queue <- Message{
		From: from,
		Item: item,
	}
	return true
}

// Chan - channel to read from
func (q *Queue) Chan() <-chan Message {
	return q.queue
}

// Len - number of items waiting
func (q *Queue) Len() int {
	return len(q.queue)
}

// Close - stop accepting items, the reader drains the remainder
func (q *Queue) Close() {
	q.Lock()
	defer q.Unlock()

	if !q.closed {
		q.closed = true
		close(q.queue)
	}
}
