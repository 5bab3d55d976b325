// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package counter

import (
	"sync/atomic"
)

// Counter - a statistic or sequence number that can be updated concurrently
//
// the zero value is ready for use
type Counter struct {
	v atomic.Uint64
}

// Increment - add 1 to a counter, returns new value
func (c *Counter) Increment() uint64 {
	return c.v.Add(1)
}

// Add - add n to a counter, returns new value
func (c *Counter) Add(n uint64) uint64 {
	return c.v.Add(n)
}

// Uint64 - returns current value
func (c *Counter) Uint64() uint64 {
	return c.v.Load()
}

// IsZero - check if zero
func (c *Counter) IsZero() bool {
	return 0 == c.v.Load()
}

// Advance - raise the counter to at least n, used when replaying
// a sequence that was persisted elsewhere
func (c *Counter) Advance(n uint64) {
	for {
		current := c.v.Load()
		if current >= n || c.v.CompareAndSwap(current, n) {
			return
		}
	}
}
