// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package counter_test

import (
	"sync"
	"testing"

	"github.com/bitmark-inc/bitstable/counter"
)

// test incrementing a counter
func TestCounter(t *testing.T) {

	var c1 counter.Counter

	if !c1.IsZero() {
		t.Errorf("counter is not zero at start: %d", c1.Uint64())
	}

	c1.Increment()
	c1.Increment()
	c1.Increment()

	if 3 != c1.Uint64() {
		t.Errorf("counter is not 3 after incrementing: %d", c1.Uint64())
	}

	if n := c1.Add(7); 10 != n {
		t.Errorf("counter is not 10 after add: %d", n)
	}
}

func TestAdvance(t *testing.T) {

	var c counter.Counter

	c.Advance(42)
	if 42 != c.Uint64() {
		t.Errorf("advance: actual: %d  expected: 42", c.Uint64())
	}

	// never moves backwards
	c.Advance(7)
	if 42 != c.Uint64() {
		t.Errorf("advance moved backwards: %d", c.Uint64())
	}

	if n := c.Increment(); 43 != n {
		t.Errorf("increment after advance: actual: %d  expected: 43", n)
	}
}

func TestConcurrent(t *testing.T) {

	var c counter.Counter
	var wg sync.WaitGroup

	for i := 0; i < 8; i += 1 {
		wg.Add(1)
		go func() {
			for j := 0; j < 1000; j += 1 {
				c.Increment()
			}
			wg.Done()
		}()
	}
	wg.Wait()

	if 8000 != c.Uint64() {
		t.Errorf("concurrent: actual: %d  expected: 8000", c.Uint64())
	}
}
