// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package limitedset

import (
	"sync"
)

// LimitedSet - a set that remembers only the most recent n items
type LimitedSet[T comparable] struct {
	sync.Mutex
	items []T
	next  int
	full  bool
	hash  map[T]struct{}
}

// New - create a new limited set that holds up to 'n' items
func New[T comparable](n int) *LimitedSet[T] {
	if n < 1 {
		n = 1
	}
	return &LimitedSet[T]{
		items: make([]T, n),
		hash:  make(map[T]struct{}, n),
	}
}

// Add - add an item to the set, evicting the oldest item when full
//
// returns false if the item was already present
func (ls *LimitedSet[T]) Add(item T) bool {
	ls.Lock()
	defer ls.Unlock()

	if _, ok := ls.hash[item]; ok {
		return false
	}
	if ls.full {
		delete(ls.hash, ls.items[ls.next])
	}
	ls.items[ls.next] = item
	ls.hash[item] = struct{}{}
	ls.next += 1
	if ls.next == len(ls.items) {
		ls.next = 0
		ls.full = true
	}
	return true
}

// Exists - check to see if an item is in the set
func (ls *LimitedSet[T]) Exists(item T) bool {
	ls.Lock()
	defer ls.Unlock()
	_, ok := ls.hash[item]
	return ok
}

// Len - number of items currently held
func (ls *LimitedSet[T]) Len() int {
	ls.Lock()
	defer ls.Unlock()
	return len(ls.hash)
}
