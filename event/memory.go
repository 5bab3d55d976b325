// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package event

import (
	"sync"

	"github.com/bitmark-inc/bitstable/fault"
)

// MemoryStore - non-durable store for tests and dry runs
type MemoryStore struct {
	sync.RWMutex
	records []Record
}

// NewMemoryStore - empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append - add records, sequence numbers must increase
func (m *MemoryStore) Append(records ...Record) error {
	m.Lock()
	defer m.Unlock()

	for _, r := range records {
		if n := len(m.records); n > 0 && m.records[n-1].Sequence >= r.Sequence {
			return fault.CorruptRecord
		}
		m.records = append(m.records, r)
	}
	return nil
}

// Replay - call fn for every record with a sequence above after
func (m *MemoryStore) Replay(after uint64, fn func(Record) error) error {
	m.RLock()
	records := make([]Record, len(m.records))
	copy(records, m.records)
	m.RUnlock()

	for _, r := range records {
		if r.Sequence <= after {
			continue
		}
		if err := fn(r); nil != err {
			return err
		}
	}
	return nil
}

// Last - highest sequence stored
func (m *MemoryStore) Last() (uint64, error) {
	m.RLock()
	defer m.RUnlock()

	if 0 == len(m.records) {
		return 0, nil
	}
	return m.records[len(m.records)-1].Sequence, nil
}

// Records - copy of everything stored
func (m *MemoryStore) Records() []Record {
	m.RLock()
	defer m.RUnlock()

	records := make([]Record, len(m.records))
	copy(records, m.records)
	return records
}

// Close - nothing to release
func (m *MemoryStore) Close() error {
	return nil
}
