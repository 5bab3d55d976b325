// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package event

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/bitstable/counter"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/messagebus"
)

const journalTag = "journal"

// Journal - assigns sequence numbers and forwards records to a store
//
// in queued mode records are written by the Run background process,
// otherwise they are written before Emit returns
type Journal struct {
	sync.Mutex
	log      *logger.L
	store    Store
	queue    *messagebus.Queue
	sequence counter.Counter
	written  counter.Counter
}

// NewJournal - create a journal, queueSize of zero writes synchronously
func NewJournal(store Store, queueSize int, log *logger.L) (*Journal, error) {
	if nil == store || nil == log {
		return nil, fault.MissingParameters
	}

	last, err := store.Last()
	if nil != err {
		return nil, err
	}

	j := &Journal{
		log:   log,
		store: store,
	}
	j.sequence.Advance(last)
	j.written.Advance(last)
	if queueSize > 0 {
		j.queue = messagebus.NewQueue(queueSize)
	}
	return j, nil
}

// Emit - append one record
func (j *Journal) Emit(t Type, timestamp time.Time, payload interface{}) error {
	buffer, err := json.Marshal(payload)
	if nil != err {
		return err
	}

	j.Lock()
	defer j.Unlock()

	r := Record{
		Sequence:  j.sequence.Uint64() + 1,
		Type:      t,
		Timestamp: timestamp.UTC(),
		Payload:   buffer,
	}

	if nil == j.queue {
		if err := j.store.Append(r); nil != err {
			j.log.Errorf("append: %d %s error: %s", r.Sequence, r.Type, err)
			return err
		}
		j.sequence.Increment()
		j.written.Increment()
		return nil
	}

	if !j.queue.Send(journalTag, r) {
		return fault.NotInitialised
	}
	j.sequence.Increment()
	return nil
}

// Sequence - last assigned sequence number
func (j *Journal) Sequence() uint64 {
	return j.sequence.Uint64()
}

// Written - last sequence number known to be in the store
func (j *Journal) Written() uint64 {
	return j.written.Uint64()
}

// Run - background writer for queued mode
func (j *Journal) Run(args interface{}, shutdown <-chan struct{}) {
	if nil == j.queue {
		<-shutdown
		return
	}

	j.log.Info("starting…")
	queue := j.queue.Chan()

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case m := <-queue:
			j.write(m)
		}
	}

	j.log.Info("shutting down…")

	// keep reading while closing so a blocked sender can complete
	go j.queue.Close()
	for m := range queue {
		j.write(m)
	}
	j.log.Info("finished")
}

func (j *Journal) write(m messagebus.Message) {
	r, ok := m.Item.(Record)
	if !ok {
		return
	}
	if err := j.store.Append(r); nil != err {
		fault.Criticalf("journal append: %d %s error: %s", r.Sequence, r.Type, err)
		fault.Panic("journal cannot persist state transitions")
	}
	j.written.Advance(r.Sequence)
}
