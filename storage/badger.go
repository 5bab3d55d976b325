// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/dgraph-io/badger/v4"

	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
)

// BadgerStore - event log held in a Badger database
type BadgerStore struct {
	sync.Mutex
	log      *logger.L
	db       *badger.DB
	readOnly bool
	last     uint64
}

// route badger's own messages into the component log
type badgerLogger struct {
	log *logger.L
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.log.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.log.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.log.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.log.Debugf(format, args...) }

// OpenBadger - open or create the database
func OpenBadger(path string, readOnly bool, log *logger.L) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(badgerLogger{log: log}).
		WithReadOnly(readOnly).
		WithSyncWrites(true)

	db, err := badger.Open(opts)
	if nil != err {
		return nil, err
	}

	s := &BadgerStore{
		log:      log,
		db:       db,
		readOnly: readOnly,
	}

	ok := false
	defer func() {
		if !ok {
			db.Close()
		}
	}()

	found := false
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(versionKey)
		if badger.ErrKeyNotFound == err {
			return nil
		}
		if nil != err {
			return err
		}
		found = true
		return item.Value(func(value []byte) error {
			_, err := checkVersion(value)
			return err
		})
	})
	if nil != err {
		log.Criticalf("badger version check: %s", err)
		return nil, err
	}
	if !found {
		if readOnly {
			return nil, fault.NotInitialised
		}
		err = db.Update(func(txn *badger.Txn) error {
			return txn.Set(versionKey, versionValue(currentEventDBVersion))
		})
		if nil != err {
			return nil, err
		}
	}

	err = db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte{eventPrefix}
		it.Seek(sequenceKey(^uint64(0)))
		if it.ValidForPrefix(prefix) {
			last, err := keySequence(it.Item().KeyCopy(nil))
			if nil != err {
				return err
			}
			s.last = last
		}
		return nil
	})
	if nil != err {
		return nil, err
	}

	ok = true
	log.Infof("badger last sequence: %d", s.last)
	return s, nil
}

// Append - write records in one transaction
func (s *BadgerStore) Append(records ...event.Record) error {
	if s.readOnly {
		return fault.InvalidBackend
	}

	s.Lock()
	defer s.Unlock()

	last := s.last
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, r := range records {
			if r.Sequence <= last {
				return fault.CorruptRecord
			}
			key, value, err := encodeRecord(r)
			if nil != err {
				return err
			}
			if err := txn.Set(key, value); nil != err {
				return err
			}
			last = r.Sequence
		}
		return nil
	})
	if nil != err {
		return err
	}
	s.last = last
	return nil
}

// Replay - call fn for every record with a sequence above after
func (s *BadgerStore) Replay(after uint64, fn func(event.Record) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte{eventPrefix}
		for it.Seek(sequenceKey(after + 1)); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if nil != err {
				return err
			}
			r, err := decodeRecord(item.KeyCopy(nil), value)
			if nil != err {
				return err
			}
			if err := fn(r); nil != err {
				return err
			}
		}
		return nil
	})
}

// Last - highest sequence stored
func (s *BadgerStore) Last() (uint64, error) {
	s.Lock()
	defer s.Unlock()
	return s.last, nil
}

// Close - release the database
func (s *BadgerStore) Close() error {
	s.log.Info("close badger")
	return s.db.Close()
}
