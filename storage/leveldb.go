// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
)

// LevelDBStore - event log held in a LevelDB database
type LevelDBStore struct {
	sync.Mutex
	log      *logger.L
	db       *leveldb.DB
	readOnly bool
	last     uint64
}

// OpenLevelDB - open or create the database
func OpenLevelDB(path string, readOnly bool, log *logger.L) (*LevelDBStore, error) {
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: readOnly,
		ReadOnly:       readOnly,
	}

	db, err := leveldb.OpenFile(path, opt)
	if nil != err {
		return nil, err
	}

	s := &LevelDBStore{
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

	value, err := db.Get(versionKey, nil)
	if leveldb.ErrNotFound == err {
		if readOnly {
			return nil, fault.NotInitialised
		}
		err = db.Put(versionKey, versionValue(currentEventDBVersion), nil)
		if nil != err {
			return nil, err
		}
	} else if nil != err {
		return nil, err
	} else if _, err := checkVersion(value); nil != err {
		log.Criticalf("%s", err)
		return nil, err
	}

	iter := db.NewIterator(ldb_util.BytesPrefix([]byte{eventPrefix}), nil)
	if iter.Last() {
		s.last, err = keySequence(iter.Key())
	}
	iter.Release()
	if nil == err {
		err = iter.Error()
	}
	if nil != err {
		return nil, err
	}

	ok = true
	log.Infof("leveldb last sequence: %d", s.last)
	return s, nil
}

// Append - write records atomically
func (s *LevelDBStore) Append(records ...event.Record) error {
	if s.readOnly {
		return fault.InvalidBackend
	}

	s.Lock()
	defer s.Unlock()

	batch := new(leveldb.Batch)
	last := s.last
	for _, r := range records {
		if r.Sequence <= last {
			return fault.CorruptRecord
		}
		key, value, err := encodeRecord(r)
		if nil != err {
			return err
		}
		batch.Put(key, value)
		last = r.Sequence
	}

	err := s.db.Write(batch, &ldb_opt.WriteOptions{Sync: true})
	if nil != err {
		return err
	}
	s.last = last
	return nil
}

// Replay - call fn for every record with a sequence above after
func (s *LevelDBStore) Replay(after uint64, fn func(event.Record) error) error {
	iter := s.db.NewIterator(ldb_util.BytesPrefix([]byte{eventPrefix}), nil)
	defer iter.Release()

	for ok := iter.Seek(sequenceKey(after + 1)); ok; ok = iter.Next() {
		r, err := decodeRecord(iter.Key(), iter.Value())
		if nil != err {
			return err
		}
		if err := fn(r); nil != err {
			return err
		}
	}
	return iter.Error()
}

// Last - highest sequence stored
func (s *LevelDBStore) Last() (uint64, error) {
	s.Lock()
	defer s.Unlock()
	return s.last, nil
}

// Close - release the database
func (s *LevelDBStore) Close() error {
	s.log.Info("close leveldb")
	return s.db.Close()
}
