// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
)

// backend names
const (
	LevelDB = "leveldb"
	Badger  = "badger"
)

// access modes
const (
	ReadOnly  = true
	ReadWrite = false
)

const (
	currentEventDBVersion = 0x100
	eventPrefix           = 'E'
)

// for database version
var versionKey = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}

// Configuration - which backend and where
type Configuration struct {
	Backend   string `gluamapper:"backend" json:"backend"`
	Directory string `gluamapper:"directory" json:"directory"`
	Name      string `gluamapper:"name" json:"name"`
}

// Open - open the event log described by the configuration
func Open(configuration Configuration, readOnly bool, log *logger.L) (event.Store, error) {
	if nil == log {
		return nil, fault.MissingParameters
	}

	name := configuration.Name
	if "" == name {
		name = "events"
	}

	switch configuration.Backend {
	case LevelDB, "":
		path := filepath.Join(configuration.Directory, name+".leveldb")
		log.Infof("open leveldb: %q  read only: %t", path, readOnly)
		return OpenLevelDB(path, readOnly, log)
	case Badger:
		path := filepath.Join(configuration.Directory, name+".badger")
		log.Infof("open badger: %q  read only: %t", path, readOnly)
		return OpenBadger(path, readOnly, log)
	default:
		return nil, fault.InvalidBackend
	}
}

func sequenceKey(sequence uint64) []byte {
	key := make([]byte, 9)
	key[0] = eventPrefix
	binary.BigEndian.PutUint64(key[1:], sequence)
	return key
}

func keySequence(key []byte) (uint64, error) {
	if 9 != len(key) || eventPrefix != key[0] {
		return 0, fault.CorruptRecord
	}
	return binary.BigEndian.Uint64(key[1:]), nil
}

func versionValue(version uint64) []byte {
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, version)
	return value
}

func checkVersion(value []byte) (uint64, error) {
	if 8 != len(value) {
		return 0, fault.CorruptRecord
	}
	version := binary.BigEndian.Uint64(value)
	if version > currentEventDBVersion {
		return version, fmt.Errorf("event database version: %d > current version: %d", version, currentEventDBVersion)
	}
	return version, nil
}

func encodeRecord(r event.Record) ([]byte, []byte, error) {
	if 0 == r.Sequence {
		return nil, nil, fault.CorruptRecord
	}
	value, err := json.Marshal(r)
	if nil != err {
		return nil, nil, err
	}
	return sequenceKey(r.Sequence), value, nil
}

func decodeRecord(key []byte, value []byte) (event.Record, error) {
	sequence, err := keySequence(key)
	if nil != err {
		return event.Record{}, err
	}
	var r event.Record
	if err := json.Unmarshal(value, &r); nil != err {
		return event.Record{}, fault.CorruptRecord
	}
	if r.Sequence != sequence {
		return event.Record{}, fault.CorruptRecord
	}
	return r, nil
}
