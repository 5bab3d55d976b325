// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - the on-disk event log
//
// Two interchangeable key/value backends hold the same layout:
//
//   0x00 ++ "VERSION"        - database version, big endian uint64
//   E ++ sequence            - one journal record
//                              key:  big endian uint64 (8 bytes)
//                              data: JSON encoded event.Record
//
// Records are only ever appended; keys sort in sequence order so a
// forward iteration over the E prefix is a replay and the last key in
// the prefix is the last sequence written.
package storage
