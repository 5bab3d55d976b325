// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package event - the append-only journal of state transitions
//
// every mutation of vaults, positions, prices and liquidations is
// described by one record; replaying the records in sequence order
// rebuilds the complete engine state
package event

import (
	"encoding/json"
	"time"
)

// Type - record type tag
type Type string

// record types
const (
	VaultOpened          Type = "VaultOpened"
	CollateralChanged    Type = "CollateralChanged"
	DebtChanged          Type = "DebtChanged"
	VaultStateChanged    Type = "VaultStateChanged"
	SliceMoved           Type = "SliceMoved"
	LiquidationStaged    Type = "LiquidationStaged"
	LiquidationCompleted Type = "LiquidationCompleted"
	LiquidationAborted   Type = "LiquidationAborted"
	LiquidationFailed    Type = "LiquidationFailed"
	ReleaseRequested     Type = "ReleaseRequested"
	ReleaseConfirmed     Type = "ReleaseConfirmed"
	RedemptionExecuted   Type = "RedemptionExecuted"
	PriceAccepted        Type = "PriceAccepted"
	SourceChanged        Type = "SourceChanged"
)

// Record - one journal entry
type Record struct {
	Sequence  uint64          `json:"sequence"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Decode - unmarshal the payload into v
func (r Record) Decode(v interface{}) error {
	return json.Unmarshal(r.Payload, v)
}

// Sink - where components send their records
type Sink interface {
	Emit(t Type, timestamp time.Time, payload interface{}) error
}

// Store - durable ordered storage for records
type Store interface {
	Append(records ...Record) error
	Replay(after uint64, fn func(Record) error) error
	Last() (uint64, error)
	Close() error
}

type discard struct{}

// Discard - a sink that drops everything
var Discard Sink = discard{}

func (discard) Emit(Type, time.Time, interface{}) error {
	return nil
}
