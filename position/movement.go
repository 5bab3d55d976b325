// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package position

import (
	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
)

// Op - the operation that moved slices
type Op string

// operations
const (
	Credit   Op = "credit"
	Transfer Op = "transfer"
	Burn     Op = "burn"
	Restore  Op = "restore"
	Reback   Op = "reback"
)

// Book - one holder's slices in one currency
type Book struct {
	Holder   account.Account   `json:"holder"`
	Currency currency.Currency `json:"currency"`
	Slices   []Slice           `json:"slices"`
}

// Movement - payload of a SliceMoved record, carrying the post-state
// of every book the operation touched
type Movement struct {
	Op       Op                `json:"op"`
	Currency currency.Currency `json:"currency"`
	Amount   currency.Amount   `json:"amount"`
	Sequence uint64            `json:"sequence"` // last slice sequence issued
	Books    []Book            `json:"books"`
}

// Apply - overwrite books from a journal record without emitting
func (l *Ledger) Apply(r event.Record) error {
	if event.SliceMoved != r.Type {
		return fault.UnknownEventType
	}
	var m Movement
	if err := r.Decode(&m); nil != err {
		return fault.CorruptRecord
	}

	for _, state := range m.Books {
		if !state.Currency.IsValid() {
			return fault.CorruptRecord
		}
		b := l.book(state.Holder, state.Currency, true)
		b.Lock()
		b.slices = append([]Slice(nil), state.Slices...)
		b.Unlock()
	}
	l.sequence.Advance(m.Sequence)
	return nil
}
