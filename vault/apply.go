// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
)

// Apply - overwrite a vault from a journal record without emitting
func (l *Ledger) Apply(r event.Record) error {
	switch r.Type {
	case event.VaultOpened, event.CollateralChanged, event.DebtChanged, event.VaultStateChanged:
	default:
		return fault.UnknownEventType
	}

	var v Vault
	if err := r.Decode(&v); nil != err {
		return fault.CorruptRecord
	}
	v = v.Clone()

	l.Lock()
	e, ok := l.vaults[v.ID]
	if !ok {
		if event.VaultOpened != r.Type {
			l.Unlock()
			return fault.VaultNotFound
		}
		e = &entry{}
		l.vaults[v.ID] = e
		l.order = append(l.order, v.ID)
	}
	e.Lock()
	l.Unlock()

	e.vault = v
	l.publish(e)
	e.Unlock()
	return nil
}
