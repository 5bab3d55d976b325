// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package liquidation

import (
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
)

// Apply - rebuild engine state from a journal record without emitting
//
// a replayed staging comes back in the Staged status so that it can
// be resubmitted; a later failure record restores the failure and
// its broadcast flag
func (e *Engine) Apply(r event.Record) error {
	switch r.Type {
	case event.LiquidationStaged:
		var p Pending
		if err := r.Decode(&p); nil != err {
			return fault.CorruptRecord
		}
		p.Status = Staged
		p.Attempts = 0
		p.Reason = ""
		c := p.clone()

		e.Lock()
		if _, ok := e.pending[c.Intent]; !ok {
			e.track(&c)
		}
		e.Unlock()

	case event.LiquidationCompleted:
		var ev Event
		if err := r.Decode(&ev); nil != err {
			return fault.CorruptRecord
		}
		e.Lock()
		delete(e.pending, ev.Intent)
		e.record(ev)
		e.Unlock()

	case event.LiquidationFailed:
		var f Failure
		if err := r.Decode(&f); nil != err {
			return fault.CorruptRecord
		}
		e.Lock()
		defer e.Unlock()
		p, ok := e.pending[f.Intent]
		if !ok {
			return fault.PendingLiquidationNotFound
		}
		p.Status = Failed
		p.Reason = f.Reason
		p.Broadcast = p.Broadcast || f.Broadcast
		if "" != f.Settlement {
			p.Settlement = f.Settlement
		}

	case event.LiquidationAborted:
		var a Aborted
		if err := r.Decode(&a); nil != err {
			return fault.CorruptRecord
		}
		e.Lock()
		delete(e.pending, a.Intent)
		e.untrack(a.Intent, a.Vault)
		e.Unlock()

	default:
		return fault.UnknownEventType
	}
	return nil
}
