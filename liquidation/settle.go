// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package liquidation

import (
	"context"

	"github.com/google/uuid"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/position"
	"github.com/bitmark-inc/bitstable/settlement"
)

// HandleSettlement - apply a custody result for a staged seizure
//
// a confirmation completes the liquidation and returns what the owner
// is owed; a failure leaves the vault Liquidating and returns
// SettlementFailed
func (e *Engine) HandleSettlement(result settlement.Result) (*Completion, error) {
	e.Lock()
	p, ok := e.pending[result.Intent]
	if !ok {
		e.Unlock()
		return nil, fault.PendingLiquidationNotFound
	}
	if !result.Confirmed {
		p.Status = Failed
		p.Reason = result.Reason
		p.Broadcast = p.Broadcast || result.Broadcast
		if "" != result.ID {
			p.Settlement = result.ID
		}
		vault := p.Vault
		e.emit(event.LiquidationFailed, p.failure())
		e.Unlock()

		e.failures.Increment()
		e.log.Criticalf("seize intent: %s  vault: %s  settlement: %s  failed: %q  broadcast: %t",
			result.Intent, vault, result.ID, result.Reason, result.Broadcast)
		return nil, fault.SettlementFailed
	}
	staged := p.clone()
	e.Unlock()

	v, surplus, err := e.vaults.CompleteLiquidation(staged.Vault, staged.Seized, staged.Cleared, staged.Full)
	if nil != err {
		e.log.Errorf("complete vault: %s  intent: %s  error: %s", staged.Vault, staged.Intent, err)
		return nil, err
	}

	// stable surrendered by the liquidator was backed by other vaults,
	// the seized vault's stable in circulation inherits that backing
	for _, c := range currency.All() {
		consumed, ok := staged.Consumed[c]
		if !ok {
			continue
		}
		replacements := e.available(staged.Vault, c, consumed)
		if 0 == len(replacements) {
			continue
		}
		if err := e.positions.Reback(staged.Vault, c, replacements); nil != err {
			e.log.Errorf("reback vault: %s  currency: %s  error: %s", staged.Vault, c, err)
		}
	}

	id := result.ID
	if "" == id {
		id = staged.Settlement
	}
	ev := Event{
		Intent:     staged.Intent,
		Vault:      staged.Vault,
		Stage:      staged.Stage,
		Full:       staged.Full,
		Seized:     staged.Seized,
		Bonus:      staged.Bonus,
		Cleared:    staged.Cleared,
		ClearedUSD: staged.ClearedUSD,
		Surplus:    surplus,
		Liquidator: staged.Liquidator,
		Settlement: id,
		Timestamp:  e.clock(),
	}

	e.Lock()
	delete(e.pending, staged.Intent)
	e.record(ev)
	e.emit(event.LiquidationCompleted, ev)
	e.Unlock()
	e.completed.Increment()

	e.log.Infof("liquidated vault: %s  state: %s  seized: %s  bonus: %s  surplus: %s",
		staged.Vault, v.State, staged.Seized, staged.Bonus, surplus)

	return &Completion{
		Event:   ev,
		Vault:   v,
		Surplus: surplus,
	}, nil
}

// portions of the surrendered stable that can be re-backed, limited to
// what the seized vault still has in circulation
func (e *Engine) available(id uuid.UUID, c currency.Currency, consumed position.Consumed) []position.Portion {
	remaining := e.positions.BackedBy(id, c)
	replacements := make([]position.Portion, 0, len(consumed))
	for _, p := range consumed.ByVault() {
		if id == p.Vault || remaining <= 0 {
			continue
		}
		if p.Amount > remaining {
			p.Amount = remaining
		}
		remaining -= p.Amount
		replacements = append(replacements, p)
	}
	return replacements
}

// Retry - resubmit a staged seizure under its original intent
func (e *Engine) Retry(ctx context.Context, intent uuid.UUID) error {
	e.Lock()
	p, ok := e.pending[intent]
	if !ok {
		e.Unlock()
		return fault.PendingLiquidationNotFound
	}
	p.Status = Staged
	p.Reason = ""
	e.Unlock()

	e.log.Warnf("retry seize intent: %s", intent)
	return e.submit(ctx, intent)
}

// Resubmit - send every staged seizure to custody again, used after a
// restart; returns the number that were accepted
//
// a failed seizure goes back to Staged and keeps its broadcast flag
func (e *Engine) Resubmit(ctx context.Context) int {
	n := 0
	for _, p := range e.Pending() {
		e.Lock()
		if q, ok := e.pending[p.Intent]; ok && Failed == q.Status {
			q.Status = Staged
		}
		e.Unlock()
		if nil == e.submit(ctx, p.Intent) {
			n += 1
		}
	}
	if n > 0 {
		e.log.Infof("resubmitted: %d pending liquidations", n)
	}
	return n
}

// Abort - abandon a failed seizure that never reached the network
//
// the liquidator's stable is restored and the vault returns to
// Active or Warning
func (e *Engine) Abort(intent uuid.UUID, reason string) error {
	e.Lock()
	p, ok := e.pending[intent]
	if !ok {
		e.Unlock()
		return fault.PendingLiquidationNotFound
	}
	if Failed != p.Status {
		e.Unlock()
		return fault.SettlementPending
	}
	if p.Broadcast {
		e.Unlock()
		return fault.SettlementBroadcast
	}
	staged := p.clone()
	delete(e.pending, intent)
	e.Unlock()

	if _, err := e.vaults.AbortLiquidation(staged.Vault); nil != err {
		e.log.Errorf("abort vault: %s  error: %s", staged.Vault, err)
		if fault.InvalidVaultState != err {
			e.Lock()
			e.pending[intent] = p
			e.Unlock()
			return err
		}
	}

	for _, c := range currency.All() {
		consumed, ok := staged.Consumed[c]
		if !ok {
			continue
		}
		if err := e.positions.Restore(staged.Liquidator, c, consumed); nil != err {
			e.log.Criticalf("restore liquidator: %s  %s %s  error: %s", staged.Liquidator.String(), c.FormatAmount(consumed.Total()), c, err)
		}
	}

	e.Lock()
	e.untrack(intent, staged.Vault)
	e.emit(event.LiquidationAborted, Aborted{
		Intent: intent,
		Vault:  staged.Vault,
		Reason: reason,
	})
	e.Unlock()
	e.aborted.Increment()

	e.log.Warnf("aborted intent: %s  vault: %s  reason: %s", intent, staged.Vault, reason)
	return nil
}
