// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"github.com/google/uuid"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
)

// BeginLiquidation - try-lock a vault and let decide whether to stage
//
// decide runs under the vault lock with fees accrued and must not
// block; when it returns true the vault becomes Liquidating.  A busy
// vault returns VaultLocked immediately.
func (l *Ledger) BeginLiquidation(id uuid.UUID, decide func(v Vault) (bool, error)) (Vault, error) {
	e, err := l.entry(id)
	if nil != err {
		return Vault{}, err
	}
	if !e.TryLock() {
		return Vault{}, fault.VaultLocked
	}
	defer e.Unlock()

	switch e.vault.State {
	case Liquidating:
		return e.vault.Clone(), fault.LiquidationInFlight
	case Active, Warning:
	default:
		return e.vault.Clone(), e.vault.State.require()
	}

	now := l.clock()
	next := e.vault.Clone()
	accrued := l.accrue(&next, now)

	stage, err := decide(next.Clone())
	if nil != err {
		return e.vault.Clone(), err
	}
	if !stage {
		// a healthy vault keeps its accrual and state
		changed := l.evaluate(&next, l.rates.Snapshot())
		if !accrued && !changed {
			return next, nil
		}
		e.vault = next
		t := event.DebtChanged
		if !accrued {
			t = event.VaultStateChanged
		}
		return e.vault.Clone(), l.commit(e, t, now)
	}

	e.vault = next
	e.vault.State = Liquidating
	return e.vault.Clone(), l.commit(e, event.VaultStateChanged, now)
}

// CompleteLiquidation - apply a confirmed seizure
//
// a full liquidation ends the vault and returns the surplus collateral
// to release to the owner
func (l *Ledger) CompleteLiquidation(id uuid.UUID, seized satoshi.Amount, cleared map[currency.Currency]currency.Amount, full bool) (Vault, satoshi.Amount, error) {
	e, err := l.entry(id)
	if nil != err {
		return Vault{}, 0, err
	}
	e.Lock()
	defer e.Unlock()

	if Liquidating != e.vault.State {
		return Vault{}, 0, fault.InvalidVaultState
	}
	if seized < 0 {
		return Vault{}, 0, fault.InvalidAmount
	}

	if seized > e.vault.Collateral {
		l.log.Warnf("vault: %s  seized: %s  exceeds collateral: %s", id, seized, e.vault.Collateral)
		seized = e.vault.Collateral
	}
	e.vault.Collateral -= seized

	for c, amount := range cleared {
		debt := e.vault.Debt[c]
		if amount > debt {
			amount = debt
		}
		e.vault.Debt[c] = debt - amount
		if 0 == e.vault.Debt[c] {
			delete(e.vault.Debt, c)
			delete(e.vault.FeeCarry, c)
		}
	}

	now := l.clock()
	surplus := satoshi.Amount(0)
	if full {
		if e.vault.HasDebt() {
			l.log.Warnf("vault: %s  residual debt after full liquidation: %v", id, e.vault.Debt)
		}
		surplus = e.vault.Collateral
		e.vault.Collateral = 0
		e.vault.Debt = make(map[currency.Currency]currency.Amount)
		e.vault.State = Liquidated
	} else {
		e.vault.State = Active
		l.evaluate(&e.vault, l.rates.Snapshot())
	}

	l.log.Infof("liquidated vault: %s  seized: %s  state: %s  surplus: %s", id, seized, e.vault.State, surplus)
	return e.vault.Clone(), surplus, l.commit(e, event.VaultStateChanged, now)
}

// AbortLiquidation - settlement never happened, return to live
func (l *Ledger) AbortLiquidation(id uuid.UUID) (Vault, error) {
	e, err := l.entry(id)
	if nil != err {
		return Vault{}, err
	}
	e.Lock()
	defer e.Unlock()

	if Liquidating != e.vault.State {
		return Vault{}, fault.InvalidVaultState
	}

	e.vault.State = Active
	l.evaluate(&e.vault, l.rates.Snapshot())

	l.log.Warnf("abort liquidation vault: %s  state: %s", id, e.vault.State)
	return e.vault.Clone(), l.commit(e, event.VaultStateChanged, l.clock())
}

// Mark - re-evaluate Active/Warning without blocking
func (l *Ledger) Mark(id uuid.UUID) (State, error) {
	e, err := l.entry(id)
	if nil != err {
		return Pending, err
	}
	if !e.TryLock() {
		return Pending, fault.VaultLocked
	}
	defer e.Unlock()

	if l.evaluate(&e.vault, l.rates.Snapshot()) {
		return e.vault.State, l.commit(e, event.VaultStateChanged, l.clock())
	}
	return e.vault.State, nil
}
