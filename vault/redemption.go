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
	"github.com/bitmark-inc/bitstable/rates"
)

// LowestRatio - the live vault with the lowest ratio still at or
// above its minimum that owes at least amount of c
//
// ties go to the older vault; vaults whose ratio cannot be priced are
// passed over
func (l *Ledger) LowestRatio(c currency.Currency, amount currency.Amount, snapshot rates.Snapshot) (Vault, error) {
	var best Vault
	var bestRatio Ratio
	found := false
	for _, v := range l.List() {
		if !v.State.IsLive() || v.Debt[c] < amount || v.Debt[c] <= 0 {
			continue
		}
		r, err := v.Ratio(snapshot)
		if nil != err || r.LessThan(l.minimumRatio(v)) {
			continue
		}
		if !found || r.Cmp(bestRatio) < 0 {
			best = v
			bestRatio = r
			found = true
		}
	}
	if !found {
		return Vault{}, fault.NoRedemptionTarget
	}
	return best, nil
}

// Redeem - clear debt in c and remove collateral of equal value, the
// caller has burned the stable and releases the collateral
func (l *Ledger) Redeem(id uuid.UUID, c currency.Currency, debt currency.Amount, collateral satoshi.Amount) (Vault, error) {
	if debt <= 0 || collateral <= 0 {
		return Vault{}, fault.InvalidAmount
	}
	e, err := l.entry(id)
	if nil != err {
		return Vault{}, err
	}
	e.Lock()
	defer e.Unlock()

	if err := e.vault.State.require(); nil != err {
		return Vault{}, err
	}

	now := l.clock()
	next := e.vault.Clone()
	l.accrue(&next, now)

	if debt > next.Debt[c] {
		return Vault{}, fault.ExceedsDebt
	}
	if collateral > next.Collateral {
		return Vault{}, fault.InsufficientCollateral
	}

	next.Debt[c] -= debt
	if 0 == next.Debt[c] {
		delete(next.Debt, c)
		delete(next.FeeCarry, c)
	}
	next.Collateral -= collateral
	e.vault = next
	l.evaluate(&e.vault, l.rates.Snapshot())

	l.log.Infof("redeem vault: %s  debt: %s %s  collateral: %s", id, c.FormatAmount(debt), c, collateral)
	return e.vault.Clone(), l.commit(e, event.DebtChanged, now)
}
