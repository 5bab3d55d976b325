// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
)

// Open - create a pending vault with an opening debt
//
// the debt is checked against the minimum ratio now but is only
// issued when custody confirms the collateral
func (l *Ledger) Open(owner account.Account, collateral satoshi.Amount, c currency.Currency, amount currency.Amount) (Vault, error) {
	if owner.IsZero() {
		return Vault{}, fault.InvalidAccount
	}
	if collateral <= 0 || amount < 0 {
		return Vault{}, fault.InvalidAmount
	}

	now := l.clock()
	v := Vault{
		ID:          uuid.New(),
		Owner:       owner,
		Collateral:  collateral,
		Debt:        make(map[currency.Currency]currency.Amount),
		FeeCarry:    make(map[currency.Currency]decimal.Decimal),
		Created:     now,
		LastAccrual: now,
		State:       Pending,
	}
	v = v.Clone()

	if amount > 0 {
		if err := l.checkMint(c, amount); nil != err {
			return Vault{}, err
		}
		v.Debt[c] = amount
		if err := l.checkRatio(v, now); nil != err {
			return Vault{}, err
		}
	}

	e := &entry{vault: v, committed: v.Clone()}

	l.Lock()
	l.vaults[v.ID] = e
	l.order = append(l.order, v.ID)
	e.Lock()
	l.Unlock()
	defer e.Unlock()

	l.log.Infof("open vault: %s  collateral: %s  debt: %s %s", v.ID, collateral, c.FormatAmount(amount), c)
	return e.vault.Clone(), l.commit(e, event.VaultOpened, now)
}

// Confirm - custody has the collateral; the vault becomes live
func (l *Ledger) Confirm(id uuid.UUID) (Vault, error) {
	e, err := l.entry(id)
	if nil != err {
		return Vault{}, err
	}
	e.Lock()
	defer e.Unlock()

	switch e.vault.State {
	case Pending:
	case Liquidated, Closed:
		return Vault{}, fault.VaultTerminated
	default:
		return Vault{}, fault.InvalidVaultState
	}

	now := l.clock()
	e.vault.State = Active
	e.vault.LastAccrual = now
	l.evaluate(&e.vault, l.rates.Snapshot())

	l.log.Infof("confirm vault: %s  state: %s", id, e.vault.State)
	return e.vault.Clone(), l.commit(e, event.VaultStateChanged, now)
}

// Cancel - abandon a pending vault, returns the collateral to release
func (l *Ledger) Cancel(id uuid.UUID) (Vault, satoshi.Amount, error) {
	e, err := l.entry(id)
	if nil != err {
		return Vault{}, 0, err
	}
	e.Lock()
	defer e.Unlock()

	if Pending != e.vault.State {
		if e.vault.State.IsTerminal() {
			return Vault{}, 0, fault.VaultTerminated
		}
		return Vault{}, 0, fault.InvalidVaultState
	}

	released := e.vault.Collateral
	e.vault.Collateral = 0
	e.vault.Debt = make(map[currency.Currency]currency.Amount)
	e.vault.State = Closed

	l.log.Infof("cancel vault: %s  release: %s", id, released)
	return e.vault.Clone(), released, l.commit(e, event.VaultStateChanged, l.clock())
}

// AddCollateral - deposit more BTC, permitted while liquidating
func (l *Ledger) AddCollateral(id uuid.UUID, amount satoshi.Amount) (Vault, error) {
	if amount <= 0 {
		return Vault{}, fault.InvalidAmount
	}
	e, err := l.entry(id)
	if nil != err {
		return Vault{}, err
	}
	e.Lock()
	defer e.Unlock()

	if Liquidating != e.vault.State {
		if err := e.vault.State.require(); nil != err {
			return Vault{}, err
		}
	}

	e.vault.Collateral += amount
	l.evaluate(&e.vault, l.rates.Snapshot())

	l.log.Debugf("deposit vault: %s  amount: %s  collateral: %s", id, amount, e.vault.Collateral)
	return e.vault.Clone(), l.commit(e, event.CollateralChanged, l.clock())
}

// WithdrawCollateral - remove BTC keeping the minimum ratio
func (l *Ledger) WithdrawCollateral(id uuid.UUID, amount satoshi.Amount) (Vault, error) {
	if amount <= 0 {
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
	if amount > e.vault.Collateral {
		return Vault{}, fault.InsufficientCollateral
	}

	now := l.clock()
	next := e.vault.Clone()
	l.accrue(&next, now)

	next.Collateral -= amount
	if err := l.checkRatio(next, now); nil != err {
		return Vault{}, err
	}

	e.vault = next
	l.evaluate(&e.vault, l.rates.Snapshot())

	l.log.Debugf("withdraw vault: %s  amount: %s  collateral: %s", id, amount, e.vault.Collateral)
	return e.vault.Clone(), l.commit(e, event.CollateralChanged, now)
}

// Mint - increase debt; the caller credits the stable
func (l *Ledger) Mint(id uuid.UUID, c currency.Currency, amount currency.Amount) (Vault, error) {
	if err := l.checkMint(c, amount); nil != err {
		return Vault{}, err
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

	next.Debt[c] += amount
	if err := l.checkRatio(next, now); nil != err {
		return Vault{}, err
	}

	e.vault = next
	l.evaluate(&e.vault, l.rates.Snapshot())

	l.log.Debugf("mint vault: %s  amount: %s %s", id, c.FormatAmount(amount), c)
	return e.vault.Clone(), l.commit(e, event.DebtChanged, now)
}

// Repay - accrue fees then decrease debt
func (l *Ledger) Repay(id uuid.UUID, c currency.Currency, amount currency.Amount) (Vault, error) {
	if amount <= 0 {
		return Vault{}, fault.InvalidAmount
	}
	if !c.IsValid() {
		return Vault{}, fault.InvalidCurrency
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

	if amount > next.Debt[c] {
		return Vault{}, fault.ExceedsDebt
	}

	next.Debt[c] -= amount
	if 0 == next.Debt[c] {
		delete(next.Debt, c)
		delete(next.FeeCarry, c)
	}
	e.vault = next
	l.evaluate(&e.vault, l.rates.Snapshot())

	l.log.Debugf("repay vault: %s  amount: %s %s", id, c.FormatAmount(amount), c)
	return e.vault.Clone(), l.commit(e, event.DebtChanged, now)
}

// Close - all debt repaid, returns the collateral to release
func (l *Ledger) Close(id uuid.UUID) (Vault, satoshi.Amount, error) {
	e, err := l.entry(id)
	if nil != err {
		return Vault{}, 0, err
	}
	e.Lock()
	defer e.Unlock()

	if err := e.vault.State.require(); nil != err {
		return Vault{}, 0, err
	}

	now := l.clock()
	next := e.vault.Clone()
	l.accrue(&next, now)
	if next.HasDebt() {
		return Vault{}, 0, fault.OutstandingDebt
	}

	released := next.Collateral
	next.Collateral = 0
	next.FeeCarry = make(map[currency.Currency]decimal.Decimal)
	next.State = Closed
	e.vault = next

	l.log.Infof("close vault: %s  release: %s", id, released)
	return e.vault.Clone(), released, l.commit(e, event.VaultStateChanged, now)
}

// Headroom - largest mint in c that keeps the minimum ratio
func (l *Ledger) Headroom(id uuid.UUID, c currency.Currency) (currency.Amount, error) {
	if !c.IsValid() {
		return 0, fault.InvalidCurrency
	}
	v, err := l.Get(id)
	if nil != err {
		return 0, err
	}
	if err := v.State.require(); nil != err {
		return 0, err
	}

	snapshot := l.rates.Snapshot()
	if err := snapshot.Require(l.clock(), l.config.MaxPriceAge, append(v.Currencies(), c)...); nil != err {
		return 0, err
	}

	prospective := v.Clone()
	if 0 == prospective.Debt[c] {
		prospective.Debt[c] = 1 // include c in the effective minimum
	}
	m := l.minimumRatio(prospective)

	collateral, err := snapshot.CollateralUSD(v.Collateral)
	if nil != err {
		return 0, err
	}
	debt, err := v.DebtUSD(snapshot)
	if nil != err {
		return 0, err
	}
	rate, err := snapshot.ToUSD(c)
	if nil != err {
		return 0, err
	}

	room := collateral.Div(m).Sub(debt)
	if !room.IsPositive() {
		return 0, nil
	}
	return c.Floor(room.Div(rate)), nil
}
