// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/background"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/event"
)

var (
	daysPerYear = decimal.RequireFromString("365.25")
	nanosPerDay = decimal.NewFromInt(int64(24 * time.Hour))
)

// debt(t+Δ) = debt(t)·(1 + α·Δ/365.25), whole minor units are added
// to the debt and the remainder carried to the next accrual
//
// returns false when now is not after the last accrual
// must hold entry lock
func (l *Ledger) accrue(v *Vault, now time.Time) bool {
	if !now.After(v.LastAccrual) {
		return false
	}
	days := decimal.NewFromInt(int64(now.Sub(v.LastAccrual))).Div(nanosPerDay)

	if nil == v.FeeCarry {
		v.FeeCarry = make(map[currency.Currency]decimal.Decimal)
	}
	for _, c := range v.Currencies() {
		p, err := l.registry.Get(c)
		if nil != err {
			continue
		}
		fee := decimal.NewFromInt(int64(v.Debt[c])).
			Mul(p.AnnualFee).
			Mul(days).
			Div(daysPerYear).
			Add(v.FeeCarry[c])
		whole := fee.Floor()
		v.Debt[c] += currency.Amount(whole.IntPart())
		v.FeeCarry[c] = fee.Sub(whole)
	}
	v.LastAccrual = now
	return true
}

// AccrueFees - bring a live vault's fees up to now
//
// repeating the call with the same timestamp changes nothing
func (l *Ledger) AccrueFees(id uuid.UUID, now time.Time) (Vault, error) {
	e, err := l.entry(id)
	if nil != err {
		return Vault{}, err
	}
	e.Lock()
	defer e.Unlock()

	if !e.vault.State.IsLive() {
		return e.vault.Clone(), nil
	}
	if !l.accrue(&e.vault, now) {
		return e.vault.Clone(), nil
	}
	l.evaluate(&e.vault, l.rates.Snapshot())
	return e.vault.Clone(), l.commit(e, event.DebtChanged, now)
}

// AccrueAll - accrue every live vault, skipping busy ones
//
// returns the number of vaults accrued and skipped
func (l *Ledger) AccrueAll(now time.Time) (int, int) {
	accrued := 0
	skipped := 0
	snapshot := l.rates.Snapshot()

	for _, id := range l.IDs() {
		e, err := l.entry(id)
		if nil != err {
			continue
		}
		if !e.TryLock() {
			skipped += 1
			continue
		}
		if e.vault.State.IsLive() && l.accrue(&e.vault, now) {
			l.evaluate(&e.vault, snapshot)
			if nil == l.commit(e, event.DebtChanged, now) {
				accrued += 1
			}
		}
		e.Unlock()
	}
	return accrued, skipped
}

// Accruer - background process for periodic fee accrual
func (l *Ledger) Accruer(interval time.Duration) background.Process {
	return &background.Periodic{
		Interval: interval,
		Tick: func() {
			accrued, skipped := l.AccrueAll(l.clock())
			if skipped > 0 {
				l.log.Warnf("fee accrual: %d  skipped busy: %d", accrued, skipped)
			} else {
				l.log.Debugf("fee accrual: %d", accrued)
			}
		},
	}
}
