// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"context"

	"github.com/google/uuid"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/position"
	"github.com/bitmark-inc/bitstable/vault"
)

// Open - create a pending vault; nothing is credited until custody
// confirms the collateral
func (p *Protocol) Open(owner account.Account, collateral satoshi.Amount, c currency.Currency, amount currency.Amount) (vault.Vault, error) {
	return p.vaults.Open(owner, collateral, c, amount)
}

// Confirm - activate a pending vault and credit its opening debt to
// the owner
func (p *Protocol) Confirm(id uuid.UUID) (vault.Vault, error) {
	v, err := p.vaults.Confirm(id)
	if nil != err {
		return vault.Vault{}, err
	}
	for _, c := range v.Currencies() {
		if err := p.positions.Credit(v.Owner, v.ID, c, v.Debt[c]); nil != err {
			p.log.Criticalf("confirm vault: %s  credit: %s %s  error: %s", id, c.FormatAmount(v.Debt[c]), c, err)
			return v, err
		}
	}
	return v, nil
}

// Cancel - abandon a pending vault and release its collateral
func (p *Protocol) Cancel(ctx context.Context, id uuid.UUID) (vault.Vault, error) {
	v, released, err := p.vaults.Cancel(id)
	if nil != err {
		return vault.Vault{}, err
	}
	return v, p.release(ctx, v.ID, v.Owner, released, Cancelled)
}

// Deposit - add collateral already received by custody
func (p *Protocol) Deposit(id uuid.UUID, amount satoshi.Amount) (vault.Vault, error) {
	return p.vaults.AddCollateral(id, amount)
}

// Withdraw - remove collateral and release it to the owner
func (p *Protocol) Withdraw(ctx context.Context, id uuid.UUID, amount satoshi.Amount) (vault.Vault, error) {
	v, err := p.vaults.WithdrawCollateral(id, amount)
	if nil != err {
		return vault.Vault{}, err
	}
	return v, p.release(ctx, v.ID, v.Owner, amount, Withdrawn)
}

// Close - close a vault without debt and release all its collateral
func (p *Protocol) Close(ctx context.Context, id uuid.UUID) (vault.Vault, error) {
	v, released, err := p.vaults.Close(id)
	if nil != err {
		return vault.Vault{}, err
	}
	return v, p.release(ctx, v.ID, v.Owner, released, Closed)
}

// Mint - issue new debt against a vault and credit it to the owner
func (p *Protocol) Mint(id uuid.UUID, c currency.Currency, amount currency.Amount) (vault.Vault, error) {
	v, err := p.vaults.Mint(id, c, amount)
	if nil != err {
		return vault.Vault{}, err
	}
	if err := p.positions.Credit(v.Owner, v.ID, c, amount); nil != err {
		p.log.Criticalf("mint vault: %s  credit: %s %s  error: %s", id, c.FormatAmount(amount), c, err)
		return v, err
	}
	return v, nil
}

// Repay - surrender a vault owner's stable to repay that vault's debt
//
// the burn is FIFO over whatever vaults back the owner's slices; the
// stable is restored when the repay fails
func (p *Protocol) Repay(holder account.Account, id uuid.UUID, c currency.Currency, amount currency.Amount) (vault.Vault, error) {
	v, err := p.vaults.Get(id)
	if nil != err {
		return vault.Vault{}, err
	}
	if v.Owner.String() != holder.String() {
		return vault.Vault{}, fault.InvalidAccount
	}

	consumed, err := p.positions.Burn(holder, c, amount)
	if nil != err {
		return vault.Vault{}, err
	}

	v, err = p.vaults.Repay(id, c, amount)
	if nil != err {
		if err := p.positions.Restore(holder, c, consumed); nil != err {
			p.log.Criticalf("repay vault: %s  restore: %s %s  error: %s", id, c.FormatAmount(amount), c, err)
		}
		return vault.Vault{}, err
	}

	p.reback(id, c, consumed)
	return v, nil
}

// Burn - any holder surrenders stable, FIFO over its slices, and each
// backing vault is repaid its portion
//
// every backing vault must owe at least its portion or nothing is
// burned.  When a repay fails part way the stable of the unrepaid
// vaults is restored; the repaid portions stand and are returned with
// the error.
func (p *Protocol) Burn(holder account.Account, c currency.Currency, amount currency.Amount) ([]position.Portion, error) {
	consumed, err := p.positions.Burn(holder, c, amount)
	if nil != err {
		return nil, err
	}
	portions := consumed.ByVault()

	for _, portion := range portions {
		v, err := p.vaults.Get(portion.Vault)
		if nil == err && portion.Amount > v.Debt[c] {
			err = fault.ExceedsDebt
		}
		if nil != err {
			p.restore(holder, c, consumed, nil)
			return nil, err
		}
	}

	repaid := make(map[uuid.UUID]struct{}, len(portions))
	done := make([]position.Portion, 0, len(portions))
	for _, portion := range portions {
		if _, err := p.vaults.Repay(portion.Vault, c, portion.Amount); nil != err {
			p.log.Errorf("burn holder: %s  vault: %s  repay: %s %s  error: %s",
				holder.String(), portion.Vault, c.FormatAmount(portion.Amount), c, err)
			p.restore(holder, c, consumed, repaid)
			return done, err
		}
		repaid[portion.Vault] = struct{}{}
		done = append(done, portion)
	}

	p.log.Debugf("burn holder: %s  amount: %s %s  vaults: %d", holder.String(), c.FormatAmount(amount), c, len(done))
	return done, nil
}

// put back the consumed slices of every vault not yet repaid
func (p *Protocol) restore(holder account.Account, c currency.Currency, consumed position.Consumed, repaid map[uuid.UUID]struct{}) {
	back := make(position.Consumed, 0, len(consumed))
	for _, s := range consumed {
		if _, ok := repaid[s.Vault]; !ok {
			back = append(back, s)
		}
	}
	if 0 == len(back) {
		return
	}
	if err := p.positions.Restore(holder, c, back); nil != err {
		p.log.Criticalf("burn holder: %s  restore: %s %s  error: %s", holder.String(), c.FormatAmount(back.Total()), c, err)
	}
}

// Transfer - move stable between holders
func (p *Protocol) Transfer(from account.Account, to account.Account, c currency.Currency, amount currency.Amount) error {
	return p.positions.Transfer(from, to, c, amount)
}

// slices burned from other vaults repaid this vault's debt, so this
// vault's stable in circulation takes over their backing
func (p *Protocol) reback(id uuid.UUID, c currency.Currency, consumed position.Consumed) {
	remaining := p.positions.BackedBy(id, c)
	replacements := make([]position.Portion, 0, 4)
	for _, portion := range consumed.ByVault() {
		if id == portion.Vault || remaining <= 0 {
			continue
		}
		if portion.Amount > remaining {
			portion.Amount = remaining
		}
		remaining -= portion.Amount
		replacements = append(replacements, portion)
	}
	if 0 == len(replacements) {
		return
	}
	if err := p.positions.Reback(id, c, replacements); nil != err {
		p.log.Errorf("reback vault: %s  currency: %s  error: %s", id, c, err)
	}
}
