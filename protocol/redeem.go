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
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/rates"
	"github.com/bitmark-inc/bitstable/redemption"
)

// EstimateRedemption - what a redemption would pay now, ignoring the
// daily limit
func (p *Protocol) EstimateRedemption(c currency.Currency, amount currency.Amount) (redemption.Quote, error) {
	if nil == p.redemptions {
		return redemption.Quote{}, fault.NotInitialised
	}
	snapshot, err := p.redemptionPrices(c)
	if nil != err {
		return redemption.Quote{}, err
	}
	entry, err := snapshot.BTCPrice(c)
	if nil != err {
		return redemption.Quote{}, err
	}
	return p.redemptions.Estimate(c, amount, entry.Price)
}

// Redeem - surrender stable for BTC at the current price less a fee
//
// the whole amount of debt is cleared from the lowest ratio vault
// still above its minimum and BTC worth the amount less the fee is
// released to the redeemer, so the fee stays in that vault as
// collateral.  The stable is burned FIFO like any holder burn.
func (p *Protocol) Redeem(ctx context.Context, redeemer account.Account, c currency.Currency, amount currency.Amount) (redemption.Redemption, error) {
	if nil == p.redemptions {
		return redemption.Redemption{}, fault.NotInitialised
	}
	if redeemer.IsZero() {
		return redemption.Redemption{}, fault.InvalidAccount
	}

	p.redeeming.Lock()
	defer p.redeeming.Unlock()

	now := p.clock()
	snapshot, err := p.redemptionPrices(c)
	if nil != err {
		return redemption.Redemption{}, err
	}
	entry, err := snapshot.BTCPrice(c)
	if nil != err {
		return redemption.Redemption{}, err
	}
	q, err := p.redemptions.Quote(c, amount, entry.Price)
	if nil != err {
		return redemption.Redemption{}, err
	}
	target, err := p.vaults.LowestRatio(c, amount, snapshot)
	if nil != err {
		return redemption.Redemption{}, err
	}

	consumed, err := p.positions.Burn(redeemer, c, amount)
	if nil != err {
		return redemption.Redemption{}, err
	}
	v, err := p.vaults.Redeem(target.ID, c, amount, q.BTC)
	if nil != err {
		p.restore(redeemer, c, consumed, nil)
		return redemption.Redemption{}, err
	}
	p.reback(v.ID, c, consumed)

	r := redemption.Redemption{
		ID:        uuid.New(),
		Redeemer:  redeemer,
		Vault:     v.ID,
		Currency:  c,
		Amount:    amount,
		FeeRate:   q.FeeRate,
		Fee:       q.Fee,
		Net:       q.Net,
		Price:     q.Price,
		BTC:       q.BTC,
		Timestamp: now,
	}
	if err := p.redemptions.Commit(r); nil != err {
		p.log.Criticalf("redemption: %s  vault: %s  journal error: %s", r.ID, v.ID, err)
	}
	return r, p.release(ctx, v.ID, redeemer, q.BTC, Redeemed)
}

func (p *Protocol) redemptionPrices(c currency.Currency) (rates.Snapshot, error) {
	snapshot := p.rates.Snapshot()
	if err := snapshot.Require(p.clock(), p.redemptions.Config().MaxPriceAge, c); nil != err {
		return rates.Snapshot{}, err
	}
	return snapshot, nil
}
