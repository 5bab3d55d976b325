// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/background"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/oracle"
	"github.com/bitmark-inc/bitstable/position"
	"github.com/bitmark-inc/bitstable/protocol"
	"github.com/bitmark-inc/bitstable/settlement"
	"github.com/bitmark-inc/bitstable/stability"
	"github.com/bitmark-inc/bitstable/vault"
)

func TestConfirmCreditsOpeningDebt(t *testing.T) {
	f := newFixture(t, nil)
	owner := holder(1)

	v, err := f.protocol.Open(owner, btc("1"), currency.USD, usd("30000"))
	assert.Nil(t, err, "open")
	assert.Equal(t, vault.Pending, v.State, "pending")
	assert.Equal(t, currency.Amount(0), f.positions.Balance(owner, currency.USD), "nothing before confirm")

	_, err = f.protocol.Mint(v.ID, currency.USD, usd("100"))
	assert.Equal(t, fault.VaultPending, err, "mint while pending")

	v, err = f.protocol.Confirm(v.ID)
	assert.Nil(t, err, "confirm")
	assert.Equal(t, vault.Active, v.State, "active")
	assert.Equal(t, usd("30000"), f.positions.Balance(owner, currency.USD), "credited")
	assert.Equal(t, usd("30000"), f.positions.BackedBy(v.ID, currency.USD), "backed")

	_, err = f.protocol.Confirm(v.ID)
	assert.Equal(t, fault.InvalidVaultState, err, "confirm twice")
	assert.Equal(t, usd("30000"), f.positions.Balance(owner, currency.USD), "credited once")
}

func TestMintAndRepay(t *testing.T) {
	f := newFixture(t, nil)
	owner := holder(1)
	v := f.vault(t, owner, "1", "30000")

	v, err := f.protocol.Mint(v.ID, currency.USD, usd("2000"))
	assert.Nil(t, err, "mint")
	assert.Equal(t, usd("32000"), v.Debt[currency.USD], "debt")
	assert.Equal(t, usd("32000"), f.positions.Balance(owner, currency.USD), "balance")

	_, err = f.protocol.Mint(v.ID, currency.USD, usd("5000"))
	assert.Equal(t, fault.InsufficientCollateral, err, "mint above minimum ratio")
	assert.Equal(t, usd("32000"), f.positions.Balance(owner, currency.USD), "balance unchanged")

	v, err = f.protocol.Repay(owner, v.ID, currency.USD, usd("12000"))
	assert.Nil(t, err, "burn")
	assert.Equal(t, usd("20000"), v.Debt[currency.USD], "debt after burn")
	assert.Equal(t, usd("20000"), f.positions.Balance(owner, currency.USD), "balance after burn")

	_, err = f.protocol.Repay(holder(2), v.ID, currency.USD, usd("1"))
	assert.Equal(t, fault.InvalidAccount, err, "repay needs the owner")

	_, err = f.protocol.Repay(owner, v.ID, currency.USD, usd("20001"))
	assert.Equal(t, fault.InsufficientBalance, err, "more than held")
}

func TestRepayRestoresOnFailure(t *testing.T) {
	f := newFixture(t, nil)
	owner := holder(1)
	other := holder(2)
	v := f.vault(t, owner, "1", "10000")
	w := f.vault(t, other, "1", "20000")

	// owner holds more stable than the vault owes
	assert.Nil(t, f.protocol.Transfer(other, owner, currency.USD, usd("5000")), "transfer")
	before := f.positions.Slices(owner, currency.USD)

	_, err := f.protocol.Repay(owner, v.ID, currency.USD, usd("12000"))
	assert.Equal(t, fault.ExceedsDebt, err, "exceeds debt")
	assert.Equal(t, before, f.positions.Slices(owner, currency.USD), "slices restored")
	assert.Equal(t, usd("20000"), f.positions.BackedBy(w.ID, currency.USD), "other backing")
}

func TestRepayRebacks(t *testing.T) {
	f := newFixture(t, nil)
	a := holder(1)
	b := holder(2)
	c := holder(3)
	va := f.vault(t, a, "1", "30000")
	vb := f.vault(t, b, "1", "30000")

	// a's own stable circulates elsewhere and a repays with b's
	assert.Nil(t, f.protocol.Transfer(a, c, currency.USD, usd("30000")), "transfer a->c")
	assert.Nil(t, f.protocol.Transfer(b, a, currency.USD, usd("1000")), "transfer b->a")

	v, err := f.protocol.Repay(a, va.ID, currency.USD, usd("1000"))
	assert.Nil(t, err, "burn")
	assert.Equal(t, usd("29000"), v.Debt[currency.USD], "debt")

	// backed amounts never exceed debt
	assert.Equal(t, usd("29000"), f.positions.BackedBy(va.ID, currency.USD), "a backing")
	assert.Equal(t, usd("30000"), f.positions.BackedBy(vb.ID, currency.USD), "b backing")
	assert.Equal(t, usd("30000"), f.positions.Balance(c, currency.USD), "c balance")
	assert.Equal(t, usd("59000"), f.positions.TotalSupply(currency.USD), "supply")
}

// a holder that owns no vault burns stable backed by two vaults
func TestHolderBurn(t *testing.T) {
	f := newFixture(t, nil)
	a := holder(1)
	b := holder(2)
	c := holder(3)
	va := f.vault(t, a, "1", "10000")
	vb := f.vault(t, b, "1", "20000")

	assert.Nil(t, f.protocol.Transfer(a, c, currency.USD, usd("4000")), "transfer a->c")
	assert.Nil(t, f.protocol.Transfer(b, c, currency.USD, usd("6000")), "transfer b->c")

	portions, err := f.protocol.Burn(c, currency.USD, usd("7000"))
	assert.Nil(t, err, "burn")
	assert.Equal(t, []position.Portion{
		{Vault: va.ID, Amount: usd("4000")},
		{Vault: vb.ID, Amount: usd("3000")},
	}, portions, "FIFO portions")

	va, _ = f.vaults.Get(va.ID)
	vb, _ = f.vaults.Get(vb.ID)
	assert.Equal(t, usd("6000"), va.Debt[currency.USD], "a debt")
	assert.Equal(t, usd("17000"), vb.Debt[currency.USD], "b debt")
	assert.Equal(t, usd("3000"), f.positions.Balance(c, currency.USD), "c balance")
	assert.Equal(t, usd("6000"), f.positions.BackedBy(va.ID, currency.USD), "a backing")
	assert.Equal(t, usd("17000"), f.positions.BackedBy(vb.ID, currency.USD), "b backing")
	assert.Equal(t, usd("23000"), f.positions.TotalSupply(currency.USD), "supply")

	_, err = f.protocol.Burn(c, currency.USD, usd("3000.01"))
	assert.Equal(t, fault.InsufficientBalance, err, "more than held")
	_, err = f.protocol.Burn(c, currency.USD, 0)
	assert.Equal(t, fault.InvalidAmount, err, "zero")
}

func TestHolderBurnRestoresOnFailure(t *testing.T) {
	f := newFixture(t, nil)
	a := holder(1)
	b := holder(2)
	c := holder(3)
	va := f.vault(t, a, "1", "10000")
	vb := f.vault(t, b, "1", "20000")

	assert.Nil(t, f.protocol.Transfer(a, c, currency.USD, usd("4000")), "transfer a->c")
	assert.Nil(t, f.protocol.Transfer(b, c, currency.USD, usd("6000")), "transfer b->c")
	_, err := f.vaults.BeginLiquidation(vb.ID, func(vault.Vault) (bool, error) { return true, nil })
	assert.Nil(t, err, "stage b")

	before := f.positions.Slices(c, currency.USD)

	// va is repaid, vb is locked so its part comes back
	portions, err := f.protocol.Burn(c, currency.USD, usd("7000"))
	assert.Equal(t, fault.VaultLocked, err, "liquidating vault")
	assert.Equal(t, []position.Portion{{Vault: va.ID, Amount: usd("4000")}}, portions, "repaid portions")

	assert.Equal(t, before[1:], f.positions.Slices(c, currency.USD), "vb slice restored")
	assert.Equal(t, usd("6000"), f.positions.Balance(c, currency.USD), "c balance")

	va, _ = f.vaults.Get(va.ID)
	vb, _ = f.vaults.Get(vb.ID)
	assert.Equal(t, usd("6000"), va.Debt[currency.USD], "a repaid")
	assert.Equal(t, usd("20000"), vb.Debt[currency.USD], "b unchanged")
}

func TestReleases(t *testing.T) {
	f := newFixture(t, nil)
	owner := holder(1)
	ctx := context.Background()

	pending, err := f.protocol.Open(owner, btc("0.5"), currency.USD, 0)
	assert.Nil(t, err, "open")
	_, err = f.protocol.Cancel(ctx, pending.ID)
	assert.Nil(t, err, "cancel")

	v := f.vault(t, owner, "1", "20000")
	_, err = f.protocol.Withdraw(ctx, v.ID, btc("0.2"))
	assert.Nil(t, err, "withdraw")

	_, err = f.protocol.Close(ctx, v.ID)
	assert.Equal(t, fault.OutstandingDebt, err, "close with debt")

	_, err = f.protocol.Repay(owner, v.ID, currency.USD, usd("20000"))
	assert.Nil(t, err, "repay all")
	closed, err := f.protocol.Close(ctx, v.ID)
	assert.Nil(t, err, "close")
	assert.Equal(t, vault.Closed, closed.State, "closed")

	releases := f.protocol.Releases()
	assert.Equal(t, 3, len(releases), "releases")
	total := satoshi.Amount(0)
	reasons := map[protocol.Reason]satoshi.Amount{}
	for _, r := range releases {
		total += r.Amount
		reasons[r.Reason] = r.Amount
		assert.Equal(t, 1, r.Attempts, "attempts")
		assert.NotEqual(t, settlement.ID(""), r.Settlement, "settlement id")
	}
	assert.Equal(t, btc("1.5"), total, "total released")
	assert.Equal(t, btc("0.5"), reasons[protocol.Cancelled], "cancel")
	assert.Equal(t, btc("0.2"), reasons[protocol.Withdrawn], "withdraw")
	assert.Equal(t, btc("0.8"), reasons[protocol.Closed], "close")

	for _, r := range f.custody.Unresolved() {
		assert.Nil(t, f.custody.Resolve(ctx, r.Intent, true, true, ""), "resolve")
		assert.Nil(t, f.protocol.Route(ctx, <-f.custody.Results()), "route")
	}
	assert.Equal(t, 0, len(f.protocol.Releases()), "all confirmed")
	assert.Equal(t, uint64(3), f.protocol.Statistics().Released, "released")
}

func TestReleaseFailureRetries(t *testing.T) {
	failing := int32(1)
	f := newFixture(t, func(settlement.Request) (bool, bool, string) {
		if 1 == atomic.LoadInt32(&failing) {
			return false, false, "custody rejected"
		}
		return true, true, ""
	})
	owner := holder(1)
	ctx := context.Background()

	v := f.vault(t, owner, "1", "0")
	_, err := f.protocol.Close(ctx, v.ID)
	assert.Nil(t, err, "close")

	assert.Equal(t, fault.SettlementFailed, f.protocol.Route(ctx, <-f.custody.Results()), "failed")
	releases := f.protocol.Releases()
	if !assert.Equal(t, 1, len(releases), "releases") {
		t.FailNow()
	}
	assert.True(t, releases[0].Failed, "failed")
	assert.Equal(t, "custody rejected", releases[0].Error, "error")

	atomic.StoreInt32(&failing, 0)
	assert.Nil(t, f.protocol.RetryRelease(ctx, releases[0].Intent), "retry")
	assert.Nil(t, f.protocol.Route(ctx, <-f.custody.Results()), "confirmed")
	assert.Equal(t, 0, len(f.protocol.Releases()), "cleared")

	assert.Equal(t, fault.SettlementNotFound, f.protocol.RetryRelease(ctx, releases[0].Intent), "retry cleared")
	assert.Equal(t, fault.SettlementNotFound, f.protocol.Route(ctx, settlement.Result{Kind: settlement.Release}), "orphan")
	assert.Equal(t, fault.InvalidSettlementKind, f.protocol.Route(ctx, settlement.Result{}), "no kind")
	assert.Equal(t, uint64(2), f.protocol.Statistics().Orphans, "orphans")
}

func TestLiquidationReleasesSurplus(t *testing.T) {
	f := newFixture(t, settlement.ConfirmAll)
	owner := holder(1)
	liquidator := holder(9)
	ctx := context.Background()

	v := f.vault(t, owner, "1", "30000")
	w := f.vault(t, liquidator, "10", "100000")

	f.price(t, "37500")
	report, err := f.engine.Round(ctx, liquidator)
	assert.Nil(t, err, "round")
	assert.Equal(t, 1, report.Staged, "staged")

	assert.Nil(t, f.protocol.Route(ctx, <-f.custody.Results()), "seize result")
	liquidated, err := f.vaults.Get(v.ID)
	assert.Nil(t, err, "get")
	assert.Equal(t, vault.Liquidated, liquidated.State, "liquidated")

	releases := f.protocol.Releases()
	if !assert.Equal(t, 1, len(releases), "surplus release") {
		t.FailNow()
	}
	assert.Equal(t, protocol.Surplus, releases[0].Reason, "reason")
	assert.Equal(t, satoshi.Amount(15952706), releases[0].Amount, "surplus")
	assert.Equal(t, owner.String(), releases[0].Owner.String(), "owner")

	assert.Nil(t, f.protocol.Route(ctx, <-f.custody.Results()), "release result")
	assert.Equal(t, 0, len(f.protocol.Releases()), "released")

	// the owner's stable is now backed by the liquidator's vault
	assert.Equal(t, usd("30000"), f.positions.Balance(owner, currency.USD), "owner balance")
	assert.Equal(t, currency.Amount(0), f.positions.BackedBy(v.ID, currency.USD), "seized vault backing")
	assert.Equal(t, usd("100000"), f.positions.BackedBy(w.ID, currency.USD), "liquidator vault backing")
	assert.Equal(t, usd("70000"), f.positions.Balance(liquidator, currency.USD), "liquidator balance")
}

func TestRouterProcess(t *testing.T) {
	f := newFixture(t, settlement.ConfirmAll)
	owner := holder(1)

	processes := background.Start(background.Processes{f.protocol.Router()}, nil)
	defer processes.Stop()

	v := f.vault(t, owner, "1", "0")
	_, err := f.protocol.Close(context.Background(), v.ID)
	assert.Nil(t, err, "close")

	deadline := time.Now().Add(2 * time.Second)
	for len(f.protocol.Releases()) > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 0, len(f.protocol.Releases()), "routed")
	assert.Equal(t, uint64(1), f.protocol.Statistics().Released, "released")
}

func TestRebalance(t *testing.T) {
	f := newFixture(t, nil)
	a := holder(1)
	b := holder(2)
	va := f.vault(t, a, "1", "30000")
	vb := f.vault(t, b, "1", "30000")

	assert.Nil(t, f.portfolio.Set(stability.NewPolicy(a, va.ID, currency.USD, stability.Fixed(usd("31000")))), "policy a")
	assert.Nil(t, f.portfolio.Set(stability.NewPolicy(b, vb.ID, currency.USD, stability.Fixed(usd("20000")))), "policy b")

	outcomes, err := f.protocol.Rebalance()
	assert.Nil(t, err, "rebalance")
	assert.Equal(t, 2, len(outcomes), "outcomes")
	for _, o := range outcomes {
		assert.Equal(t, "", o.Error, "outcome error")
	}

	assert.Equal(t, usd("31000"), f.positions.Balance(a, currency.USD), "a balance")
	assert.Equal(t, usd("20000"), f.positions.Balance(b, currency.USD), "b balance")
	vb, err = f.vaults.Get(vb.ID)
	assert.Nil(t, err, "get")
	assert.Equal(t, usd("20000"), vb.Debt[currency.USD], "b debt")

	outcomes, err = f.protocol.Rebalance()
	assert.Nil(t, err, "second rebalance")
	assert.Equal(t, 0, len(outcomes), "nothing to do")
}

func TestReplay(t *testing.T) {
	f := newFixture(t, nil)
	owner := holder(1)
	liquidator := holder(9)
	ctx := context.Background()

	v := f.vault(t, owner, "1", "30000")
	f.vault(t, liquidator, "10", "100000")
	assert.Nil(t, f.protocol.Transfer(liquidator, holder(3), currency.USD, usd("2500")), "transfer")
	_, err := f.protocol.Mint(v.ID, currency.USD, usd("500"))
	assert.Nil(t, err, "mint")

	f.price(t, "37500")
	_, err = f.engine.Round(ctx, liquidator)
	assert.Nil(t, err, "round")
	staged := f.engine.Pending()

	replayed := build(t, event.Discard, f.custody, f.clock)
	n, err := replayed.protocol.Replay(f.store)
	assert.Nil(t, err, "replay")
	assert.Equal(t, len(f.store.Records()), n, "records")

	for _, original := range f.vaults.List() {
		rebuilt, err := replayed.vaults.Get(original.ID)
		assert.Nil(t, err, "vault: %s", original.ID)
		assert.Equal(t, original.State, rebuilt.State, "state")
		assert.Equal(t, original.Collateral, rebuilt.Collateral, "collateral")
		assert.Equal(t, original.Debt, rebuilt.Debt, "debt")
	}
	for _, h := range f.positions.Holders() {
		assert.Equal(t, f.positions.Slices(h, currency.USD), replayed.positions.Slices(h, currency.USD), "slices: %s", h.String())
	}
	assert.Equal(t, f.positions.TotalSupply(currency.USD), replayed.positions.TotalSupply(currency.USD), "supply")

	price, _, err := replayed.oracle.CurrentPrice(oracle.NewPair(currency.USD))
	assert.Nil(t, err, "price")
	assert.True(t, decimal.New(37500, 0).Equal(price), "price: %s", price)
	entry, err := replayed.rates.Snapshot().BTCPrice(currency.USD)
	assert.Nil(t, err, "rates")
	assert.True(t, entry.Price.Equal(price), "rates price")
	assert.Equal(t, sources, len(replayed.oracle.Sources()), "sources")

	pending := replayed.engine.Pending()
	if !assert.Equal(t, len(staged), len(pending), "pending") || 0 == len(pending) {
		t.FailNow()
	}
	assert.Equal(t, staged[0].Intent, pending[0].Intent, "intent")
	assert.Equal(t, staged[0].Seized, pending[0].Seized, "seized")

	// custody deduplicates the resubmitted intent
	assert.Equal(t, 1, replayed.protocol.Resubmit(ctx), "resubmitted")
	assert.Equal(t, 1, len(f.custody.Unresolved()), "one request")
}

func TestReplayReleases(t *testing.T) {
	f := newFixture(t, nil)
	owner := holder(1)
	ctx := context.Background()

	v := f.vault(t, owner, "1", "0")
	w := f.vault(t, owner, "2", "0")
	_, err := f.protocol.Close(ctx, v.ID)
	assert.Nil(t, err, "close")
	_, err = f.protocol.Withdraw(ctx, w.ID, btc("0.3"))
	assert.Nil(t, err, "withdraw")

	// only the withdrawal is confirmed before the restart
	var closing uuid.UUID
	for _, r := range f.protocol.Releases() {
		if protocol.Closed == r.Reason {
			closing = r.Intent
			continue
		}
		assert.Nil(t, f.custody.Resolve(ctx, r.Intent, true, true, ""), "resolve")
		assert.Nil(t, f.protocol.Route(ctx, <-f.custody.Results()), "route")
	}
	assert.Equal(t, 1, len(f.protocol.Releases()), "one unconfirmed")

	custody, err := settlement.NewSimulator(4, nil, logger.New(category))
	assert.Nil(t, err, "simulator")
	replayed := build(t, event.Discard, custody, f.clock)
	_, err = replayed.protocol.Replay(f.store)
	assert.Nil(t, err, "replay")

	releases := replayed.protocol.Releases()
	if !assert.Equal(t, 1, len(releases), "replayed releases") {
		t.FailNow()
	}
	assert.Equal(t, closing, releases[0].Intent, "intent")
	assert.Equal(t, btc("1"), releases[0].Amount, "amount")
	assert.Equal(t, owner.String(), releases[0].Owner.String(), "owner")
	assert.Equal(t, 0, releases[0].Attempts, "not yet submitted")

	assert.Equal(t, 1, replayed.protocol.Resubmit(ctx), "resubmitted")
	requests := custody.Unresolved()
	if !assert.Equal(t, 1, len(requests), "requests") {
		t.FailNow()
	}
	assert.Equal(t, closing, requests[0].Intent, "same intent")
	assert.Equal(t, settlement.Release, requests[0].Kind, "kind")
	assert.Equal(t, btc("1"), requests[0].Amount, "amount")
}

func TestRedeemFromLowestRatio(t *testing.T) {
	f := newFixture(t, nil)
	a := holder(1)
	b := holder(2)
	r := holder(3)
	ctx := context.Background()
	va := f.vault(t, a, "1", "30000")
	vb := f.vault(t, b, "1", "20000")
	assert.Nil(t, f.protocol.Transfer(b, r, currency.USD, usd("5000")), "transfer b->r")

	estimate, err := f.protocol.EstimateRedemption(currency.USD, usd("5000"))
	assert.Nil(t, err, "estimate")

	done, err := f.protocol.Redeem(ctx, r, currency.USD, usd("5000"))
	assert.Nil(t, err, "redeem")
	assert.Equal(t, va.ID, done.Vault, "lowest ratio vault")
	assert.Equal(t, usd("25"), done.Fee, "fee")
	assert.Equal(t, usd("4975"), done.Net, "net")
	assert.Equal(t, btc("0.0995"), done.BTC, "btc")
	assert.Equal(t, estimate.BTC, done.BTC, "estimate matches")

	va, _ = f.vaults.Get(va.ID)
	vb, _ = f.vaults.Get(vb.ID)
	assert.Equal(t, usd("25000"), va.Debt[currency.USD], "whole amount cleared")
	assert.Equal(t, btc("0.9005"), va.Collateral, "fee stays in the vault")
	assert.Equal(t, usd("20000"), vb.Debt[currency.USD], "other vault untouched")

	assert.Equal(t, currency.Amount(0), f.positions.Balance(r, currency.USD), "redeemer balance")
	assert.Equal(t, usd("45000"), f.positions.TotalSupply(currency.USD), "supply")
	assert.Equal(t, usd("25000"), f.positions.BackedBy(va.ID, currency.USD), "redeemed vault backing")
	assert.Equal(t, usd("20000"), f.positions.BackedBy(vb.ID, currency.USD), "burned backing replaced")

	releases := f.protocol.Releases()
	if !assert.Equal(t, 1, len(releases), "releases") {
		t.FailNow()
	}
	assert.Equal(t, protocol.Redeemed, releases[0].Reason, "reason")
	assert.Equal(t, r.String(), releases[0].Owner.String(), "paid to the redeemer")
	assert.Equal(t, va.ID, releases[0].Vault, "from the redeemed vault")
	assert.Equal(t, btc("0.0995"), releases[0].Amount, "amount")

	assert.Equal(t, usd("995000"), f.redemptions.Remaining(currency.USD), "limit used")
	recent := f.redemptions.Recent(1)
	assert.Equal(t, 1, len(recent), "recorded")
	assert.Equal(t, done.ID, recent[0].ID, "recorded id")

	replayed := build(t, event.Discard, f.custody, f.clock)
	_, err = replayed.protocol.Replay(f.store)
	assert.Nil(t, err, "replay")
	assert.Equal(t, uint64(1), replayed.redemptions.Statistics().Executed, "replayed redemptions")
	assert.Equal(t, usd("995000"), replayed.redemptions.Remaining(currency.USD), "replayed usage")
	assert.Equal(t, 1, len(replayed.protocol.Releases()), "replayed release")
}

func TestRedeemRefusals(t *testing.T) {
	f := newFixture(t, nil)
	a := holder(1)
	r := holder(3)
	ctx := context.Background()
	va := f.vault(t, a, "30", "600000")
	assert.Nil(t, f.protocol.Transfer(a, r, currency.USD, usd("1000")), "transfer a->r")
	records := len(f.store.Records())

	_, err := f.protocol.Redeem(ctx, account.Account{}, currency.USD, usd("100"))
	assert.Equal(t, fault.InvalidAccount, err, "no redeemer")
	_, err = f.protocol.Redeem(ctx, r, currency.USD, usd("1000.01"))
	assert.Equal(t, fault.InsufficientBalance, err, "more than held")
	_, err = f.protocol.Redeem(ctx, a, currency.USD, usd("1000000.01"))
	assert.Equal(t, fault.RedemptionLimitExceeded, err, "over the daily limit")
	_, err = f.protocol.Redeem(ctx, r, currency.EUR, 100)
	assert.Equal(t, fault.NoPrice, err, "no EUR price")
	assert.Equal(t, records, len(f.store.Records()), "nothing journalled")

	// vault a is the only vault and falls below its minimum
	f.price(t, "29000")
	_, err = f.protocol.Redeem(ctx, r, currency.USD, usd("100"))
	assert.Equal(t, fault.NoRedemptionTarget, err, "no vault above minimum")
	assert.Equal(t, usd("1000"), f.positions.Balance(r, currency.USD), "nothing burned")

	f.clock.Advance(3 * time.Minute)
	_, err = f.protocol.Redeem(ctx, r, currency.USD, usd("100"))
	assert.Equal(t, fault.StalePrice, err, "stale price")

	got, _ := f.vaults.Get(va.ID)
	assert.Equal(t, usd("600000"), got.Debt[currency.USD], "debt unchanged")
}
