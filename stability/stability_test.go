// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stability_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/position"
	"github.com/bitmark-inc/bitstable/rates"
	"github.com/bitmark-inc/bitstable/stability"
	"github.com/bitmark-inc/bitstable/vault"
)

func holder(n byte) account.Account {
	key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{n}, ed25519.SeedSize))
	a, _ := account.FromPrivateKey(key, true)
	return *a
}

func TestFixedTarget(t *testing.T) {
	p := stability.NewPolicy(holder(1), uuid.New(), currency.USD, stability.Fixed(100000))

	items := []struct {
		balance  currency.Amount
		headroom currency.Amount
		kind     stability.Kind
		amount   currency.Amount
	}{
		{80000, 10000000, stability.Mint, 20000},
		{120000, 10000000, stability.Burn, 20000},
		{101000, 10000000, stability.None, 0},
		{98000, 10000000, stability.None, 0}, // exactly 2%
		{97999, 10000000, stability.Mint, 2001},
		{80000, 5000, stability.Mint, 5000}, // clamped to headroom
		{80000, 500, stability.None, 0},     // clamped below the minimum mint
		{80000, 0, stability.None, 0},       // no headroom
		{0, 10000000, stability.Mint, 100000},
	}

	for i, item := range items {
		action := p.Evaluate(stability.Inputs{
			Balance:     item.balance,
			Headroom:    item.headroom,
			MinimumMint: 1000,
		})
		assert.Equal(t, item.kind, action.Kind, "%d: kind", i)
		assert.Equal(t, item.amount, action.Amount, "%d: amount", i)
		assert.Equal(t, currency.USD, action.Currency, "%d: currency", i)
	}

	p.Enabled = false
	assert.Equal(t, stability.None, p.Evaluate(stability.Inputs{Balance: 0, Headroom: 10000000}).Kind, "disabled")
}

func TestPercentageTarget(t *testing.T) {
	p := stability.NewPolicy(holder(1), uuid.New(), currency.USD, stability.Percentage(decimal.RequireFromString("0.40")))

	// 1 BTC at 100000 plus 50000 stable, 40% is 60000
	in := stability.Inputs{
		Balance:     5000000,
		BTC:         satoshi.PerBitcoin,
		Price:       decimal.New(100000, 0),
		Headroom:    1666666,
		MinimumMint: 1000,
	}
	assert.Equal(t, currency.Amount(6000000), p.Desired(in), "desired")

	action := p.Evaluate(in)
	assert.Equal(t, stability.Mint, action.Kind, "kind")
	assert.Equal(t, currency.Amount(1000000), action.Amount, "amount")
	assert.Equal(t, "mint 10000.00 USD", action.String(), "string")

	// nothing held, desired is floored at one minor unit
	empty := stability.Inputs{Price: decimal.New(100000, 0)}
	assert.Equal(t, currency.Amount(0), p.Desired(empty), "empty desired")
	assert.True(t, p.Deviates(empty), "empty deviates")
	assert.Equal(t, stability.None, p.Evaluate(empty).Kind, "empty action")
}

func TestKindText(t *testing.T) {
	for _, k := range []stability.Kind{stability.None, stability.Mint, stability.Burn} {
		s, err := k.MarshalText()
		assert.Nil(t, err, "marshal: %s", k)
		var back stability.Kind
		assert.Nil(t, back.UnmarshalText(s), "unmarshal: %s", s)
		assert.Equal(t, k, back, "round trip")
	}
	var k stability.Kind
	assert.Equal(t, fault.InvalidCount, k.UnmarshalText([]byte("hold")), "unknown")
	assert.Equal(t, "unknown", stability.Kind(7).String(), "out of range")
}

type testClock struct {
	sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.Lock()
	defer c.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.Lock()
	c.now = c.now.Add(d)
	c.Unlock()
}

type fixture struct {
	portfolio *stability.Portfolio
	vaults    *vault.Ledger
	positions *position.Ledger
	rates     *rates.Table
	clock     *testClock
}

func newFixture(t *testing.T) *fixture {
	clock := &testClock{now: time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)}
	table := rates.New()
	registry := currency.NewRegistry()
	log := logger.New(category)

	vaults, err := vault.New(vault.DefaultConfig(), registry, table, nil, event.Discard, clock.Now, log)
	if nil != err {
		t.Fatalf("vault ledger error: %s", err)
	}
	positions, err := position.New(event.Discard, clock.Now, log)
	if nil != err {
		t.Fatalf("position ledger error: %s", err)
	}
	portfolio, err := stability.NewPortfolio(vaults, positions, table, registry, 2*time.Minute, clock.Now, log)
	if nil != err {
		t.Fatalf("portfolio error: %s", err)
	}
	_ = table.SetBTCPrice(currency.USD, decimal.New(100000, 0), clock.Now())

	return &fixture{
		portfolio: portfolio,
		vaults:    vaults,
		positions: positions,
		rates:     table,
		clock:     clock,
	}
}

// 1 BTC vault whose owner holds the 50000 minted at open
func (f *fixture) vault(t *testing.T, owner account.Account) vault.Vault {
	v, err := f.vaults.Open(owner, satoshi.PerBitcoin, currency.USD, 5000000)
	if nil != err {
		t.Fatalf("open error: %s", err)
	}
	v, err = f.vaults.Confirm(v.ID)
	if nil != err {
		t.Fatalf("confirm error: %s", err)
	}
	if err := f.positions.Credit(owner, v.ID, currency.USD, 5000000); nil != err {
		t.Fatalf("credit error: %s", err)
	}
	return v
}

func TestPortfolioEvaluate(t *testing.T) {
	f := newFixture(t)
	owner := holder(1)
	v := f.vault(t, owner)

	err := f.portfolio.Set(stability.NewPolicy(owner, v.ID, currency.USD, stability.Percentage(decimal.RequireFromString("0.40"))))
	assert.Nil(t, err, "set")

	action, err := f.portfolio.Evaluate(owner, currency.USD)
	assert.Nil(t, err, "evaluate")
	assert.Equal(t, stability.Mint, action.Kind, "kind")
	assert.Equal(t, currency.Amount(1000000), action.Amount, "amount")

	// a large fixed target is limited by the vault
	headroom, err := f.vaults.Headroom(v.ID, currency.USD)
	assert.Nil(t, err, "headroom")
	err = f.portfolio.Set(stability.NewPolicy(owner, v.ID, currency.USD, stability.Fixed(8000000)))
	assert.Nil(t, err, "replace")
	action, err = f.portfolio.Evaluate(owner, currency.USD)
	assert.Nil(t, err, "evaluate")
	assert.Equal(t, stability.Mint, action.Kind, "kind")
	assert.Equal(t, headroom, action.Amount, "clamped")

	err = f.portfolio.Set(stability.NewPolicy(owner, v.ID, currency.USD, stability.Fixed(4000000)))
	assert.Nil(t, err, "replace")
	action, err = f.portfolio.Evaluate(owner, currency.USD)
	assert.Nil(t, err, "evaluate")
	assert.Equal(t, stability.Burn, action.Kind, "kind")
	assert.Equal(t, currency.Amount(1000000), action.Amount, "burn")

	// a percentage target never uses a stale price
	err = f.portfolio.Set(stability.NewPolicy(owner, v.ID, currency.USD, stability.Percentage(decimal.RequireFromString("0.40"))))
	assert.Nil(t, err, "replace")
	f.clock.Advance(3 * time.Minute)
	_, err = f.portfolio.Evaluate(owner, currency.USD)
	assert.Equal(t, fault.StalePrice, err, "stale")

	_, err = f.portfolio.Evaluate(owner, currency.EUR)
	assert.Equal(t, fault.PolicyNotFound, err, "no policy")
}

func TestPercentageUsesHolderBTC(t *testing.T) {
	f := newFixture(t)
	owner := holder(1)
	v := f.vault(t, owner)

	err := f.portfolio.Set(stability.NewPolicy(owner, v.ID, currency.USD, stability.Percentage(decimal.RequireFromString("0.40"))))
	assert.Nil(t, err, "set")

	// 0.25 BTC held at 100000 plus 50000 stable, 40% is 30000
	assert.Nil(t, f.portfolio.Holdings().Set(owner, satoshi.PerBitcoin/4), "holding")
	action, err := f.portfolio.Evaluate(owner, currency.USD)
	assert.Nil(t, err, "evaluate")
	assert.Equal(t, stability.Burn, action.Kind, "kind")
	assert.Equal(t, currency.Amount(2000000), action.Amount, "burn to 40%")

	assert.Equal(t, fault.InvalidAmount, f.portfolio.Holdings().Set(owner, -1), "negative")
	assert.Equal(t, fault.InvalidAccount, f.portfolio.Holdings().Set(account.Account{}, 1), "zero holder")
	btc, ok := f.portfolio.Holdings().BTCBalance(holder(9))
	assert.False(t, ok, "nothing recorded")
	assert.Equal(t, satoshi.Amount(0), btc, "no balance")
}

func TestPortfolioValidation(t *testing.T) {
	f := newFixture(t)
	owner := holder(1)
	v := f.vault(t, owner)

	bad := stability.NewPolicy(owner, v.ID, currency.USD, stability.Fixed(0))
	assert.Equal(t, fault.InvalidTarget, f.portfolio.Set(bad), "zero target")

	bad = stability.NewPolicy(owner, v.ID, currency.USD, stability.Percentage(decimal.RequireFromString("1.5")))
	assert.Equal(t, fault.InvalidTarget, f.portfolio.Set(bad), "over 100%")

	bad = stability.NewPolicy(account.Account{}, v.ID, currency.USD, stability.Fixed(1000))
	assert.Equal(t, fault.InvalidAccount, f.portfolio.Set(bad), "zero holder")

	bad = stability.NewPolicy(owner, uuid.Nil, currency.USD, stability.Fixed(1000))
	assert.Equal(t, fault.InvalidVault, f.portfolio.Set(bad), "no vault")

	bad = stability.NewPolicy(owner, v.ID, currency.Nothing, stability.Fixed(1000))
	assert.Equal(t, fault.InvalidCurrency, f.portfolio.Set(bad), "no currency")

	bad = stability.NewPolicy(owner, v.ID, currency.USD, stability.Fixed(1000))
	bad.Threshold = decimal.New(-1, 0)
	assert.Equal(t, fault.InvalidRatio, f.portfolio.Set(bad), "negative threshold")

	// policies can only act on the holder's own vault
	other := holder(2)
	assert.Nil(t, f.portfolio.Set(stability.NewPolicy(other, v.ID, currency.USD, stability.Fixed(1000))), "set")
	_, err := f.portfolio.Evaluate(other, currency.USD)
	assert.Equal(t, fault.InvalidAccount, err, "not owner")

	assert.Nil(t, f.portfolio.Remove(other, currency.USD), "remove")
	assert.Equal(t, fault.PolicyNotFound, f.portfolio.Remove(other, currency.USD), "remove twice")
}

func TestEvaluateAll(t *testing.T) {
	f := newFixture(t)
	a := holder(1)
	b := holder(2)
	va := f.vault(t, a)
	vb := f.vault(t, b)

	assert.Nil(t, f.portfolio.Set(stability.NewPolicy(a, va.ID, currency.USD, stability.Fixed(5050000))), "within threshold")
	assert.Nil(t, f.portfolio.Set(stability.NewPolicy(b, vb.ID, currency.USD, stability.Fixed(4000000))), "above target")
	assert.Nil(t, f.portfolio.Set(stability.NewPolicy(b, vb.ID, currency.EUR, stability.Fixed(100000))), "no EUR price")

	assert.Equal(t, 3, len(f.portfolio.Policies(nil)), "all policies")
	assert.Equal(t, 2, len(f.portfolio.Policies(&b)), "b policies")

	decisions := f.portfolio.EvaluateAll()
	if !assert.Equal(t, 1, len(decisions), "decisions") {
		t.FailNow()
	}
	assert.Equal(t, vb.ID, decisions[0].Vault, "vault")
	assert.Equal(t, b.String(), decisions[0].Holder.String(), "holder")
	assert.Equal(t, stability.Burn, decisions[0].Action.Kind, "kind")
	assert.Equal(t, currency.Amount(1000000), decisions[0].Action.Amount, "amount")
}
