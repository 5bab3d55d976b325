// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package liquidation_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/liquidation"
	"github.com/bitmark-inc/bitstable/position"
	"github.com/bitmark-inc/bitstable/rates"
	"github.com/bitmark-inc/bitstable/settlement"
	"github.com/bitmark-inc/bitstable/vault"
)

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
	engine     *liquidation.Engine
	vaults     *vault.Ledger
	positions  *position.Ledger
	rates      *rates.Table
	clock      *testClock
	store      *event.MemoryStore
	liquidator account.Account
	funding    uuid.UUID // vault backing the liquidator's stable
	owners     byte
}

// caps that never bind unless a test lowers them
func testConfig() liquidation.Config {
	config := liquidation.DefaultConfig()
	config.RoundSupplyFraction = decimal.New(1, 0)
	config.HaltFraction = decimal.New(1, 0)
	return config
}

func newFixture(t *testing.T, config liquidation.Config, custody settlement.Custody) *fixture {
	clock := &testClock{now: time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)}
	table := rates.New()
	store := event.NewMemoryStore()
	log := logger.New(category)

	journal, err := event.NewJournal(store, 0, log)
	if nil != err {
		t.Fatalf("journal error: %s", err)
	}
	vaults, err := vault.New(vault.DefaultConfig(), currency.NewRegistry(), table, nil, journal, clock.Now, log)
	if nil != err {
		t.Fatalf("vault ledger error: %s", err)
	}
	positions, err := position.New(journal, clock.Now, log)
	if nil != err {
		t.Fatalf("position ledger error: %s", err)
	}
	engine, err := liquidation.New(config, vaults, positions, table, custody, journal, clock.Now, log)
	if nil != err {
		t.Fatalf("engine error: %s", err)
	}

	f := &fixture{
		engine:     engine,
		vaults:     vaults,
		positions:  positions,
		rates:      table,
		clock:      clock,
		store:      store,
		liquidator: holder(100),
		funding:    uuid.New(),
	}
	f.price("50000")
	return f
}

func holder(n byte) account.Account {
	key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{n}, ed25519.SeedSize))
	a, _ := account.FromPrivateKey(key, true)
	return *a
}

func usd(s string) currency.Amount {
	a, err := currency.USD.ParseAmount(s)
	if nil != err {
		panic(err)
	}
	return a
}

func (f *fixture) price(p string) {
	_ = f.rates.SetBTCPrice(currency.USD, decimal.RequireFromString(p), f.clock.Now())
}

// a live vault whose owner holds all of the issued stable
func (f *fixture) vault(t *testing.T, collateral string, debt string) vault.Vault {
	f.owners += 1
	owner := holder(f.owners)

	btc, err := satoshi.Parse(collateral)
	if nil != err {
		t.Fatalf("collateral: %s", err)
	}
	v, err := f.vaults.Open(owner, btc, currency.USD, usd(debt))
	if nil != err {
		t.Fatalf("open error: %s", err)
	}
	v, err = f.vaults.Confirm(v.ID)
	if nil != err {
		t.Fatalf("confirm error: %s", err)
	}
	if amount := usd(debt); amount > 0 {
		if err := f.positions.Credit(owner, v.ID, currency.USD, amount); nil != err {
			t.Fatalf("credit error: %s", err)
		}
	}
	return v
}

// give the liquidator stable to surrender
func (f *fixture) fund(t *testing.T, amount string) {
	if err := f.positions.Credit(f.liquidator, f.funding, currency.USD, usd(amount)); nil != err {
		t.Fatalf("fund error: %s", err)
	}
}

func (f *fixture) state(t *testing.T, id uuid.UUID) vault.State {
	v, err := f.vaults.Get(id)
	if nil != err {
		t.Fatalf("get error: %s", err)
	}
	return v.State
}
