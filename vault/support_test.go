// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault_test

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/rates"
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
	ledger   *vault.Ledger
	rates    *rates.Table
	registry *currency.Registry
	clock    *testClock
	store    *event.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	return newCachedFixture(t, nil)
}

// nil cache selects the default
func newCachedFixture(t *testing.T, cache vault.Cache) *fixture {
	clock := &testClock{now: time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)}
	table := rates.New()
	registry := currency.NewRegistry()
	store := event.NewMemoryStore()

	journal, err := event.NewJournal(store, 0, logger.New(category))
	if nil != err {
		t.Fatalf("journal error: %s", err)
	}

	ledger, err := vault.New(vault.DefaultConfig(), registry, table, cache, journal, clock.Now, logger.New(category))
	if nil != err {
		t.Fatalf("ledger error: %s", err)
	}

	f := &fixture{
		ledger:   ledger,
		rates:    table,
		registry: registry,
		clock:    clock,
		store:    store,
	}
	f.price(currency.USD, "50000")
	return f
}

func (f *fixture) price(c currency.Currency, price string) {
	_ = f.rates.SetBTCPrice(c, decimal.RequireFromString(price), f.clock.Now())
}

func owner(n byte) account.Account {
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

// open and confirm
func (f *fixture) live(t *testing.T, collateral string, debt string) vault.Vault {
	btc, err := satoshi.Parse(collateral)
	if nil != err {
		t.Fatalf("collateral: %s", err)
	}
	v, err := f.ledger.Open(owner(1), btc, currency.USD, usd(debt))
	if nil != err {
		t.Fatalf("open error: %s", err)
	}
	v, err = f.ledger.Confirm(v.ID)
	if nil != err {
		t.Fatalf("confirm error: %s", err)
	}
	return v
}
