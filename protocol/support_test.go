// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol_test

import (
	"bytes"
	"fmt"
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
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/liquidation"
	"github.com/bitmark-inc/bitstable/oracle"
	"github.com/bitmark-inc/bitstable/position"
	"github.com/bitmark-inc/bitstable/protocol"
	"github.com/bitmark-inc/bitstable/rates"
	"github.com/bitmark-inc/bitstable/redemption"
	"github.com/bitmark-inc/bitstable/settlement"
	"github.com/bitmark-inc/bitstable/stability"
	"github.com/bitmark-inc/bitstable/vault"
)

const sources = 5

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

type system struct {
	protocol    *protocol.Protocol
	vaults      *vault.Ledger
	positions   *position.Ledger
	oracle      *oracle.Oracle
	engine      *liquidation.Engine
	portfolio   *stability.Portfolio
	redemptions *redemption.Engine
	rates       *rates.Table
}

// every component over one sink
func build(t *testing.T, sink event.Sink, custody settlement.Custody, clock *testClock) *system {
	log := logger.New(category)
	table := rates.New()
	registry := currency.NewRegistry()

	o, err := oracle.New(oracle.DefaultConfig(), table, sink, clock.Now, log)
	if nil != err {
		t.Fatalf("oracle error: %s", err)
	}
	vaults, err := vault.New(vault.DefaultConfig(), registry, table, vault.NewCache(time.Minute), sink, clock.Now, log)
	if nil != err {
		t.Fatalf("vault ledger error: %s", err)
	}
	positions, err := position.New(sink, clock.Now, log)
	if nil != err {
		t.Fatalf("position ledger error: %s", err)
	}
	config := liquidation.DefaultConfig()
	config.RoundSupplyFraction = decimal.New(1, 0)
	engine, err := liquidation.New(config, vaults, positions, table, custody, sink, clock.Now, log)
	if nil != err {
		t.Fatalf("engine error: %s", err)
	}
	portfolio, err := stability.NewPortfolio(vaults, positions, table, registry, 2*time.Minute, clock.Now, log)
	if nil != err {
		t.Fatalf("portfolio error: %s", err)
	}
	redemptions, err := redemption.New(redemption.DefaultConfig(), sink, clock.Now, log)
	if nil != err {
		t.Fatalf("redemption error: %s", err)
	}
	p, err := protocol.New(protocol.Components{
		Vaults:      vaults,
		Positions:   positions,
		Oracle:      o,
		Engine:      engine,
		Portfolio:   portfolio,
		Redemptions: redemptions,
		Rates:       table,
		Custody:     custody,
		Sink:        sink,
		Clock:       clock.Now,
	}, 5*time.Second, log)
	if nil != err {
		t.Fatalf("protocol error: %s", err)
	}
	return &system{
		protocol:    p,
		vaults:      vaults,
		positions:   positions,
		oracle:      o,
		engine:      engine,
		portfolio:   portfolio,
		redemptions: redemptions,
		rates:       table,
	}
}

type fixture struct {
	*system
	custody *settlement.Simulator
	store   *event.MemoryStore
	clock   *testClock
	keys    []ed25519.PrivateKey
}

func newFixture(t *testing.T, outcome settlement.Outcome) *fixture {
	clock := &testClock{now: time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := event.NewMemoryStore()
	journal, err := event.NewJournal(store, 0, logger.New(category))
	if nil != err {
		t.Fatalf("journal error: %s", err)
	}
	custody, err := settlement.NewSimulator(16, outcome, logger.New(category))
	if nil != err {
		t.Fatalf("simulator error: %s", err)
	}

	f := &fixture{
		system:  build(t, journal, custody, clock),
		custody: custody,
		store:   store,
		clock:   clock,
	}
	for i := 0; i < sources; i += 1 {
		key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{byte(200 + i)}, ed25519.SeedSize))
		f.keys = append(f.keys, key)
		if err := f.oracle.Register(sourceName(i), key.Public().(ed25519.PublicKey), satoshi.PerBitcoin); nil != err {
			t.Fatalf("register error: %s", err)
		}
	}
	f.price(t, "50000")
	return f
}

func sourceName(i int) string {
	return fmt.Sprintf("exchange-%d", i)
}

// reach consensus on a USD price, approving a circuit breaker hold
func (f *fixture) price(t *testing.T, price string) {
	f.clock.Advance(time.Second)
	pair := oracle.NewPair(currency.USD)
	for i, key := range f.keys {
		r := oracle.Report{
			Source:    sourceName(i),
			Pair:      pair,
			Price:     decimal.RequireFromString(price),
			Timestamp: f.clock.Now(),
		}
		r.Sign(key)
		c, err := f.oracle.Submit(r)
		if fault.CircuitBreakerTripped == err {
			if _, err := f.oracle.ApproveOverride(pair); nil != err {
				t.Fatalf("override error: %s", err)
			}
			return
		}
		if nil != err {
			t.Fatalf("submit %s error: %s", price, err)
		}
		if nil != c {
			return
		}
	}
	t.Fatalf("no consensus on: %s", price)
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

func btc(s string) satoshi.Amount {
	a, err := satoshi.Parse(s)
	if nil != err {
		panic(err)
	}
	return a
}

// an open and confirmed vault
func (f *fixture) vault(t *testing.T, owner account.Account, collateral string, debt string) vault.Vault {
	v, err := f.protocol.Open(owner, btc(collateral), currency.USD, usd(debt))
	if nil != err {
		t.Fatalf("open error: %s", err)
	}
	v, err = f.protocol.Confirm(v.ID)
	if nil != err {
		t.Fatalf("confirm error: %s", err)
	}
	return v
}
