// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package oracle_test

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/oracle"
	"github.com/bitmark-inc/bitstable/rates"
)

var usd = oracle.NewPair(currency.USD)

type testClock struct {
	sync.Mutex
	now time.Time
}

func newClock() *testClock {
	return &testClock{now: time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)}
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
	oracle *oracle.Oracle
	rates  *rates.Table
	clock  *testClock
	keys   map[string]ed25519.PrivateKey
}

func sourceName(i int) string {
	return fmt.Sprintf("source-%d", i)
}

func sourceKey(i int) ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(bytes.Repeat([]byte{byte(i + 1)}, ed25519.SeedSize))
}

// oracle with n bonded sources
func newFixture(t *testing.T, config oracle.Config, sink event.Sink, n int) *fixture {
	clock := newClock()
	table := rates.New()
	o, err := oracle.New(config, table, sink, clock.Now, logger.New(category))
	if nil != err {
		t.Fatalf("oracle.New error: %s", err)
	}

	f := &fixture{
		oracle: o,
		rates:  table,
		clock:  clock,
		keys:   make(map[string]ed25519.PrivateKey),
	}
	for i := 0; i < n; i += 1 {
		key := sourceKey(i)
		name := sourceName(i)
		f.keys[name] = key
		err := o.Register(name, key.Public().(ed25519.PublicKey), satoshi.PerBitcoin)
		if nil != err {
			t.Fatalf("register error: %s", err)
		}
	}
	return f
}

func (f *fixture) report(source string, pair oracle.Pair, price string) oracle.Report {
	r := oracle.Report{
		Source:    source,
		Pair:      pair,
		Price:     decimal.RequireFromString(price),
		Timestamp: f.clock.Now(),
	}
	if key, ok := f.keys[source]; ok {
		r.Sign(key)
	}
	return r
}

func (f *fixture) submit(i int, price string) (*oracle.Consensus, error) {
	return f.oracle.Submit(f.report(sourceName(i), usd, price))
}

// accept a price from sources first..first+2
func (f *fixture) establish(t *testing.T, first int, price string) {
	for i := first; i < first+3; i += 1 {
		c, err := f.submit(i, price)
		if nil != err {
			t.Fatalf("establish %s error: %s", price, err)
		}
		if i == first+2 && nil == c {
			t.Fatalf("establish %s: no consensus", price)
		}
	}
}
