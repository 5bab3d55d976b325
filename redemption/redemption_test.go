// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package redemption_test

import (
	"sync"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/redemption"
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

var price = decimal.New(50000, 0)

func usd(s string) currency.Amount {
	a, err := currency.USD.ParseAmount(s)
	if nil != err {
		panic(err)
	}
	return a
}

func newEngine(t *testing.T, config redemption.Config) (*redemption.Engine, *event.MemoryStore, *testClock) {
	clock := &testClock{now: time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := event.NewMemoryStore()
	journal, err := event.NewJournal(store, 0, logger.New(category))
	if nil != err {
		t.Fatalf("journal error: %s", err)
	}
	e, err := redemption.New(config, journal, clock.Now, logger.New(category))
	if nil != err {
		t.Fatalf("engine error: %s", err)
	}
	return e, store, clock
}

// commit a quote as if the ledgers had been changed
func commit(t *testing.T, e *redemption.Engine, clock *testClock, q redemption.Quote) redemption.Redemption {
	r := redemption.Redemption{
		ID:        uuid.New(),
		Vault:     uuid.New(),
		Currency:  q.Currency,
		Amount:    q.Amount,
		FeeRate:   q.FeeRate,
		Fee:       q.Fee,
		Net:       q.Net,
		Price:     q.Price,
		BTC:       q.BTC,
		Timestamp: clock.Now(),
	}
	if err := e.Commit(r); nil != err {
		t.Fatalf("commit error: %s", err)
	}
	return r
}

func TestNewValidation(t *testing.T) {
	_, err := redemption.New(redemption.DefaultConfig(), nil, nil, nil)
	assert.Equal(t, fault.MissingParameters, err, "no logger")

	config := redemption.DefaultConfig()
	config.MaxFee = decimal.RequireFromString("0.001")
	_, err = redemption.New(config, nil, nil, logger.New(category))
	assert.Equal(t, fault.InvalidRatio, err, "max below base")

	config = redemption.DefaultConfig()
	config.DailyLimits[currency.JPY] = decimal.Zero
	_, err = redemption.New(config, nil, nil, logger.New(category))
	assert.Equal(t, fault.InvalidAmount, err, "zero limit")

	config = redemption.DefaultConfig()
	config.PressureWindow = 0
	_, err = redemption.New(config, nil, nil, logger.New(category))
	assert.Equal(t, fault.InvalidCount, err, "no window")
}

func TestQuoteBaseFee(t *testing.T) {
	e, _, _ := newEngine(t, redemption.DefaultConfig())

	q, err := e.Quote(currency.USD, usd("1000"), price)
	assert.Nil(t, err, "quote error")
	assert.Equal(t, "0.005", q.FeeRate.String(), "base rate with nothing used")
	assert.Equal(t, usd("5"), q.Fee, "fee")
	assert.Equal(t, usd("995"), q.Net, "net")
	assert.Equal(t, satoshi.Amount(1990000), q.BTC, "net at the BTC price")

	_, err = e.Quote(currency.USD, 0, price)
	assert.Equal(t, fault.InvalidAmount, err, "zero amount")
	_, err = e.Quote(currency.USD, usd("0.01"), price)
	assert.Equal(t, fault.InvalidAmount, err, "fee takes everything")
	_, err = e.Quote(currency.USD, usd("1000"), decimal.Zero)
	assert.Equal(t, fault.NoPrice, err, "no price")
	_, err = e.Quote(currency.Currency(99), usd("1000"), price)
	assert.Equal(t, fault.InvalidCurrency, err, "unknown currency")
}

func TestDailyLimit(t *testing.T) {
	e, _, clock := newEngine(t, redemption.DefaultConfig())

	q, err := e.Quote(currency.USD, usd("1000"), price)
	assert.Nil(t, err, "quote error")
	commit(t, e, clock, q)
	assert.Equal(t, usd("999000"), e.Remaining(currency.USD), "remaining")

	_, err = e.Quote(currency.USD, usd("999000.01"), price)
	assert.Equal(t, fault.RedemptionLimitExceeded, err, "over the limit")
	_, err = e.Quote(currency.USD, usd("999000"), price)
	assert.Nil(t, err, "exactly the limit")

	_, err = e.Estimate(currency.USD, usd("999000.01"), price)
	assert.Nil(t, err, "estimate ignores the limit")

	// each currency has its own limit
	eur, err := currency.EUR.ParseAmount("900000")
	assert.Nil(t, err, "parse error")
	_, err = e.Quote(currency.EUR, eur, price)
	assert.Nil(t, err, "EUR limit")
	_, err = e.Quote(currency.EUR, eur+1, price)
	assert.Equal(t, fault.RedemptionLimitExceeded, err, "over EUR limit")

	// the window resets at midnight UTC
	clock.Advance(11 * time.Hour)
	assert.Equal(t, usd("999000"), e.Remaining(currency.USD), "same day")
	clock.Advance(time.Hour)
	assert.Equal(t, usd("1000000"), e.Remaining(currency.USD), "next day")

	s := e.Statistics()
	assert.Equal(t, uint64(1), s.Executed, "executed")
	assert.Equal(t, uint64(2), s.Refused, "refused")
	assert.Equal(t, usd("1000"), s.Volume[currency.USD], "volume survives the reset")
	assert.Equal(t, 0, len(s.Used), "nothing used today")
}

func TestFeeRisesWithUsage(t *testing.T) {
	e, _, clock := newEngine(t, redemption.DefaultConfig())

	q, err := e.Quote(currency.USD, usd("501000"), price)
	assert.Nil(t, err, "quote error")
	commit(t, e, clock, q)
	assert.Equal(t, "1.1", e.Statistics().Multiplier.String(), "heavy volume raises the multiplier")

	// u = 0.501, rate = 0.005 · (1 + 0.251001 · 1.1)
	q, err = e.Quote(currency.USD, usd("1000"), price)
	assert.Nil(t, err, "quote error")
	assert.Equal(t, "0.0063805055", q.FeeRate.String(), "rate")
	assert.Equal(t, usd("6.39"), q.Fee, "fee rounds up")
	assert.Equal(t, usd("993.61"), q.Net, "net")

	config := redemption.DefaultConfig()
	config.MaxFee = decimal.RequireFromString("0.006")
	e, _, clock = newEngine(t, config)
	q, err = e.Quote(currency.USD, usd("900000"), price)
	assert.Nil(t, err, "quote error")
	commit(t, e, clock, q)
	q, err = e.Quote(currency.USD, usd("100"), price)
	assert.Nil(t, err, "quote error")
	assert.Equal(t, "0.006", q.FeeRate.String(), "capped")
}

func TestMultiplierDecays(t *testing.T) {
	config := redemption.DefaultConfig()
	config.PressureWindow = 2
	e, _, clock := newEngine(t, config)

	q, err := e.Quote(currency.USD, usd("200000"), price)
	assert.Nil(t, err, "quote error")
	commit(t, e, clock, q)
	assert.Equal(t, "1.1", e.Statistics().Multiplier.String(), "raised")

	q, err = e.Quote(currency.USD, usd("10"), price)
	assert.Nil(t, err, "quote error")
	commit(t, e, clock, q)
	assert.Equal(t, "1.21", e.Statistics().Multiplier.String(), "window still heavy")

	q, err = e.Quote(currency.USD, usd("10"), price)
	assert.Nil(t, err, "quote error")
	commit(t, e, clock, q)
	assert.Equal(t, "1.1979", e.Statistics().Multiplier.String(), "large one left the window")

	for i := 0; i < 20; i += 1 {
		q, err = e.Quote(currency.USD, usd("10"), price)
		assert.Nil(t, err, "quote error")
		commit(t, e, clock, q)
	}
	assert.Equal(t, "1", e.Statistics().Multiplier.String(), "floor of one")
}

func TestRedemptionReplay(t *testing.T) {
	e, store, clock := newEngine(t, redemption.DefaultConfig())

	first := make([]redemption.Redemption, 0, 3)
	for _, s := range []string{"1000", "200000", "50"} {
		q, err := e.Quote(currency.USD, usd(s), price)
		assert.Nil(t, err, "quote error")
		first = append(first, commit(t, e, clock, q))
		clock.Advance(time.Minute)
	}
	assert.Equal(t, 3, len(store.Records()), "records")

	restored, err := redemption.New(redemption.DefaultConfig(), nil, clock.Now, logger.New(category))
	assert.Nil(t, err, "engine error")
	err = store.Replay(0, restored.Apply)
	assert.Nil(t, err, "replay error")

	assert.Equal(t, e.Statistics(), restored.Statistics(), "statistics")
	assert.Equal(t, e.Remaining(currency.USD), restored.Remaining(currency.USD), "usage")

	recent := restored.Recent(2)
	assert.Equal(t, 2, len(recent), "recent count")
	assert.Equal(t, first[2].ID, recent[0].ID, "newest first")
	assert.Equal(t, first[1].ID, recent[1].ID, "then older")
	assert.Equal(t, 3, len(restored.Recent(10)), "all")

	err = restored.Apply(event.Record{Type: event.DebtChanged})
	assert.Equal(t, fault.UnknownEventType, err, "foreign record")
}
