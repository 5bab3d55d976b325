// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package oracle_test

import (
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/oracle"
	"github.com/bitmark-inc/bitstable/rates"
)

func TestQuorumIgnoresOutliers(t *testing.T) {
	f := newFixture(t, oracle.DefaultConfig(), nil, 5)

	prices := []string{"60000", "40000", "50000", "50100"}
	for i, p := range prices {
		c, err := f.submit(i, p)
		assert.Nil(t, err, "submit %s error", p)
		assert.Nil(t, c, "consensus too early at %s", p)
	}

	_, err := f.oracle.Current(usd)
	assert.Equal(t, fault.NoPrice, err, "two agreeing reports must not set a price")

	c, err := f.submit(4, "50050")
	assert.Nil(t, err, "submit error")
	if assert.NotNil(t, c, "no consensus") {
		assert.Equal(t, "50050", c.Price.String(), "median of agreeing set")
		assert.Equal(t, []string{"source-2", "source-3", "source-4"}, c.Sources, "agreeing sources")
		assert.Equal(t, []string{"source-0", "source-1"}, c.Outliers, "outliers")
		assert.False(t, c.Override, "not an override")
	}

	entry, err := f.rates.Snapshot().BTCPrice(currency.USD)
	assert.Nil(t, err, "rates not written")
	assert.Equal(t, "50050", entry.Price.String(), "rates price")

	price, age, err := f.oracle.CurrentPrice(usd)
	assert.Nil(t, err, "current price error")
	assert.Equal(t, "50050", price.String(), "current price")
	assert.Equal(t, time.Duration(0), age, "age")

	// outliers were sampled towards zero
	s, _ := f.oracle.Source("source-0")
	assert.Equal(t, "0.9", s.Score.String(), "outlier score")
	assert.Equal(t, uint64(1), s.Outliers, "outlier count")
	s, _ = f.oracle.Source("source-2")
	assert.Equal(t, "1", s.Score.String(), "agreeing score")
}

func TestEvenMedian(t *testing.T) {
	config := oracle.DefaultConfig()
	config.Quorum = 4
	config.StrictQuorum = 4
	f := newFixture(t, config, nil, 4)

	for i, p := range []string{"100", "100.5", "101", "101.5"} {
		c, err := f.submit(i, p)
		assert.Nil(t, err, "submit error")
		if 3 == i && assert.NotNil(t, c, "no consensus") {
			assert.Equal(t, "100.75", c.Price.String(), "even count averages the middle pair")
		}
	}
}

func TestCircuitBreakerOverride(t *testing.T) {
	f := newFixture(t, oracle.DefaultConfig(), nil, 5)
	f.establish(t, 0, "50000")
	f.clock.Advance(time.Second)

	_, err := f.oracle.ApproveOverride(usd)
	assert.Equal(t, fault.NoOverridePending, err, "nothing pending")

	for i := 0; i < 2; i += 1 {
		c, err := f.submit(i, "62500")
		assert.Nil(t, err, "below quorum is not an error")
		assert.Nil(t, c, "no consensus")
	}
	c, err := f.submit(2, "62500")
	assert.Equal(t, fault.CircuitBreakerTripped, err, "25% move must trip")
	assert.Nil(t, c, "no consensus")

	price, _, _ := f.oracle.CurrentPrice(usd)
	assert.Equal(t, "50000", price.String(), "price must not move")

	pending, ok := f.oracle.PendingOverride(usd)
	assert.True(t, ok, "override must be pending")
	assert.Equal(t, "62500", pending.Price.String(), "pending price")

	c, err = f.oracle.ApproveOverride(usd)
	assert.Nil(t, err, "approve error")
	assert.True(t, c.Override, "override flag")
	assert.Equal(t, "62500", c.Price.String(), "override price")

	price, _, _ = f.oracle.CurrentPrice(usd)
	assert.Equal(t, "62500", price.String(), "price after override")

	_, ok = f.oracle.PendingOverride(usd)
	assert.False(t, ok, "override consumed")

	stats := f.oracle.Statistics(usd)
	assert.Equal(t, uint64(2), stats.Accepted, "accepted")
	assert.Equal(t, uint64(1), stats.Overrides, "overrides")
	assert.Equal(t, uint64(1), stats.BreakerTripped, "breaker")
}

func TestStrictQuorumForLargeMove(t *testing.T) {
	f := newFixture(t, oracle.DefaultConfig(), nil, 5)
	f.establish(t, 0, "50000")
	f.clock.Advance(time.Second)

	for i := 0; i < 4; i += 1 {
		c, err := f.submit(i, "57500")
		assert.Nil(t, err, "submit error")
		assert.Nil(t, c, "15%% move accepted with %d reports", i+1)
	}
	c, err := f.submit(4, "57500")
	assert.Nil(t, err, "submit error")
	if assert.NotNil(t, c, "strict quorum reached") {
		assert.Equal(t, "57500", c.Price.String(), "price")
	}
	assert.Equal(t, uint64(2), f.oracle.Statistics(usd).AwaitingStrict, "awaiting strict")
}

func TestCooldown(t *testing.T) {
	f := newFixture(t, oracle.DefaultConfig(), nil, 5)
	f.establish(t, 0, "50000")
	f.clock.Advance(time.Second)

	// 8% move starts the cooldown
	f.establish(t, 0, "54000")
	f.clock.Advance(time.Minute)

	_, _ = f.submit(0, "58000")
	_, _ = f.submit(1, "58000")
	c, err := f.submit(2, "58000")
	assert.Equal(t, fault.CooldownActive, err, "second large move within cooldown")
	assert.Nil(t, c, "no consensus")

	// a small move is still fine
	f.clock.Advance(time.Second)
	f.establish(t, 2, "55000")

	f.clock.Advance(16 * time.Minute)
	f.establish(t, 0, "58500")
	price, _, _ := f.oracle.CurrentPrice(usd)
	assert.Equal(t, "58500", price.String(), "accepted after cooldown")
}

func TestRejections(t *testing.T) {
	config := oracle.DefaultConfig()
	config.ReportBurst = 1
	f := newFixture(t, config, nil, 2)

	pub := sourceKey(9).Public().(ed25519.PublicKey)
	err := f.oracle.Register("unbonded", pub, 0)
	assert.Nil(t, err, "register error")
	f.keys["unbonded"] = sourceKey(9)

	err = f.oracle.Register("unbonded", pub, 0)
	assert.Equal(t, fault.SourceAlreadyRegistered, err, "duplicate registration")

	stale := f.report("source-0", usd, "50000")
	stale.Timestamp = f.clock.Now().Add(-31 * time.Second)
	stale.Sign(f.keys["source-0"])

	future := f.report("source-0", usd, "50000")
	future.Timestamp = f.clock.Now().Add(6 * time.Second)
	future.Sign(f.keys["source-0"])

	tampered := f.report("source-0", usd, "50000")
	tampered.Price = decimal.NewFromInt(49000)

	bad := f.report("source-0", usd, "-1")
	badPair := f.report("source-0", oracle.Pair{Base: "ETH", Quote: currency.USD}, "50000")

	tests := []struct {
		name   string
		report oracle.Report
		err    error
	}{
		{"stale", stale, fault.StaleReport},
		{"future", future, fault.FutureReport},
		{"unknown", f.report("nobody", usd, "50000"), fault.SourceNotFound},
		{"unbonded", f.report("unbonded", usd, "50000"), fault.SourceNotBonded},
		{"signature", tampered, fault.InvalidSignature},
		{"price", bad, fault.InvalidPrice},
		{"pair", badPair, fault.InvalidPair},
	}

	for _, test := range tests {
		_, err := f.oracle.Submit(test.report)
		assert.Equal(t, test.err, err, test.name)
	}

	good := f.report("source-0", usd, "50000")
	_, err = f.oracle.Submit(good)
	assert.Nil(t, err, "first report")

	_, err = f.oracle.Submit(good)
	assert.Equal(t, fault.DuplicateReport, err, "duplicate")

	_, err = f.oracle.Submit(f.report("source-0", usd, "50001"))
	assert.Equal(t, fault.RateLimited, err, "rate")

	f.clock.Advance(time.Second)
	_, err = f.oracle.Submit(f.report("source-0", usd, "50002"))
	assert.Nil(t, err, "rate refilled")

	assert.Equal(t, uint64(8), f.oracle.Rejected(), "rejected count excludes limits")
}

func TestWeightedQuorum(t *testing.T) {
	f := newFixture(t, oracle.DefaultConfig(), nil, 4)

	// five deviation slashes leave 0.77378 so weight < 1
	for i := 0; i < 5; i += 1 {
		_, err := f.oracle.Slash("source-0", oracle.SlashDeviation)
		assert.Nil(t, err, "slash error")
	}
	s, _ := f.oracle.Source("source-0")
	assert.True(t, s.Score.LessThan(decimal.New(8, -1)), "score %s below good standing", s.Score)
	assert.True(t, s.Bonded, "still bonded")

	for i := 0; i < 3; i += 1 {
		c, err := f.submit(i, "50000")
		assert.Nil(t, err, "submit error")
		assert.Nil(t, c, "weight below quorum")
	}
	c, err := f.submit(3, "50000")
	assert.Nil(t, err, "submit error")
	assert.NotNil(t, c, "fourth source completes quorum")
}

func TestSlash(t *testing.T) {
	f := newFixture(t, oracle.DefaultConfig(), nil, 1)

	amount, err := f.oracle.Slash("source-0", oracle.SlashDeviation)
	assert.Nil(t, err, "slash error")
	assert.Equal(t, satoshi.Amount(10000000), amount, "10% of bond")

	s, _ := f.oracle.Source("source-0")
	assert.Equal(t, satoshi.Amount(90000000), s.Bond, "remaining bond")
	assert.Equal(t, "0.95", s.Score.String(), "score")

	amount, err = f.oracle.Slash("source-0", oracle.SlashDowntime)
	assert.Nil(t, err, "slash error")
	assert.Equal(t, satoshi.Amount(4500000), amount, "5% of bond")

	_, err = f.oracle.Slash("source-0", oracle.SlashKind(99))
	assert.Equal(t, fault.InvalidSlashKind, err, "kind")

	_, err = f.oracle.Slash("nobody", oracle.SlashDeviation)
	assert.Equal(t, fault.SourceNotFound, err, "unknown")

	amount, err = f.oracle.Slash("source-0", oracle.SlashManipulation)
	assert.Nil(t, err, "slash error")
	assert.Equal(t, satoshi.Amount(85500000), amount, "whole bond")

	s, _ = f.oracle.Source("source-0")
	assert.False(t, s.Bonded, "unbonded")
	assert.Equal(t, satoshi.Amount(0), s.Bond, "no bond")

	_, err = f.submit(0, "50000")
	assert.Equal(t, fault.SourceNotBonded, err, "unbonded source rejected")

	_, err = f.oracle.Slash("source-0", oracle.SlashDeviation)
	assert.Equal(t, fault.SourceNotBonded, err, "nothing to slash")

	err = f.oracle.Bond("source-0", 5000)
	assert.Nil(t, err, "bond error")
	s, _ = f.oracle.Source("source-0")
	assert.True(t, s.Bonded, "bonded again")
}

func TestSweepSilence(t *testing.T) {
	f := newFixture(t, oracle.DefaultConfig(), nil, 3)

	assert.Equal(t, 0, f.oracle.Sweep(), "nobody silent yet")

	f.clock.Advance(61 * time.Minute)
	_, _ = f.submit(0, "50000")

	assert.Equal(t, 2, f.oracle.Sweep(), "two silent")
	assert.Equal(t, 0, f.oracle.Sweep(), "decay once per period")

	s, _ := f.oracle.Source("source-1")
	assert.Equal(t, "0.9", s.Score.String(), "silent score")
	s, _ = f.oracle.Source("source-0")
	assert.Equal(t, "1", s.Score.String(), "active score")
}

func TestHistoryAndTWAP(t *testing.T) {
	config := oracle.DefaultConfig()
	config.HistorySize = 2
	f := newFixture(t, config, nil, 3)

	_, err := f.oracle.TWAP(usd)
	assert.Equal(t, fault.NoPrice, err, "no history")

	f.establish(t, 0, "100")
	f.clock.Advance(time.Hour)
	f.establish(t, 0, "104")
	f.clock.Advance(time.Hour)

	twap, err := f.oracle.TWAP(usd)
	assert.Nil(t, err, "twap error")
	assert.Equal(t, "102", twap.String(), "time weighted")

	f.establish(t, 0, "103")
	history := f.oracle.History(usd)
	assert.Equal(t, 2, len(history), "history capped")
	assert.Equal(t, "104", history[0].Price.String(), "oldest kept")
	assert.Equal(t, "103", history[1].Price.String(), "newest")
}

func TestReplay(t *testing.T) {
	store := event.NewMemoryStore()
	journal, err := event.NewJournal(store, 0, logger.New(category))
	assert.Nil(t, err, "journal error")

	f := newFixture(t, oracle.DefaultConfig(), journal, 5)
	_, _ = f.submit(0, "60000")
	f.establish(t, 1, "50000")
	_, _ = f.oracle.Slash("source-4", oracle.SlashDeviation)

	table := rates.New()
	replayed, err := oracle.New(oracle.DefaultConfig(), table, nil, f.clock.Now, logger.New(category))
	assert.Nil(t, err, "new error")

	err = store.Replay(0, replayed.Apply)
	assert.Nil(t, err, "replay error")

	original, _ := f.oracle.Current(usd)
	rebuilt, err := replayed.Current(usd)
	assert.Nil(t, err, "current error")
	assert.True(t, original.Price.Equal(rebuilt.Price), "price")
	assert.Equal(t, original.Sources, rebuilt.Sources, "sources")

	want := f.oracle.Sources()
	got := replayed.Sources()
	if assert.Equal(t, len(want), len(got), "source count") {
		for i := range want {
			assert.Equal(t, want[i].ID, got[i].ID, "id")
			assert.True(t, want[i].Score.Equal(got[i].Score), "%s: score %s != %s", want[i].ID, want[i].Score, got[i].Score)
			assert.Equal(t, want[i].Bond, got[i].Bond, "%s: bond", want[i].ID)
			assert.Equal(t, want[i].Bonded, got[i].Bonded, "%s: bonded", want[i].ID)
			assert.Equal(t, want[i].Outliers, got[i].Outliers, "%s: outliers", want[i].ID)
			assert.Equal(t, want[i].PublicKey, got[i].PublicKey, "%s: key", want[i].ID)
		}
	}

	entry, err := table.Snapshot().BTCPrice(currency.USD)
	assert.Nil(t, err, "rates error")
	assert.Equal(t, "50000", entry.Price.String(), "rates price")

	err = replayed.Apply(event.Record{Type: event.SliceMoved})
	assert.Equal(t, fault.UnknownEventType, err, "foreign record")
}

func TestPair(t *testing.T) {
	p, err := oracle.ParsePair("btc/eur")
	assert.Nil(t, err, "parse error")
	assert.Equal(t, oracle.NewPair(currency.EUR), p, "pair")
	assert.Equal(t, "BTC/EUR", p.String(), "string")

	for _, s := range []string{"", "BTC", "ETH/USD", "BTC/XYZ", "BTC/USD/EUR"} {
		_, err := oracle.ParsePair(s)
		assert.Equal(t, fault.InvalidPair, err, "parse: %q", s)
	}
}

func TestNewValidation(t *testing.T) {
	table := rates.New()
	log := logger.New(category)

	_, err := oracle.New(oracle.DefaultConfig(), nil, nil, nil, log)
	assert.Equal(t, fault.MissingParameters, err, "no writer")

	config := oracle.DefaultConfig()
	config.StrictQuorum = 2
	_, err = oracle.New(config, table, nil, nil, log)
	assert.Equal(t, fault.InvalidCount, err, "strict below baseline")

	config = oracle.DefaultConfig()
	config.Decay = decimal.NewFromInt(1)
	_, err = oracle.New(config, table, nil, nil, log)
	assert.Equal(t, fault.InvalidRatio, err, "decay")
}
