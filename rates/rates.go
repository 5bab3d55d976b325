// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rates - the exchange rate table
//
// holds the most recent accepted BTC price in each fiat currency and
// derives cross rates to USD from them.  Only the oracle writes to the
// table, every other component reads immutable snapshots.
package rates

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/fault"
)

// Entry - one accepted price
type Entry struct {
	Price    decimal.Decimal // fiat per whole BTC
	Accepted time.Time
}

// Writer - the oracle side of the table
type Writer interface {
	SetBTCPrice(c currency.Currency, price decimal.Decimal, accepted time.Time) error
}

// Reader - the consumer side of the table
type Reader interface {
	Snapshot() Snapshot
}

// Table - latest accepted BTC price per currency
type Table struct {
	sync.RWMutex
	prices map[currency.Currency]Entry
}

// New - an empty table, every currency is in the no price state
func New() *Table {
	return &Table{
		prices: make(map[currency.Currency]Entry),
	}
}

// SetBTCPrice - record an accepted price
func (t *Table) SetBTCPrice(c currency.Currency, price decimal.Decimal, accepted time.Time) error {
	if !c.IsValid() {
		return fault.InvalidCurrency
	}
	if !price.IsPositive() {
		return fault.InvalidPrice
	}

	t.Lock()
	defer t.Unlock()

	// never regress to an older acceptance, e.g. while replaying
	if previous, ok := t.prices[c]; ok && previous.Accepted.After(accepted) {
		return nil
	}
	t.prices[c] = Entry{
		Price:    price,
		Accepted: accepted,
	}
	return nil
}

// Snapshot - consistent copy of all prices
func (t *Table) Snapshot() Snapshot {
	t.RLock()
	defer t.RUnlock()

	prices := make(map[currency.Currency]Entry, len(t.prices))
	for c, e := range t.prices {
		prices[c] = e
	}
	return Snapshot{
		prices: prices,
	}
}

// Snapshot - immutable view of the table at one moment
type Snapshot struct {
	prices map[currency.Currency]Entry
}

// NewSnapshot - build a snapshot directly, used for tests and tools
func NewSnapshot(prices map[currency.Currency]Entry) Snapshot {
	p := make(map[currency.Currency]Entry, len(prices))
	for c, e := range prices {
		p[c] = e
	}
	return Snapshot{
		prices: p,
	}
}

// BTCPrice - price of one BTC in a currency
func (s Snapshot) BTCPrice(c currency.Currency) (Entry, error) {
	e, ok := s.prices[c]
	if !ok {
		return Entry{}, fault.NoPrice
	}
	return e, nil
}

// ToUSD - value of one unit of a currency in USD
//
// derived as BTC/USD ÷ BTC/c so that all rates share one source
func (s Snapshot) ToUSD(c currency.Currency) (decimal.Decimal, error) {
	usd, err := s.BTCPrice(currency.USD)
	if nil != err {
		return decimal.Zero, err
	}
	if currency.USD == c {
		return decimal.New(1, 0), nil
	}
	other, err := s.BTCPrice(c)
	if nil != err {
		return decimal.Zero, err
	}
	return usd.Price.Div(other.Price), nil
}

// ValueUSD - USD value of a fiat amount
func (s Snapshot) ValueUSD(c currency.Currency, amount currency.Amount) (decimal.Decimal, error) {
	rate, err := s.ToUSD(c)
	if nil != err {
		return decimal.Zero, err
	}
	return c.ToDecimal(amount).Mul(rate), nil
}

// CollateralUSD - USD value of a BTC amount
func (s Snapshot) CollateralUSD(sats satoshi.Amount) (decimal.Decimal, error) {
	usd, err := s.BTCPrice(currency.USD)
	if nil != err {
		return decimal.Zero, err
	}
	return sats.Value(usd.Price), nil
}

// Require - check that BTC/USD and each listed currency has a price
// no older than maxAge at now
func (s Snapshot) Require(now time.Time, maxAge time.Duration, currencies ...currency.Currency) error {
	check := func(c currency.Currency) error {
		e, ok := s.prices[c]
		if !ok {
			return fault.NoPrice
		}
		if now.Sub(e.Accepted) > maxAge {
			return fault.StalePrice
		}
		return nil
	}

	if err := check(currency.USD); nil != err {
		return err
	}
	for _, c := range currencies {
		if err := check(c); nil != err {
			return err
		}
	}
	return nil
}

// Currencies - currencies that have a price
func (s Snapshot) Currencies() []currency.Currency {
	l := make([]currency.Currency, 0, len(s.prices))
	for _, c := range currency.All() {
		if _, ok := s.prices[c]; ok {
			l = append(l, c)
		}
	}
	return l
}
