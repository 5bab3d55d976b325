// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package redemption

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/counter"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
)

// Quote - the price of one redemption
type Quote struct {
	Currency currency.Currency `json:"currency"`
	Amount   currency.Amount   `json:"amount"` // surrendered and cleared
	FeeRate  decimal.Decimal   `json:"feeRate"`
	Fee      currency.Amount   `json:"fee"`
	Net      currency.Amount   `json:"net"` // paid out as BTC
	Price    decimal.Decimal   `json:"price"`
	BTC      satoshi.Amount    `json:"btc"`
}

// Redemption - payload of a RedemptionExecuted record
type Redemption struct {
	ID        uuid.UUID         `json:"id"`
	Redeemer  account.Account   `json:"redeemer"`
	Vault     uuid.UUID         `json:"vault"`
	Currency  currency.Currency `json:"currency"`
	Amount    currency.Amount   `json:"amount"`
	FeeRate   decimal.Decimal   `json:"feeRate"`
	Fee       currency.Amount   `json:"fee"`
	Net       currency.Amount   `json:"net"`
	Price     decimal.Decimal   `json:"price"`
	BTC       satoshi.Amount    `json:"btc"`
	Timestamp time.Time         `json:"timestamp"`
}

// Engine - prices redemptions and keeps the daily usage
type Engine struct {
	sync.Mutex // protects everything below the counters

	log    *logger.L
	config Config
	sink   event.Sink
	clock  func() time.Time

	executed counter.Counter
	refused  counter.Counter

	day        time.Time // midnight UTC of the usage window
	used       map[currency.Currency]currency.Amount
	multiplier decimal.Decimal
	recent     map[currency.Currency][]currency.Amount // pressure window
	history    []Redemption                            // oldest first

	volume map[currency.Currency]currency.Amount
	fees   map[currency.Currency]currency.Amount
	btc    satoshi.Amount
}

// New - create a redemption engine
func New(config Config, sink event.Sink, clock func() time.Time, log *logger.L) (*Engine, error) {
	if nil == log {
		return nil, fault.MissingParameters
	}
	if err := config.validate(); nil != err {
		return nil, err
	}
	if nil == sink {
		sink = event.Discard
	}
	if nil == clock {
		clock = time.Now
	}
	return &Engine{
		log:        log,
		config:     config,
		sink:       sink,
		clock:      clock,
		used:       make(map[currency.Currency]currency.Amount),
		multiplier: decimal.New(1, 0),
		recent:     make(map[currency.Currency][]currency.Amount),
		volume:     make(map[currency.Currency]currency.Amount),
		fees:       make(map[currency.Currency]currency.Amount),
	}, nil
}

// Config - current tunables
func (e *Engine) Config() Config {
	e.Lock()
	defer e.Unlock()
	return e.config
}

// Estimate - price a redemption ignoring the daily limit
func (e *Engine) Estimate(c currency.Currency, amount currency.Amount, price decimal.Decimal) (Quote, error) {
	e.Lock()
	defer e.Unlock()
	e.roll(e.clock())
	return e.quote(c, amount, price)
}

// Quote - price a redemption that fits in what is left of the daily
// limit
func (e *Engine) Quote(c currency.Currency, amount currency.Amount, price decimal.Decimal) (Quote, error) {
	e.Lock()
	defer e.Unlock()
	e.roll(e.clock())

	q, err := e.quote(c, amount, price)
	if nil != err {
		return Quote{}, err
	}
	if e.used[c]+amount > e.config.limit(c) {
		e.refused.Increment()
		e.log.Warnf("refused: %s %s  used: %s  limit: %s", c.FormatAmount(amount), c,
			c.FormatAmount(e.used[c]), c.FormatAmount(e.config.limit(c)))
		return Quote{}, fault.RedemptionLimitExceeded
	}
	return q, nil
}

// Remaining - what is left of today's limit in c
func (e *Engine) Remaining(c currency.Currency) currency.Amount {
	e.Lock()
	defer e.Unlock()
	e.roll(e.clock())

	left := e.config.limit(c) - e.used[c]
	if left < 0 {
		return 0
	}
	return left
}

// must hold lock
func (e *Engine) quote(c currency.Currency, amount currency.Amount, price decimal.Decimal) (Quote, error) {
	if !c.IsValid() {
		return Quote{}, fault.InvalidCurrency
	}
	if amount <= 0 {
		return Quote{}, fault.InvalidAmount
	}
	if !price.IsPositive() {
		return Quote{}, fault.NoPrice
	}

	rate := e.feeRate(c)
	fee, carry := c.Split(c.ToDecimal(amount).Mul(rate))
	if carry.IsPositive() {
		fee += 1 // fees round up
	}
	net := amount - fee
	btc := satoshi.FromBTC(c.ToDecimal(net).Div(price))
	if net <= 0 || btc <= 0 {
		return Quote{}, fault.InvalidAmount
	}
	return Quote{
		Currency: c,
		Amount:   amount,
		FeeRate:  rate,
		Fee:      fee,
		Net:      net,
		Price:    price,
		BTC:      btc,
	}, nil
}

// base · (1 + u² · m) capped at max
// must hold lock
func (e *Engine) feeRate(c currency.Currency) decimal.Decimal {
	u := decimal.NewFromInt(int64(e.used[c])).Div(decimal.NewFromInt(int64(e.config.limit(c))))
	rate := e.config.BaseFee.Mul(decimal.New(1, 0).Add(u.Mul(u).Mul(e.multiplier)))
	if rate.GreaterThan(e.config.MaxFee) {
		return e.config.MaxFee
	}
	return rate
}

// Commit - record an executed redemption and journal it
func (e *Engine) Commit(r Redemption) error {
	e.Lock()
	defer e.Unlock()

	e.roll(r.Timestamp)
	e.add(r)
	e.executed.Increment()

	e.log.Infof("redeemed: %s %s  vault: %s  fee: %s  btc: %s", r.Currency.FormatAmount(r.Amount), r.Currency,
		r.Vault, r.Currency.FormatAmount(r.Fee), r.BTC)
	return e.sink.Emit(event.RedemptionExecuted, r.Timestamp, r)
}

// Apply - restore a redemption from a journal record
func (e *Engine) Apply(record event.Record) error {
	if event.RedemptionExecuted != record.Type {
		return fault.UnknownEventType
	}
	var r Redemption
	if err := record.Decode(&r); nil != err {
		return fault.CorruptRecord
	}
	e.Lock()
	e.roll(r.Timestamp)
	e.add(r)
	e.Unlock()
	e.executed.Increment()
	return nil
}

// must hold lock
func (e *Engine) add(r Redemption) {
	c := r.Currency
	e.used[c] += r.Amount
	e.volume[c] += r.Amount
	e.fees[c] += r.Fee
	e.btc += r.BTC

	e.history = append(e.history, r)
	if n := len(e.history) - e.config.History; n > 0 {
		e.history = append([]Redemption(nil), e.history[n:]...)
	}

	recent := append(e.recent[c], r.Amount)
	if n := len(recent) - e.config.PressureWindow; n > 0 {
		recent = append([]currency.Amount(nil), recent[n:]...)
	}
	e.recent[c] = recent

	total := currency.Amount(0)
	for _, a := range recent {
		total += a
	}
	if c.ToDecimal(total).GreaterThan(e.config.PressureVolume) {
		e.multiplier = decimal.Min(e.multiplier.Mul(e.config.Growth).Round(8), e.config.MaxMultiplier)
	} else {
		e.multiplier = decimal.Max(e.multiplier.Mul(e.config.Decay).Round(8), decimal.New(1, 0))
	}
}

// clear the usage when the UTC day changes
// must hold lock
func (e *Engine) roll(now time.Time) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !day.After(e.day) {
		return
	}
	if !e.day.IsZero() && len(e.used) > 0 {
		e.log.Infof("daily limits reset: %s", day.Format("2006-01-02"))
	}
	e.day = day
	e.used = make(map[currency.Currency]currency.Amount)
}

// Recent - up to n redemptions newest first
func (e *Engine) Recent(n int) []Redemption {
	e.Lock()
	defer e.Unlock()

	if n > len(e.history) || n < 0 {
		n = len(e.history)
	}
	l := make([]Redemption, 0, n)
	for i := len(e.history) - 1; i >= 0 && len(l) < n; i -= 1 {
		l = append(l, e.history[i])
	}
	return l
}

// Statistics - redemption totals
type Statistics struct {
	Executed   uint64                                `json:"executed"`
	Refused    uint64                                `json:"refused"`
	Multiplier decimal.Decimal                       `json:"multiplier"`
	BTC        satoshi.Amount                        `json:"btc"`
	Volume     map[currency.Currency]currency.Amount `json:"volume"`
	Fees       map[currency.Currency]currency.Amount `json:"fees"`
	Used       map[currency.Currency]currency.Amount `json:"usedToday"`
}

// Statistics - counters, totals and today's usage
func (e *Engine) Statistics() Statistics {
	e.Lock()
	defer e.Unlock()
	e.roll(e.clock())

	s := Statistics{
		Executed:   e.executed.Uint64(),
		Refused:    e.refused.Uint64(),
		Multiplier: e.multiplier,
		BTC:        e.btc,
		Volume:     make(map[currency.Currency]currency.Amount, len(e.volume)),
		Fees:       make(map[currency.Currency]currency.Amount, len(e.fees)),
		Used:       make(map[currency.Currency]currency.Amount, len(e.used)),
	}
	for c, a := range e.volume {
		s.Volume[c] = a
	}
	for c, a := range e.fees {
		s.Fees[c] = a
	}
	for c, a := range e.used {
		s.Used[c] = a
	}
	return s
}
