// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package oracle

import (
	"sort"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/background"
	"github.com/bitmark-inc/bitstable/counter"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/limitedset"
	"github.com/bitmark-inc/bitstable/rates"
)

// Consensus - one accepted price, also the PriceAccepted journal payload
type Consensus struct {
	Pair     Pair            `json:"pair"`
	Price    decimal.Decimal `json:"price"`
	Accepted time.Time       `json:"accepted"`
	Sources  []string        `json:"sources"`
	Outliers []string        `json:"outliers,omitempty"`
	Reports  []Report        `json:"reports"`
	Override bool            `json:"override"`
}

// Submitter - anything that takes reports
type Submitter interface {
	Submit(report Report) (*Consensus, error)
}

// Statistics - per pair acceptance counts
type Statistics struct {
	Reports          uint64 `json:"reports"`
	Accepted         uint64 `json:"accepted"`
	Overrides        uint64 `json:"overrides"`
	BreakerTripped   uint64 `json:"breakerTripped"`
	AwaitingStrict   uint64 `json:"awaitingStrict"`
	CooldownRejected uint64 `json:"cooldownRejected"`
}

type pairState struct {
	sync.Mutex
	pair        Pair
	reports     map[string]Report // latest per source
	current     *Consensus
	pending     *Consensus // held by the circuit breaker
	history     []Consensus
	lastBigMove time.Time

	reportCount      counter.Counter
	accepted         counter.Counter
	overrides        counter.Counter
	breakerTripped   counter.Counter
	awaitingStrict   counter.Counter
	cooldownRejected counter.Counter
}

// Oracle - the price consensus engine
type Oracle struct {
	sync.RWMutex // protects sources

	log     *logger.L
	config  Config
	clock   func() time.Time
	rates   rates.Writer
	sink    event.Sink
	sources map[string]*sourceState
	seen    *limitedset.LimitedSet[Digest]

	pairsLock sync.Mutex
	pairs     map[Pair]*pairState

	rejected counter.Counter
}

// New - create an oracle writing accepted prices to the table
func New(config Config, writer rates.Writer, sink event.Sink, clock func() time.Time, log *logger.L) (*Oracle, error) {
	if nil == writer || nil == log {
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

	return &Oracle{
		log:     log,
		config:  config,
		clock:   clock,
		rates:   writer,
		sink:    sink,
		sources: make(map[string]*sourceState),
		seen:    limitedset.New[Digest](config.DuplicateCache),
		pairs:   make(map[Pair]*pairState),
	}, nil
}

func (o *Oracle) pairState(pair Pair) *pairState {
	o.pairsLock.Lock()
	defer o.pairsLock.Unlock()

	ps, ok := o.pairs[pair]
	if !ok {
		ps = &pairState{
			pair:    pair,
			reports: make(map[string]Report),
		}
		o.pairs[pair] = ps
	}
	return ps
}

// Submit - validate a report and try to reach consensus
//
// returns the new consensus when this report completed one, nil if
// the pair is still waiting for agreement
func (o *Oracle) Submit(report Report) (*Consensus, error) {
	c, err := o.submit(report)
	if nil != err && !fault.IsErrLimit(err) {
		o.rejected.Increment()
		o.log.Debugf("reject report from: %s  pair: %s  error: %s", report.Source, report.Pair, err)
	}
	return c, err
}

func (o *Oracle) submit(report Report) (*Consensus, error) {
	if !report.Pair.IsValid() {
		return nil, fault.InvalidPair
	}
	if !report.Price.IsPositive() {
		return nil, fault.InvalidPrice
	}

	now := o.clock()
	if report.Timestamp.Before(now.Add(-o.config.Freshness)) {
		return nil, fault.StaleReport
	}
	if report.Timestamp.After(now.Add(o.config.FutureSkew)) {
		return nil, fault.FutureReport
	}

	o.RLock()
	s, ok := o.sources[report.Source]
	var bonded bool
	if ok {
		bonded = s.bonded
	}
	o.RUnlock()

	if !ok {
		return nil, fault.SourceNotFound
	}
	if !bonded {
		return nil, fault.SourceNotBonded
	}

	// key never changes after registration
	if err := report.Verify(s.publicKey); nil != err {
		return nil, err
	}
	if !o.seen.Add(report.Digest()) {
		return nil, fault.DuplicateReport
	}
	if !s.limiter.AllowN(now, 1) {
		return nil, fault.RateLimited
	}

	o.log.Debugf("report from: %s  pair: %s  price: %s", report.Source, report.Pair, report.Price)

	ps := o.pairState(report.Pair)
	ps.Lock()
	defer ps.Unlock()

	ps.reports[report.Source] = report
	ps.reportCount.Increment()

	o.Lock()
	s.lastSeen = now
	s.reports.Increment()
	o.Unlock()

	return o.aggregate(ps, now)
}

// candidate - the best agreeing window of the current report set
type candidate struct {
	price    decimal.Decimal
	weight   decimal.Decimal
	agreeing []Report
	outliers []string
}

// must hold pair lock
func (o *Oracle) aggregate(ps *pairState, now time.Time) (*Consensus, error) {
	fresh := make([]Report, 0, len(ps.reports))
	for id, r := range ps.reports {
		if r.Timestamp.Before(now.Add(-o.config.Freshness)) {
			delete(ps.reports, id)
			continue
		}
		fresh = append(fresh, r)
	}
	if 0 == len(fresh) {
		return nil, nil
	}

	weights := make(map[string]decimal.Decimal, len(fresh))
	o.RLock()
	for _, r := range fresh {
		if s, ok := o.sources[r.Source]; ok && s.bonded {
			weights[r.Source] = o.weight(s)
		} else {
			weights[r.Source] = decimal.Zero
		}
	}
	o.RUnlock()

	cand := bestWindow(fresh, weights, o.config.Tolerance)

	quorum := decimal.NewFromInt(int64(o.config.Quorum))
	strict := decimal.NewFromInt(int64(o.config.StrictQuorum))

	required := quorum
	move := decimal.Zero
	if nil != ps.current {
		move = cand.price.Sub(ps.current.Price).Abs().Div(ps.current.Price)

		switch {
		case move.GreaterThan(o.config.StrictMove):
			if cand.weight.LessThan(quorum) {
				return nil, nil
			}
			ps.pending = cand.consensus(ps.pair, now, true)
			ps.breakerTripped.Increment()
			o.log.Warnf("pair: %s  move: %s  from: %s  to: %s  held for override", ps.pair, move.StringFixed(4), ps.current.Price, cand.price)
			return nil, fault.CircuitBreakerTripped

		case move.GreaterThan(o.config.BaselineMove):
			required = strict
		}
	}

	if cand.weight.LessThan(required) {
		if required.Equal(strict) && cand.weight.GreaterThanOrEqual(quorum) {
			ps.awaitingStrict.Increment()
		}
		return nil, nil
	}

	if o.config.Cooldown > 0 && nil != ps.current && move.GreaterThan(o.config.CooldownMove) &&
		!ps.lastBigMove.IsZero() && now.Sub(ps.lastBigMove) < o.config.Cooldown {
		ps.cooldownRejected.Increment()
		o.log.Warnf("pair: %s  move: %s  within cooldown since: %s", ps.pair, move.StringFixed(4), ps.lastBigMove.Format(time.RFC3339))
		return nil, fault.CooldownActive
	}

	c := cand.consensus(ps.pair, now, false)
	return c, o.accept(ps, c)
}

// sort by price then source, slide a window whose relative spread is
// within tolerance and keep the heaviest, then the largest, then the
// lowest
func bestWindow(reports []Report, weights map[string]decimal.Decimal, tolerance decimal.Decimal) candidate {
	sort.Slice(reports, func(i, j int) bool {
		c := reports[i].Price.Cmp(reports[j].Price)
		if 0 != c {
			return c < 0
		}
		return reports[i].Source < reports[j].Source
	})

	bestStart, bestEnd := 0, 0
	bestWeight := decimal.NewFromInt(-1)

	for i := range reports {
		w := decimal.Zero
		j := i
		for ; j < len(reports); j += 1 {
			spread := reports[j].Price.Sub(reports[i].Price).Div(reports[i].Price)
			if spread.GreaterThan(tolerance) {
				break
			}
			w = w.Add(weights[reports[j].Source])
		}
		if w.GreaterThan(bestWeight) || (w.Equal(bestWeight) && j-i > bestEnd-bestStart) {
			bestStart, bestEnd, bestWeight = i, j, w
		}
	}

	agreeing := make([]Report, bestEnd-bestStart)
	copy(agreeing, reports[bestStart:bestEnd])

	outliers := make([]string, 0, len(reports)-len(agreeing))
	for i, r := range reports {
		if i < bestStart || i >= bestEnd {
			outliers = append(outliers, r.Source)
		}
	}
	sort.Strings(outliers)

	return candidate{
		price:    median(agreeing),
		weight:   bestWeight,
		agreeing: agreeing,
		outliers: outliers,
	}
}

// unweighted median of price sorted reports
func median(reports []Report) decimal.Decimal {
	n := len(reports)
	if 0 == n {
		return decimal.Zero
	}
	if 1 == n%2 {
		return reports[n/2].Price
	}
	return reports[n/2-1].Price.Add(reports[n/2].Price).Div(decimal.NewFromInt(2))
}

func (cand candidate) consensus(pair Pair, now time.Time, override bool) *Consensus {
	sources := make([]string, 0, len(cand.agreeing))
	for _, r := range cand.agreeing {
		sources = append(sources, r.Source)
	}
	sort.Strings(sources)

	return &Consensus{
		Pair:     pair,
		Price:    cand.price,
		Accepted: now,
		Sources:  sources,
		Outliers: cand.outliers,
		Reports:  cand.agreeing,
		Override: override,
	}
}

// must hold pair lock
func (o *Oracle) accept(ps *pairState, c *Consensus) error {
	o.install(ps, *c)
	ps.reports = make(map[string]Report)
	ps.pending = nil
	ps.accepted.Increment()
	if c.Override {
		ps.overrides.Increment()
	}

	o.log.Infof("accept pair: %s  price: %s  sources: %v  override: %t", c.Pair, c.Price, c.Sources, c.Override)

	o.reputation(c)

	if err := o.rates.SetBTCPrice(c.Pair.Quote, c.Price, c.Accepted); nil != err {
		o.log.Errorf("rates pair: %s  error: %s", c.Pair, err)
		return err
	}
	return o.sink.Emit(event.PriceAccepted, c.Accepted, c)
}

// set current, append history and track the cooldown
// must hold pair lock
func (o *Oracle) install(ps *pairState, c Consensus) {
	if nil != ps.current {
		move := c.Price.Sub(ps.current.Price).Abs().Div(ps.current.Price)
		if move.GreaterThan(o.config.CooldownMove) {
			ps.lastBigMove = c.Accepted
		}
	}
	ps.current = &c

	ps.history = append(ps.history, c)
	if excess := len(ps.history) - o.config.HistorySize; excess > 0 {
		ps.history = append([]Consensus(nil), ps.history[excess:]...)
	}
}

// agreeing sources move towards 1, outliers towards 0
func (o *Oracle) reputation(c *Consensus) {
	o.Lock()
	defer o.Unlock()

	one := decimal.NewFromInt(1)
	for _, id := range c.Sources {
		if s, ok := o.sources[id]; ok {
			o.sample(s, one)
		}
	}
	for _, id := range c.Outliers {
		if s, ok := o.sources[id]; ok {
			o.sample(s, decimal.Zero)
			s.outliers.Increment()
		}
	}
}

// ApproveOverride - accept the price held by the circuit breaker
func (o *Oracle) ApproveOverride(pair Pair) (*Consensus, error) {
	if !pair.IsValid() {
		return nil, fault.InvalidPair
	}

	ps := o.pairState(pair)
	ps.Lock()
	defer ps.Unlock()

	if nil == ps.pending {
		return nil, fault.NoOverridePending
	}

	c := *ps.pending
	c.Accepted = o.clock()
	c.Override = true

	o.log.Warnf("override pair: %s  price: %s", pair, c.Price)
	return &c, o.accept(ps, &c)
}

// PendingOverride - the price waiting for approval, if any
func (o *Oracle) PendingOverride(pair Pair) (Consensus, bool) {
	ps := o.pairState(pair)
	ps.Lock()
	defer ps.Unlock()

	if nil == ps.pending {
		return Consensus{}, false
	}
	return *ps.pending, true
}

// Current - the last accepted consensus
func (o *Oracle) Current(pair Pair) (Consensus, error) {
	ps := o.pairState(pair)
	ps.Lock()
	defer ps.Unlock()

	if nil == ps.current {
		return Consensus{}, fault.NoPrice
	}
	return *ps.current, nil
}

// CurrentPrice - the accepted price and its age
func (o *Oracle) CurrentPrice(pair Pair) (decimal.Decimal, time.Duration, error) {
	c, err := o.Current(pair)
	if nil != err {
		return decimal.Zero, 0, err
	}
	return c.Price, o.clock().Sub(c.Accepted), nil
}

// History - accepted prices, oldest first
func (o *Oracle) History(pair Pair) []Consensus {
	ps := o.pairState(pair)
	ps.Lock()
	defer ps.Unlock()

	history := make([]Consensus, len(ps.history))
	copy(history, ps.history)
	return history
}

// TWAP - time weighted average over the window ending now
func (o *Oracle) TWAP(pair Pair) (decimal.Decimal, error) {
	now := o.clock()
	start := now.Add(-o.config.TWAPWindow)

	ps := o.pairState(pair)
	ps.Lock()
	defer ps.Unlock()

	if 0 == len(ps.history) {
		return decimal.Zero, fault.NoPrice
	}

	sum := decimal.Zero
	total := decimal.Zero
	for i, h := range ps.history {
		from := h.Accepted
		if from.Before(start) {
			from = start
		}
		to := now
		if i+1 < len(ps.history) {
			to = ps.history[i+1].Accepted
		}
		if !to.After(from) {
			continue
		}
		d := decimal.NewFromInt(int64(to.Sub(from)))
		sum = sum.Add(h.Price.Mul(d))
		total = total.Add(d)
	}

	if total.IsZero() {
		return ps.history[len(ps.history)-1].Price, nil
	}
	return sum.Div(total), nil
}

// Statistics - acceptance counts for a pair
func (o *Oracle) Statistics(pair Pair) Statistics {
	ps := o.pairState(pair)
	return Statistics{
		Reports:          ps.reportCount.Uint64(),
		Accepted:         ps.accepted.Uint64(),
		Overrides:        ps.overrides.Uint64(),
		BreakerTripped:   ps.breakerTripped.Uint64(),
		AwaitingStrict:   ps.awaitingStrict.Uint64(),
		CooldownRejected: ps.cooldownRejected.Uint64(),
	}
}

// Rejected - count of reports refused before aggregation
func (o *Oracle) Rejected() uint64 {
	return o.rejected.Uint64()
}

// Sweeper - background process for silence decay
func (o *Oracle) Sweeper(interval time.Duration) background.Process {
	return &background.Periodic{
		Interval: interval,
		Tick: func() {
			if n := o.Sweep(); n > 0 {
				o.log.Infof("decayed silent sources: %d", n)
			}
		},
	}
}
