// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package liquidation

import (
	"sort"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/counter"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/rates"
	"github.com/bitmark-inc/bitstable/settlement"
)

// Engine - scans vaults and drives seizures through custody
//
// lock order: vault, engine, position book; the engine lock is never
// held while calling the vault ledger
type Engine struct {
	sync.Mutex // protects everything below the counters

	log       *logger.L
	vaults    Vaults
	positions Positions
	rates     rates.Reader
	custody   settlement.Custody
	sink      event.Sink
	clock     func() time.Time

	rounds    counter.Counter
	staged    counter.Counter
	completed counter.Counter
	aborted   counter.Counter
	deferred  counter.Counter
	skipped   counter.Counter
	failures  counter.Counter
	halts     counter.Counter

	config      Config
	pending     map[uuid.UUID]*Pending
	events      []Event
	liquidators map[string]*LiquidatorStatistics

	volume   window                // USD cleared, for γ
	seized   window                // BTC staged, for the emergency halt
	perVault map[uuid.UUID]*window // fraction of debt staged

	haltUntil time.Time
	operator  bool   // halted by an operator until resumed
	reason    string // why the engine is halted
}

// New - create a liquidation engine
func New(config Config, vaults Vaults, positions Positions, reader rates.Reader, custody settlement.Custody, sink event.Sink, clock func() time.Time, log *logger.L) (*Engine, error) {
	if nil == vaults || nil == positions || nil == reader || nil == custody || nil == log {
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
		log:         log,
		vaults:      vaults,
		positions:   positions,
		rates:       reader,
		custody:     custody,
		sink:        sink,
		clock:       clock,
		config:      config,
		pending:     make(map[uuid.UUID]*Pending),
		liquidators: make(map[string]*LiquidatorStatistics),
		perVault:    make(map[uuid.UUID]*window),
	}, nil
}

// Config - current tunables
func (e *Engine) Config() Config {
	e.Lock()
	defer e.Unlock()
	return e.config
}

// SetConfig - replace the tunables, staged liquidations are unaffected
func (e *Engine) SetConfig(config Config) error {
	if err := config.validate(); nil != err {
		return err
	}
	e.Lock()
	e.config = config
	e.Unlock()
	e.log.Info("configuration updated")
	return nil
}

// Halt - stop staging new liquidations until Resume
func (e *Engine) Halt(reason string) {
	e.Lock()
	e.operator = true
	e.reason = reason
	e.Unlock()
	e.halts.Increment()
	e.log.Criticalf("liquidation halted by operator: %s", reason)
}

// Resume - clear both operator and emergency halts
func (e *Engine) Resume() {
	e.Lock()
	e.operator = false
	e.haltUntil = time.Time{}
	e.reason = ""
	e.Unlock()
	e.log.Warn("liquidation resumed")
}

// Halted - whether staging is frozen, why and until when; a zero
// time means until resumed
func (e *Engine) Halted() (bool, string, time.Time) {
	e.Lock()
	defer e.Unlock()
	if e.operator {
		return true, e.reason, time.Time{}
	}
	if e.clock().Before(e.haltUntil) {
		return true, e.reason, e.haltUntil
	}
	return false, "", time.Time{}
}

// must hold lock
func (e *Engine) halted(now time.Time) bool {
	return e.operator || now.Before(e.haltUntil)
}

// must hold lock
func (e *Engine) trigger(now time.Time, reason string) {
	e.haltUntil = now.Add(e.config.HaltDuration)
	e.reason = reason
	e.halts.Increment()
	e.log.Criticalf("emergency liquidation halt until: %s  reason: %s", e.haltUntil.Format(time.RFC3339), reason)
}

// must hold lock
func (e *Engine) vaultWindow(id uuid.UUID) *window {
	w, ok := e.perVault[id]
	if !ok {
		w = &window{}
		e.perVault[id] = w
	}
	return w
}

// must hold lock
func (e *Engine) track(p *Pending) {
	e.pending[p.Intent] = p
	e.volume.add(p.Staged, p.Intent, p.ClearedUSD)
	e.seized.add(p.Staged, p.Intent, p.Seized.BTC())
	e.vaultWindow(p.Vault).add(p.Staged, p.Intent, p.Fraction)
}

// must hold lock
func (e *Engine) untrack(intent uuid.UUID, vault uuid.UUID) {
	e.volume.remove(intent)
	e.seized.remove(intent)
	if w, ok := e.perVault[vault]; ok {
		w.remove(intent)
		if 0 == len(w.samples) {
			delete(e.perVault, vault)
		}
	}
}

// must hold lock
func (e *Engine) record(ev Event) {
	e.events = append(e.events, ev)

	k := ev.Liquidator.String()
	s, ok := e.liquidators[k]
	if !ok {
		s = &LiquidatorStatistics{
			Cleared: make(map[currency.Currency]currency.Amount),
		}
		e.liquidators[k] = s
	}
	s.Liquidations += 1
	s.Received += ev.Seized
	s.Bonus += ev.Bonus
	for c, a := range ev.Cleared {
		s.Cleared[c] += a
	}
}

// Pending - staged liquidations in staging order
func (e *Engine) Pending() []Pending {
	e.Lock()
	defer e.Unlock()

	l := make([]Pending, 0, len(e.pending))
	for _, p := range e.pending {
		l = append(l, p.clone())
	}
	sort.Slice(l, func(i, j int) bool {
		if l[i].Staged.Equal(l[j].Staged) {
			return l[i].Intent.String() < l[j].Intent.String()
		}
		return l[i].Staged.Before(l[j].Staged)
	})
	return l
}

// Events - completed liquidations in completion order
func (e *Engine) Events() []Event {
	e.Lock()
	defer e.Unlock()

	l := make([]Event, len(e.events))
	copy(l, e.events)
	return l
}

// Statistics - engine counters
func (e *Engine) Statistics() Statistics {
	return Statistics{
		Rounds:    e.rounds.Uint64(),
		Staged:    e.staged.Uint64(),
		Completed: e.completed.Uint64(),
		Aborted:   e.aborted.Uint64(),
		Deferred:  e.deferred.Uint64(),
		Skipped:   e.skipped.Uint64(),
		Failures:  e.failures.Uint64(),
		Halts:     e.halts.Uint64(),
	}
}

// Liquidator - totals for one liquidator
func (e *Engine) Liquidator(liquidator account.Account) LiquidatorStatistics {
	e.Lock()
	defer e.Unlock()

	s, ok := e.liquidators[liquidator.String()]
	if !ok {
		return LiquidatorStatistics{Cleared: map[currency.Currency]currency.Amount{}}
	}
	c := *s
	c.Cleared = make(map[currency.Currency]currency.Amount, len(s.Cleared))
	for k, a := range s.Cleared {
		c.Cleared[k] = a
	}
	return c
}

// must hold lock
func (e *Engine) emit(t event.Type, payload interface{}) {
	if err := e.sink.Emit(t, e.clock(), payload); nil != err {
		e.log.Criticalf("journal %s error: %s", t, err)
	}
}
