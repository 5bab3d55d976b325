// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/rates"
)

type entry struct {
	sync.Mutex // held for a transition
	vault      Vault

	view      sync.RWMutex // protects committed
	committed Vault        // last journalled state
}

// Ledger - owner of all vaults
type Ledger struct {
	sync.RWMutex // protects vaults and order

	log      *logger.L
	config   Config
	registry *currency.Registry
	rates    rates.Reader
	cache    Cache
	sink     event.Sink
	clock    func() time.Time

	vaults map[uuid.UUID]*entry
	order  []uuid.UUID // creation order
}

// New - create an empty ledger
func New(config Config, registry *currency.Registry, reader rates.Reader, cache Cache, sink event.Sink, clock func() time.Time, log *logger.L) (*Ledger, error) {
	if nil == registry || nil == reader || nil == log {
		return nil, fault.MissingParameters
	}
	if err := config.validate(); nil != err {
		return nil, err
	}
	if nil == cache {
		cache = NewCache(config.CacheExpiry)
	}
	if nil == sink {
		sink = event.Discard
	}
	if nil == clock {
		clock = time.Now
	}
	return &Ledger{
		log:      log,
		config:   config,
		registry: registry,
		rates:    reader,
		cache:    cache,
		sink:     sink,
		clock:    clock,
		vaults:   make(map[uuid.UUID]*entry),
	}, nil
}

func (l *Ledger) entry(id uuid.UUID) (*entry, error) {
	l.RLock()
	e, ok := l.vaults[id]
	l.RUnlock()
	if !ok {
		return nil, fault.VaultNotFound
	}
	return e, nil
}

// Get - copy of the last committed state of a vault
//
// never waits for a transition in progress; the cache is filled under
// the view lock so a fill cannot overwrite a later commit
func (l *Ledger) Get(id uuid.UUID) (Vault, error) {
	if v, ok := l.cache.Get(id); ok {
		return v, nil
	}
	e, err := l.entry(id)
	if nil != err {
		return Vault{}, err
	}
	e.view.RLock()
	defer e.view.RUnlock()

	v := e.committed.Clone()
	l.cache.Set(v)
	return v, nil
}

// IDs - every vault id in creation order
func (l *Ledger) IDs() []uuid.UUID {
	l.RLock()
	defer l.RUnlock()

	ids := make([]uuid.UUID, len(l.order))
	copy(ids, l.order)
	return ids
}

// List - copies of every vault in creation order
func (l *Ledger) List() []Vault {
	ids := l.IDs()
	vaults := make([]Vault, 0, len(ids))
	for _, id := range ids {
		if v, err := l.Get(id); nil == err {
			vaults = append(vaults, v)
		}
	}
	return vaults
}

// TotalCollateral - collateral held by vaults that can be liquidated
func (l *Ledger) TotalCollateral() satoshi.Amount {
	total := satoshi.Amount(0)
	for _, v := range l.List() {
		if v.State.IsLive() || Liquidating == v.State {
			total += v.Collateral
		}
	}
	return total
}

// CollateralRatio - current ratio against a snapshot
func (l *Ledger) CollateralRatio(id uuid.UUID, snapshot rates.Snapshot) (Ratio, error) {
	v, err := l.Get(id)
	if nil != err {
		return Ratio{}, err
	}
	return v.Ratio(snapshot)
}

// effective M: strictest of the global minimum and every currency owed
func (l *Ledger) minimumRatio(v Vault) decimal.Decimal {
	m := l.config.MinimumRatio
	for _, c := range v.Currencies() {
		if p, err := l.registry.Get(c); nil == err && p.MinimumRatio.GreaterThan(m) {
			m = p.MinimumRatio
		}
	}
	return m
}

func (l *Ledger) checkMint(c currency.Currency, amount currency.Amount) error {
	if amount <= 0 {
		return fault.InvalidAmount
	}
	p, err := l.registry.Get(c)
	if nil != err {
		return err
	}
	if !p.Enabled {
		return fault.CurrencyDisabled
	}
	if amount < p.MinimumMint {
		return fault.BelowMinimumMint
	}
	return nil
}

// check a prospective vault meets the minimum ratio with fresh prices
func (l *Ledger) checkRatio(v Vault, now time.Time) error {
	if !v.HasDebt() {
		return nil
	}
	snapshot := l.rates.Snapshot()
	if err := snapshot.Require(now, l.config.MaxPriceAge, v.Currencies()...); nil != err {
		return err
	}
	r, err := v.Ratio(snapshot)
	if nil != err {
		return err
	}
	if r.LessThan(l.minimumRatio(v)) {
		return fault.InsufficientCollateral
	}
	return nil
}

// move a live vault between Active and Warning
// must hold entry lock
func (l *Ledger) evaluate(v *Vault, snapshot rates.Snapshot) bool {
	if !v.State.IsLive() {
		return false
	}
	r, err := v.Ratio(snapshot)
	if nil != err {
		return false
	}
	state := Active
	if r.LessThan(l.config.WarningRatio) {
		state = Warning
	}
	if state == v.State {
		return false
	}
	if Warning == state {
		l.log.Warnf("vault: %s  ratio: %s  below warning", v.ID, r)
	} else {
		l.log.Infof("vault: %s  ratio: %s  recovered", v.ID, r)
	}
	v.State = state
	return true
}

// make the current vault visible to readers
// must hold entry lock
func (l *Ledger) publish(e *entry) {
	e.view.Lock()
	e.committed = e.vault.Clone()
	l.cache.Invalidate(e.vault.ID)
	e.view.Unlock()
}

// journal the post-transition vault
// must hold entry lock
func (l *Ledger) commit(e *entry, t event.Type, now time.Time) error {
	l.publish(e)
	err := l.sink.Emit(t, now, e.vault.Clone())
	if nil != err {
		l.log.Criticalf("journal vault: %s  type: %s  error: %s", e.vault.ID, t, err)
	}
	return err
}
