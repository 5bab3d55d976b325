// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package system

import (
	"context"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/background"
	"github.com/bitmark-inc/bitstable/configuration"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/liquidation"
	"github.com/bitmark-inc/bitstable/oracle"
	"github.com/bitmark-inc/bitstable/oracle/source"
	"github.com/bitmark-inc/bitstable/position"
	"github.com/bitmark-inc/bitstable/protocol"
	"github.com/bitmark-inc/bitstable/rates"
	"github.com/bitmark-inc/bitstable/redemption"
	"github.com/bitmark-inc/bitstable/risk"
	"github.com/bitmark-inc/bitstable/settlement"
	"github.com/bitmark-inc/bitstable/stability"
	"github.com/bitmark-inc/bitstable/storage"
	"github.com/bitmark-inc/bitstable/vault"
)

// System - every running component of the daemon
type System struct {
	log *logger.L

	store    event.Store
	journal  *event.Journal
	table    *rates.Table
	custody  *settlement.Simulator
	protocol *protocol.Protocol
	poller   *source.Poller

	liquidator *account.Account // nil disables the keeper
	intervals  intervals
	thresholds risk.Thresholds
	readOnly   bool

	writer  *background.T
	workers *background.T
}

type intervals struct {
	poll      time.Duration
	sweep     time.Duration
	accrue    time.Duration
	keeper    time.Duration
	rebalance time.Duration
	stats     time.Duration
}

func getIntervals(options *configuration.Configuration) (intervals, error) {
	var i intervals
	var err error
	for _, item := range []struct {
		seconds int
		value   *time.Duration
	}{
		{options.Oracle.PollInterval, &i.poll},
		{options.Oracle.SweepInterval, &i.sweep},
		{options.Vault.AccrueInterval, &i.accrue},
		{options.Liquidation.KeeperInterval, &i.keeper},
		{options.Stability.Interval, &i.rebalance},
	} {
		*item.value, err = configuration.Interval(item.seconds)
		if nil != err {
			return intervals{}, err
		}
	}
	i.stats = statsDelay
	return i, nil
}

// New - build the components from the configuration and restore the
// journal, nothing is started
//
// a read-only system has no price sources and must not be started
func New(options *configuration.Configuration, readOnly bool) (*System, error) {
	log := logger.New("system")

	every, err := getIntervals(options)
	if nil != err {
		return nil, err
	}

	registry, err := options.Registry()
	if nil != err {
		return nil, err
	}
	vaultConfig, err := options.Vault.Config()
	if nil != err {
		return nil, err
	}
	oracleConfig, err := options.Oracle.Config()
	if nil != err {
		return nil, err
	}
	liquidationConfig, err := options.Liquidation.Config()
	if nil != err {
		return nil, err
	}
	redemptionConfig, err := options.Redemption.Config()
	if nil != err {
		return nil, err
	}
	policies, err := options.Stability.StabilityPolicies()
	if nil != err {
		return nil, err
	}
	holdings, err := options.Stability.StabilityHoldings()
	if nil != err {
		return nil, err
	}
	bond, err := options.Oracle.SourceBond()
	if nil != err {
		return nil, err
	}
	custodyTimeout, err := configuration.Interval(options.Custody.Timeout)
	if nil != err {
		return nil, err
	}

	var liquidator *account.Account
	if "" != options.Liquidation.Liquidator {
		a, err := options.Liquidation.Account()
		if nil != err {
			return nil, err
		}
		liquidator = &a
	}

	store, err := storage.Open(options.Storage, readOnly, logger.New("storage"))
	if nil != err {
		return nil, err
	}

	s, err := assemble(options, store, registry, vaultConfig, oracleConfig, liquidationConfig, redemptionConfig, custodyTimeout, log)
	if nil != err {
		store.Close()
		return nil, err
	}
	s.liquidator = liquidator
	s.intervals = every
	s.thresholds = risk.DefaultThresholds()
	s.thresholds.AtRisk = vaultConfig.MinimumRatio
	s.readOnly = readOnly

	n, err := s.protocol.Replay(store)
	if nil != err {
		store.Close()
		return nil, err
	}
	log.Infof("replayed: %d records", n)

	for _, policy := range policies {
		if err := s.protocol.Portfolio().Set(policy); nil != err {
			store.Close()
			return nil, err
		}
	}
	for _, h := range holdings {
		if err := s.protocol.Portfolio().Holdings().Set(h.Holder, h.BTC); nil != err {
			store.Close()
			return nil, err
		}
	}

	if readOnly {
		return s, nil
	}

	sources := make([]source.Source, 0, len(options.Sources))
	for _, sc := range options.Sources {
		src, err := source.New(sc, time.Now)
		if nil != err {
			store.Close()
			return nil, err
		}
		sources = append(sources, src)
	}
	s.poller, err = source.NewPoller(sources, s.protocol.Oracle(), every.poll, logger.New("poller"))
	if nil != err {
		store.Close()
		return nil, err
	}

	// replay restores known sources, only new ones are bonded here
	for _, src := range sources {
		err := s.protocol.Oracle().Register(src.Name(), src.PublicKey(), bond)
		switch err {
		case nil:
			log.Infof("registered source: %s  pair: %s", src.Name(), src.Pair())
		case fault.SourceAlreadyRegistered:
			log.Debugf("known source: %s", src.Name())
		default:
			store.Close()
			return nil, err
		}
	}

	return s, nil
}

// construct the components on a store, the journal continues from
// the last stored sequence
func assemble(options *configuration.Configuration, store event.Store, registry *currency.Registry, vaultConfig vault.Config, oracleConfig oracle.Config, liquidationConfig liquidation.Config, redemptionConfig redemption.Config, timeout time.Duration, log *logger.L) (*System, error) {

	journal, err := event.NewJournal(store, options.JournalQueue, logger.New("journal"))
	if nil != err {
		return nil, err
	}

	var outcome settlement.Outcome
	if configuration.CustodyConfirm == options.Custody.Mode {
		outcome = settlement.ConfirmAll
	}
	custody, err := settlement.NewSimulator(options.Custody.QueueSize, outcome, logger.New("custody"))
	if nil != err {
		return nil, err
	}

	table := rates.New()

	vaults, err := vault.New(vaultConfig, registry, table, vault.NewCache(vaultConfig.CacheExpiry), journal, time.Now, logger.New("vault"))
	if nil != err {
		return nil, err
	}
	positions, err := position.New(journal, time.Now, logger.New("position"))
	if nil != err {
		return nil, err
	}
	o, err := oracle.New(oracleConfig, table, journal, time.Now, logger.New("oracle"))
	if nil != err {
		return nil, err
	}
	engine, err := liquidation.New(liquidationConfig, vaults, positions, table, custody, journal, time.Now, logger.New("liquidation"))
	if nil != err {
		return nil, err
	}
	portfolio, err := stability.NewPortfolio(vaults, positions, table, registry, vaultConfig.MaxPriceAge, time.Now, logger.New("stability"))
	if nil != err {
		return nil, err
	}

	redemptions, err := redemption.New(redemptionConfig, journal, time.Now, logger.New("redemption"))
	if nil != err {
		return nil, err
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
		Sink:        journal,
		Clock:       time.Now,
	}, timeout, logger.New("protocol"))
	if nil != err {
		return nil, err
	}

	return &System{
		log:      log,
		store:    store,
		journal:  journal,
		table:    table,
		custody:  custody,
		protocol: p,
	}, nil
}

// Start - run the journal writer first so nothing emitted is lost,
// then the workers; pending settlements are resubmitted once the
// router runs
func (s *System) Start() {
	if s.readOnly {
		s.log.Error("read-only system cannot be started")
		return
	}
	s.writer = background.Start(background.Processes{s.journal}, nil)

	processes := background.Processes{
		s.protocol.Router(),
		s.poller,
		s.protocol.Oracle().Sweeper(s.intervals.sweep),
		s.protocol.Vaults().Accruer(s.intervals.accrue),
		s.protocol.Rebalancer(s.intervals.rebalance),
		newStatistics(s, s.intervals.stats),
	}
	if nil != s.liquidator {
		processes = append(processes, s.protocol.Engine().Keeper(s.intervals.keeper, *s.liquidator))
	} else {
		s.log.Warn("no liquidator account: keeper disabled")
	}
	s.workers = background.Start(processes, nil)

	n := s.protocol.Resubmit(context.Background())
	if n > 0 {
		s.log.Warnf("resubmitted: %d settlements", n)
	}
}

// Reload - apply the reloadable part of the configuration
func (s *System) Reload(r configuration.Reloadable) {
	engine := s.protocol.Engine()
	if err := engine.SetConfig(r.Liquidation); nil != err {
		s.log.Errorf("liquidation configuration rejected: %s", err)
	}

	halted, _, until := engine.Halted()
	switch {
	case r.Halt && !(halted && until.IsZero()):
		engine.Halt(r.HaltReason)
	case !r.Halt && halted && until.IsZero():
		engine.Resume()
	}

	o := s.protocol.Oracle()
	for _, pair := range r.Overrides {
		if _, ok := o.PendingOverride(pair); !ok {
			s.log.Debugf("override: %s  nothing pending", pair)
			continue
		}
		c, err := o.ApproveOverride(pair)
		if nil != err {
			s.log.Errorf("override: %s  error: %s", pair, err)
			continue
		}
		s.log.Warnf("override approved: %s  price: %s", pair, c.Price)
	}
}

// Stop - workers before the writer so their last records are stored
func (s *System) Stop() {
	if nil != s.workers {
		s.workers.Stop()
	}
	if nil != s.writer {
		s.writer.Stop()
	}
	if n := s.protocol.Statistics().Pending; n > 0 {
		s.log.Warnf("unconfirmed collateral releases: %d  resubmitted on restart", n)
	}
	if err := s.store.Close(); nil != err {
		s.log.Errorf("store close error: %s", err)
	}
}

// Protocol - the composed operations
func (s *System) Protocol() *protocol.Protocol {
	return s.protocol
}

// Custody - the settlement simulator
func (s *System) Custody() *settlement.Simulator {
	return s.custody
}

// Poller - the price poller, nil when read-only
func (s *System) Poller() *source.Poller {
	return s.poller
}

// Rates - the accepted prices
func (s *System) Rates() *rates.Table {
	return s.table
}

// Risk - system measures over the current prices
func (s *System) Risk() risk.Metrics {
	return risk.Measure(s.protocol.Vaults().List(), s.table.Snapshot(), s.thresholds)
}

// Thresholds - the levels Risk is judged against
func (s *System) Thresholds() risk.Thresholds {
	return s.thresholds
}

// Store - the event log
func (s *System) Store() event.Store {
	return s.store
}
