// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"

	"github.com/bitmark-inc/bitstable/counter"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/liquidation"
	"github.com/bitmark-inc/bitstable/oracle"
	"github.com/bitmark-inc/bitstable/position"
	"github.com/bitmark-inc/bitstable/rates"
	"github.com/bitmark-inc/bitstable/redemption"
	"github.com/bitmark-inc/bitstable/settlement"
	"github.com/bitmark-inc/bitstable/stability"
	"github.com/bitmark-inc/bitstable/vault"
)

// Components - the constructed parts the protocol composes
type Components struct {
	Vaults    *vault.Ledger
	Positions *position.Ledger
	Oracle    *oracle.Oracle
	Engine    *liquidation.Engine
	Portfolio   *stability.Portfolio // optional
	Redemptions *redemption.Engine   // optional, needs Rates
	Rates       rates.Reader
	Custody     settlement.Custody
	Sink        event.Sink       // journal for releases, optional
	Clock       func() time.Time // optional
}

// Protocol - composes the ledgers into complete operations
type Protocol struct {
	sync.Mutex // protects releases

	redeeming sync.Mutex // one redemption at a time

	log         *logger.L
	vaults      *vault.Ledger
	positions   *position.Ledger
	oracle      *oracle.Oracle
	engine      *liquidation.Engine
	portfolio   *stability.Portfolio
	redemptions *redemption.Engine
	rates       rates.Reader
	custody     settlement.Custody
	sink        event.Sink
	clock       func() time.Time
	timeout     time.Duration

	releases map[uuid.UUID]*Release

	routed   counter.Counter
	released counter.Counter
	orphans  counter.Counter
}

// New - wire the components together
func New(components Components, timeout time.Duration, log *logger.L) (*Protocol, error) {
	if nil == components.Vaults || nil == components.Positions || nil == components.Oracle ||
		nil == components.Engine || nil == components.Custody || nil == log {
		return nil, fault.MissingParameters
	}
	if timeout <= 0 {
		return nil, fault.InvalidCount
	}
	sink := components.Sink
	if nil == sink {
		sink = event.Discard
	}
	clock := components.Clock
	if nil == clock {
		clock = time.Now
	}
	if nil != components.Redemptions && nil == components.Rates {
		return nil, fault.MissingParameters
	}
	return &Protocol{
		log:         log,
		vaults:      components.Vaults,
		positions:   components.Positions,
		oracle:      components.Oracle,
		engine:      components.Engine,
		portfolio:   components.Portfolio,
		redemptions: components.Redemptions,
		rates:       components.Rates,
		custody:     components.Custody,
		sink:        sink,
		clock:       clock,
		timeout:     timeout,
		releases:    make(map[uuid.UUID]*Release),
	}, nil
}

// Vaults - the vault ledger
func (p *Protocol) Vaults() *vault.Ledger {
	return p.vaults
}

// Positions - the position ledger
func (p *Protocol) Positions() *position.Ledger {
	return p.positions
}

// Oracle - the price consensus
func (p *Protocol) Oracle() *oracle.Oracle {
	return p.oracle
}

// Engine - the liquidation engine
func (p *Protocol) Engine() *liquidation.Engine {
	return p.engine
}

// Portfolio - the stability policies, nil if none were configured
func (p *Protocol) Portfolio() *stability.Portfolio {
	return p.portfolio
}

// Redemptions - the redemption fees and limits, nil if not configured
func (p *Protocol) Redemptions() *redemption.Engine {
	return p.redemptions
}

// Statistics - protocol counters
type Statistics struct {
	Routed   uint64 `json:"routed"`
	Released uint64 `json:"released"`
	Orphans  uint64 `json:"orphans"`
	Pending  int    `json:"pendingReleases"`
}

// Statistics - counters and the number of unconfirmed releases
func (p *Protocol) Statistics() Statistics {
	p.Lock()
	n := len(p.releases)
	p.Unlock()
	return Statistics{
		Routed:   p.routed.Uint64(),
		Released: p.released.Uint64(),
		Orphans:  p.orphans.Uint64(),
		Pending:  n,
	}
}
