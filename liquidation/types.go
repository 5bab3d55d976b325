// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package liquidation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/position"
	"github.com/bitmark-inc/bitstable/settlement"
	"github.com/bitmark-inc/bitstable/vault"
)

// Vaults - the vault ledger operations a liquidation needs
type Vaults interface {
	List() []vault.Vault
	TotalCollateral() satoshi.Amount
	BeginLiquidation(id uuid.UUID, decide func(v vault.Vault) (bool, error)) (vault.Vault, error)
	CompleteLiquidation(id uuid.UUID, seized satoshi.Amount, cleared map[currency.Currency]currency.Amount, full bool) (vault.Vault, satoshi.Amount, error)
	AbortLiquidation(id uuid.UUID) (vault.Vault, error)
}

// Positions - the position ledger operations a liquidation needs
type Positions interface {
	Burn(holder account.Account, c currency.Currency, amount currency.Amount) (position.Consumed, error)
	Restore(holder account.Account, c currency.Currency, consumed position.Consumed) error
	Reback(vault uuid.UUID, c currency.Currency, replacements []position.Portion) error
	BackedBy(vault uuid.UUID, c currency.Currency) currency.Amount
	TotalSupply(c currency.Currency) currency.Amount
}

// Status - progress of a staged liquidation
type Status string

// liquidation status
const (
	Staged    Status = "staged"
	Submitted Status = "submitted"
	Failed    Status = "failed"
)

// Pending - a staged liquidation waiting for settlement, also the
// payload of a LiquidationStaged record
type Pending struct {
	Intent     uuid.UUID                               `json:"intent"`
	Vault      uuid.UUID                               `json:"vault"`
	Owner      account.Account                         `json:"owner"`
	Liquidator account.Account                         `json:"liquidator"`
	Stage      Stage                                   `json:"stage"`
	Fraction   decimal.Decimal                         `json:"fraction"` // after the vault window clamp
	Full       bool                                    `json:"full"`
	Ratio      decimal.Decimal                         `json:"ratio"`
	Price      decimal.Decimal                         `json:"price"` // BTC/USD
	Seized     satoshi.Amount                          `json:"seized"`
	Bonus      satoshi.Amount                          `json:"bonus"`
	BonusRate  decimal.Decimal                         `json:"bonusRate"`
	Cleared    map[currency.Currency]currency.Amount   `json:"cleared"`
	ClearedUSD decimal.Decimal                         `json:"clearedUSD"`
	Consumed   map[currency.Currency]position.Consumed `json:"consumed"`
	Staged     time.Time                               `json:"staged"`

	Status     Status        `json:"status"`
	Settlement settlement.ID `json:"settlement,omitempty"`
	Attempts   int           `json:"attempts"`
	Reason     string        `json:"reason,omitempty"`
	Broadcast  bool          `json:"broadcast"`
}

func (p *Pending) clone() Pending {
	c := *p
	c.Cleared = make(map[currency.Currency]currency.Amount, len(p.Cleared))
	for k, a := range p.Cleared {
		c.Cleared[k] = a
	}
	c.Consumed = make(map[currency.Currency]position.Consumed, len(p.Consumed))
	for k, consumed := range p.Consumed {
		c.Consumed[k] = append(position.Consumed(nil), consumed...)
	}
	return c
}

func (p *Pending) failure() Failure {
	return Failure{
		Intent:     p.Intent,
		Vault:      p.Vault,
		Settlement: p.Settlement,
		Reason:     p.Reason,
		Broadcast:  p.Broadcast,
	}
}

// Event - a completed liquidation, also the payload of a
// LiquidationCompleted record
type Event struct {
	Intent     uuid.UUID                             `json:"intent"`
	Vault      uuid.UUID                             `json:"vault"`
	Stage      Stage                                 `json:"stage"`
	Full       bool                                  `json:"full"`
	Seized     satoshi.Amount                        `json:"seized"`
	Bonus      satoshi.Amount                        `json:"bonus"`
	Cleared    map[currency.Currency]currency.Amount `json:"cleared"`
	ClearedUSD decimal.Decimal                       `json:"clearedUSD"`
	Surplus    satoshi.Amount                        `json:"surplus"`
	Liquidator account.Account                       `json:"liquidator"`
	Settlement settlement.ID                         `json:"settlement"`
	Timestamp  time.Time                             `json:"timestamp"`
}

// Aborted - payload of a LiquidationAborted record
type Aborted struct {
	Intent uuid.UUID `json:"intent"`
	Vault  uuid.UUID `json:"vault"`
	Reason string    `json:"reason"`
}

// Failure - payload of a LiquidationFailed record
type Failure struct {
	Intent     uuid.UUID     `json:"intent"`
	Vault      uuid.UUID     `json:"vault"`
	Settlement settlement.ID `json:"settlement,omitempty"`
	Reason     string        `json:"reason"`
	Broadcast  bool          `json:"broadcast"`
}

// Completion - result of applying a confirmed seizure
type Completion struct {
	Event   Event
	Vault   vault.Vault
	Surplus satoshi.Amount // collateral to release to the owner
}

// Report - outcome of one round
type Report struct {
	Evaluated int
	Impaired  int
	Staged    int
	Deferred  int
	Skipped   int
	Halted    bool
	Seized    satoshi.Amount
}

// Statistics - engine counters
type Statistics struct {
	Rounds    uint64
	Staged    uint64
	Completed uint64
	Aborted   uint64
	Deferred  uint64
	Skipped   uint64
	Failures  uint64
	Halts     uint64
}

// LiquidatorStatistics - totals for one liquidator
type LiquidatorStatistics struct {
	Liquidations uint64                                `json:"liquidations"`
	Received     satoshi.Amount                        `json:"received"`
	Bonus        satoshi.Amount                        `json:"bonus"`
	Cleared      map[currency.Currency]currency.Amount `json:"cleared"`
}
