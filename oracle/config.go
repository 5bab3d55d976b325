// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package oracle

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/bitstable/fault"
)

// Config - consensus tunables
type Config struct {
	Freshness      time.Duration   // oldest acceptable report
	FutureSkew     time.Duration   // newest acceptable report ahead of the clock
	Tolerance      decimal.Decimal // maximum relative spread of an agreeing set
	Quorum         int             // weight needed for a normal move
	StrictQuorum   int             // weight needed for a large move
	BaselineMove   decimal.Decimal // largest move accepted at Quorum
	StrictMove     decimal.Decimal // largest move accepted at StrictQuorum
	CooldownMove   decimal.Decimal // a move above this starts the cooldown
	Cooldown       time.Duration   // zero disables the cooldown
	GoodStanding   decimal.Decimal // score at which a source has full weight
	Decay          decimal.Decimal // weight of the previous score in the average
	SilenceTimeout time.Duration   // decay a source silent for this long
	HistorySize    int
	TWAPWindow     time.Duration
	ReportRate     rate.Limit // reports per second per source
	ReportBurst    int
	DuplicateCache int // digests remembered for duplicate detection
}

// DefaultConfig - the production defaults
func DefaultConfig() Config {
	return Config{
		Freshness:      30 * time.Second,
		FutureSkew:     5 * time.Second,
		Tolerance:      decimal.New(2, -2),
		Quorum:         3,
		StrictQuorum:   5,
		BaselineMove:   decimal.New(10, -2),
		StrictMove:     decimal.New(20, -2),
		CooldownMove:   decimal.New(5, -2),
		Cooldown:       15 * time.Minute,
		GoodStanding:   decimal.New(8, -1),
		Decay:          decimal.New(9, -1),
		SilenceTimeout: time.Hour,
		HistorySize:    1000,
		TWAPWindow:     24 * time.Hour,
		ReportRate:     rate.Limit(1),
		ReportBurst:    5,
		DuplicateCache: 4096,
	}
}

func (config Config) validate() error {
	switch {
	case config.Freshness <= 0, config.FutureSkew < 0, config.Cooldown < 0:
		return fault.MissingParameters
	case config.Quorum < 1, config.StrictQuorum < config.Quorum:
		return fault.InvalidCount
	case !config.Tolerance.IsPositive(), !config.GoodStanding.IsPositive():
		return fault.InvalidRatio
	case config.Decay.IsNegative(), config.Decay.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return fault.InvalidRatio
	case !config.BaselineMove.IsPositive(), config.StrictMove.LessThan(config.BaselineMove):
		return fault.InvalidRatio
	case config.HistorySize < 1, config.ReportBurst < 1, config.DuplicateCache < 1:
		return fault.InvalidCount
	}
	return nil
}
