// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/fault"
)

// Config - ledger tunables
type Config struct {
	MinimumRatio decimal.Decimal // global M, raised per currency by the registry
	WarningRatio decimal.Decimal
	MaxPriceAge  time.Duration
	CacheExpiry  time.Duration
}

// DefaultConfig - 150% minimum, warning below 140%
func DefaultConfig() Config {
	return Config{
		MinimumRatio: decimal.New(150, -2),
		WarningRatio: decimal.New(140, -2),
		MaxPriceAge:  2 * time.Minute,
		CacheExpiry:  time.Minute,
	}
}

func (config Config) validate() error {
	one := decimal.NewFromInt(1)
	if !config.MinimumRatio.GreaterThan(one) || !config.WarningRatio.GreaterThan(one) {
		return fault.InvalidRatio
	}
	if config.MaxPriceAge <= 0 || config.CacheExpiry <= 0 {
		return fault.MissingParameters
	}
	return nil
}
