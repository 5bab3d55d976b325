// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package redemption

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/fault"
)

// Config - redemption tunables
type Config struct {
	BaseFee decimal.Decimal
	MaxFee  decimal.Decimal

	// whole units of each currency per UTC day
	DailyLimits  map[currency.Currency]decimal.Decimal
	DefaultLimit decimal.Decimal

	// pressure multiplier, adjusted after every redemption from the
	// volume of the last PressureWindow redemptions in that currency
	PressureWindow int
	PressureVolume decimal.Decimal // whole units
	Growth         decimal.Decimal
	Decay          decimal.Decimal
	MaxMultiplier  decimal.Decimal

	History     int // redemptions kept for Recent
	MaxPriceAge time.Duration
}

// DefaultConfig - 0.5% to 2% with about a million units per day
func DefaultConfig() Config {
	return Config{
		BaseFee: decimal.RequireFromString("0.005"),
		MaxFee:  decimal.RequireFromString("0.02"),
		DailyLimits: map[currency.Currency]decimal.Decimal{
			currency.USD: decimal.New(1000000, 0),
			currency.EUR: decimal.New(900000, 0),
			currency.GBP: decimal.New(800000, 0),
		},
		DefaultLimit:   decimal.New(1000000, 0),
		PressureWindow: 100,
		PressureVolume: decimal.New(100000, 0),
		Growth:         decimal.RequireFromString("1.1"),
		Decay:          decimal.RequireFromString("0.99"),
		MaxMultiplier:  decimal.New(3, 0),
		History:        10000,
		MaxPriceAge:    2 * time.Minute,
	}
}

func (config Config) validate() error {
	one := decimal.New(1, 0)
	if config.BaseFee.IsNegative() || config.MaxFee.LessThan(config.BaseFee) || !config.MaxFee.LessThan(one) {
		return fault.InvalidRatio
	}
	if !config.DefaultLimit.IsPositive() || !config.PressureVolume.IsPositive() {
		return fault.InvalidAmount
	}
	for c, limit := range config.DailyLimits {
		if !c.IsValid() {
			return fault.InvalidCurrency
		}
		if !limit.IsPositive() {
			return fault.InvalidAmount
		}
	}
	if config.Growth.LessThan(one) || config.Decay.GreaterThan(one) || !config.Decay.IsPositive() ||
		config.MaxMultiplier.LessThan(one) {
		return fault.InvalidRatio
	}
	if config.PressureWindow <= 0 || config.History <= 0 || config.MaxPriceAge <= 0 {
		return fault.InvalidCount
	}
	return nil
}

// limit in minor units
func (config Config) limit(c currency.Currency) currency.Amount {
	if l, ok := config.DailyLimits[c]; ok {
		return c.Round(l)
	}
	return c.Round(config.DefaultLimit)
}
