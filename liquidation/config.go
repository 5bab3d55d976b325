// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package liquidation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/fault"
)

// Config - liquidation tunables
type Config struct {
	// stage bands on the collateral ratio
	SafeRatio    decimal.Decimal // at or above: no action
	QuarterRatio decimal.Decimal // at or above: 25%
	HalfRatio    decimal.Decimal // at or above: 50%
	Threshold    decimal.Decimal // L: above 75%, at or below full

	// γ(V) = base + slope·ln(1 + V/volume), at most cap
	BonusBase    decimal.Decimal
	BonusSlope   decimal.Decimal
	BonusVolume  decimal.Decimal // USD
	BonusCap     decimal.Decimal
	VolumeWindow time.Duration

	// cascade limits
	RoundSupplyFraction decimal.Decimal // of total stable supply in USD
	RoundCap            decimal.Decimal // USD
	VaultFraction       decimal.Decimal // of a vault's debt per window
	VaultWindow         time.Duration
	FullExempt          bool // full liquidation ignores the vault window

	// emergency halt
	HaltFraction decimal.Decimal // of system collateral
	HaltWindow   time.Duration
	HaltDuration time.Duration

	MaxPriceAge       time.Duration
	SettlementTimeout time.Duration
}

// DefaultConfig - the standard schedule
func DefaultConfig() Config {
	return Config{
		SafeRatio:           decimal.RequireFromString("1.30"),
		QuarterRatio:        decimal.RequireFromString("1.275"),
		HalfRatio:           decimal.RequireFromString("1.255"),
		Threshold:           decimal.RequireFromString("1.25"),
		BonusBase:           decimal.RequireFromString("0.05"),
		BonusSlope:          decimal.RequireFromString("0.02"),
		BonusVolume:         decimal.New(1000000, 0),
		BonusCap:            decimal.RequireFromString("0.15"),
		VolumeWindow:        time.Hour,
		RoundSupplyFraction: decimal.RequireFromString("0.10"),
		RoundCap:            decimal.New(5000000, 0),
		VaultFraction:       decimal.RequireFromString("0.50"),
		VaultWindow:         time.Hour,
		FullExempt:          true,
		HaltFraction:        decimal.RequireFromString("0.20"),
		HaltWindow:          10 * time.Minute,
		HaltDuration:        time.Hour,
		MaxPriceAge:         2 * time.Minute,
		SettlementTimeout:   30 * time.Second,
	}
}

func fraction(d decimal.Decimal) bool {
	return d.IsPositive() && d.LessThanOrEqual(decimal.New(1, 0))
}

func (config Config) validate() error {
	one := decimal.New(1, 0)
	if !config.Threshold.GreaterThan(one) ||
		!config.HalfRatio.GreaterThan(config.Threshold) ||
		!config.QuarterRatio.GreaterThan(config.HalfRatio) ||
		!config.SafeRatio.GreaterThan(config.QuarterRatio) {
		return fault.InvalidRatio
	}
	if config.BonusBase.IsNegative() || config.BonusSlope.IsNegative() ||
		!config.BonusVolume.IsPositive() || config.BonusCap.LessThan(config.BonusBase) {
		return fault.InvalidRatio
	}
	if !fraction(config.RoundSupplyFraction) || !fraction(config.VaultFraction) ||
		!fraction(config.HaltFraction) || !config.RoundCap.IsPositive() {
		return fault.InvalidRatio
	}
	if config.VolumeWindow <= 0 || config.VaultWindow <= 0 || config.HaltWindow <= 0 ||
		config.HaltDuration <= 0 || config.MaxPriceAge <= 0 || config.SettlementTimeout <= 0 {
		return fault.InvalidCount
	}
	return nil
}
