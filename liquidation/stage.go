// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package liquidation

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/vault"
)

// Stage - percentage of debt a liquidation clears
type Stage int

// stages
const (
	Safe          Stage = 0
	Quarter       Stage = 25
	Half          Stage = 50
	ThreeQuarters Stage = 75
	Full          Stage = 100
)

// Fraction - stage as a decimal fraction
func (stage Stage) Fraction() decimal.Decimal {
	return decimal.New(int64(stage), -2)
}

// String - e.g. "75%"
func (stage Stage) String() string {
	if Safe == stage {
		return "safe"
	}
	return strconv.Itoa(int(stage)) + "%"
}

// StageOf - the stage for a collateral ratio
func (config Config) StageOf(r vault.Ratio) Stage {
	switch {
	case r.IsInfinite() || !r.LessThan(config.SafeRatio):
		return Safe
	case !r.LessThan(config.QuarterRatio):
		return Quarter
	case !r.LessThan(config.HalfRatio):
		return Half
	case r.Decimal().GreaterThan(config.Threshold):
		return ThreeQuarters
	default:
		return Full
	}
}

// BonusRate - γ for a window volume in USD
func (config Config) BonusRate(volume decimal.Decimal) decimal.Decimal {
	if volume.IsNegative() {
		volume = decimal.Zero
	}
	ratio, _ := volume.Div(config.BonusVolume).Float64()
	slope, _ := config.BonusSlope.Float64()
	base, _ := config.BonusBase.Float64()

	gamma := decimal.NewFromFloat(base + slope*math.Log1p(ratio)).Round(8)
	if gamma.GreaterThan(config.BonusCap) {
		return config.BonusCap
	}
	return gamma
}
