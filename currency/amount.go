// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package currency

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/fault"
)

// Amount - fixed point fiat value as an integer count of minor units
//
// the scale is implied by the currency the amount belongs to
type Amount int64

var maximumMinor = decimal.NewFromInt(math.MaxInt64)

// ToDecimal - convert minor units to a decimal in whole units
func (currency Currency) ToDecimal(a Amount) decimal.Decimal {
	return decimal.New(int64(a), -currency.Decimals())
}

// Round - convert whole units to minor units, half away from zero
func (currency Currency) Round(d decimal.Decimal) Amount {
	return Amount(d.Shift(currency.Decimals()).Round(0).IntPart())
}

// Floor - convert whole units to minor units rounding down
func (currency Currency) Floor(d decimal.Decimal) Amount {
	return Amount(d.Shift(currency.Decimals()).Floor().IntPart())
}

// Split - convert whole units to minor units rounding down and
// return the fraction of a minor unit that was dropped, in minor units
func (currency Currency) Split(d decimal.Decimal) (Amount, decimal.Decimal) {
	scaled := d.Shift(currency.Decimals())
	whole := scaled.Floor()
	return Amount(whole.IntPart()), scaled.Sub(whole)
}

// ParseAmount - strict conversion of a decimal string such as "12.34"
//
// rejects negative values, more digits than the currency allows and
// values beyond the int64 range of minor units
func (currency Currency) ParseAmount(s string) (Amount, error) {
	if !currency.IsValid() {
		return 0, fault.InvalidCurrency
	}
	d, err := decimal.NewFromString(s)
	if nil != err {
		return 0, fault.InvalidAmount
	}
	if d.IsNegative() {
		return 0, fault.InvalidAmount
	}
	scaled := d.Shift(currency.Decimals())
	if !scaled.Equal(scaled.Truncate(0)) || scaled.GreaterThan(maximumMinor) {
		return 0, fault.InvalidAmount
	}
	return Amount(scaled.IntPart()), nil
}

// FormatAmount - convert minor units to a fixed point string
func (currency Currency) FormatAmount(a Amount) string {
	return currency.ToDecimal(a).StringFixed(currency.Decimals())
}
