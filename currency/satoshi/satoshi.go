// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package satoshi

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/fault"
)

// PerBitcoin - number of satoshi in one BTC
const PerBitcoin = 100000000

const decimals = 8

var maximum = decimal.NewFromInt(math.MaxInt64)

// Amount - BTC value as an integer count of satoshi
type Amount int64

// FromByteString - convert a string to a Satoshi value
//
// i.e. "0.00000001" will convert to Amount(1)
//
// Note: Invalid characters are simply ignored and the conversion
//       simply stops after 8 decimal places have been processed.
//       Extra decimal points will also be ignored.
func FromByteString(btc []byte) Amount {

	s := Amount(0)
	point := false
	places := 0

get_digits:
	for _, b := range btc {
		if b >= '0' && b <= '9' {
			s *= 10
			s += Amount(b - '0')
			if point {
				places += 1
				if places >= decimals {
					break get_digits
				}
			}
		} else if '.' == b {
			point = true
		}
	}
	for places < decimals {
		s *= 10
		places += 1
	}

	return s
}

// Parse - strict conversion of a BTC decimal string
func Parse(btc string) (Amount, error) {
	d, err := decimal.NewFromString(btc)
	if nil != err || d.IsNegative() {
		return 0, fault.InvalidAmount
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) || scaled.GreaterThan(maximum) {
		return 0, fault.InvalidAmount
	}
	return Amount(scaled.IntPart()), nil
}

// FromBTC - convert a BTC decimal to satoshi rounding down
func FromBTC(btc decimal.Decimal) Amount {
	return Amount(btc.Shift(decimals).Floor().IntPart())
}

// FromBTCCeil - convert a BTC decimal to satoshi rounding up
func FromBTCCeil(btc decimal.Decimal) Amount {
	return Amount(btc.Shift(decimals).Ceil().IntPart())
}

// BTC - value in whole bitcoin
func (a Amount) BTC() decimal.Decimal {
	return decimal.New(int64(a), -decimals)
}

// Value - fiat value of the amount at a price per whole BTC
func (a Amount) Value(price decimal.Decimal) decimal.Decimal {
	return a.BTC().Mul(price)
}

// String - fixed eight decimal places
func (a Amount) String() string {
	sign := ""
	n := int64(a)
	if n < 0 {
		sign = "-"
		n = -n
	}
	return fmt.Sprintf("%s%d.%08d", sign, n/PerBitcoin, n%PerBitcoin)
}
