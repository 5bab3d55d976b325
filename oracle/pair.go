// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package oracle

import (
	"strings"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/fault"
)

// BTC - the only base asset
const BTC = "BTC"

// Pair - base/quote, the quote is fiat
type Pair struct {
	Base  string
	Quote currency.Currency
}

// NewPair - BTC priced in c
func NewPair(c currency.Currency) Pair {
	return Pair{
		Base:  BTC,
		Quote: c,
	}
}

// ParsePair - from "BTC/USD"
func ParsePair(s string) (Pair, error) {
	parts := strings.Split(s, "/")
	if 2 != len(parts) || BTC != strings.ToUpper(parts[0]) {
		return Pair{}, fault.InvalidPair
	}
	c, err := currency.FromString(parts[1])
	if nil != err || currency.Nothing == c {
		return Pair{}, fault.InvalidPair
	}
	return NewPair(c), nil
}

// IsValid - BTC over an enabled fiat
func (pair Pair) IsValid() bool {
	return BTC == pair.Base && pair.Quote.IsValid()
}

// String - "BTC/USD"
func (pair Pair) String() string {
	return pair.Base + "/" + pair.Quote.String()
}

// MarshalText - allows a pair as a JSON map key
func (pair Pair) MarshalText() ([]byte, error) {
	if !pair.IsValid() {
		return nil, fault.InvalidPair
	}
	return []byte(pair.String()), nil
}

// UnmarshalText - from "BTC/USD"
func (pair *Pair) UnmarshalText(s []byte) error {
	p, err := ParsePair(string(s))
	if nil != err {
		return err
	}
	*pair = p
	return nil
}
