// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stability

import (
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/fault"
)

// Kind - what a rebalance does
type Kind int

// action kinds
const (
	None Kind = iota
	Mint
	Burn
)

var kindNames = []string{
	None: "none",
	Mint: "mint",
	Burn: "burn",
}

// String - kind name
func (kind Kind) String() string {
	if kind < None || kind > Burn {
		return "unknown"
	}
	return kindNames[kind]
}

// MarshalText - kind as its name
func (kind Kind) MarshalText() ([]byte, error) {
	if kind < None || kind > Burn {
		return nil, fault.InvalidCount
	}
	return []byte(kindNames[kind]), nil
}

// UnmarshalText - kind from its name
func (kind *Kind) UnmarshalText(s []byte) error {
	for k, name := range kindNames {
		if name == string(s) {
			*kind = Kind(k)
			return nil
		}
	}
	return fault.InvalidCount
}

// Action - a proposed mint or burn
type Action struct {
	Kind     Kind              `json:"kind"`
	Currency currency.Currency `json:"currency"`
	Amount   currency.Amount   `json:"amount"`
}

// String - for logging
func (a Action) String() string {
	if None == a.Kind {
		return "none"
	}
	return a.Kind.String() + " " + a.Currency.FormatAmount(a.Amount) + " " + a.Currency.String()
}
