// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package currency

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/fault"
)

// Parameters - per currency risk and fee settings
type Parameters struct {
	AnnualFee    decimal.Decimal // stability fee, e.g. 0.02 for 2% APR
	MinimumRatio decimal.Decimal // collateral ratio required to issue debt
	MinimumMint  Amount          // smallest mint in minor units
	Enabled      bool
}

// Registry - the parameters for each currency
type Registry struct {
	sync.RWMutex
	params map[Currency]Parameters
}

// DefaultParameters - 2% APR, 150% minimum ratio and a minimum mint of 10 units
func DefaultParameters(c Currency) Parameters {
	return Parameters{
		AnnualFee:    decimal.RequireFromString("0.02"),
		MinimumRatio: decimal.RequireFromString("1.5"),
		MinimumMint:  Amount(decimal.New(10, 0).Shift(c.Decimals()).IntPart()),
		Enabled:      true,
	}
}

// NewRegistry - all currencies enabled with the standard schedule
func NewRegistry() *Registry {
	r := &Registry{
		params: make(map[Currency]Parameters, Count),
	}
	for _, c := range All() {
		r.params[c] = DefaultParameters(c)
	}

	eur := DefaultParameters(EUR)
	eur.AnnualFee = decimal.RequireFromString("0.025")
	r.params[EUR] = eur

	gbp := DefaultParameters(GBP)
	gbp.AnnualFee = decimal.RequireFromString("0.03")
	r.params[GBP] = gbp

	// emerging market currency carries a higher fee and collateral requirement
	ngn := DefaultParameters(NGN)
	ngn.AnnualFee = decimal.RequireFromString("0.08")
	ngn.MinimumRatio = decimal.RequireFromString("1.75")
	r.params[NGN] = ngn

	return r
}

// Get - parameters for a currency
func (r *Registry) Get(c Currency) (Parameters, error) {
	r.RLock()
	defer r.RUnlock()

	p, ok := r.params[c]
	if !ok {
		return Parameters{}, fault.InvalidCurrency
	}
	return p, nil
}

// Set - replace the parameters for a currency
func (r *Registry) Set(c Currency, p Parameters) error {
	if !c.IsValid() {
		return fault.InvalidCurrency
	}
	if p.AnnualFee.IsNegative() || p.MinimumRatio.LessThanOrEqual(decimal.New(1, 0)) || p.MinimumMint < 0 {
		return fault.InvalidRatio
	}

	r.Lock()
	r.params[c] = p
	r.Unlock()
	return nil
}

// Enabled - currencies that accept new debt
func (r *Registry) Enabled() []Currency {
	r.RLock()
	defer r.RUnlock()

	l := make([]Currency, 0, len(r.params))
	for _, c := range All() {
		if p, ok := r.params[c]; ok && p.Enabled {
			l = append(l, c)
		}
	}
	return l
}
