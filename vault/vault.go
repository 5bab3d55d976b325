// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/rates"
)

// Vault - one collateralised position, also the journal payload of
// every vault record
type Vault struct {
	ID          uuid.UUID                             `json:"id"`
	Owner       account.Account                       `json:"owner"`
	Collateral  satoshi.Amount                        `json:"collateral"`
	Debt        map[currency.Currency]currency.Amount `json:"debt"`
	FeeCarry    map[currency.Currency]decimal.Decimal `json:"feeCarry,omitempty"` // minor units
	Created     time.Time                             `json:"created"`
	LastAccrual time.Time                             `json:"lastAccrual"`
	State       State                                 `json:"state"`
}

// Clone - deep copy
func (v Vault) Clone() Vault {
	c := v
	c.Debt = make(map[currency.Currency]currency.Amount, len(v.Debt))
	for k, a := range v.Debt {
		c.Debt[k] = a
	}
	c.FeeCarry = make(map[currency.Currency]decimal.Decimal, len(v.FeeCarry))
	for k, d := range v.FeeCarry {
		c.FeeCarry[k] = d
	}
	c.Owner.PublicKey = append([]byte(nil), v.Owner.PublicKey...)
	return c
}

// HasDebt - any non-zero currency
func (v Vault) HasDebt() bool {
	for _, a := range v.Debt {
		if a > 0 {
			return true
		}
	}
	return false
}

// Currencies - currencies with outstanding debt, in enumeration order
func (v Vault) Currencies() []currency.Currency {
	l := make([]currency.Currency, 0, len(v.Debt))
	for _, c := range currency.All() {
		if v.Debt[c] > 0 {
			l = append(l, c)
		}
	}
	return l
}

// DebtUSD - Σ debt(k) × rate(k→USD)
func (v Vault) DebtUSD(snapshot rates.Snapshot) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, c := range v.Currencies() {
		value, err := snapshot.ValueUSD(c, v.Debt[c])
		if nil != err {
			return decimal.Zero, err
		}
		total = total.Add(value)
	}
	return total, nil
}

// Ratio - collateral value over debt value, infinite with no debt
func (v Vault) Ratio(snapshot rates.Snapshot) (Ratio, error) {
	if !v.HasDebt() {
		return Infinite(), nil
	}
	debt, err := v.DebtUSD(snapshot)
	if nil != err {
		return Ratio{}, err
	}
	collateral, err := snapshot.CollateralUSD(v.Collateral)
	if nil != err {
		return Ratio{}, err
	}
	if !debt.IsPositive() {
		return Infinite(), nil
	}
	return NewRatio(collateral.Div(debt)), nil
}

// Ratio - a collateral ratio that may be infinite
type Ratio struct {
	value    decimal.Decimal
	infinite bool
}

// Infinite - the ratio of a vault without debt
func Infinite() Ratio {
	return Ratio{infinite: true}
}

// NewRatio - a finite ratio, 1.5 is 150%
func NewRatio(d decimal.Decimal) Ratio {
	return Ratio{value: d}
}

// IsInfinite - no debt
func (r Ratio) IsInfinite() bool {
	return r.infinite
}

// Decimal - the finite value, zero if infinite
func (r Ratio) Decimal() decimal.Decimal {
	return r.value
}

// LessThan - r < d
func (r Ratio) LessThan(d decimal.Decimal) bool {
	return !r.infinite && r.value.LessThan(d)
}

// Cmp - ordering with infinity above everything
func (r Ratio) Cmp(other Ratio) int {
	switch {
	case r.infinite && other.infinite:
		return 0
	case r.infinite:
		return 1
	case other.infinite:
		return -1
	}
	return r.value.Cmp(other.value)
}

// String - percentage with two places
func (r Ratio) String() string {
	if r.infinite {
		return "inf"
	}
	return r.value.Shift(2).StringFixed(2) + "%"
}

// MarshalText - the finite value or "inf"
func (r Ratio) MarshalText() ([]byte, error) {
	if r.infinite {
		return []byte("inf"), nil
	}
	return []byte(r.value.String()), nil
}
