// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stability

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/fault"
)

// DefaultThreshold - relative deviation tolerated before acting
var DefaultThreshold = decimal.RequireFromString("0.02")

// Target - a fixed amount, or when Fraction is set a share of the
// holder's total value
type Target struct {
	Amount   currency.Amount `json:"amount,omitempty"`
	Fraction decimal.Decimal `json:"fraction"`
}

// Fixed - hold exactly this amount
func Fixed(amount currency.Amount) Target {
	return Target{Amount: amount}
}

// Percentage - hold a fraction (0.40 for 40%) of BTC plus stable value
func Percentage(fraction decimal.Decimal) Target {
	return Target{Fraction: fraction}
}

// IsPercentage - whether the target depends on the BTC price
func (t Target) IsPercentage() bool {
	return !t.Fraction.IsZero()
}

func (t Target) validate() error {
	if t.IsPercentage() {
		if t.Fraction.IsNegative() || t.Fraction.GreaterThan(decimal.New(1, 0)) || 0 != t.Amount {
			return fault.InvalidTarget
		}
		return nil
	}
	if t.Amount <= 0 {
		return fault.InvalidTarget
	}
	return nil
}

// Policy - one holder's target in one currency
type Policy struct {
	Holder    account.Account   `json:"holder"`
	Vault     uuid.UUID         `json:"vault"` // minted from and repaid to
	Currency  currency.Currency `json:"currency"`
	Target    Target            `json:"target"`
	Threshold decimal.Decimal   `json:"threshold"`
	Enabled   bool              `json:"enabled"`
}

// NewPolicy - an enabled policy with the default threshold
func NewPolicy(holder account.Account, vault uuid.UUID, c currency.Currency, target Target) Policy {
	return Policy{
		Holder:    holder,
		Vault:     vault,
		Currency:  c,
		Target:    target,
		Threshold: DefaultThreshold,
		Enabled:   true,
	}
}

func (p Policy) validate() error {
	if p.Holder.IsZero() {
		return fault.InvalidAccount
	}
	if uuid.Nil == p.Vault {
		return fault.InvalidVault
	}
	if !p.Currency.IsValid() {
		return fault.InvalidCurrency
	}
	if p.Threshold.IsNegative() {
		return fault.InvalidRatio
	}
	return p.Target.validate()
}

// Inputs - the state a policy is evaluated against
type Inputs struct {
	Balance     currency.Amount // current stable balance
	BTC         satoshi.Amount  // holder's BTC balance for a percentage target
	Price       decimal.Decimal // currency per BTC
	Headroom    currency.Amount // largest mint the vault allows
	MinimumMint currency.Amount
}

// Desired - the balance the policy aims for, in minor units
func (p Policy) Desired(in Inputs) currency.Amount {
	if !p.Target.IsPercentage() {
		return p.Target.Amount
	}
	total := in.BTC.Value(in.Price).Add(p.Currency.ToDecimal(in.Balance))
	return p.Currency.Floor(total.Mul(p.Target.Fraction))
}

// Deviates - whether the balance is outside the threshold around the
// desired amount; desired is floored at one minor unit
func (p Policy) Deviates(in Inputs) bool {
	desired := p.Desired(in)
	if desired < 1 {
		desired = 1
	}
	diff := desired - in.Balance
	if diff < 0 {
		diff = -diff
	}
	relative := decimal.NewFromInt(int64(diff)).Div(decimal.NewFromInt(int64(desired)))
	return relative.GreaterThan(p.Threshold)
}

// Evaluate - the action that moves the balance to the target
//
// a mint is clamped to the headroom and dropped when that leaves less
// than the minimum mint; a burn is clamped to the balance
func (p Policy) Evaluate(in Inputs) Action {
	if !p.Enabled || !p.Deviates(in) {
		return Action{Kind: None, Currency: p.Currency}
	}

	diff := p.Desired(in) - in.Balance
	if diff > 0 {
		amount := diff
		if amount > in.Headroom {
			amount = in.Headroom
		}
		if amount <= 0 || amount < in.MinimumMint {
			return Action{Kind: None, Currency: p.Currency}
		}
		return Action{Kind: Mint, Currency: p.Currency, Amount: amount}
	}

	amount := -diff
	if amount > in.Balance {
		amount = in.Balance
	}
	if amount <= 0 {
		return Action{Kind: None, Currency: p.Currency}
	}
	return Action{Kind: Burn, Currency: p.Currency, Amount: amount}
}
