// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/liquidation"
	"github.com/bitmark-inc/bitstable/oracle"
	"github.com/bitmark-inc/bitstable/redemption"
	"github.com/bitmark-inc/bitstable/stability"
	"github.com/bitmark-inc/bitstable/vault"
)

// Reloadable - the settings applied again when the file changes
type Reloadable struct {
	Liquidation liquidation.Config
	Halt        bool
	HaltReason  string
	Overrides   []oracle.Pair
}

// collects the first decimal parse error
type decimals struct {
	section string
	err     error
}

func (d *decimals) parse(name string, s string) decimal.Decimal {
	if nil != d.err {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(s)
	if nil != err {
		d.err = fmt.Errorf("%s.%s: %q is not a decimal", d.section, name, s)
	}
	return value
}

func duration(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Interval - a positive number of seconds as a duration
func Interval(n int) (time.Duration, error) {
	if n <= 0 {
		return 0, fmt.Errorf("interval: %d must be positive", n)
	}
	return duration(n), nil
}

// Registry - currency parameters with the configured overrides
func (c *Configuration) Registry() (*currency.Registry, error) {
	registry := currency.NewRegistry()
	for _, ct := range c.Currencies {
		cur, err := currency.FromString(ct.Code)
		if nil != err || currency.Nothing == cur {
			return nil, fmt.Errorf("currencies: %q is not a currency", ct.Code)
		}
		p, err := registry.Get(cur)
		if nil != err {
			return nil, err
		}

		d := decimals{section: "currencies." + cur.String()}
		if "" != ct.AnnualFee {
			p.AnnualFee = d.parse("annual_fee", ct.AnnualFee)
		}
		if "" != ct.MinimumRatio {
			p.MinimumRatio = d.parse("minimum_ratio", ct.MinimumRatio)
		}
		if nil != d.err {
			return nil, d.err
		}
		if "" != ct.MinimumMint {
			p.MinimumMint, err = cur.ParseAmount(ct.MinimumMint)
			if nil != err {
				return nil, fmt.Errorf("currencies.%s.minimum_mint: %s", cur, err)
			}
		}
		p.Enabled = !ct.Disabled

		if err := registry.Set(cur, p); nil != err {
			return nil, fmt.Errorf("currencies.%s: %s", cur, err)
		}
	}
	return registry, nil
}

// Config - ledger tunables
func (v VaultType) Config() (vault.Config, error) {
	d := decimals{section: "vault"}
	config := vault.Config{
		MinimumRatio: d.parse("minimum_ratio", v.MinimumRatio),
		WarningRatio: d.parse("warning_ratio", v.WarningRatio),
		MaxPriceAge:  duration(v.MaxPriceAge),
		CacheExpiry:  duration(v.CacheExpiry),
	}
	return config, d.err
}

// Config - consensus tunables
func (o OracleType) Config() (oracle.Config, error) {
	config := oracle.DefaultConfig()
	d := decimals{section: "oracle"}

	config.Freshness = duration(o.Freshness)
	config.FutureSkew = duration(o.FutureSkew)
	config.Tolerance = d.parse("tolerance", o.Tolerance)
	config.Quorum = o.Quorum
	config.StrictQuorum = o.StrictQuorum
	config.BaselineMove = d.parse("baseline_move", o.BaselineMove)
	config.StrictMove = d.parse("strict_move", o.StrictMove)
	config.CooldownMove = d.parse("cooldown_move", o.CooldownMove)
	config.Cooldown = duration(o.Cooldown)
	config.SilenceTimeout = duration(o.SilenceTimeout)
	config.ReportRate = rate.Limit(o.ReportRate)
	config.ReportBurst = o.ReportBurst
	return config, d.err
}

// SourceBond - the bond registered for each configured source
func (o OracleType) SourceBond() (satoshi.Amount, error) {
	if o.Bond <= 0 {
		return 0, fmt.Errorf("oracle.bond: %d must be positive", o.Bond)
	}
	return satoshi.Amount(o.Bond), nil
}

// Pairs - the approved overrides
func (o OracleType) Pairs() ([]oracle.Pair, error) {
	pairs := make([]oracle.Pair, 0, len(o.Overrides))
	for _, s := range o.Overrides {
		pair, err := oracle.ParsePair(s)
		if nil != err {
			return nil, fmt.Errorf("oracle.overrides: %q: %s", s, err)
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// Config - engine tunables
func (l LiquidationType) Config() (liquidation.Config, error) {
	d := decimals{section: "liquidation"}
	config := liquidation.Config{
		SafeRatio:           d.parse("safe_ratio", l.SafeRatio),
		QuarterRatio:        d.parse("quarter_ratio", l.QuarterRatio),
		HalfRatio:           d.parse("half_ratio", l.HalfRatio),
		Threshold:           d.parse("threshold", l.Threshold),
		BonusBase:           d.parse("bonus_base", l.BonusBase),
		BonusSlope:          d.parse("bonus_slope", l.BonusSlope),
		BonusVolume:         d.parse("bonus_volume", l.BonusVolume),
		BonusCap:            d.parse("bonus_cap", l.BonusCap),
		VolumeWindow:        duration(l.VolumeWindow),
		RoundSupplyFraction: d.parse("round_supply_fraction", l.RoundSupplyFraction),
		RoundCap:            d.parse("round_cap", l.RoundCap),
		VaultFraction:       d.parse("vault_fraction", l.VaultFraction),
		VaultWindow:         duration(l.VaultWindow),
		FullExempt:          l.FullExempt,
		HaltFraction:        d.parse("halt_fraction", l.HaltFraction),
		HaltWindow:          duration(l.HaltWindow),
		HaltDuration:        duration(l.HaltDuration),
		MaxPriceAge:         duration(l.MaxPriceAge),
		SettlementTimeout:   duration(l.SettlementTimeout),
	}
	return config, d.err
}

// Config - redemption fee schedule and daily limits
//
// a listed limit replaces the built in limit of that currency only
func (r RedemptionType) Config() (redemption.Config, error) {
	d := decimals{section: "redemption"}
	config := redemption.Config{
		BaseFee:        d.parse("base_fee", r.BaseFee),
		MaxFee:         d.parse("max_fee", r.MaxFee),
		DailyLimits:    redemption.DefaultConfig().DailyLimits,
		DefaultLimit:   d.parse("daily_limit", r.DailyLimit),
		PressureWindow: r.PressureWindow,
		PressureVolume: d.parse("pressure_volume", r.PressureVolume),
		Growth:         d.parse("growth", r.Growth),
		Decay:          d.parse("decay", r.Decay),
		MaxMultiplier:  d.parse("max_multiplier", r.MaxMultiplier),
		History:        r.History,
		MaxPriceAge:    duration(r.MaxPriceAge),
	}
	for i, l := range r.Limits {
		c, err := currency.FromString(l.Currency)
		if nil != err || currency.Nothing == c {
			return redemption.Config{}, fmt.Errorf("redemption.limits[%d].currency: %q is not a currency", i+1, l.Currency)
		}
		config.DailyLimits[c] = d.parse(fmt.Sprintf("limits[%d].amount", i+1), l.Amount)
	}
	return config, d.err
}

// Account - the keeper's liquidator account
func (l LiquidationType) Account() (account.Account, error) {
	if "" == l.Liquidator {
		return account.Account{}, fmt.Errorf("liquidation.liquidator: account is required")
	}
	a, err := account.FromBase58(l.Liquidator)
	if nil != err {
		return account.Account{}, fmt.Errorf("liquidation.liquidator: %q: %s", l.Liquidator, err)
	}
	return *a, nil
}

// Reloadable - the part of the configuration that can change while running
func (c *Configuration) Reloadable() (Reloadable, error) {
	config, err := c.Liquidation.Config()
	if nil != err {
		return Reloadable{}, err
	}
	pairs, err := c.Oracle.Pairs()
	if nil != err {
		return Reloadable{}, err
	}
	reason := c.Liquidation.HaltReason
	if c.Liquidation.Halt && "" == reason {
		reason = "operator"
	}
	return Reloadable{
		Liquidation: config,
		Halt:        c.Liquidation.Halt,
		HaltReason:  reason,
		Overrides:   pairs,
	}, nil
}

// StabilityPolicies - the stability policies
func (s StabilityType) StabilityPolicies() ([]stability.Policy, error) {
	policies := make([]stability.Policy, 0, len(s.Policies))
	for i, pt := range s.Policies {
		section := fmt.Sprintf("stability.policies[%d]", i+1)

		holder, err := account.FromBase58(pt.Holder)
		if nil != err {
			return nil, fmt.Errorf("%s.holder: %q: %s", section, pt.Holder, err)
		}
		id, err := uuid.Parse(pt.Vault)
		if nil != err {
			return nil, fmt.Errorf("%s.vault: %q: %s", section, pt.Vault, err)
		}
		c, err := currency.FromString(pt.Currency)
		if nil != err || currency.Nothing == c {
			return nil, fmt.Errorf("%s.currency: %q is not a currency", section, pt.Currency)
		}

		var target stability.Target
		d := decimals{section: section}
		switch {
		case "" != pt.Fixed && "" == pt.Percentage:
			amount, err := c.ParseAmount(pt.Fixed)
			if nil != err {
				return nil, fmt.Errorf("%s.fixed: %q: %s", section, pt.Fixed, err)
			}
			target = stability.Fixed(amount)
		case "" == pt.Fixed && "" != pt.Percentage:
			target = stability.Percentage(d.parse("percentage", pt.Percentage))
		default:
			return nil, fmt.Errorf("%s: exactly one of fixed or percentage is required", section)
		}

		policy := stability.NewPolicy(*holder, id, c, target)
		if "" != pt.Threshold {
			policy.Threshold = d.parse("threshold", pt.Threshold)
		}
		if nil != d.err {
			return nil, d.err
		}
		policy.Enabled = !pt.Disabled
		policies = append(policies, policy)
	}
	return policies, nil
}

// StabilityHoldings - BTC balances counted towards percentage targets
func (s StabilityType) StabilityHoldings() ([]stability.Holding, error) {
	holdings := make([]stability.Holding, 0, len(s.Holdings))
	for i, ht := range s.Holdings {
		section := fmt.Sprintf("stability.holdings[%d]", i+1)

		holder, err := account.FromBase58(ht.Holder)
		if nil != err {
			return nil, fmt.Errorf("%s.holder: %q: %s", section, ht.Holder, err)
		}
		btc, err := satoshi.Parse(ht.BTC)
		if nil != err {
			return nil, fmt.Errorf("%s.btc: %q: %s", section, ht.BTC, err)
		}
		holdings = append(holdings, stability.Holding{Holder: *holder, BTC: btc})
	}
	return holdings, nil
}
