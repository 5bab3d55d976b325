// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package risk - system wide collateral and concentration measures
// computed from one price snapshot
package risk

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/rates"
	"github.com/bitmark-inc/bitstable/vault"
)

// Thresholds - alert and at risk levels
type Thresholds struct {
	SystemWarning  decimal.Decimal // system ratio
	SystemCritical decimal.Decimal // system ratio
	AtRisk         decimal.Decimal // vault ratio
	Concentration  decimal.Decimal // largest vault's share of debt
	Top            int             // vaults in the top share
}

// DefaultThresholds - warn below 150%, critical below 130%, one vault
// holding more than 30% of the debt
func DefaultThresholds() Thresholds {
	return Thresholds{
		SystemWarning:  decimal.RequireFromString("1.5"),
		SystemCritical: decimal.RequireFromString("1.3"),
		AtRisk:         decimal.RequireFromString("1.5"),
		Concentration:  decimal.RequireFromString("0.3"),
		Top:            10,
	}
}

// Metrics - one measurement over the live and liquidating vaults
type Metrics struct {
	Vaults        int             `json:"vaults"`   // with debt
	Unpriced      int             `json:"unpriced"` // owing a currency without a price
	Warning       int             `json:"warning"`
	Liquidating   int             `json:"liquidating"`
	CollateralUSD decimal.Decimal `json:"collateralUSD"`
	DebtUSD       decimal.Decimal `json:"debtUSD"`
	SystemRatio   vault.Ratio     `json:"systemRatio"`
	LowestRatio   decimal.Decimal `json:"lowestRatio"`

	LargestShare decimal.Decimal                       `json:"largestShare"`
	TopShare     decimal.Decimal                       `json:"topShare"`
	Herfindahl   decimal.Decimal                       `json:"herfindahl"`
	Currencies   map[currency.Currency]decimal.Decimal `json:"currencyShare"`

	AtRisk        int             `json:"atRisk"`
	AtRiskDebtUSD decimal.Decimal `json:"atRiskDebtUSD"`
	Score         decimal.Decimal `json:"liquidationScore"` // 0.3·count share + 0.7·debt share
}

type measured struct {
	debt  decimal.Decimal
	ratio decimal.Decimal
}

var (
	countWeight = decimal.RequireFromString("0.3")
	debtWeight  = decimal.RequireFromString("0.7")
)

// Measure - aggregate the vaults that still carry risk
func Measure(vaults []vault.Vault, snapshot rates.Snapshot, t Thresholds) Metrics {
	m := Metrics{
		CollateralUSD: decimal.Zero,
		DebtUSD:       decimal.Zero,
		SystemRatio:   vault.Infinite(),
		LowestRatio:   decimal.Zero,
		LargestShare:  decimal.Zero,
		TopShare:      decimal.Zero,
		Herfindahl:    decimal.Zero,
		Currencies:    make(map[currency.Currency]decimal.Decimal),
		AtRiskDebtUSD: decimal.Zero,
		Score:         decimal.Zero,
	}

	debts := make([]measured, 0, len(vaults))
	byCurrency := make(map[currency.Currency]decimal.Decimal)
	for _, v := range vaults {
		switch {
		case vault.Liquidating == v.State:
			m.Liquidating += 1
		case vault.Warning == v.State:
			m.Warning += 1
		case v.State.IsLive():
		default:
			continue
		}
		if !v.HasDebt() {
			continue
		}

		debt, err := v.DebtUSD(snapshot)
		if nil != err {
			m.Unpriced += 1
			continue
		}
		collateral, err := snapshot.CollateralUSD(v.Collateral)
		if nil != err {
			m.Unpriced += 1
			continue
		}
		if !debt.IsPositive() {
			continue
		}
		for _, c := range v.Currencies() {
			value, _ := snapshot.ValueUSD(c, v.Debt[c])
			byCurrency[c] = byCurrency[c].Add(value)
		}

		m.Vaults += 1
		m.CollateralUSD = m.CollateralUSD.Add(collateral)
		m.DebtUSD = m.DebtUSD.Add(debt)
		debts = append(debts, measured{debt: debt, ratio: collateral.Div(debt)})
	}

	if 0 == len(debts) {
		return m
	}

	total := m.DebtUSD
	m.SystemRatio = vault.NewRatio(m.CollateralUSD.Div(total))

	sort.SliceStable(debts, func(i, j int) bool {
		return debts[i].debt.GreaterThan(debts[j].debt)
	})

	m.LowestRatio = debts[0].ratio
	for i, d := range debts {
		share := d.debt.Div(total)
		if d.ratio.LessThan(m.LowestRatio) {
			m.LowestRatio = d.ratio
		}
		m.Herfindahl = m.Herfindahl.Add(share.Mul(share))
		if i < t.Top {
			m.TopShare = m.TopShare.Add(share)
		}
		if d.ratio.LessThan(t.AtRisk) {
			m.AtRisk += 1
			m.AtRiskDebtUSD = m.AtRiskDebtUSD.Add(d.debt)
		}
	}
	m.LargestShare = debts[0].debt.Div(total)

	for c, value := range byCurrency {
		m.Currencies[c] = value.Div(total)
	}

	countShare := decimal.NewFromInt(int64(m.AtRisk)).Div(decimal.NewFromInt(int64(len(debts))))
	debtShare := m.AtRiskDebtUSD.Div(total)
	m.Score = countWeight.Mul(countShare).Add(debtWeight.Mul(debtShare))
	return m
}

// Level - alert severity
type Level string

// alert levels
const (
	Warn     Level = "warning"
	Critical Level = "critical"
)

// Alert - one threshold crossed
type Alert struct {
	Level     Level           `json:"level"`
	Measure   string          `json:"measure"`
	Value     decimal.Decimal `json:"value"`
	Threshold decimal.Decimal `json:"threshold"`
}

// Alerts - the thresholds a measurement crosses, most severe first
func (m Metrics) Alerts(t Thresholds) []Alert {
	alerts := make([]Alert, 0, 2)
	if !m.SystemRatio.IsInfinite() {
		r := m.SystemRatio.Decimal()
		switch {
		case r.LessThan(t.SystemCritical):
			alerts = append(alerts, Alert{Critical, "systemRatio", r, t.SystemCritical})
		case r.LessThan(t.SystemWarning):
			alerts = append(alerts, Alert{Warn, "systemRatio", r, t.SystemWarning})
		}
	}
	if m.LargestShare.GreaterThan(t.Concentration) {
		alerts = append(alerts, Alert{Warn, "largestShare", m.LargestShare, t.Concentration})
	}
	return alerts
}
