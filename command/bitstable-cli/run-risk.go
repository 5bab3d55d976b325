// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/redemption"
	"github.com/bitmark-inc/bitstable/risk"
)

type riskReport struct {
	Metrics risk.Metrics `json:"metrics"`
	Alerts  []risk.Alert `json:"alerts"`
}

func runRisk(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	metrics := m.system.Risk()
	return printJson(m.w, riskReport{
		Metrics: metrics,
		Alerts:  metrics.Alerts(m.system.Thresholds()),
	})
}

type redemptions struct {
	Statistics redemption.Statistics                 `json:"statistics"`
	Remaining  map[currency.Currency]currency.Amount `json:"remaining"`
	Recent     []redemption.Redemption               `json:"recent"`
}

func runRedemptions(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	count := c.Int("count")
	if count <= 0 {
		return fmt.Errorf("count: %d must be positive", count)
	}

	engine := m.system.Protocol().Redemptions()
	remaining := make(map[currency.Currency]currency.Amount)
	for _, cur := range currency.All() {
		remaining[cur] = engine.Remaining(cur)
	}

	return printJson(m.w, redemptions{
		Statistics: engine.Statistics(),
		Remaining:  remaining,
		Recent:     engine.Recent(count),
	})
}
