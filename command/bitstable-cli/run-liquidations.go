// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/bitstable/liquidation"
)

type halt struct {
	Halted bool       `json:"halted"`
	Reason string     `json:"reason,omitempty"`
	Until  *time.Time `json:"until,omitempty"` // absent for an operator halt
}

type liquidations struct {
	Halt       halt                   `json:"halt"`
	Pending    []liquidation.Pending  `json:"pending"`
	Completed  []liquidation.Event    `json:"completed"`
	Statistics liquidation.Statistics `json:"statistics"`
}

func runLiquidations(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	engine := m.system.Protocol().Engine()

	halted, reason, until := engine.Halted()
	h := halt{
		Halted: halted,
		Reason: reason,
	}
	if halted && !until.IsZero() {
		h.Until = &until
	}

	return printJson(m.w, liquidations{
		Halt:       h,
		Pending:    engine.Pending(),
		Completed:  engine.Events(),
		Statistics: engine.Statistics(),
	})
}
