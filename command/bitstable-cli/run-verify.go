// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/protocol"
)

type verification struct {
	Vaults   int      `json:"vaults"`
	Holders  int      `json:"holders"`
	Problems []string `json:"problems"`
}

func runVerify(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	result := verify(m.system.Protocol())
	if err := printJson(m.w, result); nil != err {
		return err
	}
	if 0 != len(result.Problems) {
		return fmt.Errorf("verify: %d problems found", len(result.Problems))
	}
	return nil
}

// check the ledgers agree after replay
func verify(p *protocol.Protocol) verification {

	vaults := p.Vaults().List()
	positions := p.Positions()
	holders := positions.Holders()

	result := verification{
		Vaults:   len(vaults),
		Holders:  len(holders),
		Problems: make([]string, 0),
	}
	problem := func(format string, arguments ...interface{}) {
		result.Problems = append(result.Problems, fmt.Sprintf(format, arguments...))
	}

	debt := make(map[currency.Currency]currency.Amount)
	for _, v := range vaults {
		if v.Collateral < 0 {
			problem("vault: %s  negative collateral: %d", v.ID, v.Collateral)
		}
		for _, cur := range currency.All() {
			d := v.Debt[cur]
			if d < 0 {
				problem("vault: %s  negative %s debt: %d", v.ID, cur, d)
			}
			debt[cur] += d
			if backed := positions.BackedBy(v.ID, cur); backed > d {
				problem("vault: %s  %s slices: %d exceed debt: %d", v.ID, cur, backed, d)
			}
		}
	}

	for _, cur := range currency.All() {
		balances := currency.Amount(0)
		for _, holder := range holders {
			b := positions.Balance(holder, cur)
			if b < 0 {
				problem("holder: %s  negative %s balance: %d", holder.String(), cur, b)
			}
			balances += b
		}
		supply := positions.TotalSupply(cur)
		if balances != supply {
			problem("%s balances: %d differ from supply: %d", cur, balances, supply)
		}
		if supply > debt[cur] {
			problem("%s supply: %d exceeds debt: %d", cur, supply, debt[cur])
		}
	}

	return result
}
