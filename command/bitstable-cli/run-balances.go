// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/urfave/cli"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/position"
)

type holding struct {
	Balance currency.Amount  `json:"balance"`
	Text    string           `json:"text"`
	Slices  []position.Slice `json:"slices"`
}

type balances struct {
	Holder   account.Account               `json:"holder"`
	Holdings map[currency.Currency]holding `json:"holdings"`
}

func runBalances(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	holder, err := checkAccount("holder", c.String("holder"))
	if nil != err {
		return err
	}

	positions := m.system.Protocol().Positions()

	result := balances{
		Holder:   holder,
		Holdings: make(map[currency.Currency]holding),
	}
	for cur, amount := range positions.Balances(holder) {
		result.Holdings[cur] = holding{
			Balance: amount,
			Text:    cur.FormatAmount(amount),
			Slices:  positions.Slices(holder, cur),
		}
	}

	return printJson(m.w, result)
}
