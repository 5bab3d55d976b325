// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli"

	"github.com/bitmark-inc/bitstable/oracle"
)

type price struct {
	Pair     oracle.Pair      `json:"pair"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Accepted *time.Time       `json:"accepted,omitempty"`
	Sources  []string         `json:"sources,omitempty"`
	Override bool             `json:"override"`
	TWAP     *decimal.Decimal `json:"twap,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func runPrices(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	registry, err := m.config.Registry()
	if nil != err {
		return err
	}

	o := m.system.Protocol().Oracle()

	list := make([]price, 0)
	for _, cur := range registry.Enabled() {
		pair := oracle.NewPair(cur)
		item := price{
			Pair: pair,
		}
		current, err := o.Current(pair)
		if nil != err {
			item.Error = err.Error()
			list = append(list, item)
			continue
		}
		item.Price = &current.Price
		item.Accepted = &current.Accepted
		item.Sources = current.Sources
		item.Override = current.Override
		if twap, err := o.TWAP(pair); nil == err {
			item.TWAP = &twap
		}
		list = append(list, item)
	}

	return printJson(m.w, list)
}
