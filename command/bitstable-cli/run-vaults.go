// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/google/uuid"
	"github.com/urfave/cli"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/rates"
	"github.com/bitmark-inc/bitstable/vault"
)

type vaultSummary struct {
	ID         uuid.UUID                             `json:"id"`
	Owner      account.Account                       `json:"owner"`
	State      vault.State                           `json:"state"`
	Collateral satoshi.Amount                        `json:"collateral"`
	Debt       map[currency.Currency]currency.Amount `json:"debt"`
	Ratio      string                                `json:"ratio"`
}

type vaultDetail struct {
	Vault    vault.Vault                           `json:"vault"`
	Ratio    string                                `json:"ratio"`
	Headroom map[currency.Currency]string          `json:"headroom"` // amount or reason
	Backing  map[currency.Currency]currency.Amount `json:"backing"`
}

func runVaults(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	var owner *account.Account
	if s := c.String("owner"); "" != s {
		a, err := checkAccount("owner", s)
		if nil != err {
			return err
		}
		owner = &a
	}
	all := c.Bool("all")

	snapshot := m.system.Rates().Snapshot()

	list := make([]vaultSummary, 0)
	for _, v := range m.system.Protocol().Vaults().List() {
		if !all && v.State.IsTerminal() {
			continue
		}
		if nil != owner && owner.String() != v.Owner.String() {
			continue
		}
		list = append(list, vaultSummary{
			ID:         v.ID,
			Owner:      v.Owner,
			State:      v.State,
			Collateral: v.Collateral,
			Debt:       v.Debt,
			Ratio:      ratioOf(v, snapshot),
		})
	}

	return printJson(m.w, list)
}

func runVault(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	id, err := checkVaultID(c.String("id"))
	if nil != err {
		return err
	}

	registry, err := m.config.Registry()
	if nil != err {
		return err
	}

	p := m.system.Protocol()
	v, err := p.Vaults().Get(id)
	if nil != err {
		return err
	}

	detail := vaultDetail{
		Vault:    v,
		Ratio:    ratioOf(v, m.system.Rates().Snapshot()),
		Headroom: make(map[currency.Currency]string),
		Backing:  make(map[currency.Currency]currency.Amount),
	}
	for _, cur := range registry.Enabled() {
		h, err := p.Vaults().Headroom(id, cur)
		if nil != err {
			detail.Headroom[cur] = err.Error()
			continue
		}
		detail.Headroom[cur] = cur.FormatAmount(h)
	}
	for _, cur := range v.Currencies() {
		detail.Backing[cur] = p.Positions().BackedBy(id, cur)
	}

	return printJson(m.w, detail)
}

// ratio text, or the reason it cannot be computed
func ratioOf(v vault.Vault, snapshot rates.Snapshot) string {
	r, err := v.Ratio(snapshot)
	if nil != err {
		return err.Error()
	}
	return r.String()
}
