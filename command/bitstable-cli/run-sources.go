// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/urfave/cli"

	"github.com/bitmark-inc/bitstable/oracle"
)

type sources struct {
	Sources  []oracle.SourceRecord `json:"sources"`
	Rejected uint64                `json:"rejected"`
}

func runSources(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	o := m.system.Protocol().Oracle()
	return printJson(m.w, sources{
		Sources:  o.Sources(),
		Rejected: o.Rejected(),
	})
}
