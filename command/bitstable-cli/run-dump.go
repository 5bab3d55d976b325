// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/bitstable/event"
)

// stops the replay once enough records are printed
var errEnough = errors.New("enough")

func runDump(c *cli.Context) error {

	m := c.App.Metadata["config"].(*metadata)

	start := c.Uint64("start")
	if 0 == start {
		return fmt.Errorf("start must be at least 1")
	}

	count := c.Int("count")
	if count <= 0 {
		return fmt.Errorf("invalid count: %d", count)
	}

	recordType := event.Type(c.String("type"))

	if m.verbose {
		fmt.Fprintf(m.e, "dump: start: %d  count: %d  type: %q\n", start, count, recordType)
	}

	records := make([]event.Record, 0, count)
	err := m.system.Store().Replay(start-1, func(r event.Record) error {
		if "" != recordType && recordType != r.Type {
			return nil
		}
		records = append(records, r)
		if len(records) >= count {
			return errEnough
		}
		return nil
	})
	if nil != err && errEnough != err {
		return err
	}

	return printJson(m.w, records)
}
