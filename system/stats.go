// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package system

import (
	"encoding/json"
	"runtime"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/bitstable/background"
	"github.com/bitmark-inc/bitstable/liquidation"
	"github.com/bitmark-inc/bitstable/protocol"
	"github.com/bitmark-inc/bitstable/redemption"
	"github.com/bitmark-inc/bitstable/risk"
)

const (
	statsDelay = 60 * time.Second
	mega       = 1048576
)

// Snapshot - counters across the components
type Snapshot struct {
	Journal struct {
		Sequence uint64 `json:"sequence"`
		Written  uint64 `json:"written"`
	} `json:"journal"`
	Poller struct {
		Fetched uint64 `json:"fetched"`
		Failed  uint64 `json:"failed"`
	} `json:"poller"`
	Rejected    uint64                 `json:"rejectedReports"`
	Vaults      int                    `json:"vaults"`
	Liquidation liquidation.Statistics `json:"liquidation"`
	Protocol    protocol.Statistics    `json:"protocol"`
	Redemption  redemption.Statistics  `json:"redemption"`
	Risk        risk.Metrics           `json:"risk"`
}

// Snapshot - current counters
func (s *System) Snapshot() Snapshot {
	var ss Snapshot
	ss.Journal.Sequence = s.journal.Sequence()
	ss.Journal.Written = s.journal.Written()
	if nil != s.poller {
		ss.Poller.Fetched, ss.Poller.Failed = s.poller.Statistics()
	}
	ss.Rejected = s.protocol.Oracle().Rejected()
	ss.Vaults = len(s.protocol.Vaults().IDs())
	ss.Liquidation = s.protocol.Engine().Statistics()
	ss.Protocol = s.protocol.Statistics()
	ss.Redemption = s.protocol.Redemptions().Statistics()
	ss.Risk = s.Risk()
	return ss
}

// periodic log of counters and memory use
func newStatistics(s *System, interval time.Duration) background.Process {
	log := logger.New("statistics")
	return &background.Periodic{
		Interval: interval,
		Tick: func() {
			snapshot := s.Snapshot()
			text, err := json.Marshal(snapshot)
			if nil != err {
				log.Errorf("marshal error: %s", err)
			} else {
				log.Infof("stats: %s", text)
			}

			for _, a := range snapshot.Risk.Alerts(s.thresholds) {
				switch a.Level {
				case risk.Critical:
					log.Criticalf("risk: %s  value: %s  threshold: %s", a.Measure, a.Value.StringFixed(4), a.Threshold)
				default:
					log.Warnf("risk: %s  value: %s  threshold: %s", a.Measure, a.Value.StringFixed(4), a.Threshold)
				}
			}

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			a := m.Alloc / mega
			t := m.TotalAlloc / mega
			sys := m.Sys / mega
			log.Infof("allocated: %d M  cumulative: %d M  OS virtual: %d M", a, t, sys)
		},
	}
}
