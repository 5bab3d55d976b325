// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package oracle

import (
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"

	"golang.org/x/time/rate"
)

// Apply - rebuild state from a journal record without emitting
func (o *Oracle) Apply(r event.Record) error {
	switch r.Type {
	case event.SourceChanged:
		var sr SourceRecord
		if err := r.Decode(&sr); nil != err {
			return fault.CorruptRecord
		}
		o.applySource(sr)
		return nil

	case event.PriceAccepted:
		var c Consensus
		if err := r.Decode(&c); nil != err || !c.Pair.IsValid() {
			return fault.CorruptRecord
		}

		ps := o.pairState(c.Pair)
		ps.Lock()
		o.install(ps, c)
		ps.reports = make(map[string]Report)
		ps.pending = nil
		ps.accepted.Increment()
		if c.Override {
			ps.overrides.Increment()
		}
		o.reputation(&c)
		ps.Unlock()

		return o.rates.SetBTCPrice(c.Pair.Quote, c.Price, c.Accepted)

	default:
		return fault.UnknownEventType
	}
}

func (o *Oracle) applySource(sr SourceRecord) {
	o.Lock()
	defer o.Unlock()

	s, ok := o.sources[sr.ID]
	if !ok {
		s = &sourceState{
			id:         sr.ID,
			limiter:    rate.NewLimiter(o.config.ReportRate, o.config.ReportBurst),
			registered: sr.LastSeen,
			lastDecay:  sr.LastSeen,
		}
		o.sources[sr.ID] = s
	}
	s.publicKey = sr.PublicKey
	s.bond = sr.Bond
	s.slashed = sr.Slashed
	s.bonded = sr.Bonded
	s.score = sr.Score
	s.lastSeen = sr.LastSeen
	s.reports.Advance(sr.Reports)
	s.outliers.Advance(sr.Outliers)
}
