// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
)

// Apply - send one journal record to the component that wrote it
func (p *Protocol) Apply(r event.Record) error {
	switch r.Type {
	case event.VaultOpened, event.CollateralChanged, event.DebtChanged, event.VaultStateChanged:
		return p.vaults.Apply(r)
	case event.SliceMoved:
		return p.positions.Apply(r)
	case event.LiquidationStaged, event.LiquidationCompleted, event.LiquidationAborted, event.LiquidationFailed:
		return p.engine.Apply(r)
	case event.ReleaseRequested, event.ReleaseConfirmed:
		return p.applyRelease(r)
	case event.PriceAccepted, event.SourceChanged:
		return p.oracle.Apply(r)
	case event.RedemptionExecuted:
		if nil == p.redemptions {
			return fault.NotInitialised
		}
		return p.redemptions.Apply(r)
	default:
		return fault.UnknownEventType
	}
}

// Replay - rebuild every component from a store, returns the number
// of records applied
func (p *Protocol) Replay(store event.Store) (int, error) {
	n := 0
	err := store.Replay(0, func(r event.Record) error {
		if err := p.Apply(r); nil != err {
			p.log.Errorf("replay sequence: %d  type: %s  error: %s", r.Sequence, r.Type, err)
			return err
		}
		n += 1
		return nil
	})
	if nil != err {
		return n, err
	}
	if n > 0 {
		p.log.Infof("replayed: %d records  pending liquidations: %d  releases: %d", n, len(p.engine.Pending()), p.Statistics().Pending)
	}
	return n, nil
}
