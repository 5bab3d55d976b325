// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"context"

	"github.com/bitmark-inc/bitstable/background"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/settlement"
)

// Route - apply one custody result
//
// a confirmed seizure that ends a vault releases the surplus to the
// owner; release results clear or fail the matching release
func (p *Protocol) Route(ctx context.Context, result settlement.Result) error {
	p.routed.Increment()

	switch result.Kind {
	case settlement.Seize:
		completion, err := p.engine.HandleSettlement(result)
		if nil != err {
			if fault.PendingLiquidationNotFound == err {
				p.orphans.Increment()
				p.log.Warnf("seize result intent: %s  no pending liquidation", result.Intent)
			}
			return err
		}
		return p.release(ctx, completion.Vault.ID, completion.Vault.Owner, completion.Surplus, Surplus)

	case settlement.Release:
		err := p.confirmRelease(result)
		if fault.SettlementNotFound == err {
			p.orphans.Increment()
			p.log.Warnf("release result intent: %s  no pending release", result.Intent)
		}
		return err

	default:
		p.orphans.Increment()
		return fault.InvalidSettlementKind
	}
}

type router struct {
	protocol *Protocol
}

// Router - background process applying custody results as they arrive
func (p *Protocol) Router() background.Process {
	return &router{protocol: p}
}

func (r *router) Run(args interface{}, shutdown <-chan struct{}) {
	p := r.protocol
	log := p.log
	log.Info("starting…")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := p.custody.Results()
loop:
	for {
		select {
		case <-shutdown:
			break loop
		case result, ok := <-results:
			if !ok {
				log.Warn("custody results closed")
				break loop
			}
			err := p.Route(ctx, result)
			switch {
			case nil == err:
			case fault.SettlementFailed == err:
				// already logged at critical
			default:
				log.Errorf("%s result intent: %s  error: %s", result.Kind, result.Intent, err)
			}
		}
	}
	log.Info("shutting down…")
}
