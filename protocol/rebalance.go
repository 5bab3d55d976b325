// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"time"

	"github.com/bitmark-inc/bitstable/background"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/stability"
)

// Outcome - what happened to one rebalance decision
type Outcome struct {
	Decision stability.Decision `json:"decision"`
	Error    string             `json:"error,omitempty"`
}

// Rebalance - evaluate every stability policy and execute the actions
func (p *Protocol) Rebalance() ([]Outcome, error) {
	if nil == p.portfolio {
		return nil, fault.NotInitialised
	}

	decisions := p.portfolio.EvaluateAll()
	outcomes := make([]Outcome, 0, len(decisions))
	for _, d := range decisions {
		var err error
		switch d.Action.Kind {
		case stability.Mint:
			_, err = p.Mint(d.Vault, d.Action.Currency, d.Action.Amount)
		case stability.Burn:
			_, err = p.Repay(d.Holder, d.Vault, d.Action.Currency, d.Action.Amount)
		default:
			continue
		}

		o := Outcome{Decision: d}
		if nil != err {
			o.Error = err.Error()
			p.log.Warnf("rebalance holder: %s  vault: %s  %s  error: %s", d.Holder.String(), d.Vault, d.Action, err)
		} else {
			p.log.Infof("rebalance holder: %s  vault: %s  %s", d.Holder.String(), d.Vault, d.Action)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

// Rebalancer - background process running Rebalance at an interval
func (p *Protocol) Rebalancer(interval time.Duration) background.Process {
	return &background.Periodic{
		Interval: interval,
		Tick: func() {
			if _, err := p.Rebalance(); nil != err {
				p.log.Errorf("rebalance error: %s", err)
			}
		},
	}
}
