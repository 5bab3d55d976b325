// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/settlement"
)

// Reason - why collateral is returned to an owner
type Reason string

// release reasons
const (
	Cancelled Reason = "cancel"
	Withdrawn Reason = "withdraw"
	Closed    Reason = "close"
	Surplus   Reason = "surplus"
	Redeemed  Reason = "redeem"
)

// Release - collateral owed to a vault owner or a redeemer, held
// until custody confirms it
type Release struct {
	Intent     uuid.UUID       `json:"intent"`
	Vault      uuid.UUID       `json:"vault"`
	Owner      account.Account `json:"owner"`
	Amount     satoshi.Amount  `json:"amount"`
	Reason     Reason          `json:"reason"`
	Settlement settlement.ID   `json:"settlement,omitempty"`
	Attempts   int             `json:"attempts"`
	Failed     bool            `json:"failed"`
	Error      string          `json:"error,omitempty"`
}

// Confirmation - payload of a ReleaseConfirmed record
type Confirmation struct {
	Intent     uuid.UUID     `json:"intent"`
	Vault      uuid.UUID     `json:"vault"`
	Settlement settlement.ID `json:"settlement"`
}

// a release is journalled before it is submitted so that a restart
// resubmits it under the same intent
func (p *Protocol) release(ctx context.Context, id uuid.UUID, recipient account.Account, amount satoshi.Amount, reason Reason) error {
	if amount <= 0 {
		return nil
	}
	r := &Release{
		Intent: uuid.New(),
		Vault:  id,
		Owner:  recipient,
		Amount: amount,
		Reason: reason,
	}
	p.Lock()
	p.releases[r.Intent] = r
	p.emit(event.ReleaseRequested, *r)
	p.Unlock()

	p.log.Infof("release vault: %s  amount: %s  reason: %s  intent: %s", id, amount, reason, r.Intent)
	return p.submitRelease(ctx, r.Intent)
}

func (p *Protocol) submitRelease(ctx context.Context, intent uuid.UUID) error {
	p.Lock()
	r, ok := p.releases[intent]
	if !ok {
		p.Unlock()
		return fault.SettlementNotFound
	}
	request := *r
	p.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	id, err := p.custody.EscrowRelease(ctx, request.Intent, request.Vault, request.Amount, request.Owner)

	p.Lock()
	defer p.Unlock()
	r, ok = p.releases[intent]
	if !ok {
		return nil // confirmed while submitting
	}
	r.Attempts += 1
	if nil != err {
		r.Failed = true
		r.Error = err.Error()
		p.log.Criticalf("release intent: %s  vault: %s  submit error: %s", intent, r.Vault, err)
		return fault.SettlementFailed
	}
	r.Settlement = id
	return nil
}

// Releases - unconfirmed releases in intent order
func (p *Protocol) Releases() []Release {
	p.Lock()
	l := make([]Release, 0, len(p.releases))
	for _, r := range p.releases {
		l = append(l, *r)
	}
	p.Unlock()

	sort.Slice(l, func(i, j int) bool {
		return l[i].Intent.String() < l[j].Intent.String()
	})
	return l
}

// RetryRelease - submit a release again under its original intent
func (p *Protocol) RetryRelease(ctx context.Context, intent uuid.UUID) error {
	p.Lock()
	r, ok := p.releases[intent]
	if ok {
		r.Failed = false
		r.Error = ""
	}
	p.Unlock()
	if !ok {
		return fault.SettlementNotFound
	}
	p.log.Warnf("retry release intent: %s", intent)
	return p.submitRelease(ctx, intent)
}

// Resubmit - after a restart send every staged seizure and every
// unconfirmed release to custody again
func (p *Protocol) Resubmit(ctx context.Context) int {
	n := p.engine.Resubmit(ctx)
	for _, r := range p.Releases() {
		if nil == p.submitRelease(ctx, r.Intent) {
			n += 1
		}
	}
	return n
}

func (p *Protocol) confirmRelease(result settlement.Result) error {
	p.Lock()
	r, ok := p.releases[result.Intent]
	if !ok {
		p.Unlock()
		return fault.SettlementNotFound
	}
	if result.Confirmed {
		delete(p.releases, result.Intent)
		p.emit(event.ReleaseConfirmed, Confirmation{
			Intent:     result.Intent,
			Vault:      r.Vault,
			Settlement: result.ID,
		})
		p.Unlock()
		p.released.Increment()
		p.log.Infof("released vault: %s  amount: %s  settlement: %s", r.Vault, r.Amount, result.ID)
		return nil
	}
	r.Failed = true
	r.Error = result.Reason
	if "" != result.ID {
		r.Settlement = result.ID
	}
	p.Unlock()
	p.log.Criticalf("release intent: %s  vault: %s  failed: %q  broadcast: %t",
		result.Intent, r.Vault, result.Reason, result.Broadcast)
	return fault.SettlementFailed
}

func (p *Protocol) emit(t event.Type, payload interface{}) {
	if err := p.sink.Emit(t, p.clock(), payload); nil != err {
		p.log.Criticalf("journal %s error: %s", t, err)
	}
}

// rebuild unconfirmed releases; a replayed release has not been
// submitted by this process and is picked up by Resubmit
func (p *Protocol) applyRelease(record event.Record) error {
	switch record.Type {
	case event.ReleaseRequested:
		var r Release
		if err := record.Decode(&r); nil != err {
			return fault.CorruptRecord
		}
		r.Attempts = 0
		r.Failed = false
		r.Error = ""
		p.Lock()
		p.releases[r.Intent] = &r
		p.Unlock()

	case event.ReleaseConfirmed:
		var c Confirmation
		if err := record.Decode(&c); nil != err {
			return fault.CorruptRecord
		}
		p.Lock()
		delete(p.releases, c.Intent)
		p.Unlock()

	default:
		return fault.UnknownEventType
	}
	return nil
}
