// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package settlement - the boundary to BTC custody
//
// custody moves escrowed collateral on the Bitcoin network; the engine
// only names what should move and receives the outcome later on the
// results channel.  Every instruction carries an intent id and custody
// must treat a repeated intent as the same instruction.
package settlement

import (
	"context"

	"github.com/google/uuid"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/fault"
)

// ID - custody's reference for a settlement
type ID string

// Kind - direction of an escrow movement
type Kind string

// escrow movements
const (
	Seize   Kind = "seize"   // collateral to a liquidator
	Release Kind = "release" // collateral back to a vault owner
)

// Request - one escrow instruction
type Request struct {
	Intent    uuid.UUID       `json:"intent"`
	Kind      Kind            `json:"kind"`
	Vault     uuid.UUID       `json:"vault"`
	Amount    satoshi.Amount  `json:"amount"`
	Recipient account.Account `json:"recipient"`
}

// Result - outcome of a request
type Result struct {
	ID        ID        `json:"id"`
	Intent    uuid.UUID `json:"intent"`
	Kind      Kind      `json:"kind"`
	Confirmed bool      `json:"confirmed"`
	Reason    string    `json:"reason,omitempty"`
	Broadcast bool      `json:"broadcast"` // a transaction reached the network
}

// Custody - the escrow collaborator
type Custody interface {
	EscrowSeize(ctx context.Context, intent uuid.UUID, vault uuid.UUID, amount satoshi.Amount, liquidator account.Account) (ID, error)
	EscrowRelease(ctx context.Context, intent uuid.UUID, vault uuid.UUID, amount satoshi.Amount, owner account.Account) (ID, error)
	Results() <-chan Result
}

// Submit - send a request through the matching custody call
func Submit(ctx context.Context, custody Custody, request Request) (ID, error) {
	switch request.Kind {
	case Seize:
		return custody.EscrowSeize(ctx, request.Intent, request.Vault, request.Amount, request.Recipient)
	case Release:
		return custody.EscrowRelease(ctx, request.Intent, request.Vault, request.Amount, request.Recipient)
	default:
		return "", fault.InvalidSettlementKind
	}
}
