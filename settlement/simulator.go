// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package settlement

import (
	"context"
	"sort"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/counter"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/fault"
)

// Outcome - decide how a simulated request settles
type Outcome func(request Request) (confirmed bool, broadcast bool, reason string)

// ConfirmAll - every request settles
func ConfirmAll(Request) (bool, bool, string) {
	return true, true, ""
}

type held struct {
	request Request
	id      ID
	result  *Result // nil while unresolved
}

// Simulator - in-process custody for tests and dry runs
//
// with an outcome function every request resolves as soon as it is
// submitted; without one requests are held until Resolve is called.
// Submission never waits for the result reader: results that do not
// fit the channel are queued and sent in order by a drain goroutine.
type Simulator struct {
	sync.Mutex

	log       *logger.L
	outcome   Outcome
	results   chan Result
	requests  map[uuid.UUID]*held
	backlog   []Result
	draining  bool
	Submitted counter.Counter
	Delivered counter.Counter
}

// NewSimulator - create a simulator with a buffered result channel
func NewSimulator(queueSize int, outcome Outcome, log *logger.L) (*Simulator, error) {
	if nil == log {
		return nil, fault.MissingParameters
	}
	if queueSize <= 0 {
		return nil, fault.InvalidCount
	}
	return &Simulator{
		log:      log,
		outcome:  outcome,
		results:  make(chan Result, queueSize),
		requests: make(map[uuid.UUID]*held),
	}, nil
}

// EscrowSeize - move collateral to a liquidator
func (s *Simulator) EscrowSeize(ctx context.Context, intent uuid.UUID, vault uuid.UUID, amount satoshi.Amount, liquidator account.Account) (ID, error) {
	return s.submit(ctx, Request{
		Intent:    intent,
		Kind:      Seize,
		Vault:     vault,
		Amount:    amount,
		Recipient: liquidator,
	})
}

// EscrowRelease - return collateral to a vault owner
func (s *Simulator) EscrowRelease(ctx context.Context, intent uuid.UUID, vault uuid.UUID, amount satoshi.Amount, owner account.Account) (ID, error) {
	return s.submit(ctx, Request{
		Intent:    intent,
		Kind:      Release,
		Vault:     vault,
		Amount:    amount,
		Recipient: owner,
	})
}

// Results - outcomes in the order they were decided
func (s *Simulator) Results() <-chan Result {
	return s.results
}

func (s *Simulator) submit(ctx context.Context, request Request) (ID, error) {
	if err := ctx.Err(); nil != err {
		return "", err
	}
	if uuid.Nil == request.Intent || uuid.Nil == request.Vault {
		return "", fault.InvalidVault
	}
	if request.Amount <= 0 {
		return "", fault.InvalidAmount
	}

	s.Lock()
	h, ok := s.requests[request.Intent]
	if !ok {
		h = &held{
			request: request,
			id:      ID(base58.Encode(request.Intent[:])),
		}
		s.requests[request.Intent] = h
		s.Submitted.Increment()
	}
	// a failed request is attempted again, a confirmed one is reported again
	if nil != h.result && !h.result.Confirmed {
		h.result = nil
	}
	if nil == h.result && nil != s.outcome {
		confirmed, broadcast, reason := s.outcome(h.request)
		h.result = &Result{
			ID:        h.id,
			Intent:    h.request.Intent,
			Kind:      h.request.Kind,
			Confirmed: confirmed,
			Reason:    reason,
			Broadcast: broadcast,
		}
	}
	var result *Result
	if nil != h.result {
		r := *h.result
		result = &r
	}
	id := h.id
	s.Unlock()

	if ok {
		s.log.Infof("resubmit %s intent: %s  id: %s", request.Kind, request.Intent, id)
	} else {
		s.log.Infof("submit %s intent: %s  vault: %s  amount: %s", request.Kind, request.Intent, request.Vault, request.Amount)
	}

	if nil != result {
		s.deliver(*result)
	}
	return id, nil
}

func (s *Simulator) deliver(result Result) {
	s.Lock()
	defer s.Unlock()

	if 0 == len(s.backlog) {
		select {
		case s.results <- result:
			s.Delivered.Increment()
			return
		default:
		}
	}
	s.backlog = append(s.backlog, result)
	s.log.Debugf("result queue full  backlog: %d", len(s.backlog))
	if !s.draining {
		s.draining = true
		go s.drain()
	}
}

func (s *Simulator) drain() {
	for {
		s.Lock()
		if 0 == len(s.backlog) {
			s.draining = false
			s.Unlock()
			return
		}
		result := s.backlog[0]
		s.Unlock()

		s.results <- result

		s.Lock()
		s.backlog = s.backlog[1:]
		s.Unlock()
		s.Delivered.Increment()
	}
}


// Resolve - settle a held request
func (s *Simulator) Resolve(ctx context.Context, intent uuid.UUID, confirmed bool, broadcast bool, reason string) error {
	if err := ctx.Err(); nil != err {
		return err
	}
	s.Lock()
	h, ok := s.requests[intent]
	if !ok {
		s.Unlock()
		return fault.SettlementNotFound
	}
	if nil != h.result && h.result.Confirmed {
		s.Unlock()
		return fault.SettlementBroadcast
	}
	h.result = &Result{
		ID:        h.id,
		Intent:    intent,
		Kind:      h.request.Kind,
		Confirmed: confirmed,
		Reason:    reason,
		Broadcast: broadcast,
	}
	result := *h.result
	s.Unlock()

	s.deliver(result)
	return nil
}

// Unresolved - held requests in intent order
func (s *Simulator) Unresolved() []Request {
	s.Lock()
	defer s.Unlock()

	requests := make([]Request, 0, len(s.requests))
	for _, h := range s.requests {
		if nil == h.result {
			requests = append(requests, h.request)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].Intent.String() < requests[j].Intent.String()
	})
	return requests
}
