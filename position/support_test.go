// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package position_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"
	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/position"
)

var now = time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time {
	return now
}

func newLedger(t *testing.T) (*position.Ledger, *event.MemoryStore) {
	store := event.NewMemoryStore()
	journal, err := event.NewJournal(store, 0, logger.New(category))
	if nil != err {
		t.Fatalf("journal error: %s", err)
	}
	ledger, err := position.New(journal, clock, logger.New(category))
	if nil != err {
		t.Fatalf("ledger error: %s", err)
	}
	return ledger, store
}

func holder(n byte) account.Account {
	key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{n}, ed25519.SeedSize))
	a, _ := account.FromPrivateKey(key, true)
	return *a
}

// a pair of holders in book lock order
func ordered(x account.Account, y account.Account) (account.Account, account.Account) {
	if y.String() < x.String() {
		return y, x
	}
	return x, y
}

func vaults(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}
