// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package protocol - the user facing flows over the ledgers
//
// the vault ledger knows nothing of stable balances and the position
// ledger knows nothing of debt; this package keeps the two consistent:
//
//   confirm  - credit the opening debt to the owner
//   mint     - increase debt then credit the owner
//   burn     - FIFO burn the holder's stable then repay the vault
//   release  - hand collateral owed to an owner to custody
//
// it also routes custody results to the liquidation engine and
// rebuilds every component from the journal
package protocol
