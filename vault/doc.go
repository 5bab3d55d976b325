// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package vault - BTC collateralised debt positions
//
// the ledger owns every vault and is the only code that mutates them.
// Each vault has its own mutex which is held only for the synchronous
// state transition; the liquidation scan try-locks and skips vaults
// that are busy.
//
// lifecycle:
//
//   Pending     -> Active (confirm) | Closed (cancel)
//   Active      -> Warning | Liquidating | Closed
//   Warning     -> Active | Liquidating | Closed
//   Liquidating -> Liquidated (full) | Active | Warning (partial, abort)
//
// every journal record carries the complete post-transition vault so
// replay is a simple overwrite
package vault
