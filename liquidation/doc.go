// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package liquidation - progressive seizure of under-collateralised vaults
//
// a round takes one price snapshot, stages every impaired vault most
// impaired first and hands each seizure to custody:
//
//   Active/Warning ──stage──▶ Liquidating ──confirmed──▶ Active/Warning (partial)
//                                  │                     Liquidated     (full)
//                                  └──failed, no broadcast, abort──▶ Active/Warning
//
// staging happens under the vault lock and reserves the liquidator's
// stable; custody is called after the lock is released and the result
// is applied when it arrives on the custody results channel.
package liquidation
