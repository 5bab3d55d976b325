// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package redemption - fees, daily limits and history for exchanging
// stable directly for vault collateral
//
// any holder may surrender stable of one currency; the debt is cleared
// from the lowest ratio vault still above its minimum and BTC of the
// same value less a fee is released to the holder.  The fee rises
// with the share of the daily limit already used and with a pressure
// multiplier that grows while recent volume is heavy:
//
//   rate = base · (1 + u² · m), at most max    u = used / limit
//
// usage resets at midnight UTC.  The ledgers are changed by the
// protocol, this package only prices and records.
package redemption
