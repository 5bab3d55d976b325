// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package oracle - price consensus over signed source reports
//
// each registered and bonded source signs a report of the BTC price
// in one fiat currency.  Reports are checked for freshness, signature,
// duplication and rate, then kept as the latest report per source for
// the pair.  A price is accepted when the weight of a set of mutually
// agreeing reports reaches quorum; the accepted value is the median of
// that set.  Large moves need a larger quorum, very large moves are
// held until an explicit override.
//
// lock order: pair state before the source table, never the reverse
package oracle
