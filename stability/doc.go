// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stability - keep a holder's stable exposure near a target
//
// a policy compares the holder's balance in one currency with a fixed
// amount or a fraction of the holder's BTC plus stable value and
// proposes a mint or a burn against the holder's vault; small
// deviations are ignored
package stability
