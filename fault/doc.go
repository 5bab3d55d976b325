// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package fault - error instances
//
// Provides a single instance of errors to allow easy comparison
// without having to resort to partial string matches.
//
// The class of an error tells the caller what to do with it:
// InvalidError is the caller's fault and nothing was changed,
// RetryError is transient contention, LimitError is "not yet" and
// ProcessError needs an operator.
package fault
