// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package system - build the whole engine from a configuration
//
// New opens the event log, constructs every component over one
// journal and replays the log so the returned system holds the last
// committed state.  Start runs the background processes.
package system
