// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"strings"

	"github.com/bitmark-inc/bitstable/fault"
)

// State - vault lifecycle state
type State int

// lifecycle states
const (
	Pending State = iota
	Active
	Warning
	Liquidating
	Liquidated
	Closed
)

var stateNames = []string{
	Pending:     "Pending",
	Active:      "Active",
	Warning:     "Warning",
	Liquidating: "Liquidating",
	Liquidated:  "Liquidated",
	Closed:      "Closed",
}

// String - state name
func (state State) String() string {
	if state < Pending || state > Closed {
		return "Unknown"
	}
	return stateNames[state]
}

// IsLive - can still hold collateral and debt
func (state State) IsLive() bool {
	return Active == state || Warning == state
}

// IsTerminal - no further transitions
func (state State) IsTerminal() bool {
	return Liquidated == state || Closed == state
}

// MarshalText - state name
func (state State) MarshalText() ([]byte, error) {
	if state < Pending || state > Closed {
		return nil, fault.InvalidVaultState
	}
	return []byte(stateNames[state]), nil
}

// UnmarshalText - from state name
func (state *State) UnmarshalText(s []byte) error {
	for i, name := range stateNames {
		if strings.EqualFold(name, string(s)) {
			*state = State(i)
			return nil
		}
	}
	return fault.InvalidVaultState
}

// check that an operation on a vault in this state can proceed
func (state State) require() error {
	switch state {
	case Active, Warning:
		return nil
	case Pending:
		return fault.VaultPending
	case Liquidating:
		return fault.VaultLocked
	default:
		return fault.VaultTerminated
	}
}
