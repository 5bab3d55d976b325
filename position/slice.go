// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package position

import (
	"github.com/google/uuid"

	"github.com/bitmark-inc/bitstable/currency"
)

// Slice - an amount of stable issued against one vault
type Slice struct {
	Vault    uuid.UUID       `json:"vault"`
	Amount   currency.Amount `json:"amount"`
	Sequence uint64          `json:"sequence"` // creation order
}

// Portion - part of an amount attributed to one vault
type Portion struct {
	Vault  uuid.UUID       `json:"vault"`
	Amount currency.Amount `json:"amount"`
}

// Consumed - the slices removed by a burn, oldest first
type Consumed []Slice

// Total - sum of the consumed amounts
func (consumed Consumed) Total() currency.Amount {
	total := currency.Amount(0)
	for _, s := range consumed {
		total += s.Amount
	}
	return total
}

// ByVault - per vault breakdown in order of first appearance
func (consumed Consumed) ByVault() []Portion {
	portions := make([]Portion, 0, len(consumed))
	index := make(map[uuid.UUID]int, len(consumed))
	for _, s := range consumed {
		if i, ok := index[s.Vault]; ok {
			portions[i].Amount += s.Amount
			continue
		}
		index[s.Vault] = len(portions)
		portions = append(portions, Portion{Vault: s.Vault, Amount: s.Amount})
	}
	return portions
}

// merge adjacent slices of the same vault, keeping order
func (consumed Consumed) runs() []Portion {
	portions := make([]Portion, 0, len(consumed))
	for _, s := range consumed {
		if n := len(portions); n > 0 && portions[n-1].Vault == s.Vault {
			portions[n-1].Amount += s.Amount
			continue
		}
		portions = append(portions, Portion{Vault: s.Vault, Amount: s.Amount})
	}
	return portions
}

func sum(slices []Slice) currency.Amount {
	return Consumed(slices).Total()
}

// remove amount from the front of a book, splitting the last slice
// needed; both halves of a split keep the original sequence
func take(slices []Slice, amount currency.Amount) ([]Slice, Consumed) {
	taken := make(Consumed, 0, 4)
	for amount > 0 && len(slices) > 0 {
		head := slices[0]
		if head.Amount <= amount {
			taken = append(taken, head)
			amount -= head.Amount
			slices = slices[1:]
			continue
		}
		taken = append(taken, Slice{Vault: head.Vault, Amount: amount, Sequence: head.Sequence})
		head.Amount -= amount
		amount = 0
		slices = append([]Slice{head}, slices[1:]...)
	}
	return slices, taken
}

// put a slice back at its sequence position, merging into the slice
// it was split from
func insert(slices []Slice, s Slice) []Slice {
	i := 0
	for ; i < len(slices); i += 1 {
		if slices[i].Sequence == s.Sequence && slices[i].Vault == s.Vault {
			slices[i].Amount += s.Amount
			return slices
		}
		if slices[i].Sequence > s.Sequence {
			break
		}
	}
	slices = append(slices, Slice{})
	copy(slices[i+1:], slices[i:])
	slices[i] = s
	return slices
}
