// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stability

import (
	"sync"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency/satoshi"
	"github.com/bitmark-inc/bitstable/fault"
)

// Holding - BTC a holder keeps outside the vaults
type Holding struct {
	Holder account.Account `json:"holder"`
	BTC    satoshi.Amount  `json:"btc"`
}

// Holdings - BTC balances counted towards percentage targets
type Holdings struct {
	sync.RWMutex
	btc map[string]satoshi.Amount
}

// NewHoldings - an empty table
func NewHoldings() *Holdings {
	return &Holdings{
		btc: make(map[string]satoshi.Amount),
	}
}

// Set - record the BTC balance of a holder
func (h *Holdings) Set(holder account.Account, amount satoshi.Amount) error {
	if holder.IsZero() {
		return fault.InvalidAccount
	}
	if amount < 0 {
		return fault.InvalidAmount
	}
	h.Lock()
	h.btc[holder.String()] = amount
	h.Unlock()
	return nil
}

// BTCBalance - false when nothing was recorded for the holder
func (h *Holdings) BTCBalance(holder account.Account) (satoshi.Amount, bool) {
	h.RLock()
	defer h.RUnlock()
	amount, ok := h.btc[holder.String()]
	return amount, ok
}
