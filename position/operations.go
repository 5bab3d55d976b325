// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package position

import (
	"github.com/google/uuid"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/fault"
)

func validate(holder account.Account, c currency.Currency, amount currency.Amount) error {
	if holder.IsZero() {
		return fault.InvalidAccount
	}
	if !c.IsValid() {
		return fault.InvalidCurrency
	}
	if amount <= 0 {
		return fault.InvalidAmount
	}
	return nil
}

// Credit - append a newly issued slice to a holder's book
func (l *Ledger) Credit(holder account.Account, vault uuid.UUID, c currency.Currency, amount currency.Amount) error {
	if err := validate(holder, c, amount); nil != err {
		return err
	}
	if uuid.Nil == vault {
		return fault.InvalidVault
	}

	b := l.book(holder, c, true)
	b.Lock()
	defer b.Unlock()

	b.slices = append(b.slices, Slice{
		Vault:    vault,
		Amount:   amount,
		Sequence: l.sequence.Increment(),
	})

	l.log.Debugf("credit: %s  vault: %s  amount: %s %s", b.key.holder, vault, c.FormatAmount(amount), c)
	return l.commit(Credit, c, amount, b)
}

// Transfer - move the oldest slices from one holder to another
//
// per vault amounts are preserved exactly; the moved slices become the
// newest in the recipient's book
func (l *Ledger) Transfer(from account.Account, to account.Account, c currency.Currency, amount currency.Amount) error {
	if err := validate(from, c, amount); nil != err {
		return err
	}
	if to.IsZero() {
		return fault.InvalidAccount
	}
	if from.String() == to.String() {
		return fault.SameAccount
	}

	source := l.book(from, c, false)
	if nil == source {
		return fault.InsufficientBalance
	}
	destination := l.book(to, c, true)

	first, second := source, destination
	if destination.key.less(source.key) {
		first, second = destination, source
	}
	first.Lock()
	defer first.Unlock()
	second.Lock()
	defer second.Unlock()

	if sum(source.slices) < amount {
		return fault.InsufficientBalance
	}

	remaining, moved := take(source.slices, amount)
	source.slices = remaining
	for _, p := range moved.runs() {
		destination.slices = append(destination.slices, Slice{
			Vault:    p.Vault,
			Amount:   p.Amount,
			Sequence: l.sequence.Increment(),
		})
	}

	l.log.Debugf("transfer: %s → %s  amount: %s %s", source.key.holder, destination.key.holder, c.FormatAmount(amount), c)
	return l.commit(Transfer, c, amount, source, destination)
}

// Burn - remove the oldest slices and return exactly what was removed
func (l *Ledger) Burn(holder account.Account, c currency.Currency, amount currency.Amount) (Consumed, error) {
	if err := validate(holder, c, amount); nil != err {
		return nil, err
	}

	b := l.book(holder, c, false)
	if nil == b {
		return nil, fault.InsufficientBalance
	}
	b.Lock()
	defer b.Unlock()

	if sum(b.slices) < amount {
		return nil, fault.InsufficientBalance
	}

	remaining, consumed := take(b.slices, amount)
	b.slices = remaining

	l.log.Debugf("burn: %s  amount: %s %s  slices: %d", b.key.holder, c.FormatAmount(amount), c, len(consumed))
	return consumed, l.commit(Burn, c, amount, b)
}

// Restore - undo a burn, each slice returns to its original position
func (l *Ledger) Restore(holder account.Account, c currency.Currency, consumed Consumed) error {
	if 0 == len(consumed) {
		return nil
	}
	total := consumed.Total()
	if err := validate(holder, c, total); nil != err {
		return err
	}
	for _, s := range consumed {
		if s.Amount <= 0 {
			return fault.InvalidAmount
		}
		if uuid.Nil == s.Vault {
			return fault.InvalidVault
		}
	}

	b := l.book(holder, c, true)
	b.Lock()
	defer b.Unlock()

	for _, s := range consumed {
		b.slices = insert(b.slices, s)
	}

	l.log.Infof("restore: %s  amount: %s %s", b.key.holder, c.FormatAmount(total), c)
	return l.commit(Restore, c, total, b)
}

// Reback - re-tag slices backed by a vault onto replacement vaults
//
// used when stable backed by the replacements was surrendered to clear
// the vault's debt; portions naming the vault itself are ignored.
// Slices are re-tagged in book order, oldest first, and a slice that
// straddles two portions is split.
func (l *Ledger) Reback(vault uuid.UUID, c currency.Currency, replacements []Portion) error {
	if uuid.Nil == vault {
		return fault.InvalidVault
	}
	if !c.IsValid() {
		return fault.InvalidCurrency
	}

	portions := make([]Portion, 0, len(replacements))
	total := currency.Amount(0)
	for _, p := range replacements {
		if p.Amount <= 0 {
			return fault.InvalidAmount
		}
		if uuid.Nil == p.Vault {
			return fault.InvalidVault
		}
		if vault == p.Vault {
			continue
		}
		portions = append(portions, p)
		total += p.Amount
	}
	if 0 == total {
		return nil
	}

	books := l.booksOf(c)
	for _, b := range books {
		b.Lock()
		defer b.Unlock()
	}

	backed := currency.Amount(0)
	for _, b := range books {
		for _, s := range b.slices {
			if vault == s.Vault {
				backed += s.Amount
			}
		}
	}
	if backed < total {
		return fault.InsufficientBalance
	}

	changed := make([]*book, 0, len(books))
	for _, b := range books {
		if 0 == len(portions) {
			break
		}
		touched := false
		slices := make([]Slice, 0, len(b.slices)+len(portions))
		for _, s := range b.slices {
			for vault == s.Vault && s.Amount > 0 && len(portions) > 0 {
				touched = true
				p := &portions[0]
				n := s.Amount
				if n > p.Amount {
					n = p.Amount
				}
				slices = append(slices, Slice{Vault: p.Vault, Amount: n, Sequence: s.Sequence})
				s.Amount -= n
				p.Amount -= n
				if 0 == p.Amount {
					portions = portions[1:]
				}
			}
			if s.Amount > 0 {
				slices = append(slices, s)
			}
		}
		if touched {
			b.slices = slices
			changed = append(changed, b)
		}
	}

	l.log.Infof("reback vault: %s  amount: %s %s  books: %d", vault, c.FormatAmount(total), c, len(changed))
	return l.commit(Reback, c, total, changed...)
}
