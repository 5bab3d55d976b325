// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package position

import (
	"sort"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/google/uuid"

	"github.com/bitmark-inc/bitstable/account"
	"github.com/bitmark-inc/bitstable/counter"
	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/event"
	"github.com/bitmark-inc/bitstable/fault"
)

type bookKey struct {
	holder   string
	currency currency.Currency
}

func (k bookKey) less(other bookKey) bool {
	if k.currency != other.currency {
		return k.currency < other.currency
	}
	return k.holder < other.holder
}

type book struct {
	sync.Mutex
	key    bookKey
	holder account.Account
	slices []Slice
}

// must hold book lock
func (b *book) state() Book {
	slices := make([]Slice, len(b.slices))
	copy(slices, b.slices)
	return Book{
		Holder:   b.holder,
		Currency: b.key.currency,
		Slices:   slices,
	}
}

// Ledger - every holder's stable books
type Ledger struct {
	sync.RWMutex // protects books

	log      *logger.L
	sink     event.Sink
	clock    func() time.Time
	sequence counter.Counter

	books map[bookKey]*book
}

// New - create an empty position ledger
func New(sink event.Sink, clock func() time.Time, log *logger.L) (*Ledger, error) {
	if nil == log {
		return nil, fault.MissingParameters
	}
	if nil == sink {
		sink = event.Discard
	}
	if nil == clock {
		clock = time.Now
	}
	return &Ledger{
		log:   log,
		sink:  sink,
		clock: clock,
		books: make(map[bookKey]*book),
	}, nil
}

func keyOf(holder account.Account, c currency.Currency) bookKey {
	return bookKey{holder: holder.String(), currency: c}
}

// find a book, optionally creating an empty one
func (l *Ledger) book(holder account.Account, c currency.Currency, create bool) *book {
	k := keyOf(holder, c)

	l.RLock()
	b, ok := l.books[k]
	l.RUnlock()
	if ok || !create {
		return b
	}

	l.Lock()
	defer l.Unlock()
	if b, ok = l.books[k]; ok {
		return b
	}
	b = &book{
		key:    k,
		holder: account.Account{Test: holder.Test, PublicKey: append([]byte(nil), holder.PublicKey...)},
	}
	l.books[k] = b
	return b
}

// books of one currency in lock order
func (l *Ledger) booksOf(c currency.Currency) []*book {
	l.RLock()
	defer l.RUnlock()

	books := make([]*book, 0, len(l.books))
	for k, b := range l.books {
		if c == k.currency {
			books = append(books, b)
		}
	}
	sort.Slice(books, func(i, j int) bool {
		return books[i].key.less(books[j].key)
	})
	return books
}

// Balance - sum of a holder's slices in one currency
func (l *Ledger) Balance(holder account.Account, c currency.Currency) currency.Amount {
	b := l.book(holder, c, false)
	if nil == b {
		return 0
	}
	b.Lock()
	defer b.Unlock()
	return sum(b.slices)
}

// Slices - copy of a holder's book, oldest first
func (l *Ledger) Slices(holder account.Account, c currency.Currency) []Slice {
	b := l.book(holder, c, false)
	if nil == b {
		return nil
	}
	b.Lock()
	defer b.Unlock()
	return b.state().Slices
}

// BackedBy - stable in circulation issued against a vault
func (l *Ledger) BackedBy(vault uuid.UUID, c currency.Currency) currency.Amount {
	total := currency.Amount(0)
	for _, b := range l.booksOf(c) {
		b.Lock()
		for _, s := range b.slices {
			if vault == s.Vault {
				total += s.Amount
			}
		}
		b.Unlock()
	}
	return total
}

// TotalSupply - all stable in circulation in one currency
func (l *Ledger) TotalSupply(c currency.Currency) currency.Amount {
	total := currency.Amount(0)
	for _, b := range l.booksOf(c) {
		b.Lock()
		total += sum(b.slices)
		b.Unlock()
	}
	return total
}

// Balances - every non-zero balance of a holder
func (l *Ledger) Balances(holder account.Account) map[currency.Currency]currency.Amount {
	balances := make(map[currency.Currency]currency.Amount)
	for _, c := range currency.All() {
		if a := l.Balance(holder, c); a > 0 {
			balances[c] = a
		}
	}
	return balances
}

// Holders - accounts with any balance, in text order
func (l *Ledger) Holders() []account.Account {
	l.RLock()
	books := make([]*book, 0, len(l.books))
	for _, b := range l.books {
		books = append(books, b)
	}
	l.RUnlock()

	seen := make(map[string]account.Account)
	for _, b := range books {
		b.Lock()
		if sum(b.slices) > 0 {
			seen[b.key.holder] = b.holder
		}
		b.Unlock()
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	holders := make([]account.Account, len(names))
	for i, name := range names {
		holders[i] = seen[name]
	}
	return holders
}

// journal the post-state of every touched book
// must hold the locks of all books
func (l *Ledger) commit(op Op, c currency.Currency, amount currency.Amount, books ...*book) error {
	m := Movement{
		Op:       op,
		Currency: c,
		Amount:   amount,
		Sequence: l.sequence.Uint64(),
		Books:    make([]Book, len(books)),
	}
	for i, b := range books {
		m.Books[i] = b.state()
	}
	err := l.sink.Emit(event.SliceMoved, l.clock(), m)
	if nil != err {
		l.log.Criticalf("journal %s: %s %s  error: %s", op, c.FormatAmount(amount), c, err)
	}
	return err
}
