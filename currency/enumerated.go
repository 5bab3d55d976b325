// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package currency

import (
	"fmt"
	"strings"

	"github.com/bitmark-inc/bitstable/fault"
)

// Currency - fiat currency enumeration
type Currency uint64

// possible currency values
const (
	Nothing      Currency = iota // this must be the first value
	USD          Currency = iota
	EUR          Currency = iota
	GBP          Currency = iota
	JPY          Currency = iota
	CHF          Currency = iota
	CAD          Currency = iota
	AUD          Currency = iota
	CNY          Currency = iota
	INR          Currency = iota
	MXN          Currency = iota
	NGN          Currency = iota
	BRL          Currency = iota
	maximumValue Currency = iota // this must be the last value
	First        Currency = Nothing + 1
	Last         Currency = maximumValue - 1
	Count        int      = int(Last) // count of currencies
)

// ISO 4217 code and minor unit digits, indexed by enumeration
var info = [maximumValue]struct {
	code     string
	decimals int32
}{
	Nothing: {"", 0},
	USD:     {"USD", 2},
	EUR:     {"EUR", 2},
	GBP:     {"GBP", 2},
	JPY:     {"JPY", 0},
	CHF:     {"CHF", 2},
	CAD:     {"CAD", 2},
	AUD:     {"AUD", 2},
	CNY:     {"CNY", 2},
	INR:     {"INR", 2},
	MXN:     {"MXN", 2},
	NGN:     {"NGN", 2},
	BRL:     {"BRL", 2},
}

// FromString - convert a code to a currency
func FromString(in string) (Currency, error) {
	if "" == in {
		return Nothing, nil
	}
	code := strings.ToUpper(in)
	for c := First; c <= Last; c += 1 {
		if info[c].code == code {
			return c, nil
		}
	}
	return Nothing, fault.InvalidCurrency
}

// FromUint64 - convert a number to a currency
func FromUint64(n uint64) (Currency, error) {
	if Currency(n) < maximumValue {
		return Currency(n), nil
	}
	return Nothing, fault.InvalidCurrency
}

// String - convert a currency to its code
func (currency Currency) String() string {
	if currency >= maximumValue {
		return fmt.Sprintf("Currency(%d)", uint64(currency))
	}
	return info[currency].code
}

// GoString - convert both enum value and code, for debugging
func (currency Currency) GoString() string {
	return fmt.Sprintf("<Currency#%d:%q>", uint64(currency), currency.String())
}

// Uint64 - convert the currency to a number
func (currency Currency) Uint64() uint64 {
	return uint64(currency)
}

// Scan - convert a currency string
func (currency *Currency) Scan(state fmt.ScanState, verb rune) error {
	token, err := state.Token(true, func(c rune) bool {
		return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
	})
	if nil != err {
		return err
	}
	parsed, err := FromString(string(token))
	if nil != err {
		return err
	}

	*currency = parsed
	return nil
}

// IsValid - valid currency if in range of First to Last
// Nothing is not considered as valid
func (currency Currency) IsValid() bool {
	return currency >= First && currency <= Last
}

// Decimals - number of minor unit digits
func (currency Currency) Decimals() int32 {
	if !currency.IsValid() {
		return 0
	}
	return info[currency].decimals
}

// All - every valid currency in enumeration order
func All() []Currency {
	all := make([]Currency, 0, Count)
	for c := First; c <= Last; c += 1 {
		all = append(all, c)
	}
	return all
}
