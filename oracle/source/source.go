// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package source - the price source adapters
//
// a closed set of adapters built once at startup, each signing its
// reports with its own key
package source

import (
	"context"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/ed25519"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/oracle"
)

// Source - one price feed
type Source interface {
	Name() string
	Pair() oracle.Pair
	PublicKey() ed25519.PublicKey
	Fetch(ctx context.Context) (oracle.Report, error)
}

// adapter kinds
const (
	KindCoinbase = "coinbase"
	KindKraken   = "kraken"
	KindBitstamp = "bitstamp"
	KindGemini   = "gemini"
	KindFixed    = "fixed"
)

const defaultTimeout = 10 * time.Second

// Configuration - one entry of the sources list
type Configuration struct {
	Kind     string `gluamapper:"kind" json:"kind"`
	Name     string `gluamapper:"name" json:"name"`
	Currency string `gluamapper:"currency" json:"currency"`
	Seed     string `gluamapper:"seed" json:"seed"` // hex ed25519 seed
	URL      string `gluamapper:"url" json:"url"`   // replaces the exchange base URL
	Price    string `gluamapper:"price" json:"price"`
	Timeout  int    `gluamapper:"timeout" json:"timeout"` // seconds
}

// New - build an adapter from its configuration
func New(configuration Configuration, clock func() time.Time) (Source, error) {
	if nil == clock {
		clock = time.Now
	}

	c, err := currency.FromString(configuration.Currency)
	if nil != err || currency.Nothing == c {
		return nil, fault.InvalidCurrency
	}
	pair := oracle.NewPair(c)

	seed, err := hex.DecodeString(strings.TrimSpace(configuration.Seed))
	if nil != err || ed25519.SeedSize != len(seed) {
		return nil, fault.InvalidKeyLength
	}
	key := ed25519.NewKeyFromSeed(seed)

	name := configuration.Name
	if "" == name {
		name = configuration.Kind + "-" + strings.ToLower(c.String())
	}

	b := base{
		name:  name,
		pair:  pair,
		key:   key,
		clock: clock,
	}

	if KindFixed == configuration.Kind {
		price, err := decimal.NewFromString(configuration.Price)
		if nil != err || !price.IsPositive() {
			return nil, fault.InvalidPrice
		}
		return &fixed{base: b, price: price}, nil
	}

	timeout := defaultTimeout
	if configuration.Timeout > 0 {
		timeout = time.Duration(configuration.Timeout) * time.Second
	}
	e := &exchange{
		base:   b,
		client: &http.Client{Timeout: timeout},
	}

	switch configuration.Kind {
	case KindCoinbase:
		e.url = coinbaseURL(configuration.URL, c)
		e.decode = decodeCoinbase
	case KindKraken:
		e.url = krakenURL(configuration.URL, c)
		e.decode = decodeKraken
	case KindBitstamp:
		e.url = bitstampURL(configuration.URL, c)
		e.decode = decodeLast
	case KindGemini:
		e.url = geminiURL(configuration.URL, c)
		e.decode = decodeLast
	default:
		return nil, fault.InvalidSourceKind
	}
	return e, nil
}

type base struct {
	name  string
	pair  oracle.Pair
	key   ed25519.PrivateKey
	clock func() time.Time
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Pair() oracle.Pair {
	return b.pair
}

func (b *base) PublicKey() ed25519.PublicKey {
	return b.key.Public().(ed25519.PublicKey)
}

func (b *base) sign(price decimal.Decimal) oracle.Report {
	r := oracle.Report{
		Source:    b.name,
		Pair:      b.pair,
		Price:     price,
		Timestamp: b.clock(),
	}
	r.Sign(b.key)
	return r
}

// fixed - a constant price for test chains
type fixed struct {
	base
	price decimal.Decimal
}

func (f *fixed) Fetch(ctx context.Context) (oracle.Report, error) {
	if err := ctx.Err(); nil != err {
		return oracle.Report{}, err
	}
	return f.sign(f.price), nil
}
