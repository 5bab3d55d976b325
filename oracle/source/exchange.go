// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bitmark-inc/bitstable/currency"
	"github.com/bitmark-inc/bitstable/fault"
	"github.com/bitmark-inc/bitstable/oracle"
	"github.com/bitmark-inc/bitstable/util"
)

// exchange - an HTTP ticker
type exchange struct {
	base
	client *http.Client
	url    string
	decode func(json.RawMessage) (decimal.Decimal, error)
}

func (e *exchange) Fetch(ctx context.Context) (oracle.Report, error) {
	var reply json.RawMessage
	if err := util.FetchJSON(ctx, e.client, e.url, &reply); nil != err {
		return oracle.Report{}, err
	}
	price, err := e.decode(reply)
	if nil != err {
		return oracle.Report{}, err
	}
	if !price.IsPositive() {
		return oracle.Report{}, fault.InvalidPrice
	}
	return e.sign(price), nil
}

func baseURL(override string, standard string) string {
	if "" != override {
		return strings.TrimRight(override, "/")
	}
	return standard
}

// {"data":{"amount":"50000.01","base":"BTC","currency":"USD"}}
func coinbaseURL(override string, c currency.Currency) string {
	return fmt.Sprintf("%s/v2/prices/BTC-%s/spot", baseURL(override, "https://api.coinbase.com"), c)
}

func decodeCoinbase(raw json.RawMessage) (decimal.Decimal, error) {
	var reply struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &reply); nil != err {
		return decimal.Zero, fault.InvalidTickerReply
	}
	return parsePrice(reply.Data.Amount)
}

// {"error":[],"result":{"XXBTZUSD":{"c":["50000.10000","0.01"]}}}
func krakenURL(override string, c currency.Currency) string {
	return fmt.Sprintf("%s/0/public/Ticker?pair=XBT%s", baseURL(override, "https://api.kraken.com"), c)
}

func decodeKraken(raw json.RawMessage) (decimal.Decimal, error) {
	var reply struct {
		Error  []string `json:"error"`
		Result map[string]struct {
			Close []string `json:"c"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &reply); nil != err {
		return decimal.Zero, fault.InvalidTickerReply
	}
	if 0 != len(reply.Error) || 1 != len(reply.Result) {
		return decimal.Zero, fault.InvalidTickerReply
	}
	for _, ticker := range reply.Result {
		if 0 == len(ticker.Close) {
			return decimal.Zero, fault.InvalidTickerReply
		}
		return parsePrice(ticker.Close[0])
	}
	return decimal.Zero, fault.InvalidTickerReply
}

// {"last":"50000.12", ...}
func bitstampURL(override string, c currency.Currency) string {
	return fmt.Sprintf("%s/api/v2/ticker/btc%s/", baseURL(override, "https://www.bitstamp.net"), strings.ToLower(c.String()))
}

func geminiURL(override string, c currency.Currency) string {
	return fmt.Sprintf("%s/v1/pubticker/btc%s", baseURL(override, "https://api.gemini.com"), strings.ToLower(c.String()))
}

func decodeLast(raw json.RawMessage) (decimal.Decimal, error) {
	var reply struct {
		Last string `json:"last"`
	}
	if err := json.Unmarshal(raw, &reply); nil != err {
		return decimal.Zero, fault.InvalidTickerReply
	}
	return parsePrice(reply.Last)
}

func parsePrice(s string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(s)
	if nil != err {
		return decimal.Zero, fault.InvalidTickerReply
	}
	return price, nil
}
