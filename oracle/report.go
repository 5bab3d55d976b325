// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package oracle

import (
	"bytes"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/bitstable/fault"
)

// Digest - SHA3-256 of the canonical report fields
type Digest [32]byte

// Report - one source's signed price observation
type Report struct {
	Source    string          `json:"source"`
	Pair      Pair            `json:"pair"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
	Signature []byte          `json:"signature"`
}

// canonical form: source|pair|price|unix nanoseconds
func (report Report) canonical() []byte {
	buffer := bytes.Buffer{}
	buffer.WriteString(report.Source)
	buffer.WriteByte('|')
	buffer.WriteString(report.Pair.String())
	buffer.WriteByte('|')
	buffer.WriteString(report.Price.String())
	buffer.WriteByte('|')
	buffer.WriteString(strconv.FormatInt(report.Timestamp.UnixNano(), 10))
	return buffer.Bytes()
}

// Digest - hash of everything except the signature
func (report Report) Digest() Digest {
	return sha3.Sum256(report.canonical())
}

// Sign - fill in the signature
func (report *Report) Sign(privateKey ed25519.PrivateKey) {
	digest := report.Digest()
	report.Signature = ed25519.Sign(privateKey, digest[:])
}

// Verify - check the signature against the source key
func (report Report) Verify(publicKey ed25519.PublicKey) error {
	if ed25519.PublicKeySize != len(publicKey) || ed25519.SignatureSize != len(report.Signature) {
		return fault.InvalidSignature
	}
	digest := report.Digest()
	if !ed25519.Verify(publicKey, digest[:], report.Signature) {
		return fault.InvalidSignature
	}
	return nil
}
