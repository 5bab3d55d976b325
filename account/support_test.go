// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package account_test

import (
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"
)

func checksum(buffer []byte) []byte {
	sum := sha3.Sum256(buffer)
	return sum[:4]
}

func signMessage(privateKey ed25519.PrivateKey, message []byte) []byte {
	return ed25519.Sign(privateKey, message)
}
