// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package account

import (
	"bytes"
	"io"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/bitstable/fault"
)

// enumeration of supported key algorithms
const (
	ED25519 = 1
)

// miscellaneous constants
const (
	checksumLength = 4

	// bits in key code starting from LSB
	publicKeyCode = 0x01
	testKeyCode   = 0x02

	algorithmShift = 4 // shift 4 bits to get algorithm
)

// Account - an ed25519 public key identifying a vault owner,
// stable holder, liquidator or price source
type Account struct {
	Test      bool
	PublicKey ed25519.PublicKey
}

// New - wrap a public key
func New(publicKey []byte, testnet bool) (*Account, error) {
	if ed25519.PublicKeySize != len(publicKey) {
		return nil, fault.InvalidKeyLength
	}
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, publicKey)
	return &Account{
		Test:      testnet,
		PublicKey: key,
	}, nil
}

// Generate - create a new key pair
func Generate(rand io.Reader, testnet bool) (*Account, ed25519.PrivateKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand)
	if nil != err {
		return nil, nil, err
	}
	return &Account{
		Test:      testnet,
		PublicKey: publicKey,
	}, privateKey, nil
}

// FromPrivateKey - the account of an existing private key
func FromPrivateKey(privateKey ed25519.PrivateKey, testnet bool) (*Account, error) {
	if ed25519.PrivateKeySize != len(privateKey) {
		return nil, fault.InvalidKeyLength
	}
	return New(privateKey.Public().(ed25519.PublicKey), testnet)
}

// FromBase58 - decode the text form of an account
func FromBase58(s string) (*Account, error) {
	decoded, err := base58.Decode(s)
	if nil != err || 0 == len(decoded) {
		return nil, fault.CannotDecodeAccount
	}

	variant := decoded[0]
	if variant&publicKeyCode != publicKeyCode {
		return nil, fault.NotPublicKey
	}
	if ED25519 != variant>>algorithmShift {
		return nil, fault.InvalidKeyType
	}

	keyLength := len(decoded) - 1 - checksumLength
	if ed25519.PublicKeySize != keyLength {
		return nil, fault.InvalidKeyLength
	}

	checksumStart := len(decoded) - checksumLength
	checksum := sha3.Sum256(decoded[:checksumStart])
	if !bytes.Equal(checksum[:checksumLength], decoded[checksumStart:]) {
		return nil, fault.InvalidChecksum
	}

	return New(decoded[1:checksumStart], 0 != variant&testKeyCode)
}

// Bytes - key code followed by the public key
func (account *Account) Bytes() []byte {
	variant := byte(ED25519<<algorithmShift | publicKeyCode)
	if account.Test {
		variant |= testKeyCode
	}
	return append([]byte{variant}, account.PublicKey...)
}

// String - base58 text with a four byte checksum
func (account *Account) String() string {
	buffer := account.Bytes()
	checksum := sha3.Sum256(buffer)
	buffer = append(buffer, checksum[:checksumLength]...)
	return base58.Encode(buffer)
}

// IsZero - all zero key, only used in tests
func (account *Account) IsZero() bool {
	for _, b := range account.PublicKey {
		if 0 != b {
			return false
		}
	}
	return true
}

// Verify - check an ed25519 signature by this account
func (account *Account) Verify(message []byte, signature []byte) error {
	if ed25519.SignatureSize != len(signature) {
		return fault.InvalidSignature
	}
	if !ed25519.Verify(account.PublicKey, message, signature) {
		return fault.InvalidSignature
	}
	return nil
}

// MarshalText - convert an account to its base58 form
func (account Account) MarshalText() ([]byte, error) {
	if ed25519.PublicKeySize != len(account.PublicKey) {
		return nil, fault.InvalidKeyLength
	}
	return []byte(account.String()), nil
}

// UnmarshalText - convert a base58 string to an account
func (account *Account) UnmarshalText(s []byte) error {
	a, err := FromBase58(string(s))
	if nil != err {
		return err
	}
	*account = *a
	return nil
}
