// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type ExistsError GenericError
type InvalidError GenericError
type LimitError GenericError
type NotFoundError GenericError
type ProcessError GenericError
type RecordError GenericError
type RetryError GenericError

// common errors - keep in alphabetic order
var (
	AlreadyInitialised         = ExistsError("already initialised")
	BelowMinimumMint           = InvalidError("amount is below the minimum mint")
	CannotDecodeAccount        = InvalidError("cannot decode account")
	CircuitBreakerTripped      = LimitError("price move exceeds circuit breaker ceiling")
	ConfigurationNotStruct     = InvalidError("configuration must be a pointer to a struct")
	ConfigurationNotTable      = InvalidError("configuration must return a table")
	CooldownActive             = LimitError("price move rejected during cooldown")
	CorruptRecord              = RecordError("corrupt event record")
	CurrencyDisabled           = InvalidError("currency is disabled")
	DuplicateReport            = ExistsError("duplicate price report")
	ExceedsDebt                = InvalidError("amount exceeds outstanding debt")
	FutureReport               = InvalidError("report timestamp is in the future")
	HolderNotFound             = NotFoundError("holder not found")
	InsufficientBalance        = InvalidError("insufficient balance")
	InsufficientCollateral     = InvalidError("insufficient collateral")
	InvalidAccount             = InvalidError("invalid account")
	InvalidAmount              = InvalidError("invalid amount")
	InvalidBackend             = InvalidError("invalid storage backend")
	InvalidBond                = InvalidError("invalid bond")
	InvalidChecksum            = InvalidError("invalid checksum")
	InvalidCount               = InvalidError("invalid count")
	InvalidCurrency            = InvalidError("invalid currency")
	InvalidKeyLength           = InvalidError("invalid key length")
	InvalidKeyType             = InvalidError("invalid key type")
	InvalidLoggerChannel       = InvalidError("invalid logger channel")
	InvalidPair                = InvalidError("invalid asset pair")
	InvalidPrice               = InvalidError("invalid price")
	InvalidRatio               = InvalidError("invalid ratio")
	InvalidSettlementKind      = InvalidError("invalid settlement kind")
	InvalidSignature           = InvalidError("invalid signature")
	InvalidSlashKind           = InvalidError("invalid slash kind")
	InvalidSourceKind          = InvalidError("invalid price source kind")
	InvalidTarget              = InvalidError("invalid target")
	InvalidTickerReply         = InvalidError("invalid ticker reply")
	InvalidVault               = InvalidError("invalid vault id")
	InvalidVaultState          = InvalidError("invalid vault state")
	LiquidationCapExceeded     = LimitError("liquidation cap exceeded")
	LiquidationHalted          = LimitError("liquidation halted")
	LiquidationInFlight        = ExistsError("liquidation already in flight")
	MissingParameters          = InvalidError("missing parameters")
	NoOverridePending          = NotFoundError("no override pending")
	NoPrice                    = NotFoundError("no price")
	NoRedemptionTarget         = NotFoundError("no vault can be redeemed against")
	NotInitialised             = ProcessError("not initialised")
	NotPublicKey               = InvalidError("not a public key")
	OutstandingDebt            = InvalidError("outstanding debt")
	PendingLiquidationNotFound = NotFoundError("pending liquidation not found")
	PolicyNotFound             = NotFoundError("stability policy not found")
	RateLimited                = LimitError("rate limited")
	RedemptionLimitExceeded    = LimitError("daily redemption limit exceeded")
	SameAccount                = InvalidError("source and destination accounts are the same")
	SettlementBroadcast        = ProcessError("settlement already broadcast")
	SettlementFailed           = ProcessError("settlement failed")
	SettlementNotFound         = NotFoundError("settlement not found")
	SettlementPending          = RetryError("settlement in progress")
	SourceAlreadyRegistered    = ExistsError("source already registered")
	SourceNotBonded            = InvalidError("source is not bonded")
	SourceNotFound             = NotFoundError("source not found")
	StalePrice                 = RetryError("stale price")
	StaleReport                = InvalidError("stale report")
	UnknownEventType           = RecordError("unknown event type")
	VaultLocked                = RetryError("vault locked")
	VaultNotFound              = NotFoundError("vault not found")
	VaultPending               = InvalidError("vault collateral is not confirmed")
	VaultTerminated            = InvalidError("vault is closed or liquidated")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ExistsError) Error() string   { return string(e) }
func (e InvalidError) Error() string  { return string(e) }
func (e LimitError) Error() string    { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ProcessError) Error() string  { return string(e) }
func (e RecordError) Error() string   { return string(e) }
func (e RetryError) Error() string    { return string(e) }

// determine the class of an error
func IsErrExists(e error) bool   { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool  { _, ok := e.(InvalidError); return ok }
func IsErrLimit(e error) bool    { _, ok := e.(LimitError); return ok }
func IsErrNotFound(e error) bool { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool  { _, ok := e.(ProcessError); return ok }
func IsErrRecord(e error) bool   { _, ok := e.(RecordError); return ok }
func IsErrRetry(e error) bool    { _, ok := e.(RetryError); return ok }
