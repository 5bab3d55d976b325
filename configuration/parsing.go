// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package configuration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/bitstable/liquidation"
	"github.com/bitmark-inc/bitstable/oracle"
	"github.com/bitmark-inc/bitstable/oracle/source"
	"github.com/bitmark-inc/bitstable/redemption"
	"github.com/bitmark-inc/bitstable/storage"
	"github.com/bitmark-inc/bitstable/util"
	"github.com/bitmark-inc/bitstable/vault"
)

// basic defaults (directories and files are relative to the "DataDirectory" from Configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultStorageDirectory = "data"
	defaultStorageName      = "events"
	defaultJournalQueue     = 1000

	defaultLogDirectory = "log"
	defaultLogFile      = "bitstabled.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size

	defaultCustodyQueue   = 100
	defaultCustodyTimeout = 30 // seconds

	defaultPollInterval      = 10  // seconds
	defaultSweepInterval     = 60  // seconds
	defaultAccrueInterval    = 300 // seconds
	defaultKeeperInterval    = 15  // seconds
	defaultRebalanceInterval = 60  // seconds
	defaultSourceBond        = 100000000
)

// custody modes
const (
	CustodyConfirm = "confirm" // every request settles at once
	CustodyHold    = "hold"    // requests wait for an operator
)

// LoglevelMap - to hold log levels
type LoglevelMap map[string]string

// path expanded or calculated defaults
var (
	defaultLogLevels = LoglevelMap{
		logger.DefaultTag: "critical",
	}
)

// CurrencyType - per currency risk and fee settings
type CurrencyType struct {
	Code         string `gluamapper:"code" json:"code"`
	AnnualFee    string `gluamapper:"annual_fee" json:"annual_fee"`
	MinimumRatio string `gluamapper:"minimum_ratio" json:"minimum_ratio"`
	MinimumMint  string `gluamapper:"minimum_mint" json:"minimum_mint"` // major units
	Disabled     bool   `gluamapper:"disabled" json:"disabled"`
}

// VaultType - ledger tunables
type VaultType struct {
	MinimumRatio   string `gluamapper:"minimum_ratio" json:"minimum_ratio"`
	WarningRatio   string `gluamapper:"warning_ratio" json:"warning_ratio"`
	MaxPriceAge    int    `gluamapper:"max_price_age" json:"max_price_age"`
	CacheExpiry    int    `gluamapper:"cache_expiry" json:"cache_expiry"`
	AccrueInterval int    `gluamapper:"accrue_interval" json:"accrue_interval"`
}

// OracleType - consensus tunables and the pending override approvals
type OracleType struct {
	Freshness      int      `gluamapper:"freshness" json:"freshness"`
	FutureSkew     int      `gluamapper:"future_skew" json:"future_skew"`
	Tolerance      string   `gluamapper:"tolerance" json:"tolerance"`
	Quorum         int      `gluamapper:"quorum" json:"quorum"`
	StrictQuorum   int      `gluamapper:"strict_quorum" json:"strict_quorum"`
	BaselineMove   string   `gluamapper:"baseline_move" json:"baseline_move"`
	StrictMove     string   `gluamapper:"strict_move" json:"strict_move"`
	CooldownMove   string   `gluamapper:"cooldown_move" json:"cooldown_move"`
	Cooldown       int      `gluamapper:"cooldown" json:"cooldown"`
	SilenceTimeout int      `gluamapper:"silence_timeout" json:"silence_timeout"`
	ReportRate     int      `gluamapper:"report_rate" json:"report_rate"` // per second
	ReportBurst    int      `gluamapper:"report_burst" json:"report_burst"`
	Bond           int64    `gluamapper:"bond" json:"bond"` // satoshi per source
	PollInterval   int      `gluamapper:"poll_interval" json:"poll_interval"`
	SweepInterval  int      `gluamapper:"sweep_interval" json:"sweep_interval"`
	Overrides      []string `gluamapper:"overrides" json:"overrides"` // e.g. "BTC/USD"
}

// LiquidationType - engine tunables and the operator halt
type LiquidationType struct {
	SafeRatio           string `gluamapper:"safe_ratio" json:"safe_ratio"`
	QuarterRatio        string `gluamapper:"quarter_ratio" json:"quarter_ratio"`
	HalfRatio           string `gluamapper:"half_ratio" json:"half_ratio"`
	Threshold           string `gluamapper:"threshold" json:"threshold"`
	BonusBase           string `gluamapper:"bonus_base" json:"bonus_base"`
	BonusSlope          string `gluamapper:"bonus_slope" json:"bonus_slope"`
	BonusVolume         string `gluamapper:"bonus_volume" json:"bonus_volume"`
	BonusCap            string `gluamapper:"bonus_cap" json:"bonus_cap"`
	VolumeWindow        int    `gluamapper:"volume_window" json:"volume_window"`
	RoundSupplyFraction string `gluamapper:"round_supply_fraction" json:"round_supply_fraction"`
	RoundCap            string `gluamapper:"round_cap" json:"round_cap"`
	VaultFraction       string `gluamapper:"vault_fraction" json:"vault_fraction"`
	VaultWindow         int    `gluamapper:"vault_window" json:"vault_window"`
	FullExempt          bool   `gluamapper:"full_exempt" json:"full_exempt"`
	HaltFraction        string `gluamapper:"halt_fraction" json:"halt_fraction"`
	HaltWindow          int    `gluamapper:"halt_window" json:"halt_window"`
	HaltDuration        int    `gluamapper:"halt_duration" json:"halt_duration"`
	MaxPriceAge         int    `gluamapper:"max_price_age" json:"max_price_age"`
	SettlementTimeout   int    `gluamapper:"settlement_timeout" json:"settlement_timeout"`
	KeeperInterval      int    `gluamapper:"keeper_interval" json:"keeper_interval"`
	Liquidator          string `gluamapper:"liquidator" json:"liquidator"` // base58 account
	Halt                bool   `gluamapper:"halt" json:"halt"`
	HaltReason          string `gluamapper:"halt_reason" json:"halt_reason"`
}

// LimitType - whole units of one currency redeemable per UTC day
type LimitType struct {
	Currency string `gluamapper:"currency" json:"currency"`
	Amount   string `gluamapper:"amount" json:"amount"`
}

// RedemptionType - fee schedule and daily limits
type RedemptionType struct {
	BaseFee        string      `gluamapper:"base_fee" json:"base_fee"`
	MaxFee         string      `gluamapper:"max_fee" json:"max_fee"`
	DailyLimit     string      `gluamapper:"daily_limit" json:"daily_limit"`         // currencies without a limit
	Limits         []LimitType `gluamapper:"limits" json:"limits"`                   // replace the built in limit of a currency
	PressureWindow int         `gluamapper:"pressure_window" json:"pressure_window"` // redemptions
	PressureVolume string      `gluamapper:"pressure_volume" json:"pressure_volume"`
	Growth         string      `gluamapper:"growth" json:"growth"`
	Decay          string      `gluamapper:"decay" json:"decay"`
	MaxMultiplier  string      `gluamapper:"max_multiplier" json:"max_multiplier"`
	History        int         `gluamapper:"history" json:"history"`
	MaxPriceAge    int         `gluamapper:"max_price_age" json:"max_price_age"`
}

// CustodyType - the in-process custody simulator
type CustodyType struct {
	Mode      string `gluamapper:"mode" json:"mode"`
	QueueSize int    `gluamapper:"queue_size" json:"queue_size"`
	Timeout   int    `gluamapper:"timeout" json:"timeout"`
}

// PolicyType - one stability policy, exactly one of fixed or percentage
type PolicyType struct {
	Holder     string `gluamapper:"holder" json:"holder"`
	Vault      string `gluamapper:"vault" json:"vault"`
	Currency   string `gluamapper:"currency" json:"currency"`
	Fixed      string `gluamapper:"fixed" json:"fixed"`           // major units
	Percentage string `gluamapper:"percentage" json:"percentage"` // of collateral value
	Threshold  string `gluamapper:"threshold" json:"threshold"`
	Disabled   bool   `gluamapper:"disabled" json:"disabled"`
}

// HoldingType - BTC a holder keeps outside the vaults
type HoldingType struct {
	Holder string `gluamapper:"holder" json:"holder"`
	BTC    string `gluamapper:"btc" json:"btc"`
}

// StabilityType - the rebalancer
type StabilityType struct {
	Interval int           `gluamapper:"interval" json:"interval"`
	Policies []PolicyType  `gluamapper:"policies" json:"policies"`
	Holdings []HoldingType `gluamapper:"holdings" json:"holdings"`
}

// Configuration - the whole daemon configuration
type Configuration struct {
	DataDirectory string                 `gluamapper:"data_directory" json:"data_directory"`
	PidFile       string                 `gluamapper:"pidfile" json:"pidfile"`
	Testnet       bool                   `gluamapper:"testnet" json:"testnet"`
	Storage       storage.Configuration  `gluamapper:"storage" json:"storage"`
	JournalQueue  int                    `gluamapper:"journal_queue" json:"journal_queue"`
	Currencies    []CurrencyType         `gluamapper:"currencies" json:"currencies"`
	Vault         VaultType              `gluamapper:"vault" json:"vault"`
	Oracle        OracleType             `gluamapper:"oracle" json:"oracle"`
	Sources       []source.Configuration `gluamapper:"sources" json:"sources"`
	Liquidation   LiquidationType        `gluamapper:"liquidation" json:"liquidation"`
	Redemption    RedemptionType         `gluamapper:"redemption" json:"redemption"`
	Custody       CustodyType            `gluamapper:"custody" json:"custody"`
	Stability     StabilityType          `gluamapper:"stability" json:"stability"`
	Logging       logger.Configuration   `gluamapper:"logging" json:"logging"`
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

func defaultVault() VaultType {
	d := vault.DefaultConfig()
	return VaultType{
		MinimumRatio:   d.MinimumRatio.String(),
		WarningRatio:   d.WarningRatio.String(),
		MaxPriceAge:    seconds(d.MaxPriceAge),
		CacheExpiry:    seconds(d.CacheExpiry),
		AccrueInterval: defaultAccrueInterval,
	}
}

func defaultOracle() OracleType {
	d := oracle.DefaultConfig()
	return OracleType{
		Freshness:      seconds(d.Freshness),
		FutureSkew:     seconds(d.FutureSkew),
		Tolerance:      d.Tolerance.String(),
		Quorum:         d.Quorum,
		StrictQuorum:   d.StrictQuorum,
		BaselineMove:   d.BaselineMove.String(),
		StrictMove:     d.StrictMove.String(),
		CooldownMove:   d.CooldownMove.String(),
		Cooldown:       seconds(d.Cooldown),
		SilenceTimeout: seconds(d.SilenceTimeout),
		ReportRate:     int(d.ReportRate),
		ReportBurst:    d.ReportBurst,
		Bond:           defaultSourceBond,
		PollInterval:   defaultPollInterval,
		SweepInterval:  defaultSweepInterval,
	}
}

func defaultLiquidation() LiquidationType {
	d := liquidation.DefaultConfig()
	return LiquidationType{
		SafeRatio:           d.SafeRatio.String(),
		QuarterRatio:        d.QuarterRatio.String(),
		HalfRatio:           d.HalfRatio.String(),
		Threshold:           d.Threshold.String(),
		BonusBase:           d.BonusBase.String(),
		BonusSlope:          d.BonusSlope.String(),
		BonusVolume:         d.BonusVolume.String(),
		BonusCap:            d.BonusCap.String(),
		VolumeWindow:        seconds(d.VolumeWindow),
		RoundSupplyFraction: d.RoundSupplyFraction.String(),
		RoundCap:            d.RoundCap.String(),
		VaultFraction:       d.VaultFraction.String(),
		VaultWindow:         seconds(d.VaultWindow),
		FullExempt:          d.FullExempt,
		HaltFraction:        d.HaltFraction.String(),
		HaltWindow:          seconds(d.HaltWindow),
		HaltDuration:        seconds(d.HaltDuration),
		MaxPriceAge:         seconds(d.MaxPriceAge),
		SettlementTimeout:   seconds(d.SettlementTimeout),
		KeeperInterval:      defaultKeeperInterval,
	}
}

func defaultRedemption() RedemptionType {
	d := redemption.DefaultConfig()
	return RedemptionType{
		BaseFee:        d.BaseFee.String(),
		MaxFee:         d.MaxFee.String(),
		DailyLimit:     d.DefaultLimit.String(),
		PressureWindow: d.PressureWindow,
		PressureVolume: d.PressureVolume.String(),
		Growth:         d.Growth.String(),
		Decay:          d.Decay.String(),
		MaxMultiplier:  d.MaxMultiplier.String(),
		History:        d.History,
		MaxPriceAge:    seconds(d.MaxPriceAge),
	}
}

// GetConfiguration - will read decode and verify the configuration
func GetConfiguration(configurationFileName string, variables map[string]string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{

		DataDirectory: defaultDataDirectory,
		PidFile:       "", // no PidFile by default

		Storage: storage.Configuration{
			Backend:   storage.LevelDB,
			Directory: defaultStorageDirectory,
			Name:      defaultStorageName,
		},
		JournalQueue: defaultJournalQueue,

		Vault:       defaultVault(),
		Oracle:      defaultOracle(),
		Liquidation: defaultLiquidation(),
		Redemption:  defaultRedemption(),

		Custody: CustodyType{
			Mode:      CustodyConfirm,
			QueueSize: defaultCustodyQueue,
			Timeout:   defaultCustodyTimeout,
		},

		Stability: StabilityType{
			Interval: defaultRebalanceInterval,
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := ParseConfigurationFile(configurationFileName, options, variables); err != nil {
		return nil, err
	}

	options.Storage.Backend = strings.ToLower(options.Storage.Backend)
	switch options.Storage.Backend {
	case storage.LevelDB, storage.Badger:
	default:
		return nil, fmt.Errorf("Storage: %q is not a supported backend", options.Storage.Backend)
	}

	options.Custody.Mode = strings.ToLower(options.Custody.Mode)
	switch options.Custody.Mode {
	case CustodyConfirm, CustodyHold:
	default:
		return nil, fmt.Errorf("Custody: %q is not a supported mode", options.Custody.Mode)
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("Path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	} else {
		options.DataDirectory = filepath.Clean(options.DataDirectory)
	}

	// this directory must exist - i.e. must be created prior to running
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("Path: %q is not a directory", options.DataDirectory)
	}

	// optional absolute paths i.e. blank or an absolute path
	optionalAbsolute := []*string{
		&options.PidFile,
	}
	for _, f := range optionalAbsolute {
		if "" != *f {
			*f = util.EnsureAbsolute(options.DataDirectory, *f)
		}
	}

	// fail if any of these are not simple file names i.e. must
	// not contain path seperator
	mustNotBePaths := []*string{
		&options.Storage.Name,
		&options.Logging.File,
	}
	for _, f := range mustNotBePaths {
		switch filepath.Dir(*f) {
		case "", ".":
		default:
			return nil, fmt.Errorf("Files: %q is not plain name", *f)
		}
	}

	// make absolute and create directories if they do not already exist
	for _, d := range []*string{
		&options.Storage.Directory,
		&options.Logging.Directory,
	} {
		*d = util.EnsureAbsolute(options.DataDirectory, *d)
		if err := util.EnsureDirectory(*d); nil != err {
			return nil, err
		}
	}

	// done
	return options, nil
}
