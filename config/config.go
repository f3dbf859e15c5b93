// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads node settings from flags, SWAPROUTER_* environment
// variables and an optional swaprouter.yaml file, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/luxfi/swaprouter/bls"
	"github.com/luxfi/swaprouter/fees"
)

const (
	ConfigFileKey         = "config-file"
	ChainIDKey            = "chain-id"
	RouterAddressKey      = "router-address"
	AdminKey              = "admin"
	SettlersKey           = "settlers"
	VerificationFeeBpsKey = "verification-fee-bps"
	PermittedChainsKey    = "permitted-chains"
	SwapPublicKeyKey      = "swap-public-key"
	UpgradePublicKeyKey   = "upgrade-public-key"
	UpgradeMinDelayKey    = "upgrade-min-delay"
	SharePublicKeysKey    = "share-public-keys"
	SignThresholdKey      = "sign-threshold"
	SignTimeoutKey        = "sign-timeout"
	MaxPendingSignsKey    = "max-pending-signs"
	HTTPAddressKey        = "http-address"
	StrictHooksKey        = "strict-hooks"

	EnvPrefix       = "SWAPROUTER"
	DefaultFileName = "swaprouter"
)

var (
	ErrMissingChainID   = errors.New("chain id is required")
	ErrMissingAddress   = errors.New("address is required")
	ErrMissingPublicKey = errors.New("swap public key is required")
	ErrInvalidThreshold = errors.New("invalid signing threshold")
)

// Config is the resolved node configuration.
type Config struct {
	ChainID            uint64
	RouterAddress      common.Address
	Admin              common.Address
	Settlers           []common.Address
	VerificationFeeBps uint64
	PermittedChains    []uint64

	SwapPublicKey *bls.PublicKey
	// UpgradePublicKey enables upgrade governance when set.
	UpgradePublicKey *bls.PublicKey
	UpgradeMinDelay  uint64

	// SharePublicKeys are the validator share keys, indexed from 1 in list
	// order. Threshold signing is disabled when empty.
	SharePublicKeys map[uint32]*bls.PublicKey
	SignThreshold   int
	SignTimeout     time.Duration
	MaxPendingSigns int

	HTTPAddress string
	StrictHooks bool
}

func AddFlags(flags *pflag.FlagSet) {
	flags.String(ConfigFileKey, "", "Path to a config file (default ./swaprouter.yaml if present)")
	flags.Uint64(ChainIDKey, 0, "Chain id this router executes on (required)")
	flags.String(RouterAddressKey, "", "Custody address of the router (required)")
	flags.String(AdminKey, "", "Initial admin address (required)")
	flags.StringSlice(SettlersKey, nil, "Addresses granted the settlement role at genesis")
	flags.Uint64(VerificationFeeBpsKey, 500, "Verification fee rate in basis points")
	flags.StringSlice(PermittedChainsKey, nil, "Destination chain ids permitted at genesis")
	flags.String(SwapPublicKeyKey, "", "Hex G2 public key of the swap-request validator set (required)")
	flags.String(UpgradePublicKeyKey, "", "Hex G2 public key authorizing governance actions")
	flags.Uint64(UpgradeMinDelayKey, 2*24*60*60, "Minimum delay in seconds before a scheduled upgrade can run")
	flags.StringSlice(SharePublicKeysKey, nil, "Hex G2 public keys of the validator shares, in index order")
	flags.Int(SignThresholdKey, 0, "Partial signatures needed to combine a signature")
	flags.Duration(SignTimeoutKey, 5*time.Minute, "Lifetime of a signing session")
	flags.Int(MaxPendingSignsKey, 1000, "Maximum concurrently pending signing sessions")
	flags.String(HTTPAddressKey, "127.0.0.1:9650", "Address the API server listens on")
	flags.Bool(StrictHooksKey, false, "Fail settlements whose post-settlement hooks fail")
}

// Load resolves the configuration from flags, environment and file.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file := v.GetString(ConfigFileKey); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ChainID:            v.GetUint64(ChainIDKey),
		VerificationFeeBps: v.GetUint64(VerificationFeeBpsKey),
		UpgradeMinDelay:    v.GetUint64(UpgradeMinDelayKey),
		SignThreshold:      v.GetInt(SignThresholdKey),
		SignTimeout:        v.GetDuration(SignTimeoutKey),
		MaxPendingSigns:    v.GetInt(MaxPendingSignsKey),
		HTTPAddress:        v.GetString(HTTPAddressKey),
		StrictHooks:        v.GetBool(StrictHooksKey),
	}

	var err error
	if cfg.RouterAddress, err = parseAddress(RouterAddressKey, v.GetString(RouterAddressKey)); err != nil {
		return nil, err
	}
	if cfg.Admin, err = parseAddress(AdminKey, v.GetString(AdminKey)); err != nil {
		return nil, err
	}
	for _, s := range v.GetStringSlice(SettlersKey) {
		addr, err := parseAddress(SettlersKey, s)
		if err != nil {
			return nil, err
		}
		cfg.Settlers = append(cfg.Settlers, addr)
	}
	for _, s := range v.GetStringSlice(PermittedChainsKey) {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", PermittedChainsKey, s, err)
		}
		cfg.PermittedChains = append(cfg.PermittedChains, id)
	}

	if s := v.GetString(SwapPublicKeyKey); s != "" {
		if cfg.SwapPublicKey, err = bls.PublicKeyFromHex(s); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", SwapPublicKeyKey, err)
		}
	}
	if s := v.GetString(UpgradePublicKeyKey); s != "" {
		if cfg.UpgradePublicKey, err = bls.PublicKeyFromHex(s); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", UpgradePublicKeyKey, err)
		}
	}
	if shares := v.GetStringSlice(SharePublicKeysKey); len(shares) > 0 {
		cfg.SharePublicKeys = make(map[uint32]*bls.PublicKey, len(shares))
		for i, s := range shares {
			pk, err := bls.PublicKeyFromHex(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s entry %d: %w", SharePublicKeysKey, i, err)
			}
			cfg.SharePublicKeys[uint32(i+1)] = pk
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseAddress(key, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s %q", key, s)
	}
	return common.HexToAddress(s), nil
}

// Validate checks that cfg can start a router.
func (c *Config) Validate() error {
	switch {
	case c.ChainID == 0:
		return ErrMissingChainID
	case c.RouterAddress == (common.Address{}):
		return fmt.Errorf("%w: %s", ErrMissingAddress, RouterAddressKey)
	case c.Admin == (common.Address{}):
		return fmt.Errorf("%w: %s", ErrMissingAddress, AdminKey)
	case c.SwapPublicKey == nil:
		return ErrMissingPublicKey
	}
	if _, err := fees.NewPolicy(c.VerificationFeeBps); err != nil {
		return err
	}
	for _, id := range c.PermittedChains {
		if id == c.ChainID {
			return fmt.Errorf("chain %d cannot permit itself as a destination", id)
		}
	}
	if len(c.SharePublicKeys) > 0 && (c.SignThreshold < 1 || c.SignThreshold > len(c.SharePublicKeys)) {
		return fmt.Errorf("%w: t=%d n=%d", ErrInvalidThreshold, c.SignThreshold, len(c.SharePublicKeys))
	}
	return nil
}
