// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the deployment address book: the relayer and
// treasurer keys, the stable token, the native chain, and the bridge
// route per strategy.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/luxfi/geth/common"
)

// RouteConfig is one strategy's bridge destination.
type RouteConfig struct {
	StrategyID  uint64         `json:"strategyId"`
	DestChainID uint16         `json:"destChainId"`
	Destination common.Address `json:"destination"`
	BridgeToken common.Address `json:"bridgeToken"`
}

// Config is the full deployment description.
type Config struct {
	Relayer       common.Address `json:"relayer"`
	Treasurer     common.Address `json:"treasurer"`
	Stable        common.Address `json:"stable"`
	Router        common.Address `json:"router"`
	NativeChainID uint16         `json:"nativeChainId"`
	NativeFee     *big.Int       `json:"nativeFee"`
	CronSpec      string         `json:"cronSpec"`
	Routes        []RouteConfig  `json:"routes"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates raw JSON config.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every address and chain id is set.
func (c *Config) Validate() error {
	zero := common.Address{}
	switch {
	case c.Relayer == zero:
		return ErrRelayerUnset
	case c.Treasurer == zero:
		return ErrTreasurerUnset
	case c.Stable == zero:
		return ErrStableUnset
	case c.Router == zero:
		return ErrRouterUnset
	case c.NativeChainID == 0:
		return ErrChainIDUnset
	}
	seen := make(map[uint64]bool, len(c.Routes))
	for _, r := range c.Routes {
		if seen[r.StrategyID] {
			return fmt.Errorf("%w: strategy %d", ErrDuplicateRoute, r.StrategyID)
		}
		seen[r.StrategyID] = true
		if r.DestChainID == 0 {
			return fmt.Errorf("%w: strategy %d", ErrChainIDUnset, r.StrategyID)
		}
		if r.Destination == zero {
			return fmt.Errorf("%w: strategy %d", ErrDestinationUnset, r.StrategyID)
		}
	}
	if c.NativeFee == nil {
		c.NativeFee = big.NewInt(0)
	}
	if c.CronSpec == "" {
		c.CronSpec = "*/30 * * * * *"
	}
	return nil
}

var (
	ErrRelayerUnset     = errors.New("relayer address unset")
	ErrTreasurerUnset   = errors.New("treasurer address unset")
	ErrStableUnset      = errors.New("stable token address unset")
	ErrRouterUnset      = errors.New("router address unset")
	ErrChainIDUnset     = errors.New("chain id unset")
	ErrDestinationUnset = errors.New("destination address unset")
	ErrDuplicateRoute   = errors.New("duplicate route")
)
