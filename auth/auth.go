// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package auth provides the capability checks guarding privileged router,
// fabric and building-block operations.
package auth

import (
	"errors"

	"github.com/luxfi/geth/common"
)

// Policy decides whether a caller may execute a privileged operation.
// Every privileged entry point consults the policy before touching state.
type Policy interface {
	// Allow returns nil if the caller holds the privilege, ErrNotRelayer
	// (or a policy-specific error) otherwise.
	Allow(caller common.Address) error
}

// RelayerPolicy grants the privilege to exactly one configured address.
type RelayerPolicy struct {
	relayer common.Address
}

// NewRelayerPolicy creates a single-key policy.
func NewRelayerPolicy(relayer common.Address) (*RelayerPolicy, error) {
	if relayer == (common.Address{}) {
		return nil, ErrRelayerZeroAddress
	}
	return &RelayerPolicy{relayer: relayer}, nil
}

// Allow implements Policy.
func (p *RelayerPolicy) Allow(caller common.Address) error {
	if caller != p.relayer {
		return ErrNotRelayer
	}
	return nil
}

// Relayer returns the configured relayer address.
func (p *RelayerPolicy) Relayer() common.Address {
	return p.relayer
}

var (
	ErrNotRelayer         = errors.New("only relayer")
	ErrRelayerZeroAddress = errors.New("relayer is zero address")
)
