// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auth

import (
	"errors"
	"testing"

	"github.com/luxfi/geth/common"
)

func TestRelayerPolicy(t *testing.T) {
	relayer := common.HexToAddress("0x1212121212121212121212121212121212121212")
	other := common.HexToAddress("0x3434343434343434343434343434343434343434")

	p, err := NewRelayerPolicy(relayer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Allow(relayer); err != nil {
		t.Errorf("relayer must be allowed, got %v", err)
	}
	if err := p.Allow(other); !errors.Is(err, ErrNotRelayer) {
		t.Errorf("expected ErrNotRelayer, got %v", err)
	}
	if err := p.Allow(common.Address{}); !errors.Is(err, ErrNotRelayer) {
		t.Errorf("zero caller: expected ErrNotRelayer, got %v", err)
	}
	if p.Relayer() != relayer {
		t.Error("relayer accessor mismatch")
	}
}

func TestRelayerPolicy_ZeroAddress(t *testing.T) {
	if _, err := NewRelayerPolicy(common.Address{}); !errors.Is(err, ErrRelayerZeroAddress) {
		t.Errorf("expected ErrRelayerZeroAddress, got %v", err)
	}
}
