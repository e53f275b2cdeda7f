// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const validConfig = `{
  "relayer": "0x2222222222222222222222222222222222222222",
  "treasurer": "0x3333333333333333333333333333333333333333",
  "stable": "0x4444444444444444444444444444444444444444",
  "router": "0x1111111111111111111111111111111111111111",
  "nativeChainId": 1,
  "nativeFee": 100,
  "cronSpec": "*/10 * * * * *",
  "routes": [
    {
      "strategyId": 111,
      "destChainId": 42,
      "destination": "0x7777777777777777777777777777777777777777",
      "bridgeToken": "0x4444444444444444444444444444444444444444"
    }
  ]
}`

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)
	require.Equal(t, uint16(1), cfg.NativeChainID)
	require.Equal(t, "*/10 * * * * *", cfg.CronSpec)
	require.Equal(t, int64(100), cfg.NativeFee.Int64())
	require.Len(t, cfg.Routes, 1)
	require.Equal(t, uint64(111), cfg.Routes[0].StrategyID)
	require.Equal(t, uint16(42), cfg.Routes[0].DestChainID)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`{
		"relayer": "0x2222222222222222222222222222222222222222",
		"treasurer": "0x3333333333333333333333333333333333333333",
		"stable": "0x4444444444444444444444444444444444444444",
		"router": "0x1111111111111111111111111111111111111111",
		"nativeChainId": 1
	}`))
	require.NoError(t, err)
	require.Zero(t, cfg.NativeFee.Sign())
	require.NotEmpty(t, cfg.CronSpec)
}

func TestParse_Rejections(t *testing.T) {
	cases := []struct {
		name string
		json string
		want error
	}{
		{"bad json", `{`, nil},
		{"missing relayer", `{"treasurer":"0x3333333333333333333333333333333333333333"}`, ErrRelayerUnset},
		{
			"zero stable",
			`{"relayer":"0x2222222222222222222222222222222222222222",
			  "treasurer":"0x3333333333333333333333333333333333333333",
			  "router":"0x1111111111111111111111111111111111111111",
			  "nativeChainId":1}`,
			ErrStableUnset,
		},
		{
			"zero chain",
			`{"relayer":"0x2222222222222222222222222222222222222222",
			  "treasurer":"0x3333333333333333333333333333333333333333",
			  "stable":"0x4444444444444444444444444444444444444444",
			  "router":"0x1111111111111111111111111111111111111111"}`,
			ErrChainIDUnset,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.json))
			require.Error(t, err)
			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestValidate_RouteChecks(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)

	dup := *cfg
	dup.Routes = append([]RouteConfig{}, cfg.Routes[0], cfg.Routes[0])
	require.ErrorIs(t, dup.Validate(), ErrDuplicateRoute)

	badChain := *cfg
	badChain.Routes = []RouteConfig{{StrategyID: 5, Destination: cfg.Routes[0].Destination}}
	require.ErrorIs(t, badChain.Validate(), ErrChainIDUnset)

	badDest := *cfg
	badDest.Routes = []RouteConfig{{StrategyID: 5, DestChainID: 42}}
	require.ErrorIs(t, badDest.Validate(), ErrDestinationUnset)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "router.json")
	require.NoError(t, os.WriteFile(path, []byte(validConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Routes, 1)

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
