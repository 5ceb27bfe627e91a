// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/corticalmesh/substrate/unit"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestQueueCapacityShrinksTowardL5(t *testing.T) {
	cfg := Default()
	require.Equal(t, 100, cfg.QueueCapacity[unit.L1])
	require.Equal(t, 10, cfg.QueueCapacity[unit.L5])
	require.Equal(t, 10, cfg.QueueCapacity[unit.L9])
	require.Less(t, cfg.QueueCapacity[unit.L3], cfg.QueueCapacity[unit.L1])
}

func TestValidateReportsMultipleViolations(t *testing.T) {
	cfg := Default()
	cfg.SignalStrengthFloor = -1
	cfg.RouterCacheSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "signalStrengthFloor")
	require.Contains(t, err.Error(), "routerCacheSize")
}

func TestValidateSessionTTLUpperBound(t *testing.T) {
	cfg := Default()
	cfg.SessionTTL = cfg.SessionTTL * 3 // 72h exceeds the 24h cap
	require.Error(t, cfg.Validate())
}

func TestConsensusModeString(t *testing.T) {
	require.Equal(t, "simple-majority", SimpleMajority.String())
	require.Equal(t, "byzantine-tolerant", ByzantineTolerant.String())
}

func TestYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	var parsed Config
	require.NoError(t, yaml.Unmarshal(out, &parsed))
	require.Equal(t, cfg, parsed)
}

func TestPresetNamesAndGetPreset(t *testing.T) {
	require.ElementsMatch(t, []string{"default", "production", "development"}, PresetNames())

	for _, name := range PresetNames() {
		cfg, ok := GetPreset(name)
		require.True(t, ok)
		require.NoError(t, cfg.Validate())
	}

	_, ok := GetPreset("nonexistent")
	require.False(t, ok)
}

func TestProductionUsesByzantineTolerant(t *testing.T) {
	cfg := Production()
	require.Equal(t, ByzantineTolerant, cfg.ConsensusMode)
}

func TestDevelopmentHasFastDecay(t *testing.T) {
	cfg := Development()
	require.Less(t, cfg.DecayInterval, Default().DecayInterval)
}
