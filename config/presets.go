// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "time"

// Production returns a configuration tuned for a multi-node deployment:
// larger caches, Byzantine-tolerant consensus, and a slower cluster-detection
// cadence appropriate for a topology with hundreds of units.
func Production() Config {
	cfg := Default()
	cfg.ConsensusMode = ByzantineTolerant
	cfg.RouterCacheSize = 65536
	cfg.SessionTTL = 12 * time.Hour
	cfg.ClusterDetectInterval = 30 * time.Second
	return cfg
}

// Development returns a configuration tuned for a single-process
// integration test run: short timeouts, small caches, fast decay so
// self-organizing behavior is observable within seconds.
func Development() Config {
	cfg := Default()
	cfg.NegotiationTimeout = 500 * time.Millisecond
	cfg.SessionTTL = 5 * time.Minute
	cfg.JanitorInterval = 2 * time.Second
	cfg.RouterCacheSize = 128
	cfg.DecayInterval = 100 * time.Millisecond
	cfg.ClusterDetectInterval = time.Second
	return cfg
}

// PresetNames lists the named presets GetPreset understands.
func PresetNames() []string {
	return []string{"default", "production", "development"}
}

// GetPreset resolves a preset by name.
func GetPreset(name string) (Config, bool) {
	switch name {
	case "default":
		return Default(), true
	case "production":
		return Production(), true
	case "development":
		return Development(), true
	default:
		return Config{}, false
	}
}
