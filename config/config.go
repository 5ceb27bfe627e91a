// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines the substrate's runtime configuration: per-layer
// queue capacities, signal decay/expiry constants, the golden-ratio
// tolerance used by layer boundaries, protocol-manager negotiation and
// session timeouts, gradient batching, consensus mode, router cache
// sizing, and self-organizing-network tunables.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corticalmesh/substrate/unit"
)

// ConsensusMode selects the consensus protocol's vote-collection policy
// (spec.md §4.B: SimpleMajority or one Byzantine-tolerant mode).
type ConsensusMode int

const (
	// SimpleMajority accepts a proposal once the "accept" votes reach
	// required_votes.
	SimpleMajority ConsensusMode = iota
	// ByzantineTolerant accepts a proposal once the "accept" votes reach
	// two thirds of required_votes, rounded up.
	ByzantineTolerant
)

func (m ConsensusMode) String() string {
	if m == ByzantineTolerant {
		return "byzantine-tolerant"
	}
	return "simple-majority"
}

// Config is the substrate's top-level runtime configuration, serialized
// as YAML or JSON at the edges and validated before use.
type Config struct {
	// QueueCapacity is the bounded inbound-queue depth per layer (spec.md
	// §5 Backpressure: default 100 at L1 shrinking to 10 at L5+). Keyed
	// by unit.Layer ordinal (1..9).
	QueueCapacity [10]int `yaml:"queueCapacity" json:"queueCapacity"`

	// Signal decay/expiry (spec.md §3 Signal invariant).
	SignalStrengthFloor float64 `yaml:"signalStrengthFloor" json:"signalStrengthFloor"`
	SignalMaxDepth      int     `yaml:"signalMaxDepth" json:"signalMaxDepth"`

	// GoldenRatioTolerance bounds |compression_ratio - 1.618| for a
	// boundary record's golden_ratio_flag (spec.md §3, §8 invariant 3).
	GoldenRatioTolerance float64 `yaml:"goldenRatioTolerance" json:"goldenRatioTolerance"`

	// NegotiationTimeout bounds how long the protocol manager waits for a
	// negotiation response (spec.md §4.C).
	NegotiationTimeout time.Duration `yaml:"negotiationTimeout" json:"negotiationTimeout"`
	// SessionTTL is the maximum lifetime of a negotiated peer session
	// (spec.md §3: "negotiated protocols live for ≤24h").
	SessionTTL time.Duration `yaml:"sessionTTL" json:"sessionTTL"`
	// JanitorInterval is the tick period at which the protocol manager
	// sweeps stale peer sessions.
	JanitorInterval time.Duration `yaml:"janitorInterval" json:"janitorInterval"`

	// GradientBatchSize is the max number of gradients accumulated for
	// the same target before an automatic flush (spec.md §4.B).
	GradientBatchSize int `yaml:"gradientBatchSize" json:"gradientBatchSize"`
	// GradientFlushInterval is the timer-triggered flush period.
	GradientFlushInterval time.Duration `yaml:"gradientFlushInterval" json:"gradientFlushInterval"`
	// GradientMagnitudeClip is the default clip applied to gradients
	// exceeding it (spec.md §4.B default 10).
	GradientMagnitudeClip float64 `yaml:"gradientMagnitudeClip" json:"gradientMagnitudeClip"`

	// ConsensusMode selects SimpleMajority or ByzantineTolerant.
	ConsensusMode ConsensusMode `yaml:"consensusMode" json:"consensusMode"`
	// ConsensusDeadlineDefault is used when a proposal omits one.
	ConsensusDeadlineDefault time.Duration `yaml:"consensusDeadlineDefault" json:"consensusDeadlineDefault"`

	// RouterCacheSize bounds the router's (source,target) path cache
	// (spec.md §4.G).
	RouterCacheSize int `yaml:"routerCacheSize" json:"routerCacheSize"`

	// Self-organizing-network tunables (spec.md §4.H).
	CompatibilityThreshold float64       `yaml:"compatibilityThreshold" json:"compatibilityThreshold"`
	ReinforcementStep      float64       `yaml:"reinforcementStep" json:"reinforcementStep"`
	DecayFactor            float64       `yaml:"decayFactor" json:"decayFactor"`
	DecayInterval          time.Duration `yaml:"decayInterval" json:"decayInterval"`
	WeakeningTicks         int           `yaml:"weakeningTicks" json:"weakeningTicks"`
	MinEdgeWeight          float64       `yaml:"minEdgeWeight" json:"minEdgeWeight"`
	ClusterThreshold       float64       `yaml:"clusterThreshold" json:"clusterThreshold"`
	ClusterDetectInterval  time.Duration `yaml:"clusterDetectInterval" json:"clusterDetectInterval"`
	SelfHealingFanOut      int           `yaml:"selfHealingFanOut" json:"selfHealingFanOut"` // K

	// MaxMessageSize bounds negotiated protocol payloads unless a peer
	// advertises a smaller cap.
	MaxMessageSize uint64 `yaml:"maxMessageSize" json:"maxMessageSize"`

	// Delivery-failure benching (spec.md §5 backpressure): a unit that
	// fails BenchThreshold consecutive deliveries, over at least
	// BenchMinimumFailingDuration, is excluded from routing for
	// BenchDuration.
	BenchThreshold              int           `yaml:"benchThreshold" json:"benchThreshold"`
	BenchDuration               time.Duration `yaml:"benchDuration" json:"benchDuration"`
	BenchMinimumFailingDuration time.Duration `yaml:"benchMinimumFailingDuration" json:"benchMinimumFailingDuration"`
}

// Default returns the configuration spec.md names or implies as defaults:
// decay cutoff strength 0.01 / depth 10, golden ratio tolerance 0.05,
// backpressure 100 at L1 shrinking to 10 at L5, magnitude clip 10.
func Default() Config {
	cfg := Config{
		SignalStrengthFloor:      0.01,
		SignalMaxDepth:           10,
		GoldenRatioTolerance:     0.05,
		NegotiationTimeout:       5 * time.Second,
		SessionTTL:               24 * time.Hour,
		JanitorInterval:          time.Minute,
		GradientBatchSize:        32,
		GradientFlushInterval:    500 * time.Millisecond,
		GradientMagnitudeClip:    10,
		ConsensusMode:            SimpleMajority,
		ConsensusDeadlineDefault: 10 * time.Second,
		RouterCacheSize:          4096,
		CompatibilityThreshold:   0.5,
		ReinforcementStep:        0.05,
		DecayFactor:              0.98,
		DecayInterval:            time.Second,
		WeakeningTicks:           5,
		MinEdgeWeight:            0.05,
		ClusterThreshold:         0.6,
		ClusterDetectInterval:    10 * time.Second,
		SelfHealingFanOut:        3,
		MaxMessageSize:              1_000_000,
		BenchThreshold:              5,
		BenchDuration:               30 * time.Second,
		BenchMinimumFailingDuration: 2 * time.Second,
	}
	for l := unit.L1; l <= unit.L9; l++ {
		cfg.QueueCapacity[l] = queueCapacityFor(l)
	}
	return cfg
}

// queueCapacityFor implements spec.md §5's "default 100 at L1 shrinking
// to 10 at L5": L1..L4 step down by (100-10)/4 = 22 (100, 78, 56, 34),
// L5 takes 10, and L6..L9 keep L5's value (they "inherit L5's envelope"
// per §4.D).
func queueCapacityFor(l unit.Layer) int {
	if l >= unit.L5 {
		return 10
	}
	step := (100 - 10) / int(unit.L5-unit.L1)
	return 100 - step*int(l-unit.L1)
}

// Validate rejects out-of-range values, mirroring the teacher's
// Validator.Validate: report every violation, not just the first.
func (c Config) Validate() error {
	var msgs []string
	check := func(cond bool, format string, args ...interface{}) {
		if cond {
			msgs = append(msgs, fmt.Sprintf(format, args...))
		}
	}

	for l := unit.L1; l <= unit.L9; l++ {
		check(c.QueueCapacity[l] < 1, "queueCapacity[%s] must be >= 1", l)
	}
	check(c.SignalStrengthFloor <= 0 || c.SignalStrengthFloor >= 1,
		"signalStrengthFloor must be in (0,1), got %v", c.SignalStrengthFloor)
	check(c.SignalMaxDepth < 1, "signalMaxDepth must be >= 1, got %d", c.SignalMaxDepth)
	check(c.GoldenRatioTolerance <= 0, "goldenRatioTolerance must be > 0, got %v", c.GoldenRatioTolerance)
	check(c.NegotiationTimeout <= 0, "negotiationTimeout must be > 0")
	check(c.SessionTTL <= 0, "sessionTTL must be > 0")
	check(c.SessionTTL > 24*time.Hour, "sessionTTL must be <= 24h per spec, got %v", c.SessionTTL)
	check(c.JanitorInterval <= 0, "janitorInterval must be > 0")
	check(c.GradientBatchSize < 1, "gradientBatchSize must be >= 1, got %d", c.GradientBatchSize)
	check(c.GradientFlushInterval <= 0, "gradientFlushInterval must be > 0")
	check(c.GradientMagnitudeClip <= 0, "gradientMagnitudeClip must be > 0, got %v", c.GradientMagnitudeClip)
	check(c.RouterCacheSize < 1, "routerCacheSize must be >= 1, got %d", c.RouterCacheSize)
	check(c.CompatibilityThreshold < 0 || c.CompatibilityThreshold > 1,
		"compatibilityThreshold must be in [0,1], got %v", c.CompatibilityThreshold)
	check(c.ReinforcementStep <= 0, "reinforcementStep must be > 0, got %v", c.ReinforcementStep)
	check(c.DecayFactor <= 0 || c.DecayFactor >= 1, "decayFactor must be in (0,1), got %v", c.DecayFactor)
	check(c.DecayInterval <= 0, "decayInterval must be > 0")
	check(c.WeakeningTicks < 1, "weakeningTicks must be >= 1, got %d", c.WeakeningTicks)
	check(c.MinEdgeWeight < 0 || c.MinEdgeWeight > 1, "minEdgeWeight must be in [0,1], got %v", c.MinEdgeWeight)
	check(c.ClusterThreshold < 0 || c.ClusterThreshold > 1,
		"clusterThreshold must be in [0,1], got %v", c.ClusterThreshold)
	check(c.ClusterDetectInterval <= 0, "clusterDetectInterval must be > 0")
	check(c.SelfHealingFanOut < 1, "selfHealingFanOut (K) must be >= 1, got %d", c.SelfHealingFanOut)
	check(c.MaxMessageSize < 1, "maxMessageSize must be >= 1")

	if len(msgs) == 0 {
		return nil
	}
	err := fmt.Errorf("invalid config:")
	for _, m := range msgs {
		err = fmt.Errorf("%w\n\t* %s", err, m)
	}
	return err
}

// MarshalYAML and UnmarshalYAML round-trip through gopkg.in/yaml.v3,
// matching the teacher's yaml-tagged configuration pattern.
func (c Config) MarshalYAML() (interface{}, error) {
	type alias Config
	return alias(c), nil
}

func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type alias Config
	var a alias
	if err := value.Decode(&a); err != nil {
		return err
	}
	*c = Config(a)
	return nil
}
