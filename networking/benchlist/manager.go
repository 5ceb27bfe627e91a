// Copyright (C) 2025, Corticalmesh Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package benchlist

import (
	"sync"
	"time"

	"github.com/corticalmesh/substrate/ids"
)

// Manager tracks per-unit delivery failures and benches units that fail
// persistently, so the orchestrator's router stops targeting them until
// the bench expires.
type Manager interface {
	IsBenched(unitID ids.UnitID) bool
	RegisterResponse(unitID ids.UnitID)
	RegisterFailure(unitID ids.UnitID)
}

type manager struct {
	lock       sync.RWMutex
	cfg        Config
	benched    map[ids.UnitID]time.Time
	failures   map[ids.UnitID]int
	failedTime map[ids.UnitID]time.Time
}

// NewManager constructs a Manager from cfg.
func NewManager(cfg Config) Manager {
	return &manager{
		cfg:        cfg,
		benched:    make(map[ids.UnitID]time.Time),
		failures:   make(map[ids.UnitID]int),
		failedTime: make(map[ids.UnitID]time.Time),
	}
}

func (m *manager) IsBenched(unitID ids.UnitID) bool {
	m.lock.RLock()
	until, benched := m.benched[unitID]
	m.lock.RUnlock()
	if !benched {
		return false
	}
	if time.Now().After(until) {
		m.lock.Lock()
		delete(m.benched, unitID)
		m.lock.Unlock()
		return false
	}
	return true
}

func (m *manager) RegisterResponse(unitID ids.UnitID) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.failures, unitID)
	delete(m.failedTime, unitID)
}

func (m *manager) RegisterFailure(unitID ids.UnitID) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, benched := m.benched[unitID]; benched {
		return
	}
	if _, ok := m.failedTime[unitID]; !ok {
		m.failedTime[unitID] = time.Now()
	}
	m.failures[unitID]++

	if m.failures[unitID] >= m.cfg.Threshold && time.Since(m.failedTime[unitID]) >= m.cfg.MinimumFailingDuration {
		m.benched[unitID] = time.Now().Add(m.cfg.Duration)
		delete(m.failures, unitID)
		delete(m.failedTime, unitID)
	}
}
