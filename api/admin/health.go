// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"sync"
	"time"
)

const defaultMaxClockDrift = 10 * time.Second

// Health tracks whether the durable stores still mirror the in-memory
// pool and how far the wall clock drifts from reference time. The node
// feeds it; the admin endpoint reads it.
type Health struct {
	lock          sync.RWMutex
	ledgerBehind  bool
	journalBehind bool
	clockDrift    time.Duration
}

// HealthStatus is the JSON shape of GET /health.
type HealthStatus struct {
	Healthy       bool   `json:"healthy"`
	LedgerSynced  bool   `json:"ledgerSynced"`
	JournalSynced bool   `json:"journalSynced"`
	ClockDrift    string `json:"clockDrift"`
}

// MarkLedgerBehind records a failed snapshot write. The in-memory pool
// is ahead of disk from here on; only a restart from disk truth clears
// it.
func (h *Health) MarkLedgerBehind() {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.ledgerBehind = true
}

// MarkJournalBehind records a failed journal write.
func (h *Health) MarkJournalBehind() {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.journalBehind = true
}

// SetClockDrift records the latest measured offset to reference time.
func (h *Health) SetClockDrift(drift time.Duration) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.clockDrift = drift
}

func (h *Health) Status(maxClockDrift time.Duration) *HealthStatus {
	h.lock.RLock()
	defer h.lock.RUnlock()

	drift := h.clockDrift
	if drift < 0 {
		drift = -drift
	}
	return &HealthStatus{
		Healthy:       !h.ledgerBehind && !h.journalBehind && drift <= maxClockDrift,
		LedgerSynced:  !h.ledgerBehind,
		JournalSynced: !h.journalBehind,
		ClockDrift:    h.clockDrift.String(),
	}
}
