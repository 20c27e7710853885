// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rates

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palisadelabs/palisade/palisade"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		duration uint64
		rate     uint64
		ok       bool
	}{
		{palisade.LockPeriod30Days, 500, true},
		{palisade.LockPeriod90Days, 800, true},
		{palisade.LockPeriod180Days, 1200, true},
		{palisade.LockPeriod365Days, 1800, true},
		{0, 0, false},
		{palisade.LockPeriod30Days + 1, 0, false},
		{60 * 24 * 60 * 60, 0, false},
	}

	for _, tt := range tests {
		rate, ok := Lookup(tt.duration)
		assert.Equal(t, tt.ok, ok, "duration %v", tt.duration)
		assert.Equal(t, tt.rate, rate, "duration %v", tt.duration)
	}
}

func TestDurations(t *testing.T) {
	durations := Durations()
	assert.Len(t, durations, 4)

	for i, d := range durations {
		if i > 0 {
			assert.Greater(t, d, durations[i-1], "durations must ascend")
		}
		_, ok := Lookup(d)
		assert.True(t, ok)
	}
}
