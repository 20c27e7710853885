// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reward

import (
	"math"
	"math/big"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking/rates"
)

func TestAccrued(t *testing.T) {
	day := uint64(24 * 60 * 60)

	tests := []struct {
		name        string
		amount      uint64
		rateBps     uint64
		lastAccrual uint64
		endTime     uint64
		now         uint64
		want        uint64
	}{
		{
			// 1000 units at 5% APY over a full 30 day lock:
			// floor(1000*500*2592000 / (10000*31536000)) = floor(4.109...)
			name:    "30 days at 500 bps",
			amount:  1000,
			rateBps: 500,
			endTime: 30 * day,
			now:     30 * day,
			want:    4,
		},
		{
			name:        "mid window claim",
			amount:      1_000_000,
			rateBps:     800,
			lastAccrual: 0,
			endTime:     90 * day,
			now:         30 * day,
			want:        6575,
		},
		{
			name:    "full year at 1800 bps",
			amount:  1_000_000,
			rateBps: 1800,
			endTime: 365 * day,
			now:     365 * day,
			want:    180_000,
		},
		{
			name:    "accrual stops at end time",
			amount:  1000,
			rateBps: 500,
			endTime: 30 * day,
			now:     300 * day,
			want:    4,
		},
		{
			name:        "empty window",
			amount:      1000,
			rateBps:     500,
			lastAccrual: 10 * day,
			endTime:     30 * day,
			now:         10 * day,
			want:        0,
		},
		{
			name:        "inverted window",
			amount:      1000,
			rateBps:     500,
			lastAccrual: 20 * day,
			endTime:     30 * day,
			now:         10 * day,
			want:        0,
		},
		{
			name:        "window fully past end time",
			amount:      1000,
			rateBps:     500,
			lastAccrual: 30 * day,
			endTime:     30 * day,
			now:         60 * day,
			want:        0,
		},
		{
			name:    "tiny everything truncates to zero",
			amount:  1000,
			rateBps: 500,
			endTime: 30 * day,
			now:     1,
			want:    0,
		},
		{
			name:    "zero amount",
			amount:  0,
			rateBps: 1800,
			endTime: 365 * day,
			now:     365 * day,
			want:    0,
		},
		{
			name:    "zero rate",
			amount:  1000,
			rateBps: 0,
			endTime: 365 * day,
			now:     365 * day,
			want:    0,
		},
		{
			// the widened product must not wrap: floor(MaxUint64 * 18%)
			name:    "max amount full year",
			amount:  math.MaxUint64,
			rateBps: 1800,
			endTime: 365 * day,
			now:     365 * day,
			want:    3320413933267719290,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Accrued(tt.amount, tt.rateBps, tt.lastAccrual, tt.endTime, tt.now)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestAccruedMatchesReference cross-checks the uint256 fast path against
// big.Int arithmetic over randomized positions.
func TestAccruedMatchesReference(t *testing.T) {
	f := fuzz.New()
	durations := rates.Durations()
	denom := new(big.Int).SetUint64(palisade.BasisPointDenominator * palisade.SecondsPerYear)

	for i := 0; i < 2000; i++ {
		var amount, pick, start, offset uint64
		f.Fuzz(&amount)
		f.Fuzz(&pick)
		f.Fuzz(&start)
		f.Fuzz(&offset)

		duration := durations[pick%uint64(len(durations))]
		rateBps, ok := rates.Lookup(duration)
		require.True(t, ok)

		// keep start well away from uint64 range ends so windows never wrap
		start %= uint64(1) << 40
		endTime := start + duration
		now := start + offset%(2*duration)

		got := Accrued(amount, rateBps, start, endTime, now)

		cut := now
		if cut > endTime {
			cut = endTime
		}
		var elapsed uint64
		if cut > start {
			elapsed = cut - start
		}
		ref := new(big.Int).SetUint64(amount)
		ref.Mul(ref, new(big.Int).SetUint64(rateBps))
		ref.Mul(ref, new(big.Int).SetUint64(elapsed))
		ref.Div(ref, denom)
		require.True(t, ref.IsUint64(), "reference result out of uint64 range")
		require.Equal(t, ref.Uint64(), got,
			"amount=%v rate=%v start=%v end=%v now=%v", amount, rateBps, start, endTime, now)

		// accrual is monotone in now
		later := Accrued(amount, rateBps, start, endTime, now+duration)
		require.GreaterOrEqual(t, later, got)
	}
}
