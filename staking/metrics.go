// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import "github.com/palisadelabs/palisade/metrics"

var (
	metricOpCount     = metrics.LazyLoadCounterVec("staking_op_count", []string{"op", "outcome"})
	metricPoolGauge   = metrics.LazyLoadGaugeVec("staking_pool_gauge", []string{"section"})
	metricRewardCount = metrics.LazyLoadCounterVec("staking_reward_count", []string{"kind"})
)

func countOp(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "err"
	}
	metricOpCount().AddWithLabel(1, map[string]string{"op": op, "outcome": outcome})
}

// updateGauges refreshes the pool gauges. Called with the pool lock held.
func (p *Pool) updateGauges() {
	metricPoolGauge().SetWithLabel(int64(p.staked), map[string]string{"section": "staked"})
	metricPoolGauge().SetWithLabel(int64(p.reserve), map[string]string{"section": "reserve"})
	metricPoolGauge().SetWithLabel(int64(len(p.order)), map[string]string{"section": "count"})
}

// RefreshGauges republishes the pool gauges without a mutation. The
// node's housekeeping calls it so the gauges recover after the metrics
// backend was enabled late or restarted.
func (p *Pool) RefreshGauges() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	p.updateGauges()
}
