// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"context"
	"time"

	"github.com/beevik/ntp"
	"github.com/ethereum/go-ethereum/common"
)

const ntpHost = "pool.ntp.org"

func (n *Node) houseKeeping(ctx context.Context) {
	logger.Debug("enter house keeping")
	defer logger.Debug("leave house keeping")

	statsTicker := time.NewTicker(n.options.StatsInterval)
	clockSyncTicker := time.NewTicker(10 * time.Minute)
	defer func() {
		statsTicker.Stop()
		clockSyncTicker.Stop()
	}()

	if !n.options.SkipClockCheck {
		go n.checkClockOffset()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-statsTicker.C:
			n.logStats()
			n.pool.RefreshGauges()
		case <-clockSyncTicker.C:
			if !n.options.SkipClockCheck {
				go n.checkClockOffset()
			}
		}
	}
}

func (n *Node) logStats() {
	stats := n.pool.Stats()
	logger.Info("pool status",
		"staked", stats.StakedBalance,
		"reserve", stats.RewardBalance,
		"stakes", stats.TotalStakesCount,
	)
}

// checkClockOffset samples the NTP offset and feeds it to health. A
// drifting clock skews accrual windows, so a large offset is worth an
// operator's attention.
func (n *Node) checkClockOffset() {
	resp, err := ntp.Query(ntpHost)
	if err != nil {
		logger.Debug("failed to access NTP", "err", err)
		return
	}
	n.health.SetClockDrift(resp.ClockOffset)
	if resp.ClockOffset > time.Second || resp.ClockOffset < -time.Second {
		logger.Warn("clock offset detected", "offset", common.PrettyDuration(resp.ClockOffset))
	}
}
