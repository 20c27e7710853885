// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"context"
	"time"
)

func (n *Node) schedulerLoop(ctx context.Context) {
	logger.Debug("enter scheduler loop")
	defer logger.Debug("leave scheduler loop")

	ticker := time.NewTicker(n.options.SchedulerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.compoundTick()
		}
	}
}

// compoundTick compounds every position whose owner left auto-compound
// set and which has a non-zero accrual. The flag is the owner's
// standing authorization, so each call runs with caller = owner.
func (n *Node) compoundTick() {
	now := n.Now()

	var compounded, skipped int
	for _, pos := range n.pool.Positions() {
		if !pos.AutoCompound {
			continue
		}
		if pos.Accrued(now) == 0 {
			continue
		}
		rec, err := n.pool.Compound(pos.Owner, pos.ID, now)
		if err != nil {
			// the position may have gone, or the reserve drained,
			// since the preview
			logger.Debug("auto-compound skipped", "id", pos.ID, "err", err)
			skipped++
			continue
		}
		n.commit(rec)
		compounded++
	}
	if compounded > 0 || skipped > 0 {
		logger.Info("auto-compound sweep", "compounded", compounded, "skipped", skipped)
	}
}
