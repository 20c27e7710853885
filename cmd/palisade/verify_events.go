// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/palisadelabs/palisade/eventdb"
	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
)

const verifyPageSize = 2048

// replayedPosition is a position as reconstructed from the journal. The
// id sequence counter never travels in events, so Seq is absent here
// and excluded from the comparison.
type replayedPosition struct {
	ID              palisade.Bytes32
	Owner           palisade.Address
	Amount          uint64
	StartTime       uint64
	LockDuration    uint64
	EndTime         uint64
	RewardRateBps   uint64
	AutoCompound    bool
	LastAccrualTime uint64
}

type replayedLedger struct {
	positions map[palisade.Bytes32]*replayedPosition
	stats     staking.Stats
}

// verifyEventsAction replays the whole event journal from an empty
// ledger and checks that it reproduces the snapshot store: same
// positions, same pool totals. A divergence means one of the two
// stores is corrupt or the node died between the two writes of a
// commit.
func verifyEventsAction(ctx *cli.Context) error {
	initLogger(ctx)

	gene := selectGenesis(ctx)
	instanceDir := makeInstanceDir(ctx, gene)

	db := openPoolDB(ctx, instanceDir)
	defer db.Close()
	journal := openEventDB(instanceDir)
	defer journal.Close()

	storedID, err := db.GenesisID()
	if err != nil {
		return errors.Wrap(err, "read genesis id")
	}
	if storedID.IsZero() {
		return errors.New("data directory is not initialized")
	}
	if storedID != gene.ID() {
		return errors.Errorf("genesis mismatch (stored %v, given %v)", storedID, gene.ID())
	}

	replayed, err := replayJournal(context.Background(), journal)
	if err != nil {
		return errors.Wrap(err, "replay journal")
	}

	ledger, err := db.LoadLedger()
	if err != nil {
		return errors.Wrap(err, "load ledger snapshot")
	}

	if err := compareLedgers(replayed, ledger.Positions, ledger.Stats); err != nil {
		return err
	}

	fmt.Printf("journal verified: %v positions, staked %v, reserve %v\n",
		replayed.stats.TotalStakesCount, replayed.stats.StakedBalance, replayed.stats.RewardBalance)
	return nil
}

func replayJournal(ctx context.Context, journal *eventdb.EventDB) (*replayedLedger, error) {
	maxSeq, err := journal.MaxSeq(ctx)
	if err != nil {
		return nil, err
	}

	fmt.Println(">> Replaying event journal <<")
	bar := pb.New64(int64(maxSeq)).
		SetMaxWidth(90).
		Start()
	defer func() { bar.NotPrint = true }()

	ledger := &replayedLedger{positions: make(map[palisade.Bytes32]*replayedPosition)}

	afterSeq := uint64(0)
	for {
		rows, err := journal.Filter(ctx, &eventdb.Filter{
			AfterSeq: afterSeq,
			Options:  &eventdb.Options{Limit: verifyPageSize},
		})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			if err := ledger.apply(row); err != nil {
				return nil, errors.Wrapf(err, "journal seq %v", row.Seq)
			}
			afterSeq = row.Seq
		}
		bar.Set64(int64(afterSeq))
	}
	bar.Finish()
	return ledger, nil
}

func (l *replayedLedger) apply(row *eventdb.StoredEvent) error {
	switch row.Type {
	case staking.StakeCreated:
		if _, dup := l.positions[row.ID]; dup {
			return errors.New("duplicate creation")
		}
		l.positions[row.ID] = &replayedPosition{
			ID:              row.ID,
			Owner:           row.Owner,
			Amount:          row.Amount,
			StartTime:       row.Time,
			LockDuration:    row.Duration,
			EndTime:         row.Time + row.Duration,
			RewardRateBps:   row.RateBps,
			AutoCompound:    row.AutoCompound,
			LastAccrualTime: row.Time,
		}
		l.stats.StakedBalance += row.Amount
		l.stats.TotalStakesCount++

	case staking.RewardClaimed:
		if row.Amount > l.stats.RewardBalance {
			return errors.New("claim exceeds the replayed reserve")
		}
		l.stats.RewardBalance -= row.Amount
		// a claim row of a withdrawal settles a position the next row
		// destroys; the cursor advance is then moot
		if pos, ok := l.positions[row.ID]; ok {
			pos.LastAccrualTime = accrualCut(pos.EndTime, row.Time)
		}

	case staking.RewardCompounded:
		pos, ok := l.positions[row.ID]
		if !ok {
			return errors.New("compound of an unknown position")
		}
		if row.Amount > l.stats.RewardBalance {
			return errors.New("compound exceeds the replayed reserve")
		}
		if pos.Amount+row.Amount != row.NewAmount {
			return errors.New("compound amount mismatch")
		}
		pos.Amount = row.NewAmount
		pos.LastAccrualTime = accrualCut(pos.EndTime, row.Time)
		l.stats.RewardBalance -= row.Amount
		l.stats.StakedBalance += row.Amount

	case staking.StakeWithdrawn:
		pos, ok := l.positions[row.ID]
		if !ok {
			return errors.New("withdrawal of an unknown position")
		}
		if pos.Amount != row.Amount {
			return errors.New("withdrawn principal mismatch")
		}
		l.stats.StakedBalance -= row.Amount
		l.stats.TotalStakesCount--
		delete(l.positions, row.ID)

	case staking.AutoCompoundUpdated:
		pos, ok := l.positions[row.ID]
		if !ok {
			return errors.New("toggle of an unknown position")
		}
		pos.AutoCompound = row.AutoCompound

	case staking.ReserveFunded:
		l.stats.RewardBalance += row.Amount

	default:
		return errors.Errorf("unknown event type %q", row.Type)
	}
	return nil
}

func accrualCut(endTime, now uint64) uint64 {
	if now > endTime {
		return endTime
	}
	return now
}

func compareLedgers(replayed *replayedLedger, positions []*staking.Position, stats staking.Stats) error {
	if replayed.stats != stats {
		fmt.Println("\nDiff pool totals")
		fmt.Println(jsonDiff(replayed.stats, stats))
		return errors.New("pool totals diverge from the journal")
	}

	if len(replayed.positions) != len(positions) {
		return errors.Errorf("position count diverges: journal has %v, snapshot has %v",
			len(replayed.positions), len(positions))
	}

	sorted := make([]*staking.Position, len(positions))
	copy(sorted, positions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	for _, pos := range sorted {
		want, ok := replayed.positions[pos.ID]
		if !ok {
			return errors.Errorf("position %v is not in the journal", pos.ID)
		}
		got := &replayedPosition{
			ID:              pos.ID,
			Owner:           pos.Owner,
			Amount:          pos.Amount,
			StartTime:       pos.StartTime,
			LockDuration:    pos.LockDuration,
			EndTime:         pos.EndTime,
			RewardRateBps:   pos.RewardRateBps,
			AutoCompound:    pos.AutoCompound,
			LastAccrualTime: pos.LastAccrualTime,
		}
		if *got != *want {
			fmt.Println("\nDiff position", pos.ID)
			fmt.Println(jsonDiff(want, got))
			spew.Dump(want, got)
			return errors.New("position diverges from the journal")
		}
	}
	return nil
}

func jsonDiff(expected, actual interface{}) string {
	e, _ := json.MarshalIndent(expected, "", "  ")
	a, _ := json.MarshalIndent(actual, "", "  ")
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(e)),
		B:        difflib.SplitLines(string(a)),
		FromFile: "Journal",
		ToFile:   "Snapshot",
		Context:  1,
	})
	return diff
}
