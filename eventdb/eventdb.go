// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb is the append-only audit journal of the pool. Every
// state transition lands here as one row; the journal is authoritative
// for history, the ledger snapshot for the present.
package eventdb

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/palisadelabs/palisade/palisade"
	"github.com/palisadelabs/palisade/staking"
)

// EventDB manages the journal.
type EventDB struct {
	path          string
	db            *sql.DB
	stmts         *stmtCache
	driverVersion string
}

// New creates or opens the journal at the given path.
func New(path string) (eventDB *EventDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	defer func() {
		if eventDB == nil {
			db.Close()
		}
	}()
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, errors.Wrap(err, "create journal schema")
	}

	driverVer, _, _ := sqlite3.Version()
	return &EventDB{
		path:          path,
		db:            db,
		stmts:         newStmtCache(db),
		driverVersion: driverVer,
	}, nil
}

// NewMem creates the journal in ram.
func NewMem() (*EventDB, error) {
	db, err := New(":memory:")
	if err != nil {
		return nil, err
	}
	// a second pool connection would see its own empty memory db
	db.db.SetMaxOpenConns(1)
	return db, nil
}

// Log appends events as one transaction and returns them with their
// assigned sequence numbers.
func (db *EventDB) Log(events []staking.Event) ([]*StoredEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}
	insert, err := db.stmts.Prepare(insertEventQuery)
	if err != nil {
		return nil, err
	}

	tx, err := db.db.Begin()
	if err != nil {
		return nil, err
	}
	stored := make([]*StoredEvent, 0, len(events))
	for _, ev := range events {
		res, err := tx.Stmt(insert).Exec(
			ev.Time,
			string(ev.Type),
			idValue(ev.ID),
			ev.Owner.Bytes(),
			strconv.FormatUint(ev.Amount, 10),
			ev.Duration,
			ev.RateBps,
			ev.AutoCompound,
			strconv.FormatUint(ev.NewAmount, 10),
		)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		seq, err := res.LastInsertId()
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		stored = append(stored, &StoredEvent{Event: ev, Seq: uint64(seq)})
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

// Filter returns journal rows matching the filter, nil matching all.
func (db *EventDB) Filter(ctx context.Context, filter *Filter) ([]*StoredEvent, error) {
	if filter == nil {
		return db.query(ctx, "SELECT * FROM event")
	}
	var args []interface{}
	stmt := "SELECT * FROM event WHERE 1"
	if filter.AfterSeq > 0 {
		args = append(args, filter.AfterSeq)
		stmt += " AND seq > ? "
	}
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND eventTime >= ? "
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND eventTime <= ? "
		}
	}
	if filter.StakeID != nil {
		args = append(args, filter.StakeID.Bytes())
		stmt += " AND stakeID = ? "
	}
	if filter.Owner != nil {
		args = append(args, filter.Owner.Bytes())
		stmt += " AND owner = ? "
	}
	if len(filter.Types) > 0 {
		stmt += " AND eventType IN (?" + strings.Repeat(",?", len(filter.Types)-1) + ") "
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}

	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC "
	} else {
		stmt += " ORDER BY seq ASC "
	}

	if filter.Options != nil {
		stmt += " limit ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.query(ctx, stmt, args...)
}

// MaxSeq returns the newest assigned sequence, 0 on an empty journal.
func (db *EventDB) MaxSeq(ctx context.Context) (uint64, error) {
	row := db.db.QueryRowContext(ctx, "SELECT IFNULL(MAX(seq), 0) FROM event")
	var seq uint64
	if err := row.Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func (db *EventDB) query(ctx context.Context, stmt string, args ...interface{}) ([]*StoredEvent, error) {
	prepared, err := db.stmts.Prepare(stmt)
	if err != nil {
		return nil, err
	}
	rows, err := prepared.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*StoredEvent
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			seq          uint64
			eventTime    uint64
			eventType    string
			stakeID      []byte
			owner        []byte
			amount       string
			duration     uint64
			rateBps      uint64
			autoCompound bool
			newAmount    string
		)
		if err := rows.Scan(
			&seq,
			&eventTime,
			&eventType,
			&stakeID,
			&owner,
			&amount,
			&duration,
			&rateBps,
			&autoCompound,
			&newAmount,
		); err != nil {
			return nil, err
		}
		ev := &StoredEvent{
			Event: staking.Event{
				Type:         staking.EventType(eventType),
				Time:         eventTime,
				ID:           palisade.BytesToBytes32(stakeID),
				Owner:        palisade.BytesToAddress(owner),
				Duration:     duration,
				RateBps:      rateBps,
				AutoCompound: autoCompound,
			},
			Seq: seq,
		}
		if ev.Event.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
			return nil, errors.Wrap(err, "parse stored amount")
		}
		if ev.Event.NewAmount, err = strconv.ParseUint(newAmount, 10, 64); err != nil {
			return nil, errors.Wrap(err, "parse stored amount")
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Path returns the journal's location.
func (db *EventDB) Path() string {
	return db.path
}

// DriverVersion returns the sqlite driver version.
func (db *EventDB) DriverVersion() string {
	return db.driverVersion
}

// Close closes the journal.
func (db *EventDB) Close() {
	db.stmts.Clear()
	db.db.Close()
}

func idValue(id palisade.Bytes32) []byte {
	if id.IsZero() {
		return nil
	}
	return id.Bytes()
}
