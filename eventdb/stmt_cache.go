// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"database/sql"
	"sync"
)

// stmtCache maps query strings to prepared statements.
type stmtCache struct {
	db *sql.DB
	m  sync.Map
}

func newStmtCache(db *sql.DB) *stmtCache {
	return &stmtCache{db: db}
}

func (c *stmtCache) Prepare(query string) (*sql.Stmt, error) {
	if cached, ok := c.m.Load(query); ok {
		return cached.(*sql.Stmt), nil
	}
	stmt, err := c.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	// on a lost race, keep the winner and close ours
	if actual, loaded := c.m.LoadOrStore(query, stmt); loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

func (c *stmtCache) Clear() {
	c.m.Range(func(k, v any) bool {
		_ = v.(*sql.Stmt).Close()
		c.m.Delete(k)
		return true
	})
}
