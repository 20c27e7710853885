// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

// One wide row per pool event. Fields a type does not use stay at their
// zero value; stakeID is null for reserve funding events.
const eventTableSchema = `
create table if not exists event (
	seq integer primary key autoincrement,
	eventTime integer not null,
	eventType text not null,
	stakeID blob(32),
	owner blob(20) not null,
	amount text not null,
	duration integer not null,
	rateBps integer not null,
	autoCompound integer not null,
	newAmount text not null
);

CREATE INDEX if not exists eventTimeIndex on event(eventTime);
CREATE INDEX if not exists stakeIDIndex on event(stakeID);
CREATE INDEX if not exists ownerIndex on event(owner);
CREATE INDEX if not exists eventTypeIndex on event(eventType);
`

const insertEventQuery = `INSERT INTO event(eventTime, eventType, stakeID, owner, amount, duration, rateBps, autoCompound, newAmount) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
