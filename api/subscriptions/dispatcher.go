// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"sync"

	"github.com/palisadelabs/palisade/eventdb"
)

// dispatcher fans committed journal rows out to subscriber queues.
type dispatcher struct {
	mu        sync.RWMutex
	listeners map[chan *eventdb.StoredEvent]struct{}
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		listeners: make(map[chan *eventdb.StoredEvent]struct{}),
	}
}

func (d *dispatcher) subscribe(ch chan *eventdb.StoredEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listeners[ch] = struct{}{}
}

func (d *dispatcher) unsubscribe(ch chan *eventdb.StoredEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.listeners, ch)
}

func (d *dispatcher) publish(rows []*eventdb.StoredEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for lsn := range d.listeners {
		for _, row := range rows {
			select {
			case lsn <- row:
			default:
				// fanout never blocks; a subscriber with a full queue
				// misses rows here and detects the seq gap on its end
			}
		}
	}
}
