// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis defines the initial ledger document: the vault
// allocations, the initial reward reserve and the admin address. The
// node applies it exactly once, on first boot of a data directory.
package genesis

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/palisadelabs/palisade/palisade"
)

// Genesis is the initial ledger state. Amount fields travel as JSON
// strings, like everywhere else on the wire.
type Genesis struct {
	Name        string           `json:"name"`
	Allocations []Allocation     `json:"allocations"`
	Reserve     uint64           `json:"reserve,string"`
	Admin       palisade.Address `json:"admin"`
}

// Allocation seeds one vault account.
type Allocation struct {
	Address palisade.Address `json:"address"`
	Balance uint64           `json:"balance,string"`
}

// Parse reads and validates a genesis document.
func Parse(r io.Reader) (*Genesis, error) {
	var gene Genesis
	if err := json.NewDecoder(r).Decode(&gene); err != nil {
		return nil, errors.Wrap(err, "decode genesis")
	}
	if err := gene.Validate(); err != nil {
		return nil, err
	}
	return &gene, nil
}

// Load parses the genesis document at path.
func Load(path string) (*Genesis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open genesis")
	}
	defer f.Close()
	return Parse(f)
}

// Validate checks the document for internal consistency.
func (g *Genesis) Validate() error {
	if g.Name == "" {
		return errors.New("genesis: name must be set")
	}
	if g.Admin.IsZero() {
		return errors.New("genesis: admin address must be set")
	}
	seen := make(map[palisade.Address]bool, len(g.Allocations))
	var total uint64
	for _, alloc := range g.Allocations {
		if alloc.Address.IsZero() {
			return errors.New("genesis: allocation address must be set")
		}
		if alloc.Balance == 0 {
			return errors.Errorf("genesis: %v: balance must be a non-zero integer", alloc.Address)
		}
		if seen[alloc.Address] {
			return errors.Errorf("genesis: %v: duplicate allocation", alloc.Address)
		}
		seen[alloc.Address] = true
		if total+alloc.Balance < total {
			return errors.New("genesis: total allocation overflows")
		}
		total += alloc.Balance
	}
	if g.Reserve > g.balanceOf(g.Admin) {
		return errors.New("genesis: reserve exceeds the admin allocation")
	}
	return nil
}

// ID returns the identity of the document, used to refuse reopening a
// data directory with a different genesis.
func (g *Genesis) ID() palisade.Bytes32 {
	data, err := json.Marshal(g)
	if err != nil {
		// the struct is plain data; this cannot happen
		panic(errors.Wrap(err, "marshal genesis"))
	}
	return palisade.Blake2b(data)
}

func (g *Genesis) balanceOf(addr palisade.Address) uint64 {
	for _, alloc := range g.Allocations {
		if alloc.Address == addr {
			return alloc.Balance
		}
	}
	return 0
}
