// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palisadelabs/palisade/genesis"
	"github.com/palisadelabs/palisade/palisade"
)

const doc = `{
	"name": "testnet",
	"allocations": [
		{"address": "0x0000000000000000000000000000000000000001", "balance": "1000000"},
		{"address": "0x0000000000000000000000000000000000000002", "balance": "500000"}
	],
	"reserve": "250000",
	"admin": "0x0000000000000000000000000000000000000001"
}`

func TestParse(t *testing.T) {
	gene, err := genesis.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "testnet", gene.Name)
	require.Len(t, gene.Allocations, 2)
	assert.Equal(t, palisade.MustParseAddress("0x0000000000000000000000000000000000000001"), gene.Allocations[0].Address)
	assert.Equal(t, uint64(1_000_000), gene.Allocations[0].Balance)
	assert.Equal(t, uint64(250_000), gene.Reserve)
	assert.Equal(t, gene.Allocations[0].Address, gene.Admin)
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{"bad json", `{`, "decode genesis"},
		{"missing name", `{"admin": "0x0000000000000000000000000000000000000001"}`, "name must be set"},
		{"missing admin", `{"name": "x"}`, "admin address must be set"},
		{
			"zero balance",
			`{"name": "x", "admin": "0x0000000000000000000000000000000000000001",
			  "allocations": [{"address": "0x0000000000000000000000000000000000000001", "balance": "0"}]}`,
			"balance must be a non-zero integer",
		},
		{
			"duplicate allocation",
			`{"name": "x", "admin": "0x0000000000000000000000000000000000000001",
			  "allocations": [
				{"address": "0x0000000000000000000000000000000000000001", "balance": "1"},
				{"address": "0x0000000000000000000000000000000000000001", "balance": "2"}]}`,
			"duplicate allocation",
		},
		{
			"unfundable reserve",
			`{"name": "x", "admin": "0x0000000000000000000000000000000000000001", "reserve": "10",
			  "allocations": [{"address": "0x0000000000000000000000000000000000000001", "balance": "9"}]}`,
			"reserve exceeds the admin allocation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := genesis.Parse(strings.NewReader(tt.doc))
			assert.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestID(t *testing.T) {
	gene, err := genesis.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	id := gene.ID()
	assert.False(t, id.IsZero())
	assert.Equal(t, id, gene.ID(), "the id must be deterministic")

	other := *gene
	other.Reserve++
	assert.NotEqual(t, id, other.ID())
}

func TestDevAccounts(t *testing.T) {
	accs := genesis.DevAccounts()
	require.Len(t, accs, 10)

	seen := make(map[palisade.Address]bool)
	for _, acc := range accs {
		assert.False(t, acc.Address.IsZero())
		assert.NotNil(t, acc.PrivateKey)
		assert.False(t, seen[acc.Address], "dev addresses must be distinct")
		seen[acc.Address] = true
	}
}

func TestNewDevnet(t *testing.T) {
	gene := genesis.NewDevnet()
	require.NoError(t, gene.Validate())

	assert.Equal(t, "devnet", gene.Name)
	assert.Len(t, gene.Allocations, 10)
	assert.Equal(t, genesis.DevAccounts()[0].Address, gene.Admin)
	assert.NotZero(t, gene.Reserve)
}
