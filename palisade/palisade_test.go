// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package palisade

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	assert.NoError(t, err)
	assert.Equal(t, "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", addr.String())

	// without prefix
	addr2, err := ParseAddress("7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	assert.NoError(t, err)
	assert.Equal(t, addr, addr2)

	_, err = ParseAddress("0x7567d83b")
	assert.Error(t, err)

	_, err = ParseAddress("zz67d83b7b8d80addcb281a71d54fc7b3364ffed")
	assert.Error(t, err)

	assert.True(t, Address{}.IsZero())
	assert.False(t, addr.IsZero())
}

func TestAddressJSON(t *testing.T) {
	raw := `"0x7567d83b7b8d80addcb281a71d54fc7b3364ffed"`

	var addr Address
	assert.NoError(t, json.Unmarshal([]byte(raw), &addr))

	data, err := json.Marshal(&addr)
	assert.NoError(t, err)
	assert.Equal(t, raw, string(data))
}

func TestParseBytes32(t *testing.T) {
	raw := "0x00000000000000000000000000000000000000000000000000006d6173746572"

	b32, err := ParseBytes32(raw)
	assert.NoError(t, err)
	assert.Equal(t, raw, b32.String())

	_, err = ParseBytes32("0xdeadbeef")
	assert.Error(t, err)

	data, err := json.Marshal(&b32)
	assert.NoError(t, err)
	assert.Equal(t, `"`+raw+`"`, string(data))

	var back Bytes32
	assert.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, b32, back)
}

func TestBlake2b(t *testing.T) {
	// concatenation must hash the same whichever way it is split
	assert.Equal(t, Blake2b([]byte("hello world")), Blake2b([]byte("hello"), []byte(" world")))
	assert.NotEqual(t, Blake2b([]byte("a")), Blake2b([]byte("b")))
}

func TestNewStakeID(t *testing.T) {
	owner := BytesToAddress([]byte("owner"))
	other := BytesToAddress([]byte("other"))

	assert.Equal(t, NewStakeID(owner, 1), NewStakeID(owner, 1))
	assert.NotEqual(t, NewStakeID(owner, 1), NewStakeID(owner, 2))
	assert.NotEqual(t, NewStakeID(owner, 1), NewStakeID(other, 1))
	assert.False(t, NewStakeID(owner, 0).IsZero())
}
