// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytes(t *testing.T) {
	c := NewBytes(64 * 1024)

	_, ok := c.Get([]byte("k"))
	assert.False(t, ok)

	c.Set([]byte("k"), []byte("v"))
	got, ok := c.Get([]byte("k"))
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	c.Remove([]byte("k"))
	_, ok = c.Get([]byte("k"))
	assert.False(t, ok)
}

func TestBytes_GetOrLoad(t *testing.T) {
	c := NewBytes(64 * 1024)

	loads := 0
	load := func() ([]byte, error) {
		loads++
		return []byte("loaded"), nil
	}

	v, err := c.GetOrLoad([]byte("k"), load)
	assert.NoError(t, err)
	assert.Equal(t, []byte("loaded"), v)

	v, err = c.GetOrLoad([]byte("k"), load)
	assert.NoError(t, err)
	assert.Equal(t, []byte("loaded"), v)
	assert.Equal(t, 1, loads)

	_, err = c.GetOrLoad([]byte("other"), func() ([]byte, error) {
		return nil, errors.New("load failed")
	})
	assert.Error(t, err)
}

func TestLRU_GetOrLoad(t *testing.T) {
	c, err := NewLRU(8)
	assert.NoError(t, err)

	v, err := c.GetOrLoad("a", func(key interface{}) (interface{}, error) {
		return 1, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, v)

	// loader must not run again on hit
	v, err = c.GetOrLoad("a", func(key interface{}) (interface{}, error) {
		return nil, errors.New("should not be called")
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, v)
}
