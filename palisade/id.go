// Copyright (c) 2025 The Palisade developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package palisade

import "encoding/binary"

// NewStakeID derives the identifier of the stake position minted by owner
// at pool sequence seq. The sequence is unique per pool, so the id is too.
func NewStakeID(owner Address, seq uint64) Bytes32 {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], seq)
	return Blake2b([]byte("stake"), owner.Bytes(), n[:])
}
