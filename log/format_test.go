// Copyright 2017 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package log

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

var sink []byte

func BenchmarkPrettyInt64Logfmt(b *testing.B) {
	buf := make([]byte, 100)
	b.ReportAllocs()
	for b.Loop() {
		sink = appendInt64(buf, rand.Int64()) //#nosec G404
	}
}

func BenchmarkPrettyUint64Logfmt(b *testing.B) {
	buf := make([]byte, 100)
	b.ReportAllocs()
	for b.Loop() {
		sink = appendUint64(buf, rand.Uint64(), false) //#nosec G404
	}
}

func TestPrettyUint64(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{0, "0"},
		{99999, "99999"},
		{100000, "100,000"},
		{1234567890, "1,234,567,890"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatLogfmtUint64(tt.n))
	}
}

func TestEscapeMessage(t *testing.T) {
	assert.Equal(t, "plain text", escapeMessage("plain text"))
	assert.Equal(t, "line1\nline2", escapeMessage("line1\nline2"))
	assert.Equal(t, `"a=b"`, escapeMessage("a=b"))
}
