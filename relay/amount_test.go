// Copyright 2024 The poolbridge Authors
// This file is part of relayd.
//
// relayd is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// relayd is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with relayd. If not, see <http://www.gnu.org/licenses/>.

package relay

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func bigFromString(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return v
}

func TestNormalizeTo18(t *testing.T) {
	tests := []struct {
		raw      string
		decimals uint8
		want     string
	}{
		{"1000000", 6, "1000000000000000000"},          // USDC-style 6 decimals
		{"1000000000000000000", 18, "1000000000000000000"}, // identity
		{"5", 0, "5000000000000000000"},
		{"1234500000000000000001", 21, "1234500000000000000"}, // >18 truncates
		{"0", 6, "0"},
	}
	for _, tt := range tests {
		got := NormalizeTo18(bigFromString(t, tt.raw), tt.decimals)
		require.Equal(t, tt.want, got.String(), "raw=%s decimals=%d", tt.raw, tt.decimals)
	}
}

func TestNormalizeTo18DoesNotMutateInput(t *testing.T) {
	raw := big.NewInt(1_000_000)
	_ = NormalizeTo18(raw, 6)
	require.EqualValues(t, 1_000_000, raw.Int64())
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		raw      string
		decimals uint8
		want     string
	}{
		{"1000000000000000000", 18, "1"},
		{"1500000000000000000", 18, "1.5"},
		{"1", 18, "0.000000000000000001"},
		{"123456", 6, "0.123456"},
		{"0", 18, "0"},
		{"42", 0, "42"},
	}
	for _, tt := range tests {
		got := FormatUnits(bigFromString(t, tt.raw), tt.decimals)
		require.Equal(t, tt.want, got, "raw=%s decimals=%d", tt.raw, tt.decimals)
	}
}
