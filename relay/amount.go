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
	"strings"
)

// NormalizeTo18 rescales a raw token amount from its native decimals to the
// 18-decimal representation the destination contracts expect. Scaling up is
// exact; the rare token with more than 18 decimals is truncated.
func NormalizeTo18(raw *big.Int, decimals uint8) *big.Int {
	if decimals == 18 {
		return new(big.Int).Set(raw)
	}
	if decimals < 18 {
		return new(big.Int).Mul(raw, pow10(18-int(decimals)))
	}
	return new(big.Int).Quo(raw, pow10(int(decimals)-18))
}

// FormatUnits renders a raw amount as a decimal string in whole-token units,
// trimming trailing zeros. FormatUnits(1500000000000000000, 18) == "1.5".
func FormatUnits(raw *big.Int, decimals uint8) string {
	if decimals == 0 {
		return raw.String()
	}
	q, r := new(big.Int).QuoRem(raw, pow10(int(decimals)), new(big.Int))
	neg := r.Sign() < 0
	r.Abs(r)
	if r.Sign() == 0 {
		return q.String()
	}
	frac := strings.TrimRight(leftPadZeros(r.String(), int(decimals)), "0")
	out := q.String() + "." + frac
	if neg && q.Sign() == 0 {
		out = "-" + out
	}
	return out
}

func leftPadZeros(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
