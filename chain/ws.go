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

package chain

import "strings"

// WebsocketURL derives the streaming endpoint from an HTTP(S) JSON-RPC URL.
// The scheme is rewritten https->wss (http->ws) and provider-style /v3 paths
// become /ws/v3. URLs that already speak websocket pass through unchanged.
func WebsocketURL(rawurl string) string {
	switch {
	case strings.HasPrefix(rawurl, "wss://"), strings.HasPrefix(rawurl, "ws://"):
		return rawurl
	case strings.HasPrefix(rawurl, "https://"):
		rawurl = "wss://" + strings.TrimPrefix(rawurl, "https://")
	case strings.HasPrefix(rawurl, "http://"):
		rawurl = "ws://" + strings.TrimPrefix(rawurl, "http://")
	}
	if strings.Contains(rawurl, "/v3/") {
		rawurl = strings.Replace(rawurl, "/v3/", "/ws/v3/", 1)
	} else if strings.HasSuffix(rawurl, "/v3") {
		rawurl = strings.TrimSuffix(rawurl, "/v3") + "/ws/v3"
	}
	return rawurl
}
