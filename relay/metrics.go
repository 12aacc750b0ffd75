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

import "github.com/ethereum/go-ethereum/metrics"

var (
	ingestedCounter     = metrics.NewRegisteredCounter("relay/ingested", nil)
	deduplicatedCounter = metrics.NewRegisteredCounter("relay/deduplicated", nil)
	droppedCounter      = metrics.NewRegisteredCounter("relay/dropped", nil)
	submittedCounter    = metrics.NewRegisteredCounter("relay/submitted", nil)
	confirmedCounter    = metrics.NewRegisteredCounter("relay/confirmed", nil)
	failedCounter       = metrics.NewRegisteredCounter("relay/failed", nil)
	reconnectCounter    = metrics.NewRegisteredCounter("relay/reconnects", nil)
	backfillCounter     = metrics.NewRegisteredCounter("relay/backfill", nil)
)
