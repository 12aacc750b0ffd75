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

package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexByKey(t *testing.T, key string) *options.IndexOptions {
	t.Helper()
	for _, m := range indexModels() {
		keys, ok := m.Keys.(bson.D)
		require.True(t, ok)
		if len(keys) == 1 && keys[0].Key == key {
			if m.Options == nil {
				return options.Index()
			}
			return m.Options
		}
	}
	require.FailNow(t, "no index declared on "+key)
	return nil
}

func boolOpt(p *bool) bool { return p != nil && *p }

func TestIndexModels(t *testing.T) {
	id := indexByKey(t, "id")
	require.True(t, boolOpt(id.Unique))

	// The hash indexes back the at-most-once guarantee across processes:
	// unique so a second insert of the same hash fails, sparse so records
	// without the optional field stay out of the constraint.
	for _, key := range []string{"eventHash", "relayHash"} {
		opts := indexByKey(t, key)
		require.True(t, boolOpt(opts.Unique), "%s must be unique", key)
		require.True(t, boolOpt(opts.Sparse), "%s must be sparse", key)
	}

	for _, key := range []string{"sourceToken", "destToken"} {
		opts := indexByKey(t, key)
		require.False(t, boolOpt(opts.Unique), "%s is a plain lookup index", key)
		require.True(t, boolOpt(opts.Sparse))
	}

	for _, key := range []string{"user", "chain", "status"} {
		opts := indexByKey(t, key)
		require.False(t, boolOpt(opts.Unique))
		require.False(t, boolOpt(opts.Sparse))
	}
}
