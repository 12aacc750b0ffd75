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

// Package config holds the relayer's runtime configuration and its TOML
// file loader. Flags and environment variables layer on top in cmd/relayd.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"

	"github.com/poolbridge/relayd/chain"
	"github.com/poolbridge/relayd/relay"
)

// Config is the full runtime configuration.
type Config struct {
	// Chain endpoints. HTTPS JSON-RPC; websocket URLs are derived.
	L1RPCURL string
	L2RPCURL string

	// Bridge contract addresses, hex.
	L1Bridge string
	L2Bridge string

	// OwnerPrivateKey signs relay authorizations and transactions. Hex,
	// with or without 0x. Required.
	OwnerPrivateKey string

	// MongoURI selects the persistent store. Empty falls back to the
	// in-memory store.
	MongoURI      string
	MongoDatabase string

	// APIAddr is the listen address of the JSON API.
	APIAddr string

	HealthInterval   time.Duration
	ReconnectBase    time.Duration
	MaxReconnect     int
	BackfillInterval time.Duration
	BackfillWindow   uint64
	GasLimit         uint64
}

// Defaults returns the configuration used when nothing else is given.
func Defaults() Config {
	return Config{
		L1RPCURL:         "http://127.0.0.1:8545",
		L2RPCURL:         "http://127.0.0.1:9545",
		MongoDatabase:    "relayd",
		APIAddr:          ":8080",
		HealthInterval:   relay.DefaultHealthInterval,
		ReconnectBase:    relay.DefaultReconnectBase,
		MaxReconnect:     relay.DefaultMaxReconnect,
		BackfillInterval: relay.DefaultBackfillInterval,
		BackfillWindow:   relay.DefaultBackfillWindow,
		GasLimit:         chain.DefaultGasLimit,
	}
}

// Validate checks the fields no default can supply.
func (c *Config) Validate() error {
	if c.OwnerPrivateKey == "" {
		return errors.New("config: owner private key is required")
	}
	if !common.IsHexAddress(c.L1Bridge) {
		return fmt.Errorf("config: invalid L1 bridge address %q", c.L1Bridge)
	}
	if !common.IsHexAddress(c.L2Bridge) {
		return fmt.Errorf("config: invalid L2 bridge address %q", c.L2Bridge)
	}
	return nil
}

// tomlSettings keeps field names verbatim and rejects unknown keys, so a
// typo in the file fails loudly instead of silently using a default.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Load reads a TOML file over cfg. Fields absent from the file keep their
// current values.
func Load(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	var lineErr *toml.LineError
	if errors.As(err, &lineErr) {
		err = fmt.Errorf("%s, %w", path, err)
	}
	return err
}
