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

// relayd watches the bridge contracts on both chains and relays user
// intents across: L1 buys become executeBuy calls on L2, L2 sells become
// withdraw calls on L1.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/poolbridge/relayd/api"
	"github.com/poolbridge/relayd/bridge"
	"github.com/poolbridge/relayd/chain"
	"github.com/poolbridge/relayd/config"
	"github.com/poolbridge/relayd/relay"
	"github.com/poolbridge/relayd/signer"
	"github.com/poolbridge/relayd/store"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	l1RPCFlag = &cli.StringFlag{
		Name:    "l1.rpc",
		Usage:   "L1 JSON-RPC endpoint (websocket URL is derived)",
		EnvVars: []string{"L1_RPC_URL"},
	}
	l2RPCFlag = &cli.StringFlag{
		Name:    "l2.rpc",
		Usage:   "L2 JSON-RPC endpoint (websocket URL is derived)",
		EnvVars: []string{"L2_RPC_URL"},
	}
	l1BridgeFlag = &cli.StringFlag{
		Name:    "l1.bridge",
		Usage:   "L1 bridge contract address",
		EnvVars: []string{"L1_BRIDGE_ADDRESS"},
	}
	l2BridgeFlag = &cli.StringFlag{
		Name:    "l2.bridge",
		Usage:   "L2 bridge contract address",
		EnvVars: []string{"L2_BRIDGE_ADDRESS"},
	}
	keyFlag = &cli.StringFlag{
		Name:    "key",
		Usage:   "operator private key, hex",
		EnvVars: []string{"OWNER_PRIVATE_KEY"},
	}
	mongoURIFlag = &cli.StringFlag{
		Name:    "mongo.uri",
		Usage:   "MongoDB connection URI (empty: volatile in-memory store)",
		EnvVars: []string{"MONGO_URI"},
	}
	mongoDBFlag = &cli.StringFlag{
		Name:    "mongo.db",
		Usage:   "MongoDB database name",
		EnvVars: []string{"MONGO_DATABASE"},
	}
	apiAddrFlag = &cli.StringFlag{
		Name:    "api.addr",
		Usage:   "JSON API listen address",
		EnvVars: []string{"API_ADDR"},
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "log verbosity: 0=crit .. 5=trace",
		Value: 3,
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "also write logs to this file, rotated at 100MB",
	}
	metricsFlag = &cli.BoolFlag{
		Name:  "metrics",
		Usage: "enable metrics collection",
	}
)

func main() {
	app := &cli.App{
		Name:   "relayd",
		Usage:  "cross-chain bridge relayer",
		Action: run,
		Flags: []cli.Flag{
			configFlag,
			l1RPCFlag, l2RPCFlag,
			l1BridgeFlag, l2BridgeFlag,
			keyFlag,
			mongoURIFlag, mongoDBFlag,
			apiAddrFlag,
			verbosityFlag, logFileFlag, metricsFlag,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(ctx *cli.Context) {
	var output io.Writer = os.Stderr
	if path := ctx.String(logFileFlag.Name); path != "" {
		output = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100, // MB
			MaxBackups: 3,
		})
	}
	handler := log.LvlFilterHandler(
		log.Lvl(ctx.Int(verbosityFlag.Name)),
		log.StreamHandler(output, log.TerminalFormat(false)),
	)
	log.Root().SetHandler(handler)
}

func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := ctx.String(configFlag.Name); path != "" {
		if err := config.Load(path, &cfg); err != nil {
			return cfg, fmt.Errorf("loading config: %w", err)
		}
	}
	// Flags and environment win over the file.
	if ctx.IsSet(l1RPCFlag.Name) {
		cfg.L1RPCURL = ctx.String(l1RPCFlag.Name)
	}
	if ctx.IsSet(l2RPCFlag.Name) {
		cfg.L2RPCURL = ctx.String(l2RPCFlag.Name)
	}
	if ctx.IsSet(l1BridgeFlag.Name) {
		cfg.L1Bridge = ctx.String(l1BridgeFlag.Name)
	}
	if ctx.IsSet(l2BridgeFlag.Name) {
		cfg.L2Bridge = ctx.String(l2BridgeFlag.Name)
	}
	if ctx.IsSet(keyFlag.Name) {
		cfg.OwnerPrivateKey = ctx.String(keyFlag.Name)
	}
	if ctx.IsSet(mongoURIFlag.Name) {
		cfg.MongoURI = ctx.String(mongoURIFlag.Name)
	}
	if ctx.IsSet(mongoDBFlag.Name) {
		cfg.MongoDatabase = ctx.String(mongoDBFlag.Name)
	}
	if ctx.IsSet(apiAddrFlag.Name) {
		cfg.APIAddr = ctx.String(apiAddrFlag.Name)
	}
	return cfg, cfg.Validate()
}

func openStore(ctx context.Context, cfg config.Config) (store.TxStore, func(), error) {
	if cfg.MongoURI == "" {
		log.Warn("No MongoDB URI configured, relay records will not survive restarts")
		return store.NewMemStore(), func() {}, nil
	}
	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	ms, err := store.NewMongoStore(connCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, nil, err
	}
	if err := ms.EnsureIndexes(connCtx); err != nil {
		return nil, nil, err
	}
	closer := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ms.Close(closeCtx); err != nil {
			log.Error("Closing store failed", "err", err)
		}
	}
	log.Info("Connected to MongoDB", "database", cfg.MongoDatabase)
	return ms, closer, nil
}

func run(cliCtx *cli.Context) error {
	setupLogging(cliCtx)

	cfg, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.OwnerPrivateKey, "0x"))
	if err != nil {
		return fmt.Errorf("parsing operator key: %w", err)
	}
	operator := signer.FromKey(key)
	log.Info("Operator loaded", "address", operator.Address())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Seed the dedup gate so a restart does not re-relay persisted events.
	dedup := relay.NewDedupIndex()
	if recs, err := st.ListAll(ctx, 0); err != nil {
		log.Warn("Could not seed dedup index from store", "err", err)
	} else {
		dedup.Seed(recs)
		log.Info("Dedup index seeded", "hashes", dedup.Size())
	}

	l1 := chain.NewClient(chain.Config{
		Name:     "L1",
		RPCURL:   cfg.L1RPCURL,
		Bridge:   common.HexToAddress(cfg.L1Bridge),
		ABI:      bridge.L1ABI,
		Key:      key,
		GasLimit: cfg.GasLimit,
	})
	l2 := chain.NewClient(chain.Config{
		Name:     "L2",
		RPCURL:   cfg.L2RPCURL,
		Bridge:   common.HexToAddress(cfg.L2Bridge),
		ABI:      bridge.L2ABI,
		Key:      key,
		GasLimit: cfg.GasLimit,
	})

	relayer := relay.NewRelayer(l1, l2, operator, st, dedup)
	buyIngestor := relay.NewIngestor("L1", store.KindBuy, dedup, st, relayer)
	sellIngestor := relay.NewIngestor("L2", store.KindSell, dedup, st, relayer)

	supCfg := relay.SupervisorConfig{
		HealthInterval: cfg.HealthInterval,
		ReconnectBase:  cfg.ReconnectBase,
		MaxReconnect:   cfg.MaxReconnect,
	}
	supL1 := relay.NewSupervisor(l1, buyIngestor, bridge.EventAssetsBuy, supCfg)
	supL2 := relay.NewSupervisor(l2, sellIngestor, bridge.EventAssetsSold, supCfg)
	supL1.Start(ctx)
	supL2.Start(ctx)

	bfL1 := relay.NewBackfiller(l1, buyIngestor, bridge.EventAssetsBuy, cfg.BackfillInterval, cfg.BackfillWindow)
	bfL2 := relay.NewBackfiller(l2, sellIngestor, bridge.EventAssetsSold, cfg.BackfillInterval, cfg.BackfillWindow)
	bfL1.Start(ctx)
	bfL2.Start(ctx)

	srv := api.NewServer(st)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(cfg.APIAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		bfL1.Stop()
		bfL2.Stop()
		supL1.Stop()
		supL2.Stop()
		buyIngestor.Wait()
		sellIngestor.Wait()

		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shCtx)
	})
	return g.Wait()
}
