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

// Package chain implements the per-chain client: an HTTP ethclient for reads,
// sends and receipt waits, a derived websocket ethclient for subscriptions,
// and a bound bridge contract on top of both.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/poolbridge/relayd/bridge"
)

// DefaultGasLimit is the fixed gas limit attached to every relay submission.
const DefaultGasLimit = 500_000

// Config describes one chain endpoint and its bridge contract.
type Config struct {
	Name     string         // chain tag, "L1" or "L2"
	RPCURL   string         // HTTPS JSON-RPC endpoint; the websocket URL is derived
	Bridge   common.Address // bridge contract address
	ABI      abi.ABI        // bridge contract interface
	Key      *ecdsa.PrivateKey
	GasLimit uint64 // 0 means DefaultGasLimit
}

// Client is the relayer's view of a single chain.
type Client struct {
	cfg   Config
	wsURL string
	log   log.Logger

	mu       sync.RWMutex
	eth      *ethclient.Client // HTTP: reads, sends, receipts
	ws       *ethclient.Client // websocket: subscriptions and liveness probe
	contract *bind.BoundContract
	chainID  *big.Int
}

// NewClient prepares a client. No connection is made until Dial.
func NewClient(cfg Config) *Client {
	if cfg.GasLimit == 0 {
		cfg.GasLimit = DefaultGasLimit
	}
	return &Client{
		cfg:   cfg,
		wsURL: WebsocketURL(cfg.RPCURL),
		log:   log.New("chain", cfg.Name),
	}
}

// Name returns the chain tag this client was configured with.
func (c *Client) Name() string { return c.cfg.Name }

// Dial connects both transports and binds the bridge contract.
func (c *Client) Dial(ctx context.Context) error {
	eth, err := ethclient.DialContext(ctx, c.cfg.RPCURL)
	if err != nil {
		return &ConnectionError{Op: "dial " + c.cfg.RPCURL, Err: err}
	}
	ws, err := ethclient.DialContext(ctx, c.wsURL)
	if err != nil {
		eth.Close()
		return &ConnectionError{Op: "dial " + c.wsURL, Err: err}
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		ws.Close()
		return classify("eth_chainId", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.eth = eth
	c.ws = ws
	c.chainID = chainID
	c.contract = bind.NewBoundContract(c.cfg.Bridge, c.cfg.ABI, eth, eth, eth)
	c.log.Info("Connected to chain", "rpc", c.cfg.RPCURL, "ws", c.wsURL, "chainid", chainID)
	return nil
}

// Reconnect replaces the websocket transport. The HTTP transport is
// stateless per request and is kept.
func (c *Client) Reconnect(ctx context.Context) error {
	ws, err := ethclient.DialContext(ctx, c.wsURL)
	if err != nil {
		return &ConnectionError{Op: "redial " + c.wsURL, Err: err}
	}
	c.mu.Lock()
	old := c.ws
	c.ws = ws
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}
	c.log.Info("Websocket transport replaced", "ws", c.wsURL)
	return nil
}

// Close tears down both transports. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
}

func (c *Client) wsClient() *ethclient.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ws
}

func (c *Client) httpClient() *ethclient.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.eth
}

// BlockNumber probes the streaming transport. Used as the liveness check.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	ws := c.wsClient()
	if ws == nil {
		return 0, &ConnectionError{Op: "eth_blockNumber", Err: fmt.Errorf("not connected")}
	}
	n, err := ws.BlockNumber(ctx)
	if err != nil {
		return 0, classify("eth_blockNumber", err)
	}
	return n, nil
}

// ChainID returns the endpoint's current chain id.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	ws := c.wsClient()
	if ws == nil {
		return nil, &ConnectionError{Op: "eth_chainId", Err: fmt.Errorf("not connected")}
	}
	id, err := ws.ChainID(ctx)
	if err != nil {
		return nil, classify("eth_chainId", err)
	}
	return id, nil
}

// SubscribeEvent streams bridge logs for the named event into sink.
func (c *Client) SubscribeEvent(ctx context.Context, name string, sink chan<- types.Log) (event.Subscription, error) {
	ev, ok := c.cfg.ABI.Events[name]
	if !ok {
		return nil, fmt.Errorf("chain: unknown event %q", name)
	}
	ws := c.wsClient()
	if ws == nil {
		return nil, &ConnectionError{Op: "subscribe " + name, Err: fmt.Errorf("not connected")}
	}
	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.cfg.Bridge},
		Topics:    [][]common.Hash{{ev.ID}},
	}
	sub, err := ws.SubscribeFilterLogs(ctx, query, sink)
	if err != nil {
		return nil, classify("eth_subscribe "+name, err)
	}
	return sub, nil
}

// FilterEvent queries historical bridge logs for the named event.
func (c *Client) FilterEvent(ctx context.Context, name string, fromBlock, toBlock uint64) ([]types.Log, error) {
	ev, ok := c.cfg.ABI.Events[name]
	if !ok {
		return nil, fmt.Errorf("chain: unknown event %q", name)
	}
	eth := c.httpClient()
	if eth == nil {
		return nil, &ConnectionError{Op: "eth_getLogs", Err: fmt.Errorf("not connected")}
	}
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.cfg.Bridge},
		Topics:    [][]common.Hash{{ev.ID}},
	}
	logs, err := eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, classify("eth_getLogs "+name, err)
	}
	return logs, nil
}

// callRead performs a constant call on the bridge contract.
func (c *Client) callRead(ctx context.Context, method string, out *[]interface{}, args ...interface{}) error {
	c.mu.RLock()
	contract := c.contract
	c.mu.RUnlock()
	if contract == nil {
		return &ConnectionError{Op: method, Err: fmt.Errorf("not connected")}
	}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, out, method, args...); err != nil {
		return classify(method, err)
	}
	return nil
}

// DomainSeparator reads the bridge's EIP-712 domain separator.
func (c *Client) DomainSeparator(ctx context.Context) ([32]byte, error) {
	var out []interface{}
	if err := c.callRead(ctx, "DOMAIN_SEPARATOR", &out); err != nil {
		return [32]byte{}, err
	}
	return *abi.ConvertType(out[0], new([32]byte)).(*[32]byte), nil
}

// UsedNonces reads the last consumed relay nonce for a user.
func (c *Client) UsedNonces(ctx context.Context, user common.Address) (*big.Int, error) {
	var out []interface{}
	if err := c.callRead(ctx, "usedNonces", &out, user); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// UserLpShare reads a user's LP share of an asset. L1 bridge only.
func (c *Client) UserLpShare(ctx context.Context, user, asset common.Address) (*big.Int, error) {
	var out []interface{}
	if err := c.callRead(ctx, "getUserLpShare", &out, user, asset); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// TokenDecimals reads decimals() on an ERC-20 token of this chain.
func (c *Client) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	eth := c.httpClient()
	if eth == nil {
		return 0, &ConnectionError{Op: "decimals", Err: fmt.Errorf("not connected")}
	}
	erc20 := bind.NewBoundContract(token, bridge.ERC20ABI, eth, eth, eth)
	var out []interface{}
	if err := erc20.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return 0, classify("decimals", err)
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// transactOpts builds per-send options with the fixed relay gas limit.
// The account nonce is left nil so bind resolves the pending nonce.
func (c *Client) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	c.mu.RLock()
	chainID := c.chainID
	c.mu.RUnlock()
	if chainID == nil {
		return nil, &ConnectionError{Op: "transact", Err: fmt.Errorf("not connected")}
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.cfg.Key, chainID)
	if err != nil {
		return nil, fmt.Errorf("building transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = c.cfg.GasLimit
	return opts, nil
}

func (c *Client) transact(ctx context.Context, method string, args ...interface{}) (*types.Transaction, error) {
	c.mu.RLock()
	contract := c.contract
	c.mu.RUnlock()
	if contract == nil {
		return nil, &ConnectionError{Op: method, Err: fmt.Errorf("not connected")}
	}
	opts, err := c.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := contract.Transact(opts, method, args...)
	if err != nil {
		return nil, &TxError{Method: method, Err: err}
	}
	return tx, nil
}

// ExecuteBuy submits the L2 executeBuy relay transaction.
func (c *Client) ExecuteBuy(ctx context.Context, user, l2Token common.Address, amount, minOut, nonce, deadline *big.Int, sig []byte) (*types.Transaction, error) {
	return c.transact(ctx, "executeBuy", user, l2Token, amount, minOut, nonce, deadline, sig)
}

// Withdraw submits the L1 withdraw relay transaction.
func (c *Client) Withdraw(ctx context.Context, user, asset common.Address, lpShare, nonce, deadline *big.Int, sig []byte) (*types.Transaction, error) {
	return c.transact(ctx, "withdraw", user, asset, lpShare, nonce, deadline, sig)
}

// WaitMined blocks until the transaction is mined and returns its receipt.
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	eth := c.httpClient()
	if eth == nil {
		return nil, &ConnectionError{Op: "waitMined", Err: fmt.Errorf("not connected")}
	}
	receipt, err := bind.WaitMined(ctx, eth, tx)
	if err != nil {
		return nil, classify("waitMined", err)
	}
	return receipt, nil
}
