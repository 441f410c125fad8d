// Package evm implements the engagement ledger against an EVM smart
// contract over JSON-RPC. Every write is a signed transaction and the
// client blocks until the transaction is mined, so callers observe the
// same finalized-or-failed semantics the core requires.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	oceanpost "github.com/driftlabs/oceanpost"
	"github.com/driftlabs/oceanpost/ledger"
)

// contractABI covers the four entry points the core uses.
const contractABI = `[
	{"type":"function","name":"recordEngagement","stateMutability":"nonpayable","inputs":[{"name":"entityId","type":"uint256"},{"name":"actor","type":"address"}],"outputs":[]},
	{"type":"function","name":"setContentPointer","stateMutability":"nonpayable","inputs":[{"name":"entityId","type":"uint256"},{"name":"contentHash","type":"string"}],"outputs":[]},
	{"type":"function","name":"promoted","stateMutability":"view","inputs":[{"name":"entityId","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"promote","stateMutability":"nonpayable","inputs":[{"name":"entityId","type":"uint256"}],"outputs":[]}
]`

// Config holds connection and signing configuration.
type Config struct {
	// RPCURL is the JSON-RPC endpoint of an EVM node.
	RPCURL string

	// ContractAddress is the deployed ledger contract, hex encoded.
	ContractAddress string

	// PrivateKeyHex is the hex-encoded signing key for write calls.
	PrivateKeyHex string

	// ChainID of the target network. Zero means query the node.
	ChainID int64

	// GasLimit caps gas per transaction. Zero means estimate per call.
	GasLimit uint64

	// Logger for transaction events.
	Logger *slog.Logger
}

// Client is a Ledger backed by an EVM contract.
type Client struct {
	eth      *ethclient.Client
	abi      abi.ABI
	contract common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	gasLimit uint64
	logger   *slog.Logger

	// Serialises transactions so nonces are assigned in order.
	txMu sync.Mutex
}

// Dial connects to the node and prepares the signing identity.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("parsing contract ABI: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", cfg.RPCURL, err)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = eth.ChainID(ctx)
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("querying chain id: %w", err)
		}
	}

	return &Client{
		eth:      eth,
		abi:      parsed,
		contract: common.HexToAddress(cfg.ContractAddress),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		gasLimit: cfg.GasLimit,
		logger:   cfg.Logger,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// RecordEngagement implements ledger.Ledger.
func (c *Client) RecordEngagement(ctx context.Context, entityID uint64, actorID string) error {
	if !common.IsHexAddress(actorID) {
		return fmt.Errorf("%w: actor %q is not an address", ledger.ErrCallFailed, actorID)
	}
	return c.transact(ctx, "recordEngagement", new(big.Int).SetUint64(entityID), common.HexToAddress(actorID))
}

// UpdateContentPointer implements ledger.Ledger.
func (c *Client) UpdateContentPointer(ctx context.Context, entityID uint64, hash oceanpost.ContentHash) error {
	if !hash.Valid() {
		return fmt.Errorf("%w: refusing to record invalid hash %q for entity %d", ledger.ErrCallFailed, hash, entityID)
	}
	return c.transact(ctx, "setContentPointer", new(big.Int).SetUint64(entityID), hash.String())
}

// ReadPromotionFlag implements ledger.Ledger.
func (c *Client) ReadPromotionFlag(ctx context.Context, entityID uint64) (bool, error) {
	data, err := c.abi.Pack("promoted", new(big.Int).SetUint64(entityID))
	if err != nil {
		return false, fmt.Errorf("%w: packing promoted call: %v", ledger.ErrCallFailed, err)
	}

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("%w: reading promotion flag for entity %d: %v", ledger.ErrCallFailed, entityID, err)
	}

	results, err := c.abi.Unpack("promoted", out)
	if err != nil {
		return false, fmt.Errorf("%w: unpacking promoted result for entity %d: %v", ledger.ErrCallFailed, entityID, err)
	}
	flag, ok := results[0].(bool)
	if !ok {
		return false, fmt.Errorf("%w: unexpected promoted result type %T", ledger.ErrCallFailed, results[0])
	}
	return flag, nil
}

// RequestPromotion implements ledger.Ledger.
func (c *Client) RequestPromotion(ctx context.Context, entityID uint64) error {
	return c.transact(ctx, "promote", new(big.Int).SetUint64(entityID))
}

// transact packs, signs, sends, and waits for a contract call to be mined.
func (c *Client) transact(ctx context.Context, method string, args ...any) error {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("%w: packing %s call: %v", ledger.ErrCallFailed, method, err)
	}

	c.txMu.Lock()
	defer c.txMu.Unlock()

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return fmt.Errorf("%w: fetching nonce for %s: %v", ledger.ErrCallFailed, method, err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("%w: suggesting gas price for %s: %v", ledger.ErrCallFailed, method, err)
	}

	gasLimit := c.gasLimit
	if gasLimit == 0 {
		gasLimit, err = c.eth.EstimateGas(ctx, ethereum.CallMsg{
			From: c.from,
			To:   &c.contract,
			Data: data,
		})
		if err != nil {
			return fmt.Errorf("%w: estimating gas for %s: %v", ledger.ErrCallFailed, method, err)
		}
	}

	tx := types.NewTransaction(nonce, c.contract, new(big.Int), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return fmt.Errorf("%w: signing %s transaction: %v", ledger.ErrCallFailed, method, err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("%w: sending %s transaction: %v", ledger.ErrCallFailed, method, err)
	}

	c.logger.Debug("ledger transaction sent",
		"method", method,
		"tx", signed.Hash().Hex(),
		"nonce", nonce,
	)

	receipt, err := bind.WaitMined(ctx, c.eth, signed)
	if err != nil {
		return fmt.Errorf("%w: waiting for %s transaction %s: %v", ledger.ErrCallFailed, method, signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s transaction %s reverted", ledger.ErrCallFailed, method, signed.Hash().Hex())
	}

	c.logger.Debug("ledger transaction mined",
		"method", method,
		"tx", signed.Hash().Hex(),
		"block", receipt.BlockNumber,
		"gas_used", receipt.GasUsed,
	)
	return nil
}

var _ ledger.Ledger = (*Client)(nil)
