package client

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"
	tmtypes "github.com/cometbft/cometbft/types"
	sdkclient "github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	sdktx "github.com/cosmos/cosmos-sdk/client/tx"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	"github.com/cosmos/cosmos-sdk/crypto/hd"
	sdkkeyring "github.com/cosmos/cosmos-sdk/crypto/keyring"
	"github.com/cosmos/cosmos-sdk/std"
	sdk "github.com/cosmos/cosmos-sdk/types"
	signingtypes "github.com/cosmos/cosmos-sdk/types/tx/signing"
	authtx "github.com/cosmos/cosmos-sdk/x/auth/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	stakingtypes "github.com/cosmos/cosmos-sdk/x/staking/types"
	commitmenttypes "github.com/cosmos/ibc-go/v10/modules/core/23-commitment/types"
	ibccoretypes "github.com/cosmos/ibc-go/v10/modules/core/types"
	ibctm "github.com/cosmos/ibc-go/v10/modules/light-clients/07-tendermint"
	"github.com/pkg/errors"

	"github.com/tokenize-x/tx-relayer/pkg/retry"
	"github.com/tokenize-x/tx-relayer/relayer/types"
)

const (
	// ibcStoreName is the multistore key of the IBC provable store on cosmos-sdk chains.
	ibcStoreName = "ibc"

	// relayerKeyName is the in-memory keyring name of the signing account.
	relayerKeyName = "relayer"

	// defaultCoinType is the BIP-44 coin type used to derive the signing key.
	defaultCoinType = 118

	// txGasAdjustment pads simulated gas before broadcast.
	txGasAdjustment = 1.5

	// maxClockDrift tolerated by created light clients.
	maxClockDrift = 20 * time.Second

	eventsPerPage = 50
)

// UpgradePath is the standard cosmos-sdk client upgrade path.
var UpgradePath = []string{"upgrade", "upgradedIBCState"}

// Config collects everything needed to construct a chain client.
type Config struct {
	ChainID      string
	RPCAddr      string
	QueryRPCAddr string
	Mnemonic     string
	GasPrice     sdkmath.LegacyDec
	GasDenom     string

	RequestTimeout       time.Duration
	EstimatedBlockTime   time.Duration
	EstimatedIndexerTime time.Duration
	Retry                retry.Policy

	Logger log.Logger
}

// Tendermint is the chain client variant for cosmos-sdk chains: cometbft RPC for
// headers, events and proofs, ABCI-routed gRPC for module queries, and a cosmos-sdk tx
// factory for signing.
type Tendermint struct {
	cfg      Config
	chainID  string
	revision uint64

	rpc      sdkclient.CometRPC
	queryRPC sdkclient.CometRPC

	clientCtx sdkclient.Context
	txConfig  sdkclient.TxConfig
	keyring   sdkkeyring.Keyring
	signer    sdk.AccAddress
	signerStr string

	logger log.Logger

	// txMu serialises transaction submission: the account sequence is a shared
	// resource, and concurrent updates to one on-chain client waste gas.
	txMu sync.Mutex
}

var _ Client = (*Tendermint)(nil)

// NewTendermint dials the node, verifies its chain id and prepares the signing
// machinery from the given mnemonic.
func NewTendermint(ctx context.Context, cfg Config) (*Tendermint, error) {
	rpcClient, err := sdkclient.NewClientFromNode(cfg.RPCAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing node %q", cfg.RPCAddr)
	}
	queryRPC := sdkclient.CometRPC(rpcClient)
	if cfg.QueryRPCAddr != "" {
		qc, err := sdkclient.NewClientFromNode(cfg.QueryRPCAddr)
		if err != nil {
			return nil, errors.Wrapf(err, "dialing query node %q", cfg.QueryRPCAddr)
		}
		queryRPC = qc
	}

	interfaceRegistry := codectypes.NewInterfaceRegistry()
	std.RegisterInterfaces(interfaceRegistry)
	authtypes.RegisterInterfaces(interfaceRegistry)
	ibccoretypes.RegisterInterfaces(interfaceRegistry)
	ibctm.RegisterInterfaces(interfaceRegistry)
	cdc := codec.NewProtoCodec(interfaceRegistry)
	txConfig := authtx.NewTxConfig(cdc, authtx.DefaultSignModes)

	kr := sdkkeyring.NewInMemory(cdc)
	record, err := kr.NewAccount(
		relayerKeyName,
		cfg.Mnemonic,
		"",
		hd.CreateHDPath(defaultCoinType, 0, 0).String(),
		hd.Secp256k1,
	)
	if err != nil {
		return nil, errors.Wrap(err, "importing relayer mnemonic")
	}
	signer, err := record.GetAddress()
	if err != nil {
		return nil, errors.Wrap(err, "deriving relayer address")
	}

	c := &Tendermint{
		cfg:      cfg,
		rpc:      rpcClient,
		queryRPC: queryRPC,
		txConfig: txConfig,
		keyring:  kr,
		signer:   signer,
		logger:   cfg.Logger.With("module", "client", "chain", cfg.ChainID),
	}
	c.clientCtx = sdkclient.Context{}.
		WithClient(queryRPC).
		WithCodec(cdc).
		WithInterfaceRegistry(interfaceRegistry).
		WithTxConfig(txConfig).
		WithKeyring(kr).
		WithFromAddress(signer).
		WithFromName(relayerKeyName).
		WithBroadcastMode(flags.BroadcastSync).
		WithAccountRetriever(authtypes.AccountRetriever{})

	status, err := retry.Get(ctx, cfg.Retry, func() (chainStatus, error) {
		return c.status(ctx)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "querying status of %q", cfg.RPCAddr)
	}
	if cfg.ChainID != "" && cfg.ChainID != status.chainID {
		return nil, errors.Wrapf(types.ErrChainMismatch,
			"node %q reports chain id %q, expected %q", cfg.RPCAddr, status.chainID, cfg.ChainID)
	}
	c.chainID = status.chainID
	c.revision = types.ParseRevisionNumber(status.chainID)
	c.clientCtx = c.clientCtx.WithChainID(status.chainID)

	prefixResp, err := authtypes.NewQueryClient(c.clientCtx).Bech32Prefix(ctx, &authtypes.Bech32PrefixRequest{})
	if err != nil {
		return nil, errors.Wrap(err, "querying bech32 prefix")
	}
	c.signerStr, err = sdk.Bech32ifyAddressBytes(prefixResp.Bech32Prefix, signer)
	if err != nil {
		return nil, errors.Wrap(err, "encoding relayer address")
	}

	return c, nil
}

// ChainID returns the chain id reported by the node.
func (c *Tendermint) ChainID() string { return c.chainID }

// Revision returns the revision number parsed from the chain id.
func (c *Tendermint) Revision() uint64 { return c.revision }

// SignerAddress returns the bech32 relayer address on this chain.
func (c *Tendermint) SignerAddress() string { return c.signerStr }

type chainStatus struct {
	chainID string
	height  uint64
	time    time.Time
}

func (c *Tendermint) status(ctx context.Context) (chainStatus, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	status, err := c.queryRPC.Status(ctx)
	if err != nil {
		return chainStatus{}, errors.Wrap(err, "status query")
	}
	return chainStatus{
		chainID: status.NodeInfo.Network,
		height:  uint64(status.SyncInfo.LatestBlockHeight),
		time:    status.SyncInfo.LatestBlockTime,
	}, nil
}

// CurrentHeight returns the latest finalised height with this chain's revision.
func (c *Tendermint) CurrentHeight(ctx context.Context) (types.Height, error) {
	status, err := retry.Get(ctx, c.cfg.Retry, func() (chainStatus, error) { return c.status(ctx) })
	if err != nil {
		return types.Height{}, err
	}
	return types.NewHeight(c.revision, status.height), nil
}

// CurrentTime returns the latest block time.
func (c *Tendermint) CurrentTime(ctx context.Context) (time.Time, error) {
	status, err := retry.Get(ctx, c.cfg.Retry, func() (chainStatus, error) { return c.status(ctx) })
	if err != nil {
		return time.Time{}, err
	}
	return status.time, nil
}

// WaitOneBlock blocks until the height strictly advances or the chain is considered
// stalled (estimatedBlockTime*2 + 1s without progress).
func (c *Tendermint) WaitOneBlock(ctx context.Context) error {
	start, err := c.CurrentHeight(ctx)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(c.cfg.EstimatedBlockTime*2 + time.Second)
	interval := c.pollInterval()
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		cur, err := c.CurrentHeight(ctx)
		if err != nil {
			return err
		}
		if cur.RevisionHeight > start.RevisionHeight {
			return nil
		}
	}
	return errors.Wrapf(types.ErrStalled, "chain %s stuck at height %d", c.chainID, start.RevisionHeight)
}

// WaitForHeight blocks until the chain reaches at least height.
func (c *Tendermint) WaitForHeight(ctx context.Context, height uint64) error {
	interval := c.pollInterval()
	for {
		cur, err := c.CurrentHeight(ctx)
		if err != nil {
			return err
		}
		if cur.RevisionHeight >= height {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// WaitForIndexer sleeps for the estimated indexer lag.
func (c *Tendermint) WaitForIndexer(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.cfg.EstimatedIndexerTime):
	}
}

func (c *Tendermint) pollInterval() time.Duration {
	interval := c.cfg.EstimatedBlockTime / 4
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	return interval
}

// QueryHeaderInfo returns header material at the given height (0 = latest).
func (c *Tendermint) QueryHeaderInfo(ctx context.Context, height uint64) (types.HeaderInfo, error) {
	return retry.Get(ctx, c.cfg.Retry, func() (types.HeaderInfo, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		var ptr *int64
		if height > 0 {
			h := int64(height)
			ptr = &h
		}
		commit, err := c.queryRPC.Commit(ctx, ptr)
		if err != nil {
			return types.HeaderInfo{}, errors.Wrapf(err, "commit query at %d", height)
		}
		header := commit.SignedHeader.Header
		return types.HeaderInfo{
			Height:             types.NewHeight(c.revision, uint64(header.Height)),
			TimeUnixNano:       header.Time.UnixNano(),
			AppHash:            header.AppHash,
			ValidatorsHash:     header.ValidatorsHash,
			NextValidatorsHash: header.NextValidatorsHash,
		}, nil
	})
}

// BuildClientState builds a tendermint client state describing this chain. trustPeriod
// zero selects two thirds of the unbonding period; the unbonding period must be
// determinable from the chain, there is no default.
func (c *Tendermint) BuildClientState(ctx context.Context, trustPeriod time.Duration) (*ibctm.ClientState, error) {
	paramsResp, err := retry.Get(ctx, c.cfg.Retry, func() (*stakingtypes.QueryParamsResponse, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return stakingtypes.NewQueryClient(c.clientCtx).Params(ctx, &stakingtypes.QueryParamsRequest{})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "querying unbonding period of %s", c.chainID)
	}
	unbonding := paramsResp.Params.UnbondingTime
	if unbonding <= 0 {
		return nil, errors.Wrapf(types.ErrConfig, "chain %s reports no unbonding period", c.chainID)
	}
	if trustPeriod == 0 {
		trustPeriod = unbonding * 2 / 3
	}
	if trustPeriod >= unbonding {
		return nil, errors.Wrapf(types.ErrConfig,
			"trust period %s must be shorter than unbonding period %s", trustPeriod, unbonding)
	}

	status, err := retry.Get(ctx, c.cfg.Retry, func() (chainStatus, error) { return c.status(ctx) })
	if err != nil {
		return nil, err
	}

	return ibctm.NewClientState(
		c.chainID,
		ibctm.Fraction{Numerator: 1, Denominator: 3},
		trustPeriod,
		unbonding,
		maxClockDrift,
		types.NewHeight(c.revision, status.height),
		commitmenttypes.GetSDKSpecs(),
		UpgradePath,
	), nil
}

// BuildConsensusState builds this chain's consensus state at height (0 = latest).
func (c *Tendermint) BuildConsensusState(ctx context.Context, height uint64) (*ibctm.ConsensusState, error) {
	header, err := c.QueryHeaderInfo(ctx, height)
	if err != nil {
		return nil, err
	}
	return ibctm.NewConsensusState(
		time.Unix(0, header.TimeUnixNano).UTC(),
		commitmenttypes.NewMerkleRoot(header.AppHash),
		header.NextValidatorsHash,
	), nil
}

// BuildHeaderUpdate builds the header update proving the current height to a client
// trusting trustedHeight. The trusted validators are the validator set at
// trustedHeight+1, i.e. the NextValidators committed to by the trusted header.
func (c *Tendermint) BuildHeaderUpdate(ctx context.Context, trustedHeight types.Height) (*ibctm.Header, error) {
	if trustedHeight.RevisionNumber != c.revision {
		return nil, errors.Wrapf(types.ErrRevisionMismatch,
			"trusted height revision %d, chain %s is at revision %d",
			trustedHeight.RevisionNumber, c.chainID, c.revision)
	}

	status, err := retry.Get(ctx, c.cfg.Retry, func() (chainStatus, error) { return c.status(ctx) })
	if err != nil {
		return nil, err
	}
	curHeight := int64(status.height)

	commit, err := retry.Get(ctx, c.cfg.Retry, func() (*tmtypes.SignedHeader, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		res, err := c.queryRPC.Commit(ctx, &curHeight)
		if err != nil {
			return nil, errors.Wrapf(err, "commit query at %d", curHeight)
		}
		return &res.SignedHeader, nil
	})
	if err != nil {
		return nil, err
	}

	valSet, err := c.validatorSet(ctx, curHeight)
	if err != nil {
		return nil, err
	}
	trustedValSet, err := c.validatorSet(ctx, int64(trustedHeight.RevisionHeight)+1)
	if err != nil {
		return nil, err
	}

	valSetProto, err := valSet.ToProto()
	if err != nil {
		return nil, errors.Wrap(err, "encoding validator set")
	}
	trustedValSetProto, err := trustedValSet.ToProto()
	if err != nil {
		return nil, errors.Wrap(err, "encoding trusted validator set")
	}

	return &ibctm.Header{
		SignedHeader:      commit.ToProto(),
		ValidatorSet:      valSetProto,
		TrustedHeight:     trustedHeight,
		TrustedValidators: trustedValSetProto,
	}, nil
}

// validatorSet fetches the full validator set at height, paging through the RPC.
func (c *Tendermint) validatorSet(ctx context.Context, height int64) (*tmtypes.ValidatorSet, error) {
	return retry.Get(ctx, c.cfg.Retry, func() (*tmtypes.ValidatorSet, error) {
		var validators []*tmtypes.Validator
		page, perPage := 1, 100
		for {
			ctx, cancel := c.withTimeout(ctx)
			res, err := c.queryRPC.Validators(ctx, &height, &page, &perPage)
			cancel()
			if err != nil {
				return nil, errors.Wrapf(err, "validators query at %d", height)
			}
			validators = append(validators, res.Validators...)
			if len(validators) >= res.Total || len(res.Validators) == 0 {
				break
			}
			page++
		}
		return tmtypes.NewValidatorSet(validators), nil
	})
}

// submit signs and broadcasts msgs as one transaction and waits for inclusion.
// All messages commit or none do; a non-zero code surfaces as ErrTxFailed with the
// chain's codespace, code and raw log verbatim.
func (c *Tendermint) submit(ctx context.Context, msgs []sdk.Msg) (types.TxResult, error) {
	c.txMu.Lock()
	defer c.txMu.Unlock()

	if len(msgs) == 0 {
		return types.TxResult{}, errors.Wrap(types.ErrConfig, "no messages to submit")
	}

	txf := sdktx.Factory{}.
		WithChainID(c.chainID).
		WithTxConfig(c.txConfig).
		WithKeybase(c.keyring).
		WithAccountRetriever(authtypes.AccountRetriever{}).
		WithGasAdjustment(txGasAdjustment).
		WithGasPrices(gasPriceString(c.cfg.GasPrice, c.cfg.GasDenom)).
		WithSignMode(signingtypes.SignMode_SIGN_MODE_DIRECT)

	txf, err := txf.Prepare(c.clientCtx)
	if err != nil {
		return types.TxResult{}, errors.Wrap(err, "preparing tx factory")
	}

	_, gas, err := sdktx.CalculateGas(c.clientCtx, txf, msgs...)
	if err != nil {
		return types.TxResult{}, errors.Wrap(err, "simulating tx")
	}
	txf = txf.WithGas(gas)

	builder, err := txf.BuildUnsignedTx(msgs...)
	if err != nil {
		return types.TxResult{}, errors.Wrap(err, "building tx")
	}
	if err := sdktx.Sign(ctx, txf, relayerKeyName, builder, true); err != nil {
		return types.TxResult{}, errors.Wrap(err, "signing tx")
	}
	txBytes, err := c.txConfig.TxEncoder()(builder.GetTx())
	if err != nil {
		return types.TxResult{}, errors.Wrap(err, "encoding tx")
	}

	resp, err := c.clientCtx.WithClient(c.rpc).BroadcastTxSync(txBytes)
	if err != nil {
		return types.TxResult{}, errors.Wrap(err, "broadcasting tx")
	}
	if resp.Code != 0 {
		return types.TxResult{}, errors.Wrapf(types.ErrTxFailed,
			"tx %s rejected: codespace %s code %d: %s", resp.TxHash, resp.Codespace, resp.Code, resp.RawLog)
	}

	return c.awaitTx(ctx, resp.TxHash)
}

// awaitTx polls until the broadcast tx is included in a block.
func (c *Tendermint) awaitTx(ctx context.Context, txHash string) (types.TxResult, error) {
	hashBz, err := hex.DecodeString(txHash)
	if err != nil {
		return types.TxResult{}, errors.Wrapf(err, "decoding tx hash %q", txHash)
	}

	deadline := time.Now().Add(c.cfg.EstimatedBlockTime*2 + c.cfg.RequestTimeout)
	interval := c.pollInterval()
	for {
		ctxQ, cancel := c.withTimeout(ctx)
		res, err := c.rpc.Tx(ctxQ, hashBz, false)
		cancel()
		if err == nil {
			result := types.TxResult{
				Height: uint64(res.Height),
				TxHash: txHash,
				Code:   res.TxResult.Code,
				RawLog: res.TxResult.Log,
				Events: res.TxResult.Events,
			}
			if res.TxResult.Code != 0 {
				return result, errors.Wrapf(types.ErrTxFailed,
					"tx %s failed at height %d: codespace %s code %d: %s",
					txHash, res.Height, res.TxResult.Codespace, res.TxResult.Code, res.TxResult.Log)
			}
			c.logger.Debug("tx included", "hash", txHash, "height", res.Height)
			return result, nil
		}
		if time.Now().After(deadline) {
			return types.TxResult{}, errors.Wrapf(types.ErrTimeout, "tx %s not included before deadline", txHash)
		}
		select {
		case <-ctx.Done():
			return types.TxResult{}, ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *Tendermint) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.RequestTimeout)
}

// eventValue retrieves the value of one attribute from the first event of the given
// type, or an error naming what is missing.
func eventValue(result types.TxResult, eventType, attrKey string) (string, error) {
	for _, event := range result.Events {
		if event.Type != eventType {
			continue
		}
		if v, ok := findAttr(event, attrKey); ok {
			return v, nil
		}
	}
	return "", errors.Wrapf(types.ErrEventMalformed,
		"tx %s: event %s with attribute %s not found", result.TxHash, eventType, attrKey)
}

// gasPriceString renders a dec-coin gas price, e.g. "0.025uatom".
func gasPriceString(price sdkmath.LegacyDec, denom string) string {
	return fmt.Sprintf("%s%s", price.String(), denom)
}
