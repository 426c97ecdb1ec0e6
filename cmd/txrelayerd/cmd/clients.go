package cmd

import (
	"context"

	"cosmossdk.io/log"
	"github.com/pkg/errors"

	"github.com/tokenize-x/tx-relayer/pkg/config"
	"github.com/tokenize-x/tx-relayer/pkg/keyring"
	"github.com/tokenize-x/tx-relayer/pkg/retry"
	"github.com/tokenize-x/tx-relayer/pkg/store"
	"github.com/tokenize-x/tx-relayer/relayer/client"
	relayertypes "github.com/tokenize-x/tx-relayer/relayer/types"
)

// buildChainClient constructs the chain client for one path endpoint. Cosmos chains
// sign with the stored mnemonic and gas price; gno chains need an externally wired
// wallet, so their submissions fail cleanly until one is provided.
func buildChainClient(
	ctx context.Context,
	cfg config.Config,
	logger log.Logger,
	st *store.Store,
	kr *keyring.Keyring,
	chainType store.ChainType,
	chainID, node, queryNode string,
) (client.Client, error) {
	clientCfg := client.Config{
		ChainID:              chainID,
		RPCAddr:              node,
		QueryRPCAddr:         queryNode,
		RequestTimeout:       cfg.RequestTimeout,
		EstimatedBlockTime:   cfg.EstimatedBlockTime,
		EstimatedIndexerTime: cfg.EstimatedIndexerTime,
		Retry: retry.Policy{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.RetryBackoff,
			MaxBackoff:     retry.DefaultPolicy().MaxBackoff,
		},
		Logger: logger,
	}

	switch chainType {
	case store.ChainTypeCosmos:
		fee, err := st.ChainFee(chainID)
		if err != nil {
			return nil, errors.Wrapf(relayertypes.ErrConfig, "no gas price recorded for chain %q, run add-gas-price first", chainID)
		}
		mnemonic, err := kr.Mnemonic(chainID)
		if err != nil {
			return nil, errors.Wrapf(relayertypes.ErrConfig, "no mnemonic stored for chain %q, run add-mnemonic first", chainID)
		}
		clientCfg.Mnemonic = mnemonic
		clientCfg.GasPrice = fee.GasPrice
		clientCfg.GasDenom = fee.GasDenom
		return client.NewTendermint(ctx, clientCfg)
	case store.ChainTypeGno:
		return client.NewGno(ctx, client.GnoConfig{Config: clientCfg}, unconfiguredWallet{})
	default:
		return nil, errors.Wrapf(relayertypes.ErrConfig, "unknown chain type %q", chainType)
	}
}

// unconfiguredWallet rejects every submission. Gno signing lives outside the relayer
// core; embedders inject a real wallet through the client package.
type unconfiguredWallet struct{}

func (unconfiguredWallet) Address() string { return "" }

func (unconfiguredWallet) Send(context.Context, []client.GnoVMCall) (relayertypes.TxResult, error) {
	return relayertypes.TxResult{}, errors.Wrap(relayertypes.ErrConfig, "no gno signing wallet configured")
}
