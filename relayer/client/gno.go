package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cosmossdk.io/log"
	rpcclient "github.com/cometbft/cometbft/rpc/client"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	tmtypes "github.com/cometbft/cometbft/types"
	sdkclient "github.com/cosmos/cosmos-sdk/client"
	gogoproto "github.com/cosmos/gogoproto/proto"
	clientv2types "github.com/cosmos/ibc-go/v10/modules/core/02-client/v2/types"
	connectiontypes "github.com/cosmos/ibc-go/v10/modules/core/03-connection/types"
	channeltypes "github.com/cosmos/ibc-go/v10/modules/core/04-channel/types"
	commitmenttypes "github.com/cosmos/ibc-go/v10/modules/core/23-commitment/types"
	hostv2 "github.com/cosmos/ibc-go/v10/modules/core/24-host/v2"
	ibctm "github.com/cosmos/ibc-go/v10/modules/light-clients/07-tendermint"
	"github.com/pkg/errors"

	"github.com/tokenize-x/tx-relayer/pkg/retry"
	"github.com/tokenize-x/tx-relayer/relayer/types"
)

// ibcRealmPath is the on-chain realm hosting the IBC core on gno chains.
const ibcRealmPath = "gno.land/r/ibc/core"

// GnoVMCall is one rendered VM invocation on the IBC realm. Argument encoding is
// positional; binary arguments travel base64-encoded.
type GnoVMCall struct {
	PkgPath string
	Func    string
	Args    []string
}

// GnoWallet signs and broadcasts VM calls on a gno chain. Signing lives outside the
// relay core; implementations are injected at construction.
type GnoWallet interface {
	Address() string
	// Send broadcasts one atomic batch of calls and waits for inclusion.
	Send(ctx context.Context, calls []GnoVMCall) (types.TxResult, error)
}

// Gno is the chain client variant for gno chains. The tm2 RPC surface is wire
// compatible with cometbft for the read side (status, commit, validators, abci_query,
// tx_search); submissions are rendered as VM calls on the IBC realm and handed to the
// injected wallet. The variant is IBC v2 only: every v1 operation fails with
// ErrUnsupported.
type Gno struct {
	cfg      Config
	chainID  string
	revision uint64

	rpc    sdkclient.CometRPC
	wallet GnoWallet
	logger log.Logger

	// unbondingPeriod must be configured; gno chains expose no staking params query.
	unbondingPeriod time.Duration
}

var _ Client = (*Gno)(nil)

// GnoConfig extends the common client config with gno-specific options.
type GnoConfig struct {
	Config

	// UnbondingPeriod of the gno chain's validator set. Required for building client
	// states of this chain; there is no on-chain query and no default.
	UnbondingPeriod time.Duration
}

// NewGno dials the gno node and verifies its chain id.
func NewGno(ctx context.Context, cfg GnoConfig, wallet GnoWallet) (*Gno, error) {
	rpcClient, err := sdkclient.NewClientFromNode(cfg.RPCAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing gno node %q", cfg.RPCAddr)
	}
	c := &Gno{
		cfg:             cfg.Config,
		rpc:             rpcClient,
		wallet:          wallet,
		logger:          cfg.Logger.With("module", "client", "chain", cfg.ChainID),
		unbondingPeriod: cfg.UnbondingPeriod,
	}
	status, err := retry.Get(ctx, cfg.Retry, func() (*coretypes.ResultStatus, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return c.rpc.Status(ctx)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "querying status of %q", cfg.RPCAddr)
	}
	if cfg.ChainID != "" && cfg.ChainID != status.NodeInfo.Network {
		return nil, errors.Wrapf(types.ErrChainMismatch,
			"node %q reports chain id %q, expected %q", cfg.RPCAddr, status.NodeInfo.Network, cfg.ChainID)
	}
	c.chainID = status.NodeInfo.Network
	c.revision = types.ParseRevisionNumber(c.chainID)
	return c, nil
}

// ChainID returns the chain id reported by the node.
func (c *Gno) ChainID() string { return c.chainID }

// Revision returns the revision number parsed from the chain id.
func (c *Gno) Revision() uint64 { return c.revision }

// SignerAddress returns the wallet address submitting transactions.
func (c *Gno) SignerAddress() string { return c.wallet.Address() }

func (c *Gno) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.RequestTimeout)
}

// CurrentHeight returns the latest height with this chain's revision.
func (c *Gno) CurrentHeight(ctx context.Context) (types.Height, error) {
	status, err := retry.Get(ctx, c.cfg.Retry, func() (*coretypes.ResultStatus, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return c.rpc.Status(ctx)
	})
	if err != nil {
		return types.Height{}, errors.Wrap(err, "status query")
	}
	return types.NewHeight(c.revision, uint64(status.SyncInfo.LatestBlockHeight)), nil
}

// CurrentTime returns the latest block time.
func (c *Gno) CurrentTime(ctx context.Context) (time.Time, error) {
	status, err := retry.Get(ctx, c.cfg.Retry, func() (*coretypes.ResultStatus, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return c.rpc.Status(ctx)
	})
	if err != nil {
		return time.Time{}, errors.Wrap(err, "status query")
	}
	return status.SyncInfo.LatestBlockTime, nil
}

// WaitOneBlock blocks until the height strictly advances or ErrStalled.
func (c *Gno) WaitOneBlock(ctx context.Context) error {
	start, err := c.CurrentHeight(ctx)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(c.cfg.EstimatedBlockTime*2 + time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.EstimatedBlockTime / 4):
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
func (c *Gno) WaitForHeight(ctx context.Context, height uint64) error {
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
		case <-time.After(c.cfg.EstimatedBlockTime / 4):
		}
	}
}

// WaitForIndexer sleeps for the estimated indexer lag.
func (c *Gno) WaitForIndexer(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.cfg.EstimatedIndexerTime):
	}
}

// QueryHeaderInfo returns header material at the given height (0 = latest).
func (c *Gno) QueryHeaderInfo(ctx context.Context, height uint64) (types.HeaderInfo, error) {
	return retry.Get(ctx, c.cfg.Retry, func() (types.HeaderInfo, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		var ptr *int64
		if height > 0 {
			h := int64(height)
			ptr = &h
		}
		commit, err := c.rpc.Commit(ctx, ptr)
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

// BuildClientState builds a tendermint-family client state for this chain. The
// unbonding period must have been configured; there is no on-chain source for it.
func (c *Gno) BuildClientState(ctx context.Context, trustPeriod time.Duration) (*ibctm.ClientState, error) {
	if c.unbondingPeriod <= 0 {
		return nil, errors.Wrapf(types.ErrConfig, "unbonding period of gno chain %s is not configured", c.chainID)
	}
	if trustPeriod == 0 {
		trustPeriod = c.unbondingPeriod * 2 / 3
	}
	if trustPeriod >= c.unbondingPeriod {
		return nil, errors.Wrapf(types.ErrConfig,
			"trust period %s must be shorter than unbonding period %s", trustPeriod, c.unbondingPeriod)
	}
	height, err := c.CurrentHeight(ctx)
	if err != nil {
		return nil, err
	}
	return ibctm.NewClientState(
		c.chainID,
		ibctm.Fraction{Numerator: 1, Denominator: 3},
		trustPeriod,
		c.unbondingPeriod,
		maxClockDrift,
		height,
		commitmenttypes.GetSDKSpecs(),
		UpgradePath,
	), nil
}

// BuildConsensusState builds this chain's consensus state at height (0 = latest).
func (c *Gno) BuildConsensusState(ctx context.Context, height uint64) (*ibctm.ConsensusState, error) {
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

// BuildHeaderUpdate builds a header update proving the current height to a client
// trusting trustedHeight.
func (c *Gno) BuildHeaderUpdate(ctx context.Context, trustedHeight types.Height) (*ibctm.Header, error) {
	if trustedHeight.RevisionNumber != c.revision {
		return nil, errors.Wrapf(types.ErrRevisionMismatch,
			"trusted height revision %d, chain %s is at revision %d",
			trustedHeight.RevisionNumber, c.chainID, c.revision)
	}
	cur, err := c.CurrentHeight(ctx)
	if err != nil {
		return nil, err
	}
	curHeight := int64(cur.RevisionHeight)

	commitRes, err := retry.Get(ctx, c.cfg.Retry, func() (*coretypes.ResultCommit, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return c.rpc.Commit(ctx, &curHeight)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "commit query at %d", curHeight)
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
		SignedHeader:      commitRes.SignedHeader.ToProto(),
		ValidatorSet:      valSetProto,
		TrustedHeight:     trustedHeight,
		TrustedValidators: trustedValSetProto,
	}, nil
}

func (c *Gno) validatorSet(ctx context.Context, height int64) (*tmtypes.ValidatorSet, error) {
	return retry.Get(ctx, c.cfg.Retry, func() (*tmtypes.ValidatorSet, error) {
		var validators []*tmtypes.Validator
		page, perPage := 1, 100
		for {
			ctx, cancel := c.withTimeout(ctx)
			res, err := c.rpc.Validators(ctx, &height, &page, &perPage)
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

// CreateClient renders a CreateClient VM call on the IBC realm.
func (c *Gno) CreateClient(ctx context.Context, clientState *ibctm.ClientState, consensusState *ibctm.ConsensusState) (string, error) {
	clientBz, err := gogoproto.Marshal(clientState)
	if err != nil {
		return "", errors.Wrap(err, "encoding client state")
	}
	consensusBz, err := gogoproto.Marshal(consensusState)
	if err != nil {
		return "", errors.Wrap(err, "encoding consensus state")
	}
	result, err := c.wallet.Send(ctx, []GnoVMCall{{
		PkgPath: ibcRealmPath,
		Func:    "CreateClient",
		Args:    []string{base64.StdEncoding.EncodeToString(clientBz), base64.StdEncoding.EncodeToString(consensusBz)},
	}})
	if err != nil {
		return "", err
	}
	clientID, err := eventValue(result, "create_client", "client_id")
	if err != nil {
		return "", err
	}
	c.logger.Info("created light client", "client_id", clientID, "tx", result.TxHash)
	return clientID, nil
}

// UpdateClient renders an UpdateClient VM call.
func (c *Gno) UpdateClient(ctx context.Context, clientID string, header *ibctm.Header) error {
	headerBz, err := gogoproto.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "encoding header")
	}
	_, err = c.wallet.Send(ctx, []GnoVMCall{{
		PkgPath: ibcRealmPath,
		Func:    "UpdateClient",
		Args:    []string{clientID, base64.StdEncoding.EncodeToString(headerBz)},
	}})
	return err
}

// RegisterCounterparty renders a RegisterCounterparty VM call.
func (c *Gno) RegisterCounterparty(ctx context.Context, clientID, counterpartyClientID string, merklePrefix [][]byte) error {
	prefixParts := make([]string, 0, len(merklePrefix))
	for _, part := range merklePrefix {
		prefixParts = append(prefixParts, base64.StdEncoding.EncodeToString(part))
	}
	_, err := c.wallet.Send(ctx, []GnoVMCall{{
		PkgPath: ibcRealmPath,
		Func:    "RegisterCounterparty",
		Args:    []string{clientID, counterpartyClientID, strings.Join(prefixParts, ",")},
	}})
	return err
}

// QueryClientState reads the stored client state through the realm's provable store.
func (c *Gno) QueryClientState(ctx context.Context, clientID string) (*ibctm.ClientState, error) {
	bz, err := c.abciQuery(ctx, []byte(fmt.Sprintf("clients/%s/clientState", clientID)), 0)
	if err != nil {
		return nil, err
	}
	if len(bz) == 0 {
		return nil, errors.Wrapf(types.ErrNotFound, "client state %s", clientID)
	}
	var clientState ibctm.ClientState
	if err := gogoproto.Unmarshal(bz, &clientState); err != nil {
		return nil, errors.Wrap(err, "decoding client state")
	}
	return &clientState, nil
}

// QueryConsensusState reads the stored consensus state at height (zero = latest).
func (c *Gno) QueryConsensusState(ctx context.Context, clientID string, height types.Height) (*ibctm.ConsensusState, types.Height, error) {
	if height.IsZero() {
		clientState, err := c.QueryClientState(ctx, clientID)
		if err != nil {
			return nil, types.Height{}, err
		}
		height = clientState.LatestHeight
	}
	key := fmt.Sprintf("clients/%s/consensusStates/%d-%d", clientID, height.RevisionNumber, height.RevisionHeight)
	bz, err := c.abciQuery(ctx, []byte(key), 0)
	if err != nil {
		return nil, types.Height{}, err
	}
	if len(bz) == 0 {
		return nil, types.Height{}, errors.Wrapf(types.ErrNotFound, "consensus state %s at %s", clientID, height)
	}
	var consensusState ibctm.ConsensusState
	if err := gogoproto.Unmarshal(bz, &consensusState); err != nil {
		return nil, types.Height{}, errors.Wrap(err, "decoding consensus state")
	}
	return &consensusState, height, nil
}

// QueryCounterparty reads the registered counterparty of clientID.
func (c *Gno) QueryCounterparty(ctx context.Context, clientID string) (string, error) {
	bz, err := c.abciQuery(ctx, []byte("counterparty/"+clientID), 0)
	if err != nil {
		return "", err
	}
	if len(bz) == 0 {
		return "", errors.Wrapf(types.ErrNotFound, "no counterparty registered for %s", clientID)
	}
	var info clientv2types.CounterpartyInfo
	if err := gogoproto.Unmarshal(bz, &info); err != nil {
		return "", errors.Wrap(err, "decoding counterparty info")
	}
	return info.ClientId, nil
}

// QueryRawProof queries the IBC store key at proofHeight-1 with proof.
func (c *Gno) QueryRawProof(ctx context.Context, key []byte, proofHeight uint64) (types.RawProof, error) {
	if proofHeight < 2 {
		return types.RawProof{}, errors.Wrapf(types.ErrConfig, "proof height %d too low", proofHeight)
	}
	return retry.Get(ctx, c.cfg.Retry, func() (types.RawProof, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		resp, err := c.rpc.ABCIQueryWithOptions(ctx, "/store/"+ibcStoreName+"/key", key, rpcclient.ABCIQueryOptions{
			Height: int64(proofHeight) - 1,
			Prove:  true,
		})
		if err != nil {
			return types.RawProof{}, errors.Wrap(err, "abci proof query")
		}
		if resp.Response.Code != 0 {
			return types.RawProof{}, errors.Wrapf(types.ErrProofMalformed,
				"abci proof query failed: code %d: %s", resp.Response.Code, resp.Response.Log)
		}
		if err := checkProofOps(resp.Response.ProofOps, ibcStoreName, key); err != nil {
			return types.RawProof{}, err
		}
		merkleProof, err := commitmenttypes.ConvertProofs(resp.Response.ProofOps)
		if err != nil {
			return types.RawProof{}, errors.Wrap(types.ErrProofMalformed, err.Error())
		}
		proofBz, err := gogoproto.Marshal(&merkleProof)
		if err != nil {
			return types.RawProof{}, errors.Wrap(err, "encoding merkle proof")
		}
		return types.RawProof{
			Value:  resp.Response.Value,
			Proof:  proofBz,
			Height: types.NewHeight(c.revision, proofHeight),
		}, nil
	})
}

// abciQuery reads one raw value from the IBC store without proof.
func (c *Gno) abciQuery(ctx context.Context, key []byte, height int64) ([]byte, error) {
	return retry.Get(ctx, c.cfg.Retry, func() ([]byte, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		resp, err := c.rpc.ABCIQueryWithOptions(ctx, "/store/"+ibcStoreName+"/key", key, rpcclient.ABCIQueryOptions{Height: height})
		if err != nil {
			return nil, errors.Wrap(err, "abci query")
		}
		if resp.Response.Code != 0 {
			return nil, errors.Wrapf(types.ErrNotFound, "abci query failed: code %d: %s", resp.Response.Code, resp.Response.Log)
		}
		return resp.Response.Value, nil
	})
}

// QuerySentPackets returns v2 packets sent on this chain at or after minHeight.
func (c *Gno) QuerySentPackets(ctx context.Context, version types.Version, localClient string, minHeight uint64) ([]types.PacketInfo, error) {
	if version != types.V2 {
		return nil, errors.Wrap(types.ErrUnsupported, "gno chains are IBC v2 only")
	}
	txs, err := c.searchTxs(ctx, sentPacketsQuery(version, localClient, minHeight))
	if err != nil {
		return nil, err
	}
	return parseSentPackets(version, txs)
}

// QueryWrittenAcks returns v2 acknowledgements written on this chain.
func (c *Gno) QueryWrittenAcks(ctx context.Context, version types.Version, localClient string, minHeight uint64) ([]types.AckInfo, error) {
	if version != types.V2 {
		return nil, errors.Wrap(types.ErrUnsupported, "gno chains are IBC v2 only")
	}
	txs, err := c.searchTxs(ctx, writtenAcksQuery(version, localClient, minHeight))
	if err != nil {
		return nil, err
	}
	return parseWrittenAcks(version, txs)
}

func (c *Gno) searchTxs(ctx context.Context, query string) ([]*coretypes.ResultTx, error) {
	return retry.Get(ctx, c.cfg.Retry, func() ([]*coretypes.ResultTx, error) {
		var txs []*coretypes.ResultTx
		page, perPage := 1, eventsPerPage
		for {
			ctx, cancel := c.withTimeout(ctx)
			res, err := c.rpc.TxSearch(ctx, query, false, &page, &perPage, "asc")
			cancel()
			if err != nil {
				return nil, errors.Wrapf(err, "tx search %q", query)
			}
			txs = append(txs, res.Txs...)
			if len(txs) >= res.TotalCount || len(res.Txs) == 0 {
				return txs, nil
			}
			page++
		}
	})
}

// QueryUnreceivedPackets filters sequences down to those without a receipt here.
func (c *Gno) QueryUnreceivedPackets(ctx context.Context, version types.Version, id string, sequences []uint64) ([]uint64, error) {
	if version != types.V2 {
		return nil, errors.Wrap(types.ErrUnsupported, "gno chains are IBC v2 only")
	}
	var unreceived []uint64
	for _, seq := range sequences {
		bz, err := c.abciQuery(ctx, hostv2.PacketReceiptKey(id, seq), 0)
		if err != nil {
			return nil, err
		}
		if len(bz) == 0 {
			unreceived = append(unreceived, seq)
		}
	}
	return unreceived, nil
}

// QueryUnreceivedAcks filters sequences down to those whose commitment is still present
// here, i.e. the ack has not been relayed back yet.
func (c *Gno) QueryUnreceivedAcks(ctx context.Context, version types.Version, id string, sequences []uint64) ([]uint64, error) {
	if version != types.V2 {
		return nil, errors.Wrap(types.ErrUnsupported, "gno chains are IBC v2 only")
	}
	var unreceived []uint64
	for _, seq := range sequences {
		commitment, err := c.QueryPacketCommitment(ctx, version, id, seq)
		if err != nil {
			return nil, err
		}
		if len(commitment) > 0 {
			unreceived = append(unreceived, seq)
		}
	}
	return unreceived, nil
}

// QueryPacketCommitment reads the raw commitment of a sent packet, nil when absent.
func (c *Gno) QueryPacketCommitment(ctx context.Context, version types.Version, id string, sequence uint64) ([]byte, error) {
	if version != types.V2 {
		return nil, errors.Wrap(types.ErrUnsupported, "gno chains are IBC v2 only")
	}
	return c.abciQuery(ctx, hostv2.PacketCommitmentKey(id, sequence), 0)
}

// RecvPacketsV2 renders RecvPacket VM calls, one per packet, in one atomic batch.
func (c *Gno) RecvPacketsV2(ctx context.Context, packets []types.RecvPacketV2) (types.TxResult, error) {
	calls := make([]GnoVMCall, 0, len(packets))
	for _, p := range packets {
		packetBz, err := gogoproto.Marshal(&p.Packet)
		if err != nil {
			return types.TxResult{}, errors.Wrap(err, "encoding packet")
		}
		calls = append(calls, GnoVMCall{
			PkgPath: ibcRealmPath,
			Func:    "RecvPacket",
			Args: []string{
				base64.StdEncoding.EncodeToString(packetBz),
				base64.StdEncoding.EncodeToString(p.Proof.Proof),
				formatHeight(p.Proof.Height),
			},
		})
	}
	return c.wallet.Send(ctx, calls)
}

// AckPacketsV2 renders Acknowledge VM calls in one atomic batch.
func (c *Gno) AckPacketsV2(ctx context.Context, acks []types.AckPacketV2) (types.TxResult, error) {
	calls := make([]GnoVMCall, 0, len(acks))
	for _, a := range acks {
		packetBz, err := gogoproto.Marshal(&a.Packet)
		if err != nil {
			return types.TxResult{}, errors.Wrap(err, "encoding packet")
		}
		calls = append(calls, GnoVMCall{
			PkgPath: ibcRealmPath,
			Func:    "Acknowledge",
			Args: []string{
				base64.StdEncoding.EncodeToString(packetBz),
				base64.StdEncoding.EncodeToString(a.Acknowledgement),
				base64.StdEncoding.EncodeToString(a.Proof.Proof),
				formatHeight(a.Proof.Height),
			},
		})
	}
	return c.wallet.Send(ctx, calls)
}

// TimeoutPacketsV2 renders Timeout VM calls in one atomic batch.
func (c *Gno) TimeoutPacketsV2(ctx context.Context, timeouts []types.TimeoutPacketV2) (types.TxResult, error) {
	calls := make([]GnoVMCall, 0, len(timeouts))
	for _, t := range timeouts {
		packetBz, err := gogoproto.Marshal(&t.Packet)
		if err != nil {
			return types.TxResult{}, errors.Wrap(err, "encoding packet")
		}
		calls = append(calls, GnoVMCall{
			PkgPath: ibcRealmPath,
			Func:    "Timeout",
			Args: []string{
				base64.StdEncoding.EncodeToString(packetBz),
				base64.StdEncoding.EncodeToString(t.Proof.Proof),
				formatHeight(t.Proof.Height),
			},
		})
	}
	return c.wallet.Send(ctx, calls)
}

func formatHeight(h types.Height) string {
	return strconv.FormatUint(h.RevisionNumber, 10) + "-" + strconv.FormatUint(h.RevisionHeight, 10)
}

// The operations below are IBC v1 only and unsupported on gno chains.

func (c *Gno) QueryConnection(context.Context, string) (*connectiontypes.ConnectionEnd, error) {
	return nil, errors.Wrap(types.ErrUnsupported, "connections are IBC v1 only")
}

func (c *Gno) QueryChannel(context.Context, string, string) (*channeltypes.Channel, error) {
	return nil, errors.Wrap(types.ErrUnsupported, "channels are IBC v1 only")
}

func (c *Gno) QueryNextSequenceRecv(context.Context, string, string) (uint64, error) {
	return 0, errors.Wrap(types.ErrUnsupported, "ordered channels are IBC v1 only")
}

func (c *Gno) ConnOpenInit(context.Context, string, string) (string, error) {
	return "", errors.Wrap(types.ErrUnsupported, "connection handshake is IBC v1 only")
}

func (c *Gno) ConnOpenTry(context.Context, string, string, string, types.RawProof) (string, error) {
	return "", errors.Wrap(types.ErrUnsupported, "connection handshake is IBC v1 only")
}

func (c *Gno) ConnOpenAck(context.Context, string, string, types.RawProof) error {
	return errors.Wrap(types.ErrUnsupported, "connection handshake is IBC v1 only")
}

func (c *Gno) ConnOpenConfirm(context.Context, string, types.RawProof) error {
	return errors.Wrap(types.ErrUnsupported, "connection handshake is IBC v1 only")
}

func (c *Gno) ChanOpenInit(context.Context, string, string, string, string, channeltypes.Order) (string, error) {
	return "", errors.Wrap(types.ErrUnsupported, "channel handshake is IBC v1 only")
}

func (c *Gno) ChanOpenTry(context.Context, string, string, string, string, string, string, channeltypes.Order, types.RawProof) (string, error) {
	return "", errors.Wrap(types.ErrUnsupported, "channel handshake is IBC v1 only")
}

func (c *Gno) ChanOpenAck(context.Context, string, string, string, string, types.RawProof) error {
	return errors.Wrap(types.ErrUnsupported, "channel handshake is IBC v1 only")
}

func (c *Gno) ChanOpenConfirm(context.Context, string, string, types.RawProof) error {
	return errors.Wrap(types.ErrUnsupported, "channel handshake is IBC v1 only")
}

func (c *Gno) RecvPacketsV1(context.Context, []types.RecvPacketV1) (types.TxResult, error) {
	return types.TxResult{}, errors.Wrap(types.ErrUnsupported, "v1 packets are unsupported on gno chains")
}

func (c *Gno) AckPacketsV1(context.Context, []types.AckPacketV1) (types.TxResult, error) {
	return types.TxResult{}, errors.Wrap(types.ErrUnsupported, "v1 packets are unsupported on gno chains")
}

func (c *Gno) TimeoutPacketsV1(context.Context, []types.TimeoutPacketV1) (types.TxResult, error) {
	return types.TxResult{}, errors.Wrap(types.ErrUnsupported, "v1 packets are unsupported on gno chains")
}
