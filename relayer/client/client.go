// Package client provides the chain client façade: one variant per chain family
// (Tendermint, Gno) behind a single capability interface. Variants that cannot
// perform an operation return types.ErrUnsupported; the Gno variant is IBC v2 only.
package client

import (
	"context"
	"time"

	connectiontypes "github.com/cosmos/ibc-go/v10/modules/core/03-connection/types"
	channeltypes "github.com/cosmos/ibc-go/v10/modules/core/04-channel/types"
	ibctm "github.com/cosmos/ibc-go/v10/modules/light-clients/07-tendermint"

	"github.com/tokenize-x/tx-relayer/relayer/types"
)

// Client is the capability set a chain must expose to the relay engine. It is the sole
// synchronisation point with the external chain; implementations own their connection
// pools and may cache immutable data per client, never across clients.
type Client interface {
	// ChainID returns the chain id reported by the node at construction time.
	ChainID() string
	// Revision returns the revision number parsed from the chain id.
	Revision() uint64
	// SignerAddress returns the bech32 address submitting transactions.
	SignerAddress() string

	// CurrentHeight returns the latest finalised height. The returned height carries
	// this chain's revision number.
	CurrentHeight(ctx context.Context) (types.Height, error)
	// CurrentTime returns the latest block time.
	CurrentTime(ctx context.Context) (time.Time, error)
	// WaitOneBlock blocks until the current height strictly advances, or returns
	// ErrStalled after estimatedBlockTime*2 + 1s.
	WaitOneBlock(ctx context.Context) error
	// WaitForHeight blocks until the chain reaches at least height.
	WaitForHeight(ctx context.Context, height uint64) error
	// WaitForIndexer sleeps for the estimated indexer lag so freshly committed events
	// become queryable.
	WaitForIndexer(ctx context.Context)

	// QueryHeaderInfo returns header material at the given block height (0 = latest).
	QueryHeaderInfo(ctx context.Context, height uint64) (types.HeaderInfo, error)

	// BuildClientState builds a client state describing this chain, for creation on a
	// remote chain. trustPeriod 0 selects unbonding*2/3. Fails when the unbonding
	// period cannot be determined.
	BuildClientState(ctx context.Context, trustPeriod time.Duration) (*ibctm.ClientState, error)
	// BuildConsensusState builds this chain's consensus state at height (0 = latest).
	BuildConsensusState(ctx context.Context, height uint64) (*ibctm.ConsensusState, error)
	// BuildHeaderUpdate builds a header update proving the current height to a client
	// that last trusts trustedHeight. The trusted validator set is the next-validators
	// set of the trusted header.
	BuildHeaderUpdate(ctx context.Context, trustedHeight types.Height) (*ibctm.Header, error)

	// CreateClient submits a create-client tx on this chain and returns the new id.
	CreateClient(ctx context.Context, clientState *ibctm.ClientState, consensusState *ibctm.ConsensusState) (string, error)
	// UpdateClient submits a header update for clientID on this chain.
	UpdateClient(ctx context.Context, clientID string, header *ibctm.Header) error
	// RegisterCounterparty binds clientID to the remote client (IBC v2).
	RegisterCounterparty(ctx context.Context, clientID, counterpartyClientID string, merklePrefix [][]byte) error

	// QueryClientState returns the tendermint client state stored under clientID.
	QueryClientState(ctx context.Context, clientID string) (*ibctm.ClientState, error)
	// QueryConsensusState returns the consensus state of clientID at height, or the
	// latest one when height is zero, along with the height it is stored at.
	QueryConsensusState(ctx context.Context, clientID string, height types.Height) (*ibctm.ConsensusState, types.Height, error)
	// QueryCounterparty returns the registered counterparty client id of clientID
	// (IBC v2), or ErrNotFound when none is registered.
	QueryCounterparty(ctx context.Context, clientID string) (string, error)

	// QueryRawProof returns the value and ICS-23 proof of an IBC store key. The state
	// is read at proofHeight-1 so the proof verifies against the consensus root stored
	// for proofHeight. The proof's two ops are type- and key-checked before return.
	QueryRawProof(ctx context.Context, key []byte, proofHeight uint64) (types.RawProof, error)

	// QuerySentPackets returns packets sent on this chain at or after minHeight.
	// For v2 paths the query is scoped to sourceClient; v1 queries ignore sourceClient
	// and return all v1 send events (the caller filters by connection).
	QuerySentPackets(ctx context.Context, version types.Version, sourceClient string, minHeight uint64) ([]types.PacketInfo, error)
	// QueryWrittenAcks returns acknowledgements written on this chain at or after
	// minHeight, scoped like QuerySentPackets.
	QueryWrittenAcks(ctx context.Context, version types.Version, sourceClient string, minHeight uint64) ([]types.AckInfo, error)

	// QueryUnreceivedPackets filters sequences down to those not yet received on this
	// chain. The id is "port/channel" of the destination side for v1, the destination
	// client id for v2.
	QueryUnreceivedPackets(ctx context.Context, version types.Version, id string, sequences []uint64) ([]uint64, error)
	// QueryUnreceivedAcks filters sequences down to those whose acknowledgement has not
	// been processed on this (source) chain.
	QueryUnreceivedAcks(ctx context.Context, version types.Version, id string, sequences []uint64) ([]uint64, error)
	// QueryPacketCommitment returns the commitment bytes of a sent packet, or nil when
	// the commitment is absent (already acked or timed out).
	QueryPacketCommitment(ctx context.Context, version types.Version, id string, sequence uint64) ([]byte, error)

	// IBC v1 only: connection and channel state plus the four-step handshakes and
	// packet submission. The Gno variant fails these with ErrUnsupported.

	QueryConnection(ctx context.Context, connectionID string) (*connectiontypes.ConnectionEnd, error)
	QueryChannel(ctx context.Context, portID, channelID string) (*channeltypes.Channel, error)
	QueryNextSequenceRecv(ctx context.Context, portID, channelID string) (uint64, error)

	ConnOpenInit(ctx context.Context, clientID, counterpartyClientID string) (string, error)
	ConnOpenTry(ctx context.Context, clientID, counterpartyClientID, counterpartyConnectionID string, proofInit types.RawProof) (string, error)
	ConnOpenAck(ctx context.Context, connectionID, counterpartyConnectionID string, proofTry types.RawProof) error
	ConnOpenConfirm(ctx context.Context, connectionID string, proofAck types.RawProof) error

	ChanOpenInit(ctx context.Context, portID, version, connectionID, counterpartyPortID string, ordering channeltypes.Order) (string, error)
	ChanOpenTry(ctx context.Context, portID, version, connectionID, counterpartyPortID, counterpartyChannelID, counterpartyVersion string, ordering channeltypes.Order, proofInit types.RawProof) (string, error)
	ChanOpenAck(ctx context.Context, portID, channelID, counterpartyChannelID, counterpartyVersion string, proofTry types.RawProof) error
	ChanOpenConfirm(ctx context.Context, portID, channelID string, proofAck types.RawProof) error

	RecvPacketsV1(ctx context.Context, packets []types.RecvPacketV1) (types.TxResult, error)
	AckPacketsV1(ctx context.Context, acks []types.AckPacketV1) (types.TxResult, error)
	TimeoutPacketsV1(ctx context.Context, timeouts []types.TimeoutPacketV1) (types.TxResult, error)

	// IBC v2 packet submission.

	RecvPacketsV2(ctx context.Context, packets []types.RecvPacketV2) (types.TxResult, error)
	AckPacketsV2(ctx context.Context, acks []types.AckPacketV2) (types.TxResult, error)
	TimeoutPacketsV2(ctx context.Context, timeouts []types.TimeoutPacketV2) (types.TxResult, error)
}
