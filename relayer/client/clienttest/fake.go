// Package clienttest provides a hook-based fake chain client for exercising the relay
// engine without a network.
package clienttest

import (
	"context"
	"time"

	connectiontypes "github.com/cosmos/ibc-go/v10/modules/core/03-connection/types"
	channeltypes "github.com/cosmos/ibc-go/v10/modules/core/04-channel/types"
	ibctm "github.com/cosmos/ibc-go/v10/modules/light-clients/07-tendermint"
	"github.com/pkg/errors"

	"github.com/tokenize-x/tx-relayer/relayer/client"
	"github.com/tokenize-x/tx-relayer/relayer/types"
)

// Fake implements client.Client through overridable hooks. Unset hooks fail loudly so
// tests only wire what they exercise.
type Fake struct {
	ChainIDVal  string
	RevisionVal uint64
	SignerVal   string

	CurrentHeightFn func(ctx context.Context) (types.Height, error)
	CurrentTimeFn   func(ctx context.Context) (time.Time, error)
	WaitOneBlockFn  func(ctx context.Context) error
	WaitForHeightFn func(ctx context.Context, height uint64) error

	QueryHeaderInfoFn func(ctx context.Context, height uint64) (types.HeaderInfo, error)

	BuildClientStateFn    func(ctx context.Context, trustPeriod time.Duration) (*ibctm.ClientState, error)
	BuildConsensusStateFn func(ctx context.Context, height uint64) (*ibctm.ConsensusState, error)
	BuildHeaderUpdateFn   func(ctx context.Context, trustedHeight types.Height) (*ibctm.Header, error)

	CreateClientFn         func(ctx context.Context, clientState *ibctm.ClientState, consensusState *ibctm.ConsensusState) (string, error)
	UpdateClientFn         func(ctx context.Context, clientID string, header *ibctm.Header) error
	RegisterCounterpartyFn func(ctx context.Context, clientID, counterpartyClientID string, merklePrefix [][]byte) error

	QueryClientStateFn    func(ctx context.Context, clientID string) (*ibctm.ClientState, error)
	QueryConsensusStateFn func(ctx context.Context, clientID string, height types.Height) (*ibctm.ConsensusState, types.Height, error)
	QueryCounterpartyFn   func(ctx context.Context, clientID string) (string, error)

	QueryRawProofFn func(ctx context.Context, key []byte, proofHeight uint64) (types.RawProof, error)

	QuerySentPacketsFn       func(ctx context.Context, version types.Version, localClient string, minHeight uint64) ([]types.PacketInfo, error)
	QueryWrittenAcksFn       func(ctx context.Context, version types.Version, localClient string, minHeight uint64) ([]types.AckInfo, error)
	QueryUnreceivedPacketsFn func(ctx context.Context, version types.Version, id string, sequences []uint64) ([]uint64, error)
	QueryUnreceivedAcksFn    func(ctx context.Context, version types.Version, id string, sequences []uint64) ([]uint64, error)
	QueryPacketCommitmentFn  func(ctx context.Context, version types.Version, id string, sequence uint64) ([]byte, error)

	QueryConnectionFn       func(ctx context.Context, connectionID string) (*connectiontypes.ConnectionEnd, error)
	QueryChannelFn          func(ctx context.Context, portID, channelID string) (*channeltypes.Channel, error)
	QueryNextSequenceRecvFn func(ctx context.Context, portID, channelID string) (uint64, error)

	RecvPacketsV1Fn    func(ctx context.Context, packets []types.RecvPacketV1) (types.TxResult, error)
	AckPacketsV1Fn     func(ctx context.Context, acks []types.AckPacketV1) (types.TxResult, error)
	TimeoutPacketsV1Fn func(ctx context.Context, timeouts []types.TimeoutPacketV1) (types.TxResult, error)
	RecvPacketsV2Fn    func(ctx context.Context, packets []types.RecvPacketV2) (types.TxResult, error)
	AckPacketsV2Fn     func(ctx context.Context, acks []types.AckPacketV2) (types.TxResult, error)
	TimeoutPacketsV2Fn func(ctx context.Context, timeouts []types.TimeoutPacketV2) (types.TxResult, error)
}

var _ client.Client = (*Fake)(nil)

func unset(name string) error {
	return errors.Errorf("clienttest: %s hook not set", name)
}

func (f *Fake) ChainID() string       { return f.ChainIDVal }
func (f *Fake) Revision() uint64      { return f.RevisionVal }
func (f *Fake) SignerAddress() string { return f.SignerVal }

func (f *Fake) CurrentHeight(ctx context.Context) (types.Height, error) {
	if f.CurrentHeightFn == nil {
		return types.Height{}, unset("CurrentHeight")
	}
	return f.CurrentHeightFn(ctx)
}

func (f *Fake) CurrentTime(ctx context.Context) (time.Time, error) {
	if f.CurrentTimeFn == nil {
		return time.Time{}, unset("CurrentTime")
	}
	return f.CurrentTimeFn(ctx)
}

func (f *Fake) WaitOneBlock(ctx context.Context) error {
	if f.WaitOneBlockFn == nil {
		return nil
	}
	return f.WaitOneBlockFn(ctx)
}

func (f *Fake) WaitForHeight(ctx context.Context, height uint64) error {
	if f.WaitForHeightFn == nil {
		return nil
	}
	return f.WaitForHeightFn(ctx, height)
}

func (f *Fake) WaitForIndexer(context.Context) {}

func (f *Fake) QueryHeaderInfo(ctx context.Context, height uint64) (types.HeaderInfo, error) {
	if f.QueryHeaderInfoFn == nil {
		return types.HeaderInfo{}, unset("QueryHeaderInfo")
	}
	return f.QueryHeaderInfoFn(ctx, height)
}

func (f *Fake) BuildClientState(ctx context.Context, trustPeriod time.Duration) (*ibctm.ClientState, error) {
	if f.BuildClientStateFn == nil {
		return nil, unset("BuildClientState")
	}
	return f.BuildClientStateFn(ctx, trustPeriod)
}

func (f *Fake) BuildConsensusState(ctx context.Context, height uint64) (*ibctm.ConsensusState, error) {
	if f.BuildConsensusStateFn == nil {
		return nil, unset("BuildConsensusState")
	}
	return f.BuildConsensusStateFn(ctx, height)
}

func (f *Fake) BuildHeaderUpdate(ctx context.Context, trustedHeight types.Height) (*ibctm.Header, error) {
	if f.BuildHeaderUpdateFn == nil {
		return nil, unset("BuildHeaderUpdate")
	}
	return f.BuildHeaderUpdateFn(ctx, trustedHeight)
}

func (f *Fake) CreateClient(ctx context.Context, clientState *ibctm.ClientState, consensusState *ibctm.ConsensusState) (string, error) {
	if f.CreateClientFn == nil {
		return "", unset("CreateClient")
	}
	return f.CreateClientFn(ctx, clientState, consensusState)
}

func (f *Fake) UpdateClient(ctx context.Context, clientID string, header *ibctm.Header) error {
	if f.UpdateClientFn == nil {
		return unset("UpdateClient")
	}
	return f.UpdateClientFn(ctx, clientID, header)
}

func (f *Fake) RegisterCounterparty(ctx context.Context, clientID, counterpartyClientID string, merklePrefix [][]byte) error {
	if f.RegisterCounterpartyFn == nil {
		return unset("RegisterCounterparty")
	}
	return f.RegisterCounterpartyFn(ctx, clientID, counterpartyClientID, merklePrefix)
}

func (f *Fake) QueryClientState(ctx context.Context, clientID string) (*ibctm.ClientState, error) {
	if f.QueryClientStateFn == nil {
		return nil, unset("QueryClientState")
	}
	return f.QueryClientStateFn(ctx, clientID)
}

func (f *Fake) QueryConsensusState(ctx context.Context, clientID string, height types.Height) (*ibctm.ConsensusState, types.Height, error) {
	if f.QueryConsensusStateFn == nil {
		return nil, types.Height{}, unset("QueryConsensusState")
	}
	return f.QueryConsensusStateFn(ctx, clientID, height)
}

func (f *Fake) QueryCounterparty(ctx context.Context, clientID string) (string, error) {
	if f.QueryCounterpartyFn == nil {
		return "", unset("QueryCounterparty")
	}
	return f.QueryCounterpartyFn(ctx, clientID)
}

func (f *Fake) QueryRawProof(ctx context.Context, key []byte, proofHeight uint64) (types.RawProof, error) {
	if f.QueryRawProofFn == nil {
		return types.RawProof{}, unset("QueryRawProof")
	}
	return f.QueryRawProofFn(ctx, key, proofHeight)
}

func (f *Fake) QuerySentPackets(ctx context.Context, version types.Version, localClient string, minHeight uint64) ([]types.PacketInfo, error) {
	if f.QuerySentPacketsFn == nil {
		return nil, unset("QuerySentPackets")
	}
	return f.QuerySentPacketsFn(ctx, version, localClient, minHeight)
}

func (f *Fake) QueryWrittenAcks(ctx context.Context, version types.Version, localClient string, minHeight uint64) ([]types.AckInfo, error) {
	if f.QueryWrittenAcksFn == nil {
		return nil, unset("QueryWrittenAcks")
	}
	return f.QueryWrittenAcksFn(ctx, version, localClient, minHeight)
}

func (f *Fake) QueryUnreceivedPackets(ctx context.Context, version types.Version, id string, sequences []uint64) ([]uint64, error) {
	if f.QueryUnreceivedPacketsFn == nil {
		return nil, unset("QueryUnreceivedPackets")
	}
	return f.QueryUnreceivedPacketsFn(ctx, version, id, sequences)
}

func (f *Fake) QueryUnreceivedAcks(ctx context.Context, version types.Version, id string, sequences []uint64) ([]uint64, error) {
	if f.QueryUnreceivedAcksFn == nil {
		return nil, unset("QueryUnreceivedAcks")
	}
	return f.QueryUnreceivedAcksFn(ctx, version, id, sequences)
}

func (f *Fake) QueryPacketCommitment(ctx context.Context, version types.Version, id string, sequence uint64) ([]byte, error) {
	if f.QueryPacketCommitmentFn == nil {
		return nil, unset("QueryPacketCommitment")
	}
	return f.QueryPacketCommitmentFn(ctx, version, id, sequence)
}

func (f *Fake) QueryConnection(ctx context.Context, connectionID string) (*connectiontypes.ConnectionEnd, error) {
	if f.QueryConnectionFn == nil {
		return nil, unset("QueryConnection")
	}
	return f.QueryConnectionFn(ctx, connectionID)
}

func (f *Fake) QueryChannel(ctx context.Context, portID, channelID string) (*channeltypes.Channel, error) {
	if f.QueryChannelFn == nil {
		return nil, unset("QueryChannel")
	}
	return f.QueryChannelFn(ctx, portID, channelID)
}

func (f *Fake) QueryNextSequenceRecv(ctx context.Context, portID, channelID string) (uint64, error) {
	if f.QueryNextSequenceRecvFn == nil {
		return 0, unset("QueryNextSequenceRecv")
	}
	return f.QueryNextSequenceRecvFn(ctx, portID, channelID)
}

func (f *Fake) ConnOpenInit(context.Context, string, string) (string, error) {
	return "", unset("ConnOpenInit")
}

func (f *Fake) ConnOpenTry(context.Context, string, string, string, types.RawProof) (string, error) {
	return "", unset("ConnOpenTry")
}

func (f *Fake) ConnOpenAck(context.Context, string, string, types.RawProof) error {
	return unset("ConnOpenAck")
}

func (f *Fake) ConnOpenConfirm(context.Context, string, types.RawProof) error {
	return unset("ConnOpenConfirm")
}

func (f *Fake) ChanOpenInit(context.Context, string, string, string, string, channeltypes.Order) (string, error) {
	return "", unset("ChanOpenInit")
}

func (f *Fake) ChanOpenTry(context.Context, string, string, string, string, string, string, channeltypes.Order, types.RawProof) (string, error) {
	return "", unset("ChanOpenTry")
}

func (f *Fake) ChanOpenAck(context.Context, string, string, string, string, types.RawProof) error {
	return unset("ChanOpenAck")
}

func (f *Fake) ChanOpenConfirm(context.Context, string, string, types.RawProof) error {
	return unset("ChanOpenConfirm")
}

func (f *Fake) RecvPacketsV1(ctx context.Context, packets []types.RecvPacketV1) (types.TxResult, error) {
	if f.RecvPacketsV1Fn == nil {
		return types.TxResult{}, unset("RecvPacketsV1")
	}
	return f.RecvPacketsV1Fn(ctx, packets)
}

func (f *Fake) AckPacketsV1(ctx context.Context, acks []types.AckPacketV1) (types.TxResult, error) {
	if f.AckPacketsV1Fn == nil {
		return types.TxResult{}, unset("AckPacketsV1")
	}
	return f.AckPacketsV1Fn(ctx, acks)
}

func (f *Fake) TimeoutPacketsV1(ctx context.Context, timeouts []types.TimeoutPacketV1) (types.TxResult, error) {
	if f.TimeoutPacketsV1Fn == nil {
		return types.TxResult{}, unset("TimeoutPacketsV1")
	}
	return f.TimeoutPacketsV1Fn(ctx, timeouts)
}

func (f *Fake) RecvPacketsV2(ctx context.Context, packets []types.RecvPacketV2) (types.TxResult, error) {
	if f.RecvPacketsV2Fn == nil {
		return types.TxResult{}, unset("RecvPacketsV2")
	}
	return f.RecvPacketsV2Fn(ctx, packets)
}

func (f *Fake) AckPacketsV2(ctx context.Context, acks []types.AckPacketV2) (types.TxResult, error) {
	if f.AckPacketsV2Fn == nil {
		return types.TxResult{}, unset("AckPacketsV2")
	}
	return f.AckPacketsV2Fn(ctx, acks)
}

func (f *Fake) TimeoutPacketsV2(ctx context.Context, timeouts []types.TimeoutPacketV2) (types.TxResult, error) {
	if f.TimeoutPacketsV2Fn == nil {
		return types.TxResult{}, unset("TimeoutPacketsV2")
	}
	return f.TimeoutPacketsV2Fn(ctx, timeouts)
}
