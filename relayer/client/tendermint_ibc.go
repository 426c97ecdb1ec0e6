package client

import (
	"context"
	"strings"

	rpcclient "github.com/cometbft/cometbft/rpc/client"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	gogoproto "github.com/cosmos/gogoproto/proto"
	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
	clientv2types "github.com/cosmos/ibc-go/v10/modules/core/02-client/v2/types"
	connectiontypes "github.com/cosmos/ibc-go/v10/modules/core/03-connection/types"
	channeltypes "github.com/cosmos/ibc-go/v10/modules/core/04-channel/types"
	channeltypesv2 "github.com/cosmos/ibc-go/v10/modules/core/04-channel/v2/types"
	commitmenttypes "github.com/cosmos/ibc-go/v10/modules/core/23-commitment/types"
	host "github.com/cosmos/ibc-go/v10/modules/core/24-host"
	hostv2 "github.com/cosmos/ibc-go/v10/modules/core/24-host/v2"
	ibctm "github.com/cosmos/ibc-go/v10/modules/light-clients/07-tendermint"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/tokenize-x/tx-relayer/pkg/retry"
	"github.com/tokenize-x/tx-relayer/relayer/types"
)

const tmClientStateTypeURL = "/ibc.lightclients.tendermint.v1.ClientState"

// CreateClient submits a create-client tx and returns the new client id.
func (c *Tendermint) CreateClient(ctx context.Context, clientState *ibctm.ClientState, consensusState *ibctm.ConsensusState) (string, error) {
	msg, err := clienttypes.NewMsgCreateClient(clientState, consensusState, c.signerStr)
	if err != nil {
		return "", errors.Wrap(err, "building create-client msg")
	}
	result, err := c.submit(ctx, []sdk.Msg{msg})
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

// UpdateClient submits a header update for clientID.
func (c *Tendermint) UpdateClient(ctx context.Context, clientID string, header *ibctm.Header) error {
	msg, err := clienttypes.NewMsgUpdateClient(clientID, header, c.signerStr)
	if err != nil {
		return errors.Wrap(err, "building update-client msg")
	}
	result, err := c.submit(ctx, []sdk.Msg{msg})
	if err != nil {
		return err
	}
	c.logger.Debug("updated light client",
		"client_id", clientID,
		"to_height", header.SignedHeader.Header.Height,
		"tx", result.TxHash)
	return nil
}

// RegisterCounterparty binds clientID to the remote client id (IBC v2).
func (c *Tendermint) RegisterCounterparty(ctx context.Context, clientID, counterpartyClientID string, merklePrefix [][]byte) error {
	msg := clientv2types.NewMsgRegisterCounterparty(clientID, merklePrefix, counterpartyClientID, c.signerStr)
	_, err := c.submit(ctx, []sdk.Msg{msg})
	return err
}

// QueryClientState returns the tendermint client state stored under clientID.
func (c *Tendermint) QueryClientState(ctx context.Context, clientID string) (*ibctm.ClientState, error) {
	resp, err := retry.Get(ctx, c.cfg.Retry, func() (*clienttypes.QueryClientStateResponse, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return clienttypes.NewQueryClient(c.clientCtx).ClientState(ctx, &clienttypes.QueryClientStateRequest{ClientId: clientID})
	})
	if err != nil {
		return nil, mapQueryErr(err, "client state %s", clientID)
	}
	if resp.ClientState.TypeUrl != tmClientStateTypeURL {
		return nil, errors.Wrapf(types.ErrUnsupported, "client %s is %s, not a tendermint client", clientID, resp.ClientState.TypeUrl)
	}
	var clientState ibctm.ClientState
	if err := gogoproto.Unmarshal(resp.ClientState.Value, &clientState); err != nil {
		return nil, errors.Wrap(err, "decoding client state")
	}
	return &clientState, nil
}

// QueryConsensusState returns the consensus state of clientID at height, or the latest
// one when height is zero, together with the height it is stored at.
func (c *Tendermint) QueryConsensusState(ctx context.Context, clientID string, height types.Height) (*ibctm.ConsensusState, types.Height, error) {
	if height.IsZero() {
		clientState, err := c.QueryClientState(ctx, clientID)
		if err != nil {
			return nil, types.Height{}, err
		}
		height = clientState.LatestHeight
	}
	resp, err := retry.Get(ctx, c.cfg.Retry, func() (*clienttypes.QueryConsensusStateResponse, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return clienttypes.NewQueryClient(c.clientCtx).ConsensusState(ctx, &clienttypes.QueryConsensusStateRequest{
			ClientId:       clientID,
			RevisionNumber: height.RevisionNumber,
			RevisionHeight: height.RevisionHeight,
		})
	})
	if err != nil {
		return nil, types.Height{}, mapQueryErr(err, "consensus state %s at %s", clientID, height)
	}
	var consensusState ibctm.ConsensusState
	if err := gogoproto.Unmarshal(resp.ConsensusState.Value, &consensusState); err != nil {
		return nil, types.Height{}, errors.Wrap(err, "decoding consensus state")
	}
	return &consensusState, height, nil
}

// QueryCounterparty returns the counterparty client id registered for clientID.
func (c *Tendermint) QueryCounterparty(ctx context.Context, clientID string) (string, error) {
	resp, err := retry.Get(ctx, c.cfg.Retry, func() (*clientv2types.QueryCounterpartyInfoResponse, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return clientv2types.NewQueryClient(c.clientCtx).CounterpartyInfo(ctx, &clientv2types.QueryCounterpartyInfoRequest{ClientId: clientID})
	})
	if err != nil {
		return "", mapQueryErr(err, "counterparty of %s", clientID)
	}
	if resp.CounterpartyInfo == nil || resp.CounterpartyInfo.ClientId == "" {
		return "", errors.Wrapf(types.ErrNotFound, "no counterparty registered for %s", clientID)
	}
	return resp.CounterpartyInfo.ClientId, nil
}

// QueryRawProof queries the IBC store key at proofHeight-1 with proof and verifies the
// two-op shape before re-encoding it as a MerkleProof. The app hash proving state at
// height H lives in header H+1, hence the offset.
func (c *Tendermint) QueryRawProof(ctx context.Context, key []byte, proofHeight uint64) (types.RawProof, error) {
	if proofHeight < 2 {
		return types.RawProof{}, errors.Wrapf(types.ErrConfig, "proof height %d too low", proofHeight)
	}
	return retry.Get(ctx, c.cfg.Retry, func() (types.RawProof, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		resp, err := c.queryRPC.ABCIQueryWithOptions(ctx, "/store/"+ibcStoreName+"/key", key, rpcclient.ABCIQueryOptions{
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

// QuerySentPackets returns packets sent on this chain at or after minHeight.
func (c *Tendermint) QuerySentPackets(ctx context.Context, version types.Version, localClient string, minHeight uint64) ([]types.PacketInfo, error) {
	txs, err := c.searchTxs(ctx, sentPacketsQuery(version, localClient, minHeight))
	if err != nil {
		return nil, err
	}
	return parseSentPackets(version, txs)
}

// QueryWrittenAcks returns acknowledgements written on this chain at or after minHeight.
func (c *Tendermint) QueryWrittenAcks(ctx context.Context, version types.Version, localClient string, minHeight uint64) ([]types.AckInfo, error) {
	txs, err := c.searchTxs(ctx, writtenAcksQuery(version, localClient, minHeight))
	if err != nil {
		return nil, err
	}
	return parseWrittenAcks(version, txs)
}

// searchTxs pages through tx_search results in ascending height order.
func (c *Tendermint) searchTxs(ctx context.Context, query string) ([]*coretypes.ResultTx, error) {
	return retry.Get(ctx, c.cfg.Retry, func() ([]*coretypes.ResultTx, error) {
		var txs []*coretypes.ResultTx
		page, perPage := 1, eventsPerPage
		for {
			ctx, cancel := c.withTimeout(ctx)
			res, err := c.queryRPC.TxSearch(ctx, query, false, &page, &perPage, "asc")
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

// QueryUnreceivedPackets filters sequences down to those not yet received here.
func (c *Tendermint) QueryUnreceivedPackets(ctx context.Context, version types.Version, id string, sequences []uint64) ([]uint64, error) {
	if len(sequences) == 0 {
		return nil, nil
	}
	if version == types.V2 {
		resp, err := retry.Get(ctx, c.cfg.Retry, func() (*channeltypesv2.QueryUnreceivedPacketsResponse, error) {
			ctx, cancel := c.withTimeout(ctx)
			defer cancel()
			return channeltypesv2.NewQueryClient(c.clientCtx).UnreceivedPackets(ctx, &channeltypesv2.QueryUnreceivedPacketsRequest{
				ClientId:  id,
				Sequences: sequences,
			})
		})
		if err != nil {
			return nil, mapQueryErr(err, "unreceived packets on %s", id)
		}
		return resp.Sequences, nil
	}

	portID, channelID, err := splitV1ID(id)
	if err != nil {
		return nil, err
	}
	resp, err := retry.Get(ctx, c.cfg.Retry, func() (*channeltypes.QueryUnreceivedPacketsResponse, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return channeltypes.NewQueryClient(c.clientCtx).UnreceivedPackets(ctx, &channeltypes.QueryUnreceivedPacketsRequest{
			PortId:                    portID,
			ChannelId:                 channelID,
			PacketCommitmentSequences: sequences,
		})
	})
	if err != nil {
		return nil, mapQueryErr(err, "unreceived packets on %s", id)
	}
	return resp.Sequences, nil
}

// QueryUnreceivedAcks filters sequences down to those whose ack has not yet been
// processed on this (source) chain. For v2 the packet commitment endpoint is used: a
// still-present commitment means the ack has not been relayed back.
func (c *Tendermint) QueryUnreceivedAcks(ctx context.Context, version types.Version, id string, sequences []uint64) ([]uint64, error) {
	if len(sequences) == 0 {
		return nil, nil
	}
	if version == types.V2 {
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

	portID, channelID, err := splitV1ID(id)
	if err != nil {
		return nil, err
	}
	resp, err := retry.Get(ctx, c.cfg.Retry, func() (*channeltypes.QueryUnreceivedAcksResponse, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return channeltypes.NewQueryClient(c.clientCtx).UnreceivedAcks(ctx, &channeltypes.QueryUnreceivedAcksRequest{
			PortId:             portID,
			ChannelId:          channelID,
			PacketAckSequences: sequences,
		})
	})
	if err != nil {
		return nil, mapQueryErr(err, "unreceived acks on %s", id)
	}
	return resp.Sequences, nil
}

// QueryPacketCommitment returns the commitment of a sent packet, or nil when absent.
func (c *Tendermint) QueryPacketCommitment(ctx context.Context, version types.Version, id string, sequence uint64) ([]byte, error) {
	if version == types.V2 {
		resp, err := retry.Get(ctx, c.cfg.Retry, func() (*channeltypesv2.QueryPacketCommitmentResponse, error) {
			ctx, cancel := c.withTimeout(ctx)
			defer cancel()
			return channeltypesv2.NewQueryClient(c.clientCtx).PacketCommitment(ctx, &channeltypesv2.QueryPacketCommitmentRequest{
				ClientId: id,
				Sequence: sequence,
			})
		})
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, mapQueryErr(err, "packet commitment %s/%d", id, sequence)
		}
		return resp.Commitment, nil
	}

	portID, channelID, err := splitV1ID(id)
	if err != nil {
		return nil, err
	}
	resp, err := retry.Get(ctx, c.cfg.Retry, func() (*channeltypes.QueryPacketCommitmentResponse, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return channeltypes.NewQueryClient(c.clientCtx).PacketCommitment(ctx, &channeltypes.QueryPacketCommitmentRequest{
			PortId:    portID,
			ChannelId: channelID,
			Sequence:  sequence,
		})
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, mapQueryErr(err, "packet commitment %s/%d", id, sequence)
	}
	return resp.Commitment, nil
}

// QueryConnection returns the connection end stored under connectionID.
func (c *Tendermint) QueryConnection(ctx context.Context, connectionID string) (*connectiontypes.ConnectionEnd, error) {
	resp, err := retry.Get(ctx, c.cfg.Retry, func() (*connectiontypes.QueryConnectionResponse, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return connectiontypes.NewQueryClient(c.clientCtx).Connection(ctx, &connectiontypes.QueryConnectionRequest{ConnectionId: connectionID})
	})
	if err != nil {
		return nil, mapQueryErr(err, "connection %s", connectionID)
	}
	return resp.Connection, nil
}

// QueryChannel returns the channel end stored under (portID, channelID).
func (c *Tendermint) QueryChannel(ctx context.Context, portID, channelID string) (*channeltypes.Channel, error) {
	resp, err := retry.Get(ctx, c.cfg.Retry, func() (*channeltypes.QueryChannelResponse, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return channeltypes.NewQueryClient(c.clientCtx).Channel(ctx, &channeltypes.QueryChannelRequest{
			PortId:    portID,
			ChannelId: channelID,
		})
	})
	if err != nil {
		return nil, mapQueryErr(err, "channel %s/%s", portID, channelID)
	}
	return resp.Channel, nil
}

// QueryNextSequenceRecv returns the next receive sequence of an ordered channel.
func (c *Tendermint) QueryNextSequenceRecv(ctx context.Context, portID, channelID string) (uint64, error) {
	resp, err := retry.Get(ctx, c.cfg.Retry, func() (*channeltypes.QueryNextSequenceReceiveResponse, error) {
		ctx, cancel := c.withTimeout(ctx)
		defer cancel()
		return channeltypes.NewQueryClient(c.clientCtx).NextSequenceReceive(ctx, &channeltypes.QueryNextSequenceReceiveRequest{
			PortId:    portID,
			ChannelId: channelID,
		})
	})
	if err != nil {
		return 0, mapQueryErr(err, "next sequence recv %s/%s", portID, channelID)
	}
	return resp.NextSequenceReceive, nil
}

// ibcMerklePrefix is the commitment prefix of the IBC store on cosmos-sdk chains.
func ibcMerklePrefix() commitmenttypes.MerklePrefix {
	return commitmenttypes.NewMerklePrefix([]byte(ibcStoreName))
}

// ConnOpenInit starts the connection handshake and returns the new connection id.
func (c *Tendermint) ConnOpenInit(ctx context.Context, clientID, counterpartyClientID string) (string, error) {
	msg := &connectiontypes.MsgConnectionOpenInit{
		ClientId:     clientID,
		Counterparty: connectiontypes.NewCounterparty(counterpartyClientID, "", ibcMerklePrefix()),
		Version:      connectiontypes.DefaultIBCVersion,
		DelayPeriod:  0,
		Signer:       c.signerStr,
	}
	result, err := c.submit(ctx, []sdk.Msg{msg})
	if err != nil {
		return "", err
	}
	return eventValue(result, "connection_open_init", "connection_id")
}

// ConnOpenTry answers a counterparty's init with a proof of it and returns the new
// connection id on this chain.
func (c *Tendermint) ConnOpenTry(ctx context.Context, clientID, counterpartyClientID, counterpartyConnectionID string, proofInit types.RawProof) (string, error) {
	msg := &connectiontypes.MsgConnectionOpenTry{
		ClientId:             clientID,
		Counterparty:         connectiontypes.NewCounterparty(counterpartyClientID, counterpartyConnectionID, ibcMerklePrefix()),
		DelayPeriod:          0,
		CounterpartyVersions: []*connectiontypes.Version{connectiontypes.DefaultIBCVersion},
		ProofHeight:          proofInit.Height,
		ProofInit:            proofInit.Proof,
		Signer:               c.signerStr,
	}
	result, err := c.submit(ctx, []sdk.Msg{msg})
	if err != nil {
		return "", err
	}
	return eventValue(result, "connection_open_try", "connection_id")
}

// ConnOpenAck acknowledges the counterparty's try step.
func (c *Tendermint) ConnOpenAck(ctx context.Context, connectionID, counterpartyConnectionID string, proofTry types.RawProof) error {
	msg := &connectiontypes.MsgConnectionOpenAck{
		ConnectionId:             connectionID,
		CounterpartyConnectionId: counterpartyConnectionID,
		Version:                  connectiontypes.DefaultIBCVersion,
		ProofHeight:              proofTry.Height,
		ProofTry:                 proofTry.Proof,
		Signer:                   c.signerStr,
	}
	_, err := c.submit(ctx, []sdk.Msg{msg})
	return err
}

// ConnOpenConfirm finishes the handshake on the try side.
func (c *Tendermint) ConnOpenConfirm(ctx context.Context, connectionID string, proofAck types.RawProof) error {
	msg := &connectiontypes.MsgConnectionOpenConfirm{
		ConnectionId: connectionID,
		ProofAck:     proofAck.Proof,
		ProofHeight:  proofAck.Height,
		Signer:       c.signerStr,
	}
	_, err := c.submit(ctx, []sdk.Msg{msg})
	return err
}

// ChanOpenInit starts the channel handshake and returns the new channel id.
func (c *Tendermint) ChanOpenInit(ctx context.Context, portID, version, connectionID, counterpartyPortID string, ordering channeltypes.Order) (string, error) {
	msg := &channeltypes.MsgChannelOpenInit{
		PortId: portID,
		Channel: channeltypes.NewChannel(
			channeltypes.INIT, ordering,
			channeltypes.NewCounterparty(counterpartyPortID, ""),
			[]string{connectionID}, version,
		),
		Signer: c.signerStr,
	}
	result, err := c.submit(ctx, []sdk.Msg{msg})
	if err != nil {
		return "", err
	}
	return eventValue(result, "channel_open_init", "channel_id")
}

// ChanOpenTry answers a counterparty's channel init and returns the new channel id.
func (c *Tendermint) ChanOpenTry(ctx context.Context, portID, version, connectionID, counterpartyPortID, counterpartyChannelID, counterpartyVersion string, ordering channeltypes.Order, proofInit types.RawProof) (string, error) {
	msg := &channeltypes.MsgChannelOpenTry{
		PortId: portID,
		Channel: channeltypes.NewChannel(
			channeltypes.TRYOPEN, ordering,
			channeltypes.NewCounterparty(counterpartyPortID, counterpartyChannelID),
			[]string{connectionID}, version,
		),
		CounterpartyVersion: counterpartyVersion,
		ProofInit:           proofInit.Proof,
		ProofHeight:         proofInit.Height,
		Signer:              c.signerStr,
	}
	result, err := c.submit(ctx, []sdk.Msg{msg})
	if err != nil {
		return "", err
	}
	return eventValue(result, "channel_open_try", "channel_id")
}

// ChanOpenAck acknowledges the counterparty's channel try step.
func (c *Tendermint) ChanOpenAck(ctx context.Context, portID, channelID, counterpartyChannelID, counterpartyVersion string, proofTry types.RawProof) error {
	msg := &channeltypes.MsgChannelOpenAck{
		PortId:                portID,
		ChannelId:             channelID,
		CounterpartyChannelId: counterpartyChannelID,
		CounterpartyVersion:   counterpartyVersion,
		ProofTry:              proofTry.Proof,
		ProofHeight:           proofTry.Height,
		Signer:                c.signerStr,
	}
	_, err := c.submit(ctx, []sdk.Msg{msg})
	return err
}

// ChanOpenConfirm finishes the channel handshake on the try side.
func (c *Tendermint) ChanOpenConfirm(ctx context.Context, portID, channelID string, proofAck types.RawProof) error {
	msg := &channeltypes.MsgChannelOpenConfirm{
		PortId:      portID,
		ChannelId:   channelID,
		ProofAck:    proofAck.Proof,
		ProofHeight: proofAck.Height,
		Signer:      c.signerStr,
	}
	_, err := c.submit(ctx, []sdk.Msg{msg})
	return err
}

// RecvPacketsV1 submits a batch of v1 packets with their commitment proofs.
func (c *Tendermint) RecvPacketsV1(ctx context.Context, packets []types.RecvPacketV1) (types.TxResult, error) {
	msgs := lo.Map(packets, func(p types.RecvPacketV1, _ int) sdk.Msg {
		return &channeltypes.MsgRecvPacket{
			Packet:          p.Packet,
			ProofCommitment: p.Proof.Proof,
			ProofHeight:     p.Proof.Height,
			Signer:          c.signerStr,
		}
	})
	return c.submit(ctx, msgs)
}

// AckPacketsV1 submits a batch of v1 acknowledgements with their ack proofs.
func (c *Tendermint) AckPacketsV1(ctx context.Context, acks []types.AckPacketV1) (types.TxResult, error) {
	msgs := lo.Map(acks, func(a types.AckPacketV1, _ int) sdk.Msg {
		return &channeltypes.MsgAcknowledgement{
			Packet:          a.Packet,
			Acknowledgement: a.Acknowledgement,
			ProofAcked:      a.Proof.Proof,
			ProofHeight:     a.Proof.Height,
			Signer:          c.signerStr,
		}
	})
	return c.submit(ctx, msgs)
}

// TimeoutPacketsV1 submits a batch of v1 timeouts with non-receipt proofs.
func (c *Tendermint) TimeoutPacketsV1(ctx context.Context, timeouts []types.TimeoutPacketV1) (types.TxResult, error) {
	msgs := lo.Map(timeouts, func(t types.TimeoutPacketV1, _ int) sdk.Msg {
		return &channeltypes.MsgTimeout{
			Packet:           t.Packet,
			ProofUnreceived:  t.Proof.Proof,
			ProofHeight:      t.Proof.Height,
			NextSequenceRecv: t.NextSequenceRecv,
			Signer:           c.signerStr,
		}
	})
	return c.submit(ctx, msgs)
}

// RecvPacketsV2 submits a batch of v2 packets with their commitment proofs.
func (c *Tendermint) RecvPacketsV2(ctx context.Context, packets []types.RecvPacketV2) (types.TxResult, error) {
	msgs := lo.Map(packets, func(p types.RecvPacketV2, _ int) sdk.Msg {
		return &channeltypesv2.MsgRecvPacket{
			Packet:          p.Packet,
			ProofCommitment: p.Proof.Proof,
			ProofHeight:     p.Proof.Height,
			Signer:          c.signerStr,
		}
	})
	return c.submit(ctx, msgs)
}

// AckPacketsV2 submits a batch of v2 acknowledgements. The stored acknowledgement bytes
// are the proto encoding of the v2 Acknowledgement written by the destination.
func (c *Tendermint) AckPacketsV2(ctx context.Context, acks []types.AckPacketV2) (types.TxResult, error) {
	msgs := make([]sdk.Msg, 0, len(acks))
	for _, a := range acks {
		var ack channeltypesv2.Acknowledgement
		if err := ack.Unmarshal(a.Acknowledgement); err != nil {
			return types.TxResult{}, errors.Wrapf(types.ErrEventMalformed, "decoding v2 acknowledgement: %s", err)
		}
		msgs = append(msgs, &channeltypesv2.MsgAcknowledgement{
			Packet:          a.Packet,
			Acknowledgement: ack,
			ProofAcked:      a.Proof.Proof,
			ProofHeight:     a.Proof.Height,
			Signer:          c.signerStr,
		})
	}
	return c.submit(ctx, msgs)
}

// TimeoutPacketsV2 submits a batch of v2 timeouts with non-receipt proofs.
func (c *Tendermint) TimeoutPacketsV2(ctx context.Context, timeouts []types.TimeoutPacketV2) (types.TxResult, error) {
	msgs := lo.Map(timeouts, func(t types.TimeoutPacketV2, _ int) sdk.Msg {
		return &channeltypesv2.MsgTimeout{
			Packet:          t.Packet,
			ProofUnreceived: t.Proof.Proof,
			ProofHeight:     t.Proof.Height,
			Signer:          c.signerStr,
		}
	})
	return c.submit(ctx, msgs)
}

// PacketCommitmentKey returns the IBC store key of a packet commitment for the given
// version and grouping id.
func PacketCommitmentKey(version types.Version, id string, sequence uint64) ([]byte, error) {
	if version == types.V2 {
		return hostv2.PacketCommitmentKey(id, sequence), nil
	}
	portID, channelID, err := splitV1ID(id)
	if err != nil {
		return nil, err
	}
	return host.PacketCommitmentKey(portID, channelID, sequence), nil
}

// PacketReceiptKey returns the IBC store key of a packet receipt.
func PacketReceiptKey(version types.Version, id string, sequence uint64) ([]byte, error) {
	if version == types.V2 {
		return hostv2.PacketReceiptKey(id, sequence), nil
	}
	portID, channelID, err := splitV1ID(id)
	if err != nil {
		return nil, err
	}
	return host.PacketReceiptKey(portID, channelID, sequence), nil
}

// PacketAcknowledgementKey returns the IBC store key of a written acknowledgement.
func PacketAcknowledgementKey(version types.Version, id string, sequence uint64) ([]byte, error) {
	if version == types.V2 {
		return hostv2.PacketAcknowledgementKey(id, sequence), nil
	}
	portID, channelID, err := splitV1ID(id)
	if err != nil {
		return nil, err
	}
	return host.PacketAcknowledgementKey(portID, channelID, sequence), nil
}

// NextSequenceRecvKey returns the IBC store key of an ordered channel's next receive
// sequence (v1 only).
func NextSequenceRecvKey(id string) ([]byte, error) {
	portID, channelID, err := splitV1ID(id)
	if err != nil {
		return nil, err
	}
	return host.NextSequenceRecvKey(portID, channelID), nil
}

// ConnectionKey returns the IBC store key of a connection end.
func ConnectionKey(connectionID string) []byte {
	return host.ConnectionKey(connectionID)
}

// ChannelKey returns the IBC store key of a channel end.
func ChannelKey(portID, channelID string) []byte {
	return host.ChannelKey(portID, channelID)
}

// splitV1ID splits a "port/channel" grouping id.
func splitV1ID(id string) (string, string, error) {
	portID, channelID, ok := strings.Cut(id, "/")
	if !ok || portID == "" || channelID == "" {
		return "", "", errors.Wrapf(types.ErrConfig, "malformed v1 id %q, expected port/channel", id)
	}
	return portID, channelID, nil
}

func isNotFound(err error) bool {
	if grpcstatus.Code(err) == codes.NotFound {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// mapQueryErr maps grpc not-found errors onto the relayer's ErrNotFound sentinel and
// wraps everything else with context.
func mapQueryErr(err error, format string, args ...interface{}) error {
	if isNotFound(err) {
		return errors.Wrapf(types.ErrNotFound, format+": %s", append(args, err)...)
	}
	return errors.Wrapf(err, format, args...)
}
