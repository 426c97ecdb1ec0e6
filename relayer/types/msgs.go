package types

import (
	abcitypes "github.com/cometbft/cometbft/abci/types"
	channeltypes "github.com/cosmos/ibc-go/v10/modules/core/04-channel/types"
	channeltypesv2 "github.com/cosmos/ibc-go/v10/modules/core/04-channel/v2/types"
)

// RawProof is an ICS-23 membership or non-membership proof for one key, already
// verified for shape and re-encoded as a MerkleProof. Height is the proof height the
// counterparty will verify against; the underlying state was queried at Height-1.
type RawProof struct {
	Value  []byte
	Proof  []byte
	Height Height
}

// TxResult is the outcome of one submitted transaction.
type TxResult struct {
	Height uint64
	// TxHash is uppercase hex.
	TxHash string
	Code   uint32
	RawLog string
	Events []abcitypes.Event
}

// RecvPacketV1 pairs a v1 packet with its commitment proof for submission on the
// destination chain.
type RecvPacketV1 struct {
	Packet channeltypes.Packet
	Proof  RawProof
}

// AckPacketV1 pairs a v1 packet with its written acknowledgement and the ack proof for
// submission on the source chain.
type AckPacketV1 struct {
	Packet          channeltypes.Packet
	Acknowledgement []byte
	Proof           RawProof
}

// TimeoutPacketV1 pairs a v1 packet with a non-receipt proof for submission on the
// source chain. NextSequenceRecv is required for ordered channels.
type TimeoutPacketV1 struct {
	Packet           channeltypes.Packet
	Proof            RawProof
	NextSequenceRecv uint64
}

// RecvPacketV2 pairs a v2 packet with its commitment proof.
type RecvPacketV2 struct {
	Packet channeltypesv2.Packet
	Proof  RawProof
}

// AckPacketV2 pairs a v2 packet with its acknowledgement and ack proof.
type AckPacketV2 struct {
	Packet          channeltypesv2.Packet
	Acknowledgement []byte
	Proof           RawProof
}

// TimeoutPacketV2 pairs a v2 packet with a non-receipt proof.
type TimeoutPacketV2 struct {
	Packet channeltypesv2.Packet
	Proof  RawProof
}

// HeaderInfo is the light-client-relevant part of one block header.
type HeaderInfo struct {
	Height             Height
	TimeUnixNano       int64
	AppHash            []byte
	ValidatorsHash     []byte
	NextValidatorsHash []byte
}
