package client

import (
	"encoding/hex"
	"testing"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
	channeltypes "github.com/cosmos/ibc-go/v10/modules/core/04-channel/types"
	channeltypesv2 "github.com/cosmos/ibc-go/v10/modules/core/04-channel/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenize-x/tx-relayer/relayer/types"
)

func v1SendEvent(p channeltypes.Packet) abcitypes.Event {
	return abcitypes.Event{
		Type: eventSendPacket,
		Attributes: []abcitypes.EventAttribute{
			{Key: attrSequence, Value: "1"},
			{Key: attrSrcPort, Value: p.SourcePort},
			{Key: attrSrcChannel, Value: p.SourceChannel},
			{Key: attrDstPort, Value: p.DestinationPort},
			{Key: attrDstChannel, Value: p.DestinationChannel},
			{Key: attrDataHex, Value: hex.EncodeToString(p.Data)},
			{Key: attrTimeoutHeight, Value: "1-500"},
			{Key: attrTimeoutTimestamp, Value: "1700000000000000000"},
		},
	}
}

func resultTx(height int64, events ...abcitypes.Event) *coretypes.ResultTx {
	return &coretypes.ResultTx{
		Hash:     []byte{0xab, 0xcd},
		Height:   height,
		TxResult: abcitypes.ExecTxResult{Events: events},
	}
}

func TestParseSentPacketsV1RoundTrip(t *testing.T) {
	t.Parallel()

	packet := channeltypes.Packet{
		Sequence:           1,
		SourcePort:         "transfer",
		SourceChannel:      "channel-0",
		DestinationPort:    "transfer",
		DestinationChannel: "channel-3",
		Data:               []byte("payload"),
		TimeoutHeight:      clienttypes.NewHeight(1, 500),
		TimeoutTimestamp:   1_700_000_000_000_000_000,
	}

	parsed, err := parseSentPackets(types.V1, []*coretypes.ResultTx{resultTx(42, v1SendEvent(packet))})
	require.NoError(t, err)
	require.Len(t, parsed, 1)

	assert.Equal(t, types.V1, parsed[0].Version)
	assert.Equal(t, packet, parsed[0].V1)
	assert.Equal(t, uint64(42), parsed[0].Height)
	assert.Equal(t, "ABCD", parsed[0].TxHash)
}

func TestParseSentPacketsV2RoundTrip(t *testing.T) {
	t.Parallel()

	packet := channeltypesv2.Packet{
		Sequence:          1,
		SourceClient:      "07-tendermint-0",
		DestinationClient: "07-tendermint-1",
		TimeoutTimestamp:  1_700_000_600,
		Payloads: []channeltypesv2.Payload{{
			SourcePort:      "transfer",
			DestinationPort: "transfer",
			Version:         "ics20-1",
			Encoding:        "application/x-protobuf",
			Value:           []byte("payload"),
		}},
	}
	packetBz, err := packet.Marshal()
	require.NoError(t, err)

	event := abcitypes.Event{
		Type: eventSendPacket,
		Attributes: []abcitypes.EventAttribute{
			{Key: attrSrcClient, Value: packet.SourceClient},
			{Key: attrDstClient, Value: packet.DestinationClient},
			{Key: attrSequence, Value: "1"},
			{Key: attrEncodedPacket, Value: hex.EncodeToString(packetBz)},
		},
	}

	parsed, err := parseSentPackets(types.V2, []*coretypes.ResultTx{resultTx(99, event)})
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, packet, parsed[0].V2)
	assert.Equal(t, uint64(99), parsed[0].Height)
}

func TestParsePacketEventMissingAttribute(t *testing.T) {
	t.Parallel()

	event := abcitypes.Event{
		Type: eventSendPacket,
		Attributes: []abcitypes.EventAttribute{
			{Key: attrSequence, Value: "1"},
			{Key: attrSrcPort, Value: "transfer"},
			// src channel missing
		},
	}
	_, err := parsePacketEvent(types.V1, event)
	require.ErrorIs(t, err, types.ErrEventMalformed)
}

func TestParsePacketEventRejectsNoTimeout(t *testing.T) {
	t.Parallel()

	packet := channeltypes.Packet{
		SourcePort:         "transfer",
		SourceChannel:      "channel-0",
		DestinationPort:    "transfer",
		DestinationChannel: "channel-3",
	}
	event := v1SendEvent(packet)
	// Zero timeout height parses as "absent"; with a zero timestamp on top the packet
	// is invalid.
	for i := range event.Attributes {
		switch event.Attributes[i].Key {
		case attrTimeoutHeight:
			event.Attributes[i].Value = "0-0"
		case attrTimeoutTimestamp:
			event.Attributes[i].Value = "0"
		}
	}
	_, err := parsePacketEvent(types.V1, event)
	require.ErrorIs(t, err, types.ErrEventMalformed)
}

func TestParsePacketEventRejectsZeroSequence(t *testing.T) {
	t.Parallel()

	event := v1SendEvent(channeltypes.Packet{
		SourcePort: "transfer", SourceChannel: "channel-0",
		DestinationPort: "transfer", DestinationChannel: "channel-3",
	})
	event.Attributes[0].Value = "0"
	_, err := parsePacketEvent(types.V1, event)
	require.ErrorIs(t, err, types.ErrEventMalformed)
}

func TestParseWrittenAcksV1(t *testing.T) {
	t.Parallel()

	packet := channeltypes.Packet{
		Sequence:           1,
		SourcePort:         "transfer",
		SourceChannel:      "channel-0",
		DestinationPort:    "transfer",
		DestinationChannel: "channel-3",
		TimeoutHeight:      clienttypes.NewHeight(1, 500),
		TimeoutTimestamp:   1_700_000_000_000_000_000,
	}
	event := v1SendEvent(packet)
	event.Type = eventWriteAck
	event.Attributes = append(event.Attributes, abcitypes.EventAttribute{
		Key: attrAckHex, Value: hex.EncodeToString([]byte("ack-bytes")),
	})

	acks, err := parseWrittenAcks(types.V1, []*coretypes.ResultTx{resultTx(50, event)})
	require.NoError(t, err)
	require.Len(t, acks, 1)
	assert.Equal(t, []byte("ack-bytes"), acks[0].Acknowledgement)
	assert.Equal(t, uint64(1), acks[0].Packet.Sequence())
	assert.Equal(t, uint64(50), acks[0].Height)
}

func TestParseWrittenAcksV2(t *testing.T) {
	t.Parallel()

	packet := channeltypesv2.Packet{
		Sequence:          2,
		SourceClient:      "07-tendermint-0",
		DestinationClient: "07-tendermint-1",
		TimeoutTimestamp:  1_700_000_600,
	}
	packetBz, err := packet.Marshal()
	require.NoError(t, err)
	ack := channeltypesv2.Acknowledgement{AppAcknowledgements: [][]byte{[]byte("ok")}}
	ackBz, err := ack.Marshal()
	require.NoError(t, err)

	event := abcitypes.Event{
		Type: eventWriteAck,
		Attributes: []abcitypes.EventAttribute{
			{Key: attrDstClient, Value: packet.DestinationClient},
			{Key: attrEncodedPacket, Value: hex.EncodeToString(packetBz)},
			{Key: attrEncodedAck, Value: hex.EncodeToString(ackBz)},
		},
	}

	acks, err := parseWrittenAcks(types.V2, []*coretypes.ResultTx{resultTx(60, event)})
	require.NoError(t, err)
	require.Len(t, acks, 1)
	assert.Equal(t, ackBz, acks[0].Acknowledgement)
	assert.Equal(t, packet, acks[0].Packet.V2)
}

func TestEventQueries(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"send_packet.packet_source_client='07-tendermint-0' AND tx.height>=10",
		sentPacketsQuery(types.V2, "07-tendermint-0", 10))
	assert.Equal(t,
		"send_packet.packet_sequence EXISTS AND tx.height>=1",
		sentPacketsQuery(types.V1, "", 1))
	assert.Equal(t,
		"write_acknowledgement.packet_dest_client='07-tendermint-3' AND tx.height>=98",
		writtenAcksQuery(types.V2, "07-tendermint-3", 98))
	assert.Equal(t,
		"write_acknowledgement.packet_sequence EXISTS AND tx.height>=98",
		writtenAcksQuery(types.V1, "", 98))
}
