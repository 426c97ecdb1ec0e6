package client

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
	channeltypes "github.com/cosmos/ibc-go/v10/modules/core/04-channel/types"
	channeltypesv2 "github.com/cosmos/ibc-go/v10/modules/core/04-channel/v2/types"
	"github.com/pkg/errors"

	"github.com/tokenize-x/tx-relayer/relayer/types"
)

// IBC event types and attribute keys as emitted by ibc-go. The v1 attributes spell the
// packet out field by field; v2 events carry the proto-encoded packet in hex.
const (
	eventSendPacket = "send_packet"
	eventWriteAck   = "write_acknowledgement"

	attrSequence         = "packet_sequence"
	attrSrcPort          = "packet_src_port"
	attrSrcChannel       = "packet_src_channel"
	attrDstPort          = "packet_dst_port"
	attrDstChannel       = "packet_dst_channel"
	attrDataHex          = "packet_data_hex"
	attrAckHex           = "packet_ack_hex"
	attrTimeoutHeight    = "packet_timeout_height"
	attrTimeoutTimestamp = "packet_timeout_timestamp"

	attrSrcClient     = "packet_source_client"
	attrDstClient     = "packet_dest_client"
	attrEncodedPacket = "encoded_packet_hex"
	attrEncodedAck    = "encoded_acknowledgement_hex"
)

// sentPacketsQuery builds the tx_search query for send events at or after minHeight.
// For v2 the query is scoped to the local (source) client id; v1 queries chain-wide.
func sentPacketsQuery(version types.Version, localClient string, minHeight uint64) string {
	if version == types.V2 {
		return fmt.Sprintf("%s.%s='%s' AND tx.height>=%d", eventSendPacket, attrSrcClient, localClient, minHeight)
	}
	return fmt.Sprintf("%s.%s EXISTS AND tx.height>=%d", eventSendPacket, attrSequence, minHeight)
}

// writtenAcksQuery builds the tx_search query for write_acknowledgement events. On the
// chain writing the ack the local scope is the destination client of the packet.
func writtenAcksQuery(version types.Version, localClient string, minHeight uint64) string {
	if version == types.V2 {
		return fmt.Sprintf("%s.%s='%s' AND tx.height>=%d", eventWriteAck, attrDstClient, localClient, minHeight)
	}
	return fmt.Sprintf("%s.%s EXISTS AND tx.height>=%d", eventWriteAck, attrSequence, minHeight)
}

// parseSentPackets extracts packets from the send_packet events of the given txs.
func parseSentPackets(version types.Version, txs []*coretypes.ResultTx) ([]types.PacketInfo, error) {
	var packets []types.PacketInfo
	for _, tx := range txs {
		for _, event := range tx.TxResult.Events {
			if event.Type != eventSendPacket {
				continue
			}
			info, err := parsePacketEvent(version, event)
			if err != nil {
				return nil, err
			}
			info.Height = uint64(tx.Height)
			info.TxHash = strings.ToUpper(hex.EncodeToString(tx.Hash))
			packets = append(packets, info)
		}
	}
	return packets, nil
}

// parseWrittenAcks extracts acknowledgements from the write_acknowledgement events of
// the given txs.
func parseWrittenAcks(version types.Version, txs []*coretypes.ResultTx) ([]types.AckInfo, error) {
	var acks []types.AckInfo
	for _, tx := range txs {
		for _, event := range tx.TxResult.Events {
			if event.Type != eventWriteAck {
				continue
			}
			packet, err := parsePacketEvent(version, event)
			if err != nil {
				return nil, err
			}
			ackBz, err := parseAckData(version, event)
			if err != nil {
				return nil, err
			}
			acks = append(acks, types.AckInfo{
				Packet:          packet,
				Acknowledgement: ackBz,
				Height:          uint64(tx.Height),
				TxHash:          strings.ToUpper(hex.EncodeToString(tx.Hash)),
			})
		}
	}
	return acks, nil
}

// parsePacketEvent reassembles a packet from one send_packet or write_acknowledgement
// event. Missing required attributes and unparseable values fail with ErrEventMalformed.
func parsePacketEvent(version types.Version, event abcitypes.Event) (types.PacketInfo, error) {
	if version == types.V2 {
		encoded, err := requireAttr(event, attrEncodedPacket)
		if err != nil {
			return types.PacketInfo{}, err
		}
		bz, err := hex.DecodeString(encoded)
		if err != nil {
			return types.PacketInfo{}, errors.Wrapf(types.ErrEventMalformed, "decoding %s: %s", attrEncodedPacket, err)
		}
		var packet channeltypesv2.Packet
		if err := packet.Unmarshal(bz); err != nil {
			return types.PacketInfo{}, errors.Wrapf(types.ErrEventMalformed, "unmarshaling v2 packet: %s", err)
		}
		if packet.Sequence == 0 {
			return types.PacketInfo{}, errors.Wrap(types.ErrEventMalformed, "v2 packet sequence must be positive")
		}
		return types.PacketInfo{Version: types.V2, V2: packet}, nil
	}

	var (
		packet channeltypes.Packet
		err    error
	)
	seqStr, err := requireAttr(event, attrSequence)
	if err != nil {
		return types.PacketInfo{}, err
	}
	packet.Sequence, err = strconv.ParseUint(seqStr, 10, 64)
	if err != nil || packet.Sequence == 0 {
		return types.PacketInfo{}, errors.Wrapf(types.ErrEventMalformed, "bad packet sequence %q", seqStr)
	}
	if packet.SourcePort, err = requireAttr(event, attrSrcPort); err != nil {
		return types.PacketInfo{}, err
	}
	if packet.SourceChannel, err = requireAttr(event, attrSrcChannel); err != nil {
		return types.PacketInfo{}, err
	}
	if packet.DestinationPort, err = requireAttr(event, attrDstPort); err != nil {
		return types.PacketInfo{}, err
	}
	if packet.DestinationChannel, err = requireAttr(event, attrDstChannel); err != nil {
		return types.PacketInfo{}, err
	}
	if dataHex, ok := findAttr(event, attrDataHex); ok {
		packet.Data, err = hex.DecodeString(dataHex)
		if err != nil {
			return types.PacketInfo{}, errors.Wrapf(types.ErrEventMalformed, "decoding %s: %s", attrDataHex, err)
		}
	}

	heightStr, err := requireAttr(event, attrTimeoutHeight)
	if err != nil {
		return types.PacketInfo{}, err
	}
	timeoutHeight, err := clienttypes.ParseHeight(heightStr)
	if err != nil {
		return types.PacketInfo{}, errors.Wrapf(types.ErrEventMalformed, "bad timeout height %q", heightStr)
	}
	// A zero timeout height means "no height timeout".
	packet.TimeoutHeight = timeoutHeight

	tsStr, err := requireAttr(event, attrTimeoutTimestamp)
	if err != nil {
		return types.PacketInfo{}, err
	}
	packet.TimeoutTimestamp, err = strconv.ParseUint(tsStr, 10, 64)
	if err != nil {
		return types.PacketInfo{}, errors.Wrapf(types.ErrEventMalformed, "bad timeout timestamp %q", tsStr)
	}
	if timeoutHeight.IsZero() && packet.TimeoutTimestamp == 0 {
		return types.PacketInfo{}, errors.Wrap(types.ErrEventMalformed, "packet has neither height nor timestamp timeout")
	}

	return types.PacketInfo{Version: types.V1, V1: packet}, nil
}

// parseAckData extracts the acknowledgement bytes from a write_acknowledgement event:
// raw ack bytes for v1, the proto-encoded v2 Acknowledgement for v2.
func parseAckData(version types.Version, event abcitypes.Event) ([]byte, error) {
	key := attrAckHex
	if version == types.V2 {
		key = attrEncodedAck
	}
	encoded, err := requireAttr(event, key)
	if err != nil {
		return nil, err
	}
	bz, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrapf(types.ErrEventMalformed, "decoding %s: %s", key, err)
	}
	return bz, nil
}

func requireAttr(event abcitypes.Event, key string) (string, error) {
	if v, ok := findAttr(event, key); ok {
		return v, nil
	}
	return "", errors.Wrapf(types.ErrEventMalformed, "event %s misses attribute %s", event.Type, key)
}

func findAttr(event abcitypes.Event, key string) (string, bool) {
	for _, attr := range event.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}
