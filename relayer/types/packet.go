package types

import (
	channeltypes "github.com/cosmos/ibc-go/v10/modules/core/04-channel/types"
	channeltypesv2 "github.com/cosmos/ibc-go/v10/modules/core/04-channel/v2/types"
)

// Version is the IBC protocol version of a relay path.
type Version uint8

const (
	// V1 is port/channel/connection-scoped IBC.
	V1 Version = 1
	// V2 is client-scoped IBC ("Eureka").
	V2 Version = 2
)

// PacketInfo is a packet discovered in a send_packet event, tagged with the IBC version
// it was emitted under. Exactly one of V1/V2 is meaningful, selected by Version.
// Height is the source-chain block height of the tx that sent the packet; proofs for the
// packet commitment become available at Height+1.
type PacketInfo struct {
	Version Version
	V1      channeltypes.Packet
	V2      channeltypesv2.Packet

	Height uint64
	TxHash string
}

// Sequence returns the packet sequence regardless of version.
func (p PacketInfo) Sequence() uint64 {
	if p.Version == V2 {
		return p.V2.Sequence
	}
	return p.V1.Sequence
}

// TimeoutHeight returns the packet's timeout height. V2 packets have no height timeout
// and always return the zero height.
func (p PacketInfo) TimeoutHeight() Height {
	if p.Version == V2 {
		return ZeroHeight()
	}
	return p.V1.TimeoutHeight
}

// TimeoutTimestamp returns the packet's timeout timestamp in the unit native to its
// version: nanoseconds for v1, seconds for v2. Zero means no timestamp timeout (v1 only).
func (p PacketInfo) TimeoutTimestamp() uint64 {
	if p.Version == V2 {
		return p.V2.TimeoutTimestamp
	}
	return p.V1.TimeoutTimestamp
}

// DestinationID returns the identifier packets are grouped by on the destination:
// "port/channel" for v1, the destination client id for v2.
func (p PacketInfo) DestinationID() string {
	if p.Version == V2 {
		return p.V2.DestinationClient
	}
	return p.V1.DestinationPort + "/" + p.V1.DestinationChannel
}

// SourceID returns the grouping identifier on the source side.
func (p PacketInfo) SourceID() string {
	if p.Version == V2 {
		return p.V2.SourceClient
	}
	return p.V1.SourcePort + "/" + p.V1.SourceChannel
}

// AckInfo is a written acknowledgement discovered in a write_acknowledgement event,
// together with the original packet it acknowledges and the tx metadata it was found in.
type AckInfo struct {
	Packet          PacketInfo
	Acknowledgement []byte

	// Height is the destination-chain block height of the tx that wrote the ack.
	Height uint64
	// TxHash is the uppercase hex hash of that tx.
	TxHash string
}

// PacketFilter decides whether a discovered packet should be relayed. A nil filter
// relays everything.
type PacketFilter func(PacketInfo) bool

// Watermark holds the per-path block-height cursors bounding event-index queries.
// Heights are plain block heights on the respective chain (revision-local), and are
// monotonically non-decreasing across successful rounds.
type Watermark struct {
	PacketHeightA uint64 `json:"packetHeightA"`
	PacketHeightB uint64 `json:"packetHeightB"`
	AckHeightA    uint64 `json:"ackHeightA"`
	AckHeightB    uint64 `json:"ackHeightB"`
}
