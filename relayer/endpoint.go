// Package relayer holds the pieces shared by the relay engine: the endpoint pairing a
// chain client with its on-chain identifiers.
package relayer

import (
	"context"

	"github.com/tokenize-x/tx-relayer/relayer/client"
	"github.com/tokenize-x/tx-relayer/relayer/types"
)

// Endpoint pairs a chain client with the on-chain client id tracking the counterparty
// and, for IBC v1, the connection id. It is the single place below the Link where the
// v1/v2 split is routed.
type Endpoint struct {
	Client   client.Client
	ClientID string
	// ConnectionID is set exactly when the endpoint speaks IBC v1.
	ConnectionID string
}

// Version returns the IBC version of this endpoint: v1 iff a connection id is set.
func (e Endpoint) Version() types.Version {
	if e.ConnectionID != "" {
		return types.V1
	}
	return types.V2
}

// QuerySentPackets returns packets sent on this endpoint's chain at or after minHeight.
// V2 queries are scoped to this endpoint's client id; v1 queries return every v1 send
// event, to be narrowed by the Link's connection filter.
func (e Endpoint) QuerySentPackets(ctx context.Context, minHeight uint64) ([]types.PacketInfo, error) {
	return e.Client.QuerySentPackets(ctx, e.Version(), e.ClientID, minHeight)
}

// QueryWrittenAcks returns acknowledgements written on this endpoint's chain at or
// after minHeight. On the writing chain the packets' destination client is this
// endpoint's client id.
func (e Endpoint) QueryWrittenAcks(ctx context.Context, minHeight uint64) ([]types.AckInfo, error) {
	return e.Client.QueryWrittenAcks(ctx, e.Version(), e.ClientID, minHeight)
}
