// Package lightclient drives on-chain light clients: creation from source chain
// state, header updates to requested heights, divergence checks and staleness
// heartbeats.
package lightclient

import (
	"bytes"
	"context"
	"time"

	"cosmossdk.io/log"
	"github.com/pkg/errors"

	"github.com/tokenize-x/tx-relayer/relayer/client"
	"github.com/tokenize-x/tx-relayer/relayer/types"
)

// Driver builds and maintains light clients of a source chain hosted on a destination
// chain.
type Driver struct {
	logger log.Logger
}

// NewDriver returns a light client driver.
func NewDriver(logger log.Logger) Driver {
	return Driver{logger: logger.With("module", "lightclient")}
}

// CreateClient creates a light client of src on dst and returns the new client id.
// trustPeriod zero selects two thirds of src's unbonding period; the unbonding period
// must be determinable, there is no default.
func (d Driver) CreateClient(ctx context.Context, dst, src client.Client, trustPeriod time.Duration) (string, error) {
	clientState, err := src.BuildClientState(ctx, trustPeriod)
	if err != nil {
		return "", errors.Wrapf(err, "building client state of %s", src.ChainID())
	}
	consensusState, err := src.BuildConsensusState(ctx, clientState.LatestHeight.RevisionHeight)
	if err != nil {
		return "", errors.Wrapf(err, "building consensus state of %s", src.ChainID())
	}
	clientID, err := dst.CreateClient(ctx, clientState, consensusState)
	if err != nil {
		return "", errors.Wrapf(err, "creating client of %s on %s", src.ChainID(), dst.ChainID())
	}
	d.logger.Info("created client",
		"source", src.ChainID(), "destination", dst.ChainID(), "client_id", clientID)
	return clientID, nil
}

// UpdateClient submits one header update bringing dst's view of src to src's current
// height. It is a no-op when the client is already at or beyond that height. Returns
// the proven height after the call.
func (d Driver) UpdateClient(ctx context.Context, dst, src client.Client, clientID string) (types.Height, error) {
	clientState, err := dst.QueryClientState(ctx, clientID)
	if err != nil {
		return types.Height{}, err
	}
	trustedHeight := clientState.LatestHeight

	srcHeight, err := src.CurrentHeight(ctx)
	if err != nil {
		return types.Height{}, err
	}
	if types.HeightGTE(trustedHeight, srcHeight) {
		return trustedHeight, nil
	}

	header, err := src.BuildHeaderUpdate(ctx, trustedHeight)
	if err != nil {
		return types.Height{}, errors.Wrapf(err, "building header update of %s", src.ChainID())
	}
	if err := dst.UpdateClient(ctx, clientID, header); err != nil {
		return types.Height{}, errors.Wrapf(err, "updating client %s on %s", clientID, dst.ChainID())
	}
	provenHeight := types.NewHeight(src.Revision(), uint64(header.SignedHeader.Header.Height))
	d.logger.Debug("updated client",
		"client_id", clientID, "destination", dst.ChainID(), "height", provenHeight)
	return provenHeight, nil
}

// UpdateClientToHeight brings dst's view of src to at least minHeight. A client
// already there is left untouched.
func (d Driver) UpdateClientToHeight(ctx context.Context, dst, src client.Client, clientID string, minHeight uint64) (types.Height, error) {
	clientState, err := dst.QueryClientState(ctx, clientID)
	if err != nil {
		return types.Height{}, err
	}
	if clientState.LatestHeight.RevisionHeight >= minHeight {
		return clientState.LatestHeight, nil
	}

	// The source must have produced the block before a header for it can exist.
	if err := src.WaitForHeight(ctx, minHeight); err != nil {
		return types.Height{}, err
	}
	provenHeight, err := d.UpdateClient(ctx, dst, src, clientID)
	if err != nil {
		return types.Height{}, err
	}
	if provenHeight.RevisionHeight < minHeight {
		return types.Height{}, errors.Wrapf(types.ErrStalled,
			"client %s on %s proved height %d, need at least %d",
			clientID, dst.ChainID(), provenHeight.RevisionHeight, minHeight)
	}
	return provenHeight, nil
}

// AssertHeadersMatchConsensusState verifies that dst's latest stored consensus state
// for src matches src's actual header at the same height byte for byte, on both the
// next-validators hash and the consensus root. A mismatch is ErrClientDiverged and
// fatal for the link.
func (d Driver) AssertHeadersMatchConsensusState(ctx context.Context, dst, src client.Client, clientID string) error {
	consensusState, height, err := dst.QueryConsensusState(ctx, clientID, types.ZeroHeight())
	if err != nil {
		return err
	}
	header, err := src.QueryHeaderInfo(ctx, height.RevisionHeight)
	if err != nil {
		return err
	}
	if !bytes.Equal(consensusState.NextValidatorsHash, header.NextValidatorsHash) {
		return errors.Wrapf(types.ErrClientDiverged,
			"client %s on %s: next validators hash %X does not match source %X at height %s",
			clientID, dst.ChainID(), consensusState.NextValidatorsHash, header.NextValidatorsHash, height)
	}
	if !bytes.Equal(consensusState.Root.Hash, header.AppHash) {
		return errors.Wrapf(types.ErrClientDiverged,
			"client %s on %s: consensus root %X does not match source app hash %X at height %s",
			clientID, dst.ChainID(), consensusState.Root.Hash, header.AppHash, height)
	}
	return nil
}

// UpdateIfStale refreshes the client when its latest consensus timestamp is older than
// maxAge. Returns true when an update was submitted.
func (d Driver) UpdateIfStale(ctx context.Context, dst, src client.Client, clientID string, maxAge time.Duration) (bool, error) {
	consensusState, height, err := dst.QueryConsensusState(ctx, clientID, types.ZeroHeight())
	if err != nil {
		return false, err
	}
	if time.Since(consensusState.Timestamp) < maxAge {
		return false, nil
	}
	d.logger.Info("client stale, refreshing",
		"client_id", clientID, "destination", dst.ChainID(),
		"age", time.Since(consensusState.Timestamp))
	provenHeight, err := d.UpdateClient(ctx, dst, src, clientID)
	if err != nil {
		return false, err
	}
	// UpdateClient submits nothing when the source has not advanced past the client.
	return types.HeightGreater(provenHeight, height), nil
}
