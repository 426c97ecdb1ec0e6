package types

import (
	clienttypes "github.com/cosmos/ibc-go/v10/modules/core/02-client/types"
)

// Height is the chain-logical height used everywhere in the relayer: a revision number
// (chain fork counter, parsed from the chain id suffix) plus a block height. The zero
// value means "unknown/lowest". Heights must never be compared across chains.
type Height = clienttypes.Height

// NewHeight returns a height with the given revision number and block height.
func NewHeight(revision, height uint64) Height {
	return clienttypes.NewHeight(revision, height)
}

// ZeroHeight returns the zero height.
func ZeroHeight() Height {
	return clienttypes.ZeroHeight()
}

// ParseRevisionNumber extracts the revision number from a chain id. A trailing "-N" with
// N >= 1 is the revision; anything else (no suffix, "-0", malformed) is revision 0.
func ParseRevisionNumber(chainID string) uint64 {
	return clienttypes.ParseChainID(chainID)
}

// HeightGreater reports whether a is strictly greater than b, ordering lexicographically
// on (revisionNumber, revisionHeight).
func HeightGreater(a, b Height) bool {
	return a.GT(b)
}

// HeightGTE reports whether a is greater than or equal to b.
func HeightGTE(a, b Height) bool {
	return a.GTE(b)
}

// MaxHeight returns the greater of a and b.
func MaxHeight(a, b Height) Height {
	if a.GT(b) {
		return a
	}
	return b
}
