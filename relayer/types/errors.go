package types

import (
	sdkerrors "cosmossdk.io/errors"
)

// Codespace groups all relayer error codes.
const Codespace = "relayer"

// NOTE: Error status code must start from 2.
var (
	// ErrUnsupported is returned when an operation is not implemented by a chain variant,
	// e.g. an IBC v1 operation on a Gno chain.
	ErrUnsupported = sdkerrors.Register(Codespace, 2, "operation unsupported by chain variant")

	// ErrStalled is returned when a chain stops producing blocks within the expected window.
	ErrStalled = sdkerrors.Register(Codespace, 3, "chain stalled")

	// ErrProofMalformed is returned when a raw ICS-23 proof does not have the expected
	// two-op shape or the ops do not echo the queried key.
	ErrProofMalformed = sdkerrors.Register(Codespace, 4, "malformed merkle proof")

	// ErrRevisionMismatch is returned when a height carries a revision number that does not
	// belong to the chain it is used against.
	ErrRevisionMismatch = sdkerrors.Register(Codespace, 5, "height revision mismatch")

	// ErrClientDiverged is returned when an on-chain consensus state no longer matches the
	// source chain's header at the same height.
	ErrClientDiverged = sdkerrors.Register(Codespace, 6, "light client diverged from source chain")

	// ErrConnectionNotOpen is returned when a relay path references a connection or channel
	// that is not in the OPEN state.
	ErrConnectionNotOpen = sdkerrors.Register(Codespace, 7, "connection not open")

	// ErrChainMismatch is returned when a client state's chain id does not match the chain id
	// reported by the node it supposedly tracks, or counterparty registrations disagree.
	ErrChainMismatch = sdkerrors.Register(Codespace, 8, "chain identity mismatch")

	// ErrTxFailed is returned when a broadcast transaction is included with a non-zero code.
	// The wrapped message carries the tx hash, codespace, code and raw log verbatim.
	ErrTxFailed = sdkerrors.Register(Codespace, 9, "transaction failed on chain")

	// ErrNotFound is returned when a queried record or state entry does not exist.
	ErrNotFound = sdkerrors.Register(Codespace, 10, "not found")

	// ErrConfig is returned on invalid or missing configuration, e.g. an unknown chain type
	// or a missing gas price record.
	ErrConfig = sdkerrors.Register(Codespace, 11, "invalid configuration")

	// ErrEventMalformed is returned when an IBC event misses required attributes or carries
	// values that do not parse.
	ErrEventMalformed = sdkerrors.Register(Codespace, 12, "malformed IBC event")

	// ErrTimeout is returned when an external call does not complete within its deadline.
	ErrTimeout = sdkerrors.Register(Codespace, 13, "request timed out")
)
