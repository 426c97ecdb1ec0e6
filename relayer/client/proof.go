package client

import (
	"bytes"

	cmtcrypto "github.com/cometbft/cometbft/proto/tendermint/crypto"
	ics23 "github.com/cosmos/ics23/go"
	"github.com/pkg/errors"

	"github.com/tokenize-x/tx-relayer/relayer/types"
)

// Proof op types produced by cosmos-sdk multistore queries: the leaf op proves the key
// inside the module store (iavl), the meta op proves the store hash inside the
// multistore (simple).
const (
	proofOpIAVL   = "ics23:iavl"
	proofOpSimple = "ics23:simple"
)

// checkProofOps validates the two-op shape of a raw ABCI proof before it is converted
// to a MerkleProof: exactly two ops, iavl-then-simple types, the leaf op echoing the
// queried key and the meta op echoing the store name. Any mismatch is fatal for the
// proof (ErrProofMalformed), never retried.
func checkProofOps(ops *cmtcrypto.ProofOps, storeName string, key []byte) error {
	if ops == nil || len(ops.Ops) != 2 {
		got := 0
		if ops != nil {
			got = len(ops.Ops)
		}
		return errors.Wrapf(types.ErrProofMalformed, "expected 2 proof ops, got %d", got)
	}

	leaf, meta := ops.Ops[0], ops.Ops[1]
	if leaf.Type != proofOpIAVL {
		return errors.Wrapf(types.ErrProofMalformed, "leaf op type %q, expected %q", leaf.Type, proofOpIAVL)
	}
	if meta.Type != proofOpSimple {
		return errors.Wrapf(types.ErrProofMalformed, "meta op type %q, expected %q", meta.Type, proofOpSimple)
	}
	if !bytes.Equal(leaf.Key, key) {
		return errors.Wrapf(types.ErrProofMalformed, "leaf op key %X does not echo queried key %X", leaf.Key, key)
	}
	if !bytes.Equal(meta.Key, []byte(storeName)) {
		return errors.Wrapf(types.ErrProofMalformed, "meta op key %q does not echo store name %q", meta.Key, storeName)
	}

	if err := checkOpKeyEcho(leaf.Data, key); err != nil {
		return err
	}
	return checkOpKeyEcho(meta.Data, []byte(storeName))
}

// checkOpKeyEcho parses one ICS-23 commitment proof and asserts the key embedded in
// the (non)existence proof matches the op key.
func checkOpKeyEcho(data, key []byte) error {
	var proof ics23.CommitmentProof
	if err := proof.Unmarshal(data); err != nil {
		return errors.Wrap(types.ErrProofMalformed, err.Error())
	}
	switch {
	case proof.GetExist() != nil:
		if !bytes.Equal(proof.GetExist().Key, key) {
			return errors.Wrapf(types.ErrProofMalformed, "existence proof key %X does not echo %X", proof.GetExist().Key, key)
		}
	case proof.GetNonexist() != nil:
		// Non-existence proofs carry the queried key directly.
		if !bytes.Equal(proof.GetNonexist().Key, key) {
			return errors.Wrapf(types.ErrProofMalformed, "non-existence proof key %X does not echo %X", proof.GetNonexist().Key, key)
		}
	default:
		return errors.Wrap(types.ErrProofMalformed, "proof is neither existence nor non-existence")
	}
	return nil
}
