package lightclient

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/log"
	tmproto "github.com/cometbft/cometbft/proto/tendermint/types"
	commitmenttypes "github.com/cosmos/ibc-go/v10/modules/core/23-commitment/types"
	ibctm "github.com/cosmos/ibc-go/v10/modules/light-clients/07-tendermint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenize-x/tx-relayer/relayer/client/clienttest"
	"github.com/tokenize-x/tx-relayer/relayer/types"
)

const testClientID = "07-tendermint-0"

func testDriver() Driver {
	return NewDriver(log.NewNopLogger())
}

func TestCreateClient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := &clienttest.Fake{ChainIDVal: "mars-1", RevisionVal: 1}
	dst := &clienttest.Fake{ChainIDVal: "venus-1", RevisionVal: 1}

	clientState := &ibctm.ClientState{ChainId: "mars-1", LatestHeight: types.NewHeight(1, 50)}
	src.BuildClientStateFn = func(_ context.Context, trustPeriod time.Duration) (*ibctm.ClientState, error) {
		assert.Equal(t, 2*time.Hour, trustPeriod)
		return clientState, nil
	}
	src.BuildConsensusStateFn = func(_ context.Context, height uint64) (*ibctm.ConsensusState, error) {
		// The consensus state must match the client state's latest height.
		assert.Equal(t, uint64(50), height)
		return &ibctm.ConsensusState{}, nil
	}
	dst.CreateClientFn = func(_ context.Context, cs *ibctm.ClientState, _ *ibctm.ConsensusState) (string, error) {
		assert.Equal(t, clientState, cs)
		return testClientID, nil
	}

	clientID, err := testDriver().CreateClient(ctx, dst, src, 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, testClientID, clientID)
}

func TestUpdateClientIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := &clienttest.Fake{ChainIDVal: "mars-1", RevisionVal: 1}
	dst := &clienttest.Fake{ChainIDVal: "venus-1", RevisionVal: 1}

	dst.QueryClientStateFn = func(context.Context, string) (*ibctm.ClientState, error) {
		return &ibctm.ClientState{ChainId: "mars-1", LatestHeight: types.NewHeight(1, 100)}, nil
	}
	src.CurrentHeightFn = func(context.Context) (types.Height, error) {
		return types.NewHeight(1, 100), nil
	}

	// Already at the source's current height: no tx (the UpdateClient hook is unset
	// and would fail if called).
	proven, err := testDriver().UpdateClient(ctx, dst, src, testClientID)
	require.NoError(t, err)
	assert.Equal(t, types.NewHeight(1, 100), proven)
}

func TestUpdateClientToHeightAdvances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := &clienttest.Fake{ChainIDVal: "mars-1", RevisionVal: 1}
	dst := &clienttest.Fake{ChainIDVal: "venus-1", RevisionVal: 1}

	dst.QueryClientStateFn = func(context.Context, string) (*ibctm.ClientState, error) {
		return &ibctm.ClientState{ChainId: "mars-1", LatestHeight: types.NewHeight(1, 90)}, nil
	}
	src.CurrentHeightFn = func(context.Context) (types.Height, error) {
		return types.NewHeight(1, 120), nil
	}
	var waitedFor uint64
	src.WaitForHeightFn = func(_ context.Context, height uint64) error {
		waitedFor = height
		return nil
	}
	src.BuildHeaderUpdateFn = func(_ context.Context, trusted types.Height) (*ibctm.Header, error) {
		assert.Equal(t, types.NewHeight(1, 90), trusted)
		return &ibctm.Header{
			SignedHeader: &tmproto.SignedHeader{Header: &tmproto.Header{Height: 120}},
		}, nil
	}
	updated := false
	dst.UpdateClientFn = func(_ context.Context, clientID string, _ *ibctm.Header) error {
		assert.Equal(t, testClientID, clientID)
		updated = true
		return nil
	}

	proven, err := testDriver().UpdateClientToHeight(ctx, dst, src, testClientID, 96)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, uint64(96), waitedFor)
	assert.Equal(t, types.NewHeight(1, 120), proven)
}

func TestUpdateClientToHeightNoOp(t *testing.T) {
	t.Parallel()

	src := &clienttest.Fake{ChainIDVal: "mars-1", RevisionVal: 1}
	dst := &clienttest.Fake{ChainIDVal: "venus-1", RevisionVal: 1}
	dst.QueryClientStateFn = func(context.Context, string) (*ibctm.ClientState, error) {
		return &ibctm.ClientState{ChainId: "mars-1", LatestHeight: types.NewHeight(1, 150)}, nil
	}

	proven, err := testDriver().UpdateClientToHeight(context.Background(), dst, src, testClientID, 96)
	require.NoError(t, err)
	assert.Equal(t, types.NewHeight(1, 150), proven)
}

func TestAssertHeadersMatchConsensusState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	appHash := []byte("app-hash-at-100")
	nextVals := []byte("next-validators-hash")

	src := &clienttest.Fake{ChainIDVal: "mars-1", RevisionVal: 1}
	dst := &clienttest.Fake{ChainIDVal: "venus-1", RevisionVal: 1}

	dst.QueryConsensusStateFn = func(context.Context, string, types.Height) (*ibctm.ConsensusState, types.Height, error) {
		return ibctm.NewConsensusState(
			time.Unix(1_700_000_000, 0),
			commitmenttypes.NewMerkleRoot(appHash),
			nextVals,
		), types.NewHeight(1, 100), nil
	}
	src.QueryHeaderInfoFn = func(_ context.Context, height uint64) (types.HeaderInfo, error) {
		assert.Equal(t, uint64(100), height)
		return types.HeaderInfo{
			Height:             types.NewHeight(1, 100),
			AppHash:            appHash,
			NextValidatorsHash: nextVals,
		}, nil
	}

	require.NoError(t, testDriver().AssertHeadersMatchConsensusState(ctx, dst, src, testClientID))

	// A divergent consensus root is fatal.
	src.QueryHeaderInfoFn = func(context.Context, uint64) (types.HeaderInfo, error) {
		return types.HeaderInfo{
			Height:             types.NewHeight(1, 100),
			AppHash:            []byte("some-other-hash"),
			NextValidatorsHash: nextVals,
		}, nil
	}
	err := testDriver().AssertHeadersMatchConsensusState(ctx, dst, src, testClientID)
	require.ErrorIs(t, err, types.ErrClientDiverged)

	// So is a divergent next-validators hash.
	src.QueryHeaderInfoFn = func(context.Context, uint64) (types.HeaderInfo, error) {
		return types.HeaderInfo{
			Height:             types.NewHeight(1, 100),
			AppHash:            appHash,
			NextValidatorsHash: []byte("rotated-validators"),
		}, nil
	}
	err = testDriver().AssertHeadersMatchConsensusState(ctx, dst, src, testClientID)
	require.ErrorIs(t, err, types.ErrClientDiverged)
}

func TestUpdateIfStale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	src := &clienttest.Fake{ChainIDVal: "mars-1", RevisionVal: 1}
	dst := &clienttest.Fake{ChainIDVal: "venus-1", RevisionVal: 1}

	consensusAge := time.Second
	dst.QueryConsensusStateFn = func(context.Context, string, types.Height) (*ibctm.ConsensusState, types.Height, error) {
		return &ibctm.ConsensusState{Timestamp: time.Now().Add(-consensusAge)}, types.NewHeight(1, 99), nil
	}

	// Fresh client: no update, no tx.
	updated, err := testDriver().UpdateIfStale(ctx, dst, src, testClientID, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, updated)

	// Stale client: one update goes out.
	consensusAge = time.Minute
	dst.QueryClientStateFn = func(context.Context, string) (*ibctm.ClientState, error) {
		return &ibctm.ClientState{ChainId: "mars-1", LatestHeight: types.NewHeight(1, 99)}, nil
	}
	src.CurrentHeightFn = func(context.Context) (types.Height, error) {
		return types.NewHeight(1, 130), nil
	}
	src.BuildHeaderUpdateFn = func(context.Context, types.Height) (*ibctm.Header, error) {
		return &ibctm.Header{
			SignedHeader: &tmproto.SignedHeader{Header: &tmproto.Header{Height: 130}},
		}, nil
	}
	sent := false
	dst.UpdateClientFn = func(context.Context, string, *ibctm.Header) error {
		sent = true
		return nil
	}

	updated, err = testDriver().UpdateIfStale(ctx, dst, src, testClientID, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.True(t, sent)
}
