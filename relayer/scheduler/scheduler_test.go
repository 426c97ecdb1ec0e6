package scheduler_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cosmossdk.io/log"
	commitmenttypes "github.com/cosmos/ibc-go/v10/modules/core/23-commitment/types"
	ibctm "github.com/cosmos/ibc-go/v10/modules/light-clients/07-tendermint"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenize-x/tx-relayer/pkg/config"
	"github.com/tokenize-x/tx-relayer/pkg/metrics"
	"github.com/tokenize-x/tx-relayer/pkg/store"
	"github.com/tokenize-x/tx-relayer/relayer/client/clienttest"
	"github.com/tokenize-x/tx-relayer/relayer/link"
	"github.com/tokenize-x/tx-relayer/relayer/scheduler"
	"github.com/tokenize-x/tx-relayer/relayer/types"
)

func testStoreWithPath(t *testing.T) (*store.Store, uint64) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "relayer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	id, err := st.AddPath(store.RelayPath{
		ChainIDA:   "mars-1",
		NodeA:      "http://localhost:26657",
		ChainIDB:   "venus-1",
		NodeB:      "http://localhost:36657",
		ChainTypeA: store.ChainTypeCosmos,
		ChainTypeB: store.ChainTypeCosmos,
		ClientA:    "07-tendermint-0",
		ClientB:    "07-tendermint-1",
		Version:    types.V2,
	})
	require.NoError(t, err)
	return st, id
}

// idleLink builds a real v2 link over fakes with no pending work and fresh clients.
func idleLink(t *testing.T, pathID uint64) *link.Link {
	t.Helper()

	appHash := []byte("app-hash")
	nextVals := []byte("next-vals")

	mars := &clienttest.Fake{ChainIDVal: "mars-1", RevisionVal: 1}
	venus := &clienttest.Fake{ChainIDVal: "venus-1", RevisionVal: 1}

	wire := func(self, other *clienttest.Fake, height uint64) {
		self.CurrentHeightFn = func(context.Context) (types.Height, error) {
			return types.NewHeight(1, height), nil
		}
		self.CurrentTimeFn = func(context.Context) (time.Time, error) {
			return time.Now(), nil
		}
		self.QuerySentPacketsFn = func(context.Context, types.Version, string, uint64) ([]types.PacketInfo, error) {
			return nil, nil
		}
		self.QueryWrittenAcksFn = func(context.Context, types.Version, string, uint64) ([]types.AckInfo, error) {
			return nil, nil
		}
		self.QueryCounterpartyFn = func(context.Context, string) (string, error) {
			if self == mars {
				return "07-tendermint-1", nil
			}
			return "07-tendermint-0", nil
		}
		self.QueryClientStateFn = func(context.Context, string) (*ibctm.ClientState, error) {
			return &ibctm.ClientState{ChainId: other.ChainIDVal, LatestHeight: types.NewHeight(1, 100)}, nil
		}
		self.QueryConsensusStateFn = func(context.Context, string, types.Height) (*ibctm.ConsensusState, types.Height, error) {
			return ibctm.NewConsensusState(time.Now(), commitmenttypes.NewMerkleRoot(appHash), nextVals),
				types.NewHeight(1, 100), nil
		}
		other.QueryHeaderInfoFn = func(context.Context, uint64) (types.HeaderInfo, error) {
			return types.HeaderInfo{
				Height:             types.NewHeight(1, 100),
				AppHash:            appHash,
				NextValidatorsHash: nextVals,
			}, nil
		}
	}
	wire(mars, venus, 100)
	wire(venus, mars, 200)

	l, err := link.NewFromExistingV2(context.Background(), mars, venus,
		"07-tendermint-0", "07-tendermint-1",
		link.Options{PathID: pathID, Logger: log.NewNopLogger()})
	require.NoError(t, err)
	return l
}

func TestRunTicksAndPersistsWatermarks(t *testing.T) {
	t.Parallel()
	st, pathID := testStoreWithPath(t)

	cfg := config.DefaultConfig()
	built := 0
	buildLink := func(_ context.Context, path store.RelayPath) (*link.Link, error) {
		built++
		return idleLink(t, path.ID), nil
	}

	s := scheduler.New(st, cfg, log.NewNopLogger(), metrics.New(), buildLink)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	// The link was reconstructed once and its first round persisted the observed
	// heights as watermarks.
	assert.Equal(t, 1, built)
	wm, found, err := st.Heights(pathID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(100), wm.PacketHeightA)
	assert.Equal(t, uint64(200), wm.PacketHeightB)
	assert.Equal(t, uint64(100), wm.AckHeightA)
	assert.Equal(t, uint64(200), wm.AckHeightB)
}

func TestRunSurvivesBrokenLink(t *testing.T) {
	t.Parallel()
	st, pathID := testStoreWithPath(t)

	buildLink := func(context.Context, store.RelayPath) (*link.Link, error) {
		return nil, errors.New("node unreachable")
	}

	s := scheduler.New(st, config.DefaultConfig(), log.NewNopLogger(), metrics.New(), buildLink)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	// Construction failures are retried, not fatal.
	require.NoError(t, s.Run(ctx))
	_, found, err := st.Heights(pathID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRunFatalOnDivergedClient(t *testing.T) {
	t.Parallel()
	st, _ := testStoreWithPath(t)

	buildLink := func(context.Context, store.RelayPath) (*link.Link, error) {
		return nil, errors.Wrap(types.ErrClientDiverged, "consensus root mismatch")
	}

	s := scheduler.New(st, config.DefaultConfig(), log.NewNopLogger(), metrics.New(), buildLink)
	err := s.Run(context.Background())
	require.ErrorIs(t, err, types.ErrClientDiverged)
}
