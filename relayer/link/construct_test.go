package link

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/log"
	connectiontypes "github.com/cosmos/ibc-go/v10/modules/core/03-connection/types"
	commitmenttypes "github.com/cosmos/ibc-go/v10/modules/core/23-commitment/types"
	ibctm "github.com/cosmos/ibc-go/v10/modules/light-clients/07-tendermint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenize-x/tx-relayer/relayer/client/clienttest"
	"github.com/tokenize-x/tx-relayer/relayer/types"
)

func constructionFakes() (*clienttest.Fake, *clienttest.Fake) {
	mars := &clienttest.Fake{ChainIDVal: "mars-1", RevisionVal: 1}
	venus := &clienttest.Fake{ChainIDVal: "venus-1", RevisionVal: 1}
	return mars, venus
}

// wireHealthyClientPair makes both stored clients pass identity and consensus checks.
func wireHealthyClientPair(mars, venus *clienttest.Fake) {
	appHash := []byte("app-hash")
	nextVals := []byte("next-vals")

	makeHooks := func(self, other *clienttest.Fake) {
		self.QueryClientStateFn = func(context.Context, string) (*ibctm.ClientState, error) {
			return &ibctm.ClientState{ChainId: other.ChainIDVal, LatestHeight: types.NewHeight(1, 100)}, nil
		}
		self.QueryConsensusStateFn = func(context.Context, string, types.Height) (*ibctm.ConsensusState, types.Height, error) {
			return ibctm.NewConsensusState(
				time.Unix(1_700_000_000, 0),
				commitmenttypes.NewMerkleRoot(appHash),
				nextVals,
			), types.NewHeight(1, 100), nil
		}
		other.QueryHeaderInfoFn = func(context.Context, uint64) (types.HeaderInfo, error) {
			return types.HeaderInfo{
				Height:             types.NewHeight(1, 100),
				AppHash:            appHash,
				NextValidatorsHash: nextVals,
			}, nil
		}
	}
	makeHooks(mars, venus)
	makeHooks(venus, mars)
}

func connectionEnd(state connectiontypes.State, clientID, counterpartyClientID, counterpartyConnID string) *connectiontypes.ConnectionEnd {
	return &connectiontypes.ConnectionEnd{
		ClientId: clientID,
		State:    state,
		Counterparty: connectiontypes.NewCounterparty(
			counterpartyClientID, counterpartyConnID,
			commitmenttypes.NewMerklePrefix([]byte("ibc")),
		),
	}
}

func TestNewFromExistingV1(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mars, venus := constructionFakes()
	wireHealthyClientPair(mars, venus)

	mars.QueryConnectionFn = func(_ context.Context, connID string) (*connectiontypes.ConnectionEnd, error) {
		require.Equal(t, "connection-0", connID)
		return connectionEnd(connectiontypes.OPEN, clientOnA, clientOnB, "connection-5"), nil
	}
	venus.QueryConnectionFn = func(_ context.Context, connID string) (*connectiontypes.ConnectionEnd, error) {
		require.Equal(t, "connection-5", connID)
		return connectionEnd(connectiontypes.OPEN, clientOnB, clientOnA, "connection-0"), nil
	}

	l, err := NewFromExistingV1(ctx, mars, venus, "connection-0", "connection-5", Options{PathID: 7, Logger: log.NewNopLogger()})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), l.ID())
	assert.Equal(t, types.V1, l.Version())
	assert.Equal(t, clientOnA, l.EndpointA().ClientID)
	assert.Equal(t, "connection-0", l.EndpointA().ConnectionID)
}

func TestNewFromExistingV1RefusesNonOpen(t *testing.T) {
	t.Parallel()
	mars, venus := constructionFakes()

	mars.QueryConnectionFn = func(context.Context, string) (*connectiontypes.ConnectionEnd, error) {
		return connectionEnd(connectiontypes.TRYOPEN, clientOnA, clientOnB, "connection-5"), nil
	}
	venus.QueryConnectionFn = func(context.Context, string) (*connectiontypes.ConnectionEnd, error) {
		return connectionEnd(connectiontypes.OPEN, clientOnB, clientOnA, "connection-0"), nil
	}

	_, err := NewFromExistingV1(context.Background(), mars, venus, "connection-0", "connection-5", Options{Logger: log.NewNopLogger()})
	require.ErrorIs(t, err, types.ErrConnectionNotOpen)
}

func TestNewFromExistingV1RefusesClientMismatch(t *testing.T) {
	t.Parallel()
	mars, venus := constructionFakes()

	mars.QueryConnectionFn = func(context.Context, string) (*connectiontypes.ConnectionEnd, error) {
		return connectionEnd(connectiontypes.OPEN, clientOnA, "07-tendermint-99", "connection-5"), nil
	}
	venus.QueryConnectionFn = func(context.Context, string) (*connectiontypes.ConnectionEnd, error) {
		return connectionEnd(connectiontypes.OPEN, clientOnB, clientOnA, "connection-0"), nil
	}

	_, err := NewFromExistingV1(context.Background(), mars, venus, "connection-0", "connection-5", Options{Logger: log.NewNopLogger()})
	require.ErrorIs(t, err, types.ErrChainMismatch)
}

func TestNewFromExistingV2(t *testing.T) {
	t.Parallel()
	mars, venus := constructionFakes()
	wireHealthyClientPair(mars, venus)

	mars.QueryCounterpartyFn = func(_ context.Context, clientID string) (string, error) {
		require.Equal(t, clientOnA, clientID)
		return clientOnB, nil
	}
	venus.QueryCounterpartyFn = func(_ context.Context, clientID string) (string, error) {
		require.Equal(t, clientOnB, clientID)
		return clientOnA, nil
	}

	l, err := NewFromExistingV2(context.Background(), mars, venus, clientOnA, clientOnB, Options{Logger: log.NewNopLogger()})
	require.NoError(t, err)
	assert.Equal(t, types.V2, l.Version())
	assert.Empty(t, l.EndpointA().ConnectionID)
}

func TestNewFromExistingV2RefusesWrongRegistration(t *testing.T) {
	t.Parallel()
	mars, venus := constructionFakes()

	mars.QueryCounterpartyFn = func(context.Context, string) (string, error) {
		return "07-tendermint-42", nil
	}

	_, err := NewFromExistingV2(context.Background(), mars, venus, clientOnA, clientOnB, Options{Logger: log.NewNopLogger()})
	require.ErrorIs(t, err, types.ErrChainMismatch)
}

func TestNewFromExistingV2RefusesChainIDMismatch(t *testing.T) {
	t.Parallel()
	mars, venus := constructionFakes()
	wireHealthyClientPair(mars, venus)

	// Mars' client claims to track a different chain than venus reports.
	mars.QueryClientStateFn = func(context.Context, string) (*ibctm.ClientState, error) {
		return &ibctm.ClientState{ChainId: "pluto-9", LatestHeight: types.NewHeight(1, 100)}, nil
	}
	mars.QueryCounterpartyFn = func(context.Context, string) (string, error) { return clientOnB, nil }
	venus.QueryCounterpartyFn = func(context.Context, string) (string, error) { return clientOnA, nil }

	_, err := NewFromExistingV2(context.Background(), mars, venus, clientOnA, clientOnB, Options{Logger: log.NewNopLogger()})
	require.ErrorIs(t, err, types.ErrChainMismatch)
}

func TestNewFromExistingV2RefusesDivergedConsensus(t *testing.T) {
	t.Parallel()
	mars, venus := constructionFakes()
	wireHealthyClientPair(mars, venus)
	mars.QueryCounterpartyFn = func(context.Context, string) (string, error) { return clientOnB, nil }
	venus.QueryCounterpartyFn = func(context.Context, string) (string, error) { return clientOnA, nil }

	// Venus' actual header no longer matches what mars stored.
	venus.QueryHeaderInfoFn = func(context.Context, uint64) (types.HeaderInfo, error) {
		return types.HeaderInfo{
			Height:             types.NewHeight(1, 100),
			AppHash:            []byte("forked-app-hash"),
			NextValidatorsHash: []byte("next-vals"),
		}, nil
	}

	_, err := NewFromExistingV2(context.Background(), mars, venus, clientOnA, clientOnB, Options{Logger: log.NewNopLogger()})
	require.ErrorIs(t, err, types.ErrClientDiverged)
}
