package link

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/log"
	tmproto "github.com/cometbft/cometbft/proto/tendermint/types"
	channeltypesv2 "github.com/cosmos/ibc-go/v10/modules/core/04-channel/v2/types"
	ibctm "github.com/cosmos/ibc-go/v10/modules/light-clients/07-tendermint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenize-x/tx-relayer/relayer"
	"github.com/tokenize-x/tx-relayer/relayer/client/clienttest"
	"github.com/tokenize-x/tx-relayer/relayer/types"
)

const (
	clientOnA = "07-tendermint-0"
	clientOnB = "07-tendermint-1"
)

// fixture wires two fake chains into a v2 link: mars (A) at height 100, venus (B) at
// height 200. Discovery hooks default to empty.
type fixture struct {
	mars  *clienttest.Fake
	venus *clienttest.Fake
	link  *Link

	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)

	mars := &clienttest.Fake{ChainIDVal: "mars-1", RevisionVal: 1, SignerVal: "mars1relayer"}
	venus := &clienttest.Fake{ChainIDVal: "venus-1", RevisionVal: 1, SignerVal: "venus1relayer"}

	mars.CurrentHeightFn = func(context.Context) (types.Height, error) { return types.NewHeight(1, 100), nil }
	venus.CurrentHeightFn = func(context.Context) (types.Height, error) { return types.NewHeight(1, 200), nil }
	mars.CurrentTimeFn = func(context.Context) (time.Time, error) { return now, nil }
	venus.CurrentTimeFn = func(context.Context) (time.Time, error) { return now, nil }

	empty := func(context.Context, types.Version, string, uint64) ([]types.PacketInfo, error) { return nil, nil }
	noAcks := func(context.Context, types.Version, string, uint64) ([]types.AckInfo, error) { return nil, nil }
	mars.QuerySentPacketsFn, venus.QuerySentPacketsFn = empty, empty
	mars.QueryWrittenAcksFn, venus.QueryWrittenAcksFn = noAcks, noAcks

	endA := relayer.Endpoint{Client: mars, ClientID: clientOnA}
	endB := relayer.Endpoint{Client: venus, ClientID: clientOnB}
	l := newLink(Options{PathID: 1, Logger: log.NewNopLogger()}, endA, endB)

	return &fixture{mars: mars, venus: venus, link: l, now: now}
}

// wireClientUpdate makes dst's view of src updatable: the stored client trusts
// trustedHeight and one header update proves src's current height.
func wireClientUpdate(t *testing.T, dst, src *clienttest.Fake, trustedHeight, provenHeight uint64) *int {
	t.Helper()
	updates := 0
	dst.QueryClientStateFn = func(_ context.Context, clientID string) (*ibctm.ClientState, error) {
		return &ibctm.ClientState{
			ChainId:      src.ChainIDVal,
			LatestHeight: types.NewHeight(1, trustedHeight),
		}, nil
	}
	src.BuildHeaderUpdateFn = func(_ context.Context, trusted types.Height) (*ibctm.Header, error) {
		assert.Equal(t, types.NewHeight(1, trustedHeight), trusted)
		return &ibctm.Header{
			SignedHeader: &tmproto.SignedHeader{Header: &tmproto.Header{Height: int64(provenHeight)}},
		}, nil
	}
	dst.UpdateClientFn = func(_ context.Context, clientID string, _ *ibctm.Header) error {
		updates++
		return nil
	}
	return &updates
}

func rawProofAt(height uint64) func(context.Context, []byte, uint64) (types.RawProof, error) {
	return func(_ context.Context, key []byte, proofHeight uint64) (types.RawProof, error) {
		return types.RawProof{Value: []byte("v"), Proof: []byte("p"), Height: types.NewHeight(1, proofHeight)}, nil
	}
}

func TestRelayRoundV2HappyPath(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	packet := types.PacketInfo{
		Version: types.V2,
		V2: channeltypesv2.Packet{
			Sequence:          1,
			SourceClient:      clientOnA,
			DestinationClient: clientOnB,
			TimeoutTimestamp:  uint64(f.now.Add(600 * time.Second).Unix()),
		},
		Height: 95,
	}
	f.mars.QuerySentPacketsFn = func(_ context.Context, version types.Version, localClient string, minHeight uint64) ([]types.PacketInfo, error) {
		assert.Equal(t, types.V2, version)
		assert.Equal(t, clientOnA, localClient)
		// Watermark zero: discovery starts from the first block.
		assert.Equal(t, uint64(1), minHeight)
		return []types.PacketInfo{packet}, nil
	}
	f.venus.QueryUnreceivedPacketsFn = func(_ context.Context, _ types.Version, id string, seqs []uint64) ([]uint64, error) {
		assert.Equal(t, clientOnB, id)
		return seqs, nil
	}
	f.mars.QueryPacketCommitmentFn = func(context.Context, types.Version, string, uint64) ([]byte, error) {
		return []byte("commitment"), nil
	}

	// Venus' client of mars trusts height 90 and needs >= 96.
	updates := wireClientUpdate(t, f.venus, f.mars, 90, 100)
	f.mars.QueryRawProofFn = rawProofAt(100)

	var received []types.RecvPacketV2
	f.venus.RecvPacketsV2Fn = func(_ context.Context, packets []types.RecvPacketV2) (types.TxResult, error) {
		received = packets
		return types.TxResult{Height: 201, TxHash: "AA"}, nil
	}

	wm, stats, err := f.link.RelayRound(ctx, types.Watermark{}, 0, 0)
	require.NoError(t, err)

	require.Len(t, received, 1)
	assert.Equal(t, uint64(1), received[0].Packet.Sequence)
	assert.Equal(t, types.NewHeight(1, 100), received[0].Proof.Height)
	assert.Equal(t, 1, *updates)
	assert.Equal(t, 1, stats.AtoB.Packets)
	assert.Zero(t, stats.BtoA.Packets)

	// Watermarks advance to the heights captured at the start of the round.
	assert.Equal(t, uint64(100), wm.PacketHeightA)
	assert.Equal(t, uint64(200), wm.AckHeightB)
	assert.Equal(t, uint64(200), wm.PacketHeightB)
	assert.Equal(t, uint64(100), wm.AckHeightA)
}

func TestRelayRoundFilterDropsPackets(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	makePacket := func(seq uint64) types.PacketInfo {
		return types.PacketInfo{
			Version: types.V2,
			V2: channeltypesv2.Packet{
				Sequence:          seq,
				SourceClient:      clientOnA,
				DestinationClient: clientOnB,
				TimeoutTimestamp:  uint64(f.now.Add(time.Hour).Unix()),
			},
			Height: 90 + seq,
		}
	}
	f.mars.QuerySentPacketsFn = func(context.Context, types.Version, string, uint64) ([]types.PacketInfo, error) {
		return []types.PacketInfo{makePacket(1), makePacket(2), makePacket(3)}, nil
	}
	f.venus.QueryUnreceivedPacketsFn = func(_ context.Context, _ types.Version, _ string, seqs []uint64) ([]uint64, error) {
		return seqs, nil
	}
	f.mars.QueryPacketCommitmentFn = func(context.Context, types.Version, string, uint64) ([]byte, error) {
		return []byte("commitment"), nil
	}
	f.link.SetFilter(func(p types.PacketInfo) bool { return p.Sequence()%2 == 0 })

	wireClientUpdate(t, f.venus, f.mars, 90, 100)
	f.mars.QueryRawProofFn = rawProofAt(100)

	var received []types.RecvPacketV2
	f.venus.RecvPacketsV2Fn = func(_ context.Context, packets []types.RecvPacketV2) (types.TxResult, error) {
		received = packets
		return types.TxResult{}, nil
	}

	_, stats, err := f.link.RelayRound(ctx, types.Watermark{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, uint64(2), received[0].Packet.Sequence)
	assert.Equal(t, 1, stats.AtoB.Packets)
}

func TestRelayRoundTimeoutPath(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	expired := types.PacketInfo{
		Version: types.V2,
		V2: channeltypesv2.Packet{
			Sequence:          2,
			SourceClient:      clientOnA,
			DestinationClient: clientOnB,
			TimeoutTimestamp:  uint64(f.now.Add(-60 * time.Second).Unix()),
		},
		Height: 95,
	}
	f.mars.QuerySentPacketsFn = func(context.Context, types.Version, string, uint64) ([]types.PacketInfo, error) {
		return []types.PacketInfo{expired}, nil
	}
	f.venus.QueryUnreceivedPacketsFn = func(_ context.Context, _ types.Version, _ string, seqs []uint64) ([]uint64, error) {
		return seqs, nil
	}
	f.mars.QueryPacketCommitmentFn = func(context.Context, types.Version, string, uint64) ([]byte, error) {
		return []byte("commitment"), nil
	}

	waited := false
	f.venus.WaitOneBlockFn = func(context.Context) error {
		waited = true
		return nil
	}
	// Mars' client of venus refreshes to venus' current height for the non-receipt proof.
	wireClientUpdate(t, f.mars, f.venus, 190, 200)
	f.venus.QueryRawProofFn = rawProofAt(200)

	var timeouts []types.TimeoutPacketV2
	f.mars.TimeoutPacketsV2Fn = func(_ context.Context, ts []types.TimeoutPacketV2) (types.TxResult, error) {
		timeouts = ts
		return types.TxResult{}, nil
	}

	wm, stats, err := f.link.RelayRound(ctx, types.Watermark{}, 0, 0)
	require.NoError(t, err)

	// No recv was attempted (the RecvPacketsV2 hook is unset and would have failed),
	// the timeout was submitted on the source with a proof at the refreshed height.
	assert.True(t, waited)
	require.Len(t, timeouts, 1)
	assert.Equal(t, uint64(2), timeouts[0].Packet.Sequence)
	assert.Equal(t, types.NewHeight(1, 200), timeouts[0].Proof.Height)
	assert.Equal(t, 1, stats.AtoB.Timeouts)
	assert.Equal(t, uint64(100), wm.PacketHeightA)
}

func TestRelayRoundNothingPending(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// All discovery hooks return empty: no submission hook may be called (they are
	// unset and would error), and watermarks still advance.
	wm, stats, err := f.link.RelayRound(context.Background(), types.Watermark{PacketHeightA: 50}, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, RoundStats{}, stats)
	assert.Equal(t, uint64(100), wm.PacketHeightA)
	assert.Equal(t, uint64(200), wm.PacketHeightB)
}

func TestRelayRoundAcks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	acked := types.PacketInfo{
		Version: types.V2,
		V2: channeltypesv2.Packet{
			Sequence:          1,
			SourceClient:      clientOnA,
			DestinationClient: clientOnB,
			TimeoutTimestamp:  uint64(f.now.Add(time.Hour).Unix()),
		},
		Height: 95,
	}
	// Written on venus at height 198; relayed back to mars.
	f.venus.QueryWrittenAcksFn = func(_ context.Context, version types.Version, localClient string, minHeight uint64) ([]types.AckInfo, error) {
		assert.Equal(t, clientOnB, localClient)
		return []types.AckInfo{{Packet: acked, Acknowledgement: []byte("ack"), Height: 198, TxHash: "BB"}}, nil
	}
	f.mars.QueryUnreceivedAcksFn = func(_ context.Context, _ types.Version, id string, seqs []uint64) ([]uint64, error) {
		assert.Equal(t, clientOnA, id)
		return seqs, nil
	}

	wireClientUpdate(t, f.mars, f.venus, 190, 200)
	f.venus.QueryRawProofFn = rawProofAt(200)

	var acks []types.AckPacketV2
	f.mars.AckPacketsV2Fn = func(_ context.Context, a []types.AckPacketV2) (types.TxResult, error) {
		acks = a
		return types.TxResult{}, nil
	}

	_, stats, err := f.link.RelayRound(ctx, types.Watermark{}, 0, 0)
	require.NoError(t, err)
	require.Len(t, acks, 1)
	assert.Equal(t, []byte("ack"), acks[0].Acknowledgement)
	assert.Equal(t, types.NewHeight(1, 200), acks[0].Proof.Height)
	assert.Equal(t, 1, stats.AtoB.Acks)
}

func TestUpdateIfStaleDelegates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.mars.QueryConsensusStateFn = func(context.Context, string, types.Height) (*ibctm.ConsensusState, types.Height, error) {
		return &ibctm.ConsensusState{Timestamp: time.Now().Add(-time.Second)}, types.NewHeight(1, 99), nil
	}
	updated, err := f.link.UpdateIfStale(context.Background(), true, time.Minute)
	require.NoError(t, err)
	assert.False(t, updated)
}
