package link

import (
	"testing"
	"time"

	channeltypes "github.com/cosmos/ibc-go/v10/modules/core/04-channel/types"
	channeltypesv2 "github.com/cosmos/ibc-go/v10/modules/core/04-channel/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenize-x/tx-relayer/relayer/types"
)

func v1Packet(seq uint64, timeoutHeight types.Height, timeoutNanos uint64) types.PacketInfo {
	return types.PacketInfo{
		Version: types.V1,
		V1: channeltypes.Packet{
			Sequence:           seq,
			SourcePort:         "transfer",
			SourceChannel:      "channel-0",
			DestinationPort:    "transfer",
			DestinationChannel: "channel-1",
			TimeoutHeight:      timeoutHeight,
			TimeoutTimestamp:   timeoutNanos,
		},
	}
}

func v2Packet(seq, timeoutUnix uint64) types.PacketInfo {
	return types.PacketInfo{
		Version: types.V2,
		V2: channeltypesv2.Packet{
			Sequence:          seq,
			SourceClient:      "07-tendermint-0",
			DestinationClient: "07-tendermint-1",
			TimeoutTimestamp:  timeoutUnix,
		},
	}
}

func TestSplitPendingPacketsPartitions(t *testing.T) {
	t.Parallel()

	destHeight := types.NewHeight(1, 100)
	destTime := time.Unix(1_700_000_000, 0)

	packets := []types.PacketInfo{
		v1Packet(1, types.NewHeight(1, 200), 0),                                  // alive on height
		v1Packet(2, types.NewHeight(1, 90), 0),                                   // timed out on height
		v1Packet(3, types.ZeroHeight(), uint64(destTime.Add(time.Hour).UnixNano())),  // alive on timestamp
		v1Packet(4, types.ZeroHeight(), uint64(destTime.Add(-time.Minute).UnixNano())), // timed out on timestamp
	}

	alive, timedOut := SplitPendingPackets(destHeight, destTime, packets, 0, 0)
	require.Len(t, alive, 2)
	require.Len(t, timedOut, 2)

	// Partition: everything lands on exactly one side.
	assert.Equal(t, uint64(1), alive[0].Sequence())
	assert.Equal(t, uint64(3), alive[1].Sequence())
	assert.Equal(t, uint64(2), timedOut[0].Sequence())
	assert.Equal(t, uint64(4), timedOut[1].Sequence())
}

func TestSplitPendingPacketsSlackPrefersTimeout(t *testing.T) {
	t.Parallel()

	destHeight := types.NewHeight(1, 100)
	destTime := time.Unix(1_700_000_000, 0)

	// Expires at height 105: alive without slack, timed out with 10 blocks slack.
	onTheVerge := v1Packet(1, types.NewHeight(1, 105), 0)

	alive, timedOut := SplitPendingPackets(destHeight, destTime, []types.PacketInfo{onTheVerge}, 0, 0)
	require.Len(t, alive, 1)
	require.Empty(t, timedOut)

	alive, timedOut = SplitPendingPackets(destHeight, destTime, []types.PacketInfo{onTheVerge}, 10, 0)
	require.Empty(t, alive)
	require.Len(t, timedOut, 1)

	// Same for the timestamp cutoff.
	verge := v1Packet(2, types.ZeroHeight(), uint64(destTime.Add(5*time.Second).UnixNano()))
	alive, _ = SplitPendingPackets(destHeight, destTime, []types.PacketInfo{verge}, 0, 0)
	require.Len(t, alive, 1)
	_, timedOut = SplitPendingPackets(destHeight, destTime, []types.PacketInfo{verge}, 0, 30)
	require.Len(t, timedOut, 1)
}

func TestSplitPendingPacketsV2UsesOnlyTimestamp(t *testing.T) {
	t.Parallel()

	destHeight := types.NewHeight(1, 100)
	destTime := time.Unix(1_700_000_000, 0)

	packets := []types.PacketInfo{
		v2Packet(1, uint64(destTime.Add(10*time.Minute).Unix())),
		v2Packet(2, uint64(destTime.Add(-time.Minute).Unix())),
	}
	alive, timedOut := SplitPendingPackets(destHeight, destTime, packets, 0, 0)
	require.Len(t, alive, 1)
	require.Len(t, timedOut, 1)
	assert.Equal(t, uint64(1), alive[0].Sequence())
	assert.Equal(t, uint64(2), timedOut[0].Sequence())
}

func TestSplitPendingPacketsEmpty(t *testing.T) {
	t.Parallel()

	alive, timedOut := SplitPendingPackets(types.NewHeight(1, 1), time.Now(), nil, 2, 10)
	assert.Empty(t, alive)
	assert.Empty(t, timedOut)
}

func TestApplyFilter(t *testing.T) {
	t.Parallel()

	packets := []types.PacketInfo{
		v2Packet(1, 100), v2Packet(2, 100), v2Packet(3, 100),
	}

	kept := applyFilter(packets, nil)
	assert.Len(t, kept, 3)

	kept = applyFilter(packets, func(p types.PacketInfo) bool {
		return p.Sequence()%2 == 0
	})
	require.Len(t, kept, 1)
	assert.Equal(t, uint64(2), kept[0].Sequence())
}

func TestCheckDense(t *testing.T) {
	t.Parallel()

	dense := sortBySequence([]types.PacketInfo{v2Packet(4, 0), v2Packet(2, 0), v2Packet(3, 0)})
	require.NoError(t, checkDense(dense))

	gap := sortBySequence([]types.PacketInfo{v2Packet(2, 0), v2Packet(5, 0)})
	require.Error(t, checkDense(gap))

	require.NoError(t, checkDense(nil))
	require.NoError(t, checkDense([]types.PacketInfo{v2Packet(9, 0)}))
}

func TestGroupByDestination(t *testing.T) {
	t.Parallel()

	a := v1Packet(1, types.NewHeight(1, 10), 0)
	b := v1Packet(2, types.NewHeight(1, 10), 0)
	c := v2Packet(1, 0)

	groups := groupByDestination([]types.PacketInfo{a, b, c})
	require.Len(t, groups, 2)
	assert.Len(t, groups["transfer/channel-1"], 2)
	assert.Len(t, groups["07-tendermint-1"], 1)
}

func TestBackLookup(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(98), backLookup(100))
	assert.Equal(t, uint64(1), backLookup(2))
	assert.Equal(t, uint64(1), backLookup(1))
	assert.Equal(t, uint64(1), backLookup(0))
}

func TestMaxHeights(t *testing.T) {
	t.Parallel()

	packets := []types.PacketInfo{
		{Height: 10}, {Height: 55}, {Height: 7},
	}
	assert.Equal(t, uint64(55), maxPacketHeight(packets))
	assert.Equal(t, uint64(0), maxPacketHeight(nil))

	acks := []types.AckInfo{{Height: 3}, {Height: 12}}
	assert.Equal(t, uint64(12), maxAckHeight(acks))
}

func TestSequencesOrder(t *testing.T) {
	t.Parallel()

	seqs := sequences([]types.PacketInfo{v2Packet(5, 0), v2Packet(1, 0)})
	assert.Equal(t, []uint64{5, 1}, seqs)
}
