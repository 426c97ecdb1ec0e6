// Package link implements the bidirectional relay state machine over two endpoints:
// discovery of pending packets, liveness filtering, client updates, proof
// construction, submission and timeout handling for IBC v1 and v2.
package link

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/tokenize-x/tx-relayer/relayer/types"
)

// SplitPendingPackets partitions packets into those still deliverable on the
// destination and those already past their timeout. The slack margins widen the
// timeout cutoffs so packets on the verge go to the timeout side rather than risk a
// recv that fails on chain. V1 packets time out on height or timestamp (nanoseconds);
// v2 packets only on timestamp (seconds).
func SplitPendingPackets(
	destHeight types.Height,
	destTime time.Time,
	packets []types.PacketInfo,
	timeoutBlocks, timeoutSeconds uint64,
) (alive, timedOut []types.PacketInfo) {
	cutoffHeight := types.NewHeight(destHeight.RevisionNumber, destHeight.RevisionHeight+timeoutBlocks)
	cutoffUnix := destTime.Unix() + int64(timeoutSeconds)
	cutoffUnixNano := destTime.UnixNano() + int64(timeoutSeconds)*int64(time.Second)

	for _, p := range packets {
		if isTimedOut(p, cutoffHeight, cutoffUnix, cutoffUnixNano) {
			timedOut = append(timedOut, p)
		} else {
			alive = append(alive, p)
		}
	}
	return alive, timedOut
}

func isTimedOut(p types.PacketInfo, cutoffHeight types.Height, cutoffUnix, cutoffUnixNano int64) bool {
	if p.Version == types.V2 {
		return p.V2.TimeoutTimestamp != 0 && p.V2.TimeoutTimestamp <= uint64(cutoffUnix)
	}
	if !p.V1.TimeoutHeight.IsZero() && types.HeightGTE(cutoffHeight, p.V1.TimeoutHeight) {
		return true
	}
	return p.V1.TimeoutTimestamp != 0 && p.V1.TimeoutTimestamp <= uint64(cutoffUnixNano)
}

// applyFilter drops packets rejected by the injected predicate. A nil filter keeps
// everything.
func applyFilter(packets []types.PacketInfo, filter types.PacketFilter) []types.PacketInfo {
	if filter == nil {
		return packets
	}
	return lo.Filter(packets, func(p types.PacketInfo, _ int) bool {
		return filter(p)
	})
}

// groupByDestination groups packets by their destination grouping id (port/channel
// for v1, destination client for v2), preserving no particular group order.
func groupByDestination(packets []types.PacketInfo) map[string][]types.PacketInfo {
	return lo.GroupBy(packets, func(p types.PacketInfo) string {
		return p.DestinationID()
	})
}

// sequences returns the packet sequences in input order.
func sequences(packets []types.PacketInfo) []uint64 {
	return lo.Map(packets, func(p types.PacketInfo, _ int) uint64 {
		return p.Sequence()
	})
}

// sortBySequence orders packets by ascending sequence in place and returns them.
func sortBySequence(packets []types.PacketInfo) []types.PacketInfo {
	sort.Slice(packets, func(i, j int) bool {
		return packets[i].Sequence() < packets[j].Sequence()
	})
	return packets
}

// checkDense verifies a sorted sequence run has no gaps. Ordered v1 channels must
// submit dense ascending batches; a gap fails the whole batch.
func checkDense(packets []types.PacketInfo) error {
	for i := 1; i < len(packets); i++ {
		prev, cur := packets[i-1].Sequence(), packets[i].Sequence()
		if cur != prev+1 {
			return errors.Wrapf(types.ErrConfig,
				"ordered channel batch has a sequence gap: %d followed by %d", prev, cur)
		}
	}
	return nil
}

// maxPacketHeight returns the highest source-chain height among the packets.
func maxPacketHeight(packets []types.PacketInfo) uint64 {
	var maxHeight uint64
	for _, p := range packets {
		if p.Height > maxHeight {
			maxHeight = p.Height
		}
	}
	return maxHeight
}

// maxAckHeight returns the highest writing-chain height among the acks.
func maxAckHeight(acks []types.AckInfo) uint64 {
	var maxHeight uint64
	for _, a := range acks {
		if a.Height > maxHeight {
			maxHeight = a.Height
		}
	}
	return maxHeight
}

// backLookup lowers a watermark by the reorg/indexer-lag absorption window without
// going below the first block.
func backLookup(height uint64) uint64 {
	if height > 2 {
		return height - 2
	}
	return 1
}
