package link

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"cosmossdk.io/log"
	channeltypes "github.com/cosmos/ibc-go/v10/modules/core/04-channel/types"
	"github.com/pkg/errors"

	"github.com/tokenize-x/tx-relayer/relayer"
	"github.com/tokenize-x/tx-relayer/relayer/client"
	"github.com/tokenize-x/tx-relayer/relayer/lightclient"
	"github.com/tokenize-x/tx-relayer/relayer/types"
)

// Link owns an ordered pair of endpoints and relays packets, acknowledgements and
// timeouts between them. Both directions of a round share no in-flight state and run
// in parallel; within one direction the operation order is load-bearing.
type Link struct {
	id     uint64
	endA   relayer.Endpoint
	endB   relayer.Endpoint
	driver lightclient.Driver
	filter types.PacketFilter
	logger log.Logger

	// channels caches channel ends per chain for v1 connection filtering and
	// ordering checks. Channel ends are immutable once OPEN.
	chanMu   sync.Mutex
	channels map[string]*channeltypes.Channel
}

// ID returns the persisted path id this link relays.
func (l *Link) ID() uint64 { return l.id }

// EndpointA returns the A side endpoint.
func (l *Link) EndpointA() relayer.Endpoint { return l.endA }

// EndpointB returns the B side endpoint.
func (l *Link) EndpointB() relayer.Endpoint { return l.endB }

// Version returns the link's IBC version.
func (l *Link) Version() types.Version { return l.endA.Version() }

// SetFilter installs the packet predicate applied before submission.
func (l *Link) SetFilter(filter types.PacketFilter) { l.filter = filter }

// DirectionStats counts the submissions of one direction of a round.
type DirectionStats struct {
	Packets  int
	Acks     int
	Timeouts int
}

// RoundStats counts the submissions of a full round.
type RoundStats struct {
	AtoB DirectionStats
	BtoA DirectionStats
}

// RelayRound runs one relay round over both directions and returns the advanced
// watermark. A failing direction leaves its watermark fields untouched and surfaces
// its error; the other direction still advances.
func (l *Link) RelayRound(ctx context.Context, wm types.Watermark, timeoutBlocks, timeoutSeconds uint64) (types.Watermark, RoundStats, error) {
	type outcome struct {
		result directionResult
		err    error
	}
	var (
		wg       sync.WaitGroup
		abResult outcome
		baResult outcome
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		r, err := l.relayDirection(ctx, l.endA, l.endB, wm.PacketHeightA, wm.AckHeightB, timeoutBlocks, timeoutSeconds)
		abResult = outcome{r, err}
	}()
	go func() {
		defer wg.Done()
		r, err := l.relayDirection(ctx, l.endB, l.endA, wm.PacketHeightB, wm.AckHeightA, timeoutBlocks, timeoutSeconds)
		baResult = outcome{r, err}
	}()
	wg.Wait()

	newWM := wm
	var stats RoundStats
	if abResult.err == nil {
		newWM.PacketHeightA = abResult.result.srcHeight
		newWM.AckHeightB = abResult.result.destHeight
		stats.AtoB = abResult.result.stats
	} else {
		abResult.err = errors.Wrapf(abResult.err, "direction %s -> %s", l.endA.Client.ChainID(), l.endB.Client.ChainID())
	}
	if baResult.err == nil {
		newWM.PacketHeightB = baResult.result.srcHeight
		newWM.AckHeightA = baResult.result.destHeight
		stats.BtoA = baResult.result.stats
	} else {
		baResult.err = errors.Wrapf(baResult.err, "direction %s -> %s", l.endB.Client.ChainID(), l.endA.Client.ChainID())
	}
	return newWM, stats, stderrors.Join(abResult.err, baResult.err)
}

// UpdateIfStale refreshes the light client on the given side when its consensus state
// is older than maxAge. Side A refreshes A's view of B.
func (l *Link) UpdateIfStale(ctx context.Context, sideA bool, maxAge time.Duration) (bool, error) {
	if sideA {
		return l.driver.UpdateIfStale(ctx, l.endA.Client, l.endB.Client, l.endA.ClientID, maxAge)
	}
	return l.driver.UpdateIfStale(ctx, l.endB.Client, l.endA.Client, l.endB.ClientID, maxAge)
}

type directionResult struct {
	// srcHeight and destHeight are the heights observed at the start of the round;
	// they become the next watermark on success.
	srcHeight  uint64
	destHeight uint64
	stats      DirectionStats
}

// relayDirection runs one direction of a round: discovery, liveness filtering, recv
// submission, ack relay and timeout handling, strictly in that order.
func (l *Link) relayDirection(
	ctx context.Context,
	src, dst relayer.Endpoint,
	packetFloor, ackFloor uint64,
	timeoutBlocks, timeoutSeconds uint64,
) (directionResult, error) {
	srcCur, err := src.Client.CurrentHeight(ctx)
	if err != nil {
		return directionResult{}, err
	}
	destCur, err := dst.Client.CurrentHeight(ctx)
	if err != nil {
		return directionResult{}, err
	}
	result := directionResult{
		srcHeight:  srcCur.RevisionHeight,
		destHeight: destCur.RevisionHeight,
	}

	pending, err := l.pendingPackets(ctx, src, dst, packetFloor)
	if err != nil {
		return directionResult{}, err
	}
	pending = applyFilter(pending, l.filter)

	destTime, err := dst.Client.CurrentTime(ctx)
	if err != nil {
		return directionResult{}, err
	}
	alive, timedOut := SplitPendingPackets(destCur, destTime, pending, timeoutBlocks, timeoutSeconds)

	if len(alive) > 0 {
		if err := l.submitRecv(ctx, src, dst, alive); err != nil {
			return directionResult{}, err
		}
		result.stats.Packets = len(alive)
	}

	src.Client.WaitForIndexer(ctx)
	dst.Client.WaitForIndexer(ctx)

	ackCount, err := l.relayAcks(ctx, src, dst, ackFloor)
	if err != nil {
		return directionResult{}, err
	}
	result.stats.Acks = ackCount

	if len(timedOut) > 0 {
		if err := l.submitTimeouts(ctx, src, dst, timedOut); err != nil {
			return directionResult{}, err
		}
		result.stats.Timeouts = len(timedOut)
	}

	l.logger.Debug("direction done",
		"src", src.Client.ChainID(), "dst", dst.Client.ChainID(),
		"packets", result.stats.Packets, "acks", result.stats.Acks, "timeouts", result.stats.Timeouts)
	return result, nil
}

// pendingPackets discovers packets sent on src that the destination has not received
// and whose commitment is still present on src (a missing commitment means the packet
// already concluded with an ack or timeout).
func (l *Link) pendingPackets(ctx context.Context, src, dst relayer.Endpoint, packetFloor uint64) ([]types.PacketInfo, error) {
	version := src.Version()

	sent, err := src.QuerySentPackets(ctx, backLookup(packetFloor))
	if err != nil {
		return nil, err
	}
	if version == types.V1 {
		sent, err = l.filterBySourceConnection(ctx, src, sent)
		if err != nil {
			return nil, err
		}
	}
	if len(sent) == 0 {
		return nil, nil
	}

	var pending []types.PacketInfo
	for destID, group := range groupByDestination(sent) {
		unreceived, err := dst.Client.QueryUnreceivedPackets(ctx, version, destID, sequences(group))
		if err != nil {
			return nil, err
		}
		unreceivedSet := make(map[uint64]struct{}, len(unreceived))
		for _, seq := range unreceived {
			unreceivedSet[seq] = struct{}{}
		}
		for _, p := range group {
			if _, ok := unreceivedSet[p.Sequence()]; !ok {
				continue
			}
			commitment, err := src.Client.QueryPacketCommitment(ctx, version, p.SourceID(), p.Sequence())
			if err != nil {
				return nil, err
			}
			if len(commitment) == 0 {
				continue
			}
			pending = append(pending, p)
		}
	}
	return sortBySequence(pending), nil
}

// submitRecv updates dst's client past the newest packet height, proves every packet
// commitment on src and submits one batched recv tx on dst.
func (l *Link) submitRecv(ctx context.Context, src, dst relayer.Endpoint, alive []types.PacketInfo) error {
	version := src.Version()

	neededHeight := maxPacketHeight(alive) + 1
	provenHeight, err := l.driver.UpdateClientToHeight(ctx, dst.Client, src.Client, dst.ClientID, neededHeight)
	if err != nil {
		return err
	}

	if version == types.V1 {
		if err := l.checkOrderedBatches(ctx, src, alive); err != nil {
			return err
		}
		packets := make([]types.RecvPacketV1, 0, len(alive))
		for _, p := range alive {
			proof, err := l.packetProof(ctx, src, p, provenHeight)
			if err != nil {
				return err
			}
			packets = append(packets, types.RecvPacketV1{Packet: p.V1, Proof: proof})
		}
		_, err = dst.Client.RecvPacketsV1(ctx, packets)
		return err
	}

	packets := make([]types.RecvPacketV2, 0, len(alive))
	for _, p := range alive {
		proof, err := l.packetProof(ctx, src, p, provenHeight)
		if err != nil {
			return err
		}
		packets = append(packets, types.RecvPacketV2{Packet: p.V2, Proof: proof})
	}
	_, err = dst.Client.RecvPacketsV2(ctx, packets)
	return err
}

func (l *Link) packetProof(ctx context.Context, src relayer.Endpoint, p types.PacketInfo, provenHeight types.Height) (types.RawProof, error) {
	key, err := client.PacketCommitmentKey(p.Version, p.SourceID(), p.Sequence())
	if err != nil {
		return types.RawProof{}, err
	}
	return src.Client.QueryRawProof(ctx, key, provenHeight.RevisionHeight)
}

// relayAcks discovers acknowledgements written on dst for packets sent from src and
// relays the ones src has not processed yet.
func (l *Link) relayAcks(ctx context.Context, src, dst relayer.Endpoint, ackFloor uint64) (int, error) {
	version := src.Version()

	written, err := dst.QueryWrittenAcks(ctx, backLookup(ackFloor))
	if err != nil {
		return 0, err
	}
	if version == types.V1 {
		written, err = l.filterAcksBySourceConnection(ctx, src, written)
		if err != nil {
			return 0, err
		}
	}
	if len(written) == 0 {
		return 0, nil
	}

	// Keep only acks whose packet src still holds a commitment for, i.e. the ack has
	// not been relayed back yet.
	bySource := make(map[string][]types.AckInfo)
	for _, a := range written {
		bySource[a.Packet.SourceID()] = append(bySource[a.Packet.SourceID()], a)
	}
	var pending []types.AckInfo
	for srcID, group := range bySource {
		seqs := make([]uint64, 0, len(group))
		for _, a := range group {
			seqs = append(seqs, a.Packet.Sequence())
		}
		unreceived, err := src.Client.QueryUnreceivedAcks(ctx, version, srcID, seqs)
		if err != nil {
			return 0, err
		}
		unreceivedSet := make(map[uint64]struct{}, len(unreceived))
		for _, seq := range unreceived {
			unreceivedSet[seq] = struct{}{}
		}
		for _, a := range group {
			if _, ok := unreceivedSet[a.Packet.Sequence()]; ok {
				pending = append(pending, a)
			}
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	neededHeight := maxAckHeight(pending) + 1
	provenHeight, err := l.driver.UpdateClientToHeight(ctx, src.Client, dst.Client, src.ClientID, neededHeight)
	if err != nil {
		return 0, err
	}

	if version == types.V1 {
		acks := make([]types.AckPacketV1, 0, len(pending))
		for _, a := range pending {
			proof, err := l.ackProof(ctx, dst, a, provenHeight)
			if err != nil {
				return 0, err
			}
			acks = append(acks, types.AckPacketV1{Packet: a.Packet.V1, Acknowledgement: a.Acknowledgement, Proof: proof})
		}
		if _, err := src.Client.AckPacketsV1(ctx, acks); err != nil {
			return 0, err
		}
		return len(acks), nil
	}

	acks := make([]types.AckPacketV2, 0, len(pending))
	for _, a := range pending {
		proof, err := l.ackProof(ctx, dst, a, provenHeight)
		if err != nil {
			return 0, err
		}
		acks = append(acks, types.AckPacketV2{Packet: a.Packet.V2, Acknowledgement: a.Acknowledgement, Proof: proof})
	}
	if _, err := src.Client.AckPacketsV2(ctx, acks); err != nil {
		return 0, err
	}
	return len(acks), nil
}

func (l *Link) ackProof(ctx context.Context, dst relayer.Endpoint, a types.AckInfo, provenHeight types.Height) (types.RawProof, error) {
	key, err := client.PacketAcknowledgementKey(a.Packet.Version, a.Packet.DestinationID(), a.Packet.Sequence())
	if err != nil {
		return types.RawProof{}, err
	}
	return dst.Client.QueryRawProof(ctx, key, provenHeight.RevisionHeight)
}

// submitTimeouts proves non-receipt of the timed out packets on dst at a fresh height
// and submits the timeouts on src.
func (l *Link) submitTimeouts(ctx context.Context, src, dst relayer.Endpoint, timedOut []types.PacketInfo) error {
	version := src.Version()

	// The non-receipt proof must be taken at a height past the timeout cutoff, so
	// force dst to advance before refreshing src's view of it.
	if err := dst.Client.WaitOneBlock(ctx); err != nil {
		return err
	}
	provenHeight, err := l.driver.UpdateClient(ctx, src.Client, dst.Client, src.ClientID)
	if err != nil {
		return err
	}

	if version == types.V1 {
		timeouts := make([]types.TimeoutPacketV1, 0, len(timedOut))
		for _, p := range timedOut {
			timeout, err := l.buildTimeoutV1(ctx, src, dst, p, provenHeight)
			if err != nil {
				return err
			}
			timeouts = append(timeouts, timeout)
		}
		_, err = src.Client.TimeoutPacketsV1(ctx, timeouts)
		return err
	}

	timeouts := make([]types.TimeoutPacketV2, 0, len(timedOut))
	for _, p := range timedOut {
		key, err := client.PacketReceiptKey(p.Version, p.DestinationID(), p.Sequence())
		if err != nil {
			return err
		}
		proof, err := dst.Client.QueryRawProof(ctx, key, provenHeight.RevisionHeight)
		if err != nil {
			return err
		}
		timeouts = append(timeouts, types.TimeoutPacketV2{Packet: p.V2, Proof: proof})
	}
	_, err = src.Client.TimeoutPacketsV2(ctx, timeouts)
	return err
}

// buildTimeoutV1 builds a v1 timeout: ordered channels prove the next receive
// sequence, unordered channels prove receipt absence.
func (l *Link) buildTimeoutV1(ctx context.Context, src, dst relayer.Endpoint, p types.PacketInfo, provenHeight types.Height) (types.TimeoutPacketV1, error) {
	channel, err := l.channelFor(ctx, src, p.V1.SourcePort, p.V1.SourceChannel)
	if err != nil {
		return types.TimeoutPacketV1{}, err
	}

	nextSequenceRecv := p.Sequence()
	var key []byte
	if channel.Ordering == channeltypes.ORDERED {
		nextSequenceRecv, err = dst.Client.QueryNextSequenceRecv(ctx, p.V1.DestinationPort, p.V1.DestinationChannel)
		if err != nil {
			return types.TimeoutPacketV1{}, err
		}
		key, err = client.NextSequenceRecvKey(p.DestinationID())
	} else {
		key, err = client.PacketReceiptKey(p.Version, p.DestinationID(), p.Sequence())
	}
	if err != nil {
		return types.TimeoutPacketV1{}, err
	}

	proof, err := dst.Client.QueryRawProof(ctx, key, provenHeight.RevisionHeight)
	if err != nil {
		return types.TimeoutPacketV1{}, err
	}
	return types.TimeoutPacketV1{Packet: p.V1, Proof: proof, NextSequenceRecv: nextSequenceRecv}, nil
}

// checkOrderedBatches verifies dense ascending sequences per ordered source channel.
func (l *Link) checkOrderedBatches(ctx context.Context, src relayer.Endpoint, packets []types.PacketInfo) error {
	bySource := make(map[string][]types.PacketInfo)
	for _, p := range packets {
		bySource[p.SourceID()] = append(bySource[p.SourceID()], p)
	}
	for _, group := range bySource {
		channel, err := l.channelFor(ctx, src, group[0].V1.SourcePort, group[0].V1.SourceChannel)
		if err != nil {
			return err
		}
		if channel.Ordering != channeltypes.ORDERED {
			continue
		}
		if err := checkDense(sortBySequence(group)); err != nil {
			return err
		}
	}
	return nil
}

// filterBySourceConnection keeps v1 packets whose source channel rides this link's
// connection on the source chain.
func (l *Link) filterBySourceConnection(ctx context.Context, src relayer.Endpoint, packets []types.PacketInfo) ([]types.PacketInfo, error) {
	var kept []types.PacketInfo
	for _, p := range packets {
		onLink, err := l.channelOnConnection(ctx, src, p.V1.SourcePort, p.V1.SourceChannel)
		if err != nil {
			return nil, err
		}
		if onLink {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

// filterAcksBySourceConnection keeps v1 acks whose packet originated on this link's
// connection.
func (l *Link) filterAcksBySourceConnection(ctx context.Context, src relayer.Endpoint, acks []types.AckInfo) ([]types.AckInfo, error) {
	var kept []types.AckInfo
	for _, a := range acks {
		onLink, err := l.channelOnConnection(ctx, src, a.Packet.V1.SourcePort, a.Packet.V1.SourceChannel)
		if err != nil {
			return nil, err
		}
		if onLink {
			kept = append(kept, a)
		}
	}
	return kept, nil
}

func (l *Link) channelOnConnection(ctx context.Context, src relayer.Endpoint, portID, channelID string) (bool, error) {
	channel, err := l.channelFor(ctx, src, portID, channelID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return len(channel.ConnectionHops) > 0 && channel.ConnectionHops[0] == src.ConnectionID, nil
}

// channelFor returns the channel end on the endpoint's chain, cached per chain.
func (l *Link) channelFor(ctx context.Context, end relayer.Endpoint, portID, channelID string) (*channeltypes.Channel, error) {
	cacheKey := end.Client.ChainID() + "|" + portID + "/" + channelID

	l.chanMu.Lock()
	if cached, ok := l.channels[cacheKey]; ok {
		l.chanMu.Unlock()
		return cached, nil
	}
	l.chanMu.Unlock()

	channel, err := end.Client.QueryChannel(ctx, portID, channelID)
	if err != nil {
		return nil, err
	}

	// Only OPEN channels are relayable and immutable enough to cache.
	if channel.State == channeltypes.OPEN {
		l.chanMu.Lock()
		l.channels[cacheKey] = channel
		l.chanMu.Unlock()
	}
	return channel, nil
}
