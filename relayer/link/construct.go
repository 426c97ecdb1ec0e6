package link

import (
	"context"
	"time"

	"cosmossdk.io/log"
	connectiontypes "github.com/cosmos/ibc-go/v10/modules/core/03-connection/types"
	channeltypes "github.com/cosmos/ibc-go/v10/modules/core/04-channel/types"
	"github.com/pkg/errors"

	"github.com/tokenize-x/tx-relayer/relayer"
	"github.com/tokenize-x/tx-relayer/relayer/client"
	"github.com/tokenize-x/tx-relayer/relayer/lightclient"
	"github.com/tokenize-x/tx-relayer/relayer/types"
)

// cosmosMerklePath is the merkle path to the ICS-24 provable store registered with v2
// counterparties on cosmos-sdk chains.
var cosmosMerklePath = [][]byte{[]byte("ibc"), {}}

// Options carries the link construction inputs shared by all variants.
type Options struct {
	PathID uint64
	Logger log.Logger
	Filter types.PacketFilter
	// TrustPeriod overrides the trusting period of newly created clients; zero
	// selects two thirds of the source chain's unbonding period.
	TrustPeriod time.Duration
}

func newLink(opts Options, endA, endB relayer.Endpoint) *Link {
	logger := opts.Logger.With("module", "link", "path", opts.PathID)
	return &Link{
		id:       opts.PathID,
		endA:     endA,
		endB:     endB,
		driver:   lightclient.NewDriver(logger),
		filter:   opts.Filter,
		logger:   logger,
		channels: make(map[string]*channeltypes.Channel),
	}
}

// NewFromExistingV1 constructs a v1 link over two already-open connections. The
// connections must be OPEN, reference each other's clients, and the clients must both
// match their source chain's identity and consensus state. Any failure refuses the
// link.
func NewFromExistingV1(ctx context.Context, clientA, clientB client.Client, connA, connB string, opts Options) (*Link, error) {
	connectionA, err := clientA.QueryConnection(ctx, connA)
	if err != nil {
		return nil, errors.Wrapf(err, "reading connection %s on %s", connA, clientA.ChainID())
	}
	connectionB, err := clientB.QueryConnection(ctx, connB)
	if err != nil {
		return nil, errors.Wrapf(err, "reading connection %s on %s", connB, clientB.ChainID())
	}

	if connectionA.State != connectiontypes.OPEN {
		return nil, errors.Wrapf(types.ErrConnectionNotOpen,
			"connection %s on %s is %s", connA, clientA.ChainID(), connectionA.State)
	}
	if connectionB.State != connectiontypes.OPEN {
		return nil, errors.Wrapf(types.ErrConnectionNotOpen,
			"connection %s on %s is %s", connB, clientB.ChainID(), connectionB.State)
	}
	if connectionA.Counterparty.ClientId != connectionB.ClientId ||
		connectionB.Counterparty.ClientId != connectionA.ClientId {
		return nil, errors.Wrapf(types.ErrChainMismatch,
			"connections %s and %s do not reference each other's clients", connA, connB)
	}
	if connectionA.Counterparty.ConnectionId != connB ||
		connectionB.Counterparty.ConnectionId != connA {
		return nil, errors.Wrapf(types.ErrChainMismatch,
			"connections %s and %s do not reference each other", connA, connB)
	}

	endA := relayer.Endpoint{Client: clientA, ClientID: connectionA.ClientId, ConnectionID: connA}
	endB := relayer.Endpoint{Client: clientB, ClientID: connectionB.ClientId, ConnectionID: connB}
	if err := verifyClientPair(ctx, endA, endB, opts.Logger); err != nil {
		return nil, err
	}
	return newLink(opts, endA, endB), nil
}

// CreateWithNewConnectionsV1 creates fresh clients on both chains and performs the
// four-step connection handshake, followed by no channels: callers open channels per
// application via OpenChannel. A failure at any step aborts; partial on-chain state in
// non-OPEN states is harmless and left in place. Returns the link and both connection
// ids.
func CreateWithNewConnectionsV1(ctx context.Context, clientA, clientB client.Client, opts Options) (*Link, string, string, error) {
	driver := lightclient.NewDriver(opts.Logger)

	clientOnA, err := driver.CreateClient(ctx, clientA, clientB, opts.TrustPeriod)
	if err != nil {
		return nil, "", "", err
	}
	clientOnB, err := driver.CreateClient(ctx, clientB, clientA, opts.TrustPeriod)
	if err != nil {
		return nil, "", "", err
	}
	if err := clientA.WaitOneBlock(ctx); err != nil {
		return nil, "", "", err
	}
	if err := clientB.WaitOneBlock(ctx); err != nil {
		return nil, "", "", err
	}

	connA, err := clientA.ConnOpenInit(ctx, clientOnA, clientOnB)
	if err != nil {
		return nil, "", "", errors.Wrap(err, "connection open init")
	}

	provenOnB, err := driver.UpdateClient(ctx, clientB, clientA, clientOnB)
	if err != nil {
		return nil, "", "", err
	}
	proofInit, err := clientA.QueryRawProof(ctx, client.ConnectionKey(connA), provenOnB.RevisionHeight)
	if err != nil {
		return nil, "", "", err
	}
	connB, err := clientB.ConnOpenTry(ctx, clientOnB, clientOnA, connA, proofInit)
	if err != nil {
		return nil, "", "", errors.Wrap(err, "connection open try")
	}

	provenOnA, err := driver.UpdateClient(ctx, clientA, clientB, clientOnA)
	if err != nil {
		return nil, "", "", err
	}
	proofTry, err := clientB.QueryRawProof(ctx, client.ConnectionKey(connB), provenOnA.RevisionHeight)
	if err != nil {
		return nil, "", "", err
	}
	if err := clientA.ConnOpenAck(ctx, connA, connB, proofTry); err != nil {
		return nil, "", "", errors.Wrap(err, "connection open ack")
	}

	provenOnB, err = driver.UpdateClient(ctx, clientB, clientA, clientOnB)
	if err != nil {
		return nil, "", "", err
	}
	proofAck, err := clientA.QueryRawProof(ctx, client.ConnectionKey(connA), provenOnB.RevisionHeight)
	if err != nil {
		return nil, "", "", err
	}
	if err := clientB.ConnOpenConfirm(ctx, connB, proofAck); err != nil {
		return nil, "", "", errors.Wrap(err, "connection open confirm")
	}

	endA := relayer.Endpoint{Client: clientA, ClientID: clientOnA, ConnectionID: connA}
	endB := relayer.Endpoint{Client: clientB, ClientID: clientOnB, ConnectionID: connB}
	return newLink(opts, endA, endB), connA, connB, nil
}

// OpenChannel performs the four-step channel handshake on this v1 link, opening an
// unordered channel on the same port on both sides. Returns both channel ids.
func (l *Link) OpenChannel(ctx context.Context, portID, version string) (string, string, error) {
	if l.Version() != types.V1 {
		return "", "", errors.Wrap(types.ErrUnsupported, "channels are IBC v1 only")
	}
	clientA, clientB := l.endA.Client, l.endB.Client

	chanA, err := clientA.ChanOpenInit(ctx, portID, version, l.endA.ConnectionID, portID, channeltypes.UNORDERED)
	if err != nil {
		return "", "", errors.Wrap(err, "channel open init")
	}

	provenOnB, err := l.driver.UpdateClient(ctx, clientB, clientA, l.endB.ClientID)
	if err != nil {
		return "", "", err
	}
	proofInit, err := clientA.QueryRawProof(ctx, client.ChannelKey(portID, chanA), provenOnB.RevisionHeight)
	if err != nil {
		return "", "", err
	}
	chanB, err := clientB.ChanOpenTry(ctx, portID, version, l.endB.ConnectionID, portID, chanA, version, channeltypes.UNORDERED, proofInit)
	if err != nil {
		return "", "", errors.Wrap(err, "channel open try")
	}

	provenOnA, err := l.driver.UpdateClient(ctx, clientA, clientB, l.endA.ClientID)
	if err != nil {
		return "", "", err
	}
	proofTry, err := clientB.QueryRawProof(ctx, client.ChannelKey(portID, chanB), provenOnA.RevisionHeight)
	if err != nil {
		return "", "", err
	}
	if err := clientA.ChanOpenAck(ctx, portID, chanA, chanB, version, proofTry); err != nil {
		return "", "", errors.Wrap(err, "channel open ack")
	}

	provenOnB, err = l.driver.UpdateClient(ctx, clientB, clientA, l.endB.ClientID)
	if err != nil {
		return "", "", err
	}
	proofAck, err := clientA.QueryRawProof(ctx, client.ChannelKey(portID, chanA), provenOnB.RevisionHeight)
	if err != nil {
		return "", "", err
	}
	if err := clientB.ChanOpenConfirm(ctx, portID, chanB, proofAck); err != nil {
		return "", "", errors.Wrap(err, "channel open confirm")
	}

	l.logger.Info("opened channel", "port", portID, "channel_a", chanA, "channel_b", chanB)
	return chanA, chanB, nil
}

// CreateWithNewClientsV2 creates fresh clients on both chains and registers them as
// each other's counterparties. No handshake is needed in v2. Returns the link and the
// client ids on A and B.
func CreateWithNewClientsV2(ctx context.Context, clientA, clientB client.Client, opts Options) (*Link, string, string, error) {
	driver := lightclient.NewDriver(opts.Logger)

	clientOnA, err := driver.CreateClient(ctx, clientA, clientB, opts.TrustPeriod)
	if err != nil {
		return nil, "", "", err
	}
	clientOnB, err := driver.CreateClient(ctx, clientB, clientA, opts.TrustPeriod)
	if err != nil {
		return nil, "", "", err
	}
	if err := clientA.WaitOneBlock(ctx); err != nil {
		return nil, "", "", err
	}
	if err := clientB.WaitOneBlock(ctx); err != nil {
		return nil, "", "", err
	}

	if err := clientA.RegisterCounterparty(ctx, clientOnA, clientOnB, cosmosMerklePath); err != nil {
		return nil, "", "", errors.Wrapf(err, "registering counterparty on %s", clientA.ChainID())
	}
	if err := clientB.RegisterCounterparty(ctx, clientOnB, clientOnA, cosmosMerklePath); err != nil {
		return nil, "", "", errors.Wrapf(err, "registering counterparty on %s", clientB.ChainID())
	}

	endA := relayer.Endpoint{Client: clientA, ClientID: clientOnA}
	endB := relayer.Endpoint{Client: clientB, ClientID: clientOnB}
	return newLink(opts, endA, endB), clientOnA, clientOnB, nil
}

// NewFromExistingV2 constructs a v2 link over two already-registered clients. The
// registrations must point at each other and both clients must match their source
// chain's identity and consensus state.
func NewFromExistingV2(ctx context.Context, clientA, clientB client.Client, idA, idB string, opts Options) (*Link, error) {
	counterpartyOfA, err := clientA.QueryCounterparty(ctx, idA)
	if err != nil {
		return nil, err
	}
	if counterpartyOfA != idB {
		return nil, errors.Wrapf(types.ErrChainMismatch,
			"client %s on %s is registered against %s, expected %s",
			idA, clientA.ChainID(), counterpartyOfA, idB)
	}
	counterpartyOfB, err := clientB.QueryCounterparty(ctx, idB)
	if err != nil {
		return nil, err
	}
	if counterpartyOfB != idA {
		return nil, errors.Wrapf(types.ErrChainMismatch,
			"client %s on %s is registered against %s, expected %s",
			idB, clientB.ChainID(), counterpartyOfB, idA)
	}

	endA := relayer.Endpoint{Client: clientA, ClientID: idA}
	endB := relayer.Endpoint{Client: clientB, ClientID: idB}
	if err := verifyClientPair(ctx, endA, endB, opts.Logger); err != nil {
		return nil, err
	}
	return newLink(opts, endA, endB), nil
}

// verifyClientPair asserts both clients track the chain on the other end: the client
// state's chain id must match the opposite node's reported chain id, and the stored
// consensus state must match a freshly queried source header.
func verifyClientPair(ctx context.Context, endA, endB relayer.Endpoint, logger log.Logger) error {
	driver := lightclient.NewDriver(logger)

	clientStateA, err := endA.Client.QueryClientState(ctx, endA.ClientID)
	if err != nil {
		return err
	}
	if clientStateA.ChainId != endB.Client.ChainID() {
		return errors.Wrapf(types.ErrChainMismatch,
			"client %s on %s tracks chain %s, node reports %s",
			endA.ClientID, endA.Client.ChainID(), clientStateA.ChainId, endB.Client.ChainID())
	}
	clientStateB, err := endB.Client.QueryClientState(ctx, endB.ClientID)
	if err != nil {
		return err
	}
	if clientStateB.ChainId != endA.Client.ChainID() {
		return errors.Wrapf(types.ErrChainMismatch,
			"client %s on %s tracks chain %s, node reports %s",
			endB.ClientID, endB.Client.ChainID(), clientStateB.ChainId, endA.Client.ChainID())
	}

	if err := driver.AssertHeadersMatchConsensusState(ctx, endA.Client, endB.Client, endA.ClientID); err != nil {
		return err
	}
	return driver.AssertHeadersMatchConsensusState(ctx, endB.Client, endA.Client, endB.ClientID)
}
