package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tokenize-x/tx-relayer/pkg/keyring"
	"github.com/tokenize-x/tx-relayer/pkg/store"
	"github.com/tokenize-x/tx-relayer/relayer/link"
	relayertypes "github.com/tokenize-x/tx-relayer/relayer/types"
)

const (
	flagSrcChainID   = "s"
	flagSrcURL       = "surl"
	flagSrcQueryURL  = "squery"
	flagDstChainID   = "d"
	flagDstURL       = "durl"
	flagDstQueryURL  = "dquery"
	flagSrcChainType = "st"
	flagDstChainType = "dt"
	flagIBCVersion   = "ibcv"
	flagTrustPeriod  = "trust-period"

	// transferPort and transferVersion identify the ics20 channel opened on v1 paths.
	transferPort    = "transfer"
	transferVersion = "ics20-1"
)

// AddPathCmd constructs and persists a relay path. For v1 paths it creates clients and
// connections and opens a transfer channel; for v2 paths it creates clients and
// registers counterparties.
func AddPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-path",
		Short: "Create the on-chain plumbing between two chains and persist the relay path",
		Args:  cobra.NoArgs,
		RunE:  runAddPath,
	}
	cmd.Flags().String(flagSrcChainID, "", "source chain id")
	cmd.Flags().String(flagSrcURL, "", "source chain RPC url")
	cmd.Flags().String(flagSrcQueryURL, "", "optional source chain query RPC url")
	cmd.Flags().String(flagDstChainID, "", "destination chain id")
	cmd.Flags().String(flagDstURL, "", "destination chain RPC url")
	cmd.Flags().String(flagDstQueryURL, "", "optional destination chain query RPC url")
	cmd.Flags().String(flagSrcChainType, string(store.ChainTypeCosmos), "source chain type (cosmos|gno)")
	cmd.Flags().String(flagDstChainType, string(store.ChainTypeCosmos), "destination chain type (cosmos|gno)")
	cmd.Flags().Uint8(flagIBCVersion, 1, "IBC protocol version of the path (1|2)")
	cmd.Flags().Duration(flagTrustPeriod, 0, "trusting period override for new clients (default: unbonding*2/3)")
	for _, required := range []string{flagSrcChainID, flagSrcURL, flagDstChainID, flagDstURL} {
		//nolint:errcheck // flags were registered right above.
		cmd.MarkFlagRequired(required)
	}
	return cmd
}

func runAddPath(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	srcChainID, _ := flags.GetString(flagSrcChainID)
	srcURL, _ := flags.GetString(flagSrcURL)
	srcQueryURL, _ := flags.GetString(flagSrcQueryURL)
	dstChainID, _ := flags.GetString(flagDstChainID)
	dstURL, _ := flags.GetString(flagDstURL)
	dstQueryURL, _ := flags.GetString(flagDstQueryURL)
	srcType, _ := flags.GetString(flagSrcChainType)
	dstType, _ := flags.GetString(flagDstChainType)
	ibcVersion, _ := flags.GetUint8(flagIBCVersion)
	trustPeriod, _ := flags.GetDuration(flagTrustPeriod)

	path := store.RelayPath{
		ChainIDA:   srcChainID,
		NodeA:      srcURL,
		QueryNodeA: srcQueryURL,
		ChainIDB:   dstChainID,
		NodeB:      dstURL,
		QueryNodeB: dstQueryURL,
		ChainTypeA: store.ChainType(srcType),
		ChainTypeB: store.ChainType(dstType),
		Version:    relayertypes.Version(ibcVersion),
	}
	if err := path.ChainTypeA.Validate(); err != nil {
		return err
	}
	if err := path.ChainTypeB.Validate(); err != nil {
		return err
	}

	cfg, logger := loadConfig()
	st, err := store.Open(cfg.DBFile)
	if err != nil {
		return err
	}
	defer st.Close()
	kr, err := keyring.Open()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	clientA, err := buildChainClient(ctx, cfg, logger, st, kr, path.ChainTypeA, srcChainID, srcURL, srcQueryURL)
	if err != nil {
		return err
	}
	clientB, err := buildChainClient(ctx, cfg, logger, st, kr, path.ChainTypeB, dstChainID, dstURL, dstQueryURL)
	if err != nil {
		return err
	}

	opts := link.Options{Logger: logger, TrustPeriod: trustPeriod}
	switch relayertypes.Version(ibcVersion) {
	case relayertypes.V1:
		l, connA, connB, err := link.CreateWithNewConnectionsV1(ctx, clientA, clientB, opts)
		if err != nil {
			return err
		}
		if _, _, err := l.OpenChannel(ctx, transferPort, transferVersion); err != nil {
			return err
		}
		path.ClientA, path.ClientB = connA, connB
	case relayertypes.V2:
		_, clientOnA, clientOnB, err := link.CreateWithNewClientsV2(ctx, clientA, clientB, opts)
		if err != nil {
			return err
		}
		path.ClientA, path.ClientB = clientOnA, clientOnB
	default:
		return errors.Wrapf(relayertypes.ErrConfig, "unknown IBC version %d", ibcVersion)
	}

	id, err := st.AddPath(path)
	if err != nil {
		return err
	}
	cmd.Printf("Relay path %d created: %s (%s) <-> %s (%s), IBC v%d.\n",
		id, srcChainID, path.ClientA, dstChainID, path.ClientB, ibcVersion)
	return nil
}
