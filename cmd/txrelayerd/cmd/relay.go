package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tokenize-x/tx-relayer/pkg/keyring"
	"github.com/tokenize-x/tx-relayer/pkg/metrics"
	"github.com/tokenize-x/tx-relayer/pkg/store"
	"github.com/tokenize-x/tx-relayer/relayer/link"
	"github.com/tokenize-x/tx-relayer/relayer/scheduler"
	relayertypes "github.com/tokenize-x/tx-relayer/relayer/types"
)

// RelayCmd starts the scheduler loop over every persisted relay path.
func RelayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run the relay loop over all persisted paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			m := metrics.New()
			if cfg.MetricsAddr != "" {
				go func() {
					if err := m.Serve(cfg.MetricsAddr); err != nil {
						logger.Error("metrics server stopped", "err", err)
					}
				}()
			}

			buildLink := func(ctx context.Context, path store.RelayPath) (*link.Link, error) {
				clientA, err := buildChainClient(ctx, cfg, logger, st, kr, path.ChainTypeA, path.ChainIDA, path.NodeA, path.QueryNodeA)
				if err != nil {
					return nil, err
				}
				clientB, err := buildChainClient(ctx, cfg, logger, st, kr, path.ChainTypeB, path.ChainIDB, path.NodeB, path.QueryNodeB)
				if err != nil {
					return nil, err
				}
				opts := link.Options{PathID: path.ID, Logger: logger}
				switch path.Version {
				case relayertypes.V1:
					return link.NewFromExistingV1(ctx, clientA, clientB, path.ClientA, path.ClientB, opts)
				case relayertypes.V2:
					return link.NewFromExistingV2(ctx, clientA, clientB, path.ClientA, path.ClientB, opts)
				default:
					return nil, errors.Wrapf(relayertypes.ErrConfig, "unknown IBC version %d", path.Version)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return scheduler.New(st, cfg, logger, m, buildLink).Run(ctx)
		},
	}
}
