// Package scheduler runs relay rounds at a polling cadence across every persisted
// relay path, persisting watermarks and keeping light clients fresh.
package scheduler

import (
	"context"
	"strconv"
	"time"

	"cosmossdk.io/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tokenize-x/tx-relayer/pkg/config"
	"github.com/tokenize-x/tx-relayer/pkg/deterministicmap"
	"github.com/tokenize-x/tx-relayer/pkg/metrics"
	"github.com/tokenize-x/tx-relayer/pkg/store"
	"github.com/tokenize-x/tx-relayer/relayer/link"
	"github.com/tokenize-x/tx-relayer/relayer/types"
)

// BuildLink reconstructs a live link from a persisted path: dialing both chains,
// validating the stored client or connection pair and refusing on any mismatch.
type BuildLink func(ctx context.Context, path store.RelayPath) (*link.Link, error)

// Scheduler owns the set of live links and drives one cooperative relay loop.
type Scheduler struct {
	store     *store.Store
	cfg       config.Config
	logger    log.Logger
	metrics   *metrics.Metrics
	buildLink BuildLink

	// links is keyed by path id, iterated in id order and mutated only from the
	// scheduler task.
	links *deterministicmap.Map[uint64, *link.Link]
}

// New returns a scheduler over the persisted paths.
func New(st *store.Store, cfg config.Config, logger log.Logger, m *metrics.Metrics, buildLink BuildLink) *Scheduler {
	return &Scheduler{
		store:     st,
		cfg:       cfg,
		logger:    logger.With("module", "scheduler"),
		metrics:   m,
		buildLink: buildLink,
		links:     deterministicmap.New[uint64, *link.Link](),
	}
}

// Run loops until ctx is cancelled. A single link's failure is logged and retried the
// next tick; only unrecoverable invariant violations (a diverged client discovered on
// reconstruction) terminate the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("relayer started", "poll_interval", s.cfg.PollInterval)
	for {
		if err := s.reconcileLinks(ctx); err != nil {
			return err
		}
		s.runTicks(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("relayer stopping")
			return nil
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// reconcileLinks constructs links for persisted paths that have none yet. A diverged
// client is fatal; any other construction failure is retried on a later tick.
func (s *Scheduler) reconcileLinks(ctx context.Context) error {
	paths, err := s.store.Paths()
	if err != nil {
		s.logger.Error("reading relay paths", "err", err)
		return nil
	}
	for _, path := range paths {
		if _, ok := s.links.Get(path.ID); ok {
			continue
		}
		l, err := s.buildLink(ctx, path)
		if err != nil {
			if errors.Is(err, types.ErrClientDiverged) {
				return errors.Wrapf(err, "path %d is unrecoverable", path.ID)
			}
			s.logger.Error("reconstructing link", "path", path.ID, "err", err)
			continue
		}
		s.links.Set(path.ID, l)
		s.logger.Info("link ready",
			"path", path.ID,
			"chain_a", path.ChainIDA, "chain_b", path.ChainIDB,
			"version", path.Version)
	}
	return nil
}

// runTicks runs one tick per link; independent links tick concurrently, all work
// inside one tick is sequential.
func (s *Scheduler) runTicks(ctx context.Context) {
	var eg errgroup.Group
	//nolint:errcheck // tick never returns an error through Range.
	s.links.Range(func(id uint64, l *link.Link) error {
		eg.Go(func() error {
			s.tick(ctx, id, l)
			return nil
		})
		return nil
	})
	_ = eg.Wait()
}

func (s *Scheduler) tick(ctx context.Context, id uint64, l *link.Link) {
	pathLabel := strconv.FormatUint(id, 10)

	wm, _, err := s.store.Heights(id)
	if err != nil {
		s.logger.Error("reading watermarks", "path", id, "err", err)
		return
	}

	newWM, stats, roundErr := l.RelayRound(ctx, wm, s.cfg.TimeoutBlocks, s.cfg.TimeoutSeconds)
	if newWM != wm {
		if err := s.store.SetHeights(id, newWM); err != nil {
			s.logger.Error("persisting watermarks", "path", id, "err", err)
		} else {
			s.metrics.WatermarkGauge.WithLabelValues(pathLabel, "a").Set(float64(newWM.PacketHeightA))
			s.metrics.WatermarkGauge.WithLabelValues(pathLabel, "b").Set(float64(newWM.PacketHeightB))
		}
	}
	s.recordStats(pathLabel, stats)
	if roundErr != nil {
		s.metrics.RoundErrors.WithLabelValues(pathLabel).Inc()
		s.logger.Error("relay round failed", "path", id, "err", roundErr)
	}

	if updated, err := l.UpdateIfStale(ctx, true, s.cfg.MaxAgeDest); err != nil {
		s.logger.Error("stale check side A", "path", id, "err", err)
	} else if updated {
		s.metrics.ClientUpdates.WithLabelValues(pathLabel).Inc()
	}
	if updated, err := l.UpdateIfStale(ctx, false, s.cfg.MaxAgeSrc); err != nil {
		s.logger.Error("stale check side B", "path", id, "err", err)
	} else if updated {
		s.metrics.ClientUpdates.WithLabelValues(pathLabel).Inc()
	}
}

func (s *Scheduler) recordStats(pathLabel string, stats link.RoundStats) {
	record := func(direction string, d link.DirectionStats) {
		if d.Packets > 0 {
			s.metrics.PacketsRelayed.WithLabelValues(pathLabel, direction).Add(float64(d.Packets))
		}
		if d.Acks > 0 {
			s.metrics.AcksRelayed.WithLabelValues(pathLabel, direction).Add(float64(d.Acks))
		}
		if d.Timeouts > 0 {
			s.metrics.TimeoutsSent.WithLabelValues(pathLabel, direction).Add(float64(d.Timeouts))
		}
	}
	record("a-to-b", stats.AtoB)
	record("b-to-a", stats.BtoA)
}
