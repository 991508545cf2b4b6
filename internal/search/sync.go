package search

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"storefront/internal/models"
)

// indexer is the part of *Index the Syncer writes through.
type indexer interface {
	Put(ctx context.Context, p models.Product) error
	Remove(ctx context.Context, id string) error
}

// Syncer mirrors catalog snapshots into the index. Snapshots that arrive
// while one is being applied are coalesced; only the latest is applied.
type Syncer struct {
	index indexer
	log   zerolog.Logger

	latest chan []models.Product
	known  map[string]models.Product
	wg     sync.WaitGroup
}

func NewSyncer(index indexer, log zerolog.Logger) *Syncer {
	return &Syncer{
		index:  index,
		log:    log,
		latest: make(chan []models.Product, 1),
		known:  make(map[string]models.Product),
	}
}

// Offer queues a full catalog snapshot, replacing any queued one. It never
// blocks, so it can be registered as a catalog subscription listener.
func (s *Syncer) Offer(products []models.Product) {
	for {
		select {
		case s.latest <- products:
			return
		default:
		}
		select {
		case <-s.latest:
		default:
		}
	}
}

// Run applies snapshots until ctx ends.
func (s *Syncer) Run(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case products := <-s.latest:
			s.apply(ctx, products)
		}
	}
}

// Wait blocks until Run has returned.
func (s *Syncer) Wait() { s.wg.Wait() }

func (s *Syncer) apply(ctx context.Context, products []models.Product) {
	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		seen[p.ID] = struct{}{}
		if old, ok := s.known[p.ID]; ok && old == p {
			continue
		}
		if err := s.index.Put(ctx, p); err != nil {
			s.log.Error().Err(err).Str("product", p.ID).Msg("product not indexed")
			continue
		}
		s.known[p.ID] = p
	}
	for id := range s.known {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := s.index.Remove(ctx, id); err != nil {
			s.log.Error().Err(err).Str("product", id).Msg("product not removed from index")
			continue
		}
		delete(s.known, id)
	}
}
