package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/jewelbill/internal/clock"
	"github.com/smallbiznis/jewelbill/internal/metalrate/domain"
	"github.com/smallbiznis/jewelbill/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Source  domain.Source
	Cache   *Cache
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	source  domain.Source
	cache   *Cache
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("metalrate.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		source:  p.Source,
		cache:   p.Cache,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

// Refresh pulls a quote, falling back to the fixed table when the feeds are
// unavailable, and upserts all eight rates.
func (s *Service) Refresh(ctx context.Context) (domain.RefreshResult, error) {
	quote, err := s.source.Fetch(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.RefreshResult{}, ctxErr
		}
		level := s.log.Warn
		if errors.Is(err, domain.ErrSourceDisabled) {
			level = s.log.Debug
		}
		level("metal rate source unavailable, using fallback table", zap.Error(err))
		quote = domain.FallbackQuote()
	}

	now := s.clock.Now().UTC()
	rates, err := domain.BuildRates(quote, now)
	if err != nil {
		return domain.RefreshResult{}, err
	}
	for i := range rates {
		rates[i].ID = s.genID.Generate()
	}

	if err := s.repo.Upsert(ctx, s.db, rates); err != nil {
		return domain.RefreshResult{}, err
	}

	sortRates(rates)
	s.cache.Store(rates, now)
	s.metrics.RecordMetalRateRefresh(ctx, quote.Source)
	s.log.Info("metal rates refreshed", zap.String("source", quote.Source), zap.Int("rates", len(rates)))

	return domain.RefreshResult{Source: quote.Source, Updated: len(rates), RefreshedAt: now}, nil
}

// List serves the cached table, warming it from the database on first use.
func (s *Service) List(ctx context.Context, market string) (domain.Snapshot, error) {
	m, err := domain.ParseMarket(market)
	if err != nil {
		return domain.Snapshot{}, err
	}

	rates, refreshedAt, ok := s.cache.Load()
	if !ok {
		rates, refreshedAt, err = s.warm(ctx)
		if err != nil {
			return domain.Snapshot{}, err
		}
	}

	filtered := make([]domain.MetalRate, 0, len(rates))
	for _, r := range rates {
		if m == "" || r.Market == m {
			filtered = append(filtered, r)
		}
	}

	return domain.Snapshot{
		Rates:       filtered,
		RefreshedAt: refreshedAt,
		Stale:       s.cache.Stale(s.clock.Now()),
	}, nil
}

func (s *Service) warm(ctx context.Context) ([]domain.MetalRate, time.Time, error) {
	rates, err := s.repo.List(ctx, s.db, "")
	if err != nil {
		return nil, time.Time{}, err
	}
	var newest time.Time
	for _, r := range rates {
		if r.LastUpdated.After(newest) {
			newest = r.LastUpdated
		}
	}
	sortRates(rates)
	if len(rates) > 0 {
		s.cache.Store(rates, newest)
	}
	return rates, newest, nil
}

func sortRates(rates []domain.MetalRate) {
	order := func(r domain.MetalRate) int {
		for mi, m := range domain.Markets {
			if m != r.Market {
				continue
			}
			for gi, g := range domain.Grades {
				if g == r.Grade() {
					return mi*len(domain.Grades) + gi
				}
			}
		}
		return len(domain.Markets) * len(domain.Grades)
	}
	sort.SliceStable(rates, func(i, j int) bool { return order(rates[i]) < order(rates[j]) })
}
