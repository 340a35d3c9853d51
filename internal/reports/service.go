package reports

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/colmado-pos/colmado-pos/internal/catalog"
)

const topProductsLimit = 10

// CatalogPort is the catalog surface the low stock report reads.
type CatalogPort interface {
	LowStock(ctx context.Context) ([]catalog.Product, error)
}

// Service assembles reports over the sales tables, serving repeated requests
// from the cache.
type Service struct {
	repo    Repository
	cache   *Cache
	catalog CatalogPort
}

func NewService(repo Repository, cache *Cache, cat CatalogPort) *Service {
	return &Service{repo: repo, cache: cache, catalog: cat}
}

// Summary builds the full report for a date range, fanning the three
// underlying queries out concurrently.
func (s *Service) Summary(ctx context.Context, from, to string) (Summary, error) {
	if from > to {
		return Summary{}, fmt.Errorf("reports: range start %s is after end %s", from, to)
	}

	key, err := s.cache.BuildKey(ctx, "reports", "summary", from, to)
	if err != nil {
		return Summary{}, err
	}

	var out Summary
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.buildSummary(ctx, from, to)
	})
	if err != nil {
		return Summary{}, err
	}
	return out, nil
}

func (s *Service) buildSummary(ctx context.Context, from, to string) (Summary, error) {
	summary := Summary{From: from, To: to}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.repo.RangeTotals(ctx, from, to)
		if err != nil {
			return err
		}
		summary.Totals = totals
		return nil
	})
	g.Go(func() error {
		top, err := s.repo.TopProducts(ctx, from, to, topProductsLimit)
		if err != nil {
			return err
		}
		summary.TopProducts = top
		return nil
	})
	g.Go(func() error {
		daily, err := s.repo.DailyBreakdown(ctx, from, to)
		if err != nil {
			return err
		}
		summary.Daily = daily
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	if summary.Totals.TotalSales > 0 {
		summary.AverageTicket = summary.Totals.TotalAmount / float64(summary.Totals.TotalSales)
	}
	if summary.TopProducts == nil {
		summary.TopProducts = []ProductStat{}
	}
	if summary.Daily == nil {
		summary.Daily = []DayTotals{}
	}
	return summary, nil
}

// LowStock lists active products at or below their minimum stock.
func (s *Service) LowStock(ctx context.Context) ([]catalog.Product, error) {
	return s.catalog.LowStock(ctx)
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// ValidRangeDate reports whether a date parameter parses as a business date.
func ValidRangeDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}
