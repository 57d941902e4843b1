package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/policy"
	"github.com/Najinc/painperdu/internal/query"
	"github.com/Najinc/painperdu/internal/statistics"
	"github.com/Najinc/painperdu/internal/validate"
)

var reportResource = policy.Resource{Kind: policy.KindStatistics}

func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	if _, err := s.authorize(ctx, reportResource, policy.ActionRead); err != nil {
		return domain.Dashboard{}, err
	}
	return s.stats.Dashboard(ctx, s.now())
}

// PeriodStats needs both bounds.
func (s *Service) PeriodStats(ctx context.Context, startDate string, endDate string) (domain.PeriodStats, error) {
	if _, err := s.authorize(ctx, reportResource, policy.ActionRead); err != nil {
		return domain.PeriodStats{}, err
	}
	if strings.TrimSpace(startDate) == "" || strings.TrimSpace(endDate) == "" {
		return domain.PeriodStats{}, validate.Errors{
			{Field: "startDate", Message: "is required"},
			{Field: "endDate", Message: "is required"},
		}
	}
	r, err := parseRange(startDate, endDate)
	if err != nil {
		return domain.PeriodStats{}, err
	}
	return s.stats.Period(ctx, *r.From, *r.To)
}

// SalesStats accepts day, week, month (current calendar unit) or custom
// with explicit bounds. The default is the current week.
func (s *Service) SalesStats(ctx context.Context, period string, startDate string, endDate string) (domain.SalesStats, error) {
	if _, err := s.authorize(ctx, reportResource, policy.ActionRead); err != nil {
		return domain.SalesStats{}, err
	}
	if period == "" {
		period = "week"
	}
	if period == "custom" {
		if strings.TrimSpace(startDate) == "" || strings.TrimSpace(endDate) == "" {
			return domain.SalesStats{}, validate.Field("startDate", "startDate and endDate are required for a custom period")
		}
		r, err := parseRange(startDate, endDate)
		if err != nil {
			return domain.SalesStats{}, err
		}
		return s.stats.Sales(ctx, period, *r.From, *r.To)
	}

	from, to, err := statistics.PeriodRange(period, domain.Today(s.now()))
	if err != nil {
		return domain.SalesStats{}, validate.Field("period", "must be one of day, week, month, custom")
	}
	return s.stats.Sales(ctx, period, from, to)
}

// ProductStats covers the current week or month, month by default.
func (s *Service) ProductStats(ctx context.Context, period string) (domain.ProductStats, error) {
	if _, err := s.authorize(ctx, reportResource, policy.ActionRead); err != nil {
		return domain.ProductStats{}, err
	}
	if period == "" {
		period = "month"
	}
	from, to, err := statistics.PeriodRange(period, domain.Today(s.now()))
	if err != nil {
		return domain.ProductStats{}, validate.Field("period", "must be one of day, week, month")
	}
	return s.stats.Products(ctx, period, from, to)
}

func (s *Service) WasteStats(ctx context.Context, days int) (domain.WasteStats, error) {
	if _, err := s.authorize(ctx, reportResource, policy.ActionRead); err != nil {
		return domain.WasteStats{}, err
	}
	if days > 366 {
		return domain.WasteStats{}, validate.Field("days", "must be at most 366")
	}
	return s.stats.Waste(ctx, days, s.now())
}

func (s *Service) SellersStats(ctx context.Context, startDate string, endDate string) (domain.SellersStats, error) {
	if _, err := s.authorize(ctx, reportResource, policy.ActionRead); err != nil {
		return domain.SellersStats{}, err
	}
	r, err := parseRange(startDate, endDate)
	if err != nil {
		return domain.SellersStats{}, err
	}
	return s.stats.Sellers(ctx, r)
}

// parseRange turns optional query bounds into a range, reporting bad input
// as field errors.
func parseRange(startDate string, endDate string) (query.DateRange, error) {
	r, err := query.ParseDateRange(startDate, endDate)
	if errors.Is(err, domain.ErrInvalidDateRange) {
		return query.DateRange{}, err
	}
	if err != nil {
		return query.DateRange{}, validate.Field("startDate", "dates must be valid ISO 8601 dates")
	}
	return r, nil
}
