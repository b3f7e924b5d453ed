// Package dashboard assembles the admin and pharmacy overview figures from the facade, the availability
// resolver and the aggregation helpers.
package dashboard

import (
	"context"
	"time"

	"campusrx/m/domain"
	"campusrx/m/internal/aggregate"
	"campusrx/m/internal/apperr"
	"campusrx/m/internal/availability"
	"campusrx/m/internal/datastore"
	"campusrx/m/internal/facade"
)

const (
	NewPharmacyWindowDays = 30
	DefaultTrendDays      = 7
	topSearches           = 5
)

type Admin struct {
	TotalMedicines      int                       `json:"total_medicines"`
	TotalPharmacies     int                       `json:"total_pharmacies"`
	AvailablePharmacies int                       `json:"available_pharmacies"`
	PendingRequests     int                       `json:"pending_requests"`
	NewPharmacies       int                       `json:"new_pharmacies"`
	LowStock            int                       `json:"low_stock"`
	Categories          []aggregate.CategoryCount `json:"categories"`
	TopSearches         []domain.SearchEntry      `json:"top_searches"`
}

type Pharmacy struct {
	TotalMedicines int                       `json:"total_medicines"`
	InStock        int                       `json:"in_stock"`
	OutOfStock     int                       `json:"out_of_stock"`
	LowStock       int                       `json:"low_stock"`
	Categories     []aggregate.CategoryCount `json:"categories"`
	Summary        aggregate.Summary         `json:"summary"`
}

type Service struct {
	f        *facade.Facade
	resolver *availability.Resolver
}

func NewService(f *facade.Facade, resolver *availability.Resolver) *Service {
	return &Service{f: f, resolver: resolver}
}

func (s *Service) Admin(ctx context.Context) (Admin, error) {
	var out Admin
	medicines, err := s.f.Medicines.List(ctx, facade.Query{})
	if err != nil {
		return out, err
	}
	pharmacies, err := s.f.Pharmacies.List(ctx, facade.Query{})
	if err != nil {
		return out, err
	}
	links, err := s.f.Stock.List(ctx, facade.Query{})
	if err != nil {
		return out, err
	}
	if out.PendingRequests, err = s.f.Requests.Count(ctx, datastore.Eq("status", string(domain.RequestPending))); err != nil {
		return out, err
	}
	out.TopSearches, err = s.f.Searches.List(ctx, facade.Query{
		Order: []datastore.Order{datastore.Desc("count")},
		Limit: topSearches,
	})
	if err != nil {
		return out, err
	}

	out.TotalMedicines = len(medicines)
	out.TotalPharmacies = len(pharmacies)
	for _, p := range pharmacies {
		if p.Available {
			out.AvailablePharmacies++
		}
	}
	if out.NewPharmacies, err = aggregate.NewWithin(pharmacies, NewPharmacyWindowDays, s.f.Now()); err != nil {
		return out, err
	}
	if out.LowStock, err = aggregate.LowStock(links, aggregate.DefaultLowStockThreshold); err != nil {
		return out, err
	}
	if out.Categories, err = aggregate.CountByCategory(medicines); err != nil {
		return out, err
	}
	return out, nil
}

// Pharmacy summarises the stock of pharmacyID.
func (s *Service) Pharmacy(ctx context.Context, pharmacyID string) (Pharmacy, error) {
	var out Pharmacy
	if p := s.f.Session().Principal(); !p.IsAdmin() && !(p.IsPharmacy() && p.PharmacyID == pharmacyID) {
		return out, apperr.New(apperr.KindUnauthorized, "dashboard belongs to another pharmacy")
	}

	links, err := s.f.Stock.List(ctx, facade.Query{
		Filters: []datastore.Cond{datastore.Eq("pharmacy_id", pharmacyID)},
	})
	if err != nil {
		return out, err
	}
	stocked, err := s.resolver.MedicinesAt(ctx, pharmacyID)
	if err != nil {
		return out, err
	}

	if out.Summary, err = aggregate.StockSummary(links); err != nil {
		return out, err
	}
	if out.LowStock, err = aggregate.LowStock(links, aggregate.DefaultLowStockThreshold); err != nil {
		return out, err
	}
	medicines := make([]domain.Medicine, 0, len(stocked))
	for _, m := range stocked {
		medicines = append(medicines, m.Medicine)
	}
	if out.Categories, err = aggregate.CountByCategory(medicines); err != nil {
		return out, err
	}
	out.TotalMedicines = out.Summary.Links
	out.InStock = out.Summary.InStock
	out.OutOfStock = out.Summary.OutOfStock
	return out, nil
}

// Trend returns the daily total of stock quantity touched over the last days days, one entry per day.
func (s *Service) Trend(ctx context.Context, days int) ([]aggregate.DayTotal, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	now := s.f.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	links, err := s.f.Stock.List(ctx, facade.Query{
		Filters: []datastore.Cond{datastore.Gte("updated_at", from)},
		Order:   []datastore.Order{datastore.Asc("updated_at")},
	})
	if err != nil {
		return nil, err
	}
	rows := make([]datastore.Row, 0, len(links))
	for _, l := range links {
		rows = append(rows, datastore.Row{"updated_at": l.UpdatedAt, "quantity": l.Quantity})
	}
	totals, err := aggregate.Trend(rows, "updated_at", "quantity")
	if err != nil {
		return nil, err
	}
	return aggregate.FillDays(totals, from, now), nil
}
